// Package selection holds the booking flow's selection state and enforces the
// cascade-reset rules that keep doctor, service, date and slot consistent.
package selection

import "github.com/oakwell/portal-api/internal/ehr"

// Selection is one patient's in-progress booking state. Setters enforce
// cascade resets so a selected slot always belongs to the current
// doctor+date+service combination. Revision increases on every change that
// invalidates dependent lists; callers use it to drop stale in-flight
// responses.
type Selection struct {
	Doctor         *ehr.Doctor         `json:"doctor,omitempty"`
	PrimaryService *ehr.PrimaryService `json:"primaryService,omitempty"`
	MedicalService *ehr.MedicalService `json:"medicalService,omitempty"`
	Date           string              `json:"date,omitempty"`
	Slot           *ehr.Slot           `json:"slot,omitempty"`

	// Cached dependent lists, cleared on cascade reset.
	MedicalServices []ehr.MedicalService `json:"medicalServices,omitempty"`
	Slots           []ehr.Slot           `json:"slots,omitempty"`

	Revision int64 `json:"revision"`
}

// SetDoctor selects a doctor. Medical services are doctor-scoped, so the
// selected medical service, slot, and both cached lists are cleared.
func (s *Selection) SetDoctor(d *ehr.Doctor) {
	s.Doctor = d
	s.MedicalService = nil
	s.MedicalServices = nil
	s.clearSlots()
	s.Revision++
}

// SetPrimaryService selects a billing category. It only affects pricing and
// never clears downstream selections.
func (s *Selection) SetPrimaryService(p *ehr.PrimaryService) {
	s.PrimaryService = p
}

// SetMedicalService selects a clinical service and clears the slot state.
func (s *Selection) SetMedicalService(m *ehr.MedicalService) {
	s.MedicalService = m
	s.clearSlots()
	s.Revision++
}

// SetDate selects a calendar date and clears the slot state.
func (s *Selection) SetDate(date string) {
	s.Date = date
	s.clearSlots()
	s.Revision++
}

// ApplyMedicalServices caches a doctor's service list if it was resolved under
// the current revision. Returns false when the response is stale.
func (s *Selection) ApplyMedicalServices(services []ehr.MedicalService, revision int64) bool {
	if revision != s.Revision {
		return false
	}
	s.MedicalServices = services
	return true
}

// ApplySlots caches a resolved slot list if it was resolved under the current
// revision. Returns false when the response is stale.
func (s *Selection) ApplySlots(slots []ehr.Slot, revision int64) bool {
	if revision != s.Revision {
		return false
	}
	s.Slots = slots
	return true
}

// SetSlot selects a slot by id from the cached slot list. Selecting outside
// the cached list is refused, which keeps the slot tied to the doctor, date,
// and service the list was resolved for.
func (s *Selection) SetSlot(slotID string) bool {
	for i := range s.Slots {
		if s.Slots[i].ID == slotID {
			slot := s.Slots[i]
			s.Slot = &slot
			return true
		}
	}
	return false
}

// Complete reports whether every field required to submit a booking is set.
func (s *Selection) Complete() bool {
	return s.Doctor != nil &&
		s.PrimaryService != nil &&
		s.MedicalService != nil &&
		s.Slot != nil &&
		s.Date != ""
}

// Reset clears all selections, used after a confirmed booking.
func (s *Selection) Reset() {
	*s = Selection{Revision: s.Revision + 1}
}

func (s *Selection) clearSlots() {
	s.Slot = nil
	s.Slots = nil
}
