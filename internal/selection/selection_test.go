package selection

import (
	"testing"

	"github.com/oakwell/portal-api/internal/ehr"
)

func fullSelection() *Selection {
	s := &Selection{}
	s.SetDoctor(&ehr.Doctor{ID: "doc_1"})
	s.SetPrimaryService(&ehr.PrimaryService{ID: "prim_1", Name: "Follow Up"})
	s.SetMedicalService(&ehr.MedicalService{ID: "svc_1", DurationMinutes: 30})
	s.SetDate("2025-06-10")
	s.ApplySlots([]ehr.Slot{{ID: "slot_1", StartTime: "09:00"}}, s.Revision)
	if !s.SetSlot("slot_1") {
		panic("slot_1 not in cached list")
	}
	return s
}

func TestSetDoctorCascades(t *testing.T) {
	s := fullSelection()
	s.SetDoctor(&ehr.Doctor{ID: "doc_2"})

	if s.MedicalService != nil {
		t.Fatal("expected medical service cleared")
	}
	if s.MedicalServices != nil {
		t.Fatal("expected cached service list cleared")
	}
	if s.Slot != nil || s.Slots != nil {
		t.Fatal("expected slot state cleared")
	}
	if s.PrimaryService == nil {
		t.Fatal("primary service must survive a doctor change")
	}
}

func TestSetMedicalServiceClearsSlotOnly(t *testing.T) {
	s := fullSelection()
	s.SetMedicalService(&ehr.MedicalService{ID: "svc_2"})

	if s.Slot != nil || s.Slots != nil {
		t.Fatal("expected slot state cleared")
	}
	if s.Doctor == nil || s.Date == "" {
		t.Fatal("doctor and date must survive a service change")
	}
}

func TestSetDateClearsSlotOnly(t *testing.T) {
	s := fullSelection()
	s.SetDate("2025-06-11")

	if s.Slot != nil || s.Slots != nil {
		t.Fatal("expected slot state cleared")
	}
	if s.MedicalService == nil {
		t.Fatal("medical service must survive a date change")
	}
}

func TestSetPrimaryServiceClearsNothing(t *testing.T) {
	s := fullSelection()
	rev := s.Revision
	s.SetPrimaryService(&ehr.PrimaryService{ID: "prim_2", Name: "New Patient"})

	if s.Slot == nil || s.MedicalService == nil || s.Doctor == nil {
		t.Fatal("primary service change must not clear downstream selections")
	}
	if s.Revision != rev {
		t.Fatal("primary service change must not invalidate cached lists")
	}
}

func TestApplySlotsRejectsStaleRevision(t *testing.T) {
	s := &Selection{}
	s.SetDoctor(&ehr.Doctor{ID: "doc_1"})
	s.SetDate("2025-06-10")
	staleRev := s.Revision

	// A new upstream change supersedes the in-flight resolution.
	s.SetDate("2025-06-11")

	if s.ApplySlots([]ehr.Slot{{ID: "slot_old"}}, staleRev) {
		t.Fatal("stale slot response must not be applied")
	}
	if s.Slots != nil {
		t.Fatal("slot cache must stay empty after stale response")
	}
	if !s.ApplySlots([]ehr.Slot{{ID: "slot_new"}}, s.Revision) {
		t.Fatal("current-revision response must be applied")
	}
}

func TestSetSlotOutsideCachedListRefused(t *testing.T) {
	s := fullSelection()
	if s.SetSlot("slot_unknown") {
		t.Fatal("expected unknown slot to be refused")
	}
	if s.Slot == nil || s.Slot.ID != "slot_1" {
		t.Fatalf("existing slot selection must be untouched, got %+v", s.Slot)
	}
}

func TestCompleteRequiresAllFields(t *testing.T) {
	s := fullSelection()
	if !s.Complete() {
		t.Fatal("full selection must be complete")
	}

	s.SetMedicalService(nil)
	if s.Complete() {
		t.Fatal("selection without medical service must be incomplete")
	}
}

func TestResetClearsEverything(t *testing.T) {
	s := fullSelection()
	rev := s.Revision
	s.Reset()

	if s.Doctor != nil || s.PrimaryService != nil || s.MedicalService != nil || s.Slot != nil || s.Date != "" {
		t.Fatalf("expected empty selection after reset, got %+v", s)
	}
	if s.Revision <= rev {
		t.Fatal("reset must advance the revision")
	}
}
