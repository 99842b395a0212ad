package ehr

// Doctor is read-only reference data for the booking flow.
type Doctor struct {
	ID             string `json:"id"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Specialization string `json:"specialization"`
}

// PrimaryService is a billing-level service category ("New Patient", "Follow Up").
// Its normalized name drives additive pricing.
type PrimaryService struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	BasePrice string `json:"basePrice"`
}

// MedicalService is a clinical service scoped to one doctor.
type MedicalService struct {
	ID              string `json:"id"`
	DoctorID        string `json:"doctorId"`
	Name            string `json:"name"`
	BasePrice       string `json:"basePrice"`
	DurationMinutes int    `json:"duration"`
}

// Schedule is a doctor's working window for one calendar date. Slot records
// may not be materialized yet.
type Schedule struct {
	ID        string `json:"id"`
	DoctorID  string `json:"doctorId"`
	Date      string `json:"date"` // YYYY-MM-DD
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// Slot is the atomic bookable time unit within a schedule.
type Slot struct {
	ID         string `json:"id"`
	ScheduleID string `json:"scheduleId"`
	Date       string `json:"date"` // annotated from the owning schedule
	StartTime  string `json:"startTime"`
	EndTime    string `json:"endTime"`
	Available  bool   `json:"isAvailable"`
}

// Availability is the response of the availability endpoint. Slots may already
// be populated, or only schedules may exist (lazy materialization).
type Availability struct {
	Schedules      []Schedule `json:"schedules"`
	AvailableSlots []Slot     `json:"availableSlots"`
}

// TemporaryAppointmentRequest creates an unconfirmed appointment record.
// AppointmentTime is always the selected slot's own start time.
type TemporaryAppointmentRequest struct {
	PatientID        string `json:"patientId"`
	DoctorID         string `json:"doctorId"`
	MedicalServiceID string `json:"medicalServiceId"`
	PrimaryServiceID string `json:"primaryServiceId"`
	SlotID           string `json:"slotId"`
	AppointmentDate  string `json:"appointmentDate"`
	AppointmentTime  string `json:"appointmentTime"`
	DurationMinutes  int    `json:"duration"`
	Amount           string `json:"amount"` // two-decimal string
}

// Appointment is a confirmed (or historical) appointment as returned by the backend.
type Appointment struct {
	ID               string `json:"id"`
	PatientID        string `json:"patientId"`
	DoctorID         string `json:"doctorId"`
	MedicalServiceID string `json:"medicalServiceId"`
	PrimaryServiceID string `json:"primaryServiceId"`
	SlotID           string `json:"slotId"`
	AppointmentDate  string `json:"appointmentDate"`
	AppointmentTime  string `json:"appointmentTime"`
	DurationMinutes  int    `json:"duration"`
	Amount           string `json:"amount"`
	Status           string `json:"status"` // temporary | confirmed | cancelled
}
