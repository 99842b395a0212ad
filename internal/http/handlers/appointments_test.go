package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/oakwell/portal-api/internal/ehr"
)

func TestListAppointments(t *testing.T) {
	env := newTestEnv(t)
	env.backend.appointments = []ehr.Appointment{
		{ID: "appt_9", PatientID: "pat_1", AppointmentDate: "2025-05-01", Status: "confirmed"},
	}

	rec := env.do(t, http.MethodGet, "/portal/appointments", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var appointments []ehr.Appointment
	if err := json.Unmarshal(rec.Body.Bytes(), &appointments); err != nil {
		t.Fatalf("decode appointments: %v", err)
	}
	if len(appointments) != 1 || appointments[0].ID != "appt_9" {
		t.Fatalf("unexpected appointments: %+v", appointments)
	}
}
