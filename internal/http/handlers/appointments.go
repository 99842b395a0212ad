package handlers

import (
	"context"
	"net/http"

	"github.com/oakwell/portal-api/internal/ehr"
	"github.com/oakwell/portal-api/internal/session"
	"github.com/oakwell/portal-api/pkg/logging"
)

// AppointmentsBackend is the history slice of the EHR client.
type AppointmentsBackend interface {
	PatientAppointments(ctx context.Context, patientID string) ([]ehr.Appointment, error)
}

// AppointmentsHandler serves the patient's appointment history.
type AppointmentsHandler struct {
	backend AppointmentsBackend
	logger  *logging.Logger
}

// NewAppointmentsHandler creates the appointment history handler.
func NewAppointmentsHandler(backend AppointmentsBackend, logger *logging.Logger) *AppointmentsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentsHandler{backend: backend, logger: logger}
}

// List returns the logged-in patient's appointments.
// GET /portal/appointments
func (h *AppointmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	patient, ok := session.PatientFromContext(r.Context())
	if !ok {
		jsonError(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	appointments, err := h.backend.PatientAppointments(r.Context(), patient.ID)
	if err != nil {
		h.logger.Error("list appointments failed", "error", err, "patient_id", patient.ID)
		jsonError(w, "could not load appointments, please retry", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, appointments)
}
