package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/oakwell/portal-api/internal/availability"
	"github.com/oakwell/portal-api/internal/booking"
	"github.com/oakwell/portal-api/internal/ehr"
	"github.com/oakwell/portal-api/internal/observability/metrics"
	"github.com/oakwell/portal-api/internal/payments"
	"github.com/oakwell/portal-api/internal/selection"
	"github.com/oakwell/portal-api/internal/session"
	"github.com/oakwell/portal-api/pkg/logging"
)

// SlotResolver resolves bookable slots for a doctor on a date.
type SlotResolver interface {
	ResolveSlots(ctx context.Context, doctorID, date, serviceID string) (*availability.Result, error)
}

// BookingHandler drives the booking workflow over HTTP. Selection state lives
// server-side so the cascade rules are enforced in one place.
type BookingHandler struct {
	selections *selection.Store
	pendings   *booking.Store
	resolver   SlotResolver
	flow       *booking.Orchestrator
	backend    CatalogBackend
	metrics    *metrics.BookingMetrics
	logger     *logging.Logger
}

// NewBookingHandler creates the booking workflow handler.
func NewBookingHandler(
	selections *selection.Store,
	pendings *booking.Store,
	resolver SlotResolver,
	flow *booking.Orchestrator,
	backend CatalogBackend,
	m *metrics.BookingMetrics,
	logger *logging.Logger,
) *BookingHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingHandler{
		selections: selections,
		pendings:   pendings,
		resolver:   resolver,
		flow:       flow,
		backend:    backend,
		metrics:    m,
		logger:     logger,
	}
}

// GetSelection returns the patient's current booking selection.
// GET /portal/booking/selection
func (h *BookingHandler) GetSelection(w http.ResponseWriter, r *http.Request) {
	patient, ok := session.PatientFromContext(r.Context())
	if !ok {
		jsonError(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	sel, err := h.selections.Get(r.Context(), patient.ID)
	if err != nil {
		h.logger.Error("load selection failed", "error", err, "patient_id", patient.ID)
		jsonError(w, "could not load booking state", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

// SetDoctor selects a doctor. Medical services are re-fetched immediately so
// the service picker is never stale after the cascade reset.
// PUT /portal/booking/doctor
func (h *BookingHandler) SetDoctor(w http.ResponseWriter, r *http.Request) {
	patient, sel, ok := h.loadSelection(w, r)
	if !ok {
		return
	}

	var body struct {
		DoctorID string `json:"doctorId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.DoctorID) == "" {
		jsonError(w, "doctorId is required", http.StatusUnprocessableEntity)
		return
	}

	doctors, err := h.backend.Doctors(r.Context())
	if err != nil {
		h.logger.Error("load doctors failed", "error", err)
		jsonError(w, "could not load doctors, please retry", http.StatusBadGateway)
		return
	}
	var doctor *ehr.Doctor
	for i := range doctors {
		if doctors[i].ID == body.DoctorID {
			doctor = &doctors[i]
			break
		}
	}
	if doctor == nil {
		jsonError(w, "unknown doctor", http.StatusUnprocessableEntity)
		return
	}

	sel.SetDoctor(doctor)
	revision := sel.Revision

	services, err := h.backend.DoctorServices(r.Context(), doctor.ID)
	if err != nil {
		// Leave the service list empty rather than stale; the client retries.
		h.logger.Error("load doctor services failed", "error", err, "doctor_id", doctor.ID)
		h.saveSelection(w, r, patient.ID, sel)
		return
	}
	sel.ApplyMedicalServices(services, revision)
	h.saveSelection(w, r, patient.ID, sel)
}

// SetPrimaryService selects the billing category. No cascade: downstream
// selections survive, only pricing changes.
// PUT /portal/booking/primary-service
func (h *BookingHandler) SetPrimaryService(w http.ResponseWriter, r *http.Request) {
	patient, sel, ok := h.loadSelection(w, r)
	if !ok {
		return
	}

	var body struct {
		PrimaryServiceID string `json:"primaryServiceId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.PrimaryServiceID) == "" {
		jsonError(w, "primaryServiceId is required", http.StatusUnprocessableEntity)
		return
	}

	services, err := h.backend.PrimaryServices(r.Context())
	if err != nil {
		h.logger.Error("load primary services failed", "error", err)
		jsonError(w, "could not load services, please retry", http.StatusBadGateway)
		return
	}
	var primary *ehr.PrimaryService
	for i := range services {
		if services[i].ID == body.PrimaryServiceID {
			primary = &services[i]
			break
		}
	}
	if primary == nil {
		jsonError(w, "unknown primary service", http.StatusUnprocessableEntity)
		return
	}

	sel.SetPrimaryService(primary)
	h.saveSelection(w, r, patient.ID, sel)
}

// SetMedicalService selects a clinical service from the cached doctor-scoped
// list, clearing the slot state.
// PUT /portal/booking/service
func (h *BookingHandler) SetMedicalService(w http.ResponseWriter, r *http.Request) {
	patient, sel, ok := h.loadSelection(w, r)
	if !ok {
		return
	}

	var body struct {
		MedicalServiceID string `json:"medicalServiceId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.MedicalServiceID) == "" {
		jsonError(w, "medicalServiceId is required", http.StatusUnprocessableEntity)
		return
	}

	var service *ehr.MedicalService
	for i := range sel.MedicalServices {
		if sel.MedicalServices[i].ID == body.MedicalServiceID {
			service = &sel.MedicalServices[i]
			break
		}
	}
	if service == nil {
		jsonError(w, "select a doctor first", http.StatusUnprocessableEntity)
		return
	}

	sel.SetMedicalService(service)
	h.saveSelection(w, r, patient.ID, sel)
}

// SetDate selects the appointment date, clearing the slot state.
// PUT /portal/booking/date
func (h *BookingHandler) SetDate(w http.ResponseWriter, r *http.Request) {
	patient, sel, ok := h.loadSelection(w, r)
	if !ok {
		return
	}

	var body struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "date is required", http.StatusUnprocessableEntity)
		return
	}
	if _, err := time.Parse("2006-01-02", body.Date); err != nil {
		jsonError(w, "date must be YYYY-MM-DD", http.StatusUnprocessableEntity)
		return
	}

	sel.SetDate(body.Date)
	h.saveSelection(w, r, patient.ID, sel)
}

// slotsResponse reports the resolved slots. NoAvailability distinguishes a
// day off from an error; errors never come back as an empty list.
type slotsResponse struct {
	Slots          []ehr.Slot `json:"slots"`
	NoAvailability bool       `json:"noAvailability"`
}

// ResolveSlots resolves the bookable slots for the current doctor+date and
// caches them on the selection. A response resolved under a superseded
// revision is discarded, never applied.
// GET /portal/booking/slots
func (h *BookingHandler) ResolveSlots(w http.ResponseWriter, r *http.Request) {
	patient, sel, ok := h.loadSelection(w, r)
	if !ok {
		return
	}
	if sel.Doctor == nil || sel.Date == "" {
		jsonError(w, "select a doctor and date first", http.StatusUnprocessableEntity)
		return
	}

	serviceID := ""
	if sel.MedicalService != nil {
		serviceID = sel.MedicalService.ID
	}
	revision := sel.Revision

	start := time.Now()
	result, err := h.resolver.ResolveSlots(r.Context(), sel.Doctor.ID, sel.Date, serviceID)
	if err != nil {
		h.metrics.ObserveSlotResolution("error")
		h.logger.Error("slot resolution failed", "error", err, "doctor_id", sel.Doctor.ID, "date", sel.Date)
		jsonError(w, "could not load availability, please retry", http.StatusBadGateway)
		return
	}
	h.metrics.ObserveResolutionLatency("resolve", time.Since(start).Seconds())
	if result.NoAvailability {
		h.metrics.ObserveSlotResolution("no_availability")
	} else {
		h.metrics.ObserveSlotResolution("resolved")
	}

	if !sel.ApplySlots(result.Slots, revision) {
		jsonError(w, "selection changed while loading slots, please retry", http.StatusConflict)
		return
	}
	if err := h.selections.Save(r.Context(), patient.ID, sel); err != nil {
		h.logger.Error("save selection failed", "error", err, "patient_id", patient.ID)
		jsonError(w, "could not save booking state", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, slotsResponse{Slots: result.Slots, NoAvailability: result.NoAvailability})
}

// SetSlot selects a slot from the cached resolved list.
// PUT /portal/booking/slot
func (h *BookingHandler) SetSlot(w http.ResponseWriter, r *http.Request) {
	patient, sel, ok := h.loadSelection(w, r)
	if !ok {
		return
	}

	var body struct {
		SlotID string `json:"slotId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.SlotID) == "" {
		jsonError(w, "slotId is required", http.StatusUnprocessableEntity)
		return
	}

	if !sel.SetSlot(body.SlotID) {
		jsonError(w, "slot not in the current availability, re-resolve slots", http.StatusUnprocessableEntity)
		return
	}
	h.saveSelection(w, r, patient.ID, sel)
}

// Submit validates the selection and starts the booking protocol: temporary
// appointment, then payment intent.
// POST /portal/booking/submit
func (h *BookingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	patient, sel, ok := h.loadSelection(w, r)
	if !ok {
		return
	}

	pending, err := h.flow.Begin(r.Context(), patient.ID, sel)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrIncompleteSelection):
			jsonError(w, "please complete all booking fields before submitting", http.StatusUnprocessableEntity)
		case errors.Is(err, booking.ErrSubmissionInFlight):
			jsonError(w, "a booking is already being processed", http.StatusConflict)
		default:
			h.logger.Error("booking submission failed", "error", err, "patient_id", patient.ID)
			jsonError(w, submissionMessage(err), http.StatusBadGateway)
		}
		return
	}

	if err := h.pendings.SavePending(r.Context(), patient.ID, pending); err != nil {
		h.logger.Error("save pending booking failed", "error", err, "patient_id", patient.ID)
		jsonError(w, "could not save booking state", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, pending)
}

// ConfirmPayment completes the payment step and finalizes the booking. On
// success the selection resets; on decline the temporary record is gone but
// the selection survives for a retry.
// POST /portal/booking/payment/confirm
func (h *BookingHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	patient, ok := session.PatientFromContext(r.Context())
	if !ok {
		jsonError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	pending, err := h.pendings.GetPending(r.Context(), patient.ID)
	if err != nil {
		h.logger.Error("load pending booking failed", "error", err, "patient_id", patient.ID)
		jsonError(w, "could not load booking state", http.StatusInternalServerError)
		return
	}

	notification, err := h.flow.CompletePayment(r.Context(), patient.ID, pending, patient.Email, patient.Name)
	if err != nil {
		if errors.Is(err, booking.ErrNoPendingBooking) {
			jsonError(w, "no booking awaiting payment", http.StatusNotFound)
			return
		}
		_ = h.pendings.ClearPending(r.Context(), patient.ID)
		status := http.StatusBadGateway
		if errors.Is(err, payments.ErrDeclined) {
			status = http.StatusPaymentRequired
		}
		h.logger.Error("payment confirmation failed", "error", err, "patient_id", patient.ID)
		writeJSON(w, status, map[string]any{"notification": notification})
		return
	}

	// Confirmed: clear temp state and reset the form.
	if err := h.pendings.ClearPending(r.Context(), patient.ID); err != nil {
		h.logger.Error("clear pending booking failed", "error", err, "patient_id", patient.ID)
	}
	if err := h.selections.Delete(r.Context(), patient.ID); err != nil {
		h.logger.Error("reset selection failed", "error", err, "patient_id", patient.ID)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"appointmentId": pending.AppointmentID,
		"notification":  notification,
	})
}

// CancelPayment discards the temporary appointment after the patient closed
// the payment step. The selection is preserved for a retry and no
// notification fires.
// POST /portal/booking/payment/cancel
func (h *BookingHandler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	patient, ok := session.PatientFromContext(r.Context())
	if !ok {
		jsonError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	pending, err := h.pendings.GetPending(r.Context(), patient.ID)
	if err != nil {
		h.logger.Error("load pending booking failed", "error", err, "patient_id", patient.ID)
		jsonError(w, "could not load booking state", http.StatusInternalServerError)
		return
	}

	if err := h.flow.Cancel(r.Context(), patient.ID, pending); err != nil {
		if errors.Is(err, booking.ErrNoPendingBooking) {
			jsonError(w, "no booking awaiting payment", http.StatusNotFound)
			return
		}
		h.logger.Error("cancel booking failed", "error", err, "patient_id", patient.ID)
		jsonError(w, "could not cancel booking", http.StatusInternalServerError)
		return
	}

	if err := h.pendings.ClearPending(r.Context(), patient.ID); err != nil {
		h.logger.Error("clear pending booking failed", "error", err, "patient_id", patient.ID)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BookingHandler) loadSelection(w http.ResponseWriter, r *http.Request) (*session.Patient, *selection.Selection, bool) {
	patient, ok := session.PatientFromContext(r.Context())
	if !ok {
		jsonError(w, "unauthorized", http.StatusUnauthorized)
		return nil, nil, false
	}
	sel, err := h.selections.Get(r.Context(), patient.ID)
	if err != nil {
		h.logger.Error("load selection failed", "error", err, "patient_id", patient.ID)
		jsonError(w, "could not load booking state", http.StatusInternalServerError)
		return nil, nil, false
	}
	return patient, sel, true
}

func (h *BookingHandler) saveSelection(w http.ResponseWriter, r *http.Request, patientID string, sel *selection.Selection) {
	if err := h.selections.Save(r.Context(), patientID, sel); err != nil {
		h.logger.Error("save selection failed", "error", err, "patient_id", patientID)
		jsonError(w, "could not save booking state", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

// submissionMessage surfaces the backend's message verbatim when one exists.
func submissionMessage(err error) string {
	var apiErr *ehr.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "could not create the appointment, please retry"
}
