package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/oakwell/portal-api/internal/ehr"
	"github.com/oakwell/portal-api/internal/pricing"
	"github.com/oakwell/portal-api/internal/selection"
	"github.com/oakwell/portal-api/internal/session"
	"github.com/oakwell/portal-api/pkg/logging"
)

// CatalogBackend is the reference-data slice of the EHR client.
type CatalogBackend interface {
	Doctors(ctx context.Context) ([]ehr.Doctor, error)
	PrimaryServices(ctx context.Context) ([]ehr.PrimaryService, error)
	DoctorServices(ctx context.Context, doctorID string) ([]ehr.MedicalService, error)
}

// CatalogHandler serves the booking flow's reference data.
type CatalogHandler struct {
	backend    CatalogBackend
	selections *selection.Store
	logger     *logging.Logger
}

// NewCatalogHandler creates the catalog handler.
func NewCatalogHandler(backend CatalogBackend, selections *selection.Store, logger *logging.Logger) *CatalogHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &CatalogHandler{backend: backend, selections: selections, logger: logger}
}

// ListDoctors returns the practice's doctors.
// GET /portal/doctors
func (h *CatalogHandler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.backend.Doctors(r.Context())
	if err != nil {
		h.logger.Error("list doctors failed", "error", err)
		jsonError(w, "could not load doctors, please retry", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, doctors)
}

// ListPrimaryServices returns the billing categories.
// GET /portal/services/primary
func (h *CatalogHandler) ListPrimaryServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.backend.PrimaryServices(r.Context())
	if err != nil {
		h.logger.Error("list primary services failed", "error", err)
		jsonError(w, "could not load services, please retry", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, services)
}

// medicalServiceOption is a medical service with its display price: the total
// the patient would pay if this service were chosen, given the currently
// selected primary service. Computed by the same composer as the submitted
// total so the two cannot diverge.
type medicalServiceOption struct {
	ehr.MedicalService
	DisplayPrice string `json:"displayPrice"`
}

// ListDoctorServices returns a doctor's medical services with display prices.
// GET /portal/doctors/{doctorID}/services
func (h *CatalogHandler) ListDoctorServices(w http.ResponseWriter, r *http.Request) {
	doctorID := strings.TrimSpace(chi.URLParam(r, "doctorID"))
	if doctorID == "" {
		jsonError(w, "missing doctorID", http.StatusBadRequest)
		return
	}

	services, err := h.backend.DoctorServices(r.Context(), doctorID)
	if err != nil {
		h.logger.Error("list doctor services failed", "error", err, "doctor_id", doctorID)
		jsonError(w, "could not load services, please retry", http.StatusBadGateway)
		return
	}

	var primary *ehr.PrimaryService
	if patient, ok := session.PatientFromContext(r.Context()); ok && h.selections != nil {
		if sel, err := h.selections.Get(r.Context(), patient.ID); err == nil {
			primary = sel.PrimaryService
		}
	}

	options := make([]medicalServiceOption, 0, len(services))
	for _, svc := range services {
		options = append(options, medicalServiceOption{
			MedicalService: svc,
			DisplayPrice:   pricing.DisplayPrice(&svc, primary),
		})
	}
	writeJSON(w, http.StatusOK, options)
}
