// Package booking drives the temporary-appointment-then-payment protocol:
// validate the selection, create an unconfirmed appointment, collect payment,
// then confirm — or discard the temporary record on failure or cancellation.
package booking

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/oakwell/portal-api/internal/ehr"
	"github.com/oakwell/portal-api/internal/notify"
	"github.com/oakwell/portal-api/internal/observability/metrics"
	"github.com/oakwell/portal-api/internal/payments"
	"github.com/oakwell/portal-api/internal/pricing"
	"github.com/oakwell/portal-api/internal/selection"
	"github.com/oakwell/portal-api/pkg/logging"
)

var bookingTracer = otel.Tracer("portal.internal.booking")

// State is the orchestrator's position in the booking protocol.
type State string

const (
	StateIdle              State = "idle"
	StateCreatingTemporary State = "creating_temporary"
	StateAwaitingPayment   State = "awaiting_payment"
	StateConfirmed         State = "confirmed"
)

var (
	// ErrIncompleteSelection rejects a submission before any backend call.
	ErrIncompleteSelection = errors.New("booking: selection incomplete")
	// ErrSubmissionInFlight is the double-submit guard.
	ErrSubmissionInFlight = errors.New("booking: submission already in flight")
	// ErrNoPendingBooking means there is nothing to confirm or cancel.
	ErrNoPendingBooking = errors.New("booking: no pending booking")
)

// Backend is the subset of the EHR client the orchestrator needs.
type Backend interface {
	CreateTemporaryAppointment(ctx context.Context, req ehr.TemporaryAppointmentRequest) (string, error)
	ConfirmAppointment(ctx context.Context, appointmentID, paymentIntentID string) error
	DiscardTemporaryAppointment(ctx context.Context, appointmentID string) error
}

// Gateway is the payment capability.
type Gateway interface {
	CreateIntent(ctx context.Context, params payments.CreateIntentParams) (*payments.Intent, error)
	ConfirmIntent(ctx context.Context, intentID, appointmentID string) (*payments.Intent, error)
}

// Locks guards against concurrent submissions per patient.
type Locks interface {
	AcquireLock(ctx context.Context, patientID string) (bool, error)
	ReleaseLock(ctx context.Context, patientID string) error
}

// Pending is the temporary-appointment data held while payment is in flight.
type Pending struct {
	State         State  `json:"state"`
	AppointmentID string `json:"appointmentId"`
	IntentID      string `json:"intentId"`
	ClientSecret  string `json:"clientSecret"`
	Amount        string `json:"amount"`
	DoctorName    string `json:"doctorName"`
	ServiceName   string `json:"serviceName"`
	Date          string `json:"date"`
	Time          string `json:"time"`
}

// Orchestrator coordinates the booking state machine.
type Orchestrator struct {
	backend Backend
	gateway Gateway
	notify  *notify.Service
	locks   Locks
	metrics *metrics.BookingMetrics
	logger  *logging.Logger
}

// NewOrchestrator creates the booking orchestrator.
func NewOrchestrator(backend Backend, gateway Gateway, notifier *notify.Service, locks Locks, m *metrics.BookingMetrics, logger *logging.Logger) *Orchestrator {
	if backend == nil {
		panic("booking: backend required")
	}
	if gateway == nil {
		panic("booking: payment gateway required")
	}
	if locks == nil {
		panic("booking: locks required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Orchestrator{
		backend: backend,
		gateway: gateway,
		notify:  notifier,
		locks:   locks,
		metrics: m,
		logger:  logger,
	}
}

// Begin validates the selection, creates the temporary appointment, and opens
// the payment step. On success the flow is in StateAwaitingPayment and the
// returned Pending carries what the client needs for the card-entry widget.
func (o *Orchestrator) Begin(ctx context.Context, patientID string, sel *selection.Selection) (*Pending, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.begin")
	defer span.End()
	span.SetAttributes(attribute.String("portal.patient_id", patientID))

	// Validation errors never reach the backend.
	if sel == nil || !sel.Complete() {
		return nil, ErrIncompleteSelection
	}

	acquired, err := o.locks.AcquireLock(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("booking: acquire submission lock: %w", err)
	}
	if !acquired {
		return nil, ErrSubmissionInFlight
	}

	total := pricing.ComputeTotal(sel.MedicalService, sel.PrimaryService)
	amount := pricing.FormatAmount(total)

	// The slot's own start time is canonical; a separately chosen time could
	// drift from the displayed slot.
	req := ehr.TemporaryAppointmentRequest{
		PatientID:        patientID,
		DoctorID:         sel.Doctor.ID,
		MedicalServiceID: sel.MedicalService.ID,
		PrimaryServiceID: sel.PrimaryService.ID,
		SlotID:           sel.Slot.ID,
		AppointmentDate:  sel.Date,
		AppointmentTime:  sel.Slot.StartTime,
		DurationMinutes:  sel.MedicalService.DurationMinutes,
		Amount:           amount,
	}

	appointmentID, err := o.backend.CreateTemporaryAppointment(ctx, req)
	if err != nil {
		span.RecordError(err)
		o.metrics.ObserveSubmission("backend_error")
		o.releaseLock(ctx, patientID)
		return nil, fmt.Errorf("booking: create temporary appointment: %w", err)
	}

	intent, err := o.gateway.CreateIntent(ctx, payments.CreateIntentParams{
		AppointmentID: appointmentID,
		AmountCents:   int64(math.Round(total * 100)),
	})
	if err != nil {
		span.RecordError(err)
		o.metrics.ObserveSubmission("gateway_error")
		// The temporary record is unusable without a payment intent.
		o.discard(ctx, appointmentID)
		o.releaseLock(ctx, patientID)
		return nil, fmt.Errorf("booking: open payment step: %w", err)
	}

	o.metrics.ObserveSubmission("created")
	o.logger.Info("temporary appointment created",
		"patient_id", patientID,
		"appointment_id", appointmentID,
		"intent_id", intent.ID,
		"amount", amount,
	)

	return &Pending{
		State:         StateAwaitingPayment,
		AppointmentID: appointmentID,
		IntentID:      intent.ID,
		ClientSecret:  intent.ClientSecret,
		Amount:        amount,
		DoctorName:    doctorDisplayName(sel.Doctor),
		ServiceName:   sel.MedicalService.Name,
		Date:          sel.Date,
		Time:          sel.Slot.StartTime,
	}, nil
}

// CompletePayment confirms the intent server-side and promotes the temporary
// appointment. A decline or confirmation failure discards the temporary
// record and reports a failure notification; an Appointment never reverts
// from confirmed.
func (o *Orchestrator) CompletePayment(ctx context.Context, patientID string, pending *Pending, patientEmail, patientName string) (*notify.Notification, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.complete_payment")
	defer span.End()

	if pending == nil || pending.State != StateAwaitingPayment {
		return nil, ErrNoPendingBooking
	}
	span.SetAttributes(
		attribute.String("portal.appointment_id", pending.AppointmentID),
		attribute.String("portal.intent_id", pending.IntentID),
	)
	defer o.releaseLock(ctx, patientID)

	if _, err := o.gateway.ConfirmIntent(ctx, pending.IntentID, pending.AppointmentID); err != nil {
		span.RecordError(err)
		o.metrics.ObservePayment("declined")
		o.discard(ctx, pending.AppointmentID)
		n := o.notifyFailure(pending.AppointmentID, "Payment was not completed. Your card was not charged for this booking.")
		return n, fmt.Errorf("booking: payment confirmation: %w", err)
	}

	if err := o.backend.ConfirmAppointment(ctx, pending.AppointmentID, pending.IntentID); err != nil {
		span.RecordError(err)
		o.metrics.ObservePayment("confirm_error")
		n := o.notifyFailure(pending.AppointmentID, "Payment succeeded but the appointment could not be confirmed. Our staff will contact you.")
		return n, fmt.Errorf("booking: confirm appointment: %w", err)
	}

	o.metrics.ObservePayment("succeeded")
	pending.State = StateConfirmed

	var n *notify.Notification
	if o.notify != nil {
		n = o.notify.BookingConfirmed(ctx, notify.Confirmation{
			AppointmentID: pending.AppointmentID,
			PatientEmail:  patientEmail,
			PatientName:   patientName,
			DoctorName:    pending.DoctorName,
			ServiceName:   pending.ServiceName,
			Date:          pending.Date,
			Time:          pending.Time,
			Amount:        pending.Amount,
		})
	}
	return n, nil
}

// Cancel discards the temporary appointment after the patient closed the
// payment step. Selections are untouched so the patient can retry, and no
// notification fires.
func (o *Orchestrator) Cancel(ctx context.Context, patientID string, pending *Pending) error {
	ctx, span := bookingTracer.Start(ctx, "booking.cancel")
	defer span.End()

	if pending == nil || pending.State != StateAwaitingPayment {
		return ErrNoPendingBooking
	}
	span.SetAttributes(attribute.String("portal.appointment_id", pending.AppointmentID))
	defer o.releaseLock(ctx, patientID)

	o.metrics.ObservePayment("cancelled")
	o.discard(ctx, pending.AppointmentID)
	o.logger.Info("booking cancelled by patient",
		"patient_id", patientID,
		"appointment_id", pending.AppointmentID,
	)
	return nil
}

func (o *Orchestrator) discard(ctx context.Context, appointmentID string) {
	if err := o.backend.DiscardTemporaryAppointment(ctx, appointmentID); err != nil {
		// The backend expires orphaned temporary records; log and move on.
		o.logger.Error("discard temporary appointment failed", "error", err, "appointment_id", appointmentID)
	}
}

func (o *Orchestrator) releaseLock(ctx context.Context, patientID string) {
	if err := o.locks.ReleaseLock(ctx, patientID); err != nil {
		o.logger.Error("release submission lock failed", "error", err, "patient_id", patientID)
	}
}

func (o *Orchestrator) notifyFailure(appointmentID, message string) *notify.Notification {
	if o.notify == nil {
		return nil
	}
	return o.notify.BookingFailed(appointmentID, message)
}

func doctorDisplayName(d *ehr.Doctor) string {
	if d == nil {
		return ""
	}
	name := d.FirstName + " " + d.LastName
	if d.FirstName == "" {
		name = d.LastName
	}
	return "Dr. " + name
}
