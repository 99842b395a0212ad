// Package notify surfaces booking outcomes to the patient. Each outcome for a
// given appointment produces exactly one notification, no matter how many
// times the caller reports it.
package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/oakwell/portal-api/pkg/logging"
)

// Notification is a user-visible outcome message.
type Notification struct {
	Kind          string `json:"kind"` // success | error
	AppointmentID string `json:"appointmentId,omitempty"`
	Message       string `json:"message"`
}

// Service deduplicates outcome notifications and sends confirmation emails.
type Service struct {
	email  EmailSender
	logger *logging.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewService creates a notification service. email may be nil.
func NewService(email EmailSender, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		email:  email,
		logger: logger,
		seen:   make(map[string]struct{}),
	}
}

// Confirmation describes a confirmed booking for the success notification.
type Confirmation struct {
	AppointmentID string
	PatientEmail  string
	PatientName   string
	DoctorName    string
	ServiceName   string
	Date          string
	Time          string
	Amount        string
}

// BookingConfirmed emits the success notification for a confirmed booking.
// Returns nil and does nothing when this confirmation was already reported.
// The confirmation email is best effort and never fails the booking.
func (s *Service) BookingConfirmed(ctx context.Context, c Confirmation) *Notification {
	if !s.first("success:" + c.AppointmentID) {
		return nil
	}

	s.logger.Info("booking confirmed",
		"appointment_id", c.AppointmentID,
		"doctor", c.DoctorName,
		"date", c.Date,
		"time", c.Time,
	)

	if s.email != nil && c.PatientEmail != "" {
		msg := EmailMessage{
			To:      c.PatientEmail,
			ToName:  c.PatientName,
			Subject: "Your appointment is confirmed",
			Body: fmt.Sprintf(
				"Your appointment with %s for %s on %s at %s is confirmed. Amount paid: $%s.",
				c.DoctorName, c.ServiceName, c.Date, c.Time, c.Amount,
			),
		}
		if err := s.email.Send(ctx, msg); err != nil {
			s.logger.Error("confirmation email failed", "error", err, "appointment_id", c.AppointmentID)
		}
	}

	return &Notification{
		Kind:          "success",
		AppointmentID: c.AppointmentID,
		Message:       "Your appointment has been booked.",
	}
}

// BookingFailed emits the error notification for a failed booking attempt.
// Repeated reports of the same failure are collapsed into one notification.
func (s *Service) BookingFailed(appointmentID, message string) *Notification {
	key := "error:" + appointmentID + ":" + message
	if !s.first(key) {
		return nil
	}
	s.logger.Warn("booking failed", "appointment_id", appointmentID, "reason", message)
	return &Notification{
		Kind:          "error",
		AppointmentID: appointmentID,
		Message:       message,
	}
}

func (s *Service) first(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}
