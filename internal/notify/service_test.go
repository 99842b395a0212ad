package notify

import (
	"context"
	"testing"
)

type recordingSender struct {
	sent []EmailMessage
	err  error
}

func (r *recordingSender) Send(ctx context.Context, msg EmailMessage) error {
	r.sent = append(r.sent, msg)
	return r.err
}

func TestBookingConfirmedFiresOnce(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(sender, nil)
	conf := Confirmation{
		AppointmentID: "appt_1",
		PatientEmail:  "pat@example.com",
		DoctorName:    "Dr. Reyes",
		ServiceName:   "General Consult",
		Date:          "2025-06-10",
		Time:          "09:00",
		Amount:        "130.00",
	}

	first := svc.BookingConfirmed(context.Background(), conf)
	if first == nil || first.Kind != "success" {
		t.Fatalf("expected success notification, got %+v", first)
	}

	if again := svc.BookingConfirmed(context.Background(), conf); again != nil {
		t.Fatalf("duplicate confirmation must not notify again, got %+v", again)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected exactly one email, got %d", len(sender.sent))
	}
}

func TestBookingFailedDeduplicates(t *testing.T) {
	svc := NewService(nil, nil)

	first := svc.BookingFailed("appt_1", "slot no longer available")
	if first == nil || first.Kind != "error" || first.Message != "slot no longer available" {
		t.Fatalf("expected error notification, got %+v", first)
	}
	if again := svc.BookingFailed("appt_1", "slot no longer available"); again != nil {
		t.Fatalf("repeated failure must not stack notifications, got %+v", again)
	}

	// A different failure for the same appointment is a new notification.
	if other := svc.BookingFailed("appt_1", "card declined"); other == nil {
		t.Fatal("distinct failure must notify")
	}
}

func TestEmailFailureDoesNotSuppressNotification(t *testing.T) {
	sender := &recordingSender{err: context.DeadlineExceeded}
	svc := NewService(sender, nil)

	n := svc.BookingConfirmed(context.Background(), Confirmation{
		AppointmentID: "appt_2",
		PatientEmail:  "pat@example.com",
	})
	if n == nil || n.Kind != "success" {
		t.Fatalf("email failure must not suppress the success notification, got %+v", n)
	}
}
