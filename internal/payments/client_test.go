package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateIntent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payment_intents" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("amount") != "13000" {
			t.Fatalf("unexpected amount %s", r.PostForm.Get("amount"))
		}
		if r.PostForm.Get("metadata[appointment_id]") != "appt_1" {
			t.Fatalf("unexpected metadata %v", r.PostForm)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "pi_1", "client_secret": "pi_1_secret", "status": "requires_confirmation", "amount": 13000,
		})
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "sk_test", "usd", nil)
	intent, err := c.CreateIntent(context.Background(), CreateIntentParams{
		AppointmentID: "appt_1",
		AmountCents:   13000,
	})
	if err != nil {
		t.Fatalf("CreateIntent error: %v", err)
	}
	if intent.ID != "pi_1" || intent.ClientSecret != "pi_1_secret" {
		t.Fatalf("unexpected intent: %+v", intent)
	}
}

func TestCreateIntentRejectsBadAmount(t *testing.T) {
	c := NewClient("http://gateway.invalid", "sk_test", "usd", nil)
	if _, err := c.CreateIntent(context.Background(), CreateIntentParams{AppointmentID: "appt_1", AmountCents: 0}); err == nil {
		t.Fatal("expected error for zero amount")
	}
}

func TestConfirmIntentSucceeded(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payment_intents/pi_1/confirm" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "pi_1", "status": "succeeded"})
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "sk_test", "usd", nil)
	intent, err := c.ConfirmIntent(context.Background(), "pi_1", "appt_1")
	if err != nil {
		t.Fatalf("ConfirmIntent error: %v", err)
	}
	if intent.Status != "succeeded" {
		t.Fatalf("unexpected status %s", intent.Status)
	}
}

func TestConfirmIntentDeclined(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"code": "card_declined", "message": "Your card was declined."},
		})
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "sk_test", "usd", nil)
	_, err := c.ConfirmIntent(context.Background(), "pi_1", "appt_1")
	if !errors.Is(err, ErrDeclined) {
		t.Fatalf("expected ErrDeclined, got %v", err)
	}
}

func TestConfirmIntentNonSucceededStatusIsDecline(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "pi_1", "status": "requires_payment_method"})
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "sk_test", "usd", nil)
	_, err := c.ConfirmIntent(context.Background(), "pi_1", "appt_1")
	if !errors.Is(err, ErrDeclined) {
		t.Fatalf("expected ErrDeclined, got %v", err)
	}
}

func TestDryRunSkipsGateway(t *testing.T) {
	c := NewClient("http://gateway.invalid", "sk_test", "usd", nil).WithDryRun(true)

	intent, err := c.CreateIntent(context.Background(), CreateIntentParams{AppointmentID: "appt_1", AmountCents: 5000})
	if err != nil {
		t.Fatalf("CreateIntent dry-run error: %v", err)
	}
	if intent.ClientSecret == "" {
		t.Fatal("expected dry-run client secret")
	}

	confirmed, err := c.ConfirmIntent(context.Background(), intent.ID, "appt_1")
	if err != nil {
		t.Fatalf("ConfirmIntent dry-run error: %v", err)
	}
	if confirmed.Status != "succeeded" {
		t.Fatalf("unexpected dry-run status %s", confirmed.Status)
	}
}
