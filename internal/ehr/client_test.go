package ehr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDoctorServices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/services/doctor/doc_1" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"id": "svc_1", "doctorId": "doc_1", "name": "General Consult", "basePrice": "100", "duration": 30},
		})
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "key", nil)
	services, err := c.DoctorServices(context.Background(), "doc_1")
	if err != nil {
		t.Fatalf("DoctorServices error: %v", err)
	}
	if len(services) != 1 || services[0].ID != "svc_1" || services[0].DurationMinutes != 30 {
		t.Fatalf("unexpected services: %+v", services)
	}
}

func TestAvailabilityQueryParams(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("date") != "2025-06-10" || q.Get("serviceId") != "svc_1" {
			t.Fatalf("unexpected query: %s", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"schedules": []map[string]any{
				{"id": "sched_1", "doctorId": "doc_1", "date": "2025-06-10"},
			},
			"availableSlots": []map[string]any{},
		})
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "", nil)
	avail, err := c.Availability(context.Background(), "doc_1", "2025-06-10", "svc_1")
	if err != nil {
		t.Fatalf("Availability error: %v", err)
	}
	if len(avail.Schedules) != 1 || avail.Schedules[0].ID != "sched_1" {
		t.Fatalf("unexpected availability: %+v", avail)
	}
}

func TestCreateTemporaryAppointment(t *testing.T) {
	var got TemporaryAppointmentRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/appointments/temporary" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "appt_1"})
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "", nil)
	id, err := c.CreateTemporaryAppointment(context.Background(), TemporaryAppointmentRequest{
		PatientID:       "pat_1",
		DoctorID:        "doc_1",
		SlotID:          "slot_1",
		AppointmentTime: "09:30",
		Amount:          "130.00",
	})
	if err != nil {
		t.Fatalf("CreateTemporaryAppointment error: %v", err)
	}
	if id != "appt_1" {
		t.Fatalf("unexpected id %s", id)
	}
	if got.AppointmentTime != "09:30" || got.Amount != "130.00" {
		t.Fatalf("request body mismatch: %+v", got)
	}
}

func TestBackendErrorMessageSurfaced(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "slot no longer available"})
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "", nil)
	_, err := c.CreateTemporaryAppointment(context.Background(), TemporaryAppointmentRequest{})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusConflict || apiErr.Message != "slot no longer available" {
		t.Fatalf("unexpected APIError: %+v", apiErr)
	}
}

func TestDiscardTemporaryAppointment(t *testing.T) {
	called := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if r.Method != http.MethodDelete || r.URL.Path != "/appointments/temporary/appt_1" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "", nil)
	if err := c.DiscardTemporaryAppointment(context.Background(), "appt_1"); err != nil {
		t.Fatalf("DiscardTemporaryAppointment error: %v", err)
	}
	if !called {
		t.Fatal("expected backend call")
	}
}
