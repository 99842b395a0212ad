package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/oakwell/portal-api/internal/session"
)

func TestRateLimitPerPatient(t *testing.T) {
	mw := RateLimit(0.0001, 1)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	request := func(patientID string) int {
		req := httptest.NewRequest(http.MethodPost, "/portal/booking/submit", nil)
		req = req.WithContext(session.WithPatient(req.Context(), &session.Patient{ID: patientID}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := request("pat_1"); code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", code)
	}
	if code := request("pat_1"); code != http.StatusTooManyRequests {
		t.Fatalf("second request should be limited, got %d", code)
	}
	// A different patient has their own bucket.
	if code := request("pat_2"); code != http.StatusOK {
		t.Fatalf("other patient should pass, got %d", code)
	}
}
