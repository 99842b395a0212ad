package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret, subject string, expires time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   subject,
		"name":  "Pat Doe",
		"email": "pat@example.com",
		"exp":   expires.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestParseTokenValid(t *testing.T) {
	token := signToken(t, "secret", "pat_1", time.Now().Add(time.Hour))

	p, err := ParseToken("secret", token)
	if err != nil {
		t.Fatalf("ParseToken error: %v", err)
	}
	if p.ID != "pat_1" || p.Email != "pat@example.com" {
		t.Fatalf("unexpected patient: %+v", p)
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	token := signToken(t, "secret", "pat_1", time.Now().Add(time.Hour))

	if _, err := ParseToken("other-secret", token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseTokenExpired(t *testing.T) {
	token := signToken(t, "secret", "pat_1", time.Now().Add(-time.Hour))

	if _, err := ParseToken("secret", token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestFromBearerHeader(t *testing.T) {
	token := signToken(t, "secret", "pat_1", time.Now().Add(time.Hour))

	p, err := FromBearerHeader("secret", "Bearer "+token)
	if err != nil {
		t.Fatalf("FromBearerHeader error: %v", err)
	}
	if p.ID != "pat_1" {
		t.Fatalf("unexpected patient: %+v", p)
	}

	if _, err := FromBearerHeader("secret", token); !errors.Is(err, ErrInvalidToken) {
		t.Fatal("expected bearer prefix to be required")
	}
}

func TestPatientContextRoundTrip(t *testing.T) {
	ctx := WithPatient(context.Background(), &Patient{ID: "pat_1"})
	p, ok := PatientFromContext(ctx)
	if !ok || p.ID != "pat_1" {
		t.Fatalf("patient not round-tripped: %+v %v", p, ok)
	}

	if _, ok := PatientFromContext(context.Background()); ok {
		t.Fatal("empty context must not carry a patient")
	}
}
