// Package session resolves the logged-in patient's identity from bearer
// tokens. The portal never lets the client supply a patient id directly.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const patientKey contextKey = "patient"

// ErrInvalidToken is returned for missing, malformed, or unverifiable tokens.
var ErrInvalidToken = errors.New("session: invalid token")

// Patient is the identity carried by a portal session token.
type Patient struct {
	ID    string
	Name  string
	Email string
}

type patientClaims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// ParseToken verifies an HMAC-signed portal token and extracts the patient.
// The patient id is the token subject.
func ParseToken(secret, tokenString string) (*Patient, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: no signing secret configured", ErrInvalidToken)
	}
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	claims := &patientClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return &Patient{ID: claims.Subject, Name: claims.Name, Email: claims.Email}, nil
}

// FromBearerHeader parses the Authorization header value.
func FromBearerHeader(secret, header string) (*Patient, error) {
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, fmt.Errorf("%w: missing bearer prefix", ErrInvalidToken)
	}
	return ParseToken(secret, strings.TrimPrefix(header, "Bearer "))
}

// WithPatient stores the patient identity on the context.
func WithPatient(ctx context.Context, p *Patient) context.Context {
	return context.WithValue(ctx, patientKey, p)
}

// PatientFromContext returns the patient identity, if any.
func PatientFromContext(ctx context.Context) (*Patient, bool) {
	p, ok := ctx.Value(patientKey).(*Patient)
	return p, ok && p != nil
}
