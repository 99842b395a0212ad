// Package payments talks to the hosted payment gateway. The gateway's card
// entry widget runs client-side; this service only creates payment intents
// and performs the server-side confirmation.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/oakwell/portal-api/pkg/logging"
)

var paymentsTracer = otel.Tracer("portal.internal.payments")

// ErrDeclined marks a terminal gateway decline, distinct from transport errors.
var ErrDeclined = errors.New("payments: declined")

// Intent is a gateway payment intent.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	AmountCents  int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// CreateIntentParams describes the charge for one temporary appointment.
type CreateIntentParams struct {
	AppointmentID string
	AmountCents   int64
	Currency      string
}

// Client is the payment gateway API client.
type Client struct {
	baseURL    string
	secretKey  string
	currency   string
	httpClient *http.Client
	logger     *logging.Logger
	dryRun     bool
}

// NewClient creates a payment gateway client.
func NewClient(baseURL, secretKey, currency string, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	if currency == "" {
		currency = "usd"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		currency:   currency,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// WithBaseURL overrides the gateway base URL (for testing).
func (c *Client) WithBaseURL(baseURL string) *Client {
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

// WithDryRun enables dry-run mode: intents succeed locally without calling
// the gateway. Used in development and demo environments.
func (c *Client) WithDryRun(enabled bool) *Client {
	c.dryRun = enabled
	return c
}

// CreateIntent creates a payment intent for a temporary appointment.
func (c *Client) CreateIntent(ctx context.Context, params CreateIntentParams) (*Intent, error) {
	ctx, span := paymentsTracer.Start(ctx, "payments.create_intent")
	defer span.End()
	span.SetAttributes(
		attribute.String("portal.appointment_id", params.AppointmentID),
		attribute.Int64("portal.amount_cents", params.AmountCents),
	)

	if params.AppointmentID == "" {
		return nil, errors.New("payments: appointment id required")
	}
	if params.AmountCents <= 0 {
		return nil, fmt.Errorf("payments: invalid amount %d", params.AmountCents)
	}

	currency := params.Currency
	if currency == "" {
		currency = c.currency
	}

	if c.dryRun {
		fakeID := "pi_dryrun_" + uuid.New().String()[:8]
		c.logger.Info("payments dry run: skipping intent creation",
			"appointment_id", params.AppointmentID, "amount_cents", params.AmountCents)
		return &Intent{
			ID:           fakeID,
			ClientSecret: fakeID + "_secret",
			Status:       "requires_confirmation",
			AmountCents:  params.AmountCents,
			Currency:     currency,
		}, nil
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(params.AmountCents, 10))
	form.Set("currency", currency)
	form.Set("metadata[appointment_id]", params.AppointmentID)

	intent, err := c.post(ctx, "/v1/payment_intents", form)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	c.logger.Info("payment intent created",
		"intent_id", intent.ID,
		"appointment_id", params.AppointmentID,
		"amount_cents", params.AmountCents,
	)
	return intent, nil
}

// ConfirmIntent performs the server-side confirmation for an intent after the
// client-side card step. A gateway decline returns ErrDeclined.
func (c *Client) ConfirmIntent(ctx context.Context, intentID, appointmentID string) (*Intent, error) {
	ctx, span := paymentsTracer.Start(ctx, "payments.confirm_intent")
	defer span.End()
	span.SetAttributes(
		attribute.String("portal.intent_id", intentID),
		attribute.String("portal.appointment_id", appointmentID),
	)

	if intentID == "" {
		return nil, errors.New("payments: intent id required")
	}

	if c.dryRun {
		c.logger.Info("payments dry run: confirming intent locally", "intent_id", intentID)
		return &Intent{ID: intentID, Status: "succeeded"}, nil
	}

	form := url.Values{}
	form.Set("metadata[appointment_id]", appointmentID)

	intent, err := c.post(ctx, "/v1/payment_intents/"+url.PathEscape(intentID)+"/confirm", form)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if intent.Status != "succeeded" {
		c.logger.Warn("payment intent not succeeded", "intent_id", intentID, "status", intent.Status)
		return intent, fmt.Errorf("payments: intent %s status %s: %w", intentID, intent.Status, ErrDeclined)
	}
	return intent, nil
}

func (c *Client) post(ctx context.Context, path string, form url.Values) (*Intent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("payments: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payments: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("payments: read response: %w", err)
	}

	if resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("payments: gateway status %d: %w", resp.StatusCode, ErrDeclined)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var gwErr struct {
			Error struct {
				Message string `json:"message"`
				Code    string `json:"code"`
			} `json:"error"`
		}
		_ = json.Unmarshal(data, &gwErr)
		if gwErr.Error.Code == "card_declined" {
			return nil, fmt.Errorf("payments: %s: %w", gwErr.Error.Message, ErrDeclined)
		}
		return nil, fmt.Errorf("payments: gateway status %d: %s", resp.StatusCode, gwErr.Error.Message)
	}

	var intent Intent
	if err := json.Unmarshal(data, &intent); err != nil {
		return nil, fmt.Errorf("payments: decode response: %w", err)
	}
	return &intent, nil
}
