// Package ehr provides a REST client for the practice's external EHR backend.
// The backend owns all durable state (doctors, services, schedules, slots,
// appointments); this service only consumes its documented contracts.
package ehr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oakwell/portal-api/pkg/logging"
)

const defaultTimeout = 15 * time.Second

// APIError carries the backend's status and message so handlers can surface
// the backend-provided message verbatim when one exists.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ehr: backend returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("ehr: backend returned %d", e.StatusCode)
}

// Client is the EHR backend REST client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (tests, custom timeouts).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// NewClient creates an EHR backend client.
func NewClient(baseURL, apiKey string, logger *logging.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Doctors returns the practice's doctors.
func (c *Client) Doctors(ctx context.Context) ([]Doctor, error) {
	var out []Doctor
	if err := c.get(ctx, "/doctors", nil, &out); err != nil {
		return nil, fmt.Errorf("ehr: list doctors: %w", err)
	}
	return out, nil
}

// PrimaryServices returns the billing-level service categories.
func (c *Client) PrimaryServices(ctx context.Context) ([]PrimaryService, error) {
	var out []PrimaryService
	if err := c.get(ctx, "/services/primary", nil, &out); err != nil {
		return nil, fmt.Errorf("ehr: list primary services: %w", err)
	}
	return out, nil
}

// DoctorServices returns the medical services offered by one doctor.
func (c *Client) DoctorServices(ctx context.Context, doctorID string) ([]MedicalService, error) {
	var out []MedicalService
	if err := c.get(ctx, "/services/doctor/"+url.PathEscape(doctorID), nil, &out); err != nil {
		return nil, fmt.Errorf("ehr: list services for doctor %s: %w", doctorID, err)
	}
	return out, nil
}

// Availability returns schedules and any already-materialized slots for a
// doctor on a date. serviceID is optional.
func (c *Client) Availability(ctx context.Context, doctorID, date, serviceID string) (*Availability, error) {
	q := url.Values{"date": {date}}
	if serviceID != "" {
		q.Set("serviceId", serviceID)
	}
	var out Availability
	if err := c.get(ctx, "/doctors/"+url.PathEscape(doctorID)+"/availability", q, &out); err != nil {
		return nil, fmt.Errorf("ehr: availability for doctor %s on %s: %w", doctorID, date, err)
	}
	return &out, nil
}

// ScheduleSlots fetches (materializing if needed) the slots of one schedule.
func (c *Client) ScheduleSlots(ctx context.Context, scheduleID string) ([]Slot, error) {
	q := url.Values{"scheduleId": {scheduleID}}
	var out []Slot
	if err := c.get(ctx, "/schedules/slots/multiple", q, &out); err != nil {
		return nil, fmt.Errorf("ehr: slots for schedule %s: %w", scheduleID, err)
	}
	return out, nil
}

// CreateTemporaryAppointment creates an unconfirmed appointment and returns its id.
func (c *Client) CreateTemporaryAppointment(ctx context.Context, req TemporaryAppointmentRequest) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/appointments/temporary", nil, req, &out); err != nil {
		return "", fmt.Errorf("ehr: create temporary appointment: %w", err)
	}
	return out.ID, nil
}

// ConfirmAppointment promotes a temporary appointment after a successful payment.
func (c *Client) ConfirmAppointment(ctx context.Context, appointmentID, paymentIntentID string) error {
	body := map[string]string{"paymentIntentId": paymentIntentID}
	path := "/appointments/" + url.PathEscape(appointmentID) + "/confirm"
	if err := c.do(ctx, http.MethodPost, path, nil, body, nil); err != nil {
		return fmt.Errorf("ehr: confirm appointment %s: %w", appointmentID, err)
	}
	return nil
}

// DiscardTemporaryAppointment deletes an unconfirmed appointment so its slot
// returns to the available pool.
func (c *Client) DiscardTemporaryAppointment(ctx context.Context, appointmentID string) error {
	path := "/appointments/temporary/" + url.PathEscape(appointmentID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		return fmt.Errorf("ehr: discard temporary appointment %s: %w", appointmentID, err)
	}
	return nil
}

// PatientAppointments returns a patient's appointment history.
func (c *Client) PatientAppointments(ctx context.Context, patientID string) ([]Appointment, error) {
	var out []Appointment
	if err := c.get(ctx, "/appointments/patient/"+url.PathEscape(patientID), nil, &out); err != nil {
		return nil, fmt.Errorf("ehr: appointments for patient %s: %w", patientID, err)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var msg struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if err := json.Unmarshal(data, &msg); err == nil {
			if msg.Message != "" {
				apiErr.Message = msg.Message
			} else if msg.Error != "" {
				apiErr.Message = msg.Error
			}
		}
		c.logger.Warn("ehr request failed",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"message", apiErr.Message,
		)
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
