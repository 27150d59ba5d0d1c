// Package client is the typed HTTP client for the appointments endpoint.
// Every call is exactly one round trip; resilience is the caller's job.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wolfman30/medipulse/internal/appointments"
	"github.com/wolfman30/medipulse/pkg/logging"
)

const (
	defaultTimeout   = 20 * time.Second
	appointmentsPath = "/api/appointments"
	maxErrorBody     = 300
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("client: status %d: %s", e.Code, e.Body)
}

// Permanent reports whether repeating the request cannot succeed.
func (e *StatusError) Permanent() bool {
	if e.Code == http.StatusRequestTimeout || e.Code == http.StatusTooManyRequests {
		return false
	}
	return e.Code >= 400 && e.Code < 500
}

// IsPermanent reports whether err is a StatusError that will not go away on
// retry.
func IsPermanent(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Permanent()
}

// SyncRequest is a broad sync. The server ignores Appointments.
type SyncRequest struct {
	Appointments []appointments.Appointment `json:"appointments,omitempty"`
	Doctors      []appointments.Doctor      `json:"doctors,omitempty"`
}

// Client talks to the appointments endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	header     http.Header
	logger     *logging.Logger
}

// New builds a client for the service rooted at baseURL.
func New(baseURL string, logger *logging.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("client: invalid base url %q", baseURL)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		endpoint:   u.String() + appointmentsPath,
		httpClient: &http.Client{Timeout: defaultTimeout},
		header:     http.Header{},
		logger:     logger,
	}, nil
}

// WithHTTPClient swaps the transport.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// WithBearerToken sends token on every request.
func (c *Client) WithBearerToken(token string) *Client {
	if token = strings.TrimSpace(token); token != "" {
		c.header.Set("Authorization", "Bearer "+token)
	}
	return c
}

// EventsURL is the websocket address of the change feed.
func (c *Client) EventsURL() string {
	u := c.endpoint + "/events"
	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

// Header returns the headers sent with every request.
func (c *Client) Header() http.Header {
	return c.header.Clone()
}

// FetchAppointments returns the server's appointment collection.
func (c *Client) FetchAppointments(ctx context.Context) ([]appointments.Appointment, error) {
	var out []appointments.Appointment
	if err := c.do(ctx, http.MethodGet, c.endpoint, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchDoctors returns the server's doctor collection.
func (c *Client) FetchDoctors(ctx context.Context) ([]appointments.Doctor, error) {
	var out []appointments.Doctor
	if err := c.do(ctx, http.MethodGet, c.endpoint+"?type=doctors", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type mutationRequest struct {
	Action        string `json:"action"`
	Appointment   any    `json:"appointment,omitempty"`
	AppointmentID string `json:"appointmentId,omitempty"`
}

type mutationResponse struct {
	Success      bool                       `json:"success"`
	Message      string                     `json:"message"`
	Appointments []appointments.Appointment `json:"appointments"`
}

// BookAppointment adds apt and returns the resulting collection.
func (c *Client) BookAppointment(ctx context.Context, apt appointments.Appointment) ([]appointments.Appointment, error) {
	return c.mutate(ctx, mutationRequest{Action: "add", Appointment: apt})
}

// UpdateAppointment merges p into the stored record.
func (c *Client) UpdateAppointment(ctx context.Context, p appointments.Patch) ([]appointments.Appointment, error) {
	return c.mutate(ctx, mutationRequest{Action: "update", Appointment: p})
}

// DeleteAppointment removes the record with id.
func (c *Client) DeleteAppointment(ctx context.Context, id string) ([]appointments.Appointment, error) {
	return c.mutate(ctx, mutationRequest{Action: "delete", AppointmentID: id})
}

// SyncData performs a broad sync.
func (c *Client) SyncData(ctx context.Context, req SyncRequest) error {
	var out struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	return c.do(ctx, http.MethodPost, c.endpoint, req, &out)
}

func (c *Client) mutate(ctx context.Context, req mutationRequest) ([]appointments.Appointment, error) {
	var out mutationResponse
	if err := c.do(ctx, http.MethodPost, c.endpoint, req, &out); err != nil {
		return nil, err
	}
	return out.Appointments, nil
}

func (c *Client) do(ctx context.Context, method, target string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("client: marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("client: create request: %w", err)
	}
	for k, v := range c.header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("client: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(respBody))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		c.logger.Debug("request rejected", "method", method, "status", resp.StatusCode)
		return &StatusError{Code: resp.StatusCode, Body: msg}
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("client: unmarshal response: %w", err)
	}
	return nil
}
