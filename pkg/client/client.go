// Package client is the Go SDK for the ward inventory API. It makes
// one attempt per call with a fixed timeout and classifies failures
// so callers can distinguish validation problems, missing resources,
// auth failures, server faults and connectivity loss.
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

	"go.uber.org/zap"

	"github.com/carebridge/go-wardstock/pkg/tokenstore"
)

// DefaultTimeout bounds every request. There are no retries: a nurse
// resubmits from the form rather than the client guessing whether a
// write landed.
const DefaultTimeout = 30 * time.Second

// Patient mirrors the API's patient resource.
type Patient struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Ward      string `json:"ward"`
	Room      string `json:"room"`
	HN        string `json:"hn"`
}

// Medication mirrors the API's medication descriptor.
type Medication struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name"`
	Dose         string `json:"dose"`
	Unit         string `json:"unit"`
	Route        string `json:"route,omitempty"`
	Frequency    string `json:"frequency,omitempty"`
	Timing       string `json:"timing,omitempty"`
	Instructions string `json:"instructions,omitempty"`
	Expiry       string `json:"expiry,omitempty"`
	LotNumber    string `json:"lot_number,omitempty"`
}

// Course mirrors the API's course resource.
type Course struct {
	ID           string     `json:"id"`
	PatientID    string     `json:"patient_id"`
	Medication   Medication `json:"medication"`
	InitialStock int        `json:"initial_stock"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CourseSnapshot is a course with its derived stock.
type CourseSnapshot struct {
	Course       *Course `json:"course"`
	CurrentStock int     `json:"current_stock"`
	Status       string  `json:"status"`
}

// Transaction mirrors one ledger entry.
type Transaction struct {
	ID              string    `json:"id"`
	CourseID        string    `json:"course_id"`
	PatientID       string    `json:"patient_id"`
	MedicationID    string    `json:"medication_id"`
	Type            string    `json:"type"`
	Quantity        int       `json:"quantity"`
	TransactionTime time.Time `json:"transaction_time"`
	PerformedBy     string    `json:"performed_by"`
	Reason          string    `json:"reason,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	StockBefore     int       `json:"stock_before"`
	StockAfter      int       `json:"stock_after"`
}

// SubmitResult is the response to a dispense or return.
type SubmitResult struct {
	Transaction    *Transaction `json:"transaction"`
	CurrentStock   int          `json:"current_stock"`
	StockStatus    string       `json:"stock_status"`
	IdempotencyKey string       `json:"idempotency_key"`
}

// AddCourseRequest registers a new course.
type AddCourseRequest struct {
	Medication   Medication `json:"medication"`
	InitialStock int        `json:"initial_stock"`
	Status       string     `json:"status"`
}

// UpdateCourseRequest edits medication details and usage status.
type UpdateCourseRequest struct {
	Medication Medication `json:"medication"`
	Status     string     `json:"status"`
}

// SubmitRequest records a dispense or return.
type SubmitRequest struct {
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// PatientFilter narrows ListPatients; set fields are ANDed.
type PatientFilter struct {
	Ward   string
	Room   string
	Search string
}

// Client talks to the inventory API.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  tokenstore.Store
	logger  *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client. tokens supplies the bearer token for each
// request; a nil store means unauthenticated calls.
func New(baseURL string, tokens tokenstore.Store, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		tokens:  tokens,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListPatients fetches patients matching the filter.
func (c *Client) ListPatients(ctx context.Context, f PatientFilter) ([]Patient, error) {
	q := url.Values{}
	if f.Ward != "" {
		q.Set("ward", f.Ward)
	}
	if f.Room != "" {
		q.Set("room", f.Room)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	target := "/patients"
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	var patients []Patient
	if err := c.do(ctx, http.MethodGet, target, nil, &patients); err != nil {
		return nil, err
	}
	return patients, nil
}

// ListCourses fetches a patient's courses with derived stock.
func (c *Client) ListCourses(ctx context.Context, patientID string) ([]*CourseSnapshot, error) {
	var snaps []*CourseSnapshot
	if err := c.do(ctx, http.MethodGet, "/patients/"+url.PathEscape(patientID)+"/courses", nil, &snaps); err != nil {
		return nil, err
	}
	return snaps, nil
}

// AddCourse registers a course for a patient.
func (c *Client) AddCourse(ctx context.Context, patientID string, req AddCourseRequest) (*Course, error) {
	var course Course
	if err := c.do(ctx, http.MethodPost, "/patients/"+url.PathEscape(patientID)+"/courses", req, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

// GetCourse fetches one course with derived stock.
func (c *Client) GetCourse(ctx context.Context, courseID string) (*CourseSnapshot, error) {
	var snap CourseSnapshot
	if err := c.do(ctx, http.MethodGet, "/courses/"+url.PathEscape(courseID), nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// UpdateCourse edits a course. Initial stock cannot be changed.
func (c *Client) UpdateCourse(ctx context.Context, courseID string, req UpdateCourseRequest) (*Course, error) {
	var course Course
	if err := c.do(ctx, http.MethodPut, "/courses/"+url.PathEscape(courseID), req, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

// DeleteCourse removes a course. Its transactions remain on record.
func (c *Client) DeleteCourse(ctx context.Context, courseID string) error {
	return c.do(ctx, http.MethodDelete, "/courses/"+url.PathEscape(courseID), nil, nil)
}

// History fetches a course's transactions, oldest first.
func (c *Client) History(ctx context.Context, courseID string) ([]*Transaction, error) {
	var history []*Transaction
	if err := c.do(ctx, http.MethodGet, "/courses/"+url.PathEscape(courseID)+"/transactions", nil, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// Dispense records a dispense against a course.
func (c *Client) Dispense(ctx context.Context, courseID string, req SubmitRequest) (*SubmitResult, error) {
	var result SubmitResult
	if err := c.do(ctx, http.MethodPost, "/courses/"+url.PathEscape(courseID)+"/dispense", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Return records a return against a course.
func (c *Client) Return(ctx context.Context, courseID string, req SubmitRequest) (*SubmitResult, error) {
	var result SubmitResult
	if err := c.do(ctx, http.MethodPost, "/courses/"+url.PathEscape(courseID)+"/return", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.tokens != nil {
		token, err := c.tokens.Get(tokenstore.DefaultKey)
		if err == nil && token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &ConnectivityError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent {
			io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}

	return c.classify(resp, method, path)
}

// classify maps a non-2xx response to the error taxonomy.
func (c *Client) classify(resp *http.Response, method, path string) error {
	var body struct {
		Error string `json:"error"`
		Field string `json:"field"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	_ = json.Unmarshal(raw, &body)

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		return &ValidationError{Field: body.Field, Message: body.Error}
	case resp.StatusCode == http.StatusUnauthorized:
		// The stored token is no good; drop it so the next call
		// prompts a fresh sign-in instead of failing the same way.
		if c.tokens != nil {
			if err := c.tokens.Delete(tokenstore.DefaultKey); err != nil && !errors.Is(err, tokenstore.ErrNotFound) {
				c.logger.Warn("failed to clear stored token", zap.Error(err))
			}
		}
		return ErrNotAuthenticated
	case resp.StatusCode == http.StatusForbidden:
		return ErrAccessDenied
	case resp.StatusCode == http.StatusNotFound:
		c.logger.Debug("resource not found",
			zap.String("method", method),
			zap.String("path", path))
		return ErrNotFound
	case resp.StatusCode >= 500:
		return &ServerError{StatusCode: resp.StatusCode, Message: body.Error}
	default:
		return &ServerError{StatusCode: resp.StatusCode, Message: body.Error}
	}
}
