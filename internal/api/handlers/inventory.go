// Package handlers provides HTTP handlers for the inventory API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/carebridge/go-wardstock/internal/api/middleware"
	"github.com/carebridge/go-wardstock/internal/domain/inventory"
	"github.com/carebridge/go-wardstock/internal/observability/metrics"
	"github.com/carebridge/go-wardstock/pkg/idempotency"
)

// InventoryHandler handles patient, course and transaction endpoints.
type InventoryHandler struct {
	svc     *inventory.Service
	metrics *metrics.Metrics
	inbox   *idempotency.Inbox
	logger  *zap.Logger
}

// NewInventoryHandler creates a new handler. metrics may be nil in
// tests.
func NewInventoryHandler(svc *inventory.Service, m *metrics.Metrics, logger *zap.Logger) *InventoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryHandler{svc: svc, metrics: m, logger: logger}
}

// SetInbox attaches submission deduplication. Without an inbox, a
// double-submitted form records twice.
func (h *InventoryHandler) SetInbox(inbox *idempotency.Inbox) {
	h.inbox = inbox
}

// Routes returns the handler routes.
func (h *InventoryHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/patients", h.ListPatients)
	r.Post("/patients", h.AdmitPatient)
	r.Get("/patients/{id}/courses", h.ListCourses)
	r.Post("/patients/{id}/courses", h.AddCourse)
	r.Get("/courses/{id}", h.GetCourse)
	r.Put("/courses/{id}", h.UpdateCourse)
	r.Delete("/courses/{id}", h.DeleteCourse)
	r.Get("/courses/{id}/transactions", h.GetHistory)
	r.Post("/courses/{id}/dispense", h.Dispense)
	r.Post("/courses/{id}/return", h.Return)
	return r
}

// ListPatients handles GET /patients with optional ward, room and
// search query parameters; filters are conjunctive.
func (h *InventoryHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	patients := h.svc.Directory().Patients(inventory.PatientFilter{
		Ward:   q.Get("ward"),
		Room:   q.Get("room"),
		Search: q.Get("search"),
	})
	h.writeJSON(w, http.StatusOK, patients)
}

// AdmitPatientRequest is the request body for admitting a patient.
type AdmitPatientRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Ward      string `json:"ward"`
	Room      string `json:"room"`
	HN        string `json:"hn"`
}

// AdmitPatient handles POST /patients.
func (h *InventoryHandler) AdmitPatient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req AdmitPatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.FirstName == "" && req.LastName == "" {
		h.writeError(w, r, &inventory.ValidationError{Field: "first_name", Message: "a patient name is required"})
		return
	}

	p, err := h.svc.AddPatient(ctx, inventory.Patient{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Ward:      req.Ward,
		Room:      req.Room,
		HN:        req.HN,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("patient admitted",
		zap.String("patient_id", p.ID),
		zap.String("ward", p.Ward),
		zap.String("request_id", middleware.GetRequestID(ctx)))

	h.writeJSON(w, http.StatusCreated, p)
}

// ListCourses handles GET /patients/{id}/courses, returning each
// course with its derived stock and status.
func (h *InventoryHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "id")
	if _, err := h.svc.Directory().Patient(patientID); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.svc.SnapshotsFor(patientID))
}

// AddCourseRequest is the request body for registering a course.
type AddCourseRequest struct {
	Medication   inventory.Medication  `json:"medication"`
	InitialStock int                   `json:"initial_stock"`
	Status       inventory.UsageStatus `json:"status"`
}

// AddCourse handles POST /patients/{id}/courses. No transaction is
// recorded for the initial allocation.
func (h *InventoryHandler) AddCourse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("inventory-handler")
	_, span := tracer.Start(ctx, "add_course")
	defer span.End()

	var req AddCourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	course, err := h.svc.AddCourse(ctx, chi.URLParam(r, "id"), req.Medication, req.InitialStock, req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	span.SetAttributes(attribute.String("course_id", course.ID))

	h.logger.Info("course added",
		zap.String("course_id", course.ID),
		zap.String("patient_id", course.PatientID),
		zap.Int("initial_stock", course.InitialStock),
		zap.String("request_id", middleware.GetRequestID(ctx)))

	h.writeJSON(w, http.StatusCreated, course)
}

// GetCourse handles GET /courses/{id}.
func (h *InventoryHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Snapshot(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

// UpdateCourseRequest is the request body for editing a course.
// Initial stock is not part of the payload: it cannot be edited.
type UpdateCourseRequest struct {
	Medication inventory.Medication  `json:"medication"`
	Status     inventory.UsageStatus `json:"status"`
}

// UpdateCourse handles PUT /courses/{id}.
func (h *InventoryHandler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	var req UpdateCourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	course, err := h.svc.UpdateCourse(r.Context(), chi.URLParam(r, "id"), req.Medication, req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, course)
}

// DeleteCourse handles DELETE /courses/{id}. Recorded transactions
// survive deletion; only the course goes away.
func (h *InventoryHandler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveCourse(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetHistory handles GET /courses/{id}/transactions.
func (h *InventoryHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.svc.History(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if history == nil {
		history = []*inventory.Transaction{}
	}
	h.writeJSON(w, http.StatusOK, history)
}

// SubmitRequest is the request body for dispense and return.
type SubmitRequest struct {
	Quantity int                    `json:"quantity"`
	Reason   inventory.ReturnReason `json:"reason,omitempty"`
	Notes    string                 `json:"notes,omitempty"`
}

// SubmitResponse is the response for a recorded transaction.
type SubmitResponse struct {
	Transaction    *inventory.Transaction `json:"transaction"`
	CurrentStock   int                    `json:"current_stock"`
	StockStatus    inventory.StockStatus  `json:"stock_status"`
	IdempotencyKey string                 `json:"idempotency_key"`
}

// Dispense handles POST /courses/{id}/dispense.
func (h *InventoryHandler) Dispense(w http.ResponseWriter, r *http.Request) {
	h.handleSubmit(w, r, inventory.TransactionDispense)
}

// Return handles POST /courses/{id}/return.
func (h *InventoryHandler) Return(w http.ResponseWriter, r *http.Request) {
	h.handleSubmit(w, r, inventory.TransactionReturn)
}

func (h *InventoryHandler) handleSubmit(w http.ResponseWriter, r *http.Request, txType inventory.TransactionType) {
	ctx := r.Context()
	tracer := otel.Tracer("inventory-handler")
	ctx, span := tracer.Start(ctx, strings.ToLower(string(txType)))
	defer span.End()

	courseID := chi.URLParam(r, "id")
	span.SetAttributes(attribute.String("course_id", courseID))

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	performer := middleware.GetSubject(ctx)
	key := idempotency.GenerateKey(performer, courseID, string(txType), req.Quantity, string(req.Reason), time.Now().UTC())

	submit := func(ctx context.Context) (SubmitResponse, error) {
		start := time.Now()
		var tx *inventory.Transaction
		var err error
		if txType == inventory.TransactionDispense {
			tx, err = h.svc.Dispense(ctx, inventory.DispenseRequest{
				CourseID:    courseID,
				Quantity:    req.Quantity,
				PerformedBy: performer,
				Notes:       req.Notes,
			})
		} else {
			tx, err = h.svc.Return(ctx, inventory.ReturnRequest{
				CourseID:    courseID,
				Quantity:    req.Quantity,
				Reason:      req.Reason,
				PerformedBy: performer,
				Notes:       req.Notes,
			})
		}
		if err != nil {
			return SubmitResponse{}, err
		}
		h.observeSubmission(tx, start)
		return h.submitResponse(tx, key), nil
	}

	if h.inbox == nil {
		resp, err := submit(ctx)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeJSON(w, http.StatusCreated, resp)
		return
	}

	result, err := h.inbox.Process(ctx, key, "submit_"+strings.ToLower(string(txType)), nil,
		func(ctx context.Context, _ json.RawMessage) (json.RawMessage, error) {
			resp, err := submit(ctx)
			if err != nil {
				return nil, err
			}
			return json.Marshal(resp)
		})
	switch {
	case err == nil && result.IsNew:
		h.writeRaw(w, http.StatusCreated, result.Result)
	case err == nil:
		// Duplicate of a finished submission: replay the original
		// response instead of recording twice.
		span.SetAttributes(attribute.Bool("duplicate", true))
		h.writeRaw(w, http.StatusOK, result.Result)
	case errors.Is(err, idempotency.ErrSubmissionInProgress),
		errors.Is(err, idempotency.ErrDuplicateSubmission):
		h.writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		h.writeError(w, r, err)
	}
}

func (h *InventoryHandler) submitResponse(tx *inventory.Transaction, key string) SubmitResponse {
	snap, _ := h.svc.Snapshot(tx.CourseID)
	resp := SubmitResponse{
		Transaction:    tx,
		IdempotencyKey: key,
	}
	if snap != nil {
		resp.CurrentStock = snap.CurrentStock
		resp.StockStatus = snap.Status
	}
	return resp
}

func (h *InventoryHandler) observeSubmission(tx *inventory.Transaction, start time.Time) {
	if h.metrics == nil {
		return
	}
	h.metrics.TransactionsRecorded.WithLabelValues(string(tx.Type)).Inc()
	h.metrics.SubmissionDuration.Observe(time.Since(start).Seconds())
}

// writeError maps domain errors to HTTP statuses: validation failures
// are 400 with the offending field, unknown IDs are 404, anything
// else is 500.
func (h *InventoryHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *inventory.ValidationError
	switch {
	case errors.As(err, &ve):
		if h.metrics != nil {
			h.metrics.ValidationFailures.WithLabelValues(ve.Field).Inc()
		}
		h.writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": ve.Message,
			"field": ve.Field,
		})
	case errors.Is(err, inventory.ErrCourseNotFound), errors.Is(err, inventory.ErrPatientNotFound):
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		h.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func (h *InventoryHandler) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func (h *InventoryHandler) writeRaw(w http.ResponseWriter, code int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(body)
}
