package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/carebridge/go-wardstock/internal/domain/inventory"
)

func newTestHandler(t *testing.T) (*InventoryHandler, *inventory.Course) {
	t.Helper()
	dir := inventory.NewDirectory([]inventory.Patient{
		{ID: "p1", FirstName: "John", LastName: "Smith", Ward: "A", Room: "101", HN: "HN001"},
	})
	svc := inventory.NewService(dir, inventory.NewLedger(), nil, zap.NewNop())
	course, err := dir.AddCourse("p1", inventory.Medication{
		Name: "Amoxicillin", Dose: "500", Unit: "mg",
	}, 30, inventory.UsageContinueSame)
	if err != nil {
		t.Fatalf("AddCourse: %v", err)
	}
	return NewInventoryHandler(svc, nil, zap.NewNop()), course
}

func doJSON(t *testing.T, h http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListPatientsFilters(t *testing.T) {
	h, _ := newTestHandler(t)
	h.svc.Directory().AddPatient(inventory.Patient{
		ID: "p2", FirstName: "Jane", LastName: "Doe", Ward: "B", Room: "201", HN: "HN002",
	})
	r := h.Routes()

	rec := doJSON(t, r, http.MethodGet, "/patients?ward=A", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var patients []inventory.Patient
	if err := json.Unmarshal(rec.Body.Bytes(), &patients); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(patients) != 1 || patients[0].ID != "p1" {
		t.Errorf("got %d patients, want only p1", len(patients))
	}
}

func TestAdmitPatient(t *testing.T) {
	h, _ := newTestHandler(t)
	r := h.Routes()

	rec := doJSON(t, r, http.MethodPost, "/patients", AdmitPatientRequest{
		FirstName: "Jane", LastName: "Doe", Ward: "B", Room: "201", HN: "HN002",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var p inventory.Patient
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.ID == "" {
		t.Error("patient ID not assigned")
	}

	rec = doJSON(t, r, http.MethodGet, "/patients?ward=B", nil)
	var patients []inventory.Patient
	if err := json.Unmarshal(rec.Body.Bytes(), &patients); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(patients) != 1 || patients[0].ID != p.ID {
		t.Errorf("admitted patient missing from ward listing: %+v", patients)
	}
}

func TestAdmitPatientRequiresName(t *testing.T) {
	h, _ := newTestHandler(t)
	r := h.Routes()

	rec := doJSON(t, r, http.MethodPost, "/patients", AdmitPatientRequest{Ward: "B"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["field"] != "first_name" {
		t.Errorf("field = %q, want first_name", body["field"])
	}
}

func TestAddCourseReturnsCreated(t *testing.T) {
	h, _ := newTestHandler(t)
	r := h.Routes()

	rec := doJSON(t, r, http.MethodPost, "/patients/p1/courses", AddCourseRequest{
		Medication:   inventory.Medication{Name: "Paracetamol", Dose: "500", Unit: "mg"},
		InitialStock: 20,
		Status:       inventory.UsageContinueSame,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var course inventory.Course
	if err := json.Unmarshal(rec.Body.Bytes(), &course); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if course.ID == "" {
		t.Error("course ID not assigned")
	}
	if course.InitialStock != 20 {
		t.Errorf("InitialStock = %d, want 20", course.InitialStock)
	}
}

func TestAddCourseValidation(t *testing.T) {
	h, _ := newTestHandler(t)
	r := h.Routes()

	rec := doJSON(t, r, http.MethodPost, "/patients/p1/courses", AddCourseRequest{
		Medication:   inventory.Medication{Name: "Paracetamol"},
		InitialStock: -1,
		Status:       inventory.UsageContinueSame,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["field"] == "" {
		t.Error("validation response missing field name")
	}
}

func TestAddCourseUnknownPatient(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, h.Routes(), http.MethodPost, "/patients/nope/courses", AddCourseRequest{
		Medication:   inventory.Medication{Name: "Paracetamol"},
		InitialStock: 5,
		Status:       inventory.UsageContinueSame,
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestDispenseHappyPath(t *testing.T) {
	h, course := newTestHandler(t)
	r := h.Routes()

	rec := doJSON(t, r, http.MethodPost, "/courses/"+course.ID+"/dispense", SubmitRequest{Quantity: 10})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var resp SubmitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.CurrentStock != 20 {
		t.Errorf("CurrentStock = %d, want 20", resp.CurrentStock)
	}
	if resp.Transaction.Type != inventory.TransactionDispense {
		t.Errorf("Type = %q, want DISPENSE", resp.Transaction.Type)
	}
	if resp.IdempotencyKey == "" {
		t.Error("idempotency key missing")
	}
}

func TestDispenseOverStock(t *testing.T) {
	h, course := newTestHandler(t)
	rec := doJSON(t, h.Routes(), http.MethodPost,
		"/courses/"+course.ID+"/dispense", SubmitRequest{Quantity: 31})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
}

func TestReturnRequiresReason(t *testing.T) {
	h, course := newTestHandler(t)
	r := h.Routes()

	rec := doJSON(t, r, http.MethodPost, "/courses/"+course.ID+"/return", SubmitRequest{Quantity: 5})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, r, http.MethodPost, "/courses/"+course.ID+"/return", SubmitRequest{
		Quantity: 5, Reason: inventory.ReasonUnused,
	})
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
}

func TestHistoryEndpoint(t *testing.T) {
	h, course := newTestHandler(t)
	r := h.Routes()

	for i := 0; i < 3; i++ {
		rec := doJSON(t, r, http.MethodPost, "/courses/"+course.ID+"/dispense", SubmitRequest{Quantity: 1})
		if rec.Code != http.StatusCreated {
			t.Fatalf("dispense %d: status = %d", i, rec.Code)
		}
	}

	rec := doJSON(t, r, http.MethodGet, "/courses/"+course.ID+"/transactions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var history []*inventory.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &history); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(history) != 3 {
		t.Errorf("history length = %d, want 3", len(history))
	}
}

func TestCourseNotFound(t *testing.T) {
	h, _ := newTestHandler(t)
	r := h.Routes()

	for _, tc := range []struct {
		method, target string
	}{
		{http.MethodGet, "/courses/missing"},
		{http.MethodGet, "/courses/missing/transactions"},
		{http.MethodPost, "/courses/missing/dispense"},
		{http.MethodPost, "/courses/missing/return"},
		{http.MethodDelete, "/courses/missing"},
	} {
		t.Run(fmt.Sprintf("%s %s", tc.method, tc.target), func(t *testing.T) {
			rec := doJSON(t, r, tc.method, tc.target, SubmitRequest{Quantity: 1, Reason: inventory.ReasonUnused})
			if rec.Code != http.StatusNotFound {
				t.Errorf("status = %d, want 404: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestUpdateCoursePreservesInitialStock(t *testing.T) {
	h, course := newTestHandler(t)
	rec := doJSON(t, h.Routes(), http.MethodPut, "/courses/"+course.ID, UpdateCourseRequest{
		Medication: inventory.Medication{Name: "Amoxicillin", Dose: "250", Unit: "mg"},
		Status:     inventory.UsageTemporarilyStop,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var got inventory.Course
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.InitialStock != 30 {
		t.Errorf("InitialStock = %d, want unchanged 30", got.InitialStock)
	}
	if got.Medication.Dose != "250" {
		t.Errorf("Dose = %q, want 250", got.Medication.Dose)
	}
}
