package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/carebridge/go-wardstock/pkg/tokenstore"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestBearerTokenAttached(t *testing.T) {
	var gotAuth string
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode([]Patient{})
	})

	tokens := tokenstore.NewMemory()
	tokens.Set(tokenstore.DefaultKey, "tok123")

	c := New(srv.URL, tokens)
	if _, err := c.ListPatients(context.Background(), PatientFilter{}); err != nil {
		t.Fatalf("ListPatients: %v", err)
	}
	if gotAuth != "Bearer tok123" {
		t.Errorf("Authorization = %q, want Bearer tok123", gotAuth)
	}
}

func TestUnauthorizedClearsToken(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	tokens := tokenstore.NewMemory()
	tokens.Set(tokenstore.DefaultKey, "expired")

	c := New(srv.URL, tokens)
	_, err := c.ListPatients(context.Background(), PatientFilter{})
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("err = %v, want ErrNotAuthenticated", err)
	}
	if _, err := tokens.Get(tokenstore.DefaultKey); !errors.Is(err, tokenstore.ErrNotFound) {
		t.Error("stored token should be cleared after 401")
	}
}

func TestForbidden(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	c := New(srv.URL, nil)
	_, err := c.GetCourse(context.Background(), "c1")
	if !errors.Is(err, ErrAccessDenied) {
		t.Errorf("err = %v, want ErrAccessDenied", err)
	}
}

func TestNotFound(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "course not found"})
	})
	c := New(srv.URL, nil)
	_, err := c.GetCourse(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestValidationErrorCarriesField(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "quantity exceeds current stock",
			"field": "quantity",
		})
	})
	c := New(srv.URL, nil)
	_, err := c.Dispense(context.Background(), "c1", SubmitRequest{Quantity: 99})

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %T, want *ValidationError", err)
	}
	if ve.Field != "quantity" {
		t.Errorf("Field = %q, want quantity", ve.Field)
	}
	if IsRetryable(err) {
		t.Error("validation errors must not be retryable")
	}
}

func TestServerErrorRetryable(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
	})
	c := New(srv.URL, nil)
	_, err := c.Dispense(context.Background(), "c1", SubmitRequest{Quantity: 1})

	var se *ServerError
	if !errors.As(err, &se) {
		t.Fatalf("err = %T, want *ServerError", err)
	}
	if se.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", se.StatusCode)
	}
	if !IsRetryable(err) {
		t.Error("server errors should be retryable")
	}
}

func TestConnectivityError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := New(srv.URL, nil)
	_, err := c.ListPatients(context.Background(), PatientFilter{})

	var ce *ConnectivityError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %T, want *ConnectivityError", err)
	}
	if !IsRetryable(err) {
		t.Error("connectivity errors should be retryable")
	}
}

func TestDispenseDecodesResult(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var req SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Quantity != 5 {
			t.Errorf("Quantity = %d, want 5", req.Quantity)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(SubmitResult{
			Transaction:  &Transaction{Type: "DISPENSE", Quantity: 5},
			CurrentStock: 25,
			StockStatus:  "OK",
		})
	})

	c := New(srv.URL, nil)
	result, err := c.Dispense(context.Background(), "c1", SubmitRequest{Quantity: 5})
	if err != nil {
		t.Fatalf("Dispense: %v", err)
	}
	if result.CurrentStock != 25 {
		t.Errorf("CurrentStock = %d, want 25", result.CurrentStock)
	}
	if result.StockStatus != "OK" {
		t.Errorf("StockStatus = %q, want OK", result.StockStatus)
	}
}

func TestListPatientsQueryParams(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("ward") != "A" || q.Get("search") != "smith" {
			t.Errorf("query = %v, want ward=A search=smith", q)
		}
		json.NewEncoder(w).Encode([]Patient{{ID: "p1"}})
	})

	c := New(srv.URL, nil)
	patients, err := c.ListPatients(context.Background(), PatientFilter{Ward: "A", Search: "smith"})
	if err != nil {
		t.Fatalf("ListPatients: %v", err)
	}
	if len(patients) != 1 {
		t.Errorf("got %d patients, want 1", len(patients))
	}
}
