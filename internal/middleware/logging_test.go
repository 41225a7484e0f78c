package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"flowcms/internal/session"
)

func TestLoggerPassesThrough(t *testing.T) {
	var called bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"ok":true}`))
	})

	rec := httptest.NewRecorder()
	Logger(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/content", nil))

	if !called {
		t.Error("next handler not reached")
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("status: got %d, want 201", rec.Code)
	}
	if rec.Body.String() != `{"ok":true}` {
		t.Errorf("body altered: %q", rec.Body.String())
	}
}

func TestLoggerWithSessionInContext(t *testing.T) {
	// The actor attrs are read from the session; the request must still
	// flow through unchanged when one is present.
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r := withSession(httptest.NewRequest(http.MethodGet, "/api/content", nil),
		&session.Data{UserID: uuid.New(), Role: "editor"})
	rec := httptest.NewRecorder()
	Logger(inner).ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rec.Code)
	}
}

func TestStatusRecorder(t *testing.T) {
	t.Run("captures explicit status", func(t *testing.T) {
		sr := &statusRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
		sr.WriteHeader(http.StatusConflict)
		if sr.status != http.StatusConflict {
			t.Errorf("status: got %d, want 409", sr.status)
		}
	})

	t.Run("first status wins", func(t *testing.T) {
		sr := &statusRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
		sr.WriteHeader(http.StatusNotFound)
		sr.WriteHeader(http.StatusInternalServerError)
		if sr.status != http.StatusNotFound {
			t.Errorf("status: got %d, want 404", sr.status)
		}
	})

	t.Run("bare write implies 200 and counts bytes", func(t *testing.T) {
		sr := &statusRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
		if _, err := sr.Write([]byte(`{"items":[]}`)); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if sr.status != http.StatusOK {
			t.Errorf("status: got %d, want 200", sr.status)
		}
		if sr.bytes != len(`{"items":[]}`) {
			t.Errorf("bytes: got %d, want %d", sr.bytes, len(`{"items":[]}`))
		}
	})

	t.Run("write after header keeps the header status", func(t *testing.T) {
		sr := &statusRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
		sr.WriteHeader(http.StatusUnprocessableEntity)
		sr.Write([]byte("validation failed"))
		if sr.status != http.StatusUnprocessableEntity {
			t.Errorf("status: got %d, want 422", sr.status)
		}
	})
}
