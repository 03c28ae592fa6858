package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/staff-attendance/internal/logging"
	"github.com/rs/zerolog"
)

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	previous := logging.Logger()
	logging.SetLogger(zerolog.New(&buf))
	t.Cleanup(func() { logging.SetLogger(previous) })

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger())
	r.Get("/api/v1/staff/{id}", func(w http.ResponseWriter, r *http.Request) {
		logging.Ctx(r.Context()).Info().Msg("inside handler")
		w.WriteHeader(http.StatusNotFound)
	})

	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/staff/abc", nil))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %s", len(lines), buf.String())
	}

	var inner, access map[string]any
	if err := json.Unmarshal(lines[0], &inner); err != nil {
		t.Fatalf("invalid log line: %v", err)
	}
	if err := json.Unmarshal(lines[1], &access); err != nil {
		t.Fatalf("invalid log line: %v", err)
	}

	if inner["request_id"] == nil || inner["request_id"] != access["request_id"] {
		t.Errorf("expected the handler log to carry the request ID, got %v and %v", inner["request_id"], access["request_id"])
	}
	if access["route"] != "/api/v1/staff/{id}" {
		t.Errorf("expected route pattern, got %v", access["route"])
	}
	if access["status"] != float64(http.StatusNotFound) {
		t.Errorf("expected status 404, got %v", access["status"])
	}
	if access["level"] != "warn" {
		t.Errorf("expected warn level for 4xx, got %v", access["level"])
	}
}
