package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

func TestRequestIDKeepsWellFormedIDs(t *testing.T) {
	cases := map[string]bool{
		"req-123_abc.def:1":       true,
		"":                        false,
		"bad id":                  false,
		"line\nbreak":             false,
		strings.Repeat("a", 129):  false,
		strings.Repeat("a", 128):  true,
		"4f1c9e4e-8a1d-4b55-9d3a": true,
	}
	for id, keep := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(requestIDHeader, id)
		resp := httptest.NewRecorder()
		RequestID(nil)(okHandler()).ServeHTTP(resp, req)

		got := resp.Header().Get(requestIDHeader)
		if got == "" {
			t.Fatalf("%q: expected a request id to be set", id)
		}
		if keep != (got == id) {
			t.Fatalf("%q: keep=%v but response carried %q", id, keep, got)
		}
	}
}

func TestLoggingRecordsStatusAndRoute(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.DebugLevel, Format: logger.FormatJSON, Output: &buf})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream"))
	})

	Logging(logg)(handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/vendor/ledger", nil))

	line := buf.String()
	for _, want := range []string{`"status":502`, `"bytes":8`, `"level":"warn"`, `"route":"/api/v1/vendor/ledger"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %s in %s", want, line)
		}
	}
}

func TestRecovererWritesInternalError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic("kaboom") })
	resp := httptest.NewRecorder()
	Recoverer(logger.Nop())(handler).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}

func TestRecovererRethrowsAbort(t *testing.T) {
	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Fatalf("expected ErrAbortHandler to propagate, got %v", rec)
		}
	}()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic(http.ErrAbortHandler) })
	Recoverer(nil)(handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestCORSDisablesCredentialsForWildcard(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/orders/x", nil)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp := httptest.NewRecorder()
	CORS([]string{"*"})(okHandler()).ServeHTTP(resp, req)
	if resp.Header().Get("Access-Control-Allow-Credentials") == "true" {
		t.Fatalf("wildcard origin must not allow credentials")
	}

	resp = httptest.NewRecorder()
	CORS([]string{"https://shop.example"})(okHandler()).ServeHTTP(resp, req)
	if resp.Header().Get("Access-Control-Allow-Origin") != "https://shop.example" || resp.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("unexpected preflight headers %v", resp.Header())
	}
}
