package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/partycards/internal/auth"
	"github.com/freeeve/partycards/internal/logger"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := log.Logger
	log.Logger = zerolog.New(buf)
	t.Cleanup(func() { log.Logger = prev })
	return buf
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestCORSHeaders(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		allowed    string
		origin     string
		wantOrigin string
	}{
		{"wildcard echoes origin", "*", "https://play.example.com", "https://play.example.com"},
		{"listed origin", "https://a.example.com, https://b.example.com", "https://b.example.com", "https://b.example.com"},
		{"unlisted origin", "https://a.example.com", "https://evil.example.com", ""},
		{"no origin header", "*", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/games/public", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			CORS(tt.allowed)(inner).ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin: expected %q, got %q", tt.wantOrigin, got)
			}
			wantCreds := ""
			if tt.wantOrigin != "" {
				wantCreds = "true"
			}
			if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != wantCreds {
				t.Errorf("Allow-Credentials: expected %q, got %q", wantCreds, got)
			}
			if rec.Header().Get("Vary") != "Origin" {
				t.Error("expected Vary: Origin")
			}
		})
	}
}

func TestCORSAllowsIdentityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	CORS("*")(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	allowed := rec.Header().Get("Access-Control-Allow-Headers")
	for _, h := range []string{auth.GUIDHeader, auth.SecretHeader, "Content-Type"} {
		if !strings.Contains(allowed, h) {
			t.Errorf("expected %s in Allow-Headers %q", h, allowed)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	called := false
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	handler := CORS("*")(inner)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/games", nil)
	req.Header.Set("Origin", "https://play.example.com")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 for OPTIONS, got %d", rec.Code)
	}
	if called {
		t.Error("inner handler should not be called for preflight")
	}
}

func TestJSONContentType(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	})
	rec := httptest.NewRecorder()
	JSON(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type=application/json, got %s", ct)
	}
}

func TestGameIDFromPath(t *testing.T) {
	tests := []struct {
		path, want string
	}{
		{"/api/v1/games/brave-lion-7", "brave-lion-7"},
		{"/api/v1/games/brave-lion-7/play", "brave-lion-7"},
		{"/api/v1/games/public", ""},
		{"/api/v1/games", ""},
		{"/api/v1/user/register", ""},
		{"/healthz", ""},
	}
	for _, tt := range tests {
		if got := gameIDFromPath(tt.path); got != tt.want {
			t.Errorf("gameIDFromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestLoggerTagsRequest(t *testing.T) {
	buf := captureLogs(t)
	var seenRequest string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenRequest = logger.RequestIDFromContext(r.Context())
		l := logger.ForGame(r.Context(), "")
		l.Info().Msg("inside")
		w.WriteHeader(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/games/quiet-fox-2/play", strings.NewReader(`{"cardIds":[]}`))
	req.Header.Set(auth.GUIDHeader, "p1")
	rec := httptest.NewRecorder()
	Logger(inner).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if seenRequest == "" {
		t.Fatal("inner handler should run with a request id")
	}
	if rec.Header().Get("X-Request-Id") != seenRequest {
		t.Errorf("expected X-Request-Id %q, got %q", seenRequest, rec.Header().Get("X-Request-Id"))
	}

	for _, line := range logLines(t, buf) {
		if line["message"] != "inside" {
			continue
		}
		if line["gameId"] != "quiet-fox-2" || line["playerGuid"] != "p1" || line["requestId"] != seenRequest {
			t.Errorf("handler log line missing context: %v", line)
		}
		return
	}
	t.Error("handler log line not found")
}

func TestLoggerLevelByStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "info"},
		{http.StatusConflict, "warn"},
		{http.StatusInternalServerError, "error"},
	}
	for _, tt := range tests {
		buf := captureLogs(t)
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		})
		Logger(inner).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/games/g1", nil))

		lines := logLines(t, buf)
		last := lines[len(lines)-1]
		if last["message"] != "Request completed" || last["level"] != tt.level {
			t.Errorf("status %d: expected %s completion line, got %v", tt.status, tt.level, last)
		}
	}
}

func TestLoggerKeepsBodyForHandler(t *testing.T) {
	captureLogs(t)
	var got string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b := new(bytes.Buffer)
		b.ReadFrom(r.Body)
		got = b.String()
	})

	Logger(inner).ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodPost, "/api/v1/games", strings.NewReader(`{"nickname":"Ada"}`)))
	if got != `{"nickname":"Ada"}` {
		t.Errorf("handler should still read the body, got %q", got)
	}
}

func TestLoggerMasksRegisterSecret(t *testing.T) {
	buf := captureLogs(t)
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"guid":"g1","secret":"do-not-log","token":"t"}`))
	})

	Logger(inner).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/user/register", nil))
	if strings.Contains(buf.String(), "do-not-log") {
		t.Errorf("secret leaked: %s", buf.String())
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name+"-before")
				next.ServeHTTP(w, r)
				order = append(order, name+"-after")
			})
		}
	}
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	})

	Chain(inner, mw("mw1"), mw("mw2")).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	expected := []string{"mw1-before", "mw2-before", "handler", "mw2-after", "mw1-after"}
	if strings.Join(order, ",") != strings.Join(expected, ",") {
		t.Errorf("expected %v, got %v", expected, order)
	}
}

func TestRecoverReturns500(t *testing.T) {
	buf := captureLogs(t)
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	Chain(inner, Logger, Recover).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/games/g1", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "boom") {
		t.Error("panic detail must not reach the client")
	}

	found := false
	for _, line := range logLines(t, buf) {
		if line["message"] == "Handler panicked" {
			found = true
			if line["gameId"] != "g1" || line["requestId"] == nil {
				t.Errorf("panic log missing context: %v", line)
			}
		}
	}
	if !found {
		t.Error("expected the panic to be logged")
	}
}
