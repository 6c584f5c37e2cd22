package middleware

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/freeeve/partycards/internal/auth"
	"github.com/freeeve/partycards/internal/logger"
)

const gamesPrefix = "/api/v1/games/"

// Logger logs each request with a request ID, the acting player and the
// targeted game, then the status and duration once it completes.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := logger.NewRequestID()
		w.Header().Set("X-Request-Id", requestID)

		ctx := logger.WithRequestID(r.Context(), requestID)
		if guid := auth.IdentityFromRequest(r).GUID; guid != "" {
			ctx = logger.WithPlayer(ctx, guid)
		}
		gameID := gameIDFromPath(r.URL.Path)
		if gameID != "" {
			ctx = logger.WithGameID(ctx, gameID)
		}
		r = r.WithContext(ctx)

		logCtx := logger.ForGame(ctx, gameID).With().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()

		upgrade := strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
		if r.Body != nil && !upgrade {
			bodyBytes, err := io.ReadAll(r.Body)
			if err == nil && len(bodyBytes) > 0 {
				logger.LogBody(logCtx, "request_body", bodyBytes)
				r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			}
		}

		logCtx.Info().Bool("upgrade", upgrade).Msg("Request received")

		rw := &responseWriter{ResponseWriter: w, buf: &bytes.Buffer{}, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		logger.LogBody(logCtx, "response", rw.buf.Bytes())
		completedEvent(logCtx, rw.status).
			Int("status", rw.status).
			Dur("durationMs", time.Since(start)).
			Msg("Request completed")
	})
}

func completedEvent(l zerolog.Logger, status int) *zerolog.Event {
	switch {
	case status >= http.StatusInternalServerError:
		return l.Error()
	case status >= http.StatusBadRequest:
		return l.Warn()
	default:
		return l.Info()
	}
}

// gameIDFromPath returns the {id} segment of /api/v1/games/{id}/..., or ""
// for other paths and the public listing.
func gameIDFromPath(path string) string {
	rest, ok := strings.CutPrefix(path, gamesPrefix)
	if !ok {
		return ""
	}
	id, _, _ := strings.Cut(rest, "/")
	if id == "public" {
		return ""
	}
	return id
}

// CORS adds Cross-Origin Resource Sharing headers. allowedOrigins is "*" or
// a comma-separated list. Identity travels in cookies, so the matching
// origin is echoed back instead of a wildcard.
func CORS(allowedOrigins string) func(http.Handler) http.Handler {
	origins := lo.Compact(lo.Map(strings.Split(allowedOrigins, ","), func(o string, _ int) string {
		return strings.TrimSpace(o)
	}))
	anyOrigin := lo.Contains(origins, "*")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")
			if origin := r.Header.Get("Origin"); origin != "" && (anyOrigin || lo.Contains(origins, origin)) {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, "+auth.GUIDHeader+", "+auth.SecretHeader)
			h.Set("Access-Control-Expose-Headers", "X-Request-Id")
			h.Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Recover turns a panic in a handler into a 500 and logs the stack.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				l := logger.ForGame(r.Context(), "")
				l.Error().
					Interface("panic", rec).
					Str("stack", string(debug.Stack())).
					Msg("Handler panicked")
				http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// JSON sets the Content-Type header to application/json for all responses.
func JSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Chain applies middleware in order (first applied = outermost).
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// responseWriter records the status and body for the request log.
type responseWriter struct {
	http.ResponseWriter
	buf    *bytes.Buffer
	status int
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if w.buf.Len() < 4096 {
		w.buf.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrade pass through the logging middleware.
func (w *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}
