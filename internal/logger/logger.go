// Package logger configures the global zerolog logger and carries
// request, player and game scoped fields through contexts.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	gameIDKey    contextKey = "game_id"
	playerKey    contextKey = "player_guid"
)

const (
	milliTimeFormat = "2006-01-02T15:04:05.000Z07:00"
	requestIDChars  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxBodyLog      = 1000
)

// secretField matches a JSON "secret" member so identity secrets never
// reach the log.
var secretField = regexp.MustCompile(`("secret"\s*:\s*)"[^"]*"`)

// Init configures the global logger from LOG_LEVEL, LOG_FILE and the DEV
// flags.
func Init() {
	level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var output io.Writer = zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: milliTimeFormat,
		NoColor:    !isDevelopmentMode(),
	}
	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		f, ferr := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if ferr == nil {
			output = io.MultiWriter(output, f)
		}
	}

	Setup(output, level)
	log.Info().
		Str("level", level.String()).
		Bool("dev", isDevelopmentMode()).
		Msg("Logger initialized")
}

// Setup points the global logger at w with the given minimum level.
func Setup(w io.Writer, level zerolog.Level) {
	zerolog.TimeFieldFormat = milliTimeFormat
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
	zerolog.CallerMarshalFunc = callerColumn
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(w).With().Timestamp().Caller().Logger()
}

// callerColumn renders file:line padded or clipped to a fixed width so
// console output lines up.
func callerColumn(_ uintptr, file string, line int) string {
	const width = 30
	path := fmt.Sprintf("%s:%d", filepath.Base(file), line)
	if len(path) >= width {
		return path[len(path)-width:]
	}
	return path + strings.Repeat(" ", width-len(path))
}

func isDevelopmentMode() bool {
	return os.Getenv("DEV") == "true" ||
		os.Getenv("DEV_MODE") == "true" ||
		os.Getenv("DEVELOPMENT") == "true"
}

// Get returns the global logger instance.
func Get() zerolog.Logger {
	return log.Logger
}

// NewRequestID returns a random 8-character alphanumeric id.
func NewRequestID() string {
	id, err := gonanoid.Generate(requestIDChars, 8)
	if err != nil {
		return fmt.Sprintf("req%05d", time.Now().UnixNano()%100000)
	}
	return id
}

// WithRequestID returns a new context with the given request ID stored.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the request ID from context, or empty string.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithGameID returns a new context tagged with the game a request targets.
func WithGameID(ctx context.Context, gameID string) context.Context {
	return context.WithValue(ctx, gameIDKey, gameID)
}

// WithPlayer returns a new context tagged with the acting player's guid.
func WithPlayer(ctx context.Context, guid string) context.Context {
	return context.WithValue(ctx, playerKey, guid)
}

// ForRequest returns a logger enriched with the request ID and acting
// player from context.
func ForRequest(ctx context.Context) zerolog.Logger {
	c := log.Logger.With()
	if id := RequestIDFromContext(ctx); id != "" {
		c = c.Str("requestId", id)
	}
	if guid, _ := ctx.Value(playerKey).(string); guid != "" {
		c = c.Str("playerGuid", guid)
	}
	return c.Logger()
}

// ForGame returns ForRequest plus the game id. An empty gameID falls back
// to the one stored by WithGameID.
func ForGame(ctx context.Context, gameID string) zerolog.Logger {
	l := ForRequest(ctx)
	if gameID == "" {
		gameID, _ = ctx.Value(gameIDKey).(string)
	}
	if gameID == "" {
		return l
	}
	return l.With().Str("gameId", gameID).Logger()
}

// LogBody logs a request or response body at debug level under field,
// truncated and with identity secrets masked.
func LogBody(l zerolog.Logger, field string, body []byte) {
	if len(body) == 0 {
		return
	}
	ev := l.Debug()
	if !ev.Enabled() {
		return
	}
	masked := secretField.ReplaceAll(body, []byte(`$1"***"`))
	truncated := len(masked) > maxBodyLog
	if truncated {
		masked = masked[:maxBodyLog]
	}
	ev.Str(field, string(masked)).Bool("truncated", truncated).Msg("Body")
}
