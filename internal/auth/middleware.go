package auth

import (
	"context"
	"net/http"

	"github.com/freeeve/partycards/internal/model"
)

type contextKey string

const identityKey contextKey = "identity"

// Cookie and header names carrying the player identity.
const (
	GUIDCookie   = "guid"
	SecretCookie = "secret"
	GUIDHeader   = "X-Player-Guid"
	SecretHeader = "X-Player-Secret"
)

// Middleware extracts the player identity from cookies (or headers, for
// non-browser clients) and stores it in the request context. Verification
// happens in the engine, which rejects the command on a bad secret.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := IdentityFromRequest(r)
			if id.GUID == "" || id.Secret == "" {
				http.Error(w, `{"error":"missing player identity"}`, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromRequest reads the identity without requiring it.
func IdentityFromRequest(r *http.Request) model.Identity {
	id := model.Identity{
		GUID:   r.Header.Get(GUIDHeader),
		Secret: r.Header.Get(SecretHeader),
	}
	if id.GUID == "" {
		if c, err := r.Cookie(GUIDCookie); err == nil {
			id.GUID = c.Value
		}
	}
	if id.Secret == "" {
		if c, err := r.Cookie(SecretCookie); err == nil {
			id.Secret = c.Value
		}
	}
	return id
}

// IdentityFromContext extracts the player identity from the request context.
func IdentityFromContext(ctx context.Context) model.Identity {
	id, _ := ctx.Value(identityKey).(model.Identity)
	return id
}
