package auth

import (
	"context"

	"github.com/freeeve/partycards/internal/model"
)

// SetIdentityForTest injects an identity into the context for testing purposes.
func SetIdentityForTest(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}
