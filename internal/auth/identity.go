package auth

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"

	"github.com/google/uuid"

	"github.com/freeeve/partycards/internal/model"
)

// ErrInvalidIdentity is returned when a guid/secret pair does not verify.
var ErrInvalidIdentity = errors.New("there's a problem with your session, refresh and try again")

// IdentityManager mints and verifies player identities. A player's secret
// is the HMAC-SHA512 of their guid under the server salt, so identities
// need no storage.
type IdentityManager struct {
	salt []byte
}

// NewIdentityManager creates an IdentityManager with the given salt.
func NewIdentityManager(salt string) *IdentityManager {
	return &IdentityManager{salt: []byte(salt)}
}

// Secret returns the secret that belongs to guid.
func (m *IdentityManager) Secret(guid string) string {
	mac := hmac.New(sha512.New, m.salt)
	mac.Write([]byte(guid))
	return hex.EncodeToString(mac.Sum(nil))
}

// Mint creates a fresh identity.
func (m *IdentityManager) Mint() model.Identity {
	guid := uuid.NewString()
	return model.Identity{GUID: guid, Secret: m.Secret(guid)}
}

// Validate checks that the secret matches the guid.
func (m *IdentityManager) Validate(id model.Identity) error {
	if id.GUID == "" || id.Secret == "" {
		return ErrInvalidIdentity
	}
	if !hmac.Equal([]byte(m.Secret(id.GUID)), []byte(id.Secret)) {
		return ErrInvalidIdentity
	}
	return nil
}
