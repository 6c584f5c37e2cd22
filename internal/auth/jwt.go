package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("missing socket token")
)

// Claims holds the socket token payload.
type Claims struct {
	PlayerGUID string `json:"player_guid"`
	jwt.RegisteredClaims
}

// JWTManager issues the tokens a browser presents when opening the
// realtime socket, since a WebSocket upgrade cannot carry custom headers.
type JWTManager struct {
	secret []byte
	expiry time.Duration
}

// NewJWTManager creates a JWTManager with the given secret.
func NewJWTManager(secret string) *JWTManager {
	return &JWTManager{
		secret: []byte(secret),
		expiry: 7 * 24 * time.Hour,
	}
}

// GenerateSocketToken creates a token bound to a player guid.
func (m *JWTManager) GenerateSocketToken(playerGUID string) (string, error) {
	claims := &Claims{
		PlayerGUID: playerGUID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   playerGUID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ValidateToken parses and validates a token string, returning the claims.
func (m *JWTManager) ValidateToken(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrMissingToken
	}
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.PlayerGUID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
