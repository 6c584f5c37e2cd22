package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndValidateSocketToken(t *testing.T) {
	mgr := NewJWTManager("test-secret-key-123")
	token, err := mgr.GenerateSocketToken("player-42")
	if err != nil {
		t.Fatalf("generate socket token: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := mgr.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.PlayerGUID != "player-42" {
		t.Errorf("expected player_guid=player-42, got %s", claims.PlayerGUID)
	}
	if claims.Subject != "player-42" {
		t.Errorf("expected subject=player-42, got %s", claims.Subject)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	mgr1 := NewJWTManager("secret-one")
	mgr2 := NewJWTManager("secret-two")

	token, _ := mgr1.GenerateSocketToken("player-1")
	if _, err := mgr2.ValidateToken(token); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateTokenExpired(t *testing.T) {
	mgr := &JWTManager{secret: []byte("test-secret"), expiry: -time.Hour}
	token, _ := mgr.GenerateSocketToken("player-1")
	if _, err := mgr.ValidateToken(token); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestValidateTokenMissing(t *testing.T) {
	mgr := NewJWTManager("test-secret")
	if _, err := mgr.ValidateToken(""); err != ErrMissingToken {
		t.Errorf("expected ErrMissingToken, got %v", err)
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	mgr := NewJWTManager("test-secret")
	if _, err := mgr.ValidateToken("not.a.jwt"); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateTokenWrongSigningMethod(t *testing.T) {
	mgr := NewJWTManager("test-secret")
	claims := &Claims{
		PlayerGUID: "player-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	tokenStr, _ := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := mgr.ValidateToken(tokenStr); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for unsigned token, got %v", err)
	}
}
