// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid reconnect token")

// TokenSigner issues and verifies reconnect tokens. A reconnect token is an
// EdDSA-signed JWT whose subject is the player's session id; holding it proves
// the client owned that session.
//
// The key pair lives only in memory, so tokens do not survive a restart. Sessions
// don't either.
type TokenSigner struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	expiry     time.Duration // 0 => no exp claim
	now        func() time.Time
}

// NewTokenSigner generates a fresh ed25519 key pair.
func NewTokenSigner(expiry time.Duration) (*TokenSigner, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &TokenSigner{privateKey: priv, publicKey: pub, expiry: expiry, now: time.Now}, nil
}

// Issue signs a token for playerID.
func (s *TokenSigner) Issue(playerID string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:  playerID,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if s.expiry > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.expiry))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(s.privateKey)
}

// Verify checks tokenString and returns the player id it was issued for.
func (s *TokenSigner) Verify(tokenString string) (string, error) {
	var claims jwt.RegisteredClaims
	t, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.publicKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !t.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
