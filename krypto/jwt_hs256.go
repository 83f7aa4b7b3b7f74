package krypto

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// MinHS256KeyLength is the shortest signing key SignHS256 and ParseHS256 accept.
const MinHS256KeyLength = 32

var (
	// ErrWeakKey is returned when the HMAC key is shorter than MinHS256KeyLength.
	ErrWeakKey = errors.New("krypto: HS256 key must be at least 32 bytes")

	// ErrInvalidToken is returned when a token fails signature or claim validation.
	ErrInvalidToken = errors.New("krypto: invalid token")
)

// SignHS256 signs claims with HMAC-SHA256.
func SignHS256(claims jwt.Claims, key []byte) (string, error) {
	if len(key) < MinHS256KeyLength {
		return "", ErrWeakKey
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

// ParseHS256 verifies an HS256 token and decodes it into claims. Tokens signed
// with any other algorithm are rejected. Expired tokens fail with an error that
// matches both ErrInvalidToken and jwt.ErrTokenExpired.
func ParseHS256(token string, claims jwt.Claims, key []byte) error {
	if len(key) < MinHS256KeyLength {
		return ErrWeakKey
	}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}
