package krypto

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

// ErrInvalidLength is returned when a token of non-positive length is requested.
var ErrInvalidLength = errors.New("krypto: token length must be positive")

// GenerateSecureToken generates a secure token of the specified length.
// It utilizes the cryptographic randomness provided by the rand package
// to ensure the security and unpredictability of the generated token.
//
// Parameters:
//
//	length: The number of random bytes; the returned string is twice as long.
//
// Returns:
//
//	string: The randomly generated secure token in hexadecimal format.
//	error: An error, if any, encountered during the token generation process.
func GenerateSecureToken(length int) (string, error) {
	if length <= 0 {
		return "", ErrInvalidLength
	}
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateURLSafeToken returns length random bytes encoded as unpadded base64url,
// suitable for query parameters such as the OAuth state value.
func GenerateURLSafeToken(length int) (string, error) {
	if length <= 0 {
		return "", ErrInvalidLength
	}
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
