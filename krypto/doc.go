// Package krypto provides the small set of cryptographic helpers the OAuth flow needs:
// unpredictable random tokens for state values and HS256 signing for stateless state.
//
// # Secure Token Generation
//
//	// 32 random bytes, hex encoded
//	token, err := krypto.GenerateSecureToken(32)
//
//	// 32 random bytes, base64url without padding
//	state, err := krypto.GenerateURLSafeToken(32)
//
// # HS256 Tokens
//
//	signed, err := krypto.SignHS256(claims, key)
//	err = krypto.ParseHS256(signed, &parsedClaims, key)
//
// Keys shorter than 32 bytes are refused with ErrWeakKey.
//
// All functions are safe for concurrent use.
package krypto
