package oauth

import (
	"crypto/subtle"

	"golang.org/x/oauth2"
)

// PKCEMethodS256 is the only challenge method Slack accepts.
const PKCEMethodS256 = "S256"

// GeneratePKCEChallenge generates a verifier and its S256 challenge
func GeneratePKCEChallenge() *PKCEChallenge {
	verifier := oauth2.GenerateVerifier()
	return &PKCEChallenge{
		Verifier:        verifier,
		Challenge:       oauth2.S256ChallengeFromVerifier(verifier),
		ChallengeMethod: PKCEMethodS256,
	}
}

// ValidatePKCEChallenge validates that a verifier matches a challenge
func ValidatePKCEChallenge(verifier, challenge string) bool {
	expected := oauth2.S256ChallengeFromVerifier(verifier)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(challenge)) == 1
}

// authCodeOptions returns the authorize URL options for pkce
func (p *PKCEChallenge) authCodeOptions() []oauth2.AuthCodeOption {
	if p == nil {
		return nil
	}
	return []oauth2.AuthCodeOption{oauth2.S256ChallengeOption(p.Verifier)}
}
