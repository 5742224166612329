package middleware

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// APIKeyVerifier authenticates service-to-service callers by API key. Keys are
// stored as bcrypt hashes keyed by caller name, so a leaked configuration file
// does not leak usable credentials.
type APIKeyVerifier struct {
	hashes map[string]string // caller name -> bcrypt hash
}

func NewAPIKeyVerifier(hashes map[string]string) *APIKeyVerifier {
	return &APIKeyVerifier{hashes: hashes}
}

// Verify returns the caller name matching the presented key, or an error when
// no configured key matches.
func (v *APIKeyVerifier) Verify(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty api key")
	}
	for caller, hash := range v.hashes {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil {
			return caller, nil
		}
	}
	return "", fmt.Errorf("unknown api key")
}

// HashAPIKey produces a bcrypt hash suitable for APIKeyVerifier configuration.
func HashAPIKey(key string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash api key: %w", err)
	}
	return string(hashed), nil
}
