package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// RandomHex returns n random bytes from crypto/rand as lowercase hex
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// GenerateJWTSecrets returns a fresh pair of 256-bit signing secrets, one
// for access tokens and one for refresh tokens. Used by the generate-secrets
// helper when bootstrapping a local environment.
func GenerateJWTSecrets() (accessSecret, refreshSecret string, err error) {
	accessSecret, err = RandomHex(32)
	if err != nil {
		return "", "", fmt.Errorf("access secret: %w", err)
	}

	refreshSecret, err = RandomHex(32)
	if err != nil {
		return "", "", fmt.Errorf("refresh secret: %w", err)
	}

	return accessSecret, refreshSecret, nil
}
