package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// GenerateOpaqueToken generates a URL-safe random token of the given byte
// length. The encoded value is the refresh token itself and its primary key.
func GenerateOpaqueToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		byteLength = 32
	}
	b := make([]byte, byteLength)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("failed to read random bytes for token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
