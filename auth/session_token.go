package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// sessionTokenBytes gives 256 bits of entropy.
const sessionTokenBytes = 32

// NewSessionToken returns an unguessable URL-safe token. It carries no
// information about the email, time or any other request value.
func NewSessionToken() (string, error) {
	return randomToken(sessionTokenBytes)
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
