package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
)

// UnsubscribeSigner signs and checks one-click unsubscribe links.
type UnsubscribeSigner struct {
	key []byte
}

func NewUnsubscribeSigner(key []byte) *UnsubscribeSigner {
	return &UnsubscribeSigner{key: key}
}

// NormalizeEmail is the canonical form used for identity and signing.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Sign returns the hex HMAC-SHA256 of the normalized email.
func (s *UnsubscribeSigner) Sign(email string) string {
	return hex.EncodeToString(s.mac(email))
}

// Verify reports whether token is the signature for email. Malformed input of
// any kind is simply false.
func (s *UnsubscribeSigner) Verify(email, token string) bool {
	if email == "" || len(token) != hex.EncodedLen(sha256.Size) {
		return false
	}
	got, err := hex.DecodeString(token)
	if err != nil {
		return false
	}
	return hmac.Equal(got, s.mac(email))
}

func (s *UnsubscribeSigner) mac(email string) []byte {
	h := hmac.New(sha256.New, s.key)
	h.Write([]byte(NormalizeEmail(email)))
	return h.Sum(nil)
}

// EncodeEmail encodes an email for the unsubscribe link query string.
func EncodeEmail(email string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(email))
}

// DecodeEmail reverses EncodeEmail. Trailing padding is tolerated.
func DecodeEmail(encoded string) (string, error) {
	encoded = strings.TrimRight(strings.TrimSpace(encoded), "=")
	if encoded == "" {
		return "", errors.New("empty email parameter")
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", errors.New("email parameter is not base64url")
	}
	return string(raw), nil
}
