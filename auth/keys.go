package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// MinSecretLength is the shortest APP_SECRET accepted.
const MinSecretLength = 32

// Key labels. Each signer gets its own key so a token for one purpose can
// never verify for another.
const (
	LabelUnsubscribe  = "storefront/unsubscribe"
	LabelRestore      = "storefront/restore-ticket"
	LabelCookieHash   = "storefront/cookie-hash"
	LabelCookieCipher = "storefront/cookie-block"
)

// Keys holds the per-purpose keys derived from the application secret.
type Keys struct {
	Unsubscribe  []byte
	Restore      []byte
	CookieHash   []byte
	CookieCipher []byte
}

// DeriveKeys expands secret into independent keys with HKDF-SHA256.
func DeriveKeys(secret []byte) (*Keys, error) {
	if len(secret) < MinSecretLength {
		return nil, errors.New("application secret must be at least 32 bytes")
	}

	keys := &Keys{}
	for _, k := range []struct {
		label string
		dst   *[]byte
		size  int
	}{
		{LabelUnsubscribe, &keys.Unsubscribe, 32},
		{LabelRestore, &keys.Restore, 32},
		{LabelCookieHash, &keys.CookieHash, 64},
		{LabelCookieCipher, &keys.CookieCipher, 32},
	} {
		buf := make([]byte, k.size)
		if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(k.label)), buf); err != nil {
			return nil, fmt.Errorf("derive %s key: %w", k.label, err)
		}
		*k.dst = buf
	}
	return keys, nil
}
