package auth

import (
	"time"

	"github.com/gorilla/securecookie"
)

// CookieCodec authenticates and encrypts cookie values so they cannot be
// forged or read client-side.
type CookieCodec struct {
	sc *securecookie.SecureCookie
}

func NewCookieCodec(keys *Keys, maxAge time.Duration) *CookieCodec {
	sc := securecookie.New(keys.CookieHash, keys.CookieCipher)
	sc.MaxAge(int(maxAge.Seconds()))
	return &CookieCodec{sc: sc}
}

func (c *CookieCodec) Encode(name, value string) (string, error) {
	return c.sc.Encode(name, value)
}

func (c *CookieCodec) Decode(name, encoded string) (string, error) {
	var value string
	if err := c.sc.Decode(name, encoded, &value); err != nil {
		return "", err
	}
	return value, nil
}
