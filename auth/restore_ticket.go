package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const restoreTicketType = "restore"

// ErrInvalidTicket covers bad signature, wrong type and expiry alike.
var ErrInvalidTicket = errors.New("invalid or expired restore ticket")

type restoreClaims struct {
	Typ string `json:"typ"`
	jwt.RegisteredClaims
}

// RestoreTicketSigner issues short-lived tickets that point at server-side
// restore state by nonce.
type RestoreTicketSigner struct {
	key []byte
	ttl time.Duration
}

func NewRestoreTicketSigner(key []byte, ttl time.Duration) *RestoreTicketSigner {
	return &RestoreTicketSigner{key: key, ttl: ttl}
}

// TTL is how long an issued ticket stays valid.
func (s *RestoreTicketSigner) TTL() time.Duration {
	return s.ttl
}

// NewNonce returns a random ticket id.
func (s *RestoreTicketSigner) NewNonce() (string, error) {
	return randomToken(16)
}

// Issue signs a ticket for nonce.
func (s *RestoreTicketSigner) Issue(nonce string) (string, error) {
	now := time.Now()
	claims := restoreClaims{
		Typ: restoreTicketType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        nonce,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign restore ticket: %w", err)
	}
	return signed, nil
}

// Parse verifies ticket and returns its nonce.
func (s *RestoreTicketSigner) Parse(ticket string) (string, error) {
	claims := &restoreClaims{}
	token, err := jwt.ParseWithClaims(ticket, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil || token == nil || !token.Valid {
		return "", ErrInvalidTicket
	}
	if claims.Typ != restoreTicketType || claims.ID == "" || claims.ExpiresAt == nil {
		return "", ErrInvalidTicket
	}
	return claims.ID, nil
}
