package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// SubscriberStatus is the newsletter state of an email address.
type SubscriberStatus uint8

const (
	SubscriberStatusSubscribed SubscriberStatus = iota + 1
	SubscriberStatusUnsubscribed
)

var subscriberStatusNames = map[SubscriberStatus]string{
	SubscriberStatusSubscribed:   "subscribed",
	SubscriberStatusUnsubscribed: "unsubscribed",
}

func (s SubscriberStatus) String() string {
	if name, ok := subscriberStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("SubscriberStatus(%d)", uint8(s))
}

// ParseSubscriberStatus is the inverse of String.
func ParseSubscriberStatus(name string) (SubscriberStatus, error) {
	for s, n := range subscriberStatusNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown subscriber status %q", name)
}

func (s SubscriberStatus) Value() (driver.Value, error) {
	if _, ok := subscriberStatusNames[s]; !ok {
		return nil, fmt.Errorf("invalid subscriber status %d", uint8(s))
	}
	return s.String(), nil
}

func (s *SubscriberStatus) Scan(src interface{}) error {
	name, err := scanString(src)
	if err != nil {
		return err
	}
	parsed, err := ParseSubscriberStatus(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s SubscriberStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *SubscriberStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseSubscriberStatus(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// CartStatus is the lifecycle state of an abandoned cart.
type CartStatus uint8

const (
	CartStatusActive CartStatus = iota + 1
	CartStatusPurchased
	CartStatusSuppressed
)

var cartStatusNames = map[CartStatus]string{
	CartStatusActive:     "active",
	CartStatusPurchased:  "purchased",
	CartStatusSuppressed: "suppressed",
}

func (s CartStatus) String() string {
	if name, ok := cartStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("CartStatus(%d)", uint8(s))
}

// ParseCartStatus is the inverse of String.
func ParseCartStatus(name string) (CartStatus, error) {
	for s, n := range cartStatusNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown cart status %q", name)
}

func (s CartStatus) Value() (driver.Value, error) {
	if _, ok := cartStatusNames[s]; !ok {
		return nil, fmt.Errorf("invalid cart status %d", uint8(s))
	}
	return s.String(), nil
}

func (s *CartStatus) Scan(src interface{}) error {
	name, err := scanString(src)
	if err != nil {
		return err
	}
	parsed, err := ParseCartStatus(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s CartStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *CartStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseCartStatus(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func scanString(src interface{}) (string, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("cannot scan %T into status", src)
	}
}
