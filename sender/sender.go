package sender

import (
	"context"
	"time"
)

type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// Email is one outgoing HTML message with a plain-text alternative.
type Email struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

type EmailSender interface {
	SendEmail(ctx context.Context, msg Email) (SendResult, error)
}

// NoopSender drops every message. It is used when no provider is configured.
type NoopSender struct{}

func (NoopSender) SendEmail(_ context.Context, _ Email) (SendResult, error) {
	return SendResult{MessageID: "noop", SentAt: time.Now()}, nil
}
