package sender

import (
	"context"
	"fmt"
	"time"

	"github.com/mailjet/mailjet-apiv3-go"
)

type MailjetSender struct {
	client    *mailjet.Client
	fromEmail string
	fromName  string
}

func NewMailjetSender(publicKey, privateKey, fromEmail, fromName string) (*MailjetSender, error) {
	if publicKey == "" || privateKey == "" {
		return nil, fmt.Errorf("MAILJET_PUBLIC_KEY and MAILJET_PRIVATE_KEY must be set")
	}
	if fromEmail == "" {
		return nil, fmt.Errorf("MAILJET_FROM_EMAIL not set")
	}
	return &MailjetSender{
		client:    mailjet.NewMailjetClient(publicKey, privateKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}, nil
}

func (m *MailjetSender) SendEmail(ctx context.Context, msg Email) (SendResult, error) {
	if err := ctx.Err(); err != nil {
		return SendResult{}, err
	}

	info := []mailjet.InfoMessagesV31{{
		From:     &mailjet.RecipientV31{Email: m.fromEmail, Name: m.fromName},
		To:       &mailjet.RecipientsV31{mailjet.RecipientV31{Email: msg.To}},
		Subject:  msg.Subject,
		TextPart: msg.TextBody,
		HTMLPart: msg.HTMLBody,
	}}
	res, err := m.client.SendMailV31(&mailjet.MessagesV31{Info: info})
	if err != nil {
		return SendResult{}, fmt.Errorf("could not send mail: %w", err)
	}

	result := SendResult{SentAt: time.Now()}
	if res != nil && len(res.ResultsV31) > 0 && len(res.ResultsV31[0].To) > 0 {
		result.MessageID = res.ResultsV31[0].To[0].MessageUUID
	}
	return result, nil
}
