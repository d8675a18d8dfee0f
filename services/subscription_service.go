package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"storefront-service/apperrors"
	"storefront-service/auth"
	"storefront-service/models"
	"storefront-service/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultNewsletterText = "Yes, email me the weekly flooring deal. I can unsubscribe at any time."
	unsubscribeReason     = "Unsubscribed via one-click email link"
)

var errBadUnsubscribeSignature = errors.New("unsubscribe signature mismatch")

// SubscriptionService handles newsletter opt-in and one-click opt-out.
type SubscriptionService interface {
	Subscribe(ctx context.Context, req models.SubscribeRequest, meta models.RequestMeta) (string, error)
	Unsubscribe(ctx context.Context, email, token string, meta models.RequestMeta) (bool, error)
	UnsubscribeURL(email string) string
}

type subscriptionServiceImpl struct {
	subscribers repository.SubscriberRepository
	tx          repository.Transactor
	consents    ConsentService
	carts       CartService
	signer      *auth.UnsubscribeSigner
	siteURL     string
	events      *EventPublisher
	logger      *zap.Logger
}

// NewSubscriptionService creates a new SubscriptionService.
func NewSubscriptionService(
	subscribers repository.SubscriberRepository,
	tx repository.Transactor,
	consents ConsentService,
	carts CartService,
	signer *auth.UnsubscribeSigner,
	siteURL string,
	events *EventPublisher,
	logger *zap.Logger,
) SubscriptionService {
	return &subscriptionServiceImpl{
		subscribers: subscribers,
		tx:          tx,
		consents:    consents,
		carts:       carts,
		signer:      signer,
		siteURL:     strings.TrimSuffix(siteURL, "/"),
		events:      events,
		logger:      logger,
	}
}

// Subscribe opts the email in and records newsletter consent. It returns the
// normalized email.
func (s *subscriptionServiceImpl) Subscribe(ctx context.Context, req models.SubscribeRequest, meta models.RequestMeta) (string, error) {
	req.Email = auth.NormalizeEmail(req.Email)
	req.Source = strings.TrimSpace(req.Source)
	if err := validate.Struct(req); err != nil {
		return "", validationError(err)
	}

	text := req.ConsentText
	if text == "" {
		text = defaultNewsletterText
	}
	if req.PageURL != "" {
		meta.PageURL = req.PageURL
	}

	now := time.Now()
	err := s.tx.WithinTx(ctx, func(st repository.Stores) error {
		if err := st.Subscribers.UpsertSubscribed(ctx, req.Email, req.Source, now); err != nil {
			return apperrors.Storage("upsert subscriber", err)
		}
		_, err := insertConsent(ctx, st.Consents, s.logger, ConsentInput{
			Email:         req.Email,
			ConsentType:   models.ConsentTypeNewsletter,
			ConsentSource: req.Source,
			ConsentText:   text,
			Meta:          meta,
		})
		return err
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("Newsletter subscribe", zap.String("source", req.Source))
	s.events.Publish(ctx, EventSubscriberSubscribed, models.SubscriberEvent{
		EventType: EventSubscriberSubscribed,
		Email:     req.Email,
		Source:    req.Source,
		Timestamp: now,
	})
	return req.Email, nil
}

// Unsubscribe verifies the link signature and withdraws consent. It returns
// true when the email was already unsubscribed, in which case nothing is
// written.
func (s *subscriptionServiceImpl) Unsubscribe(ctx context.Context, email, token string, meta models.RequestMeta) (bool, error) {
	if !s.signer.Verify(email, token) {
		return false, apperrors.Authorization(errBadUnsubscribeSignature)
	}
	email = auth.NormalizeEmail(email)

	sub, err := s.subscribers.FindByEmail(ctx, email)
	switch {
	case err == nil && sub.Status == models.SubscriberStatusUnsubscribed:
		return true, nil
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return false, apperrors.Storage("load subscriber", err)
	}

	// Suppression is idempotent, so a failed withdrawal can be retried from
	// the same link.
	suppressed, err := s.carts.SuppressAllForEmail(ctx, email)
	if err != nil {
		return false, err
	}

	if err := s.consents.WithdrawConsent(ctx, email, unsubscribeReason, meta); err != nil {
		return false, err
	}

	s.logger.Info("Newsletter unsubscribe", zap.Int64("carts_suppressed", suppressed))
	s.events.Publish(ctx, EventSubscriberUnsubscribed, models.SubscriberEvent{
		EventType: EventSubscriberUnsubscribed,
		Email:     email,
		Timestamp: time.Now(),
	})
	return false, nil
}

// UnsubscribeURL builds the signed one-click link for email.
func (s *subscriptionServiceImpl) UnsubscribeURL(email string) string {
	q := url.Values{}
	q.Set("email", auth.EncodeEmail(auth.NormalizeEmail(email)))
	q.Set("token", s.signer.Sign(email))
	return s.siteURL + "/api/unsubscribe?" + q.Encode()
}
