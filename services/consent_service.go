package services

import (
	"context"
	"time"

	"storefront-service/apperrors"
	"storefront-service/auth"
	"storefront-service/models"
	"storefront-service/repository"

	"go.uber.org/zap"
)

// ConsentInput describes one consent event to record.
type ConsentInput struct {
	Email         string
	ConsentType   string
	ConsentSource string
	ConsentText   string
	Meta          models.RequestMeta
}

// ConsentService maintains the consent audit trail.
type ConsentService interface {
	RecordConsent(ctx context.Context, in ConsentInput) (*models.ConsentRecord, error)
	WithdrawConsent(ctx context.Context, email, reason string, meta models.RequestMeta) error
}

type consentServiceImpl struct {
	consents repository.ConsentRepository
	tx       repository.Transactor
	logger   *zap.Logger
}

// NewConsentService creates a new ConsentService.
func NewConsentService(
	consents repository.ConsentRepository,
	tx repository.Transactor,
	logger *zap.Logger,
) ConsentService {
	return &consentServiceImpl{consents: consents, tx: tx, logger: logger}
}

// RecordConsent appends one consent row. consent_type is not restricted to the
// known values.
func (s *consentServiceImpl) RecordConsent(ctx context.Context, in ConsentInput) (*models.ConsentRecord, error) {
	return insertConsent(ctx, s.consents, s.logger, in)
}

// WithdrawConsent appends a withdrawal record and flips the subscriber to
// unsubscribed in one transaction. Earlier records are kept as evidence.
func (s *consentServiceImpl) WithdrawConsent(ctx context.Context, email, reason string, meta models.RequestMeta) error {
	return s.tx.WithinTx(ctx, func(st repository.Stores) error {
		rec, err := insertConsent(ctx, st.Consents, s.logger, ConsentInput{
			Email:         email,
			ConsentType:   models.ConsentTypeWithdrawal,
			ConsentSource: "unsubscribe",
			ConsentText:   reason,
			Meta:          meta,
		})
		if err != nil {
			return err
		}
		if err := st.Subscribers.UpsertUnsubscribed(ctx, rec.Email, time.Now()); err != nil {
			return apperrors.Storage("mark subscriber unsubscribed", err)
		}
		return nil
	})
}

func newConsentRecord(in ConsentInput) (*models.ConsentRecord, error) {
	email := auth.NormalizeEmail(in.Email)
	if err := validEmail(email); err != nil {
		return nil, err
	}
	if in.ConsentType == "" {
		return nil, apperrors.Validation("consentType is required")
	}
	return &models.ConsentRecord{
		Email:         email,
		ConsentType:   in.ConsentType,
		ConsentSource: in.ConsentSource,
		ConsentText:   in.ConsentText,
		IPAddress:     in.Meta.IPAddress,
		UserAgent:     in.Meta.UserAgent,
		PageURL:       in.Meta.PageURL,
	}, nil
}

// insertConsent writes through consents, which may be bound to a transaction.
func insertConsent(ctx context.Context, consents repository.ConsentRepository, logger *zap.Logger, in ConsentInput) (*models.ConsentRecord, error) {
	rec, err := newConsentRecord(in)
	if err != nil {
		return nil, err
	}
	if err := consents.Create(ctx, rec); err != nil {
		return nil, apperrors.Storage("record consent", err)
	}

	logger.Info("Consent recorded",
		zap.Uint("consent_id", rec.ID),
		zap.String("consent_type", rec.ConsentType),
		zap.String("consent_source", rec.ConsentSource),
	)
	return rec, nil
}
