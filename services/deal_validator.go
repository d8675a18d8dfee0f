package services

import (
	"context"
	"time"

	"storefront-service/apperrors"
	"storefront-service/models"
	"storefront-service/repository"

	"go.uber.org/zap"
)

// DealValidator checks cart lines against the weekly deal windows.
type DealValidator interface {
	ValidateCart(ctx context.Context, items models.CartItems) (*models.CartValidationResult, error)
	QuoteCart(ctx context.Context, items models.CartItems) ([]QuotedLine, error)
}

// QuotedLine is a cart line priced from its weekly deal.
type QuotedLine struct {
	ItemID    string
	Name      string
	Quantity  int
	UnitPrice int64
}

type dealValidatorImpl struct {
	deals  repository.DealRepository
	logger *zap.Logger
}

// NewDealValidator creates a new DealValidator.
func NewDealValidator(deals repository.DealRepository, logger *zap.Logger) DealValidator {
	return &dealValidatorImpl{deals: deals, logger: logger}
}

// ValidateCart reports every line whose deal is missing, inactive, not yet
// started or ended. Lines without a deal are always valid.
func (v *dealValidatorImpl) ValidateCart(ctx context.Context, items models.CartItems) (*models.CartValidationResult, error) {
	result, _, err := v.check(ctx, items)
	return result, err
}

// QuoteCart prices every line from its weekly deal. The captured price is
// only a claim: a line with no deal, a closed deal, an unpriced deal or a
// price that differs from the deal's is a ConflictError.
func (v *dealValidatorImpl) QuoteCart(ctx context.Context, items models.CartItems) ([]QuotedLine, error) {
	if len(items) == 0 {
		return nil, apperrors.Validation("cart is empty")
	}

	result, deals, err := v.check(ctx, items)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, apperrors.Conflict("cart contains items whose deal has ended")
	}

	lines := make([]QuotedLine, 0, len(items))
	for _, it := range items {
		if it.DealID == "" {
			return nil, apperrors.Conflict("item %s is not part of a weekly deal", it.ID)
		}
		deal := deals[it.DealID]
		if deal.PriceCents <= 0 {
			return nil, apperrors.Conflict("deal %s has no price", it.DealID)
		}
		if it.Price != deal.PriceCents {
			v.logger.Warn("Cart price differs from deal price",
				zap.String("item_id", it.ID),
				zap.String("deal_id", it.DealID),
				zap.Int64("cart_price", it.Price),
				zap.Int64("deal_price", deal.PriceCents),
			)
			return nil, apperrors.Conflict("price for item %s has changed", it.ID)
		}

		name := deal.Title
		if name == "" {
			name = it.Name
		}
		if name == "" {
			name = it.ID
		}
		lines = append(lines, QuotedLine{
			ItemID:    it.ID,
			Name:      name,
			Quantity:  it.Quantity,
			UnitPrice: deal.PriceCents,
		})
	}
	return lines, nil
}

func (v *dealValidatorImpl) check(ctx context.Context, items models.CartItems) (*models.CartValidationResult, map[string]*models.WeeklyDeal, error) {
	var ids []string
	seen := make(map[string]bool)
	for _, it := range items {
		if err := validate.Struct(it); err != nil {
			return nil, nil, validationError(err)
		}
		if it.DealID != "" && !seen[it.DealID] {
			seen[it.DealID] = true
			ids = append(ids, it.DealID)
		}
	}

	deals, err := v.deals.FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, apperrors.Storage("load weekly deals", err)
	}

	now := time.Now()
	result := &models.CartValidationResult{Valid: true, ExpiredItems: []models.ExpiredItem{}}
	for _, it := range items {
		if it.DealID == "" {
			continue
		}

		reason := "deal not found"
		if deal, ok := deals[it.DealID]; ok {
			reason = deal.InvalidReason(now)
		}
		if reason == "" {
			continue
		}

		result.Valid = false
		result.ExpiredItems = append(result.ExpiredItems, models.ExpiredItem{
			ID:     it.ID,
			DealID: it.DealID,
			Reason: reason,
		})
	}

	if !result.Valid {
		v.logger.Debug("Cart has expired deal lines", zap.Int("expired", len(result.ExpiredItems)))
	}
	return result, deals, nil
}
