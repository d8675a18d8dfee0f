package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"storefront-service/apperrors"
	"storefront-service/auth"
	"storefront-service/models"
	"storefront-service/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxTokenAttempts bounds session token regeneration on a uniqueness collision.
const maxTokenAttempts = 3

const (
	captureConsentSource = "cart_capture"
	defaultCaptureText   = "Email provided at cart to save the cart and receive reminders about it."
)

var errTokenCollision = errors.New("session token collided on every attempt")

// RestoreOutcome is the result of following a resume-cart link.
type RestoreOutcome uint8

const (
	RestoreOK RestoreOutcome = iota
	RestoreInvalid
	RestoreExpired
	RestoreAlreadyPurchased
)

// QueryValue is the error query parameter the storefront understands.
func (o RestoreOutcome) QueryValue() string {
	switch o {
	case RestoreExpired:
		return "expired"
	case RestoreAlreadyPurchased:
		return "already_purchased"
	case RestoreInvalid:
		return "invalid"
	default:
		return ""
	}
}

// RestoreResult carries the restore ticket for an OK outcome.
type RestoreResult struct {
	Outcome RestoreOutcome
	Ticket  string
	Cart    *models.AbandonedCart
}

// CaptureInput is a capture request plus the token already held by the
// browser, if any.
type CaptureInput struct {
	Request       models.CaptureCartRequest
	ExistingToken string
	Meta          models.RequestMeta
}

// CartService manages abandoned cart sessions.
type CartService interface {
	CreateAbandonedCart(ctx context.Context, in CaptureInput) (*models.AbandonedCart, error)
	GetAbandonedCartByToken(ctx context.Context, token string) (*models.AbandonedCart, bool, error)
	SuppressAbandonedCartEmails(ctx context.Context, token string) (*models.AbandonedCart, error)
	MarkPurchased(ctx context.Context, token string) error
	SuppressAllForEmail(ctx context.Context, email string) (int64, error)
	Restore(ctx context.Context, token string) (*RestoreResult, error)
	ClaimRestore(ctx context.Context, ticket string) (*models.RestoredCart, error)
}

type cartServiceImpl struct {
	carts   repository.AbandonedCartRepository
	tx      repository.Transactor
	restore repository.RestoreStore
	tickets *auth.RestoreTicketSigner
	events  *EventPublisher
	logger  *zap.Logger
}

// NewCartService creates a new CartService.
func NewCartService(
	carts repository.AbandonedCartRepository,
	tx repository.Transactor,
	restore repository.RestoreStore,
	tickets *auth.RestoreTicketSigner,
	events *EventPublisher,
	logger *zap.Logger,
) CartService {
	return &cartServiceImpl{
		carts:   carts,
		tx:      tx,
		restore: restore,
		tickets: tickets,
		events:  events,
		logger:  logger,
	}
}

// CreateAbandonedCart validates the capture and either refreshes the browser's
// current active cart for the same email or creates a new one with a fresh
// session token.
func (s *cartServiceImpl) CreateAbandonedCart(ctx context.Context, in CaptureInput) (*models.AbandonedCart, error) {
	req := in.Request
	req.Email = auth.NormalizeEmail(req.Email)
	if err := validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	if sum := req.CartItems.Total(); sum != req.CartTotal {
		s.logger.Warn("Cart total does not match snapshot",
			zap.Int64("cart_total", req.CartTotal),
			zap.Int64("snapshot_total", sum),
		)
	}

	now := time.Now()

	if in.ExistingToken != "" {
		cart, err := s.refreshExisting(ctx, in.ExistingToken, &req, now)
		if err != nil {
			return nil, err
		}
		if cart != nil {
			return cart, nil
		}
	}

	consentText := req.ConsentText
	if consentText == "" {
		consentText = defaultCaptureText
	}
	pageMeta := in.Meta
	if req.PageURL != "" {
		pageMeta.PageURL = req.PageURL
	}

	cart := &models.AbandonedCart{
		Email:        req.Email,
		CartSnapshot: req.CartItems,
		DealID:       req.DealID,
		DealEndsAt:   req.DealEndsAt,
		PostalCode:   req.PostalCode,
		ShippingZone: req.ShippingZone,
		CartTotal:    req.CartTotal,
		Status:       models.CartStatusActive,
		ExpiresAt:    now.Add(models.AbandonedCartTTL),
	}
	consent := ConsentInput{
		Email:         req.Email,
		ConsentType:   models.ConsentTypeImpliedInquiry,
		ConsentSource: captureConsentSource,
		ConsentText:   consentText,
		Meta:          pageMeta,
	}
	if err := s.createWithFreshToken(ctx, cart, consent); err != nil {
		return nil, err
	}

	s.logger.Info("Abandoned cart captured", zap.String("cart_id", cart.ID.String()), zap.Int64("cart_total", cart.CartTotal))
	s.events.Publish(ctx, EventCartCaptured, models.CartEvent{
		EventType: EventCartCaptured,
		CartID:    cart.ID.String(),
		Email:     cart.Email,
		CartTotal: cart.CartTotal,
		Timestamp: now,
	})
	return cart, nil
}

// refreshExisting updates the cart behind token when it is active, unexpired
// and belongs to the same email. A nil cart means a new one must be created.
func (s *cartServiceImpl) refreshExisting(ctx context.Context, token string, req *models.CaptureCartRequest, now time.Time) (*models.AbandonedCart, error) {
	cart, found, err := s.GetAbandonedCartByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !found || cart.Status != models.CartStatusActive || cart.Expired(now) || cart.Email != req.Email {
		return nil, nil
	}

	cart.CartSnapshot = req.CartItems
	cart.DealID = req.DealID
	cart.DealEndsAt = req.DealEndsAt
	cart.PostalCode = req.PostalCode
	cart.ShippingZone = req.ShippingZone
	cart.CartTotal = req.CartTotal
	cart.ExpiresAt = now.Add(models.AbandonedCartTTL)

	if err := s.carts.RefreshActive(ctx, cart); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// purchased or suppressed between the read and the write
			return nil, nil
		}
		return nil, apperrors.Storage("update abandoned cart", err)
	}

	s.logger.Info("Abandoned cart refreshed", zap.String("cart_id", cart.ID.String()))
	return cart, nil
}

// createWithFreshToken inserts the cart and its capture consent together. Each
// attempt gets its own transaction since a unique violation aborts it.
func (s *cartServiceImpl) createWithFreshToken(ctx context.Context, cart *models.AbandonedCart, consent ConsentInput) error {
	for attempt := 1; attempt <= maxTokenAttempts; attempt++ {
		token, err := auth.NewSessionToken()
		if err != nil {
			return apperrors.Storage("issue session token", err)
		}
		cart.SessionToken = token

		err = s.tx.WithinTx(ctx, func(st repository.Stores) error {
			if err := st.Carts.Create(ctx, cart); err != nil {
				return err
			}
			_, err := insertConsent(ctx, st.Consents, s.logger, consent)
			return err
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			var appErr *apperrors.Error
			if errors.As(err, &appErr) {
				return err
			}
			return apperrors.Storage("create abandoned cart", err)
		}
		s.logger.Warn("Session token collision, regenerating", zap.Int("attempt", attempt))
	}
	return apperrors.Storage("create abandoned cart", errTokenCollision)
}

// GetAbandonedCartByToken returns found=false, not an error, for unknown tokens.
func (s *cartServiceImpl) GetAbandonedCartByToken(ctx context.Context, token string) (*models.AbandonedCart, bool, error) {
	if token == "" {
		return nil, false, nil
	}
	cart, err := s.carts.FindByToken(ctx, token)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.Storage("load abandoned cart", err)
	}
	return cart, true, nil
}

// SuppressAbandonedCartEmails stops reminders for an active cart. It is a
// no-op for carts already suppressed or purchased.
func (s *cartServiceImpl) SuppressAbandonedCartEmails(ctx context.Context, token string) (*models.AbandonedCart, error) {
	if token == "" {
		return nil, apperrors.Validation("token is required")
	}

	n, err := s.carts.Suppress(ctx, token, time.Now())
	if err != nil {
		return nil, apperrors.Storage("suppress abandoned cart", err)
	}

	cart, found, err := s.GetAbandonedCartByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.NotFound("cart")
	}

	if n > 0 {
		s.logger.Info("Abandoned cart reminders suppressed", zap.String("cart_id", cart.ID.String()))
	}
	return cart, nil
}

// MarkPurchased moves the cart to purchased. Repeat calls are no-ops.
func (s *cartServiceImpl) MarkPurchased(ctx context.Context, token string) error {
	if token == "" {
		return apperrors.Validation("token is required")
	}

	now := time.Now()
	n, err := s.carts.MarkPurchased(ctx, token, now)
	if err != nil {
		return apperrors.Storage("mark cart purchased", err)
	}

	cart, found, err := s.GetAbandonedCartByToken(ctx, token)
	if err != nil {
		return err
	}
	if !found {
		return apperrors.NotFound("cart")
	}
	if n == 0 {
		return nil
	}

	s.logger.Info("Abandoned cart purchased", zap.String("cart_id", cart.ID.String()))
	s.events.Publish(ctx, EventCartPurchased, models.CartEvent{
		EventType: EventCartPurchased,
		CartID:    cart.ID.String(),
		Email:     cart.Email,
		CartTotal: cart.CartTotal,
		Timestamp: now,
	})
	return nil
}

// SuppressAllForEmail suppresses every active cart for the email.
func (s *cartServiceImpl) SuppressAllForEmail(ctx context.Context, email string) (int64, error) {
	n, err := s.carts.SuppressActiveByEmail(ctx, auth.NormalizeEmail(email), time.Now())
	if err != nil {
		return 0, apperrors.Storage("suppress carts for email", err)
	}
	return n, nil
}

// Restore decides what a resume-cart link leads to. For a restorable cart the
// snapshot is parked under a one-time ticket. Suppressed carts are still
// restorable; suppression only stops emails.
func (s *cartServiceImpl) Restore(ctx context.Context, token string) (*RestoreResult, error) {
	cart, found, err := s.GetAbandonedCartByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !found {
		return &RestoreResult{Outcome: RestoreInvalid}, nil
	}
	if cart.Status == models.CartStatusPurchased {
		return &RestoreResult{Outcome: RestoreAlreadyPurchased, Cart: cart}, nil
	}
	if cart.Expired(time.Now()) {
		return &RestoreResult{Outcome: RestoreExpired, Cart: cart}, nil
	}

	payload, err := json.Marshal(models.RestoredCart{
		Email:        cart.Email,
		Items:        cart.CartSnapshot,
		CartTotal:    cart.CartTotal,
		DealID:       cart.DealID,
		PostalCode:   cart.PostalCode,
		ShippingZone: cart.ShippingZone,
	})
	if err != nil {
		return nil, apperrors.Storage("encode restore payload", err)
	}

	nonce, err := s.tickets.NewNonce()
	if err != nil {
		return nil, apperrors.Storage("issue restore nonce", err)
	}
	if err := s.restore.Put(ctx, nonce, payload, s.tickets.TTL()); err != nil {
		return nil, apperrors.Storage("store restore payload", err)
	}
	ticket, err := s.tickets.Issue(nonce)
	if err != nil {
		return nil, apperrors.Storage("sign restore ticket", err)
	}

	s.logger.Info("Abandoned cart restore issued", zap.String("cart_id", cart.ID.String()))
	return &RestoreResult{Outcome: RestoreOK, Ticket: ticket, Cart: cart}, nil
}

// ClaimRestore exchanges a ticket for its snapshot exactly once.
func (s *cartServiceImpl) ClaimRestore(ctx context.Context, ticket string) (*models.RestoredCart, error) {
	nonce, err := s.tickets.Parse(ticket)
	if err != nil {
		return nil, apperrors.Gone("restore link expired")
	}

	payload, err := s.restore.Take(ctx, nonce)
	if errors.Is(err, repository.ErrRestoreStateGone) {
		return nil, apperrors.Gone("restore link expired")
	}
	if err != nil {
		return nil, apperrors.Storage("claim restore payload", err)
	}

	var restored models.RestoredCart
	if err := json.Unmarshal(payload, &restored); err != nil {
		return nil, apperrors.Storage("decode restore payload", err)
	}
	return &restored, nil
}
