package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"storefront-service/apperrors"
	"storefront-service/auth"
	"storefront-service/models"
	"storefront-service/repository"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
	"github.com/stripe/stripe-go/v80/webhook"
	"go.uber.org/zap"
)

// PaymentGateway is the slice of Stripe this service calls.
type PaymentGateway interface {
	NewCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

// StripeGateway calls the Stripe API with the configured keys.
type StripeGateway struct {
	webhookSecret string
}

func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{webhookSecret: webhookSecret}
}

func (g *StripeGateway) NewCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return session.New(params)
}

func (g *StripeGateway) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, signature, g.webhookSecret)
}

// CheckoutService hands carts to Stripe Checkout and completes them from
// Stripe webhooks.
type CheckoutService interface {
	StartCheckout(ctx context.Context, sessionToken string) (string, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type checkoutServiceImpl struct {
	carts    CartService
	deals    DealValidator
	orders   repository.OrderRepository
	gateway  PaymentGateway
	currency string
	siteURL  string
	logger   *zap.Logger
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(
	carts CartService,
	deals DealValidator,
	orders repository.OrderRepository,
	gateway PaymentGateway,
	currency, siteURL string,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutServiceImpl{
		carts:    carts,
		deals:    deals,
		orders:   orders,
		gateway:  gateway,
		currency: strings.ToLower(currency),
		siteURL:  strings.TrimSuffix(siteURL, "/"),
		logger:   logger,
	}
}

// StartCheckout creates a Stripe Checkout Session for the cart and returns its
// hosted URL.
func (s *checkoutServiceImpl) StartCheckout(ctx context.Context, sessionToken string) (string, error) {
	if sessionToken == "" {
		return "", apperrors.Validation("sessionToken is required")
	}

	cart, found, err := s.carts.GetAbandonedCartByToken(ctx, sessionToken)
	if err != nil {
		return "", err
	}
	if !found {
		return "", apperrors.NotFound("cart")
	}
	if cart.Status == models.CartStatusPurchased {
		return "", apperrors.Conflict("cart has already been purchased")
	}
	if cart.Expired(time.Now()) {
		return "", apperrors.Conflict("cart has expired")
	}

	lines, err := s.deals.QuoteCart(ctx, cart.CartSnapshot)
	if err != nil {
		return "", err
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		CustomerEmail:     stripe.String(cart.Email),
		ClientReferenceID: stripe.String(cart.ID.String()),
		SuccessURL:        stripe.String(s.siteURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(s.siteURL + "/cart"),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{"cart_token": sessionToken},
		},
	}
	params.Context = ctx
	params.AddMetadata("cart_token", sessionToken)
	params.AddMetadata("email", cart.Email)

	for _, line := range lines {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(line.Quantity)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(s.currency),
				UnitAmount: stripe.Int64(line.UnitPrice),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(line.Name),
				},
			},
		})
	}

	sess, err := s.gateway.NewCheckoutSession(params)
	if err != nil {
		return "", apperrors.Storage("create checkout session", err)
	}

	s.logger.Info("Checkout session created",
		zap.String("cart_id", cart.ID.String()),
		zap.String("stripe_session_id", sess.ID),
	)
	return sess.URL, nil
}

// HandleWebhook verifies a Stripe event and completes paid checkouts. It is
// safe to call again for a redelivered event.
func (s *checkoutServiceImpl) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gateway.ConstructEvent(payload, signature)
	if err != nil {
		s.logger.Warn("Stripe webhook signature verification failed", zap.Error(err))
		return apperrors.Validation("invalid webhook signature")
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return apperrors.Validation("invalid checkout session payload")
		}
		return s.completeCheckout(ctx, &sess)
	default:
		s.logger.Debug("Ignoring stripe event", zap.String("type", string(event.Type)))
		return nil
	}
}

func (s *checkoutServiceImpl) completeCheckout(ctx context.Context, sess *stripe.CheckoutSession) error {
	token := sess.Metadata["cart_token"]
	if token == "" {
		s.logger.Warn("Checkout session without cart token", zap.String("stripe_session_id", sess.ID))
		return nil
	}

	// Delayed payment methods complete the session before funds arrive. Every
	// line is priced above zero, so no_payment_required never completes a cart.
	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		s.logger.Info("Checkout session not paid yet",
			zap.String("stripe_session_id", sess.ID),
			zap.String("payment_status", string(sess.PaymentStatus)),
		)
		return nil
	}

	email := sess.Metadata["email"]
	if sess.CustomerDetails != nil && sess.CustomerDetails.Email != "" {
		email = sess.CustomerDetails.Email
	}

	order := &models.Order{
		SessionToken:    token,
		StripeSessionID: sess.ID,
		Email:           auth.NormalizeEmail(email),
		AmountTotal:     sess.AmountTotal,
		Currency:        string(sess.Currency),
		Status:          models.OrderStatusPaid,
	}
	created, err := s.orders.CreateIfAbsent(ctx, order)
	if err != nil {
		return apperrors.Storage("record order", err)
	}
	if !created {
		s.logger.Info("Order already recorded", zap.String("stripe_session_id", sess.ID))
	}

	if err := s.carts.MarkPurchased(ctx, token); err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			s.logger.Warn("Paid checkout for unknown cart", zap.String("stripe_session_id", sess.ID))
			return nil
		}
		return err
	}
	return nil
}
