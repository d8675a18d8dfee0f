package controllers_test

import (
	"context"

	"storefront-service/models"
	"storefront-service/services"
)

type mockCartService struct {
	createFn   func(ctx context.Context, in services.CaptureInput) (*models.AbandonedCart, error)
	getFn      func(ctx context.Context, token string) (*models.AbandonedCart, bool, error)
	suppressFn func(ctx context.Context, token string) (*models.AbandonedCart, error)
	purchaseFn func(ctx context.Context, token string) error
	restoreFn  func(ctx context.Context, token string) (*services.RestoreResult, error)
	claimFn    func(ctx context.Context, ticket string) (*models.RestoredCart, error)
}

func (m *mockCartService) CreateAbandonedCart(ctx context.Context, in services.CaptureInput) (*models.AbandonedCart, error) {
	return m.createFn(ctx, in)
}
func (m *mockCartService) GetAbandonedCartByToken(ctx context.Context, token string) (*models.AbandonedCart, bool, error) {
	return m.getFn(ctx, token)
}
func (m *mockCartService) SuppressAbandonedCartEmails(ctx context.Context, token string) (*models.AbandonedCart, error) {
	return m.suppressFn(ctx, token)
}
func (m *mockCartService) MarkPurchased(ctx context.Context, token string) error {
	return m.purchaseFn(ctx, token)
}
func (m *mockCartService) SuppressAllForEmail(context.Context, string) (int64, error) {
	return 0, nil
}
func (m *mockCartService) Restore(ctx context.Context, token string) (*services.RestoreResult, error) {
	return m.restoreFn(ctx, token)
}
func (m *mockCartService) ClaimRestore(ctx context.Context, ticket string) (*models.RestoredCart, error) {
	return m.claimFn(ctx, ticket)
}

type mockDealValidator struct {
	validateFn func(ctx context.Context, items models.CartItems) (*models.CartValidationResult, error)
}

func (m *mockDealValidator) ValidateCart(ctx context.Context, items models.CartItems) (*models.CartValidationResult, error) {
	return m.validateFn(ctx, items)
}
func (m *mockDealValidator) QuoteCart(context.Context, models.CartItems) ([]services.QuotedLine, error) {
	return nil, nil
}

type mockCheckoutService struct {
	startFn   func(ctx context.Context, token string) (string, error)
	webhookFn func(ctx context.Context, payload []byte, signature string) error
}

func (m *mockCheckoutService) StartCheckout(ctx context.Context, token string) (string, error) {
	return m.startFn(ctx, token)
}
func (m *mockCheckoutService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	return m.webhookFn(ctx, payload, signature)
}

type mockSubscriptionService struct {
	subscribeFn   func(ctx context.Context, req models.SubscribeRequest, meta models.RequestMeta) (string, error)
	unsubscribeFn func(ctx context.Context, email, token string, meta models.RequestMeta) (bool, error)
}

func (m *mockSubscriptionService) Subscribe(ctx context.Context, req models.SubscribeRequest, meta models.RequestMeta) (string, error) {
	return m.subscribeFn(ctx, req, meta)
}
func (m *mockSubscriptionService) Unsubscribe(ctx context.Context, email, token string, meta models.RequestMeta) (bool, error) {
	return m.unsubscribeFn(ctx, email, token, meta)
}
func (m *mockSubscriptionService) UnsubscribeURL(email string) string {
	return "https://deals.example.ca/api/unsubscribe?email=" + email
}
