package consumer

import (
	"context"
	"encoding/json"
	"errors"

	"storefront-service/apperrors"
	"storefront-service/models"
	aws_pkg "storefront-service/pkg/aws"
	"storefront-service/services"

	"go.uber.org/zap"
)

// Poller delivers queue message bodies to a handler until ctx ends.
type Poller interface {
	StartPolling(ctx context.Context, handler aws_pkg.MessageHandler) error
}

// PaymentConsumer marks carts purchased from payment events on SQS.
type PaymentConsumer struct {
	poller  Poller
	carts   services.CartService
	metrics *aws_pkg.MetricsClient
	logger  *zap.Logger
}

// NewPaymentConsumer creates a new SQS-based payment event consumer
func NewPaymentConsumer(poller Poller, carts services.CartService, metrics *aws_pkg.MetricsClient, logger *zap.Logger) *PaymentConsumer {
	return &PaymentConsumer{poller: poller, carts: carts, metrics: metrics, logger: logger}
}

// Start begins polling the payment events queue
func (c *PaymentConsumer) Start(ctx context.Context) {
	c.logger.Info("Starting payment events queue consumer")

	err := c.poller.StartPolling(ctx, c.HandleMessage)
	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error("Payment events polling stopped", zap.Error(err))
	}
}

// HandleMessage processes one message. Only storage failures are returned so
// that SQS redelivers; anything malformed is dropped.
func (c *PaymentConsumer) HandleMessage(ctx context.Context, body string) error {
	// Try to unwrap SNS envelope if present
	var snsEnvelope struct {
		Message string `json:"Message"`
	}
	if err := json.Unmarshal([]byte(body), &snsEnvelope); err == nil && snsEnvelope.Message != "" {
		body = snsEnvelope.Message
	}

	var evt models.PaymentEvent
	if err := json.Unmarshal([]byte(body), &evt); err != nil {
		c.logger.Warn("Dropping payment event with invalid JSON", zap.Error(err))
		return nil
	}
	c.metrics.RecordCountAsync(aws_pkg.MetricSQSMessages, map[string]string{"Type": evt.Type})

	if evt.Type != models.PaymentEventSucceeded {
		c.logger.Debug("Ignoring payment event", zap.String("type", evt.Type))
		return nil
	}

	token := evt.Metadata["cart_token"]
	if token == "" {
		c.logger.Debug("Payment event without cart token", zap.String("payment_id", evt.PaymentID))
		return nil
	}

	if err := c.carts.MarkPurchased(ctx, token); err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) || apperrors.Is(err, apperrors.KindValidation) {
			c.logger.Warn("Payment event for unknown cart", zap.String("payment_id", evt.PaymentID))
			return nil
		}
		return err
	}

	c.metrics.RecordCountAsync(aws_pkg.MetricCartsPurchased, nil)
	c.logger.Info("Cart purchased from payment event", zap.String("payment_id", evt.PaymentID))
	return nil
}
