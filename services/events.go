package services

import (
	"context"
	"encoding/json"

	aws_pkg "storefront-service/pkg/aws"

	"go.uber.org/zap"
)

// SNS event types published by this service.
const (
	EventCartCaptured           = "cart.captured"
	EventCartPurchased          = "cart.purchased"
	EventSubscriberSubscribed   = "subscriber.subscribed"
	EventSubscriberUnsubscribed = "subscriber.unsubscribed"
)

// EventPublisher sends domain events to SNS. Publishing never fails the
// caller; errors are logged.
type EventPublisher struct {
	sns      aws_pkg.SNSPublisher
	topicArn string
	logger   *zap.Logger
}

func NewEventPublisher(sns aws_pkg.SNSPublisher, topicArn string, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{sns: sns, topicArn: topicArn, logger: logger}
}

func (p *EventPublisher) Publish(ctx context.Context, eventType string, event interface{}) {
	if p == nil || p.sns == nil || p.topicArn == "" {
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal event", zap.String("event_type", eventType), zap.Error(err))
		return
	}

	if err := p.sns.Publish(ctx, p.topicArn, eventType, body); err != nil {
		p.logger.Warn("Failed to publish event", zap.String("event_type", eventType), zap.Error(err))
		return
	}
	p.logger.Debug("Event published", zap.String("event_type", eventType))
}
