package jobs

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"storefront-service/models"
	"storefront-service/pages"
	aws_pkg "storefront-service/pkg/aws"
	"storefront-service/repository"
	"storefront-service/sender"

	"go.uber.org/zap"
)

const reminderSubject = "You left something in your cart"

// UnsubscribeLinker builds signed one-click unsubscribe links.
type UnsubscribeLinker interface {
	UnsubscribeURL(email string) string
}

type ReminderConfig struct {
	SiteURL   string
	Delay     time.Duration
	BatchSize int
}

// ReminderJob emails one recovery reminder per abandoned cart.
type ReminderJob struct {
	carts       repository.AbandonedCartRepository
	subscribers repository.SubscriberRepository
	links       UnsubscribeLinker
	email       sender.EmailSender
	metrics     *aws_pkg.MetricsClient
	cfg         ReminderConfig
	logger      *zap.Logger
	now         func() time.Time
}

func NewReminderJob(
	carts repository.AbandonedCartRepository,
	subscribers repository.SubscriberRepository,
	links UnsubscribeLinker,
	email sender.EmailSender,
	metrics *aws_pkg.MetricsClient,
	cfg ReminderConfig,
	logger *zap.Logger,
) *ReminderJob {
	cfg.SiteURL = strings.TrimSuffix(cfg.SiteURL, "/")
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &ReminderJob{
		carts:       carts,
		subscribers: subscribers,
		links:       links,
		email:       email,
		metrics:     metrics,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// Run sends reminders for one batch of due carts. A failed send leaves the
// cart due so the next run retries it.
func (j *ReminderJob) Run(ctx context.Context) error {
	now := j.now()
	due, err := j.carts.FindDueReminders(ctx, now.Add(-j.cfg.Delay), now, j.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("find due reminders: %w", err)
	}
	if len(due) == 0 {
		return nil
	}

	emails := make([]string, 0, len(due))
	for _, cart := range due {
		emails = append(emails, cart.Email)
	}
	unsubscribed, err := j.subscribers.UnsubscribedAmong(ctx, emails)
	if err != nil {
		return fmt.Errorf("load unsubscribed emails: %w", err)
	}

	var sent, failed, skipped int
	for i := range due {
		if err := ctx.Err(); err != nil {
			return err
		}
		cart := &due[i]

		if unsubscribed[cart.Email] {
			// Withdrawn consent covers carts captured afterwards too.
			if _, err := j.carts.SuppressActiveByEmail(ctx, cart.Email, now); err != nil {
				j.logger.Warn("Failed to suppress carts for unsubscribed email", zap.String("cart_id", cart.ID.String()), zap.Error(err))
			}
			skipped++
			continue
		}

		if err := j.send(ctx, cart); err != nil {
			j.logger.Warn("Reminder send failed", zap.String("cart_id", cart.ID.String()), zap.Error(err))
			j.metrics.RecordCountAsync(aws_pkg.MetricRemindersFailed, nil)
			failed++
			continue
		}

		if err := j.carts.MarkReminderSent(ctx, cart.ID, j.now()); err != nil {
			// The cart stays due and may be emailed again next run.
			j.logger.Error("Failed to mark reminder sent", zap.String("cart_id", cart.ID.String()), zap.Error(err))
		}
		j.metrics.RecordCountAsync(aws_pkg.MetricRemindersSent, nil)
		sent++
	}

	j.logger.Info("Reminder run complete",
		zap.Int("due", len(due)),
		zap.Int("sent", sent),
		zap.Int("failed", failed),
		zap.Int("skipped", skipped),
	)
	return nil
}

func (j *ReminderJob) send(ctx context.Context, cart *models.AbandonedCart) error {
	data := pages.Reminder{
		Email:          cart.Email,
		Total:          pages.FormatCents(cart.CartTotal),
		ResumeURL:      j.cartLink("/api/cart/restore", cart.SessionToken),
		StopURL:        j.cartLink("/api/cart/suppress", cart.SessionToken),
		UnsubscribeURL: j.links.UnsubscribeURL(cart.Email),
	}
	if cart.DealEndsAt != nil {
		data.DealEndsAt = cart.DealEndsAt.Format("Monday, January 2")
	}
	for _, it := range cart.CartSnapshot {
		name := it.Name
		if name == "" {
			name = it.ID
		}
		data.Items = append(data.Items, pages.ReminderItem{
			Name:      name,
			Quantity:  it.Quantity,
			LineTotal: pages.FormatCents(int64(it.Quantity) * it.Price),
		})
	}

	html, text, err := pages.RenderReminder(data)
	if err != nil {
		return err
	}
	res, err := j.email.SendEmail(ctx, sender.Email{
		To:       cart.Email,
		Subject:  reminderSubject,
		HTMLBody: html,
		TextBody: text,
	})
	if err != nil {
		return err
	}

	j.logger.Info("Reminder sent", zap.String("cart_id", cart.ID.String()), zap.String("message_id", res.MessageID))
	return nil
}

func (j *ReminderJob) cartLink(path, token string) string {
	return j.cfg.SiteURL + path + "?token=" + url.QueryEscape(token)
}
