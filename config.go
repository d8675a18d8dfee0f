package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"storefront-service/auth"
	aws_pkg "storefront-service/pkg/aws"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"storefront-service"`
	SiteURL     string `env:"SITE_URL" envDefault:"http://localhost:3000"`

	AllowedOrigins     []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	RateLimitPerMinute int      `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`

	Postgres PostgresConfig `envPrefix:"POSTGRES_"`
	RedisURL string         `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	AppSecret        string        `env:"APP_SECRET"`
	RestoreTicketTTL time.Duration `env:"RESTORE_TICKET_TTL" envDefault:"60s"`

	StripeAPIKey        string `env:"STRIPE_API_KEY"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	CheckoutCurrency    string `env:"CHECKOUT_CURRENCY" envDefault:"cad"`

	EmailProvider string        `env:"EMAIL_PROVIDER" envDefault:"none"`
	SMTP          SMTPConfig    `envPrefix:"SMTP_"`
	Mailjet       MailjetConfig `envPrefix:"MAILJET_"`

	ReminderCron         string        `env:"REMINDER_CRON" envDefault:"*/15 * * * *"`
	ReminderDelay        time.Duration `env:"REMINDER_DELAY" envDefault:"1h"`
	ReminderBatchSize    int           `env:"REMINDER_BATCH_SIZE" envDefault:"100"`
	ConsentArchiveCron   string        `env:"CONSENT_ARCHIVE_CRON" envDefault:"15 3 * * *"`
	ConsentArchiveBucket string        `env:"CONSENT_ARCHIVE_BUCKET"`

	AWS AWSConfig
}

type PostgresConfig struct {
	Host     string `env:"HOST"`
	Port     string `env:"PORT" envDefault:"5432"`
	User     string `env:"USER"`
	Password string `env:"PASSWORD"`
	DBName   string `env:"DB"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`
	TimeZone string `env:"TIMEZONE" envDefault:"UTC"`
}

type SMTPConfig struct {
	Host     string `env:"HOST"`
	Port     string `env:"PORT" envDefault:"587"`
	Username string `env:"USER"`
	Password string `env:"PASS"`
	From     string `env:"FROM"`
}

type MailjetConfig struct {
	PublicKey  string `env:"PUBLIC_KEY"`
	PrivateKey string `env:"PRIVATE_KEY"`
	FromEmail  string `env:"FROM_EMAIL"`
	FromName   string `env:"FROM_NAME" envDefault:"Weekly Flooring Deals"`
}

type AWSConfig struct {
	Region                string `env:"AWS_REGION" envDefault:"ca-central-1"`
	Endpoint              string `env:"AWS_ENDPOINT"`
	UseSecrets            bool   `env:"AWS_USE_SECRETS"`
	SecretsPrefix         string `env:"AWS_SECRETS_PREFIX" envDefault:"storefront/"`
	SNSTopicARN           string `env:"STOREFRONT_SNS_TOPIC_ARN"`
	PaymentEventsQueueURL string `env:"PAYMENT_EVENTS_QUEUE_URL"`
	CloudWatchEnabled     bool   `env:"CLOUDWATCH_ENABLED"`
	CloudWatchLogGroup    string `env:"CLOUDWATCH_LOG_GROUP" envDefault:"/storefront/storefront-service"`
	MetricsEnabled        bool   `env:"CLOUDWATCH_METRICS_ENABLED"`
	MetricsNamespace      string `env:"CLOUDWATCH_METRICS_NAMESPACE" envDefault:"Storefront"`
}

// secretFetcher is the part of the Secrets Manager client LoadConfig needs.
type secretFetcher interface {
	GetSecretJSON(ctx context.Context, name string, out interface{}) error
}

// LoadConfig reads .env (if present) and the environment. With
// AWS_USE_SECRETS=true, credentials in Secrets Manager override env values.
func LoadConfig(ctx context.Context) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.AWS.UseSecrets {
		awsCfg, err := aws_pkg.LoadAWSConfig(ctx, cfg.AWS.Region, cfg.AWS.Endpoint)
		if err != nil {
			return nil, err
		}
		if err := cfg.applySecrets(ctx, aws_pkg.NewSecretsClient(awsCfg, cfg.AWS.SecretsPrefix)); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applySecrets(ctx context.Context, sm secretFetcher) error {
	var db map[string]string
	if err := sm.GetSecretJSON(ctx, aws_pkg.SecretDBCredentials, &db); err != nil {
		return err
	}
	override(&c.Postgres.Host, db["POSTGRES_HOST"])
	override(&c.Postgres.Port, db["POSTGRES_PORT"])
	override(&c.Postgres.User, db["POSTGRES_USER"])
	override(&c.Postgres.Password, db["POSTGRES_PASSWORD"])
	override(&c.Postgres.DBName, db["POSTGRES_DB"])

	var app map[string]string
	if err := sm.GetSecretJSON(ctx, aws_pkg.SecretAppSecrets, &app); err != nil {
		return err
	}
	override(&c.AppSecret, app["APP_SECRET"])
	override(&c.StripeAPIKey, app["STRIPE_API_KEY"])
	override(&c.StripeWebhookSecret, app["STRIPE_WEBHOOK_SECRET"])
	override(&c.SMTP.Password, app["SMTP_PASS"])
	override(&c.Mailjet.PrivateKey, app["MAILJET_PRIVATE_KEY"])
	return nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func (c *Config) Validate() error {
	if c.Postgres.Host == "" || c.Postgres.User == "" || c.Postgres.Password == "" || c.Postgres.DBName == "" {
		return errors.New("database config incomplete")
	}
	if len(c.AppSecret) < auth.MinSecretLength {
		return fmt.Errorf("APP_SECRET must be at least %d bytes", auth.MinSecretLength)
	}

	site, err := url.Parse(c.SiteURL)
	if err != nil || site.Scheme == "" || site.Host == "" {
		return fmt.Errorf("SITE_URL must be an absolute url, got %q", c.SiteURL)
	}

	switch c.EmailProvider {
	case "none":
	case "smtp":
		if c.SMTP.Host == "" {
			return errors.New("SMTP_HOST is required when EMAIL_PROVIDER=smtp")
		}
	case "mailjet":
		if c.Mailjet.PublicKey == "" || c.Mailjet.PrivateKey == "" || c.Mailjet.FromEmail == "" {
			return errors.New("MAILJET_PUBLIC_KEY, MAILJET_PRIVATE_KEY and MAILJET_FROM_EMAIL are required when EMAIL_PROVIDER=mailjet")
		}
	default:
		return fmt.Errorf("unknown EMAIL_PROVIDER %q", c.EmailProvider)
	}

	if c.RestoreTicketTTL <= 0 {
		return errors.New("RESTORE_TICKET_TTL must be positive")
	}
	if c.ReminderDelay <= 0 {
		return errors.New("REMINDER_DELAY must be positive")
	}
	if c.RateLimitPerMinute <= 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
