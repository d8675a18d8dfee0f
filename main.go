package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"storefront-service/auth"
	"storefront-service/consumer"
	"storefront-service/controllers"
	"storefront-service/database"
	"storefront-service/jobs"
	applogger "storefront-service/logger"
	"storefront-service/middleware"
	aws_pkg "storefront-service/pkg/aws"
	"storefront-service/repository"
	"storefront-service/routes"
	"storefront-service/sender"
	"storefront-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := LoadConfig(ctx)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	awsCfg, err := aws_pkg.LoadAWSConfig(ctx, cfg.AWS.Region, cfg.AWS.Endpoint)
	if err != nil {
		log.Fatalf("failed to load aws config: %v", err)
	}

	var cwWriter io.Writer
	if cfg.AWS.CloudWatchEnabled {
		cw, err := aws_pkg.NewCloudWatchLogsClient(ctx, awsCfg, cfg.AWS.CloudWatchLogGroup, cfg.ServiceName)
		if err != nil {
			log.Printf("cloudwatch logs disabled: %v", err)
		} else {
			cwWriter = cw
		}
	}

	logger, err := applogger.New(cfg.Environment, cwWriter)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(ctx, logger, database.PostgresConfig{
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		DBName:   cfg.Postgres.DBName,
		SSLMode:  cfg.Postgres.SSLMode,
		TimeZone: cfg.Postgres.TimeZone,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	rdb, err := database.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}

	keys, err := auth.DeriveKeys([]byte(cfg.AppSecret))
	if err != nil {
		logger.Fatal("Failed to derive keys", zap.Error(err))
	}

	metricsClient := aws_pkg.NewMetricsClient(awsCfg, cfg.AWS.MetricsNamespace, cfg.AWS.MetricsEnabled)

	var snsPublisher aws_pkg.SNSPublisher
	if cfg.AWS.SNSTopicARN != "" {
		snsPublisher = aws_pkg.NewSNSClient(awsCfg, logger)
	}
	events := services.NewEventPublisher(snsPublisher, cfg.AWS.SNSTopicARN, logger)

	// Repositories
	subscriberRepo := repository.NewGormSubscriberRepository(db)
	consentRepo := repository.NewGormConsentRepository(db)
	cartRepo := repository.NewGormAbandonedCartRepository(db)
	dealRepo := repository.NewGormDealRepository(db)
	orderRepo := repository.NewGormOrderRepository(db)
	restoreStore := repository.NewRedisRestoreStore(rdb)
	txRunner := repository.NewGormTransactor(db)

	// Services
	consentService := services.NewConsentService(consentRepo, txRunner, logger)
	cartService := services.NewCartService(
		cartRepo,
		txRunner,
		restoreStore,
		auth.NewRestoreTicketSigner(keys.Restore, cfg.RestoreTicketTTL),
		events,
		logger,
	)
	dealValidator := services.NewDealValidator(dealRepo, logger)
	subscriptionService := services.NewSubscriptionService(
		subscriberRepo,
		txRunner,
		consentService,
		cartService,
		auth.NewUnsubscribeSigner(keys.Unsubscribe),
		cfg.SiteURL,
		events,
		logger,
	)
	checkoutService := services.NewCheckoutService(
		cartService,
		dealValidator,
		orderRepo,
		services.NewStripeGateway(cfg.StripeAPIKey, cfg.StripeWebhookSecret),
		cfg.CheckoutCurrency,
		cfg.SiteURL,
		logger,
	)

	exposeDetail := !cfg.IsProduction()
	ctrl := routes.Controllers{
		Cart:     controllers.NewCartController(cartService, dealValidator, metricsClient, cfg.SiteURL, exposeDetail, logger),
		Checkout: controllers.NewCheckoutController(checkoutService, metricsClient, exposeDetail, logger),
		Subscription: controllers.NewSubscriptionController(
			subscriptionService,
			auth.NewCookieCodec(keys, controllers.SubscriberCookieTTL),
			metricsClient,
			cfg.SiteURL,
			exposeDetail,
			logger,
		),
		Health: controllers.NewHealthController(cfg.ServiceName, map[string]controllers.Pinger{
			"postgres": func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			"redis": func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			},
		}),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.MetricsMiddleware(metricsClient, cfg.ServiceName))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middleware.Timeout(30 * time.Second))

	limiter := middleware.NewRateLimiter(ctx, rate.Limit(float64(cfg.RateLimitPerMinute)/60), cfg.RateLimitPerMinute, 10*time.Minute)
	routes.RegisterRoutes(r, ctrl, limiter.Middleware())

	scheduler := jobs.NewScheduler(logger)
	if cfg.EmailProvider == "none" {
		logger.Info("EMAIL_PROVIDER=none, cart reminders disabled")
	} else {
		emailSender, err := newEmailSender(cfg)
		if err != nil {
			logger.Fatal("Failed to configure email sender", zap.Error(err))
		}
		reminders := jobs.NewReminderJob(cartRepo, subscriberRepo, subscriptionService, emailSender, metricsClient, jobs.ReminderConfig{
			SiteURL:   cfg.SiteURL,
			Delay:     cfg.ReminderDelay,
			BatchSize: cfg.ReminderBatchSize,
		}, logger)
		if err := scheduler.Add("cart_reminders", cfg.ReminderCron, 5*time.Minute, reminders.Run); err != nil {
			logger.Fatal("Failed to schedule cart reminders", zap.Error(err))
		}
	}
	if cfg.ConsentArchiveBucket != "" {
		archive := jobs.NewConsentArchiveJob(consentRepo, aws_pkg.NewS3Client(awsCfg), cfg.ConsentArchiveBucket, metricsClient, logger)
		if err := scheduler.Add("consent_archive", cfg.ConsentArchiveCron, 10*time.Minute, archive.Run); err != nil {
			logger.Fatal("Failed to schedule consent archive", zap.Error(err))
		}
	}
	scheduler.Start()

	if cfg.AWS.PaymentEventsQueueURL != "" {
		paymentConsumer := consumer.NewPaymentConsumer(
			aws_pkg.NewSQSConsumer(awsCfg, cfg.AWS.PaymentEventsQueueURL, logger),
			cartService,
			metricsClient,
			logger,
		)
		go paymentConsumer.Start(ctx)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Storefront service starting", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("Shutting down storefront service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	scheduler.Stop(shutdownCtx)
	if err := rdb.Close(); err != nil {
		logger.Error("Failed to close redis", zap.Error(err))
	}
	if err := database.Close(db); err != nil {
		logger.Error("Failed to close database", zap.Error(err))
	}

	logger.Info("Storefront service exited")
}

func newEmailSender(cfg *Config) (sender.EmailSender, error) {
	switch cfg.EmailProvider {
	case "smtp":
		s, err := sender.NewSMTPSender(sender.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "mailjet":
		s, err := sender.NewMailjetSender(cfg.Mailjet.PublicKey, cfg.Mailjet.PrivateKey, cfg.Mailjet.FromEmail, cfg.Mailjet.FromName)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return sender.NoopSender{}, nil
	}
}
