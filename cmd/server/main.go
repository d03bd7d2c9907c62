package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/config"
	"storefront/internal/api"
	"storefront/internal/auth"
	"storefront/internal/broker"
	"storefront/internal/email"
	"storefront/internal/locker"
	"storefront/internal/models"
	"storefront/internal/paymob"
	"storefront/internal/realtime"
	"storefront/internal/redisclient"
	"storefront/internal/service"
	"storefront/internal/store"
	"storefront/internal/store/memstore"
	"storefront/internal/util"
	"storefront/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	app := &cli.App{
		Name:  "storefront",
		Usage: "multi-seller storefront API",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP API",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "memory", Usage: "keep data in memory instead of Postgres"},
				},
				Action: func(c *cli.Context) error {
					return serve(c.Bool("memory"))
				},
			},
			{
				Name:      "migrate",
				Usage:     "apply or revert database migrations",
				ArgsUsage: "up|down",
				Action: func(c *cli.Context) error {
					direction := c.Args().First()
					if direction == "" {
						direction = "up"
					}
					return migrate(direction)
				},
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func migrate(direction string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := store.NewStore(cfg.Database.URL, store.Options{MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(direction); err != nil {
		return err
	}
	log.Printf("Migrations applied: %s", direction)
	return nil
}

func serve(inMemory bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront", zap.String("env", cfg.Server.Env), zap.Bool("memory", inMemory))

	tp, err := util.InitTracer("storefront", cfg.Tracing.JaegerEndpoint, cfg.Server.Env)
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down tracer", zap.Error(err))
		}
	}()

	var (
		repo  models.Repository
		ready []func(context.Context) error
	)
	if inMemory {
		repo = memstore.New()
		logger.Warn("Using in-memory store, data is lost on exit")
	} else {
		db, err := store.NewStore(cfg.Database.URL, store.Options{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return err
		}
		defer db.Close()
		repo = db
		ready = append(ready, db.Ping)
		logger.Info("Database connected")
	}

	var redisClient *redisclient.Client
	if cfg.Redis.Enabled {
		redisClient, err = redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer redisClient.Close()
		ready = append(ready, redisClient.Ping)
		logger.Info("Redis connected")
	}

	var stockLocks locker.Locker = locker.NewLocal(cfg.Checkout.LockWait)
	if cfg.Checkout.LockBackend == "redis" {
		stockLocks = locker.NewRedis(redisClient, cfg.Checkout.LockTTL, cfg.Checkout.LockWait)
	}

	var idempotency service.IdempotencyStore
	if redisClient != nil {
		idempotency = redisClient
	}

	var gateway service.PaymentGateway
	if cfg.PaymobEnabled() {
		gateway = paymob.NewClient(paymob.Config{
			BaseURL:         cfg.Paymob.BaseURL,
			SecretKey:       cfg.Paymob.SecretKey,
			PublicKey:       cfg.Paymob.PublicKey,
			IntegrationIDs:  cfg.Paymob.IntegrationIDs,
			Currency:        cfg.Paymob.Currency,
			NotificationURL: cfg.Paymob.WebhookURL,
			RedirectionURL:  cfg.Paymob.RedirectURL,
		}, nil)
	} else {
		logger.Warn("Paymob keys not set, online payments disabled")
	}

	var mailer email.Sender = email.NewLogSender()
	if cfg.SMTP.Host != "" {
		mailer = email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			FromName: cfg.SMTP.FromName,
		})
	}

	var google auth.GoogleVerifier
	if len(cfg.Google.ClientIDs) > 0 {
		google = auth.NewIDTokenVerifier(cfg.Google.ClientIDs)
	}

	hub := realtime.NewHub(cfg.Server.AllowedOrigins)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTL)

	notifications := service.NewNotificationService(repo, hub, mailer)
	eventHandler := worker.NewEventHandler(notifications)

	// Kafka decouples notification fan-out from requests; without it events
	// are handled inline.
	var (
		publisher broker.Publisher
		consumer  *broker.Consumer
	)
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
		defer producer.Close()
		publisher = producer
		consumer = broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
		logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	} else {
		publisher = broker.NewInlinePublisher(eventHandler)
	}
	events := broker.NewEventPublisher(publisher)

	coupons := service.NewCouponService(repo)
	authService := service.NewAuthService(repo, tokens, google, cfg.Auth.RefreshTokenTTL)

	services := api.Services{
		Auth:          authService,
		Otp:           service.NewOtpService(repo, authService, mailer, cfg.OTP.TTL, cfg.OTP.Length),
		Addresses:     service.NewAddressService(repo),
		Products:      service.NewProductService(repo),
		Reviews:       service.NewReviewService(repo),
		Carts:         service.NewCartService(repo, coupons, cfg.Checkout.ShippingFee),
		Orders:        service.NewOrderService(repo, coupons, stockLocks, gateway, events, cfg.Checkout.ShippingFee),
		Coupons:       coupons,
		Notifications: notifications,
		Webhooks: service.NewPaymobWebhookService(repo, coupons, stockLocks,
			paymob.NewHMACValidator(cfg.Paymob.HMACSecret), idempotency, events),
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	notificationWorker := worker.NewNotificationWorker(consumer, eventHandler)
	go func() {
		if err := notificationWorker.Start(workerCtx); err != nil && err != context.Canceled {
			logger.Error("Notification worker error", zap.Error(err))
		}
	}()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(services, tokens, hub, api.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		CookieSecure:   cfg.Auth.CookieSecure,
		CookieDomain:   cfg.Auth.CookieDomain,
		Ready: func(ctx context.Context) error {
			for _, check := range ready {
				if err := check(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if err := notificationWorker.Stop(); err != nil {
		logger.Error("Error stopping worker", zap.Error(err))
	}

	logger.Info("Server exited")
	return nil
}
