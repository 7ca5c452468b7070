package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/config"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/domain"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/email"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/gateway"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/outbox"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/repository"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/service"
	transporthttp "github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/transport/http"
	transportkafka "github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/transport/kafka"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/pkg/ctxlog"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/pkg/db"
	pkgkafka "github.com/Nrad8394/Harmosoft-Book-Store-Backend/pkg/kafka"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/pkg/utils"
	"github.com/go-playground/validator/v10"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad()

	tp, err := utils.InitTracer(ctx, "orders-service")
	if err != nil {
		log.Fatalf("failed to init tracer: %v", err)
	}

	logger, err := config.NewLogger(cfg.Logger, cfg.Env)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := db.NewPostgresPool(ctx, cfg.Postgres.URL)
	if err != nil {
		log.Fatalf("failed to create pool: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})

	validate := validator.New()

	orderRepo := repository.NewOrderRepository(pool, logger)
	catalogRepo := repository.NewCatalogRepository(pool, logger)
	paymentRepo := repository.NewPaymentRepository(pool, logger)
	trackingRepo := repository.NewTrackingRepository(pool, logger)
	receiptRepo := repository.NewReceiptRepository(pool, logger)
	outboxRepo := outbox.NewRepository(pool, logger)

	cardGateway := gateway.NewStripeGateway(gateway.StripeConfig{
		APIKey:   cfg.Stripe.APIKey,
		Currency: cfg.Stripe.Currency,
	}, logger)
	mobileGateway := gateway.NewMpesaGateway(gateway.MpesaConfig{
		BaseURL:        cfg.Mpesa.BaseURL,
		ConsumerKey:    cfg.Mpesa.ConsumerKey,
		ConsumerSecret: cfg.Mpesa.ConsumerSecret,
		Shortcode:      cfg.Mpesa.Shortcode,
		Passkey:        cfg.Mpesa.Passkey,
		InitiatorName:  cfg.Mpesa.InitiatorName,
		CallbackURL:    cfg.Mpesa.CallbackURL,
		ResultURL:      cfg.Mpesa.ResultURL,
		TimeoutURL:     cfg.Mpesa.TimeoutURL,
	}, logger)

	sender := email.NewSMTPSender(cfg.SMTP, logger)

	catalogService := service.NewCachedCatalogService(
		service.NewCatalogService(logger, catalogRepo),
		redisClient,
		cfg.Redis.CacheTTL,
	)
	ledgerService := service.NewLedgerService(pool, logger, orderRepo, catalogRepo)
	reconcilerService := service.NewReconcilerService(pool, logger, orderRepo, paymentRepo, outboxRepo, cardGateway, mobileGateway)
	trackingService := service.NewTrackingService(pool, logger, orderRepo, trackingRepo)
	receiptService := service.NewReceiptService(logger, orderRepo, receiptRepo, sender)

	kafkaProducer, err := pkgkafka.NewProducer(cfg.Kafka.Brokers)
	if err != nil {
		log.Fatalf("error creating kafka producer: %v", err)
	}
	defer func() {
		if err := kafkaProducer.Close(); err != nil {
			logger.Warn("failed to close kafka producer", zap.Error(err))
		}
	}()

	outboxProcessor := outbox.NewProcessor(pool, outboxRepo, kafkaProducer, logger)
	go outboxProcessor.Start(ctx)

	eventConsumer := transportkafka.NewConsumer(pool, logger, trackingService, receiptService)
	consumerGroup := pkgkafka.NewConsumerGroup(
		cfg.Kafka.Brokers,
		transportkafka.GroupID,
		[]string{domain.TopicPaymentEvents},
		eventConsumer.Handle,
		logger,
	)
	go consumerGroup.Run(ctx)

	app := fiber.New(fiber.Config{
		ReadTimeout: cfg.HTTP.Timeout,
	})

	handlers := &transporthttp.Handlers{
		Order:    transporthttp.NewOrderHandler(ledgerService, logger, validate),
		Payment:  transporthttp.NewPaymentHandler(reconcilerService, logger, validate),
		Tracking: transporthttp.NewTrackingHandler(trackingService, logger),
		Catalog:  transporthttp.NewCatalogHandler(catalogService, logger, validate),
	}
	transporthttp.RegisterRoutes(app, handlers)

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTP.Port)
		if err := app.Listen(cfg.HTTP.Port); err != nil {
			log.Fatalf("error serving http: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, exit := context.WithTimeout(context.Background(), 5*time.Second)
	defer exit()

	ctxlog.Info(shutdownCtx, logger, "Shutting down orders service")

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		ctxlog.Warn(shutdownCtx, logger, "Failed to shut down http server", zap.Error(err))
	}

	if err := tp.Shutdown(shutdownCtx); err != nil {
		ctxlog.Warn(shutdownCtx, logger, "Failed to shut down telemetry", zap.Error(err))
	}

	if err := redisClient.Close(); err != nil {
		ctxlog.Warn(shutdownCtx, logger, "Failed to close redis client", zap.Error(err))
	}

	pool.Close()
}
