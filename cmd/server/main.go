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

	"catalog-service/config"
	"catalog-service/internal/api"
	"catalog-service/internal/broker"
	"catalog-service/internal/clients"
	"catalog-service/internal/redisclient"
	"catalog-service/internal/service"
	"catalog-service/internal/store"
	"catalog-service/internal/util"
	"catalog-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting catalog service")

	tp, err := util.InitTracer(util.ServiceName, cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Database connected")

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(context.Background()); err != nil {
			logger.Fatal("Failed to apply schema", zap.Error(err))
		}
		logger.Info("Database schema applied")
	}

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicImport)
	defer producer.Close()
	logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicImport))

	eventPublisher := broker.NewEventPublisher(producer)

	opts := service.ImportOptions{
		Workers:     cfg.Import.Workers,
		LockTTL:     cfg.Import.LockTTL,
		JobCacheTTL: cfg.Import.FileTTL,
	}
	if cfg.Import.MergeVariants {
		opts.Variants = service.MergeVariants
	}
	if cfg.Import.ReplaceMedia {
		opts.Media = service.ReplaceMedia
	}

	var locker service.SKULocker
	if cfg.Import.LockSKUs {
		locker = redisClient
	}

	importService := service.NewImportService(db, locker, redisClient, eventPublisher, opts)
	jobService := service.NewJobService(db, redisClient)
	catalogService := service.NewCatalogService(db, redisClient)
	shareService := service.NewShareService(db)

	mailer := clients.NewEmailClient(cfg.Notify.EmailEndpoint, cfg.Notify.EmailAPIKey, cfg.Notify.Sender)
	notificationService := service.NewNotificationService(mailer, cfg.Notify.Recipient)
	socialSession := clients.NewSocialSession(cfg.Social.Endpoint, cfg.Social.PageID, cfg.Social.AccessToken)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	importConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicImport, cfg.Kafka.ConsumerGroup+"-import")
	importWorker := worker.NewImportWorker(importConsumer, importService, redisClient)
	go func() {
		if err := importWorker.Start(workerCtx); err != nil && err != context.Canceled {
			logger.Error("Import worker error", zap.Error(err))
		}
	}()

	notifyConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicImport, cfg.Kafka.ConsumerGroup+"-notify")
	notificationWorker := worker.NewNotificationWorker(notifyConsumer, notificationService)
	go func() {
		if err := notificationWorker.Start(workerCtx); err != nil && err != context.Canceled {
			logger.Error("Notification worker error", zap.Error(err))
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(api.Dependencies{
		Imports:   importService,
		Jobs:      jobService,
		Products:  catalogService,
		Share:     shareService,
		Queue:     redisClient,
		Publisher: eventPublisher,
		Social:    socialSession,
		Pingers: map[string]api.Pinger{
			"database": db,
			"redis":    redisClient,
		},
	}, api.Options{
		Enrich:         cfg.Import.Enrich,
		MaxUploadBytes: int64(cfg.Import.MaxUploadMB) << 20,
		FileTTL:        cfg.Import.FileTTL,
		SocialEndpoint: cfg.Social.Endpoint,
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

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	importWorker.Stop()
	notificationWorker.Stop()

	logger.Info("Server exited")
}
