package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-recurring-orders/internal/activity"
	"github.com/ariefcatur/go-recurring-orders/internal/config"
	kafkax "github.com/ariefcatur/go-recurring-orders/internal/kafka"
	"github.com/ariefcatur/go-recurring-orders/internal/logx"
	"github.com/ariefcatur/go-recurring-orders/internal/postgres"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger, err := logx.New(cfg.ServiceName+"-relay", cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	prod := kafkax.NewProducer(cfg.KafkaBrokers, activity.TopicSubscriptionActivity)
	defer func() {
		if err := prod.Close(); err != nil {
			logger.Warn("producer close", zap.Error(err))
		}
	}()

	relay := &activity.Relay{
		Outbox:      &activity.PostgresOutbox{DB: db},
		Producer:    prod,
		ServiceName: cfg.ServiceName,
		Batch:       cfg.RelayBatch,
		Interval:    cfg.RelayInterval,
		Log:         logger,
	}
	logger.Info("activity relay started",
		zap.String("topic", activity.TopicSubscriptionActivity),
		zap.Duration("interval", cfg.RelayInterval),
		zap.Int("batch", cfg.RelayBatch),
	)
	if err := relay.Run(ctx); err != nil {
		logger.Error("relay exit", zap.Error(err))
	}
	logger.Info("activity relay stopped")
}
