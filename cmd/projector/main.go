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
	"github.com/ariefcatur/go-recurring-orders/internal/projector"
	"github.com/ariefcatur/go-recurring-orders/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger, err := logx.New(cfg.ServiceName+"-projector", cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Service
	svc := &projector.Service{
		Cache: &redisx.StatusCache{RDB: rdb},
		Dedup: &redisx.Dedup{RDB: rdb, Service: "projector"},
		Log:   logger,
	}

	// Consumer
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ProjectorGroup, activity.TopicSubscriptionActivity, cfg.ProjectorWorkers, logger)

	done := make(chan struct{})
	go func() {
		defer close(done)
		logger.Info("projector consumer started",
			zap.String("group", cfg.ProjectorGroup),
			zap.String("topic", activity.TopicSubscriptionActivity),
			zap.Int("workers", cfg.ProjectorWorkers),
		)
		if err := cons.Start(ctx, svc.HandleActivity); err != nil {
			logger.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	logger.Info("shutting down consumer")
	cancel()
	<-done
}
