package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/farm2home/internal/config"
	"github.com/example/farm2home/internal/email"
	"github.com/example/farm2home/internal/infrastructure/kafka"
	"github.com/example/farm2home/internal/infrastructure/logger"
	"github.com/example/farm2home/internal/notification"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "notifier: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		fmt.Fprintf(os.Stderr, "notifier: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if len(cfg.Kafka.Brokers) == 0 {
		log.Fatal("no kafka brokers configured")
	}

	log.Info("email notification service",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.Topic),
		zap.String("group", cfg.Kafka.GroupID),
		zap.String("smtp", cfg.SMTP.Host+":"+cfg.SMTP.Port),
		zap.String("from", cfg.SMTP.From),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	emailSvc := email.NewService(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From)
	handler := notification.NewHandler(emailSvc, log)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, log)
	defer consumer.Close()

	log.Info("starting event consumer")
	if err := consumer.Consume(ctx, handler.HandleEvent); err != nil && ctx.Err() == nil {
		log.Error("consumer stopped", zap.Error(err))
	}
	log.Info("shutting down")
}
