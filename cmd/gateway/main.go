package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gorm.io/driver/clickhouse"
	"gorm.io/gorm"

	"github.com/mzare-q/pairstream/configs"
	"github.com/mzare-q/pairstream/internal/analytics"
	"github.com/mzare-q/pairstream/internal/bus"
	"github.com/mzare-q/pairstream/internal/gateway"
	"github.com/mzare-q/pairstream/internal/repository"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	appConfig := configs.AppLoad()

	db, err := gorm.Open(clickhouse.Open(appConfig.DBDSN), &gorm.Config{})
	if err != nil {
		logger.Error("Failed to connect to DB", "error", err)
		os.Exit(1)
	}

	candleRepo := repository.NewGormCandleRepository(db)
	snapshotRepo := repository.NewGormSnapshotRepository(db)
	engine := analytics.NewEngine(candleRepo, appConfig.RollingWindow, logger)

	kafkaBus := bus.NewKafka(appConfig.KafkaBroker, logger)
	defer kafkaBus.Close()

	hub := gateway.NewHub(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pairKeys := make([]string, 0, len(appConfig.Pairs))
	for _, p := range appConfig.Pairs {
		pairKeys = append(pairKeys, p.Key())
		topic := bus.Topic(appConfig.TopicPrefix, p.Y, p.X)
		go func(topic string) {
			if err := hub.Dispatch(ctx, kafkaBus, topic); err != nil {
				logger.Error("Dispatch failed", "topic", topic, "error", err)
			}
		}(topic)
	}

	server := gateway.NewServer(hub, snapshotRepo, candleRepo, engine, appConfig.TopicPrefix, pairKeys, logger)
	router := gateway.NewRouter(server, appConfig.Gateway.RateLimitRPS)

	logger.Info("Gateway started", "port", appConfig.Gateway.Port, "pairs", len(pairKeys))

	if err := router.Run(fmt.Sprintf(":%s", appConfig.Gateway.Port)); err != nil {
		logger.Error("Gateway stopped with error", "error", err)
		os.Exit(1)
	}
}
