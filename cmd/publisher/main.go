package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gorm.io/driver/clickhouse"
	"gorm.io/gorm"

	"github.com/mzare-q/pairstream/configs"
	"github.com/mzare-q/pairstream/internal/analytics"
	"github.com/mzare-q/pairstream/internal/bus"
	"github.com/mzare-q/pairstream/internal/publisher"
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

	pairs := make([]publisher.Pair, 0, len(appConfig.Pairs))
	for _, p := range appConfig.Pairs {
		pairs = append(pairs, publisher.Pair{Y: p.Y, X: p.X})
	}

	pub := publisher.New(engine, kafkaBus, snapshotRepo, pairs, appConfig.TopicPrefix, appConfig.PublishInterval, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pub.Run(ctx)
	logger.Info("Publisher shutdown complete")
}
