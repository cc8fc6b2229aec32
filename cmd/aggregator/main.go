package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pressly/goose/v3"
	"gorm.io/driver/clickhouse"
	"gorm.io/gorm"

	"github.com/mzare-q/pairstream/configs"
	"github.com/mzare-q/pairstream/internal/aggregator"
	"github.com/mzare-q/pairstream/internal/repository"
	"github.com/mzare-q/pairstream/internal/storage"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	appConfig := configs.AppLoad()

	db, err := gorm.Open(clickhouse.Open(appConfig.DBDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	migrateFlag := flag.Bool("migrate", false, "Run database migrations and exit")
	flag.Parse()

	if *migrateFlag {
		sqlDB, err := db.DB()
		if err != nil {
			log.Fatalf("Failed to get sql.DB: %v", err)
		}
		if err := goose.SetDialect("clickhouse"); err != nil {
			log.Fatalf("Goose: failed to set dialect: %v", err)
		}
		log.Println("Running database migrations...")
		if err := goose.Up(sqlDB, "internal/migrations"); err != nil {
			log.Fatalf("Goose migration failed: %v", err)
		}
		log.Println("Migrations completed successfully")
		return
	}

	tickStore, err := storage.NewClickHouseStore(appConfig.DBDSN)
	if err != nil {
		logger.Error("Failed to connect to tick store", "error", err)
		os.Exit(1)
	}
	defer tickStore.Close()

	candleRepo := repository.NewGormCandleRepository(db)

	agg := aggregator.New(tickStore, candleRepo, appConfig.Symbols, logger, aggregator.Config{
		Interval: appConfig.Aggregator.Interval,
		Lookback: appConfig.Aggregator.Lookback,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agg.Run(ctx)
	logger.Info("Aggregator shutdown complete")
}
