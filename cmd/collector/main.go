package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/mzare-q/pairstream/configs"
	"github.com/mzare-q/pairstream/internal/feed"
	"github.com/mzare-q/pairstream/internal/storage"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	appConfig := configs.AppLoad()

	store, err := storage.NewClickHouseStore(appConfig.DBDSN)
	if err != nil {
		logger.Error("Failed to connect to DB", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	writer := storage.NewWriter(store, logger, storage.WriterConfig{
		BatchSize:    appConfig.Writer.BatchSize,
		BatchTimeout: appConfig.Writer.BatchTimeout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		writer.Run(ctx)
	}()

	logger.Info("Collector started", "symbols", len(appConfig.Symbols))

	feed.RunAll(ctx, appConfig.Symbols, appConfig.Feed.WSURL, writer, feed.NewLogger(), appConfig.Feed.ReconnectDelay)

	wg.Wait()
	logger.Info("Collector shutdown complete")
}
