package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docuvec/docuvec/internal/app"
	"github.com/docuvec/docuvec/internal/config"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle SIGINT/SIGTERM for graceful shutdown
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		<-c
		cancel()
	}()

	cfg := config.LoadConfig()

	logger, closeLog := config.SetupLogger(cfg.LogFile, slog.LevelInfo)
	defer closeLog()
	slog.SetDefault(logger)

	application, err := app.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer application.Close()

	go func() {
		if err := application.Server.Start(); err != nil {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := application.Server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
