// server/cmd/api/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"car-listing-api-server/config"
	"car-listing-api-server/internal/app"
	"car-listing-api-server/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 1. Load configuration
	cfg, err := config.LoadConfig("./config")
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}

	// 2. Logger
	zlog, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Could not build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	gin.SetMode(cfg.Server.Mode)

	// 3. Connect backing services and build the server
	application, err := app.New(context.Background(), cfg, zlog)
	if err != nil {
		zlog.Fatal("Failed to initialize application", zap.Error(err))
	}

	// 4. Serve until SIGINT/SIGTERM
	errCh := make(chan error, 1)
	go func() { errCh <- application.Run() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		zlog.Info("Shutting down server", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			zlog.Error("Server error", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := application.Stop(ctx); err != nil {
		zlog.Error("Server forced to shutdown", zap.Error(err))
		return
	}
	zlog.Info("Server exited")
}
