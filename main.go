package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"petalpaint/internal/app"
	"petalpaint/internal/config"
	"petalpaint/internal/logger"

	"go.uber.org/zap"
)

func main() {
	// --- Configuration ---
	cfg := config.Load()

	zl, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zl.Sync()

	// --- Wiring ---
	// A database failure is fatal; Redis and RabbitMQ fall back to in-process
	// implementations.
	application, err := app.New(cfg, zl)
	if err != nil {
		zl.Fatal("Failed to initialize application", zap.Error(err))
	}

	// --- Start HTTP Server ---
	go func() {
		zl.Info("Starting server", zap.String("port", cfg.AppPort), zap.String("env", cfg.AppEnv))
		if err := application.Fiber.Listen(cfg.AppPort); err != nil {
			zl.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zl.Info("Shutting down server...")

	if err := application.Fiber.ShutdownWithTimeout(10 * time.Second); err != nil {
		zl.Error("Error during Fiber shutdown", zap.Error(err))
	}
	if err := application.Close(); err != nil {
		zl.Error("Error closing backing services", zap.Error(err))
	}
	zl.Info("Server gracefully stopped")
}
