package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Mikhail1201/FAYES/internal/app"
	"github.com/Mikhail1201/FAYES/internal/config"
	"github.com/Mikhail1201/FAYES/internal/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logger.NewLogger(cfg)
	defer logger.Close()

	gin.SetMode(gin.ReleaseMode)

	application, err := app.NewApp(cfg, logger)
	if err != nil {
		logger.Error("Failed to start controller: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		logger.Error("Controller stopped with error: %v", err)
		os.Exit(1)
	}
}
