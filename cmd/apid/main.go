package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rowan/genbridge/internal/api"
	"github.com/rowan/genbridge/internal/api/middleware"
	"github.com/rowan/genbridge/internal/backend"
	"github.com/rowan/genbridge/internal/config"
	"github.com/rowan/genbridge/internal/domain"
	"github.com/rowan/genbridge/internal/engine"
	"github.com/rowan/genbridge/internal/logger"
)

// pushDialer adapts the websocket dialer to the engine's interface.
type pushDialer struct {
	d *backend.PushDialer
}

func (p pushDialer) Dial(ctx context.Context, workflowID string, onJob func(domain.Job), onState func(bool)) (engine.PushSession, error) {
	session, err := p.d.Dial(ctx, workflowID, onJob, onState)
	if err != nil {
		return nil, err
	}
	return session, nil
}

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger := logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		LogFile:     cfg.Log.File,
		ServiceName: "genbridge",
	})
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Initialize backend client and push dialer
	client := backend.NewClient(&backend.ClientConfig{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout,
	})
	push := pushDialer{d: backend.NewPushDialer(cfg.Backend.WSURL, appLogger)}

	// Initialize the sync engine
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	manager := engine.NewManager(ctx, client, push, cfg.Media.InputDir, engine.Options{
		ClockInterval:   cfg.Sync.ClockInterval,
		RefreshInterval: cfg.Sync.RefreshInterval,
		RecheckDelay:    cfg.Sync.RecheckDelay,
	}, appLogger)
	defer manager.Close()

	// Set up HTTP server
	router := api.SetupRouter(manager, cfg.Server.Mode, middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	}, appLogger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithField("port", cfg.Server.Port).Info("genbridge listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("server error")
		}
	}()

	<-ctx.Done()
	appLogger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("graceful shutdown failed")
	}
}
