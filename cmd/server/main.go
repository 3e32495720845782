package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/contwre/leadflow/internal/api"
	"github.com/contwre/leadflow/internal/attribution"
	"github.com/contwre/leadflow/internal/config"
	"github.com/contwre/leadflow/internal/dispatch"
	"github.com/contwre/leadflow/internal/domain"
	"github.com/contwre/leadflow/internal/pkg/logger"
	"github.com/contwre/leadflow/internal/qualify"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	logger.SetRedactPII(cfg.Log.RedactEnabled())

	if cfg.Webhook.URL == "" {
		logger.Error("webhook.url is required (or set WEBHOOK_URL)")
		os.Exit(1)
	}

	repo := buildRepository(cfg)
	attr := attribution.NewService(repo)
	dispatcher := dispatch.New(cfg.Webhook.URL, cfg.Webhook.Timeout())
	manager := qualify.NewManager(attr, dispatcher, domain.DefaultQuestions(), cfg.Qualify.InactivityWindow())

	handlers := api.NewHandlers(attr, manager)
	router := api.SetupRoutes(handlers, cfg.CORS.AllowedOrigins)

	addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("leadflow listening", "addr", addr, "webhook", cfg.Webhook.URL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("shutdown incomplete", "error", err)
	}
	// Drain in-flight webhook deliveries before exit
	manager.Close()
}

// buildRepository connects the configured session store. A Redis that is
// enabled but unreachable degrades to the in-process store: attribution
// fidelity is worth less than serving the funnel.
func buildRepository(cfg *config.Config) attribution.Repository {
	if !cfg.Redis.Enabled {
		return attribution.NewMemoryRepository(cfg.Session.TTL())
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	repo := attribution.NewRedisRepository(client, cfg.Session.TTL())
	if err := repo.Ping(context.Background()); err != nil {
		logger.Warn("redis unreachable, using in-memory session store", "addr", cfg.Redis.Addr, "error", err)
		return attribution.NewMemoryRepository(cfg.Session.TTL())
	}
	logger.Info("redis session store connected", "addr", cfg.Redis.Addr)
	return repo
}
