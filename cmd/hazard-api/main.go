package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/climatechai/go-hazard-risk/internal/advisor"
	"github.com/climatechai/go-hazard-risk/internal/api"
	"github.com/climatechai/go-hazard-risk/internal/config"
	"github.com/climatechai/go-hazard-risk/internal/logging"
	"github.com/climatechai/go-hazard-risk/internal/repository"
	"github.com/climatechai/go-hazard-risk/internal/risk"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	store, err := repository.New(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		logging.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := store.Init(ctx); err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}

	opts := risk.Options{
		QuakeWindow:     time.Duration(cfg.Assess.QuakeHours) * time.Hour,
		QuakeRadiusKm:   cfg.Assess.QuakeRadiusKm,
		WeatherWindow:   time.Duration(cfg.Assess.WeatherHours) * time.Hour,
		WeatherRadiusKm: cfg.Assess.WeatherRadiusKm,
	}
	assessor := risk.NewAssessor(store, opts)

	var generator advisor.TextGenerator
	if cfg.Advisor.Enabled && cfg.Advisor.APIKey != "" {
		generator = advisor.NewClient(cfg.Advisor.BaseURL, cfg.Advisor.APIKey, cfg.Advisor.Model, cfg.Advisor.Timeout)
		slog.Info("advisor enabled", "model", cfg.Advisor.Model)
	} else {
		slog.Info("advisor disabled, advice endpoint serves rule-based fallback")
	}
	composer := advisor.NewComposer(generator)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false, // Set to false when using wildcard origins
	}))
	router.Use(api.RateLimitMiddleware(5, 10)) // 5 req/s global limit

	handler := api.NewHandler(store, assessor, composer, opts)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}
