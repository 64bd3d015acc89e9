package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/forecast-screen/internal/api/http"
	"github.com/i474232898/forecast-screen/internal/config"
	"github.com/i474232898/forecast-screen/internal/prefs"
	"github.com/i474232898/forecast-screen/internal/scheduler"
	"github.com/i474232898/forecast-screen/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Provider with resilience (backoff + circuit breaker).
	client := providers.NewWeatherAPIClient(httpClient, cfg.WeatherAPIKey, cfg.WeatherAPIBaseURL, cfg.MaxRetries)

	store, err := prefs.Open(cfg.PrefsDriver, cfg.PrefsPath)
	if err != nil {
		log.Fatalf("failed to open preferences: %v", err)
	}
	defer store.Close()

	// Sessions share the client and the preference store.
	reg := httpapi.NewRegistry(client, store, cfg.SessionConfig())
	defer reg.Close()

	// Scheduler that reaps idle sessions.
	sched := scheduler.New(cfg.SessionSweepInterval, cfg.SessionIdleTimeout, reg)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "forecast-api",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"service":  "forecast-api",
			"sessions": reg.Len(),
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, reg)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
