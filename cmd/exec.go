package cmd

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v5"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"

	"waitline-system/config"
	"waitline-system/handlers"
	"waitline-system/internal/backend"
	_ "waitline-system/migrations"
	"waitline-system/monitoring"
	"waitline-system/security"
	"waitline-system/services"
	"waitline-system/utils"
)

func Start() error {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file, using process environment")
	}

	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL)
	defer redisClient.Close()

	// Initialize PubNub
	pnConfig := pubnub.NewConfig()
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey

	pn := pubnub.NewPubNub(pnConfig)

	// Venue queue backend client
	venueBackend := backend.NewClient(&backend.ClientConfig{
		BaseURL: cfg.BackendBaseURL,
		VenueID: cfg.BackendVenueID,
		APIKey:  cfg.BackendAPIKey,
		HMACKey: cfg.BackendHMACKey,
	})

	// Initialize services
	var monitor *monitoring.Monitor
	if cfg.EnableMetrics {
		monitor = monitoring.NewMonitor(redisClient)
	}

	store := services.NewStore(redisClient)
	queueService := services.NewQueueService(store, pn, venueBackend, cfg, monitor)

	// Initialize handlers
	queueHandler := handlers.NewQueueHandler(app, queueService)
	handoffHandler := handlers.NewHandoffHandler(app, queueService)
	adminHandler := handlers.NewAdminHandler(app, queueService, cfg)

	joinLimiter := security.NewRateLimiter(redisClient, cfg.JoinRateLimit, cfg.JoinRateWindow)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Create context for background tasks
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load the persisted snapshot and resume any current guest
	if sync := queueService.Start(ctx); sync == services.SyncDegraded {
		log.Println("Started from local snapshot; venue backend unreachable")
	}
	defer queueService.Stop()

	// Metrics server
	if cfg.EnableMetrics {
		go serveMetrics(cfg.MetricsPort)
	}

	// Setup graceful shutdown
	go handleShutdown(cancel)

	// Register routes
	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Waitline endpoints
		e.Router.POST("/api/waitline/join", joinLimiter.Wrap(queueHandler.Join))
		e.Router.GET("/api/waitline/current", queueHandler.Current)
		e.Router.GET("/api/waitline/entries", queueHandler.Entries)
		e.Router.POST("/api/waitline/cancel", queueHandler.Cancel)
		e.Router.GET("/api/waitline/metrics", queueHandler.Metrics)

		// Reservation handoff endpoints
		e.Router.POST("/api/waitline/handoff", handoffHandler.Stage)
		e.Router.GET("/api/waitline/handoff", handoffHandler.Peek)

		// Host stand endpoints
		e.Router.GET("/api/admin/waitline", adminHandler.Waitline)
		e.Router.POST("/api/admin/waitline/notify", adminHandler.Notify)
		e.Router.POST("/api/admin/waitline/remove", adminHandler.Remove)

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		return e.Next()
	})

	// Start server
	return app.Start()
}

// serveMetrics exposes prometheus metrics on a separate port.
func serveMetrics(port string) {
	e := echo.New()
	e.GET("/metrics", func(c echo.Context) error {
		promhttp.Handler().ServeHTTP(c.Response(), c.Request())
		return nil
	})

	if err := http.ListenAndServe(":"+port, e); err != nil {
		log.Printf("Metrics server stopped: %v", err)
	}
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
