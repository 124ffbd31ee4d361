package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/psychotest-service/internal/cache"
	"github.com/SAP-F-2025/psychotest-service/internal/config"
	"github.com/SAP-F-2025/psychotest-service/internal/handlers"
	"github.com/SAP-F-2025/psychotest-service/internal/kraepelin"
	"github.com/SAP-F-2025/psychotest-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/psychotest-service/internal/services"
	"github.com/SAP-F-2025/psychotest-service/internal/utils"
	"github.com/SAP-F-2025/psychotest-service/internal/validator"
	"github.com/SAP-F-2025/psychotest-service/pkg"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.NewDefaultLogger().Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := utils.NewLoggerForEnvironment(cfg.Environment)
	slogger := utils.ToSlogLogger(logger)

	// ── Dependencies ────────────────────────────────────────────────
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.LogError(err, "failed to connect database")
		os.Exit(1)
	}
	if err := pkg.AutoMigrate(db); err != nil {
		logger.LogError(err, "failed to migrate database")
		os.Exit(1)
	}

	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		logger.LogError(err, "failed to connect redis")
		os.Exit(1)
	}
	defer redisClient.Close()

	publisher, err := cfg.Events.CreateEventPublisher(slogger)
	if err != nil {
		logger.LogError(err, "failed to create event publisher")
		os.Exit(1)
	}
	defer publisher.Close()

	sessions := cache.NewSessionStore(cache.NewRedisCache(redisClient, slogger), cfg.SessionTTL)

	kraepelinService := services.NewKraepelinService(
		postgres.NewRepository(db),
		sessions,
		publisher,
		kraepelin.NewGenerator(nil),
		cfg.Kraepelin,
		slogger,
		validator.New(),
	)
	transferService := services.NewImportExportService(kraepelinService, slogger)

	// ── Routes ──────────────────────────────────────────────────────
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), utils.LoggerMiddleware(logger), utils.ContextLogger(logger))
	handlers.NewHandlerManager(kraepelinService, transferService, logger).SetupRoutes(router)

	// ── Server ──────────────────────────────────────────────────────
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		logger.LogError(err, "failed to listen", "address", server.Addr)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting server", "address", server.Addr, "environment", cfg.Environment)
	if err := serve(ctx, server, ln, logger); err != nil {
		logger.LogError(err, "server stopped with error")
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// serve runs server on ln until ctx is cancelled, then shuts it down and
// returns only after in-flight requests have completed or shutdownTimeout
// has passed
func serve(ctx context.Context, server *http.Server, ln net.Listener, logger utils.Logger) error {
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve(ln) }()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if err := <-serveErr; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
