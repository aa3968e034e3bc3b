package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/granada-sport/server/internal/auth"
	"github.com/granada-sport/server/internal/config"
	"github.com/granada-sport/server/internal/database"
	"github.com/granada-sport/server/internal/handler"
	"github.com/granada-sport/server/internal/middleware"
	"github.com/granada-sport/server/internal/queue"
	"github.com/granada-sport/server/internal/repository"
	"github.com/granada-sport/server/internal/router"
	"github.com/granada-sport/server/internal/service"
)

var serverPort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server and accept API requests until SIGINT or SIGTERM.

Examples:
  # Start with configuration from the environment
  server serve

  # Apply pending migrations first, on another port
  MIGRATE_ON_START=true server serve --port 9090`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if serverPort != "" {
			cfg.Port = serverPort
		}
		return runServer(cfg, logger)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverPort, "port", "", "server port (default: APP_PORT or 8000)")
}

func runServer(cfg config.Config, logger zerolog.Logger) error {
	db, err := database.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		if err := database.MigrateUp(db); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
		logger.Info().Msg("migrations applied")
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		logger.Warn().Msg("redis unavailable; rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}
	cacheCfg := config.LoadCacheConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var activity service.ActivityRecorder
	if cfg.Activity.Enabled {
		pub := queue.NewPublisher(cfg.Activity.URL, cfg.Activity.Queue, logger)
		defer pub.Close()
		activity = pub

		consumer := queue.Consumer{URL: cfg.Activity.URL, Queue: cfg.Activity.Queue, LogPath: cfg.Activity.LogPath, Logger: logger}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("activity consumer stopped")
			}
		}()
	}

	users := repository.NewUserRepo(db)
	events := repository.NewEventRepo(db)
	parts := repository.NewParticipationRepo(db)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTTL, cfg.JWTIssuer)

	directory := service.NewUserDirectory(users, cfg.BcryptCost, activity, logger)
	catalog := service.NewEventCatalog(events, activity, middleware.NewListingCache(cacheCfg, rdb), logger)
	ledger := service.NewParticipationLedger(events, parts, activity, logger)
	authenticator := service.NewAuthenticator(users, tokens, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(logger))
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger)

	router.RegisterRoutes(e, db)
	router.RegisterUsers(e, handler.NewUserHandler(directory, authenticator), authenticator, limit)
	router.RegisterEvents(e, handler.NewEventHandler(catalog, ledger), authenticator, limit,
		middleware.NewRedisCache(cacheCfg, rdb, logger))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Str("env", cfg.Env).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}
	return nil
}
