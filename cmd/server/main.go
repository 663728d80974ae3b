package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/roudra323/TeamFlow/internal/auth"
	"github.com/roudra323/TeamFlow/internal/config"
	"github.com/roudra323/TeamFlow/internal/db"
	"github.com/roudra323/TeamFlow/internal/handlers"
	"github.com/roudra323/TeamFlow/internal/logging"
	"github.com/roudra323/TeamFlow/internal/metrics"
	"github.com/roudra323/TeamFlow/internal/middleware"
	"github.com/roudra323/TeamFlow/internal/realtime"
	"github.com/roudra323/TeamFlow/internal/router"
	"github.com/roudra323/TeamFlow/internal/storage"
)

// Set via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "teamflow",
		Short:        "Collaborative task board API with realtime presence",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(configPath)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(configPath)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(configPath)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version and build info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("teamflow %s (%s)\n", Version, GitCommit)
		},
	}

	rootCmd.AddCommand(serveCmd, migrateCmd, versionCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runMigrate(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	closer := logging.Setup(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if closer != nil {
		defer closer.Close()
	}
	log := logging.WithComponent("migrate")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return err
	}
	log.Info().Msg("schema applied")
	return nil
}

func runServer(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	closer := logging.Setup(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if closer != nil {
		defer closer.Close()
	}
	log := logging.WithComponent("server")
	log.Info().Str("version", Version).Str("port", cfg.Port).Msg("starting teamflow")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	store, err := db.New(connectCtx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer store.Close()
	if err := store.Migrate(connectCtx); err != nil {
		return err
	}

	blobs, err := storage.New(connectCtx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	authService, err := auth.NewService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("init auth: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	rtLog := logging.WithComponent("realtime")
	hub := realtime.NewHub(m)
	registry := realtime.NewRegistry()
	rooms := realtime.NewRooms(hub, rtLog, m)
	lifecycle := realtime.NewLifecycle(registry, rooms, rtLog, m)
	broadcaster := realtime.NewBroadcaster(rooms, rtLog, cfg.StrictEvents)
	wsServer := realtime.NewServer(hub, lifecycle, cfg.FrontendOrigin, rtLog)

	reconciler := realtime.NewReconciler(registry, hub, cfg.ReconcileInterval, logging.WithComponent("reconciler"), m)
	go reconciler.Run(ctx)

	api := handlers.NewAPI(store, authService, blobs, broadcaster, registry, logging.WithComponent("api"))
	api.MaxUpload = cfg.Storage.MaxUploadBytes

	opts := router.Options{
		Origin:         cfg.FrontendOrigin,
		Limiter:        newLimiter(ctx, cfg),
		WS:             wsServer,
		Metrics:        m,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Health:         store.Ping,
		Log:            logging.WithComponent("http"),
	}
	if disk, ok := blobs.(*storage.DiskStore); ok {
		opts.Uploads = http.FileServer(http.Dir(disk.Root()))
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(api, authService, opts),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Warn().Err(err).Msg("systemd notify failed")
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	return nil
}

// newLimiter prefers the shared Redis limiter and falls back to the
// in-process one when Redis is not configured or not reachable.
func newLimiter(ctx context.Context, cfg config.Config) middleware.Limiter {
	log := logging.WithComponent("ratelimit")
	if cfg.RedisURL != "" {
		limiter, err := middleware.NewRedisRateLimiter(cfg.RedisURL, cfg.RateLimit, cfg.RateWindow)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err = limiter.Ping(pingCtx)
			cancel()
			if err == nil {
				log.Info().Msg("using redis rate limiter")
				return limiter
			}
			_ = limiter.Close()
		}
		log.Warn().Err(err).Msg("redis unavailable, using in-process rate limiter")
	}
	return middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
}
