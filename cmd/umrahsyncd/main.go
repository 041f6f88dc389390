package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/reactivity-apps/Ummrah-App-sub001/internal/auth"
	"github.com/reactivity-apps/Ummrah-App-sub001/internal/cache"
	"github.com/reactivity-apps/Ummrah-App-sub001/internal/feed"
	"github.com/reactivity-apps/Ummrah-App-sub001/internal/observability"
	"github.com/reactivity-apps/Ummrah-App-sub001/internal/push"
	"github.com/reactivity-apps/Ummrah-App-sub001/internal/scheduler"
	"github.com/reactivity-apps/Ummrah-App-sub001/internal/server"
	"github.com/reactivity-apps/Ummrah-App-sub001/internal/store"
)

var (
	logLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "umrahsyncd",
	Short: "umrahsyncd — trip schedule and broadcast sync engine",
	Long:  "Real-time sync engine for trip schedules and broadcast notifications, with optimistic mutations and scheduled push delivery.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the sync server",
	RunE:  runServer,
}

var (
	bindAddr          string
	dataDir           string
	cacheDir          string
	jwtSecret         string
	pushEndpoint      string
	schedulerEnabled  = true
	schedulerInterval = 15 * time.Second
	shutdownTimeout   = 2 * time.Second
	otelEnabled       bool
	otelEndpoint      string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	serverCmd.Flags().StringVar(&bindAddr, "bind", ":8080", "HTTP server bind address")
	serverCmd.Flags().StringVar(&dataDir, "data-dir", "data", "Directory for the SQLite database")
	serverCmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Directory for the local Badger cache (defaults to <data-dir>/cache)")
	serverCmd.Flags().StringVar(&jwtSecret, "jwt-secret", "", "HS256 secret for bearer tokens (or set UMRAHSYNC_JWT_SECRET)")
	serverCmd.Flags().StringVar(&pushEndpoint, "push-endpoint", "https://exp.host/--/api/v2/push/send", "Push gateway URL; empty disables delivery")
	serverCmd.Flags().BoolVar(&schedulerEnabled, "scheduler-enabled", true, "Run the in-process promotion sweeper")
	serverCmd.Flags().DurationVar(&schedulerInterval, "scheduler-interval", 15*time.Second, "Promotion sweep cadence")
	serverCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 2*time.Second, "Graceful HTTP shutdown timeout")
	serverCmd.Flags().BoolVar(&otelEnabled, "otel-enabled", false, "Enable OpenTelemetry tracing")
	serverCmd.Flags().StringVar(&otelEndpoint, "otel-endpoint", "", "OTLP HTTP endpoint (host:port) for traces; if empty uses stdout exporter")

	rootCmd.AddCommand(serverCmd)
}

func setupLogging() {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func resolveJWTSecret() ([]byte, error) {
	secret := strings.TrimSpace(jwtSecret)
	if secret == "" {
		secret = strings.TrimSpace(os.Getenv("UMRAHSYNC_JWT_SECRET"))
	}
	if secret == "" {
		return nil, fmt.Errorf("jwt secret required: set --jwt-secret or UMRAHSYNC_JWT_SECRET")
	}
	return []byte(secret), nil
}

func runServer(cmd *cobra.Command, args []string) error {
	secret, err := resolveJWTSecret()
	if err != nil {
		return err
	}
	if cacheDir == "" {
		cacheDir = dataDir + "/cache"
	}

	slog.Info("starting umrahsyncd server",
		"bind", bindAddr,
		"data_dir", dataDir,
		"cache_dir", cacheDir,
		"push_endpoint", pushEndpoint,
		"scheduler_enabled", schedulerEnabled,
		"scheduler_interval", schedulerInterval,
		"otel_enabled", otelEnabled,
		"otel_endpoint", otelEndpoint,
	)

	otelShutdown, err := observability.Setup(observability.Config{
		Enabled:  otelEnabled,
		Service:  "umrahsyncd",
		Endpoint: otelEndpoint,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			slog.Warn("tracing shutdown error", "error", err)
		}
	}()

	db, err := store.Open(dataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	hub := feed.NewHub()
	st := store.NewStore(db, hub)
	defer st.Close()

	localCache, err := cache.Open(cacheDir)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer localCache.Close()

	gate := auth.NewProvisionalGate(auth.NewMembershipGate(st), localCache)

	var fanout *push.Fanout
	if strings.TrimSpace(pushEndpoint) != "" {
		fanout = push.NewFanout(st, push.NewHTTPTransport(pushEndpoint), slog.Default())
	}

	sweeper := scheduler.New(st, fanout, scheduler.Config{Interval: schedulerInterval})
	var sweepCancel context.CancelFunc = func() {}
	if schedulerEnabled {
		var sweepCtx context.Context
		sweepCtx, sweepCancel = context.WithCancel(context.Background())
		go sweeper.Run(sweepCtx)
	}

	srv := server.New(st, gate, sweeper, fanout, secret, bindAddr)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("umrahsyncd server ready", "bind", bindAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh
	slog.Info("received shutdown signal", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown error", "error", err)
	}

	slog.Info("stopping sweeper")
	sweepCancel()

	slog.Info("umrahsyncd server stopped")
	return nil
}
