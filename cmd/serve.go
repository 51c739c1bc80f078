package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/api"
	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/config"
	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/geo"
	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/places"
	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/query"
	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/refresh"
	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/store"
	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/upstream"
	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/video"
	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/weather"
)

var (
	listenAddr    string
	storageDriver string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the weatherd daemon (default command)",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "HTTP listen address (overrides config)")
	serveCmd.Flags().StringVar(&storageDriver, "storage-driver", "", "storage driver (overrides config)")
	rootCmd.AddCommand(serveCmd)

	// Make serve the default command.
	rootCmd.RunE = runServe
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Apply flag overrides.
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	if storageDriver != "" {
		cfg.Storage.Driver = storageDriver
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	setupLogging(cfg.LogFormat)

	slog.Info("starting weatherd",
		"listen_addr", cfg.ListenAddr,
		"storage_driver", cfg.Storage.Driver,
		"refresh_enabled", cfg.Refresh.Enabled,
	)

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck

	slog.Info("database ready", "driver", cfg.Storage.Driver)

	orch, err := buildOrchestrator(cfg, s)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := api.NewServer(s, orch, slog.Default())
	srv.SetVersion(Version)
	storagePath := cfg.DSN()
	if cfg.Storage.Driver == "postgres" {
		storagePath = redactDSN(storagePath)
	}
	srv.SetStorageInfo(cfg.Storage.Driver, storagePath)
	srv.SetQueryDefaults(query.Options{ForecastDays: cfg.Upstream.ForecastDays})

	var scheduler *refresh.Scheduler
	if cfg.Refresh.Enabled {
		scheduler = refresh.NewScheduler(s, orch, cfg.Refresh.Interval, cfg.Refresh.MaxAge, slog.Default())
		if err := scheduler.Start(); err != nil {
			return err
		}
	}

	slog.Info("weatherd ready", "addr", cfg.ListenAddr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(gctx, cfg.ListenAddr) })

	waitErr := g.Wait()
	if waitErr != nil && !errors.Is(waitErr, context.Canceled) {
		slog.Error("weatherd exited with error", "error", waitErr)
	}

	// Always run graceful cleanup, even on error.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if scheduler != nil {
		scheduler.Stop()
	}
	_ = srv.Shutdown(shutdownCtx)
	_ = s.Close()

	slog.Info("weatherd shutdown complete")
	if waitErr != nil && !errors.Is(waitErr, context.Canceled) {
		return waitErr
	}
	return nil
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		return store.NewPostgresStore(cfg.DSN())
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return store.NewSQLiteStore(cfg.DSN())
	}
}

// buildOrchestrator wires the resolver and upstream clients from config.
// The places and video clients are optional: without their API keys the
// corresponding data is simply skipped.
func buildOrchestrator(cfg *config.Config, s store.Store) (*query.Orchestrator, error) {
	httpClient := upstream.NewClient(cfg.Upstream.Timeout)

	resolver := geo.NewNominatim(cfg.Upstream.NominatimBaseURL, httpClient, slog.Default())

	weatherClient, err := weather.NewClient(cfg.Upstream.OpenWeatherBaseURL, cfg.Upstream.OpenWeatherAPIKey, httpClient)
	if err != nil {
		return nil, err
	}

	var placesClient query.PlacesClient
	if cfg.Upstream.GoogleMapsAPIKey != "" {
		pc, err := places.NewClient(cfg.Upstream.GoogleMapsBaseURL, cfg.Upstream.GoogleMapsAPIKey, httpClient)
		if err != nil {
			return nil, err
		}
		placesClient = pc
	} else {
		slog.Info("google maps api key not set, skipping nearby places")
	}

	var videoClient query.VideoClient
	if cfg.Upstream.YouTubeAPIKey != "" {
		vc, err := video.NewClient(cfg.Upstream.YouTubeBaseURL, cfg.Upstream.YouTubeAPIKey, httpClient)
		if err != nil {
			return nil, err
		}
		videoClient = vc
	} else {
		slog.Info("youtube api key not set, skipping video links")
	}

	return query.NewOrchestrator(resolver, weatherClient, placesClient, videoClient, s, slog.Default()), nil
}

func setupLogging(format string) {
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	if format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// redactDSN masks the password in a PostgreSQL DSN for safe display.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return dsn
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
