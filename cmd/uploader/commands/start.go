package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmwm/dbs3-uploader/internal/block"
	"github.com/dmwm/dbs3-uploader/internal/catalog"
	"github.com/dmwm/dbs3-uploader/internal/config"
	"github.com/dmwm/dbs3-uploader/internal/debugdump"
	"github.com/dmwm/dbs3-uploader/internal/logger"
	"github.com/dmwm/dbs3-uploader/internal/metrics"
	"github.com/dmwm/dbs3-uploader/internal/poller"
	"github.com/dmwm/dbs3-uploader/internal/stagingstore/postgres"
	"github.com/dmwm/dbs3-uploader/internal/workerpool"
)

// shutdownTimeout bounds how long Stop waits for the poller's current cycle
// and the worker pool to drain before canceling in place.
const shutdownTimeout = 30 * time.Second

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the upload poller",
	Long: `Run the upload poller in the foreground.

The poller hydrates its in-memory cache from the staging store, packs
produced files into capacity-bounded blocks, uploads them to the remote
catalog, and repeats on a fixed interval until interrupted.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/dbs3-uploader/config.yaml.

Examples:
  # Start with the default configuration
  dbs3-uploader start

  # Start with a custom configuration file
  dbs3-uploader start --config /etc/dbs3-uploader/config.yaml

  # Start with environment variable overrides
  DBSUPLOAD_LOGGING_LEVEL=DEBUG dbs3-uploader start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	logger.Info("configuration loaded", "source", configSource(GetConfigFile()))
	logger.Info("log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := postgres.New(ctx, &postgres.Config{
		DSN:            cfg.Database.DSN,
		MaxConns:       cfg.Database.MaxConns,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		AutoMigrate:    true,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize staging store: %w", err)
	}
	defer store.Close()

	catalogClient := catalog.New(cfg.Catalog.RemoteURL, cfg.Catalog.RequestTimeout)

	clientFactory := func() *catalog.Client {
		return catalog.New(cfg.Catalog.RemoteURL, cfg.Catalog.RequestTimeout)
	}
	pool := workerpool.New(cfg.Pool.NProcesses, clientFactory)

	dumper := debugdump.New(cfg.Debug.CopyBlock, cfg.Debug.CopyBlockPath)

	var m *metrics.Collector
	if cfg.Metrics.Enabled {
		m = metrics.New()
		metricsServer := &http.Server{
			Addr:    cfg.Metrics.ListenAddress,
			Handler: m.Handler(),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server stopped unexpectedly", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
		logger.Info("metrics enabled", "listen_address", cfg.Metrics.ListenAddress)
	} else {
		logger.Info("metrics disabled")
	}

	p := poller.New(store, pool, catalogClient, dumper, m, poller.Config{
		CycleInterval:  cfg.Pool.CycleInterval,
		DBSWaitTime:    cfg.Pool.DBSWaitTime,
		DBSNTries:      cfg.Pool.DBSNTries,
		UploadOnlyMode: cfg.Upload.UploadOnlyMode,
		Pack: poller.PackConfig{
			PhysicsGroup:       cfg.Upload.PhysicsGroup,
			DatasetType:        cfg.Upload.DatasetType,
			PrimaryDatasetType: cfg.Upload.PrimaryDatasetType,
			Limits: block.Limits{
				MaxFiles:  cfg.Upload.BlockMaxFiles,
				MaxEvents: cfg.Upload.BlockMaxEvents,
				MaxSize:   cfg.Upload.BlockMaxSize,
				MaxAge:    cfg.Upload.BlockMaxAge,
			},
		},
	})

	p.Start(ctx)
	logger.Info("poller is running, press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	signal.Stop(sigChan)

	logger.Info("shutdown signal received, finishing current cycle before stopping")
	p.Stop(shutdownTimeout)
	logger.Info("poller stopped")

	return nil
}
