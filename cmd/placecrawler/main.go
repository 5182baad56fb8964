// Package main wires together the place crawler service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/adpick/place-crawler/internal/adapter"
	"github.com/adpick/place-crawler/internal/api"
	"github.com/adpick/place-crawler/internal/browser"
	"github.com/adpick/place-crawler/internal/clock/system"
	"github.com/adpick/place-crawler/internal/config"
	"github.com/adpick/place-crawler/internal/crawl"
	"github.com/adpick/place-crawler/internal/id/uuid"
	"github.com/adpick/place-crawler/internal/logging"
	"github.com/adpick/place-crawler/internal/probe"
	memorypublisher "github.com/adpick/place-crawler/internal/publisher/memory"
	pubsubpublisher "github.com/adpick/place-crawler/internal/publisher/pubsub"
	"github.com/adpick/place-crawler/internal/sink"
	"github.com/adpick/place-crawler/internal/storage/gcs"
	"github.com/adpick/place-crawler/internal/storage/local"
	memorystorage "github.com/adpick/place-crawler/internal/storage/memory"
	"github.com/adpick/place-crawler/internal/storage/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("service failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	clock := system.New()
	ids := uuid.NewGenerator()

	records, clients, closeStores, err := buildStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init stores: %w", err)
	}
	defer closeStores()

	blobs, err := buildBlobStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init blob store: %w", err)
	}

	publisher, err := buildPublisher(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init publisher: %w", err)
	}

	manager, err := browser.NewManager(browser.Config{
		MaxParallel: cfg.Browser.MaxParallel,
		UserAgent:   cfg.Browser.UserAgent,
		NavTimeout:  cfg.NavTimeout(),
		DomainQPS:   cfg.Browser.DomainQPS,
	}, logger.Named("browser"))
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	defer manager.Shutdown()

	orchestrator, err := crawl.NewOrchestrator(
		manager,
		[]crawl.Adapter{adapter.NewNaverPlace(), adapter.NewInstagram(), adapter.NewGeneral()},
		blobs,
		clock,
		ids,
		crawl.OrchestratorConfig{
			DefaultTimeout:    cfg.CrawlTimeout(),
			DefaultMaxRetries: cfg.Crawl.MaxRetries,
			RetryBackoff:      cfg.RetryBackoff(),
			ScreenshotPrefix:  cfg.Storage.Prefix,
		},
		logger.Named("orchestrator"),
	)
	if err != nil {
		return fmt.Errorf("init orchestrator: %w", err)
	}

	resultSink, err := sink.New(records, clients, publisher, clock, ids, sink.Config{}, logger.Named("sink"))
	if err != nil {
		return fmt.Errorf("init sink: %w", err)
	}

	var prober crawl.Prober
	if cfg.Probe.Enabled {
		prober = probe.New(probe.Config{
			UserAgent:           cfg.Browser.UserAgent,
			Timeout:             cfg.ProbeTimeout(),
			BodyLengthThreshold: cfg.Probe.BodyLengthThreshold,
		})
	}

	service := crawl.NewService(orchestrator, resultSink, prober, clock, logger.Named("service"))
	server := api.NewServer(service, records, cfg.CrawlTimeout()+30*time.Second, logger.Named("api"))

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownSeconds)*time.Second,
	)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func buildStores(ctx context.Context, cfg config.Config) (crawl.RecordStore, crawl.ClientStore, func(), error) {
	switch cfg.DB.Provider {
	case "postgres":
		pool, err := postgres.NewPool(ctx, postgres.Config{
			DSN:      cfg.DB.DSN,
			MaxConns: cfg.DB.MaxConns,
			MinConns: cfg.DB.MinConns,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		records, err := postgres.NewRecordStore(pool, cfg.DB.RecordsTable)
		if err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		clients, err := postgres.NewClientStore(pool, cfg.DB.ClientsTable)
		if err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		return records, clients, pool.Close, nil
	case "memory":
		return memorystorage.NewRecordStore(), memorystorage.NewClientStore(), func() {}, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown db provider %q", cfg.DB.Provider)
}

func buildBlobStore(ctx context.Context, cfg config.Config) (crawl.BlobStore, error) {
	switch cfg.Storage.Provider {
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		return gcs.New(client, gcs.Config{Bucket: cfg.Storage.Bucket})
	case "local":
		return local.New(local.Config{BaseDir: cfg.Storage.BaseDir})
	case "memory":
		return memorystorage.NewBlobStore(), nil
	case "noop":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
}

func buildPublisher(ctx context.Context, cfg config.Config) (crawl.Publisher, error) {
	switch cfg.Publisher.Provider {
	case "pubsub":
		return pubsubpublisher.Connect(ctx, cfg.Publisher.ProjectID, cfg.Publisher.TopicID)
	case "memory":
		return memorypublisher.New(), nil
	case "noop":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown publisher provider %q", cfg.Publisher.Provider)
}
