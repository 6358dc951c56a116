package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/radiowatch/sigstream/internal/history"
	"github.com/radiowatch/sigstream/internal/storage"
	"github.com/radiowatch/sigstream/internal/stream"
	"github.com/radiowatch/sigstream/internal/telemetry"
)

const (
	storageDir = "data"

	metricsShutdownTimeout = 5 * time.Second
)

// Run wires the multiplexer, dispatcher and analysis pipeline together and
// blocks until the context is cancelled or every channel has terminated.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	var store storage.Store
	if config.Storage.Enabled {
		s, err := createStorage(&config.Storage)
		if err != nil {
			return fmt.Errorf("failed to create storage: %w", err)
		}
		store = s
		defer store.Close()
	}

	registry := prometheus.NewRegistry()
	metrics := stream.NewMetrics(registry)
	if config.Metrics.ListenAddr != "" {
		stopMetrics := serveMetrics(config.Metrics.ListenAddr, registry, logger)
		defer stopMetrics()
	}

	mux, err := createMultiplexer(config, metrics, logger)
	if err != nil {
		return fmt.Errorf("failed to create multiplexer: %w", err)
	}
	defer mux.DisconnectAll()

	var historyClient *history.Client
	if config.History.URL != "" {
		historyClient = history.NewClient(config.History.URL)
	}

	var (
		wg       sync.WaitGroup
		channels int
	)
	for _, channelConfig := range config.Backend.Channels {
		if !channelConfig.Enabled {
			continue
		}

		ch, err := connectChannel(ctx, config, channelConfig, mux, store, historyClient, logger)
		if err != nil {
			return err
		}

		channels++
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-ch.Done()
		}()
	}
	if channels == 0 {
		return fmt.Errorf("no channels enabled in configuration")
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
	case <-done:
		logger.Info("all channels terminated")
	}

	return nil
}

func connectChannel(ctx context.Context, config *Config, channelConfig ChannelConfig,
	mux *stream.Multiplexer, store storage.Store, historyClient *history.Client, logger *slog.Logger) (*stream.Channel, error) {

	var pipelineOptions []func(*Pipeline)
	if store != nil {
		sessionID, err := store.CreateSession(ctx, config.Backend.URL, channelConfig.Path, channelConfig.Request)
		if err != nil {
			return nil, fmt.Errorf("creating session for channel %s: %w", channelConfig.Path, err)
		}
		pipelineOptions = append(pipelineOptions, WithStore(store, sessionID))
	}

	pipeline := NewPipeline(&config.Analysis, logger, pipelineOptions...)
	if historyClient != nil {
		pipeline.Seed(ctx, historyClient, config.History.Lookback.Std(), config.History.Limit)
	}

	dispatcher := telemetry.NewDispatcher(
		telemetry.WithLogger(logger),
		telemetry.WithSweepSink(pipeline.HandleSweep),
		telemetry.WithProgressSink(pipeline.HandleProgress),
		telemetry.WithErrorSink(pipeline.HandleError))

	path := channelConfig.Path
	onStatus := func(status stream.Status) {
		logger.Info("channel status changed",
			slog.String("path", path),
			slog.String("status", string(status)))

		if status == stream.StatusConnected && channelConfig.Request != nil {
			request := make(map[string]any, len(channelConfig.Request)+1)
			for k, v := range channelConfig.Request {
				request[k] = v
			}
			request["type"] = telemetry.TypeConfig

			if !mux.Send(path, request) {
				logger.Warn("failed to send config request", slog.String("path", path))
			}
		}
	}

	return mux.Connect(ctx, path, dispatcher.Dispatch, onStatus), nil
}

func createMultiplexer(config *Config, metrics *stream.Metrics, logger *slog.Logger) (*stream.Multiplexer, error) {
	options := []func(*stream.Multiplexer){
		stream.WithLogger(logger),
		stream.WithMetrics(metrics),
	}
	if config.Backend.ReconnectBaseDelay > 0 && config.Backend.ReconnectMaxDelay > 0 {
		options = append(options, stream.WithBackoff(config.Backend.ReconnectBaseDelay.Std(), config.Backend.ReconnectMaxDelay.Std()))
	}
	if config.Backend.MaxReconnectAttempts > 0 {
		options = append(options, stream.WithMaxReconnectAttempts(config.Backend.MaxReconnectAttempts))
	}

	return stream.New(config.Backend.URL, options...)
}

func createStorage(config *StorageConfig) (storage.Store, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current working directory: %w", err)
	}

	var dbPath string
	if config.DataDirectory != "" {
		dbPath = filepath.Join(wd, config.DataDirectory)
	} else {
		dbPath = filepath.Join(wd, storageDir)
	}

	stat, err := os.Stat(dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage directory '%s' does not exist: %w", dbPath, err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("invalid storage directory '%s'", dbPath)
	}

	dbPath = filepath.Join(dbPath, fmt.Sprintf("sigstream_%s.sqlite", time.Now().UTC().Format("20060102_150405")))
	return storage.NewSqliteStore(dbPath), nil
}

func serveMetrics(addr string, registry *prometheus.Registry, logger *slog.Logger) func() {
	handler := http.NewServeMux()
	handler.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{Addr: addr, Handler: handler}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(fmt.Sprintf("metrics server: %s", err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("shutting down metrics server: %s", err))
		}
	}
}
