package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/viper"

	"github.com/Antoine93/anki-doc-master/internal/adapters/gateway"
	"github.com/Antoine93/anki-doc-master/internal/adapters/prompts"
	"github.com/Antoine93/anki-doc-master/internal/adapters/storage"
	"github.com/Antoine93/anki-doc-master/internal/blobstore"
	"github.com/Antoine93/anki-doc-master/internal/config"
	"github.com/Antoine93/anki-doc-master/internal/core"
	"github.com/Antoine93/anki-doc-master/internal/logging"
	"github.com/Antoine93/anki-doc-master/internal/service"
)

// app bundles the wired pipeline with the resources it holds open.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	pipeline *service.Pipeline

	store   blobstore.Store
	prompts *prompts.Repository
	gateway core.Gateway
}

// loadConfig loads configuration using the global viper, which already
// carries the persistent flag bindings.
func loadConfig() (*config.Config, error) {
	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newApp wires the full pipeline from configuration. Callers must close it.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})

	var store blobstore.Store
	switch cfg.Storage.Backend {
	case "sqlite":
		store, err = blobstore.NewSQLite(cfg.Storage.Path)
	default:
		store, err = blobstore.NewFS(cfg.OutputsDir)
	}
	if err != nil {
		return nil, fmt.Errorf("opening output store: %w", err)
	}

	promptRepo, err := prompts.New(cfg.PromptsDir, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("opening prompt repository: %w", err)
	}

	gw, err := gateway.New(cfg.Gateway.Mode, gateway.Config{
		Command: cfg.Gateway.Command,
		Timeout: cfg.Gateway.Timeout,
	}, logger)
	if err != nil {
		_ = promptRepo.Close()
		_ = store.Close()
		return nil, err
	}

	pipeline := service.New(
		gw,
		promptRepo,
		storage.NewDocumentRepository(store, cfg.SourcesDir),
		storage.NewAnalysisStore(store),
		storage.NewRestructuredStore(store),
		storage.NewCardStore(store),
		storage.NewAnkiStore(store),
		logger,
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		pipeline: pipeline,
		store:    store,
		prompts:  promptRepo,
		gateway:  gw,
	}, nil
}

func (a *app) Close() {
	if c, ok := a.gateway.(io.Closer); ok {
		_ = c.Close()
	}
	if a.prompts != nil {
		_ = a.prompts.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
