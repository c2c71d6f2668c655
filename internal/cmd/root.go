package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"buttonkit/internal/config"
	"buttonkit/internal/configservice"
	"buttonkit/internal/kvstorage"
	kvfs "buttonkit/internal/kvstorage/filesystem"
	"buttonkit/internal/kvstorage/memory"
	"buttonkit/internal/kvstorage/redisstore"
	"buttonkit/internal/logging"
	"buttonkit/internal/settings"

	"github.com/spf13/cobra"
)

// AppProvider lazily initializes the App on first use.
type AppProvider struct {
	once sync.Once
	app  *App
	err  error

	// Config captured from flags before Execute()
	DataPath   string
	JSONOutput bool
	Backend    string
	LogLevel   string
	Out        io.Writer
	Err        io.Writer
}

// Get returns the App, initializing it on first call.
func (p *AppProvider) Get() (*App, error) {
	p.once.Do(func() {
		if p.app == nil {
			p.app, p.err = p.init()
		}
	})
	return p.app, p.err
}

// Close releases the App if it was initialized.
func (p *AppProvider) Close() error {
	if p.app == nil {
		return nil
	}
	return p.app.Close()
}

// NewTestProvider creates a provider pre-initialized with the given App.
// Used for testing commands with a mock/test App.
func NewTestProvider(app *App) *AppProvider {
	return &AppProvider{
		app:        app,
		JSONOutput: app.JSON,
		Out:        app.Out,
		Err:        app.Err,
	}
}

func (p *AppProvider) paths() (config.Paths, error) {
	if p.DataPath == "" {
		return configservice.ResolvePaths()
	}
	abs, err := filepath.Abs(p.DataPath)
	if err != nil {
		return config.Paths{}, fmt.Errorf("resolving path: %w", err)
	}
	return configservice.ResolveFromBase(abs)
}

func (p *AppProvider) init() (*App, error) {
	out := p.Out
	if out == nil {
		out = os.Stdout
	}
	errOut := p.Err
	if errOut == nil {
		errOut = os.Stderr
	}

	paths, err := p.paths()
	if err != nil {
		return nil, err
	}
	store, err := configservice.Open(paths)
	if err != nil && !errors.Is(err, configservice.ErrNotInitialized) {
		return nil, err
	}
	if p.Backend != "" {
		store.SetInMemory(config.KeyBackend, p.Backend)
	}
	if p.LogLevel != "" {
		store.SetInMemory(config.KeyLogLevel, p.LogLevel)
	}

	cfg, err := config.FromStore(store)
	if err != nil {
		return nil, err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logging.New(errOut, level)
	if !configservice.Initialized(paths) {
		logger.Debug("no config file, using defaults", "path", paths.ConfigFile)
	}

	backend, closer, err := openBackend(cfg, paths.ConfigDir, logger)
	if err != nil {
		return nil, err
	}

	app := &App{
		Settings:    settings.New(backend, settings.WithLogger(logger)),
		Backend:     backend,
		ConfigStore: store,
		Config:      cfg,
		ConfigDir:   paths.ConfigDir,
		Logger:      logger,
		Out:         out,
		Err:         errOut,
		JSON:        p.JSONOutput || config.JSONFromEnv(),
	}
	if closer != nil {
		app.closers = append(app.closers, closer)
	}
	return app, nil
}

// openBackend constructs the durable store selected by cfg.
func openBackend(cfg config.Config, dir string, logger *slog.Logger) (kvstorage.Durable, func() error, error) {
	switch cfg.Backend {
	case config.BackendFilesystem:
		s, err := kvfs.New(dir, cfg.Table)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	case config.BackendRedis:
		s, err := redisstore.New(cfg.RedisURL, cfg.RedisKey, redisstore.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.BackendMemory:
		return memory.New(), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

// Execute runs the CLI.
func Execute() error {
	provider := &AppProvider{
		Out: os.Stdout,
		Err: os.Stderr,
	}
	defer provider.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd(provider)
	return rootCmd.ExecuteContext(ctx)
}

// newRootCmd creates the root command with all subcommands.
func newRootCmd(provider *AppProvider) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bk",
		Short: "Manage buttonkit settings and copy templates",
		Long: `buttonkit keeps the settings shared by the GitHub, Jira, LinkedIn and
Amplitude page buttons: file and username filters, copy button templates
and feature toggles. Settings live in a durable store (a directory of JSON
files, Redis or memory) and every change is broadcast to watchers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags - these populate the provider config
	rootCmd.PersistentFlags().BoolVar(&provider.JSONOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&provider.DataPath, "path", "", "Path to the buttonkit data directory (default: search from cwd)")
	rootCmd.PersistentFlags().StringVar(&provider.Backend, "backend", "", "Storage backend override: filesystem, redis or memory")
	rootCmd.PersistentFlags().StringVar(&provider.LogLevel, "log-level", "", "Log level override: debug, info, warn or error")

	rootCmd.AddCommand(newInitCmd(provider))
	rootCmd.AddCommand(newSettingsCmd(provider))
	rootCmd.AddCommand(newItemsCmd(provider, filesCollection))
	rootCmd.AddCommand(newItemsCmd(provider, usersCollection))
	rootCmd.AddCommand(newDropdownCmd(provider))
	rootCmd.AddCommand(newRenderCmd(provider))
	rootCmd.AddCommand(newFormatsCmd(provider))
	rootCmd.AddCommand(newHideCmd(provider))
	rootCmd.AddCommand(newWatchCmd(provider))
	rootCmd.AddCommand(newConfigCmd(provider))
	rootCmd.AddCommand(newVersionCmd(provider))

	return rootCmd
}
