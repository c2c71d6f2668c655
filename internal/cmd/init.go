package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"buttonkit/internal/config"
	"buttonkit/internal/config/yamlstore"
	"buttonkit/internal/configservice"
	kvfs "buttonkit/internal/kvstorage/filesystem"

	"github.com/spf13/cobra"
)

// newInitCmd creates the init command.
// Note: init doesn't use the provider since it creates the data directory.
func newInitCmd(provider *AppProvider) *cobra.Command {
	var (
		force  bool
		global bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a buttonkit data directory",
		Long: `Initialize a buttonkit data directory.

By default the directory is .buttonkit in the current directory. Use --path
or BK_DIR to choose another location, or --global for the per-user config
directory. The directory receives config.yaml with default values and, for
the filesystem backend, the settings table.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := provider.Out
			if out == nil {
				out = os.Stdout
			}
			dir, err := initDir(provider.DataPath, global)
			if err != nil {
				return err
			}
			return runInit(cmd.Context(), out, dir, provider.Backend, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Reinitialize even if config.yaml exists")
	cmd.Flags().BoolVar(&global, "global", false, "Initialize the per-user config directory")

	return cmd
}

// initDir picks the directory to initialize.
// Resolution: --path > BK_DIR > --global user dir > ./.buttonkit
func initDir(path string, global bool) (string, error) {
	if path == "" {
		path = os.Getenv(config.EnvDir)
	}
	if path == "" && global {
		userDir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("locating user config dir: %w", err)
		}
		path = filepath.Join(userDir, "buttonkit")
	}
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		path = filepath.Join(cwd, configservice.DirName)
	}
	return filepath.Abs(path)
}

func runInit(ctx context.Context, out io.Writer, dir, backend string, force bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	paths, err := configservice.ResolveFromBase(dir)
	if err != nil {
		return err
	}
	if configservice.Initialized(paths) && !force {
		return fmt.Errorf("buttonkit already initialized at %s (use --force to reinitialize)", dir)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	store, err := yamlstore.New(paths.ConfigFile)
	if err != nil {
		return fmt.Errorf("creating config store: %w", err)
	}
	if err := config.ApplyDefaults(store); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	if backend != "" {
		if err := store.Set(config.KeyBackend, backend); err != nil {
			return fmt.Errorf("setting backend: %w", err)
		}
	}

	cfg, err := config.FromStore(store)
	if err != nil {
		return err
	}
	if cfg.Backend == config.BackendFilesystem {
		table, err := kvfs.New(dir, cfg.Table)
		if err != nil {
			return err
		}
		if err := table.Init(ctx); err != nil {
			return fmt.Errorf("creating settings table: %w", err)
		}
	}

	gitignore := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(gitignore); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(gitignore, []byte(".env\n*.lock\n*.tmp.*\n"), 0644); err != nil {
			return fmt.Errorf("writing .gitignore: %w", err)
		}
	}

	fmt.Fprintf(out, "✓ Initialized buttonkit in %s\n", dir)
	fmt.Fprintf(out, "  Backend: %s\n", cfg.Backend)
	return nil
}
