package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"buttonkit/internal/config"
	"buttonkit/internal/config/yamlstore"

	"github.com/spf13/cobra"
)

// newConfigCmd creates the config command with subcommands.
func newConfigCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long: `Manage buttonkit CLI configuration (config.yaml).

Configuration is stored as flat key-value pairs. Core keys select the
settings backend and tune logging and save debouncing:

  storage.backend    filesystem, redis or memory
  storage.table      table (file) name for the filesystem backend
  storage.redis_url  redis:// url for the redis backend
  storage.redis_key  key holding the settings hash in redis
  log.level          debug, info, warn or error
  save.debounce_ms   delay before streamed edits are saved

Config commands work even when the current configuration is invalid, so
a bad value can always be fixed with "bk config set".`,
	}

	cmd.AddCommand(newConfigGetCmd(provider))
	cmd.AddCommand(newConfigSetCmd(provider))
	cmd.AddCommand(newConfigListCmd(provider))
	cmd.AddCommand(newConfigUnsetCmd(provider))
	cmd.AddCommand(newConfigValidateCmd(provider))

	return cmd
}

// configStore returns the config store without building the App, so an
// invalid backend setting does not lock the user out of fixing it.
func configStore(provider *AppProvider) (config.Store, error) {
	if provider.app != nil && provider.app.ConfigStore != nil {
		return provider.app.ConfigStore, nil
	}
	paths, err := provider.paths()
	if err != nil {
		return nil, err
	}
	return yamlstore.New(paths.ConfigFile)
}

func configOut(provider *AppProvider) (io.Writer, bool) {
	out := provider.Out
	if out == nil {
		out = os.Stdout
	}
	return out, provider.JSONOutput || config.JSONFromEnv()
}

// newConfigGetCmd creates the "config get" subcommand.
func newConfigGetCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Long: `Get the value of a configuration key.

Prints the bare value if the key is set, or "key (not set)" if missing.
Unset core keys report their default.

Examples:
  bk config get storage.backend
  bk config get log.level`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := configStore(provider)
			if err != nil {
				return err
			}
			out, asJSON := configOut(provider)

			key := args[0]
			value, ok := store.Get(key)
			if !ok {
				value, ok = config.DefaultValues()[key]
			}

			if asJSON {
				return writeJSONTo(out, map[string]any{
					"key":   key,
					"value": value,
					"set":   ok,
				})
			}

			if ok {
				fmt.Fprintln(out, value)
			} else {
				fmt.Fprintf(out, "%s (not set)\n", key)
			}
			return nil
		},
	}

	return cmd
}

// newConfigSetCmd creates the "config set" subcommand.
func newConfigSetCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration key to a value.

Core keys are validated before they are written; custom keys are
stored as given.

Examples:
  bk config set storage.backend redis
  bk config set storage.redis_url redis://cache:6379/1
  bk config set save.debounce_ms 250`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := configStore(provider)
			if err != nil {
				return err
			}
			out, asJSON := configOut(provider)

			key, value := args[0], args[1]
			if err := config.ValidateValue(key, value); err != nil {
				return err
			}
			if err := store.Set(key, value); err != nil {
				return fmt.Errorf("setting config: %w", err)
			}

			if asJSON {
				return writeJSONTo(out, map[string]string{"key": key, "value": value})
			}
			fmt.Fprintf(out, "Set %s = %s\n", key, value)
			return nil
		},
	}

	return cmd
}

// newConfigListCmd creates the "config list" subcommand.
func newConfigListCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Long: `List all configuration key-value pairs, including core key defaults.

Entries are sorted alphabetically by key.

Examples:
  bk config list
  bk config list --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := configStore(provider)
			if err != nil {
				return err
			}
			out, asJSON := configOut(provider)

			all := store.All()
			for k, v := range config.DefaultValues() {
				if _, exists := all[k]; !exists {
					all[k] = v
				}
			}

			if asJSON {
				return writeJSONTo(out, all)
			}

			fmt.Fprintln(out, "Configuration:")
			for _, k := range sortedKeys(all) {
				fmt.Fprintf(out, "  %s = %s\n", k, all[k])
			}
			return nil
		},
	}

	return cmd
}

// newConfigUnsetCmd creates the "config unset" subcommand.
func newConfigUnsetCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unset <key>",
		Short: "Remove a configuration value",
		Long: `Remove a configuration key. Core keys fall back to their default.

Examples:
  bk config unset log.level`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := configStore(provider)
			if err != nil {
				return err
			}
			out, asJSON := configOut(provider)

			key := args[0]
			if err := store.Unset(key); err != nil {
				return fmt.Errorf("unsetting config: %w", err)
			}

			if asJSON {
				return writeJSONTo(out, map[string]string{"key": key})
			}
			fmt.Fprintf(out, "Unset %s\n", key)
			return nil
		},
	}

	return cmd
}

// newConfigValidateCmd creates the "config validate" subcommand.
func newConfigValidateCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		Long: `Validate the current configuration.

Checks that core keys have valid values. Unknown (custom) keys
are always accepted.

Examples:
  bk config validate
  bk config validate --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := configStore(provider)
			if err != nil {
				return err
			}
			out, asJSON := configOut(provider)

			issues := config.Issues(store)
			sort.Strings(issues)

			if asJSON {
				return writeJSONTo(out, map[string]any{
					"valid":  len(issues) == 0,
					"issues": issues,
				})
			}

			if len(issues) == 0 {
				fmt.Fprintln(out, "Configuration is valid.")
				return nil
			}

			fmt.Fprintln(out, "Configuration errors:")
			for _, e := range issues {
				fmt.Fprintf(out, "  %s\n", e)
			}
			return fmt.Errorf("configuration has %d error(s): %s", len(issues), strings.Join(issues, "; "))
		},
	}

	return cmd
}

// sortedKeys returns the sorted keys of a map.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
