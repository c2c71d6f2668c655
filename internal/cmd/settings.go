package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"buttonkit/internal/settings"

	"github.com/BurntSushi/toml"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"gopkg.in/yaml.v3"
)

// errSaveFailed is returned when the settings store reports a failed save.
var errSaveFailed = errors.New("failed to save settings (is the store available? run `bk init`)")

// newSettingsCmd creates the settings command with subcommands.
func newSettingsCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and write settings",
		Long: `Read and write the settings document.

Keys are the settings names (buttonTitle, fileFilterEnabled, ...). get and
set also accept paths into collections such as files.0.enabled or
dropdownOptions.1.template.

Subcommands:
  list      Show every setting
  get       Print a setting or path
  set       Change a setting or path
  reset     Restore defaults
  export    Write the settings document as JSON, YAML or TOML
  import    Load settings from a file
  stream    Save values read from stdin, debounced`,
	}

	cmd.AddCommand(newSettingsListCmd(provider))
	cmd.AddCommand(newSettingsGetCmd(provider))
	cmd.AddCommand(newSettingsSetCmd(provider))
	cmd.AddCommand(newSettingsResetCmd(provider))
	cmd.AddCommand(newSettingsExportCmd(provider))
	cmd.AddCommand(newSettingsImportCmd(provider))
	cmd.AddCommand(newSettingsStreamCmd(provider))

	return cmd
}

// summarize renders a setting value for table output.
func summarize(v any) string {
	switch t := v.(type) {
	case []settings.Item:
		return fmt.Sprintf("%d entries", len(t))
	case []settings.DropdownOption:
		return fmt.Sprintf("%d options", len(t))
	}
	return fmt.Sprint(v)
}

func newSettingsListCmd(provider *AppProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show every setting",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			doc := app.Settings.Load(cmd.Context(), true)
			if app.JSON {
				return app.writeJSON(doc)
			}

			rows := pterm.TableData{{"Key", "Value"}}
			for _, k := range settings.Keys() {
				rows = append(rows, []string{k, summarize(doc[k])})
			}
			return app.table(rows)
		},
	}
}

func newSettingsGetCmd(provider *AppProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key|path>",
		Short: "Print a setting or a path inside one",
		Long: `Print a setting. The argument is a gjson path, so collection fields
can be addressed directly.

Examples:
  bk settings get buttonTitle
  bk settings get files.#.name
  bk settings get dropdownOptions.0.template`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			raw, err := json.Marshal(app.Settings.Load(cmd.Context(), true))
			if err != nil {
				return err
			}
			res := gjson.GetBytes(raw, args[0])
			if !res.Exists() {
				return fmt.Errorf("no setting at %q", args[0])
			}

			if app.JSON {
				return app.writeJSON(map[string]any{
					"key":   args[0],
					"value": json.RawMessage(res.Raw),
				})
			}
			if res.IsArray() || res.IsObject() {
				var buf bytes.Buffer
				if err := json.Indent(&buf, []byte(res.Raw), "", "  "); err != nil {
					return err
				}
				fmt.Fprintln(app.Out, buf.String())
				return nil
			}
			fmt.Fprintln(app.Out, res.String())
			return nil
		},
	}
}

// splitPath separates the settings key from the rest of a path.
func splitPath(path string) (key, rest string) {
	key, rest, _ = strings.Cut(path, ".")
	return key, rest
}

// parseSetting builds the new value for the key addressed by path. The
// argument is used as JSON when it is valid JSON that fits the target,
// and as a string otherwise.
func parseSetting(doc settings.Settings, path, arg string) (string, any, error) {
	key, rest := splitPath(path)
	if !settings.Known(key) {
		return "", nil, fmt.Errorf("unknown setting %q", key)
	}

	candidates := [][]byte{}
	if gjson.Valid(arg) {
		candidates = append(candidates, []byte(arg))
	}
	quoted, _ := json.Marshal(arg)
	candidates = append(candidates, quoted)

	var lastErr error
	for _, c := range candidates {
		raw := c
		if rest != "" {
			current, err := settings.Encode(doc[key])
			if err != nil {
				return "", nil, err
			}
			if raw, err = sjson.SetRawBytes(current, rest, c); err != nil {
				lastErr = err
				continue
			}
		}
		v, err := settings.Decode(key, raw)
		if err == nil {
			return key, v, nil
		}
		lastErr = err
	}
	return "", nil, lastErr
}

func newSettingsSetCmd(provider *AppProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key|path> <value>",
		Short: "Change a setting or a path inside one",
		Long: `Change a setting. Values are parsed as JSON when possible, so true,
42 and ["a"] keep their types; anything else is stored as a string.

Examples:
  bk settings set buttonTitle "Copy ticket"
  bk settings set connectionLimit 40
  bk settings set files.0.enabled false`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			key, value, err := parseSetting(app.Settings.Load(ctx, true), args[0], args[1])
			if err != nil {
				return err
			}
			if value, err = settings.Coerce(key, value); err != nil {
				return err
			}
			if !app.Settings.Set(ctx, key, value) {
				return errSaveFailed
			}

			if app.JSON {
				return app.writeJSON(map[string]any{"key": key, "value": value})
			}
			fmt.Fprintf(app.Out, "%s %s = %s\n", app.SuccessColor("✓"), args[0], summarize(value))
			return nil
		},
	}
}

func newSettingsResetCmd(provider *AppProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "reset [key...]",
		Short: "Restore settings to their defaults",
		Long: `Restore the given settings, or every setting when no key is given,
to the default values.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			for _, k := range args {
				if !settings.Known(k) {
					return fmt.Errorf("unknown setting %q", k)
				}
			}
			if !app.Settings.Reset(cmd.Context(), args...) {
				return errSaveFailed
			}

			keys := args
			if len(keys) == 0 {
				keys = settings.Keys()
			}
			if app.JSON {
				return app.writeJSON(map[string]any{"reset": keys})
			}
			fmt.Fprintf(app.Out, "%s Reset %d setting(s)\n", app.SuccessColor("✓"), len(keys))
			return nil
		},
	}
}

// encodeDocument writes doc in the given format.
func encodeDocument(w io.Writer, doc settings.Settings, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(map[string]any(doc)); err != nil {
			return err
		}
		return enc.Close()
	case "toml":
		return toml.NewEncoder(w).Encode(map[string]any(doc))
	}
	return fmt.Errorf("unknown format %q (want json, yaml or toml)", format)
}

// decodeDocument parses a settings file in the given format.
func decodeDocument(data []byte, format string) (map[string]any, error) {
	out := map[string]any{}
	var err error
	switch format {
	case "json":
		err = json.Unmarshal(data, &out)
	case "yaml", "yml":
		err = yaml.Unmarshal(data, &out)
	case "toml":
		_, err = toml.Decode(string(data), &out)
	default:
		return nil, fmt.Errorf("unknown format %q (want json, yaml or toml)", format)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", format, err)
	}
	return out, nil
}

func formatFromPath(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

func newSettingsExportCmd(provider *AppProvider) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the settings document",
		Long: `Write the full settings document as JSON, YAML or TOML, to stdout or
to the file given with --output. The format defaults to the output
file's extension, then to JSON.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			if format == "" {
				format = formatFromPath(output)
			}
			if format == "" {
				format = "json"
			}

			doc := app.Settings.Load(cmd.Context(), true)
			if output == "" {
				return encodeDocument(app.Out, doc, format)
			}

			var buf bytes.Buffer
			if err := encodeDocument(&buf, doc, format); err != nil {
				return err
			}
			if err := os.WriteFile(output, buf.Bytes(), 0644); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			fmt.Fprintf(app.Out, "%s Exported settings to %s\n", app.SuccessColor("✓"), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: json, yaml or toml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")

	return cmd
}

func newSettingsImportCmd(provider *AppProvider) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load settings from a file",
		Long: `Load settings from a JSON, YAML or TOML file and save them in one
change. Keys missing from the file are left alone; unknown keys or
values of the wrong type abort the import.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if format == "" {
				format = formatFromPath(args[0])
			}
			values, err := decodeDocument(data, format)
			if err != nil {
				return err
			}

			partial := settings.Settings{}
			for _, k := range sortedKeys(values) {
				v, err := settings.Coerce(k, values[k])
				if err != nil {
					return err
				}
				partial[k] = v
			}
			if !app.Settings.Save(cmd.Context(), partial) {
				return errSaveFailed
			}

			if app.JSON {
				return app.writeJSON(map[string]any{"imported": sortedKeys(partial)})
			}
			fmt.Fprintf(app.Out, "%s Imported %d setting(s) from %s\n", app.SuccessColor("✓"), len(partial), args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Input format: json, yaml or toml (default: from extension)")

	return cmd
}

func newSettingsStreamCmd(provider *AppProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "stream <key>",
		Short: "Save values read line by line from stdin",
		Long: `Read values for one setting from stdin, one per line, the way a text
field emits keystrokes. Saves are debounced (save.debounce_ms) so a burst
of lines results in a single write of the last value.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			saver := settings.NewDebouncedSaver(app.Settings, app.Config.Debounce)

			lines := 0
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				key, value, err := parseSetting(app.Settings.Load(ctx, true), args[0], scanner.Text())
				if err != nil {
					return err
				}
				saver.Queue(settings.Settings{key: value})
				lines++
			}
			if err := scanner.Err(); err != nil {
				return err
			}
			if !saver.Flush(ctx) {
				return errSaveFailed
			}

			if app.JSON {
				return app.writeJSON(map[string]any{"key": args[0], "lines": lines})
			}
			fmt.Fprintf(app.Out, "%s Streamed %d value(s) into %s\n", app.SuccessColor("✓"), lines, args[0])
			return nil
		},
	}
}
