package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"buttonkit/internal/settings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// newWatchCmd creates the watch command.
func newWatchCmd(provider *AppProvider) *cobra.Command {
	var (
		keys  []string
		count int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print settings changes as they happen",
		Long: `Subscribe to the settings store and print every change set until
interrupted. Changes made by other processes sharing the same backend
are picked up from its change feed.

With --json each change set is printed as one JSON object per line.

Examples:
  bk watch
  bk watch --keys files,fileFilterEnabled
  bk watch --json --count 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			for _, k := range keys {
				if !settings.Known(k) {
					return fmt.Errorf("unknown setting %q", k)
				}
			}

			ctx := cmd.Context()
			done := make(chan struct{})
			var (
				mu       sync.Mutex
				received int
				closed   bool
			)

			id := "watch-" + uuid.NewString()
			app.Settings.Subscribe(id, func(changes settings.Changes) {
				mu.Lock()
				defer mu.Unlock()
				if closed {
					return
				}
				printChanges(app, changes)
				received++
				if count > 0 && received >= count {
					closed = true
					close(done)
				}
			}, settings.WithKeys(keys...))
			defer app.Settings.Unsubscribe(id)

			if !app.Settings.Bus().Active() {
				return fmt.Errorf("could not attach to the %s change feed", app.Config.Backend)
			}
			app.Logger.Debug("watching settings", "subscriber", id, "keys", keys)
			if !app.JSON {
				fmt.Fprintf(app.Err, "Watching %s settings (Ctrl-C to stop)\n", app.Config.Backend)
			}

			select {
			case <-ctx.Done():
			case <-done:
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&keys, "keys", nil, "Only report these setting keys (comma-separated)")
	cmd.Flags().IntVar(&count, "count", 0, "Exit after this many change sets (0 = until interrupted)")

	return cmd
}

func printChanges(app *App, changes settings.Changes) {
	if app.JSON {
		data, err := json.Marshal(changes)
		if err != nil {
			app.Logger.Error("encoding change set", "err", err)
			return
		}
		fmt.Fprintln(app.Out, string(data))
		return
	}
	parts := make([]string, 0, len(changes))
	for _, k := range changes.Keys() {
		c := changes[k]
		parts = append(parts, fmt.Sprintf("%s: %s -> %s", k, summarize(c.OldValue), summarize(c.NewValue)))
	}
	fmt.Fprintln(app.Out, strings.Join(parts, "\n"))
}
