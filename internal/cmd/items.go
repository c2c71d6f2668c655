package cmd

import (
	"context"
	"fmt"
	"strconv"

	"buttonkit/internal/settings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// itemCollection describes one Item collection exposed as a command.
type itemCollection struct {
	use    string
	noun   string
	key    string
	short  string
	add    func(*settings.Store, context.Context, string) (settings.Item, error)
	edit   func(*settings.Store, context.Context, string, string) error
	remove func(*settings.Store, context.Context, string) bool
	toggle func(*settings.Store, context.Context, string, bool) bool
}

var filesCollection = itemCollection{
	use:    "files",
	noun:   "file",
	key:    settings.KeyFiles,
	short:  "Manage the file filter (files hidden in pull request diffs)",
	add:    (*settings.Store).AddFile,
	edit:   (*settings.Store).EditFile,
	remove: (*settings.Store).RemoveFile,
	toggle: (*settings.Store).ToggleFileEnabled,
}

var usersCollection = itemCollection{
	use:    "users",
	noun:   "username",
	key:    settings.KeyUsernames,
	short:  "Manage the username filter (authors hidden in pull request lists)",
	add:    (*settings.Store).AddUsername,
	edit:   (*settings.Store).EditUsername,
	remove: (*settings.Store).RemoveUsername,
	toggle: (*settings.Store).ToggleUsernameEnabled,
}

// newItemsCmd creates the command tree for an Item collection.
func newItemsCmd(provider *AppProvider, c itemCollection) *cobra.Command {
	cmd := &cobra.Command{
		Use:   c.use,
		Short: c.short,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %s entries", c.noun),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			items := app.Settings.Load(cmd.Context(), true).Items(c.key)
			if app.JSON {
				return app.writeJSON(items)
			}
			if len(items) == 0 {
				fmt.Fprintf(app.Out, "No %s entries\n", c.noun)
				return nil
			}
			rows := pterm.TableData{{"ID", "Name", "Enabled", "Deletable"}}
			for _, it := range items {
				rows = append(rows, []string{it.ID, it.Name, strconv.FormatBool(it.Enabled), strconv.FormatBool(it.Deletable)})
			}
			return app.table(rows)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: fmt.Sprintf("Add a %s entry", c.noun),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			item, err := c.add(app.Settings, cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if app.JSON {
				return app.writeJSON(item)
			}
			fmt.Fprintf(app.Out, "%s Added %s %q (id %s)\n", app.SuccessColor("✓"), c.noun, item.Name, item.ID)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "edit <id> <name>",
		Short: fmt.Sprintf("Rename a %s entry", c.noun),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			if err := c.edit(app.Settings, cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			if app.JSON {
				return app.writeJSON(map[string]string{"id": args[0], "name": args[1]})
			}
			fmt.Fprintf(app.Out, "%s Renamed %s %s\n", app.SuccessColor("✓"), c.noun, args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove"},
		Short:   fmt.Sprintf("Remove a %s entry", c.noun),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			if !c.remove(app.Settings, cmd.Context(), args[0]) {
				return fmt.Errorf("could not remove %s %s (unknown id, not deletable, or save failed)", c.noun, args[0])
			}
			if app.JSON {
				return app.writeJSON(map[string]string{"removed": args[0]})
			}
			fmt.Fprintf(app.Out, "%s Removed %s %s\n", app.SuccessColor("✓"), c.noun, args[0])
			return nil
		},
	})

	cmd.AddCommand(newToggleCmd(provider, c.noun, func(app *App, ctx context.Context, id string, enabled bool) bool {
		return c.toggle(app.Settings, ctx, id, enabled)
	}))

	return cmd
}

// newToggleCmd creates a "toggle <id> [--off]" subcommand.
func newToggleCmd(provider *AppProvider, noun string, toggle func(*App, context.Context, string, bool) bool) *cobra.Command {
	var off bool

	cmd := &cobra.Command{
		Use:   "toggle <id>",
		Short: fmt.Sprintf("Enable or disable a %s entry", noun),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			enabled := !off
			if !toggle(app, cmd.Context(), args[0], enabled) {
				return fmt.Errorf("could not update %s %s (unknown id or save failed)", noun, args[0])
			}
			if app.JSON {
				return app.writeJSON(map[string]any{"id": args[0], "enabled": enabled})
			}
			state := "Enabled"
			if off {
				state = "Disabled"
			}
			fmt.Fprintf(app.Out, "%s %s %s %s\n", app.SuccessColor("✓"), state, noun, args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&off, "off", false, "Disable instead of enable")

	return cmd
}
