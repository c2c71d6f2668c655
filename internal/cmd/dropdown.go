package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// newDropdownCmd creates the dropdown command with subcommands.
func newDropdownCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dropdown",
		Short: "Manage the copy button's dropdown options",
		Long: `Manage the copy actions listed in the copy button's dropdown menu.
Each option has display text and a template; list order is menu order.`,
	}

	cmd.AddCommand(newDropdownListCmd(provider))
	cmd.AddCommand(newDropdownAddCmd(provider))
	cmd.AddCommand(newDropdownEditCmd(provider))
	cmd.AddCommand(newDropdownRemoveCmd(provider))
	cmd.AddCommand(newToggleCmd(provider, "option", func(app *App, ctx context.Context, id string, enabled bool) bool {
		return app.Settings.ToggleDropdownOption(ctx, id, enabled)
	}))
	cmd.AddCommand(newDropdownReorderCmd(provider))

	return cmd
}

func newDropdownListCmd(provider *AppProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List dropdown options in menu order",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			opts := app.Settings.Load(cmd.Context(), true).DropdownOptions()
			if app.JSON {
				return app.writeJSON(opts)
			}
			if len(opts) == 0 {
				fmt.Fprintln(app.Out, "No dropdown options")
				return nil
			}
			rows := pterm.TableData{{"#", "ID", "Text", "Enabled", "Template"}}
			for i, o := range opts {
				rows = append(rows, []string{strconv.Itoa(i), o.ID, o.Text, strconv.FormatBool(o.Enabled), o.Template})
			}
			return app.table(rows)
		},
	}
}

func newDropdownAddCmd(provider *AppProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "add <text> <template>",
		Short: "Add a dropdown option",
		Long: `Add a dropdown option at the end of the menu.

Example:
  bk dropdown add "Slack" "*{{ticket_id}}* {{title}} {{url}}"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			opt, err := app.Settings.AddDropdownOption(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if app.JSON {
				return app.writeJSON(opt)
			}
			fmt.Fprintf(app.Out, "%s Added option %q (id %s)\n", app.SuccessColor("✓"), opt.Text, opt.ID)
			return nil
		},
	}
}

func newDropdownEditCmd(provider *AppProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id> <text> <template>",
		Short: "Change a dropdown option's text and template",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			if err := app.Settings.EditDropdownOption(cmd.Context(), args[0], args[1], args[2]); err != nil {
				return err
			}
			if app.JSON {
				return app.writeJSON(map[string]string{"id": args[0], "text": args[1], "template": args[2]})
			}
			fmt.Fprintf(app.Out, "%s Updated option %s\n", app.SuccessColor("✓"), args[0])
			return nil
		},
	}
}

func newDropdownRemoveCmd(provider *AppProvider) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove"},
		Short:   "Remove a dropdown option",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			if !app.Settings.RemoveDropdownOption(cmd.Context(), args[0]) {
				return fmt.Errorf("could not remove option %s (unknown id or save failed)", args[0])
			}
			if app.JSON {
				return app.writeJSON(map[string]string{"removed": args[0]})
			}
			fmt.Fprintf(app.Out, "%s Removed option %s\n", app.SuccessColor("✓"), args[0])
			return nil
		},
	}
}

func newDropdownReorderCmd(provider *AppProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <index...>",
		Short: "Reorder dropdown options",
		Long: `Reorder the dropdown options. Arguments list the current indices (as
shown by "bk dropdown list") in the new order.

Example, moving the third option to the top:
  bk dropdown reorder 2 0 1 3`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			order := make([]int, len(args))
			for i, a := range args {
				n, err := strconv.Atoi(a)
				if err != nil {
					return fmt.Errorf("invalid index %q", a)
				}
				order[i] = n
			}
			if err := app.Settings.ReorderDropdownOptions(cmd.Context(), order); err != nil {
				return err
			}

			opts := app.Settings.Load(cmd.Context(), true).DropdownOptions()
			if app.JSON {
				return app.writeJSON(opts)
			}
			fmt.Fprintf(app.Out, "%s Reordered options:\n", app.SuccessColor("✓"))
			for i, o := range opts {
				fmt.Fprintf(app.Out, "  %d. %s\n", i, o.Text)
			}
			return nil
		},
	}
}
