package cmd

import (
	"fmt"

	"buttonkit/internal/settings"

	"github.com/spf13/cobra"
)

// newHideCmd creates the hide command.
func newHideCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hide <path...>",
		Short: "Report which paths the file filter hides",
		Long: `Check paths against the file filter the way the pull request page does.

Prints the paths that would be hidden. Nothing is hidden while
fileFilterEnabled is false.

Example:
  bk hide web/package-lock.json src/main.go go.sum`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			doc := app.Settings.Load(cmd.Context(), true)
			hidden := settings.HiddenFiles(doc, args)

			if app.JSON {
				if hidden == nil {
					hidden = []string{}
				}
				return app.writeJSON(map[string]any{
					"enabled": doc.Bool(settings.KeyFileFilterEnabled),
					"hidden":  hidden,
				})
			}

			if !doc.Bool(settings.KeyFileFilterEnabled) {
				fmt.Fprintln(app.Out, app.WarnColor("File filter is disabled; nothing is hidden"))
				return nil
			}
			if len(hidden) == 0 {
				fmt.Fprintln(app.Out, "No paths hidden")
				return nil
			}
			for _, p := range hidden {
				fmt.Fprintln(app.Out, p)
			}
			return nil
		},
	}

	return cmd
}
