package cmd

import (
	"fmt"

	"buttonkit/internal/template"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// newFormatsCmd creates the formats command.
func newFormatsCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "formats [variable]",
		Short: "Show the format modifiers available to template variables",
		Long: `Show which {{variable:format}} modifiers each template variable supports.

With no argument every known variable is listed. Variables without an
entry only support the default format.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			variables := template.FormattedVariables()
			if len(args) == 1 {
				variables = args
			}

			if app.JSON {
				out := make(map[string][]template.FormatOption, len(variables))
				for _, v := range variables {
					out[v] = template.FormatOptionsFor(v)
				}
				return app.writeJSON(out)
			}

			rows := pterm.TableData{{"Variable", "Format", "Label", "Example"}}
			for _, v := range variables {
				for _, f := range template.FormatOptionsFor(v) {
					example := fmt.Sprintf("{{%s}}", v)
					if f.Key != template.FormatDefault {
						example = fmt.Sprintf("{{%s:%s}}", v, f.Key)
					}
					rows = append(rows, []string{v, f.Key, f.Label, example})
				}
			}
			return app.table(rows)
		},
	}

	return cmd
}
