package cmd

import (
	"errors"
	"fmt"
	"strings"

	"buttonkit/internal/settings"
	"buttonkit/internal/template"

	"github.com/spf13/cobra"
)

// errDataNotAvailable is returned by --strict when placeholders survive.
var errDataNotAvailable = errors.New("data not available")

// Output flavours for "bk render --as".
const (
	renderPlain    = "plain"
	renderHTML     = "html"
	renderMarkdown = "markdown"
)

// newRenderCmd creates the render command.
func newRenderCmd(provider *AppProvider) *cobra.Command {
	var (
		tmpl   string
		option string
		as     string
		vars   []string
		url    string
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a copy template",
		Long: `Render a copy template against page data, the way the copy button does.

The template comes from --template or from a dropdown option (--option,
matched by id or case-insensitive text). Data is passed with repeated
--var name=value flags; --url sets the link target for the html and
markdown flavours.

Examples:
  bk render --option "Branch name" --var ticket_id=PROJ-12 --var "title=Fix login"
  bk render --template "{{title:dash}}" --var "title=Hello World"
  bk render --option 3 --as html --url https://jira/PROJ-12 --var ticket_id=PROJ-12 --var title=x`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			if (tmpl == "") == (option == "") {
				return fmt.Errorf("exactly one of --template or --option is required")
			}
			if option != "" {
				opts := app.Settings.Load(cmd.Context(), true).DropdownOptions()
				opt, ok := settings.FindDropdownOption(opts, option)
				if !ok {
					return fmt.Errorf("dropdown option %q not found", option)
				}
				tmpl = opt.Template
			}

			data, err := parseVars(vars)
			if err != nil {
				return err
			}
			if url != "" {
				data["url"] = url
			}

			var result string
			switch as {
			case renderPlain:
				result = template.Render(tmpl, data)
			case renderHTML:
				if !template.HasHTMLElements(tmpl) {
					return fmt.Errorf("template has no {{%s}}/{{%s}} link", template.HyperlinkStart, template.HyperlinkEnd)
				}
				result = template.RenderAsHTML(tmpl, data)
			case renderMarkdown:
				if !template.HasMarkdownElements(tmpl) {
					return fmt.Errorf("template has no {{%s}}/{{%s}} link", template.MarkdownStart, template.MarkdownEnd)
				}
				result = template.RenderAsMarkdown(tmpl, data)
			default:
				return fmt.Errorf("invalid --as %q (use plain, html or markdown)", as)
			}

			unresolved := template.HasUnresolvedVariables(result)
			if strict && unresolved {
				return fmt.Errorf("%w: %s", errDataNotAvailable, result)
			}

			if app.JSON {
				return app.writeJSON(map[string]any{
					"template":   tmpl,
					"as":         as,
					"result":     result,
					"unresolved": unresolved,
				})
			}
			fmt.Fprintln(app.Out, result)
			if unresolved {
				fmt.Fprintln(app.Err, app.WarnColor("warning: some variables were not resolved"))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&tmpl, "template", "t", "", "Template text")
	cmd.Flags().StringVarP(&option, "option", "o", "", "Dropdown option id or text")
	cmd.Flags().StringVar(&as, "as", renderPlain, "Output flavour: plain, html or markdown")
	cmd.Flags().StringArrayVar(&vars, "var", nil, "Template data as name=value (repeatable)")
	cmd.Flags().StringVar(&url, "url", "", "Link target for html and markdown output")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when placeholders are left unresolved")

	return cmd
}

// parseVars turns name=value pairs into a data map.
func parseVars(pairs []string) (map[string]string, error) {
	data := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid --var %q (want name=value)", p)
		}
		data[strings.TrimSpace(name)] = value
	}
	return data, nil
}
