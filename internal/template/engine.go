// Package template renders copy templates such as
// "{{ticket_id:lower}}-{{title:dash}}" against data scraped from a page.
//
// Rendering runs two passes over the parsed template. The first resolves
// formatted placeholders ({{name:format}}) whose value is non-empty; the
// second resolves bare placeholders ({{name}}) for every key present in
// the data. A variable name is any run of characters other than braces,
// colons and whitespace; data keys containing those cannot be addressed.
// Substituted text is never scanned again, so values containing braces
// are copied verbatim. Placeholders left unresolved stay in the
// output and can be detected with HasUnresolvedVariables.
package template

import (
	"html"
	"regexp"
	"strings"
)

// EmptyTemplate is returned by the render functions when the result is
// empty, including when the template itself is empty.
const EmptyTemplate = "Empty template"

// Sentinel variables filled in by the link renderers.
const (
	HyperlinkStart = "hyperlink_start"
	HyperlinkEnd   = "hyperlink_end"
	MarkdownStart  = "markdown_start"
	MarkdownEnd    = "markdown_end"
)

var sentinels = []string{HyperlinkStart, HyperlinkEnd, MarkdownStart, MarkdownEnd}

var (
	placeholder = regexp.MustCompile(`\{\{([^{}:\s]+)(?::(\w+))?\}\}`)
	unresolved  = regexp.MustCompile(`\{\{[^{}]*\}\}`)
)

// token is a literal run of text or a placeholder.
type token struct {
	text     string // literal text, or the raw placeholder
	name     string
	format   string
	isVar    bool
	resolved bool
}

func tokenize(tmpl string) []token {
	var out []token
	last := 0
	for _, m := range placeholder.FindAllStringSubmatchIndex(tmpl, -1) {
		if m[0] > last {
			out = append(out, token{text: tmpl[last:m[0]]})
		}
		t := token{text: tmpl[m[0]:m[1]], name: tmpl[m[2]:m[3]], isVar: true}
		if m[4] >= 0 {
			t.format = tmpl[m[4]:m[5]]
		}
		out = append(out, t)
		last = m[1]
	}
	if last < len(tmpl) {
		out = append(out, token{text: tmpl[last:]})
	}
	return out
}

// Variables returns the distinct variable names used in tmpl, in order of
// first appearance.
func Variables(tmpl string) []string {
	var names []string
	seen := map[string]bool{}
	for _, t := range tokenize(tmpl) {
		if t.isVar && !seen[t.name] {
			seen[t.name] = true
			names = append(names, t.name)
		}
	}
	return names
}

func usesVariable(tmpl, name string) bool {
	for _, t := range tokenize(tmpl) {
		if t.isVar && t.name == name {
			return true
		}
	}
	return false
}

// render substitutes data into tmpl. escape is applied to every resolved
// value except the sentinels.
func render(tmpl string, data map[string]string, escape func(string) string) string {
	tokens := tokenize(tmpl)
	value := func(name, v string) string {
		if escape == nil || isSentinel(name) {
			return v
		}
		return escape(v)
	}

	for i, t := range tokens {
		if !t.isVar || t.format == "" {
			continue
		}
		if v := data[t.name]; v != "" {
			tokens[i] = token{text: value(t.name, ApplyFormat(v, t.format)), resolved: true}
		}
	}
	for i, t := range tokens {
		if !t.isVar || t.format != "" || t.resolved {
			continue
		}
		if v, ok := data[t.name]; ok {
			tokens[i] = token{text: value(t.name, v), resolved: true}
		}
	}

	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.text)
	}
	if b.Len() == 0 {
		return EmptyTemplate
	}
	return b.String()
}

func isSentinel(name string) bool {
	for _, s := range sentinels {
		if s == name {
			return true
		}
	}
	return false
}

// withDefaults copies data and adds the given sentinel values for keys the
// caller did not provide. Remaining sentinels resolve to "".
func withDefaults(data map[string]string, defaults map[string]string) map[string]string {
	out := make(map[string]string, len(data)+len(sentinels))
	for _, s := range sentinels {
		out[s] = defaults[s]
	}
	for k, v := range data {
		out[k] = v
	}
	return out
}

// Render returns tmpl with data substituted. Link sentinels not present
// in data render as empty strings.
func Render(tmpl string, data map[string]string) string {
	return render(tmpl, withDefaults(data, nil), nil)
}

// RenderAsHTML renders tmpl as an HTML snippet. Data values are
// HTML-escaped and {{hyperlink_start}}/{{hyperlink_end}} become an anchor
// to data["url"]. It returns "" when tmpl has no hyperlink sentinels.
func RenderAsHTML(tmpl string, data map[string]string) string {
	if !HasHTMLElements(tmpl) {
		return ""
	}
	return render(tmpl, withDefaults(data, map[string]string{
		HyperlinkStart: `<a href="` + html.EscapeString(data["url"]) + `">`,
		HyperlinkEnd:   `</a>`,
	}), html.EscapeString)
}

// RenderAsMarkdown renders tmpl as a Markdown link to data["url"]. It
// returns "" when tmpl has no markdown sentinels.
func RenderAsMarkdown(tmpl string, data map[string]string) string {
	if !HasMarkdownElements(tmpl) {
		return ""
	}
	return render(tmpl, withDefaults(data, map[string]string{
		MarkdownStart: "[",
		MarkdownEnd:   "](" + data["url"] + ")",
	}), nil)
}

// HasHTMLElements reports whether tmpl uses both hyperlink sentinels.
func HasHTMLElements(tmpl string) bool {
	return usesVariable(tmpl, HyperlinkStart) && usesVariable(tmpl, HyperlinkEnd)
}

// HasMarkdownElements reports whether tmpl uses both markdown sentinels.
func HasMarkdownElements(tmpl string) bool {
	return usesVariable(tmpl, MarkdownStart) && usesVariable(tmpl, MarkdownEnd)
}

// HasUnresolvedVariables reports whether a rendered result still contains
// a {{...}} placeholder.
func HasUnresolvedVariables(result string) bool {
	return unresolved.MatchString(result)
}
