package template

import (
	"regexp"
	"strings"
)

// Format keys.
const (
	FormatDefault    = "default"
	FormatLower      = "lower"
	FormatUnderscore = "underscore"
	FormatDash       = "dash"
	FormatClean      = "clean"
	FormatCleanLower = "clean_lower"
	FormatFirst      = "first"
	FormatFirstLower = "first_lower"
)

// FormatOption is a format offered for a variable.
type FormatOption struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

var formatLabels = map[string]string{
	FormatDefault:    "Default",
	FormatLower:      "Lowercase",
	FormatUnderscore: "Underscore (snake_case)",
	FormatDash:       "Dash (kebab-case)",
	FormatClean:      "Clean (no punctuation)",
	FormatCleanLower: "Clean lowercase",
	FormatFirst:      "First word",
	FormatFirstLower: "First word lowercase",
}

var allFormats = []string{
	FormatDefault, FormatLower, FormatUnderscore, FormatDash,
	FormatClean, FormatCleanLower, FormatFirst, FormatFirstLower,
}

// variableFormats whitelists the formats each variable exposes.
var variableFormats = map[string][]string{
	"ticket_id":   {FormatDefault, FormatLower},
	"title":       allFormats,
	"reporter":    {FormatDefault, FormatLower, FormatFirst, FormatFirstLower, FormatDash, FormatUnderscore},
	"assignee":    {FormatDefault, FormatLower, FormatFirst, FormatFirstLower, FormatDash, FormatUnderscore},
	"priority":    {FormatDefault, FormatLower, FormatDash, FormatUnderscore},
	"status":      {FormatDefault, FormatLower, FormatDash, FormatUnderscore},
	"ticket_type": {FormatDefault, FormatLower, FormatDash, FormatUnderscore},
	"project":     {FormatDefault, FormatLower},
	"url":         {FormatDefault},
}

// Formats returns every format key.
func Formats() []string {
	return append([]string(nil), allFormats...)
}

// FormattedVariables returns the variables with a format whitelist, sorted.
func FormattedVariables() []string {
	return []string{"assignee", "priority", "project", "reporter", "status", "ticket_id", "ticket_type", "title", "url"}
}

// FormatOptionsFor returns the formats variable supports. Unknown
// variables only support the default format.
func FormatOptionsFor(variable string) []FormatOption {
	keys, ok := variableFormats[variable]
	if !ok {
		keys = []string{FormatDefault}
	}
	out := make([]FormatOption, len(keys))
	for i, k := range keys {
		out[i] = FormatOption{Key: k, Label: formatLabels[k]}
	}
	return out
}

var (
	spaceOrDash       = regexp.MustCompile(`[\s-]+`)
	spaceOrUnderscore = regexp.MustCompile(`[\s_]+`)
	nonWord           = regexp.MustCompile(`[^\w]`)
	nonWordOrDash     = regexp.MustCompile(`[^\w-]`)
	nonWordOrSpace    = regexp.MustCompile(`[^\w\s]`)
)

// ApplyFormat transforms value with the named format. Unknown formats
// return value unchanged.
func ApplyFormat(value, format string) string {
	switch format {
	case FormatLower:
		return strings.ToLower(value)
	case FormatUnderscore:
		v := spaceOrDash.ReplaceAllString(strings.ToLower(value), "_")
		return nonWord.ReplaceAllString(v, "")
	case FormatDash:
		v := spaceOrUnderscore.ReplaceAllString(strings.ToLower(value), "-")
		return nonWordOrDash.ReplaceAllString(v, "")
	case FormatClean:
		return nonWordOrSpace.ReplaceAllString(value, "")
	case FormatCleanLower:
		return strings.ToLower(nonWordOrSpace.ReplaceAllString(value, ""))
	case FormatFirst:
		return firstWord(value)
	case FormatFirstLower:
		return strings.ToLower(firstWord(value))
	}
	return value
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
