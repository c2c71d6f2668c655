// Package settings owns the buttonkit settings document: its schema and
// defaults, the cached store over a durable backend, the change bus, and
// the CRUD helpers for the files, usernames and dropdown option collections.
package settings

import (
	"slices"
	"sort"
)

// Settings keys.
const (
	KeyGithubEnabled         = "githubEnabled"
	KeyFileFilterEnabled     = "fileFilterEnabled"
	KeyFiles                 = "files"
	KeyUsernameFilterEnabled = "usernameFilterEnabled"
	KeyUsernames             = "usernames"
	KeyAutoLoadMoreEnabled   = "autoLoadMoreEnabled"
	KeyJiraEnabled           = "jiraEnabled"
	KeyButtonTitle           = "buttonTitle"
	KeyCustomTemplate        = "customTemplate"
	KeyDropdownOptions       = "dropdownOptions"
	KeyLinkedinEnabled       = "linkedinEnabled"
	KeyAutoConnectEnabled    = "autoConnectEnabled"
	KeyConnectionLimit       = "connectionLimit"
	KeyScrollDelayMs         = "scrollDelayMs"
	KeyAmplitudeEnabled      = "amplitudeEnabled"
)

// Item is an entry in the files or usernames filter collection.
type Item struct {
	ID        string `json:"id" yaml:"id" toml:"id"`
	Name      string `json:"name" yaml:"name" toml:"name"`
	Enabled   bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	Deletable bool   `json:"deletable" yaml:"deletable" toml:"deletable"`
}

// DropdownOption is a copy action shown in the copy button's menu.
// Slice order is display order.
type DropdownOption struct {
	ID       string `json:"id" yaml:"id" toml:"id"`
	Text     string `json:"text" yaml:"text" toml:"text"`
	Enabled  bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	Template string `json:"template" yaml:"template" toml:"template"`
}

// Settings is the flat settings document. Values are bool, string, int,
// []Item or []DropdownOption depending on the key.
type Settings map[string]any

// Defaults returns a fresh copy of the default settings.
func Defaults() Settings {
	return Settings{
		KeyGithubEnabled:     true,
		KeyFileFilterEnabled: true,
		KeyFiles: []Item{
			{ID: "1", Name: "package-lock.json", Enabled: true, Deletable: true},
			{ID: "2", Name: "yarn.lock", Enabled: true, Deletable: true},
			{ID: "3", Name: "pnpm-lock.yaml", Enabled: true, Deletable: true},
			{ID: "4", Name: "Cargo.lock", Enabled: true, Deletable: true},
			{ID: "5", Name: "go.sum", Enabled: true, Deletable: true},
		},
		KeyUsernameFilterEnabled: false,
		KeyUsernames:             []Item{},
		KeyAutoLoadMoreEnabled:   true,
		KeyJiraEnabled:           true,
		KeyButtonTitle:           "Copy",
		KeyCustomTemplate:        "{{ticket_id}}: {{title}}",
		KeyDropdownOptions: []DropdownOption{
			{ID: "1", Text: "Branch name", Enabled: true, Template: "{{ticket_id:lower}}-{{title:dash}}"},
			{ID: "2", Text: "Commit message", Enabled: true, Template: "{{ticket_id}}: {{title}}"},
			{ID: "3", Text: "Link (HTML)", Enabled: true, Template: "{{hyperlink_start}}{{ticket_id}}: {{title}}{{hyperlink_end}}"},
			{ID: "4", Text: "Link (Markdown)", Enabled: true, Template: "{{markdown_start}}{{ticket_id}}: {{title}}{{markdown_end}}"},
		},
		KeyLinkedinEnabled:    false,
		KeyAutoConnectEnabled: false,
		KeyConnectionLimit:    20,
		KeyScrollDelayMs:      1500,
		KeyAmplitudeEnabled:   false,
	}
}

var schema = Defaults()

// Keys returns every settings key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(schema))
	for k := range schema {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Known reports whether key is part of the schema.
func Known(key string) bool {
	_, ok := schema[key]
	return ok
}

// Default returns the default value for key, or nil for unknown keys.
func Default(key string) any {
	v, ok := schema[key]
	if !ok {
		return nil
	}
	return cloneValue(v)
}

// Clone returns a deep copy of s.
func (s Settings) Clone() Settings {
	if s == nil {
		return nil
	}
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = cloneValue(v)
	}
	return out
}

// Bool returns the boolean stored at key, or false.
func (s Settings) Bool(key string) bool {
	v, _ := s[key].(bool)
	return v
}

// String returns the string stored at key, or "".
func (s Settings) String(key string) string {
	v, _ := s[key].(string)
	return v
}

// Int returns the integer stored at key, or 0.
func (s Settings) Int(key string) int {
	v, _ := s[key].(int)
	return v
}

// Items returns a copy of the Item collection stored at key.
func (s Settings) Items(key string) []Item {
	v, _ := s[key].([]Item)
	return slices.Clone(v)
}

// DropdownOptions returns a copy of the dropdown options.
func (s Settings) DropdownOptions() []DropdownOption {
	v, _ := s[KeyDropdownOptions].([]DropdownOption)
	return slices.Clone(v)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []Item:
		if t == nil {
			return []Item{}
		}
		return slices.Clone(t)
	case []DropdownOption:
		if t == nil {
			return []DropdownOption{}
		}
		return slices.Clone(t)
	default:
		return v
	}
}
