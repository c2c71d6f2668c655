package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyFormat(t *testing.T) {
	tests := []struct {
		value, format, want string
	}{
		{"Fix Login Bug", FormatDefault, "Fix Login Bug"},
		{"Fix Login Bug", FormatLower, "fix login bug"},
		{"Fix the Login-page bug!", FormatUnderscore, "fix_the_login_page_bug"},
		{"Fix the login_page  bug!", FormatDash, "fix-the-login-page-bug"},
		{"Fix: the (login) bug!", FormatClean, "Fix the login bug"},
		{"Fix: the (login) bug!", FormatCleanLower, "fix the login bug"},
		{"Jane Q. Doe", FormatFirst, "Jane"},
		{"  Jane Doe", FormatFirstLower, "jane"},
		{"", FormatFirst, ""},
		{"Keep Me", "shouty", "Keep Me"},
		{"Keep Me", "", "Keep Me"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ApplyFormat(tt.value, tt.format), "%q:%s", tt.value, tt.format)
	}
}

func TestApplyFormat_DashAndUnderscoreAgreeOnSingleWords(t *testing.T) {
	for _, v := range []string{"High", "Done", "Bug"} {
		dash := ApplyFormat(v, FormatDash)
		assert.Equal(t, dash, ApplyFormat(v, FormatUnderscore), v)
	}
	assert.Equal(t, "high", ApplyFormat("High", FormatDash))
}

func optionKeys(opts []FormatOption) []string {
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.Key
	}
	return out
}

func TestFormatOptionsFor(t *testing.T) {
	assert.Equal(t, []string{"default", "lower", "dash", "underscore"}, optionKeys(FormatOptionsFor("priority")))
	assert.Equal(t, []string{"default", "lower"}, optionKeys(FormatOptionsFor("ticket_id")))
	assert.Equal(t, []string{"default"}, optionKeys(FormatOptionsFor("url")))
	assert.Equal(t, []string{"default"}, optionKeys(FormatOptionsFor("something_else")))
	assert.ElementsMatch(t, Formats(), optionKeys(FormatOptionsFor("title")))
	assert.NotContains(t, optionKeys(FormatOptionsFor("priority")), FormatFirst)

	for _, o := range FormatOptionsFor("title") {
		assert.NotEmpty(t, o.Label, o.Key)
	}
}

func TestFormattedVariables(t *testing.T) {
	for _, v := range FormattedVariables() {
		assert.Contains(t, optionKeys(FormatOptionsFor(v)), FormatDefault, v)
	}
	assert.Len(t, FormattedVariables(), len(variableFormats))
}
