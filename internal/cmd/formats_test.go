package cmd

import (
	"strings"
	"testing"

	"buttonkit/internal/template"
)

func TestFormats_Variable(t *testing.T) {
	app, _ := setupTestApp(t)
	app.JSON = true

	var got map[string][]template.FormatOption
	decodeJSON(t, mustRun(t, app, newFormatsCmd, "ticket_id"), &got)
	opts := got["ticket_id"]
	if len(opts) != 2 || opts[0].Key != "default" || opts[1].Key != "lower" {
		t.Errorf("ticket_id formats = %+v", opts)
	}
}

func TestFormats_UnknownVariable(t *testing.T) {
	app, _ := setupTestApp(t)
	app.JSON = true

	var got map[string][]template.FormatOption
	decodeJSON(t, mustRun(t, app, newFormatsCmd, "sprint"), &got)
	if len(got["sprint"]) != 1 || got["sprint"][0].Key != "default" {
		t.Errorf("sprint formats = %+v", got["sprint"])
	}
}

func TestFormats_Table(t *testing.T) {
	app, _ := setupTestApp(t)

	out := mustRun(t, app, newFormatsCmd)
	for _, want := range []string{"{{title:first_lower}}", "{{reporter:dash}}", "{{url}}"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q", want)
		}
	}
}
