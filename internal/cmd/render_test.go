package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestRender_Option(t *testing.T) {
	app, _ := setupTestApp(t)

	out := mustRun(t, app, newRenderCmd,
		"--option", "branch NAME", "--var", "ticket_id=PROJ-12", "--var", "title=Fix Login Bug")
	if out != "proj-12-fix-login-bug\n" {
		t.Errorf("output = %q", out)
	}
}

func TestRender_Template(t *testing.T) {
	app, _ := setupTestApp(t)

	out := mustRun(t, app, newRenderCmd,
		"--template", "{{title:underscore}}", "--var", "title=Hello World")
	if out != "hello_world\n" {
		t.Errorf("output = %q", out)
	}
}

func TestRender_HTML(t *testing.T) {
	app, _ := setupTestApp(t)

	out := mustRun(t, app, newRenderCmd, "--option", "3", "--as", "html",
		"--url", "https://jira.example.com/browse/PROJ-12",
		"--var", "ticket_id=PROJ-12", "--var", "title=A & B")
	want := `<a href="https://jira.example.com/browse/PROJ-12">PROJ-12: A &amp; B</a>` + "\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestRender_Markdown(t *testing.T) {
	app, _ := setupTestApp(t)

	out := mustRun(t, app, newRenderCmd, "--option", "Link (Markdown)", "--as", "markdown",
		"--url", "https://jira.example.com/browse/PROJ-12",
		"--var", "ticket_id=PROJ-12", "--var", "title=A & B")
	want := "[PROJ-12: A & B](https://jira.example.com/browse/PROJ-12)\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestRender_HTMLWithoutLink(t *testing.T) {
	app, _ := setupTestApp(t)

	_, err := runCmd(t, app, newRenderCmd, "--option", "1", "--as", "html")
	if err == nil || !strings.Contains(err.Error(), "hyperlink_start") {
		t.Errorf("error = %v", err)
	}
}

func TestRender_Strict(t *testing.T) {
	app, _ := setupTestApp(t)

	_, err := runCmd(t, app, newRenderCmd, "--strict",
		"--template", "{{ticket_id}} by {{reporter}}", "--var", "ticket_id=PROJ-1")
	if !errors.Is(err, errDataNotAvailable) {
		t.Errorf("error = %v, want data not available", err)
	}
}

func TestRender_UnresolvedWarns(t *testing.T) {
	app, _ := setupTestApp(t)

	out := mustRun(t, app, newRenderCmd, "--template", "{{ticket_id}} by {{reporter}}", "--var", "ticket_id=PROJ-1")
	if out != "PROJ-1 by {{reporter}}\n" {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(app.Err.(*bytes.Buffer).String(), "not resolved") {
		t.Error("expected unresolved warning on stderr")
	}
}

func TestRender_JSON(t *testing.T) {
	app, _ := setupTestApp(t)
	app.JSON = true

	var result map[string]any
	decodeJSON(t, mustRun(t, app, newRenderCmd, "--template", "{{missing}}"), &result)
	if result["result"] != "{{missing}}" || result["unresolved"] != true {
		t.Errorf("result = %v", result)
	}
}

func TestRender_FlagErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no template", nil},
		{"both sources", []string{"--template", "x", "--option", "1"}},
		{"unknown option", []string{"--option", "Nope"}},
		{"bad var", []string{"--template", "x", "--var", "novalue"}},
		{"bad flavour", []string{"--template", "x", "--as", "pdf"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := setupTestApp(t)
			if _, err := runCmd(t, app, newRenderCmd, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseVars(t *testing.T) {
	data, err := parseVars([]string{"title=a=b", " ticket_id =X", "empty="})
	if err != nil {
		t.Fatalf("parseVars: %v", err)
	}
	if data["title"] != "a=b" || data["ticket_id"] != "X" {
		t.Errorf("data = %v", data)
	}
	if v, ok := data["empty"]; !ok || v != "" {
		t.Errorf("empty value = %q, %v", v, ok)
	}
}
