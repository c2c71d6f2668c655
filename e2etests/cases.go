package e2etests

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TestCase defines a named e2e test scenario.
type TestCase struct {
	Name string
	Fn   func(r *Runner, sandbox string) error
}

// testCases is the ordered registry of all e2e test cases.
var testCases = []TestCase{
	{"01_settings_persist", caseSettingsPersist},
	{"02_file_filter", caseFileFilter},
	{"03_dropdown_render", caseDropdownRender},
	{"04_export_import", caseExportImport},
	{"05_stream", caseStream},
	{"06_config", caseConfig},
	{"07_watch_other_process", caseWatchOtherProcess},
}

// mustRun runs a command and fails the case on a non-zero exit.
func mustRun(r *Runner, sandbox string, args ...string) (RunResult, error) {
	result := r.Run(sandbox, args...)
	if result.ExitCode != 0 {
		return result, fmt.Errorf("command %v failed (exit %d): %s", args, result.ExitCode, result.Stderr)
	}
	return result, nil
}

// mustRunJSON runs a JSON command and decodes its output into v.
func mustRunJSON(r *Runner, sandbox string, v any, args ...string) error {
	result := r.RunJSON(sandbox, args...)
	if result.ExitCode != 0 {
		return fmt.Errorf("command %v failed (exit %d): %s", args, result.ExitCode, result.Stderr)
	}
	if err := json.Unmarshal([]byte(result.Stdout), v); err != nil {
		return fmt.Errorf("command %v: bad JSON %q: %w", args, result.Stdout, err)
	}
	return nil
}

func expectOutput(result RunResult, want string) error {
	if result.Stdout != want {
		return fmt.Errorf("stdout = %q, want %q", result.Stdout, want)
	}
	return nil
}

func expectFailure(r *Runner, sandbox, contains string, args ...string) error {
	result := r.Run(sandbox, args...)
	if result.ExitCode == 0 {
		return fmt.Errorf("command %v should have failed", args)
	}
	if !strings.Contains(result.Stderr, contains) {
		return fmt.Errorf("command %v stderr = %q, want %q", args, result.Stderr, contains)
	}
	return nil
}

// 01: a value written by one process is read by the next.
func caseSettingsPersist(r *Runner, sandbox string) error {
	if _, err := mustRun(r, sandbox, "settings", "set", "buttonTitle", "Copy ticket"); err != nil {
		return err
	}
	if _, err := mustRun(r, sandbox, "settings", "set", "scrollDelayMs", "900"); err != nil {
		return err
	}
	result, err := mustRun(r, sandbox, "settings", "get", "buttonTitle")
	if err != nil {
		return err
	}
	if err := expectOutput(result, "Copy ticket\n"); err != nil {
		return err
	}

	if _, err := mustRun(r, sandbox, "settings", "reset", "buttonTitle"); err != nil {
		return err
	}
	var doc map[string]any
	if err := mustRunJSON(r, sandbox, &doc, "settings", "list"); err != nil {
		return err
	}
	if doc["buttonTitle"] != "Copy" || doc["scrollDelayMs"] != float64(900) {
		return fmt.Errorf("after reset: buttonTitle=%v scrollDelayMs=%v", doc["buttonTitle"], doc["scrollDelayMs"])
	}
	return expectFailure(r, sandbox, "unknown setting", "settings", "set", "theme", "dark")
}

// 02: file filter CRUD and the hide check.
func caseFileFilter(r *Runner, sandbox string) error {
	if _, err := mustRun(r, sandbox, "files", "add", "Podfile.lock"); err != nil {
		return err
	}
	if err := expectFailure(r, sandbox, "already exists", "files", "add", "podfile.LOCK"); err != nil {
		return err
	}
	if _, err := mustRun(r, sandbox, "files", "toggle", "2", "--off"); err != nil {
		return err
	}

	result, err := mustRun(r, sandbox, "hide", "ios/Podfile.lock", "yarn.lock", "web/package-lock.json")
	if err != nil {
		return err
	}
	if err := expectOutput(result, "ios/Podfile.lock\nweb/package-lock.json\n"); err != nil {
		return err
	}

	if _, err := mustRun(r, sandbox, "settings", "set", "fileFilterEnabled", "false"); err != nil {
		return err
	}
	var hidden struct {
		Hidden []string `json:"hidden"`
	}
	if err := mustRunJSON(r, sandbox, &hidden, "hide", "ios/Podfile.lock"); err != nil {
		return err
	}
	if len(hidden.Hidden) != 0 {
		return fmt.Errorf("filter disabled but hidden = %v", hidden.Hidden)
	}
	return nil
}

// 03: dropdown option management and rendering.
func caseDropdownRender(r *Runner, sandbox string) error {
	if _, err := mustRun(r, sandbox, "dropdown", "add", "Slack", "*{{ticket_id}}* {{title:clean}}"); err != nil {
		return err
	}
	result, err := mustRun(r, sandbox, "render", "--option", "slack",
		"--var", "ticket_id=PROJ-9", "--var", "title=Fix it, now!")
	if err != nil {
		return err
	}
	if err := expectOutput(result, "*PROJ-9* Fix it now\n"); err != nil {
		return err
	}

	if _, err := mustRun(r, sandbox, "dropdown", "reorder", "4", "0", "1", "2", "3"); err != nil {
		return err
	}
	var opts []struct {
		Text string `json:"text"`
	}
	if err := mustRunJSON(r, sandbox, &opts, "dropdown", "list"); err != nil {
		return err
	}
	if len(opts) != 5 || opts[0].Text != "Slack" || opts[1].Text != "Branch name" {
		return fmt.Errorf("order after reorder = %+v", opts)
	}

	return expectFailure(r, sandbox, "data not available",
		"render", "--option", "Branch name", "--var", "ticket_id=PROJ-9", "--strict")
}

// 04: export to YAML, change everything, import it back.
func caseExportImport(r *Runner, sandbox string) error {
	path := sandbox + "/backup.yaml"
	if _, err := mustRun(r, sandbox, "users", "add", "renovate-bot"); err != nil {
		return err
	}
	if _, err := mustRun(r, sandbox, "settings", "export", "-o", path); err != nil {
		return err
	}
	if _, err := mustRun(r, sandbox, "settings", "reset"); err != nil {
		return err
	}
	if _, err := mustRun(r, sandbox, "settings", "import", path); err != nil {
		return err
	}
	result, err := mustRun(r, sandbox, "settings", "get", "usernames.0.name")
	if err != nil {
		return err
	}
	return expectOutput(result, "renovate-bot\n")
}

// 05: a burst of streamed values ends in one stored value.
func caseStream(r *Runner, sandbox string) error {
	result := r.RunInput(sandbox, "J\nJi\nJir\nJira copy\n", "settings", "stream", "buttonTitle")
	if result.ExitCode != 0 {
		return fmt.Errorf("stream failed: %s", result.Stderr)
	}
	result, err := mustRun(r, sandbox, "settings", "get", "buttonTitle")
	if err != nil {
		return err
	}
	return expectOutput(result, "Jira copy\n")
}

// 06: config get/set/list/unset/validate lifecycle.
func caseConfig(r *Runner, sandbox string) error {
	if _, err := mustRun(r, sandbox, "config", "set", "save.debounce_ms", "50"); err != nil {
		return err
	}
	result, err := mustRun(r, sandbox, "config", "get", "save.debounce_ms")
	if err != nil {
		return err
	}
	if err := expectOutput(result, "50\n"); err != nil {
		return err
	}
	if err := expectFailure(r, sandbox, "allowed", "config", "set", "log.level", "loud"); err != nil {
		return err
	}
	var list map[string]string
	if err := mustRunJSON(r, sandbox, &list, "config", "list"); err != nil {
		return err
	}
	if list["storage.backend"] != "filesystem" {
		return fmt.Errorf("config list = %v", list)
	}
	if _, err := mustRun(r, sandbox, "config", "unset", "save.debounce_ms"); err != nil {
		return err
	}
	result, err = mustRun(r, sandbox, "config", "validate")
	if err != nil {
		return err
	}
	return expectOutput(result, "Configuration is valid.\n")
}

// 07: a watcher sees a change made by a different process.
func caseWatchOtherProcess(r *Runner, sandbox string) error {
	wait, err := r.Background(sandbox, "Watching", "watch", "--keys", "jiraEnabled", "--count", "1")
	if err != nil {
		return err
	}
	if _, err := mustRun(r, sandbox, "settings", "set", "jiraEnabled", "false"); err != nil {
		return err
	}
	result, err := wait(10 * time.Second)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("watch failed (exit %d): %s", result.ExitCode, result.Stderr)
	}
	return expectOutput(result, "jiraEnabled: true -> false\n")
}
