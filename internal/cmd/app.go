// Package cmd implements the bk command-line interface.
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"buttonkit/internal/config"
	"buttonkit/internal/kvstorage"
	"buttonkit/internal/settings"

	"github.com/pterm/pterm"
	"golang.org/x/term"
)

// App holds application state shared across commands.
type App struct {
	Settings    *settings.Store
	Backend     kvstorage.Durable
	ConfigStore config.Store
	Config      config.Config
	ConfigDir   string // path to the buttonkit data directory
	Logger      *slog.Logger
	Out         io.Writer
	Err         io.Writer
	JSON        bool // output in JSON format

	closers []func() error
}

// Close shuts the settings store down and releases the backend.
func (a *App) Close() error {
	if a.Settings != nil {
		a.Settings.Shutdown()
	}
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// writeJSON encodes v to Out.
func (a *App) writeJSON(v any) error {
	return writeJSONTo(a.Out, v)
}

func writeJSONTo(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// table renders rows (first row is the header) to Out.
func (a *App) table(rows pterm.TableData) error {
	s, err := pterm.DefaultTable.WithHasHeader().WithData(rows).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.Out, s)
	return err
}

// SuccessColor returns the string wrapped in green ANSI codes if stdout is a terminal,
// otherwise returns the string unchanged.
func (a *App) SuccessColor(s string) string {
	if a.isTerminal() {
		return "\033[32m" + s + "\033[0m"
	}
	return s
}

// WarnColor returns the string wrapped in orange ANSI codes if stdout is a terminal,
// otherwise returns the string unchanged.
func (a *App) WarnColor(s string) string {
	if a.isTerminal() {
		return "\033[38;5;214m" + s + "\033[0m"
	}
	return s
}

func (a *App) isTerminal() bool {
	f, ok := a.Out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
