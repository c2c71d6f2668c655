// Package e2etests runs the bk binary end to end against sandbox data
// directories.
package e2etests

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Runner executes bk commands against a sandbox directory.
type Runner struct {
	BkCmd string // path to bk binary
}

// SetupSandbox creates and initializes a fresh data directory.
func (r *Runner) SetupSandbox() (string, error) {
	dir, err := os.MkdirTemp("", "bk-e2e-*")
	if err != nil {
		return "", err
	}
	if res := r.Run(dir, "init"); res.ExitCode != 0 {
		os.RemoveAll(dir)
		return "", fmt.Errorf("bk init failed (exit %d): %s", res.ExitCode, res.Stderr)
	}
	return dir, nil
}

// TeardownSandbox removes a sandbox directory.
func (r *Runner) TeardownSandbox(path string) error {
	return os.RemoveAll(path)
}

// RunResult holds the output of a command execution.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

func (r *Runner) command(sandbox string, args ...string) *exec.Cmd {
	cmd := exec.Command(r.BkCmd, args...)
	env := make([]string, 0, len(os.Environ())+1)
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, "BK_") {
			env = append(env, kv)
		}
	}
	cmd.Env = append(env, "BK_DIR="+sandbox)
	return cmd
}

// Run executes a bk command with the given arguments.
// It sets BK_DIR to the sandbox path so the command finds the right data directory.
func (r *Runner) Run(sandbox string, args ...string) RunResult {
	return r.RunInput(sandbox, "", args...)
}

// RunInput is Run with stdin.
func (r *Runner) RunInput(sandbox, stdin string, args ...string) RunResult {
	cmd := r.command(sandbox, args...)
	cmd.Stdin = strings.NewReader(stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return RunResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode(err),
	}
}

// RunJSON executes a bk command with --json appended.
func (r *Runner) RunJSON(sandbox string, args ...string) RunResult {
	return r.Run(sandbox, append(args, "--json")...)
}

// Background starts a long-running bk command and waits until it writes
// a line containing ready to stderr. wait blocks until the command exits.
func (r *Runner) Background(sandbox, ready string, args ...string) (wait func(timeout time.Duration) (RunResult, error), err error) {
	cmd := r.command(sandbox, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	var stderr bytes.Buffer
	found := make(chan struct{})
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		sc := bufio.NewScanner(stderrPipe)
		signalled := false
		for sc.Scan() {
			stderr.WriteString(sc.Text() + "\n")
			if !signalled && strings.Contains(sc.Text(), ready) {
				signalled = true
				close(found)
			}
		}
		io.Copy(io.Discard, stderrPipe)
		if !signalled {
			close(found)
		}
	}()

	select {
	case <-found:
	case <-time.After(10 * time.Second):
		cmd.Process.Kill()
		return nil, fmt.Errorf("%v did not become ready", args)
	}

	return func(timeout time.Duration) (RunResult, error) {
		done := make(chan error, 1)
		go func() {
			<-drained
			done <- cmd.Wait()
		}()
		select {
		case err := <-done:
			return RunResult{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: exitCode(err)}, nil
		case <-time.After(timeout):
			cmd.Process.Kill()
			return RunResult{}, fmt.Errorf("%v did not exit within %s", args, timeout)
		}
	}, nil
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}
