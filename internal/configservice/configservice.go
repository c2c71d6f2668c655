// Package configservice locates the buttonkit data directory and opens its
// config file.
package configservice

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"buttonkit/internal/config"
	"buttonkit/internal/config/yamlstore"
)

// DirName is the name of a project-local data directory.
const DirName = ".buttonkit"

// ErrNotInitialized is returned by Open when no config.yaml exists at the
// resolved location.
var ErrNotInitialized = errors.New("buttonkit is not initialized (run `bk init`)")

// ResolvePaths resolves the data directory.
// Discovery order: BK_DIR env var > walk up from CWD for .buttonkit/config.yaml
// (stopping at git root, with worktree fallback) > per-user config dir.
// The returned directory may not exist yet.
func ResolvePaths() (config.Paths, error) {
	if envDir := os.Getenv(config.EnvDir); envDir != "" {
		abs, err := filepath.Abs(envDir)
		if err != nil {
			return config.Paths{}, fmt.Errorf("resolving %s: %w", config.EnvDir, err)
		}
		return ResolveFromBase(abs)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return config.Paths{}, fmt.Errorf("cannot get current directory: %w", err)
	}

	dir, found, err := findConfigUpward(cwd)
	if err != nil {
		return config.Paths{}, err
	}
	if !found {
		if wt, wtErr := findGitWorktreeRoot(cwd); wtErr == nil && wt != "" {
			dir, found, err = findConfigUpward(wt)
			if err != nil {
				return config.Paths{}, err
			}
		}
	}
	if found {
		return ResolveFromBase(dir)
	}

	userDir, err := os.UserConfigDir()
	if err != nil {
		return config.Paths{}, fmt.Errorf("locating user config dir: %w", err)
	}
	return ResolveFromBase(filepath.Join(userDir, "buttonkit"))
}

// ResolveFromBase builds Paths for a known data directory. The directory
// must not be a regular file.
func ResolveFromBase(basePath string) (config.Paths, error) {
	info, err := os.Stat(basePath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return config.Paths{}, fmt.Errorf("cannot access data directory %s: %w", basePath, err)
	}
	if err == nil && !info.IsDir() {
		return config.Paths{}, fmt.Errorf("data path is not a directory: %s", basePath)
	}
	return config.Paths{
		ConfigDir:  basePath,
		ConfigFile: filepath.Join(basePath, "config.yaml"),
	}, nil
}

// Initialized reports whether p.ConfigFile exists.
func Initialized(p config.Paths) bool {
	info, err := os.Stat(p.ConfigFile)
	return err == nil && !info.IsDir()
}

// Open loads the config file at p, then applies .env, BK_* overrides and
// in-memory defaults. When the file is absent the store is still returned
// together with ErrNotInitialized so callers can run on defaults.
func Open(p config.Paths) (*yamlstore.YAMLStore, error) {
	if err := config.LoadEnvFile(p.EnvFile()); err != nil {
		return nil, fmt.Errorf("loading %s: %w", p.EnvFile(), err)
	}
	store, err := yamlstore.New(p.ConfigFile)
	if err != nil {
		return nil, err
	}
	config.ApplyEnvOverrides(store)
	config.ApplyDefaultsInMemory(store)
	if !Initialized(p) {
		return store, ErrNotInitialized
	}
	return store, nil
}

// findConfigUpward walks from start toward the filesystem root looking for
// .buttonkit/config.yaml. It stops at the git repository root (if inside a
// git repo) to avoid escaping the repo boundary.
func findConfigUpward(start string) (string, bool, error) {
	gitRoot, _ := FindGitRoot(start)

	dir := start
	for {
		configDir := filepath.Join(dir, DirName)
		info, err := os.Stat(filepath.Join(configDir, "config.yaml"))
		if err == nil && !info.IsDir() {
			return configDir, true, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("checking config: %w", err)
		}

		if gitRoot != "" && dir == gitRoot {
			return "", false, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

// FindGitRoot returns the git repository root for the given directory.
// Returns "" if not in a git repo.
func FindGitRoot(startDir string) (string, error) {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			// .git is a directory in a normal repo and a file in a worktree
			if info.IsDir() || info.Mode().IsRegular() {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// findGitWorktreeRoot returns the main repository root when startDir is
// inside a linked worktree, or "" otherwise.
func findGitWorktreeRoot(startDir string) (string, error) {
	gitRoot, err := FindGitRoot(startDir)
	if err != nil || gitRoot == "" {
		return "", err
	}

	gitPath := filepath.Join(gitRoot, ".git")
	info, err := os.Stat(gitPath)
	if err != nil || info.IsDir() {
		return "", err
	}

	// Format: "gitdir: /path/to/main/.git/worktrees/name"
	content, err := os.ReadFile(gitPath)
	if err != nil {
		return "", err
	}
	line := strings.TrimSpace(string(content))
	wtDir, ok := strings.CutPrefix(line, "gitdir: ")
	if !ok {
		return "", nil
	}
	if !filepath.IsAbs(wtDir) {
		wtDir = filepath.Join(gitRoot, wtDir)
	}
	wtDir = filepath.Clean(wtDir)

	if common, err := os.ReadFile(filepath.Join(wtDir, "commondir")); err == nil {
		c := strings.TrimSpace(string(common))
		if !filepath.IsAbs(c) {
			c = filepath.Join(wtDir, c)
		}
		return filepath.Dir(filepath.Clean(c)), nil
	}

	sep := string(filepath.Separator)
	if strings.Contains(wtDir, sep+"worktrees"+sep) {
		// name -> worktrees -> .git -> repo root
		return filepath.Dir(filepath.Dir(filepath.Dir(wtDir))), nil
	}
	return "", nil
}
