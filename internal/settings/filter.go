package settings

import (
	"path"
	"strings"

	"github.com/samber/lo"
)

// ShouldHideFile reports whether filePath matches an enabled entry of
// files. An entry matches when it equals the file's base name, when it is
// an extension (".lock") the base name ends with, or when it is a path
// suffix starting at a directory boundary ("ios/Podfile.lock").
func ShouldHideFile(filePath string, files []Item) bool {
	p := strings.TrimSpace(strings.ReplaceAll(filePath, `\`, "/"))
	if p == "" {
		return false
	}
	base := path.Base(p)
	return lo.ContainsBy(files, func(it Item) bool {
		if !it.Enabled {
			return false
		}
		name := strings.TrimSpace(it.Name)
		switch {
		case name == "":
			return false
		case name == base:
			return true
		case strings.HasPrefix(name, ".") && !strings.Contains(name, "/"):
			return strings.HasSuffix(base, name)
		case strings.Contains(name, "/"):
			suffix := strings.TrimPrefix(name, "/")
			return p == suffix || strings.HasSuffix(p, "/"+suffix)
		}
		return false
	})
}

// ShouldHideUser reports whether username matches an enabled entry of
// usernames, ignoring case.
func ShouldHideUser(username string, usernames []Item) bool {
	username = strings.TrimSpace(username)
	if username == "" {
		return false
	}
	return lo.ContainsBy(usernames, func(it Item) bool {
		return it.Enabled && strings.EqualFold(it.Name, username)
	})
}

// HiddenFiles returns the paths that the file filter in doc hides. It
// returns nil when the filter is switched off.
func HiddenFiles(doc Settings, paths []string) []string {
	if !doc.Bool(KeyFileFilterEnabled) {
		return nil
	}
	files := doc.Items(KeyFiles)
	return lo.Filter(paths, func(p string, _ int) bool { return ShouldHideFile(p, files) })
}
