package config

import "path/filepath"

// Paths captures resolved locations for config.
type Paths struct {
	ConfigDir  string // path to the buttonkit data directory
	ConfigFile string // path to <dir>/config.yaml
}

// EnvFile returns the path of the optional .env file next to config.yaml.
func (p Paths) EnvFile() string {
	return filepath.Join(p.ConfigDir, ".env")
}
