// Package config loads engine and language model settings and resolves
// the on-disk locations tally uses.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultDatabasePath is used when database.path is not configured.
const DefaultDatabasePath = "~/.local/share/tally/tally.db"

// ExpandPath resolves a leading ~ to the home directory and expands $VAR
// references. An unknown home directory leaves ~ in place.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return os.ExpandEnv(path)
}

// ConfigDir is $XDG_CONFIG_HOME/tally, or ~/.config/tally when XDG is unset.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "tally")
	}
	return ExpandPath("~/.config/tally")
}
