package state

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// BaseDir returns the default directory for persistent bot state: the system
// user cache dir + "/studybot". It panics when no cache dir can be found so
// state is never written somewhere arbitrary.
func BaseDir() string {
	if d := strings.TrimSpace(userCacheDir()); d != "" {
		return filepath.Join(d, "studybot")
	}
	panic("state.BaseDir: cannot determine system user cache directory")
}

func userCacheDir() string {
	if d, err := os.UserCacheDir(); err == nil && strings.TrimSpace(d) != "" {
		return d
	}
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return ""
	}
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Local")
	case "darwin":
		return filepath.Join(home, "Library", "Caches")
	default:
		return filepath.Join(home, ".cache")
	}
}
