// Package paths resolves per-user directories and files for the CLI.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const (
	projectOrg  = "apimgr"
	projectName = "idealista"
)

// ConfigDir returns the CLI config directory.
// Linux: $XDG_CONFIG_HOME/apimgr/idealista or ~/.config/apimgr/idealista
// Windows: %APPDATA%\apimgr\idealista
func ConfigDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), projectOrg, projectName)
	}
	if base := os.Getenv("XDG_CONFIG_HOME"); base != "" {
		return filepath.Join(base, projectOrg, projectName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", projectOrg, projectName)
}

// CacheDir returns the CLI cache directory.
// Linux: $XDG_CACHE_HOME/apimgr/idealista or ~/.cache/apimgr/idealista
// Windows: %LOCALAPPDATA%\apimgr\idealista\cache
func CacheDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("LOCALAPPDATA"), projectOrg, projectName, "cache")
	}
	if base := os.Getenv("XDG_CACHE_HOME"); base != "" {
		return filepath.Join(base, projectOrg, projectName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", projectOrg, projectName)
}

// LogDir returns the CLI log directory.
// Linux: ~/.local/log/apimgr/idealista
// Windows: %LOCALAPPDATA%\apimgr\idealista\log
func LogDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("LOCALAPPDATA"), projectOrg, projectName, "log")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "log", projectOrg, projectName)
}

// ConfigFile returns the CLI config file path (viper-managed settings).
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "cli.yml")
}

// CredentialsFile returns the JSON credentials file path.
func CredentialsFile() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// TokenCacheFile returns the cached OAuth token file path.
func TokenCacheFile() string {
	return filepath.Join(CacheDir(), "token.json")
}

// LogFile returns the CLI log file path.
func LogFile() string {
	return filepath.Join(LogDir(), "cli.log")
}

// EnsureDirs creates all CLI directories with restrictive permissions.
// Called on every startup before any file operations.
func EnsureDirs() error {
	dirs := []string{
		ConfigDir(),
		CacheDir(),
		LogDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	return nil
}

// EnsureFile creates the parent dir of path before the file is written.
func EnsureFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	return nil
}
