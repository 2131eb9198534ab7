// Package main provides CLI initialization.
package main

import (
	"fmt"

	"github.com/apimgr/idealista/src/client/paths"
)

// InitCLI prepares the CLI environment before any command runs. Directories
// come first so every later file operation has a place to land; the logger
// itself is installed by the command layer once the config file is read.
func InitCLI() error {
	if err := paths.EnsureDirs(); err != nil {
		return fmt.Errorf("init directories: %w", err)
	}
	return nil
}
