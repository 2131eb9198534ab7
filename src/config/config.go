// Package config resolves and persists API credentials.
//
// Resolution order: process environment, then a .env file in the working
// directory, then the per-user JSON credentials file. Environment always
// wins so CI and one-off overrides never need the file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/apimgr/idealista/src/model"
)

// Environment variable names for credentials.
const (
	EnvAPIKey    = "IDEALISTA_API_KEY"
	EnvAPISecret = "IDEALISTA_API_SECRET"
)

// File is the on-disk credentials shape.
type File struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
}

// Load reads the credentials file at path. A missing file yields an empty
// File, not an error.
func Load(path string) (File, error) {
	var f File
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return f, fmt.Errorf("read credentials file: %w", err)
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("parse credentials file %s: %w", path, err)
	}
	return f, nil
}

// Save writes the credentials file with owner-only permissions.
func Save(path, apiKey, apiSecret string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(File{APIKey: apiKey, APISecret: apiSecret}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write credentials file: %w", err)
	}
	return nil
}

// Resolve returns the credentials from the environment, a .env file, or the
// credentials file at path, in that order per field.
func Resolve(path string) (model.Credentials, error) {
	// Best effort; absence of a .env file is the normal case.
	_ = godotenv.Load()

	key := os.Getenv(EnvAPIKey)
	secret := os.Getenv(EnvAPISecret)

	if key == "" || secret == "" {
		f, err := Load(path)
		if err != nil {
			return model.Credentials{}, err
		}
		if key == "" {
			key = f.APIKey
		}
		if secret == "" {
			secret = f.APISecret
		}
	}

	if key == "" || secret == "" {
		return model.Credentials{}, model.ErrMissingCredentials
	}
	return model.Credentials{APIKey: key, APISecret: secret}, nil
}
