package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// EnsureUserConfig places an editable copy of the default config in the data
// dir on first run and returns its path. An existing user config is left
// untouched.
func EnsureUserConfig(dataDir string, defaultPath string) (string, error) {
	userPath := filepath.Join(dataDir, "config.yml")

	_, err := os.Stat(userPath)
	if err == nil {
		return userPath, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	b, err := os.ReadFile(defaultPath)
	if err != nil {
		return "", fmt.Errorf("read default config: %w", err)
	}
	if err := os.WriteFile(userPath, b, 0o644); err != nil {
		return "", fmt.Errorf("write user config: %w", err)
	}
	return userPath, nil
}
