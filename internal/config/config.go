package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the on-disk application configuration. Flags override
// individual fields at startup.
type Config struct {
	DBPath     string `json:"db_path"`
	WebEnabled bool   `json:"web_enabled"`
	WebPort    int    `json:"web_port"`
}

func Default() Config {
	return Config{WebPort: 8080}
}

// DefaultPath returns the config file location under the user config dir
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "taskmaster", "config.json"), nil
}

// EnsureDir creates the parent directory of path
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

// Load reads the config at path; a missing file yields the defaults
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, err
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Save writes the config to path, creating parent directories
func Save(path string, cfg Config) error {
	if err := EnsureDir(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}
