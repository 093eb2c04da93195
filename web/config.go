// ABOUTME: Server configuration loaded from VITRINE_* environment variables with an optional YAML overlay.
// ABOUTME: Environment variables win over file values; defaults keep a dev setup running with zero config.
package web

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the preview server's configuration.
type Config struct {
	Bind       string `yaml:"bind"`        // socket address (VITRINE_BIND, default: 127.0.0.1:7700)
	DataDir    string `yaml:"data_dir"`    // history database directory (VITRINE_HOME)
	RepairURL  string `yaml:"repair_url"`  // repair service base URL (VITRINE_REPAIR_URL)
	SandboxURL string `yaml:"sandbox_url"` // sandbox service base URL (VITRINE_SANDBOX_URL, optional)

	// FixDisplay is how long completed/failed fix states stay visible.
	FixDisplay time.Duration `yaml:"fix_display"`
}

const (
	defaultBind       = "127.0.0.1:7700"
	defaultRepairURL  = "http://127.0.0.1:7710"
	defaultFixDisplay = 4 * time.Second
)

// LoadConfig reads the optional YAML config file at path (skipped when
// empty or missing), then overlays VITRINE_* environment variables, then
// fills defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if v := os.Getenv("VITRINE_BIND"); v != "" {
		cfg.Bind = v
	}
	if v := os.Getenv("VITRINE_HOME"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("VITRINE_REPAIR_URL"); v != "" {
		cfg.RepairURL = v
	}
	if v := os.Getenv("VITRINE_SANDBOX_URL"); v != "" {
		cfg.SandboxURL = v
	}

	if cfg.Bind == "" {
		cfg.Bind = defaultBind
	}
	if cfg.RepairURL == "" {
		cfg.RepairURL = defaultRepairURL
	}
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "/tmp"
		}
		cfg.DataDir = filepath.Join(home, ".vitrine")
	}
	if cfg.FixDisplay <= 0 {
		cfg.FixDisplay = defaultFixDisplay
	}

	return cfg, nil
}
