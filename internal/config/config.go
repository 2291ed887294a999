package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config models sprintdeck.yml: the project key prefix, the remote service
// address, and the persisted session selections.
type Config struct {
	Project struct {
		// Key is the human-facing task key prefix (PROJ in PROJ-101).
		Key string `yaml:"key"`
	} `yaml:"project"`
	API struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"api"`
	Session struct {
		// Actor is the acting user's id; empty means "first roster entry".
		Actor string `yaml:"actor"`
		// Sprint is the currently selected sprint id; empty means "first
		// sprint".
		Sprint string `yaml:"sprint"`
	} `yaml:"session"`
}

// Load reads and validates config from the workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; run sd init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Save writes the config back to the workspace file.
func (c *Config) Save(workspace string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(Path(workspace), data, 0o644)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Project.Key == "" {
		return fmt.Errorf("config.project.key is required")
	}
	if strings.Contains(c.Project.Key, "-") {
		return fmt.Errorf("config.project.key must not contain '-'")
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("config.api.base_url is required")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "sprintdeck.yml")
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	cfg.Project.Key = "PROJ"
	cfg.API.BaseURL = "http://localhost:3344/api"
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
