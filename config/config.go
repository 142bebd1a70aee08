// Package config loads llmsh configuration from YAML, with a user-level
// file overlaid by a project-level one.
package config

import (
	"os"
	"path/filepath"

	"github.com/m4xw311/llmsh/errors"
	"gopkg.in/yaml.v3"
)

// Config is the process configuration. API credentials can come from
// the file or from environment variables; the environment wins.
type Config struct {
	Provider    string   `yaml:"provider"` // "openai", "anthropic", "gemini", "bedrock"
	Model       string   `yaml:"model"`
	APIBase     string   `yaml:"api_base"` // OpenAI-compatible endpoints only
	APIKey      string   `yaml:"api_key"`
	AutoApprove []string `yaml:"auto_approve"` // glob patterns that skip confirmation
	Theme       string   `yaml:"theme"`        // glamour style name; empty selects auto
	DebugLog    string   `yaml:"debug_log"`    // file path; empty disables logging
}

// LoadConfig loads configuration from the user's home directory and the
// current working directory, with the latter taking precedence.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Provider: "openai",
	}

	// Load user-level config first
	home, err := os.UserHomeDir()
	if err == nil {
		userConfigPath := filepath.Join(home, ".llmsh", "config.yaml")
		if _, err := os.Stat(userConfigPath); err == nil {
			if err := loadFromFile(userConfigPath, cfg); err != nil {
				return nil, errors.Wrapf(err, "error loading user config")
			}
		}
	}

	// Load project-level config, overriding user-level
	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrapf(err, "could not get working directory")
	}
	projectConfigPath := filepath.Join(wd, ".llmsh", "config.yaml")
	if _, err := os.Stat(projectConfigPath); err == nil {
		if err := loadFromFile(projectConfigPath, cfg); err != nil {
			return nil, errors.Wrapf(err, "error loading project config")
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// Unmarshal overwrites fields present in the YAML, which gives a
	// simple merge where project-level config replaces user-level.
	return yaml.Unmarshal(data, cfg)
}

// applyEnv lets the environment override file-provided credentials and
// endpoint selection.
func applyEnv(cfg *Config) {
	if v := os.Getenv("LLMSH_API_BASE"); v != "" {
		cfg.APIBase = v
	}
	if v := os.Getenv("LLMSH_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("LLMSH_MODEL"); v != "" {
		cfg.Model = v
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}
