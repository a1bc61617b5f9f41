// Package config handles hrassist configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/hrassist/config.yaml, /etc/hrassist/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "hrassist", "config.yaml"))
	}

	paths = append(paths, "/etc/hrassist/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must
// exist. Otherwise the first existing path from DefaultSearchPaths wins.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all hrassist configuration.
type Config struct {
	Listen   ListenConfig  `yaml:"listen"`
	Gemini   GeminiConfig  `yaml:"gemini"`
	Company  CompanyConfig `yaml:"company"`
	Database string        `yaml:"database"`
	// PoliciesDir holds markdown policy documents ingested into the
	// knowledge base at startup. Empty disables ingestion.
	PoliciesDir string `yaml:"policies_dir"`
	LogLevel    string `yaml:"log_level"`
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// GeminiConfig defines the model service settings. APIKey falls back to
// the GEMINI_API_KEY environment variable when empty.
type GeminiConfig struct {
	APIKey          string  `yaml:"api_key"`
	Model           string  `yaml:"model"`
	BaseURL         string  `yaml:"base_url"`
	Temperature     float64 `yaml:"temperature"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
	TimeoutSec      int     `yaml:"timeout_sec"`
}

// CompanyConfig defines the domain facts woven into the system prompt.
type CompanyConfig struct {
	Name     string `yaml:"name"`
	Operator string `yaml:"operator"`
}

// Load reads configuration from a YAML file. Environment variables in
// the file are expanded before parsing, so secrets can be referenced as
// ${GEMINI_API_KEY}.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	if cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen:   ListenConfig{Port: 8090},
		Database: "hrassist.db",
		Gemini: GeminiConfig{
			Model:           "gemini-2.0-flash",
			Temperature:     0.7,
			MaxOutputTokens: 2048,
			TimeoutSec:      60,
		},
		Company: CompanyConfig{
			Name:     "Deriv",
			Operator: "the People Team",
		},
	}
}
