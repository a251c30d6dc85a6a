package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the application configuration
type Config struct {
	Client ClientConfig `json:"client"`
	Send   SendConfig   `json:"send"`
	Output OutputConfig `json:"output"`
}

// ClientConfig holds configuration for the vision backend
type ClientConfig struct {
	Backend string `json:"backend"` // "openai" or "ollama"
	Model   string `json:"model"`
	BaseURL string `json:"base_url"`
	Detail  string `json:"detail"`
}

// SendConfig holds configuration for optional pre-send image processing
type SendConfig struct {
	Format  string `json:"format"`   // jpg or png
	MaxSize int    `json:"max_size"` // max long side in px, 0 = original
	Quality int    `json:"quality"`  // JPEG quality (1-100)
}

// OutputConfig holds configuration for diagnostic output
type OutputConfig struct {
	Dir     string `json:"dir"`
	SaveRaw bool   `json:"save_raw"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Client: ClientConfig{
			Backend: "openai",
			Model:   "gpt-4o",
			Detail:  "auto",
		},
		Send: SendConfig{
			Format:  "jpg",
			MaxSize: 0,
			Quality: 85,
		},
		Output: OutputConfig{
			Dir:     "out",
			SaveRaw: true,
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid. Detail values are left
// unvalidated on purpose: unknown hints are passed through to the provider.
func (c *Config) Validate() error {
	if c.Client.Backend != "openai" && c.Client.Backend != "ollama" {
		return fmt.Errorf("client.backend must be \"openai\" or \"ollama\"")
	}

	if c.Client.Model == "" {
		return fmt.Errorf("client.model cannot be empty")
	}

	if c.Send.Format != "jpg" && c.Send.Format != "png" {
		return fmt.Errorf("send.format must be \"jpg\" or \"png\"")
	}

	if c.Send.Quality < 1 || c.Send.Quality > 100 {
		return fmt.Errorf("send.quality must be between 1 and 100")
	}

	if c.Send.MaxSize < 0 {
		return fmt.Errorf("send.max_size cannot be negative")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "vision-analyzer", "config.json")
}
