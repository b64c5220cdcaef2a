package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the CLI configuration
type Config struct {
	DefaultProfile string             `yaml:"default_profile"`
	Profiles       map[string]Profile `yaml:"profiles"`
}

// Profile is one mailist server the CLI can talk to
type Profile struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key,omitempty"`
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".mailist", "config.yaml"), nil
}

// LoadConfig loads the configuration from file
func LoadConfig() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty config if file doesn't exist
			return &Config{
				DefaultProfile: "default",
				Profiles:       make(map[string]Profile),
			}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]Profile)
	}

	return &cfg, nil
}

// SaveConfig saves the configuration to file
func SaveConfig(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ResolveProfile returns the server to talk to.
// Priority: command flags > environment variables > config file.
// The API key may be empty; the server only requires it for writes.
func ResolveProfile(profileName, baseURLFlag, apiKeyFlag string) (*Profile, error) {
	envBaseURL := os.Getenv("MAILIST_BASE_URL")
	envAPIKey := os.Getenv("MAILIST_API_KEY")

	haveURL := baseURLFlag != "" || envBaseURL != ""

	var p Profile
	if !haveURL || profileName != "" {
		cfg, err := LoadConfig()
		if err != nil {
			return nil, err
		}
		if profileName == "" {
			profileName = cfg.DefaultProfile
		}
		found, ok := cfg.Profiles[profileName]
		if !ok && !haveURL {
			return nil, fmt.Errorf("profile '%s' not found in config (run 'mailist config init' or pass --base-url)", profileName)
		}
		p = found
	}

	if baseURLFlag != "" {
		p.BaseURL = baseURLFlag
	} else if envBaseURL != "" {
		p.BaseURL = envBaseURL
	}

	if apiKeyFlag != "" {
		p.APIKey = apiKeyFlag
	} else if envAPIKey != "" {
		p.APIKey = envAPIKey
	}

	if p.BaseURL == "" {
		return nil, fmt.Errorf("base_url must be configured for profile '%s'", profileName)
	}

	return &p, nil
}

// InitConfig creates a default config file
func InitConfig() error {
	cfg := &Config{
		DefaultProfile: "local",
		Profiles: map[string]Profile{
			"local": {
				BaseURL: "http://localhost:8080",
				APIKey:  "admin-123",
			},
			"prod": {
				BaseURL: "https://mailist.example.org",
			},
		},
	}

	return SaveConfig(cfg)
}
