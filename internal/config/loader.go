package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	// ConfigDir is the directory name under ~/.config
	ConfigDir = "chefchat"
	// ConfigFile is the config file name
	ConfigFile = "config.json"
)

// FileSystem abstracts file operations for testability
type FileSystem interface {
	UserHomeDir() (string, error)
	ReadFile(path string) ([]byte, error)
}

// ConfigFileReader implements FileSystem using the real OS for config loading
type ConfigFileReader struct{}

func (ConfigFileReader) UserHomeDir() (string, error) {
	return os.UserHomeDir()
}

func (ConfigFileReader) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Loader handles configuration loading with injected dependencies
type Loader struct {
	fs FileSystem
}

// NewLoader creates a production Loader using the real filesystem
func NewLoader() *Loader {
	return &Loader{fs: ConfigFileReader{}}
}

// NewLoaderWithFS creates a Loader with a custom filesystem (for testing)
func NewLoaderWithFS(fs FileSystem) *Loader {
	return &Loader{fs: fs}
}

// Load reads configuration from ~/.config/chefchat/config.json and merges it
// with defaults. Dotfile values override defaults. Returns default config if
// the dotfile doesn't exist; errors only for parse errors, permission issues,
// or validation failures.
//
// NOTE: JSON keys are unmarshaled directly over the default configuration, so
// explicit zero values (0, false, "") in the config file override defaults
// while missing keys leave the defaults untouched.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	homeDir, err := l.fs.UserHomeDir()
	if err != nil {
		return cfg, nil // Use defaults if can't get home dir
	}

	configPath := filepath.Join(homeDir, ".config", ConfigDir, ConfigFile)

	data, err := l.fs.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDotenv loads a .env file from the working directory into the process
// environment so APIKey can find configured keys. Missing files are fine;
// existing environment variables are never overwritten.
func LoadDotenv(workdir string) error {
	path := filepath.Join(workdir, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return godotenv.Load(path)
}

// APIKey resolves the provider API key from the environment variable named in
// the provider config. The key stays in this process: the command executor
// builds subprocess environments from an allowlist that excludes it.
func (c *Config) APIKey() string {
	if c.Provider.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.Provider.APIKeyEnv)
}
