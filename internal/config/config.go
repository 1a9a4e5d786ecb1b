package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"mcp-local-repo-analyzer/internal/logging"
	"mcp-local-repo-analyzer/pkg/fileops"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const APP_NAME = "mcp-local-repo-analyzer" // application name used for config directory

// Supported transports.
const (
	TransportStdio          = "stdio"
	TransportStreamableHTTP = "streamable-http"
	TransportSSE            = "sse"
)

// Config holds the analyzer configuration.
type Config struct {
	Version  string         `yaml:"version"`
	Server   ServerConfig   `yaml:"server"`
	LogLevel string         `yaml:"log_level"`
	WorkDir  string         `yaml:"work_dir"` // base for relative repository paths
	Analyzer AnalyzerConfig `yaml:"analyzer"`
	Remote   RemoteConfig   `yaml:"remote"`
}

// ServerConfig controls how the MCP server is exposed.
type ServerConfig struct {
	Transport string `yaml:"transport"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	// RateLimit is the number of HTTP requests per minute allowed per client IP.
	RateLimit int `yaml:"rate_limit"`
}

// AnalyzerConfig holds the thresholds and patterns used by the diff analyzer.
type AnalyzerConfig struct {
	LargeChangeThreshold   int      `yaml:"large_change_threshold"`
	ManyFilesThreshold     int      `yaml:"many_files_threshold"`
	MassiveChangeThreshold int      `yaml:"massive_change_threshold"`
	ConflictLineThreshold  int      `yaml:"conflict_line_threshold"`
	MaxDiffFiles           int      `yaml:"max_diff_files"`
	MaxFileSizeBytes       int64    `yaml:"max_file_size_bytes"`
	CriticalPatterns       []string `yaml:"critical_patterns"`
	SensitivePatterns      []string `yaml:"sensitive_patterns"`
}

// RemoteConfig holds defaults for remote comparisons.
type RemoteConfig struct {
	Name string `yaml:"name"`
}

// ConfigPath returns the standard config file path for the current platform
func ConfigPath() (string, error) {
	configDir := filepath.Join(xdg.ConfigHome, APP_NAME)
	configPath := filepath.Join(configDir, "config.yaml")

	logging.Debug("Determined config paths", "path", configPath)
	return configPath, nil
}

// Load loads the config from the standard location.
// A missing config file is not an error: defaults are returned.
func Load() (*Config, error) {
	configPath, exists := FindConfigFile()
	if !exists {
		logging.Debug("No config file found, using defaults", "path", configPath)
		cfg := DefaultConfig()
		return &cfg, nil
	}

	return LoadFrom(configPath)
}

// LoadFrom loads config from a specific path. Values absent from the file keep
// their defaults.
func LoadFrom(path string) (*Config, error) {
	logging.Debug("Reading config file", "path", path)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return &cfg, nil
}

// FindConfigFile returns the path to an existing config file, and whether it exists.
func FindConfigFile() (string, bool) {
	primary, err := ConfigPath()
	if err != nil {
		logging.Error("Failed to get config path", "error", err)
		return "", false
	}

	if _, err := os.Stat(primary); err == nil {
		logging.Debug("Config found at primary path", "path", primary)
		return primary, true
	}

	return primary, false
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Version: "1.0",
		Server: ServerConfig{
			Transport: TransportStdio,
			Host:      "127.0.0.1",
			Port:      9070,
			RateLimit: 600,
		},
		LogLevel: "INFO",
		WorkDir:  "",
		Analyzer: DefaultAnalyzerConfig(),
		Remote: RemoteConfig{
			Name: "origin",
		},
	}
}

// DefaultAnalyzerConfig returns the default risk thresholds and file patterns.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		LargeChangeThreshold:   100,
		ManyFilesThreshold:     20,
		MassiveChangeThreshold: 1000,
		ConflictLineThreshold:  50,
		MaxDiffFiles:           10,
		MaxFileSizeBytes:       1 << 20,
		CriticalPatterns: []string{
			"dockerfile",
			"makefile",
			"license",
			"readme.md",
			"*.env",
			".env",
			"pyproject.toml",
			"setup.py",
			"requirements.txt",
			"package.json",
			"go.mod",
			"cargo.toml",
			"docker-compose.yml",
			"docker-compose.yaml",
			".gitignore",
			".github/workflows/*",
		},
		SensitivePatterns: []string{
			"auth",
			"secret",
			"password",
			"credential",
			"security",
			"token",
			"private_key",
			".pem",
			".key",
		},
	}
}

// NormalizeTransport maps accepted aliases onto the canonical transport names.
func NormalizeTransport(transport string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(transport)) {
	case "", TransportStdio:
		return TransportStdio, nil
	case "http", TransportStreamableHTTP:
		return TransportStreamableHTTP, nil
	case TransportSSE:
		return TransportSSE, nil
	default:
		return "", fmt.Errorf("unsupported transport %q (expected stdio, http, streamable-http or sse)", transport)
	}
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	transport, err := NormalizeTransport(c.Server.Transport)
	if err != nil {
		return err
	}
	c.Server.Transport = transport

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("port %d out of range (1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("host cannot be empty")
	}

	a := c.Analyzer
	if a.LargeChangeThreshold <= 0 || a.ManyFilesThreshold <= 0 || a.MassiveChangeThreshold <= 0 || a.ConflictLineThreshold <= 0 {
		return fmt.Errorf("analyzer thresholds must be positive")
	}
	if a.MaxDiffFiles <= 0 {
		return fmt.Errorf("max_diff_files must be positive")
	}
	if a.MaxFileSizeBytes <= 0 {
		return fmt.Errorf("max_file_size_bytes must be positive")
	}

	if strings.TrimSpace(c.Remote.Name) == "" {
		c.Remote.Name = "origin"
	}

	return nil
}

// Save writes the config to the standard location
func (c *Config) Save() error {
	configPath, _ := FindConfigFile()
	return c.SaveTo(configPath)
}

// SaveTo writes the config to a specific path
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := fileops.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ResolveWorkDir returns the directory relative repository paths are resolved
// against: the configured work dir, or the process working directory.
func (c *Config) ResolveWorkDir() (string, error) {
	if strings.TrimSpace(c.WorkDir) != "" {
		abs, err := filepath.Abs(fileops.ExpandPath(c.WorkDir))
		if err != nil {
			return "", fmt.Errorf("cannot resolve work dir: %w", err)
		}
		return abs, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("cannot determine working directory: %w", err)
	}
	return wd, nil
}
