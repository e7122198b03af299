// Package config loads the service configuration from a YAML file with
// environment overrides for deployment-specific values.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath is where the service looks for its config file when
	// no path is given.
	DefaultPath = "intake.yaml"

	defaultListenAddr = ":8080"
	defaultPinLength  = 6
)

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// DatabaseConfig holds the Postgres connection settings. An empty URL
// selects the in-memory repository.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// ObjectStoreConfig holds S3-compatible storage settings for artifact
// payloads. An empty endpoint disables the artifact store.
type ObjectStoreConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// LLMConfig holds text-generation settings. An empty API key disables
// extraction and the biography agent degrades to direct fields only.
type LLMConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// SecurityConfig holds PIN issuance settings. The field-encryption key
// itself always comes from the environment, never from the file.
type SecurityConfig struct {
	PinLength int `yaml:"pin_length"`
}

// Config is the full service configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	ObjectStore ObjectStoreConfig `yaml:"object_store"`
	LLM         LLMConfig         `yaml:"llm"`
	Security    SecurityConfig    `yaml:"security"`
	PromptsDir  string            `yaml:"prompts_dir"`
	LogDir      string            `yaml:"log_dir"`
}

// Load reads the config file at path, applies defaults, then applies
// environment overrides. A missing file is not an error: the defaults
// plus environment form a complete configuration.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server:   ServerConfig{ListenAddr: defaultListenAddr},
		Security: SecurityConfig{PinLength: defaultPinLength},
	}
}

// applyEnv layers environment values over whatever the file provided.
// Environment always wins so deployments can override a baked-in file.
func (c *Config) applyEnv() {
	setString(&c.Server.ListenAddr, "INTAKE_LISTEN_ADDR")
	setString(&c.Database.URL, "INTAKE_DATABASE_URL")
	setString(&c.ObjectStore.Endpoint, "INTAKE_S3_ENDPOINT")
	setString(&c.ObjectStore.AccessKey, "INTAKE_S3_ACCESS_KEY")
	setString(&c.ObjectStore.SecretKey, "INTAKE_S3_SECRET_KEY")
	setString(&c.ObjectStore.Bucket, "INTAKE_S3_BUCKET")
	setString(&c.ObjectStore.Region, "INTAKE_S3_REGION")
	setBool(&c.ObjectStore.UseSSL, "INTAKE_S3_USE_SSL")
	setString(&c.LLM.APIKey, "GEMINI_API_KEY")
	setString(&c.LLM.Model, "GEMINI_MODEL")
	setString(&c.PromptsDir, "INTAKE_PROMPTS_DIR")
	setString(&c.LogDir, "INTAKE_LOG_DIR")
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Server.ListenAddr) == "" {
		c.Server.ListenAddr = defaultListenAddr
	}
	if c.Security.PinLength < 1 {
		c.Security.PinLength = defaultPinLength
	}
	if c.PromptsDir != "" {
		c.PromptsDir = filepath.Clean(c.PromptsDir)
	}
	if c.LogDir != "" {
		c.LogDir = filepath.Clean(c.LogDir)
	}
}

func (c *Config) validate() error {
	if c.ObjectStore.Endpoint != "" {
		if c.ObjectStore.Bucket == "" {
			return fmt.Errorf("object_store.bucket is required when an endpoint is set")
		}
		if c.ObjectStore.AccessKey == "" || c.ObjectStore.SecretKey == "" {
			return fmt.Errorf("object_store credentials are required when an endpoint is set")
		}
	}
	return nil
}

// UsesPostgres reports whether a durable database is configured.
func (c *Config) UsesPostgres() bool {
	return strings.TrimSpace(c.Database.URL) != ""
}

// UsesObjectStore reports whether artifact storage is configured.
func (c *Config) UsesObjectStore() bool {
	return strings.TrimSpace(c.ObjectStore.Endpoint) != ""
}

func setString(target *string, envVar string) {
	if value := os.Getenv(envVar); value != "" {
		*target = value
	}
}

func setBool(target *bool, envVar string) {
	if value := os.Getenv(envVar); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}
