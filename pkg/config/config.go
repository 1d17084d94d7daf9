// Package config provides configuration loading and credential resolution for boardroom.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Environment variable names.
const (
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvListenAddr   = "BOARDROOM_LISTEN_ADDR"
	EnvDBPath       = "BOARDROOM_DB_PATH"
	EnvMode         = "BOARDROOM_MODE"
)

// Generator modes.
const (
	ModeStub = "stub"
	ModeLive = "live"
)

// Default model identifiers.
const (
	ModelGPT5      = "gpt-5"
	ModelGPT4o     = "gpt-4o"
	ModelGPT4oMini = "gpt-4o-mini"
)

// Model describes a known model's limits.
type Model struct {
	Name            string
	MaxOutputTokens int
}

// KnownModels maps model names to their capability limits.
// Used to cap requested token budgets before they reach the API.
//
//nolint:gochecknoglobals // Static registry, read-only after init.
var KnownModels = map[string]Model{
	ModelGPT5:      {Name: ModelGPT5, MaxOutputTokens: 128000},
	ModelGPT4o:     {Name: ModelGPT4o, MaxOutputTokens: 16384},
	ModelGPT4oMini: {Name: ModelGPT4oMini, MaxOutputTokens: 16384},
}

// Credentials holds the API key precedence chain for the live generator.
// Resolution order: role-specific key, group key, default key, then the
// process-level OPENAI_API_KEY environment variable.
type Credentials struct {
	Roles   map[string]string `yaml:"roles,omitempty"`
	Group   string            `yaml:"group,omitempty"`
	Default string            `yaml:"default,omitempty"`
}

// Config is the top-level boardroom configuration.
type Config struct {
	ListenAddr    string      `yaml:"listen_addr"`
	DBPath        string      `yaml:"db_path"`
	Mode          string      `yaml:"mode"`
	Model         string      `yaml:"model"`
	FixturesDir   string      `yaml:"fixtures_dir"`
	AttachmentDir string      `yaml:"attachment_dir"`
	Credentials   Credentials `yaml:"credentials"`
}

// Default returns a config with sane defaults for local operation.
func Default() *Config {
	return &Config{
		ListenAddr:    ":8085",
		DBPath:        "boardroom.db",
		Mode:          ModeStub,
		Model:         ModelGPT4oMini,
		FixturesDir:   "testdata/fixtures",
		AttachmentDir: "attachments",
	}
}

// Load reads a YAML config file and applies environment overrides.
// A missing file is not an error; defaults plus env are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if cfg.Mode != ModeStub && cfg.Mode != ModeLive {
		return nil, fmt.Errorf("invalid mode %q: must be %q or %q", cfg.Mode, ModeStub, ModeLive)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvMode); v != "" {
		cfg.Mode = v
	}
}

// ResolveAPIKey resolves the API key for a target agent identifier using the
// precedence chain: role key, group key, default key, then OPENAI_API_KEY.
// Returns an error when no credential resolves; callers must treat that as a
// fatal configuration error and raise it before any network call.
func (c *Config) ResolveAPIKey(agentID string) (string, error) {
	if key, ok := c.Credentials.Roles[agentID]; ok && key != "" {
		return key, nil
	}
	if c.Credentials.Group != "" {
		return c.Credentials.Group, nil
	}
	if c.Credentials.Default != "" {
		return c.Credentials.Default, nil
	}
	if key := os.Getenv(EnvOpenAIAPIKey); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("no API key configured for agent %q: set credentials in config or %s", agentID, EnvOpenAIAPIKey)
}
