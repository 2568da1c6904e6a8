package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for kbdraft.
type Config struct {
	KB       KBConfig       `yaml:"kb"`
	Retrieve RetrieveConfig `yaml:"retrieve"`
	LLM      LLMConfig      `yaml:"llm"`
	Server   ServerConfig   `yaml:"server"`
	Trace    TraceConfig    `yaml:"trace"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// KBConfig holds knowledge-base loading configuration.
type KBConfig struct {
	Dir      string   `yaml:"dir"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK            int `yaml:"top_k"`
	MaxExcerptChars int `yaml:"max_excerpt_chars"`
	MinTokenLength  int `yaml:"min_token_length"`
}

// LLMConfig holds draft-generation configuration.
type LLMConfig struct {
	Enabled       bool    `yaml:"enabled"`
	BaseURL       string  `yaml:"base_url"`
	Model         string  `yaml:"model"`
	APIKeyEnv     string  `yaml:"api_key_env"`
	Temperature   float64 `yaml:"temperature"`
	MaxTokens     int     `yaml:"max_tokens"`
	PromptVersion string  `yaml:"prompt_version"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// TraceConfig holds request-trace persistence configuration.
type TraceConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		KB: KBConfig{
			Dir:      "./kb",
			Includes: []string{"**/*.md", "**/*.txt"},
			Excludes: []string{},
		},
		Retrieve: RetrieveConfig{
			TopK:            3,
			MaxExcerptChars: 300,
			MinTokenLength:  1,
		},
		LLM: LLMConfig{
			Enabled:       true,
			Model:         "gpt-4o-mini",
			APIKeyEnv:     "OPENAI_API_KEY",
			Temperature:   1.4,
			MaxTokens:     500,
			PromptVersion: "v1",
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Trace: TraceConfig{
			Enabled: true,
			DBPath:  ".kbdraft/traces.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults
// when the file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for
// kbdraft.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "kbdraft.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}
	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
