// Package config handles configuration for eschatch: YAML file, ESCHATCH_*
// environment overrides, and CLI flag overrides applied by the caller.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath returns the default config file path:
// $XDG_CONFIG_HOME/eschatch/config.yaml or ~/.config/eschatch/config.yaml
func DefaultConfigPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "eschatch", "config.yaml")
}

// DefaultStateDir returns the directory for logs and transcripts:
// $XDG_STATE_HOME/eschatch or ~/.local/state/eschatch
func DefaultStateDir() string {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(dir, "eschatch")
}

// Duration is a time.Duration that marshals to and from YAML in the
// human-readable "30s" / "1m" form.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration value")
	}
	*d = Duration(time.Duration(n) * time.Second)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Config is the top-level configuration. The fields consumed by the
// interception engine (trigger keys, context cap, safety settings) are
// treated as immutable once a session starts.
type Config struct {
	General    GeneralConfig    `yaml:"general"`
	Context    ContextConfig    `yaml:"context"`
	LLM        LLMConfig        `yaml:"llm"`
	Safety     SafetyConfig     `yaml:"safety"`
	Prompt     PromptConfig     `yaml:"prompt"`
	Transcript TranscriptConfig `yaml:"transcript"`
	Logging    LoggingConfig    `yaml:"logging"`
	SSH        SSHConfig        `yaml:"ssh"`
}

// GeneralConfig defines session-level behavior.
type GeneralConfig struct {
	// EscapeKeys are the key chords that open overlay mode, e.g.
	// "ctrl+x", "esc q", "0x1d". Each entry is an independent binding.
	EscapeKeys []string `yaml:"escape_keys"`
}

// ContextConfig bounds the recorded I/O window.
type ContextConfig struct {
	MaxBytes int `yaml:"max_bytes"`
}

// LLMConfig selects and tunes the model provider.
type LLMConfig struct {
	Provider    string        `yaml:"provider"` // "anthropic" or "openai"
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	APIKeyEnv   string        `yaml:"api_key_env"` // env var holding the key
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature *float64      `yaml:"temperature"`
	Timeout     Duration      `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
}

// SafetyConfig gates injection of generated commands. Destructive text
// always requires confirmation; preview_mode extends that to everything.
type SafetyConfig struct {
	PreviewMode         bool     `yaml:"preview_mode"`
	DestructivePatterns []string `yaml:"destructive_patterns"` // extra regexes
}

// PromptConfig shapes the model prompt.
type PromptConfig struct {
	System string `yaml:"system"` // inline system prompt
	File   string `yaml:"file"`   // template file, hot-reloaded if set
}

// TranscriptConfig controls best-effort session transcripts.
type TranscriptConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
	Keep    int    `yaml:"keep"` // transcripts retained after pruning; 0 = all
}

// LoggingConfig defines logging settings. Logs go to a file because stderr
// shares the screen with the wrapped program.
type LoggingConfig struct {
	Level string `yaml:"level"` // "debug", "info", "warn", "error"
	File  string `yaml:"file"`
}

// SSHConfig applies when wrapping a remote shell.
type SSHConfig struct {
	KeyPath       string `yaml:"key_path"`
	KnownHosts    string `yaml:"known_hosts"`
	PassphraseEnv string `yaml:"passphrase_env"`
}

// DefaultSystemPrompt matches the engine's job: single-line commands for
// whatever program the context shows.
const DefaultSystemPrompt = "You are an experienced engineer with expertise " +
	"in all Linux commands and interactive terminal programs. Given a task " +
	"and recent terminal context, output a single line of input for the " +
	"currently running program, with no quotes, markdown, or commentary."

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		General: GeneralConfig{
			EscapeKeys: []string{"ctrl+x"},
		},
		Context: ContextConfig{
			MaxBytes: 2000,
		},
		LLM: LLMConfig{
			Provider:   "anthropic",
			Model:      "claude-sonnet-4-5",
			MaxTokens:  1024,
			Timeout:    Duration(60 * time.Second),
			MaxRetries: 2,
		},
		Prompt: PromptConfig{
			System: DefaultSystemPrompt,
		},
		Transcript: TranscriptConfig{
			Dir:  filepath.Join(DefaultStateDir(), "sessions"),
			Keep: 50,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(DefaultStateDir(), "eschatch.log"),
		},
	}
}

// envOverrides mirrors the config fields settable from the environment:
// ESCHATCH_MODEL, ESCHATCH_BASE_URL, and so on.
type envOverrides struct {
	Provider   string `envconfig:"PROVIDER"`
	Model      string `envconfig:"MODEL"`
	BaseURL    string `envconfig:"BASE_URL"`
	EscapeKey  string `envconfig:"ESCAPE_KEY"`
	LogLevel   string `envconfig:"LOG_LEVEL"`
	Preview    *bool  `envconfig:"PREVIEW"`
	Transcript *bool  `envconfig:"TRANSCRIPT"`
}

// Load reads the config file (defaults if the path is empty or absent) and
// applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
			// Missing file is fine: run on defaults, `eschatch init` creates it.
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	var env envOverrides
	if err := envconfig.Process("eschatch", &env); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if env.Provider != "" {
		cfg.LLM.Provider = env.Provider
	}
	if env.Model != "" {
		cfg.LLM.Model = env.Model
	}
	if env.BaseURL != "" {
		cfg.LLM.BaseURL = env.BaseURL
	}
	if env.EscapeKey != "" {
		cfg.General.EscapeKeys = []string{env.EscapeKey}
	}
	if env.LogLevel != "" {
		cfg.Logging.Level = env.LogLevel
	}
	if env.Preview != nil {
		cfg.Safety.PreviewMode = *env.Preview
	}
	if env.Transcript != nil {
		cfg.Transcript.Enabled = *env.Transcript
	}

	return cfg, nil
}

// Validate checks the configuration and fills gaps with defaults.
func (c *Config) Validate() error {
	if len(c.General.EscapeKeys) == 0 {
		c.General.EscapeKeys = []string{"ctrl+x"}
	}
	for _, key := range c.General.EscapeKeys {
		if _, err := ParseEscapeKey(key); err != nil {
			return err
		}
	}
	if c.Context.MaxBytes <= 0 {
		c.Context.MaxBytes = 2000
	}
	switch c.LLM.Provider {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("unknown llm provider %q (want \"anthropic\" or \"openai\")", c.LLM.Provider)
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 1024
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = Duration(60 * time.Second)
	}
	return nil
}

// EscapeSequences returns the parsed trigger byte sequences.
func (c *Config) EscapeSequences() ([][]byte, error) {
	seqs := make([][]byte, 0, len(c.General.EscapeKeys))
	for _, key := range c.General.EscapeKeys {
		seq, err := ParseEscapeKey(key)
		if err != nil {
			return nil, err
		}
		seqs = append(seqs, seq)
	}
	return seqs, nil
}

// Save writes the configuration to a YAML file, creating parent directories.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}
