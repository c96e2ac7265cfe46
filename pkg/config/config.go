package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App       AppConfig                 `json:"app" yaml:"app"`
	Gateways  map[string]GatewayConfig  `json:"gateways" yaml:"gateways"`
	Providers map[string]ProviderConfig `json:"providers" yaml:"providers"`
	Memory    MemoryConfig              `json:"memory" yaml:"memory"`
	Planner   PlannerConfig             `json:"planner" yaml:"planner"`
	Server    ServerConfig              `json:"server" yaml:"server"`
	Runner    RunnerConfig              `json:"runner" yaml:"runner"`
	Logging   LoggingConfig             `json:"logging" yaml:"logging"`
}

type AppConfig struct {
	Name           string `json:"name" yaml:"name"`
	TasksDir       string `json:"tasks_dir" yaml:"tasks_dir"`
	EnvFile        string `json:"env_file" yaml:"env_file"`
	PromptsDir     string `json:"prompts_dir" yaml:"prompts_dir"`
	ScreenshotsDir string `json:"screenshots_dir" yaml:"screenshots_dir"`
}

type GatewayConfig struct {
	Token   string `json:"token" yaml:"token"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

type ProviderConfig struct {
	APIKey    string `json:"api_key" yaml:"api_key"`
	APIKeyEnv string `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty"`
	Model     string `json:"model" yaml:"model"`
	BaseURL   string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Enabled   bool   `json:"enabled" yaml:"enabled"`
}

// Key returns the literal API key, or the value of APIKeyEnv when no literal is set.
func (p ProviderConfig) Key() string {
	if p.APIKey != "" {
		return p.APIKey
	}
	if p.APIKeyEnv != "" {
		return os.Getenv(p.APIKeyEnv)
	}
	return ""
}

type MemoryConfig struct {
	Type string `json:"type" yaml:"type"`
	Path string `json:"path" yaml:"path"`
}

type PlannerConfig struct {
	Provider            string `json:"provider,omitempty" yaml:"provider,omitempty"`
	MaxSteps            int    `json:"max_steps" yaml:"max_steps"`
	MaxChars            int    `json:"max_chars" yaml:"max_chars"` // 0 means no budget
	URLMode             string `json:"url_mode" yaml:"url_mode"`  // placeholder or canonical
	IndirectIdentifiers bool   `json:"indirect_identifiers" yaml:"indirect_identifiers"`
	MirrorEnv           bool   `json:"mirror_env" yaml:"mirror_env"`
}

type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// RunnerConfig restricts what the local browser runner may do. URLs with
// local schemes (file:, javascript:, ...) are always denied.
type RunnerConfig struct {
	DenyActions  []string `json:"deny_actions,omitempty" yaml:"deny_actions,omitempty"`
	DenyPatterns []string `json:"deny_patterns,omitempty" yaml:"deny_patterns,omitempty"`
	StepTimeout  int      `json:"step_timeout_seconds" yaml:"step_timeout_seconds"`
}

type LoggingConfig struct {
	LLMLog string `json:"llm_log" yaml:"llm_log"`
	Debug  bool   `json:"debug" yaml:"debug"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig reads a JSON or YAML (.yaml, .yml) config file and fills in defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "planwright"
	}
	if c.App.TasksDir == "" {
		c.App.TasksDir = "tasks"
	}
	if c.App.EnvFile == "" {
		c.App.EnvFile = ".env"
	}
	if c.App.PromptsDir == "" {
		c.App.PromptsDir = "prompts"
	}
	if c.App.ScreenshotsDir == "" {
		c.App.ScreenshotsDir = "screenshots"
	}
	if c.Memory.Type == "" {
		c.Memory.Type = "sqlite"
	}
	if c.Memory.Path == "" {
		c.Memory.Path = "planwright.db"
	}
	if c.Planner.MaxSteps <= 0 {
		c.Planner.MaxSteps = 20
	}
	if c.Planner.MaxChars < 0 {
		c.Planner.MaxChars = 0
	}
	if c.Planner.URLMode == "" {
		c.Planner.URLMode = "placeholder"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Runner.StepTimeout <= 0 {
		c.Runner.StepTimeout = 60
	}
	if c.Logging.LLMLog == "" {
		c.Logging.LLMLog = filepath.Join("logs", "llm.jsonl")
	}
}

// GetDefaultProvider returns the provider named by planner.provider when it is
// enabled, otherwise the first enabled provider by name.
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	if p, ok := c.Providers[c.Planner.Provider]; ok && p.Enabled {
		return c.Planner.Provider, p
	}

	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if p := c.Providers[name]; p.Enabled {
			return name, p
		}
	}
	return "", ProviderConfig{}
}

// GetDiscordConfig returns discord config if enabled
func (c *Config) GetDiscordConfig() (GatewayConfig, bool) {
	dc, ok := c.Gateways["discord"]
	if ok && dc.Enabled && dc.Token != "" {
		return dc, true
	}
	return GatewayConfig{}, false
}

// GetTelegramConfig returns telegram config if enabled
func (c *Config) GetTelegramConfig() (GatewayConfig, bool) {
	tg, ok := c.Gateways["telegram"]
	if ok && tg.Enabled && tg.Token != "" {
		return tg, true
	}
	return GatewayConfig{}, false
}
