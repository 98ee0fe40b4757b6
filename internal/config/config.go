package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config models drivethru.yml. Values are layered: defaults, the YAML file,
// a .env file, DRIVETHRU_* environment variables and finally bound flags.
type Config struct {
	LLM struct {
		Provider          string        `yaml:"provider"`
		Model             string        `yaml:"model"`
		Temperature       float64       `yaml:"temperature"`
		APIKey            string        `yaml:"api_key"`
		BaseURL           string        `yaml:"base_url"`
		Timeout           time.Duration `yaml:"timeout"`
		RequestsPerSecond float64       `yaml:"requests_per_second"`
	} `yaml:"llm"`
	Menu struct {
		Path string `yaml:"path"`
	} `yaml:"menu"`
	Prompt struct {
		Path string `yaml:"path"`
	} `yaml:"prompt"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
		JSON  bool   `yaml:"json"`
	} `yaml:"log"`
	Store struct {
		Backend  string        `yaml:"backend"`
		RedisURL string        `yaml:"redis_url"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"store"`
	Engine struct {
		MaxIterations int `yaml:"max_iterations"`
	} `yaml:"engine"`
	Server struct {
		Addr      string `yaml:"addr"`
		BasePath  string `yaml:"base_path"`
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"server"`
	Notify struct {
		NATSURL       string        `yaml:"nats_url"`
		Subject       string        `yaml:"subject"`
		Webhooks      []string      `yaml:"webhooks"`
		WebhookSecret string        `yaml:"webhook_secret"`
		Timeout       time.Duration `yaml:"timeout"`
	} `yaml:"notify"`
}

const (
	ProviderMistral  = "mistral"
	ProviderGemini   = "gemini"
	ProviderScripted = "scripted"

	BackendSQLite = "sqlite"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Default returns the built-in configuration.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal([]byte(defaultTemplate), &cfg); err != nil {
		panic(fmt.Sprintf("default config: %v", err))
	}
	return &cfg
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "drivethru.yml")
}

// Load layers every source over the defaults and validates the result. v may
// be nil when no environment or flag overrides are wanted.
func Load(workspace string, v *viper.Viper) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(Path(workspace))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid config yaml: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}
	if err := loadDotEnv(workspace); err != nil {
		return nil, err
	}
	if v != nil {
		cfg.applyOverrides(v)
	}
	cfg.applyProviderKey()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromYAML parses and validates config from raw YAML bytes over the defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotEnv(workspace string) error {
	if workspace == "" {
		workspace = "."
	}
	path := filepath.Join(workspace, ".env")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// NewViper returns a viper instance reading DRIVETHRU_* variables, where
// llm.api_key maps to DRIVETHRU_LLM_API_KEY.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("DRIVETHRU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func (c *Config) applyOverrides(v *viper.Viper) {
	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	float := func(key string, dst *float64) {
		if v.IsSet(key) {
			*dst = v.GetFloat64(key)
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v.IsSet(key) {
			*dst = v.GetDuration(key)
		}
	}
	str("llm.provider", &c.LLM.Provider)
	str("llm.model", &c.LLM.Model)
	float("llm.temperature", &c.LLM.Temperature)
	str("llm.api_key", &c.LLM.APIKey)
	str("llm.base_url", &c.LLM.BaseURL)
	dur("llm.timeout", &c.LLM.Timeout)
	float("llm.requests_per_second", &c.LLM.RequestsPerSecond)
	str("menu.path", &c.Menu.Path)
	str("prompt.path", &c.Prompt.Path)
	str("log.level", &c.Log.Level)
	str("log.file", &c.Log.File)
	if v.IsSet("log.json") {
		c.Log.JSON = v.GetBool("log.json")
	}
	str("store.backend", &c.Store.Backend)
	str("store.redis_url", &c.Store.RedisURL)
	dur("store.ttl", &c.Store.TTL)
	if v.IsSet("engine.max_iterations") {
		c.Engine.MaxIterations = v.GetInt("engine.max_iterations")
	}
	str("server.addr", &c.Server.Addr)
	str("server.base_path", &c.Server.BasePath)
	str("server.jwt_secret", &c.Server.JWTSecret)
	str("notify.nats_url", &c.Notify.NATSURL)
	str("notify.subject", &c.Notify.Subject)
	str("notify.webhook_secret", &c.Notify.WebhookSecret)
	dur("notify.timeout", &c.Notify.Timeout)
	if v.IsSet("notify.webhooks") {
		c.Notify.Webhooks = v.GetStringSlice("notify.webhooks")
	}
}

// applyProviderKey falls back to the provider's conventional variable.
func (c *Config) applyProviderKey() {
	if c.LLM.APIKey != "" {
		return
	}
	switch c.LLM.Provider {
	case ProviderMistral:
		c.LLM.APIKey = os.Getenv("MISTRAL_API_KEY")
	case ProviderGemini:
		c.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		if c.LLM.APIKey == "" {
			c.LLM.APIKey = os.Getenv("GOOGLE_API_KEY")
		}
	}
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderMistral, ProviderGemini, ProviderScripted:
	default:
		return fmt.Errorf("config.llm.provider must be one of mistral, gemini, scripted; got %q", c.LLM.Provider)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("config.llm.temperature must be within [0, 2]")
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("config.llm.timeout must be positive")
	}
	if c.LLM.RequestsPerSecond < 0 {
		return fmt.Errorf("config.llm.requests_per_second must not be negative")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config.log.level must be one of debug, info, warn, error")
	}
	switch c.Store.Backend {
	case BackendSQLite, BackendMemory:
	case BackendRedis:
		if c.Store.RedisURL == "" {
			return fmt.Errorf("config.store.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("config.store.backend must be one of sqlite, memory, redis; got %q", c.Store.Backend)
	}
	if c.Store.TTL < 0 {
		return fmt.Errorf("config.store.ttl must not be negative")
	}
	if c.Engine.MaxIterations < 1 {
		return fmt.Errorf("config.engine.max_iterations must be at least 1")
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	for _, hook := range c.Notify.Webhooks {
		if !strings.HasPrefix(hook, "http://") && !strings.HasPrefix(hook, "https://") {
			return fmt.Errorf("config.notify.webhooks entry %q must be an http(s) url", hook)
		}
	}
	return nil
}

// GenerateDefault returns the default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

const defaultTemplate = `llm:
  provider: mistral
  model: mistral-small-latest
  temperature: 0
  timeout: 60s
  requests_per_second: 0

menu:
  path: ""

prompt:
  path: ""

log:
  level: info
  file: .drivethru/logs/drivethru.log

store:
  backend: sqlite
  ttl: 24h

engine:
  max_iterations: 8

server:
  addr: 127.0.0.1:8080
  base_path: /v1

notify:
  subject: events.order.finalized
  timeout: 5s
  webhooks: []
`
