package config

import (
	"fmt"
	"time"
)

type Config struct {
	Server    ServerConfig
	Generator GeneratorConfig
	Ollama    OllamaConfig
	Cloud     CloudConfig
	Storage   StorageConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port int
}

// GeneratorConfig selects which answer backend serves requests and how long
// a single generation may run.
type GeneratorConfig struct {
	// Backend is "ollama" (local) or "cloud" (OpenRouter).
	Backend string
	// Timeout bounds one generation call, as a Go duration string.
	// "0" disables the bound.
	Timeout string
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

type CloudConfig struct {
	APIKey string
	Model  string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

const (
	BackendOllama = "ollama"
	BackendCloud  = "cloud"
)

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4500,
		},
		Generator: GeneratorConfig{
			Backend: BackendOllama,
			Timeout: "90s",
		},
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
			Model:   "llama3.1",
		},
		Cloud: CloudConfig{
			Model: "google/gemini-2.5-flash",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/lociq/config.json, then applies LOCIQ_* environment
// variable overrides, then validates.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	switch c.Generator.Backend {
	case BackendOllama:
	case BackendCloud:
		if c.Cloud.APIKey == "" {
			return fmt.Errorf("generator.backend is %q but no API key is set; "+
				"provide it via environment variable LOCIQ_CLOUD_API_KEY", BackendCloud)
		}
	default:
		return fmt.Errorf("unknown generator.backend %q (want %q or %q)",
			c.Generator.Backend, BackendOllama, BackendCloud)
	}

	if _, err := time.ParseDuration(c.Generator.Timeout); err != nil {
		return fmt.Errorf("invalid generator.timeout %q: %w", c.Generator.Timeout, err)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}

	return nil
}

// GeneratorTimeout returns the parsed generation bound. validate guarantees
// the string parses; a zero duration disables the bound.
func (c Config) GeneratorTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Generator.Timeout)
	return d
}
