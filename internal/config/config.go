// Package config loads and holds the gateway's process-wide configuration.
// Grounded on the teacher's internal/config package: a single typed Config
// struct loaded from YAML, with environment variable overrides applied
// after parse, and hot-reload via fsnotify.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the gateway's top-level configuration (spec §6 env vars).
type Config struct {
	Port             int           `yaml:"port"`
	OllamaBaseURL    string        `yaml:"ollama_base_url"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	SessionMaxHistory int          `yaml:"session_max_history"`
	SessionTimeout   time.Duration `yaml:"session_timeout"`
	DefaultModel     string        `yaml:"default_model"`
	EmbeddingModel   string        `yaml:"embedding_model"`
	LogRequests      bool          `yaml:"log_requests"`
	LogResponses     bool          `yaml:"log_responses"`
	EnableAgenticOrchestration bool `yaml:"enable_agentic_orchestration"`

	// ClassificationTimeout and ChatTimeout bound upstream calls by class
	// (spec §5: 30s default for classification, 120s default for chat).
	ClassificationTimeout time.Duration `yaml:"classification_timeout"`
	ChatTimeout           time.Duration `yaml:"chat_timeout"`

	// Production masks internal 500s as "Internal Server Error" (spec §7).
	Production bool `yaml:"production"`
}

// Default returns the configuration's documented defaults (spec §6).
func Default() Config {
	return Config{
		Port:                  3003,
		OllamaBaseURL:         "http://localhost:11434",
		RequestTimeout:        120 * time.Second,
		SessionMaxHistory:     50,
		SessionTimeout:        30 * time.Minute,
		DefaultModel:          "llama3.1:8b",
		EmbeddingModel:        "nomic-embed-text:latest",
		LogRequests:           false,
		LogResponses:          false,
		EnableAgenticOrchestration: true,
		ClassificationTimeout: 30 * time.Second,
		ChatTimeout:           120 * time.Second,
	}
}

// Load reads path (if non-empty and present) as YAML over the defaults,
// then applies .env + process environment overrides (spec §6). A missing
// path is not an error: the gateway runs on defaults + environment alone.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, err
			}
		} else if !os.IsNotExist(err) {
			return cfg, err
		}
	}

	// Best-effort .env load; ignored when absent (teacher's godotenv usage).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		}
	}
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		cfg.OllamaBaseURL = v
	}
	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.RequestTimeout = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("SESSION_MAX_HISTORY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SessionMaxHistory = n
		}
	}
	if v := os.Getenv("SESSION_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.SessionTimeout = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("DEFAULT_MODEL"); v != "" {
		cfg.DefaultModel = v
	}
	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		cfg.EmbeddingModel = v
	}
	if v := os.Getenv("LOG_REQUESTS"); v != "" {
		cfg.LogRequests = truthy(v)
	}
	if v := os.Getenv("LOG_RESPONSES"); v != "" {
		cfg.LogResponses = truthy(v)
	}
	if v := os.Getenv("ENABLE_AGENTIC_ORCHESTRATION"); v != "" {
		cfg.EnableAgenticOrchestration = truthy(v)
	}
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
