// Package config handles loading and validating the parley configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the parley daemon.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Model      ModelConfig      `mapstructure:"model"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Analysis   AnalysisConfig   `mapstructure:"analysis"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds the API and health server settings.
type ServerConfig struct {
	Port       int `mapstructure:"port"`
	HealthPort int `mapstructure:"health_port"`
}

// ModelConfig selects and configures the chat-completion backend.
type ModelConfig struct {
	Backend string       `mapstructure:"backend"` // "openai", "groq", or "ollama"
	OpenAI  OpenAIConfig `mapstructure:"openai"`
	Groq    GroqConfig   `mapstructure:"groq"`
	Ollama  OllamaConfig `mapstructure:"ollama"`
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// GroqConfig holds Groq API settings (OpenAI-compatible endpoint).
type GroqConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// OllamaConfig holds local Ollama daemon settings.
type OllamaConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// SimulationConfig bounds the auto-run conversation loop.
type SimulationConfig struct {
	// MaxExchanges caps interviewer/interviewee exchange pairs per run, as a
	// safety bound against a model that never emits the completion marker.
	MaxExchanges int `mapstructure:"max_exchanges"`

	// MinInsightTurns is the minimum transcript length worth summarizing.
	MinInsightTurns int `mapstructure:"min_insight_turns"`
}

// AnalysisConfig bounds the retry loop for the strict-JSON helper calls
// (project analysis, question generation).
type AnalysisConfig struct {
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./parley.yaml, ./configs/parley.yaml, /etc/parley/parley.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("model.backend", "groq")
	v.SetDefault("model.openai.model", "gpt-4o-mini")
	v.SetDefault("model.openai.temperature", 0.7)
	v.SetDefault("model.openai.max_tokens", 16380)
	v.SetDefault("model.groq.model", "llama-3.3-70b-versatile")
	v.SetDefault("model.groq.temperature", 0.7)
	v.SetDefault("model.groq.max_tokens", 32768)
	v.SetDefault("model.ollama.endpoint", "http://localhost:11434")
	v.SetDefault("model.ollama.model", "deepseek-r1:latest")
	v.SetDefault("model.ollama.temperature", 0.7)
	v.SetDefault("model.ollama.max_tokens", 4096)
	v.SetDefault("simulation.max_exchanges", 20)
	v.SetDefault("simulation.min_insight_turns", 2)
	v.SetDefault("analysis.max_retries", 3)
	v.SetDefault("analysis.retry_delay", "1s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("parley")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/parley")
	}

	// Environment variables: PARLEY_SERVER_PORT, PARLEY_MODEL_BACKEND, etc.
	v.SetEnvPrefix("PARLEY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional; env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${GROQ_API_KEY}")
	cfg.Model.OpenAI.APIKey = resolveEnvRef(cfg.Model.OpenAI.APIKey)
	cfg.Model.Groq.APIKey = resolveEnvRef(cfg.Model.Groq.APIKey)

	return &cfg, nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
