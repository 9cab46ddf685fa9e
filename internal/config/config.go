// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all backend configuration.
type Config struct {
	Port          string
	DBPath        string
	VendorTimeout time.Duration

	// RTC vendor control API credentials.
	AppID        string
	ServerSecret string
	APIBaseURL   string

	// Agent template configuration, registered once per process.
	Agent AgentConfig
}

// AgentConfig describes the agent template submitted to the vendor.
type AgentConfig struct {
	Name         string
	LLMURL       string
	LLMAPIKey    string
	LLMModel     string
	SystemPrompt string
	Temperature  float64
	TopP         float64
	MaxTokens    int
	TTSVendor    string
	TTSVoiceID   string
	TTSSpeed     float64
	TTSVolume    float64
	ASRVendor    string
	ASRLanguage  string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		DBPath:        getEnv("DB_PATH", "./data/parley.db"),
		VendorTimeout: getEnvDuration("VENDOR_TIMEOUT", 30*time.Second),
		AppID:         getEnv("RTC_APP_ID", ""),
		ServerSecret:  getEnv("RTC_SERVER_SECRET", ""),
		APIBaseURL:    getEnv("RTC_API_BASE_URL", ""),
		Agent: AgentConfig{
			Name:         getEnv("AGENT_NAME", "AI Assistant"),
			LLMURL:       getEnv("LLM_URL", ""),
			LLMAPIKey:    getEnv("LLM_API_KEY", ""),
			LLMModel:     getEnv("LLM_MODEL", ""),
			SystemPrompt: getEnv("AGENT_SYSTEM_PROMPT", "You are a helpful AI assistant. Respond naturally and conversationally."),
			Temperature:  getEnvFloat("AGENT_TEMPERATURE", 0.7),
			TopP:         getEnvFloat("AGENT_TOP_P", 0.9),
			MaxTokens:    getEnvInt("AGENT_MAX_TOKENS", 2048),
			TTSVendor:    getEnv("TTS_VENDOR", "BytePlus"),
			TTSVoiceID:   getEnv("TTS_VOICE_ID", "BV700_streaming"),
			TTSSpeed:     getEnvFloat("TTS_SPEED", 1.0),
			TTSVolume:    getEnvFloat("TTS_VOLUME", 1.0),
			ASRVendor:    getEnv("ASR_VENDOR", "BytePlus"),
			ASRLanguage:  getEnv("ASR_LANGUAGE", "en"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set. Missing
// vendor credentials are fatal at startup rather than at first request.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.AppID == "" {
		return fmt.Errorf("RTC_APP_ID cannot be empty")
	}
	if c.ServerSecret == "" {
		return fmt.Errorf("RTC_SERVER_SECRET cannot be empty")
	}
	if c.APIBaseURL == "" {
		return fmt.Errorf("RTC_API_BASE_URL cannot be empty")
	}
	if c.Agent.LLMURL == "" {
		return fmt.Errorf("LLM_URL cannot be empty")
	}
	if c.Agent.LLMModel == "" {
		return fmt.Errorf("LLM_MODEL cannot be empty")
	}
	return nil
}

// ClientConfig holds configuration for the terminal chat client.
type ClientConfig struct {
	BackendURL string
	GatewayURL string
	DBPath     string
}

// LoadClient reads chat client configuration from environment variables.
func LoadClient() (*ClientConfig, error) {
	cfg := &ClientConfig{
		BackendURL: getEnv("BACKEND_URL", "http://localhost:8080"),
		GatewayURL: getEnv("RTC_GATEWAY_URL", ""),
		DBPath:     getEnv("DB_PATH", "./data/parley-client.db"),
	}
	if cfg.GatewayURL == "" {
		return nil, fmt.Errorf("invalid configuration: RTC_GATEWAY_URL cannot be empty")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
