// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// Neo4j configuration
	Neo4jURI      string
	Neo4jUsername string
	Neo4jPassword string
	Neo4jDatabase string

	// Extraction configuration
	ExtractionProvider  string
	AllowFallback       bool
	ContextWindowTokens int

	// Local provider hint seeds (comma separated)
	PersonHints       []string
	LocationHints     []string
	OrganizationHints []string
	EventHints        []string

	// Ollama provider
	OllamaBaseURL    string
	OllamaModel      string
	OllamaTimeout    time.Duration
	OllamaMaxRetries int // total request attempts, the first one included
	OllamaKeepAlive  string

	// OpenAI provider
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	// Anthropic provider
	AnthropicAPIKey  string
	AnthropicBaseURL string
	AnthropicModel   string

	// Cloud provider HTTP timeout
	ProviderTimeout time.Duration

	// Authentication
	JWTSecret string
	JWTIssuer string

	// Logging and features
	LogLevel      string
	EnableMetrics bool
	EnableCORS    bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),

		Neo4jURI:      getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUsername: getEnv("NEO4J_USERNAME", "neo4j"),
		Neo4jPassword: getEnv("NEO4J_PASSWORD", ""),
		Neo4jDatabase: getEnv("NEO4J_DATABASE", "neo4j"),

		ExtractionProvider:  getEnv("EXTRACTION_PROVIDER", "local"),
		AllowFallback:       getEnvBool("EXTRACTION_ALLOW_FALLBACK", false),
		ContextWindowTokens: getEnvInt("EXTRACTION_CONTEXT_WINDOW_TOKENS", 128000),

		PersonHints:       getEnvList("EXTRACTION_PERSON_HINTS", []string{"Brian", "Yoli", "Eric", "Darren"}),
		LocationHints:     getEnvList("EXTRACTION_LOCATION_HINTS", []string{"Hopewell Junction", "Poughkeepsie"}),
		OrganizationHints: getEnvList("EXTRACTION_ORGANIZATION_HINTS", []string{"Twilight Florist"}),
		EventHints:        getEnvList("EXTRACTION_EVENT_HINTS", []string{"date", "meeting", "first date"}),

		OllamaBaseURL:    getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:      getEnv("OLLAMA_DEFAULT_MODEL", "gpt-oss:20b"),
		OllamaTimeout:    time.Duration(getEnvInt("OLLAMA_TIMEOUT_SECONDS", 150)) * time.Second,
		OllamaMaxRetries: getEnvInt("OLLAMA_MAX_RETRIES", 2),
		OllamaKeepAlive:  getEnv("OLLAMA_KEEP_ALIVE", "5m"),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:   getEnv("OPENAI_DEFAULT_MODEL", "gpt-4.1"),

		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicBaseURL: getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
		AnthropicModel:   getEnv("ANTHROPIC_DEFAULT_MODEL", "claude-3-opus-20240229"),

		ProviderTimeout: time.Duration(getEnvInt("PROVIDER_TIMEOUT_SECONDS", 60)) * time.Second,

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "recall-backend"),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		EnableMetrics: getEnvBool("ENABLE_METRICS", true),
		EnableCORS:    getEnvBool("ENABLE_CORS", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.Neo4jURI == "" {
		return fmt.Errorf("NEO4J_URI is required")
	}
	if c.ContextWindowTokens <= 0 {
		return fmt.Errorf("EXTRACTION_CONTEXT_WINDOW_TOKENS must be positive")
	}
	if c.OllamaMaxRetries < 1 {
		return fmt.Errorf("OLLAMA_MAX_RETRIES must be at least 1")
	}
	if c.Environment == "production" {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.Neo4jPassword == "" {
			return fmt.Errorf("NEO4J_PASSWORD is required in production")
		}
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvList gets a comma-separated environment variable with a default value
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
