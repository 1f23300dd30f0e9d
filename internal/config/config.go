package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Valores de CHAT_SESSION_STORE.
const (
	SessionStoreFile   = "file"
	SessionStoreRedis  = "redis"
	SessionStoreMemory = "memory"
)

// RedisConfig es compartida por el cliente y el backend.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// ClientConfig centraliza la configuracion del cliente de chat.
type ClientConfig struct {
	APIURL       string        `env:"CHAT_API_URL" envDefault:"http://localhost:8000"`
	SessionStore string        `env:"CHAT_SESSION_STORE" envDefault:"file"`
	SessionFile  string        `env:"CHAT_SESSION_FILE"`
	InstallID    string        `env:"CHAT_INSTALL_ID"`
	ReadTimeout  time.Duration `env:"CHAT_READ_TIMEOUT" envDefault:"0s"`
	Greeting     string        `env:"CHAT_GREETING" envDefault:"How can I help you with your banking needs today?"`
	Debug        bool          `env:"CHAT_DEBUG" envDefault:"false"`
	Redis        RedisConfig
}

// ServerConfig centraliza la configuracion del backend de agentes.
type ServerConfig struct {
	HTTPPort        string        `env:"HTTP_PORT" envDefault:"8000"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	LLMAPIKey       string        `env:"LLM_API_KEY"`
	LLMBaseURL      string        `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMModel        string        `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	LLMSystemPrompt string        `env:"LLM_SYSTEM_PROMPT" envDefault:"You are SecureBank's support assistant. Answer banking questions briefly and never ask for passwords or full card numbers."`
	HistoryLimit    int           `env:"HISTORY_LIMIT" envDefault:"20"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	RateLimitMax    int           `env:"RATE_LIMIT_MAX" envDefault:"20"`
	Redis           RedisConfig
}

// LoadClientConfig carga la configuracion del cliente desde variables de entorno.
func LoadClientConfig() (*ClientConfig, error) {
	var cfg ClientConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	cfg.SessionStore = strings.ToLower(strings.TrimSpace(cfg.SessionStore))
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *ClientConfig) validate() error {
	if strings.TrimSpace(c.APIURL) == "" {
		return fmt.Errorf("CHAT_API_URL must not be empty")
	}
	switch c.SessionStore {
	case SessionStoreFile, SessionStoreMemory:
	case SessionStoreRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required when CHAT_SESSION_STORE=redis")
		}
	default:
		return fmt.Errorf("invalid CHAT_SESSION_STORE %q", c.SessionStore)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("CHAT_READ_TIMEOUT must not be negative")
	}
	return nil
}

// LoadServerConfig carga la configuracion del backend desde variables de entorno.
func LoadServerConfig() (*ServerConfig, error) {
	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if cfg.HistoryLimit < 0 {
		cfg.HistoryLimit = 0
	}
	return &cfg, nil
}
