package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"
)

// Viper decodes through the mapstructure tags; the json tags exist for
// serialization only. Both must carry the same key.
type Config struct {
	Server   ServerConfig   `json:"server" mapstructure:"server"`
	Database DatabaseConfig `json:"database" mapstructure:"database"`
	LLM      LLMConfig      `json:"llm" mapstructure:"llm"`
	Auth     AuthConfig     `json:"auth" mapstructure:"auth"`
	Chatbot  ChatbotConfig  `json:"chatbot" mapstructure:"chatbot"`
}

type ServerConfig struct {
	Host string `json:"host" mapstructure:"host"`
	Port int    `json:"port" mapstructure:"port"`
}

type DatabaseConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     int    `json:"port" mapstructure:"port"`
	User     string `json:"user" mapstructure:"user"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
	SSLMode  string `json:"sslmode" mapstructure:"sslmode"`
	// Pool limits; connection lifetime is in minutes.
	MaxOpenConns    int `json:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int `json:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime int `json:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

type LLMConfig struct {
	APIKey  string `json:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL string `json:"base_url,omitempty" mapstructure:"base_url"`
	Model   string `json:"model" mapstructure:"model"`
	// MaxRetries controls retries on transport failure. The platform
	// has never retried upstream calls, so the default is 0.
	MaxRetries int `json:"max_retries" mapstructure:"max_retries"`
}

type AuthConfig struct {
	JWTSecret string `json:"jwt_secret,omitempty" mapstructure:"jwt_secret"`
}

// ChatbotConfig carries the tunables of the conversation subsystem.
// Prompt wording lives in the prompts file of the chatbot package and
// can be overridden here, so it evolves without touching control flow.
type ChatbotConfig struct {
	RecencyLimit   int    `json:"recency_limit" mapstructure:"recency_limit"`
	SummaryCadence int    `json:"summary_cadence" mapstructure:"summary_cadence"`
	QueueSize      int    `json:"queue_size" mapstructure:"queue_size"`
	QueueWorkers   int    `json:"queue_workers" mapstructure:"queue_workers"`
	SystemPrompt   string `json:"system_prompt,omitempty" mapstructure:"system_prompt"`
	AnalysisPrompt string `json:"analysis_prompt,omitempty" mapstructure:"analysis_prompt"`
	TitlePrompt    string `json:"title_prompt,omitempty" mapstructure:"title_prompt"`
	SummaryPrompt  string `json:"summary_prompt,omitempty" mapstructure:"summary_prompt"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	// Add config paths
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Check for user config directory
	homeDir, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(filepath.Join(homeDir, ".sysmentor"))
	}

	// Set defaults
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "sysmentor")
	viper.SetDefault("database.database", "sysmentor")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5)
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.max_retries", 0)
	viper.SetDefault("chatbot.recency_limit", 10)
	viper.SetDefault("chatbot.summary_cadence", 5)
	viper.SetDefault("chatbot.queue_size", 64)
	viper.SetDefault("chatbot.queue_workers", 2)

	// Read config
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			cfg := createDefaultConfig()
			loadEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Load environment variables
	loadEnvOverrides(&cfg)

	return &cfg, nil
}

func createDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8000,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "sysmentor",
			Password:        "",
			Database:        "sysmentor",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5,
		},
		LLM: LLMConfig{
			Model:      "gpt-4o-mini",
			MaxRetries: 0,
		},
		Chatbot: ChatbotConfig{
			RecencyLimit:   10,
			SummaryCadence: 5,
			QueueSize:      64,
			QueueWorkers:   2,
		},
	}
}

func loadEnvOverrides(cfg *Config) {
	if port := os.Getenv("SYSMENTOR_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if host := os.Getenv("SYSMENTOR_HOST"); host != "" {
		cfg.Server.Host = host
	}

	// Database overrides
	if dbHost := os.Getenv("POSTGRES_HOST"); dbHost != "" {
		cfg.Database.Host = dbHost
	}
	if dbPort := os.Getenv("POSTGRES_PORT"); dbPort != "" {
		if port, err := strconv.Atoi(dbPort); err == nil {
			cfg.Database.Port = port
		}
	}
	if dbUser := os.Getenv("POSTGRES_USER"); dbUser != "" {
		cfg.Database.User = dbUser
	}
	if dbPass := os.Getenv("POSTGRES_PASSWORD"); dbPass != "" {
		cfg.Database.Password = dbPass
	}
	if dbName := os.Getenv("POSTGRES_DB"); dbName != "" {
		cfg.Database.Database = dbName
	}

	// External model + auth secrets come from the environment
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.LLM.APIKey = key
	}
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
		cfg.LLM.BaseURL = base
	}
	if model := os.Getenv("SYSMENTOR_LLM_MODEL"); model != "" {
		cfg.LLM.Model = model
	}
	if secret := os.Getenv("SYSMENTOR_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
}
