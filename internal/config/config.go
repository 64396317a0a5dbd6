package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	WhatsApp  WhatsAppConfig  `mapstructure:"whatsapp"`
	AI        AIConfig        `mapstructure:"ai"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	// Enabled 为 false 时跳过 Redis，缓存自动退化为直连
	Enabled bool
}

// WhatsAppConfig uazapi 网关实例配置
type WhatsAppConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	Token          string `mapstructure:"token"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// AIConfig 大模型网关配置，provider 可选 gemini / openai / mock
type AIConfig struct {
	Provider       string       `mapstructure:"provider"`
	TimeoutSeconds int          `mapstructure:"timeout_seconds"`
	Gemini         GeminiConfig `mapstructure:"gemini"`
	OpenAI         OpenAIConfig `mapstructure:"openai"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OpenAIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

// AdminConfig 课程管理接口的登录凭据（bcrypt 哈希）
type AdminConfig struct {
	PasswordHash string `mapstructure:"password_hash"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("ENGLISH_BOT")
	viper.AutomaticEnv()

	// Database
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.dbname", "DATABASE_NAME")

	// Redis
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	viper.BindEnv("server.mode", "SERVER_MODE")

	// WhatsApp 网关
	viper.BindEnv("whatsapp.base_url", "BASE_URL")
	viper.BindEnv("whatsapp.token", "INSTANCIA_TOKEN")

	// AI
	viper.BindEnv("ai.provider", "AI_PROVIDER")
	viper.BindEnv("ai.gemini.api_key", "GEMINI_API_KEY")
	viper.BindEnv("ai.gemini.model", "GEMINI_MODEL")
	viper.BindEnv("ai.openai.base_url", "OPENAI_BASE_URL")
	viper.BindEnv("ai.openai.api_key", "OPENAI_API_KEY")
	viper.BindEnv("ai.openai.model", "OPENAI_MODEL")

	// JWT / Admin
	viper.BindEnv("jwt.secret", "JWT_SECRET")
	viper.BindEnv("admin.password_hash", "ADMIN_PASSWORD_HASH")

	// Tracing
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour

	if cfg.WhatsApp.BaseURL == "" || cfg.WhatsApp.Token == "" {
		return nil, fmt.Errorf("whatsapp.base_url and whatsapp.token are required (BASE_URL / INSTANCIA_TOKEN)")
	}

	// 生产环境校验 JWT Secret 强度
	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	if cfg.WhatsApp.TimeoutSeconds <= 0 {
		cfg.WhatsApp.TimeoutSeconds = 10
	}
	if cfg.AI.TimeoutSeconds <= 0 {
		cfg.AI.TimeoutSeconds = 30
	}
	if cfg.RateLimit.MaxRequests <= 0 {
		cfg.RateLimit.MaxRequests = 600
	}
	if cfg.RateLimit.WindowMinutes <= 0 {
		cfg.RateLimit.WindowMinutes = 1
	}

	return &cfg, nil
}
