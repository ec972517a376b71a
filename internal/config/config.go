package config

import (
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Auth       AuthConfig       `mapstructure:"auth"`
	CORS       CORSConfig       `mapstructure:"cors"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	AuditQueue AuditQueueConfig `mapstructure:"audit_queue"`
	Cleanup    CleanupConfig    `mapstructure:"cleanup"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	MaxConns    int32  `mapstructure:"max_conns"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type AuthConfig struct {
	JWTSecret           string        `mapstructure:"jwt_secret"`
	Issuer              string        `mapstructure:"issuer"`
	Audience            string        `mapstructure:"audience"`
	AccessTokenTTL      time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTLDays int           `mapstructure:"refresh_token_ttl_days"`
	TokenByteLength     int           `mapstructure:"token_byte_length"`
	CSRFCookieName      string        `mapstructure:"csrf_cookie_name"`
	RefreshCookieName   string        `mapstructure:"refresh_cookie_name"`
	SecureCookies       bool          `mapstructure:"secure_cookies"`
}

// CORSConfig pins the origins allowed to make credentialed requests. The
// session cookies rule out reflecting arbitrary origins.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RateLimitRule is one limit applied to an endpoint, keyed by client IP.
type RateLimitRule struct {
	Enabled bool          `mapstructure:"enabled"`
	Limit   int           `mapstructure:"limit"`
	Window  time.Duration `mapstructure:"window"`
}

type RateLimitConfig struct {
	Login   RateLimitRule `mapstructure:"login"`
	Refresh RateLimitRule `mapstructure:"refresh"`
}

// AuditQueueConfig exposes the queue knobs the original design hard-coded.
type AuditQueueConfig struct {
	MaxQueueSize       int           `mapstructure:"max_queue_size"`
	BatchSize          int           `mapstructure:"batch_size"`
	MaxRetries         int           `mapstructure:"max_retries"`
	ProcessingInterval time.Duration `mapstructure:"processing_interval"`
}

type CleanupConfig struct {
	AuditRetention      time.Duration `mapstructure:"audit_retention"`
	AuditSweepInterval  time.Duration `mapstructure:"audit_sweep_interval"`
	TokenPurgeInterval  time.Duration `mapstructure:"token_purge_interval"`
	RevokedRetention    time.Duration `mapstructure:"revoked_retention"`
	QueueCheckInterval  time.Duration `mapstructure:"queue_check_interval"`
	QueueAgeWarning     time.Duration `mapstructure:"queue_age_warning"`
	QueueSizeWarning    int           `mapstructure:"queue_size_warning"`
}

type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Environment string `mapstructure:"environment"`
}
