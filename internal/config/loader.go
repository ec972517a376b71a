package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LoadConfig reads configuration from config.<env>.yaml and environment
// variables prefixed with RECORDS_.
func LoadConfig() (*Config, error) {
	setDefaults()

	env := strings.ToLower(os.Getenv("APP_ENV"))
	if env == "" {
		env = "development"
	}

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName(fmt.Sprintf("config.%s", env))
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/records-admin-service")
	}

	viper.SetEnvPrefix("RECORDS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Missing file is fine, environment variables take over.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 10*time.Second)
	viper.SetDefault("server.write_timeout", 10*time.Second)
	viper.SetDefault("server.idle_timeout", 60*time.Second)
	viper.SetDefault("server.shutdown_timeout", 15*time.Second)

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "records")
	viper.SetDefault("database.dbname", "records")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.max_conns", 10)
	viper.SetDefault("database.auto_migrate", true)

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("kafka.enabled", false)
	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.topic", "records.security-events")

	viper.SetDefault("auth.access_token_ttl", 15*time.Minute)
	viper.SetDefault("auth.refresh_token_ttl_days", 7)
	viper.SetDefault("auth.token_byte_length", 32)
	viper.SetDefault("auth.csrf_cookie_name", "csrf_token")
	viper.SetDefault("auth.refresh_cookie_name", "refresh_token")
	viper.SetDefault("auth.secure_cookies", true)

	viper.SetDefault("audit_queue.max_queue_size", 1000)
	viper.SetDefault("audit_queue.batch_size", 50)
	viper.SetDefault("audit_queue.max_retries", 3)
	viper.SetDefault("audit_queue.processing_interval", 5*time.Second)

	viper.SetDefault("cleanup.audit_retention", 90*24*time.Hour)
	viper.SetDefault("cleanup.audit_sweep_interval", 24*time.Hour)
	viper.SetDefault("cleanup.token_purge_interval", 7*24*time.Hour)
	viper.SetDefault("cleanup.revoked_retention", 30*24*time.Hour)
	viper.SetDefault("cleanup.queue_check_interval", 5*time.Minute)
	viper.SetDefault("cleanup.queue_age_warning", time.Minute)
	viper.SetDefault("cleanup.queue_size_warning", 800)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.environment", "development")
}
