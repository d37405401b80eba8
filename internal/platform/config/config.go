package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// Config holds all configuration for a service
type Config struct {
	Service    ServiceConfig    `mapstructure:"service"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Search     SearchConfig     `mapstructure:"search"`
	Moderation ModerationConfig `mapstructure:"moderation"`
	Push       PushConfig       `mapstructure:"push"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	Version    string           `mapstructure:"version"`
}

// ServiceConfig holds service-specific configuration
type ServiceConfig struct {
	Name        string `mapstructure:"name" envconfig:"SERVICE_NAME"`
	Environment string `mapstructure:"environment" envconfig:"ENVIRONMENT" default:"development"`
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Port           int           `mapstructure:"port" envconfig:"HTTP_PORT" default:"8080"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" envconfig:"HTTP_READ_TIMEOUT" default:"10s"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" envconfig:"HTTP_WRITE_TIMEOUT" default:"10s"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout" envconfig:"HTTP_IDLE_TIMEOUT" default:"120s"`
	AllowedOrigins []string      `mapstructure:"allowed_origins" envconfig:"HTTP_ALLOWED_ORIGINS" default:"*"`
}

// DatabaseConfig holds MySQL configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host" envconfig:"DB_HOST" default:"localhost"`
	Port            int           `mapstructure:"port" envconfig:"DB_PORT" default:"3306"`
	User            string        `mapstructure:"user" envconfig:"DB_USER" default:"motortribe"`
	Password        string        `mapstructure:"password" envconfig:"DB_PASSWORD" default:"motortribe"`
	Database        string        `mapstructure:"database" envconfig:"DB_NAME" default:"motortribe"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" envconfig:"DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host         string        `mapstructure:"host" envconfig:"REDIS_HOST"`
	Port         int           `mapstructure:"port" envconfig:"REDIS_PORT" default:"6379"`
	Password     string        `mapstructure:"password" envconfig:"REDIS_PASSWORD"`
	DB           int           `mapstructure:"db" envconfig:"REDIS_DB" default:"0"`
	PoolSize     int           `mapstructure:"pool_size" envconfig:"REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `mapstructure:"min_idle_conns" envconfig:"REDIS_MIN_IDLE_CONNS" default:"5"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout" envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" envconfig:"REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" envconfig:"REDIS_WRITE_TIMEOUT" default:"3s"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers" envconfig:"KAFKA_BROKERS"`
	ConsumerGroup string   `mapstructure:"consumer_group" envconfig:"KAFKA_CONSUMER_GROUP"`
	PostTopic     string   `mapstructure:"post_topic" envconfig:"KAFKA_POST_TOPIC" default:"community.post-events"`
}

// SearchConfig holds search engine configuration
type SearchConfig struct {
	MaxResults       int           `mapstructure:"max_results" envconfig:"SEARCH_MAX_RESULTS" default:"10"`
	Fuzziness        int           `mapstructure:"fuzziness" envconfig:"SEARCH_FUZZINESS" default:"2"`
	SimilarityCutoff int           `mapstructure:"similarity_cutoff" envconfig:"SEARCH_SIMILARITY_CUTOFF" default:"60"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl" envconfig:"SEARCH_CACHE_TTL" default:"30s"`
	RebuildSchedule  string        `mapstructure:"rebuild_schedule" envconfig:"SEARCH_REBUILD_SCHEDULE" default:"@every 1h"`
}

// ModerationConfig holds report-escalation configuration
type ModerationConfig struct {
	BlockThreshold int `mapstructure:"block_threshold" envconfig:"MODERATION_BLOCK_THRESHOLD" default:"3"`
}

// PushConfig holds push notification dispatch configuration
type PushConfig struct {
	FCMEndpoint  string        `mapstructure:"fcm_endpoint" envconfig:"FCM_ENDPOINT" default:"https://fcm.googleapis.com/fcm/send"`
	FCMServerKey string        `mapstructure:"fcm_server_key" envconfig:"FCM_SERVER_KEY"`
	Workers      int           `mapstructure:"workers" envconfig:"PUSH_WORKERS" default:"4"`
	QueueSize    int           `mapstructure:"queue_size" envconfig:"PUSH_QUEUE_SIZE" default:"256"`
	SendTimeout  time.Duration `mapstructure:"send_timeout" envconfig:"PUSH_SEND_TIMEOUT" default:"5s"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level" envconfig:"LOG_LEVEL" default:"info"`
	Format     string `mapstructure:"format" envconfig:"LOG_FORMAT" default:"json"`
	OutputPath string `mapstructure:"output_path" envconfig:"LOG_OUTPUT_PATH" default:"stdout"`
}

// Load loads configuration from files and environment
func Load(serviceName string) (*Config, error) {
	var cfg Config

	cfg.Service.Name = serviceName

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("./configs/services/" + serviceName)
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; continue with env vars
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env vars: %w", err)
	}

	if cfg.Kafka.ConsumerGroup == "" {
		cfg.Kafka.ConsumerGroup = serviceName + "-consumer"
	}

	if version := os.Getenv("VERSION"); version != "" {
		cfg.Version = version
	} else {
		cfg.Version = "dev"
	}

	return &cfg, nil
}

// DSN returns the MySQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// Addr returns the Redis address
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
