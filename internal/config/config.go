package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Broker         BrokerConfig
	Logging        LoggingConfig
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Gateway        GatewayConfig
	Hub            HubConfig
	Treasure       TreasureConfig
	Tracing        TracingConfig
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Redis         RedisConfig
	MongoDB       MongoDBConfig
	RunMigrations bool `mapstructure:"run_migrations"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MongoDBConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type BrokerConfig struct {
	Type     string      `mapstructure:"type"`
	Exchange string      `mapstructure:"exchange"`
	Kafka    KafkaConfig `mapstructure:"kafka"`
	NATS     NATSConfig  `mapstructure:"nats"`
	Retry    RetryConfig `mapstructure:"retry"`
}

type KafkaConfig struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	DLQSuffix   string   `mapstructure:"dlq_suffix"`
	MinBytes    int      `mapstructure:"min_bytes"`
	MaxBytes    int      `mapstructure:"max_bytes"`
}

type NATSConfig struct {
	URL       string        `mapstructure:"url"`
	Stream    string        `mapstructure:"stream"`
	AckWait   time.Duration `mapstructure:"ack_wait"`
	DLQPrefix string        `mapstructure:"dlq_prefix"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RateLimitConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	RPS             float64       `mapstructure:"rps"`
	Burst           int           `mapstructure:"burst"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	MaxAge          time.Duration `mapstructure:"max_age"`
}

// CircuitBreakerConfig is the default applied to every gateway breaker.
// FailureThreshold trips on consecutive failures; FailureRatio, when set,
// trips on the failure ratio once MinRequests have been seen.
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
	FailureRatio     float64       `mapstructure:"failure_ratio"`
	MinRequests      uint32        `mapstructure:"min_requests"`
}

type GatewayConfig struct {
	Timeout      time.Duration       `mapstructure:"timeout"`
	MaxBodyBytes int64               `mapstructure:"max_body_bytes"`
	FallbackPath string              `mapstructure:"fallback_path"`
	Services     map[string][]string `mapstructure:"services"`
	Routes       []RouteConfig       `mapstructure:"routes"`
	RateLimit    RateLimitConfig     `mapstructure:"rate_limit"`
}

type RouteConfig struct {
	ID                 string `mapstructure:"id"`
	Path               string `mapstructure:"path"`
	RewriteRegex       string `mapstructure:"rewrite_regex"`
	RewriteReplacement string `mapstructure:"rewrite_replacement"`
	URI                string `mapstructure:"uri"`
	Breaker            string `mapstructure:"breaker"`
	Fallback           string `mapstructure:"fallback"`
	When               string `mapstructure:"when"`
}

type HubConfig struct {
	Locking       LockingConfig   `mapstructure:"locking"`
	Reactions     ReactionsConfig `mapstructure:"reactions"`
	ConflictRetry RetryConfig     `mapstructure:"conflict_retry"`
}

type LockingConfig struct {
	Backend     string        `mapstructure:"backend"`
	KeyPrefix   string        `mapstructure:"key_prefix"`
	TTL         time.Duration `mapstructure:"ttl"`
	WaitTimeout time.Duration `mapstructure:"wait_timeout"`
}

type ReactionsConfig struct {
	Dedup bool `mapstructure:"dedup"`
}

type TreasureConfig struct {
	Outbox OutboxConfig `mapstructure:"outbox"`
}

type OutboxConfig struct {
	RelayEnabled  bool          `mapstructure:"relay_enabled"`
	RelayInterval time.Duration `mapstructure:"relay_interval"`
	GracePeriod   time.Duration `mapstructure:"grace_period"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	BatchSize     int           `mapstructure:"batch_size"`
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
