package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"inabottle/internal/constants"
)

// LoadConfig reads configFile (YAML), layers environment variables on top and
// validates the result. An empty configFile loads defaults and environment only.
func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()
	bindEnvVariables()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(&cfg)

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", constants.DefaultHTTPTimeout)
	viper.SetDefault("server.write_timeout", constants.DefaultHTTPTimeout)

	viper.SetDefault("database.mongodb.database", constants.DefaultMongoDBName)
	viper.SetDefault("database.run_migrations", true)

	viper.SetDefault("broker.type", "memory")
	viper.SetDefault("broker.exchange", constants.DefaultExchange)
	viper.SetDefault("broker.kafka.topic_prefix", constants.DefaultKafkaTopicPrefix)
	viper.SetDefault("broker.kafka.dlq_suffix", constants.DefaultDLQSuffix)
	viper.SetDefault("broker.nats.stream", constants.DefaultNATSStream)
	viper.SetDefault("broker.nats.ack_wait", constants.DefaultNATSAckWait)
	viper.SetDefault("broker.nats.dlq_prefix", constants.DefaultNATSDLQPrefix)
	viper.SetDefault("broker.retry.max_attempts", 5)
	viper.SetDefault("broker.retry.initial_interval", "500ms")
	viper.SetDefault("broker.retry.max_interval", "30s")
	viper.SetDefault("broker.retry.multiplier", 2.0)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("circuit_breaker.enabled", true)
	viper.SetDefault("circuit_breaker.max_requests", 1)
	viper.SetDefault("circuit_breaker.interval", "60s")
	viper.SetDefault("circuit_breaker.timeout", "10s")
	viper.SetDefault("circuit_breaker.failure_threshold", 5)

	viper.SetDefault("gateway.timeout", constants.DefaultGatewayTimeout)
	viper.SetDefault("gateway.max_body_bytes", constants.DefaultMaxBodyBytes)
	viper.SetDefault("gateway.fallback_path", constants.EmptyFallbackPath)
	viper.SetDefault("gateway.rate_limit.rps", 50.0)
	viper.SetDefault("gateway.rate_limit.burst", 100)
	viper.SetDefault("gateway.rate_limit.cleanup_interval", "5m")
	viper.SetDefault("gateway.rate_limit.max_age", "10m")

	viper.SetDefault("hub.locking.backend", constants.LockBackendLocal)
	viper.SetDefault("hub.locking.key_prefix", constants.CacheKeyPrefixHubLock)
	viper.SetDefault("hub.locking.ttl", "10s")
	viper.SetDefault("hub.locking.wait_timeout", "5s")
	viper.SetDefault("hub.conflict_retry.max_attempts", 5)
	viper.SetDefault("hub.conflict_retry.initial_interval", "10ms")
	viper.SetDefault("hub.conflict_retry.max_interval", "200ms")
	viper.SetDefault("hub.conflict_retry.multiplier", 2.0)

	viper.SetDefault("treasure.outbox.relay_enabled", true)
	viper.SetDefault("treasure.outbox.relay_interval", "15s")
	viper.SetDefault("treasure.outbox.grace_period", "30s")
	viper.SetDefault("treasure.outbox.max_attempts", 10)
	viper.SetDefault("treasure.outbox.batch_size", 100)
}

func bindEnvVariables() {
	viper.BindEnv("broker.type", "BROKER_TYPE")
	viper.BindEnv("broker.kafka.brokers", "BROKER_KAFKA_BROKERS")
	viper.BindEnv("broker.kafka.topic_prefix", "BROKER_KAFKA_TOPIC_PREFIX")
	viper.BindEnv("broker.nats.url", "BROKER_NATS_URL")
	viper.BindEnv("broker.nats.stream", "BROKER_NATS_STREAM")

	viper.BindEnv("database.redis.host", "DATABASE_REDIS_HOST")
	viper.BindEnv("database.redis.port", "DATABASE_REDIS_PORT")
	viper.BindEnv("database.redis.password", "DATABASE_REDIS_PASSWORD")
	viper.BindEnv("database.redis.db", "DATABASE_REDIS_DB")

	viper.BindEnv("database.mongodb.uri", "DATABASE_MONGODB_URI")
	viper.BindEnv("database.mongodb.database", "DATABASE_MONGODB_DATABASE")

	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")

	viper.BindEnv("hub.locking.backend", "HUB_LOCKING_BACKEND")
	viper.BindEnv("hub.reactions.dedup", "HUB_REACTIONS_DEDUP")

	viper.BindEnv("tracing.otlp.endpoint", "TRACING_OTLP_ENDPOINT")
	viper.BindEnv("tracing.otlp.insecure", "TRACING_OTLP_INSECURE")
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.service_name", "TRACING_SERVICE_NAME")
}

// applyEnvOverrides handles list-valued variables that viper cannot split.
func applyEnvOverrides(cfg *Config) {
	if brokersEnv := viper.GetString("BROKER_KAFKA_BROKERS"); brokersEnv != "" {
		brokers := splitList(brokersEnv)
		if len(brokers) > 0 {
			cfg.Broker.Kafka.Brokers = brokers
		}
	}

	if otlpEndpoint := viper.GetString("TRACING_OTLP_ENDPOINT"); otlpEndpoint != "" {
		cfg.Tracing.OTLP.Endpoint = otlpEndpoint
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
