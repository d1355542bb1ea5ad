package config

import (
	"fmt"
	"strings"

	"inabottle/internal/constants"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	validators := []func(*Config) error{
		func(c *Config) error { return validateServer(c.Server) },
		func(c *Config) error { return validateBroker(c.Broker) },
		func(c *Config) error { return validateDatabase(c.Database) },
		func(c *Config) error { return validateCircuitBreaker(c.CircuitBreaker) },
		func(c *Config) error { return validateGateway(c.Gateway) },
		validateHub,
		func(c *Config) error { return validateOutbox(c.Treasure.Outbox) },
	}

	for _, validate := range validators {
		if err := validate(cfg); err != nil {
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeout <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeout <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		}
	}

	return nil
}

func validateBroker(cfg BrokerConfig) error {
	if cfg.Exchange == "" {
		return &ValidationError{
			Field:   "broker.exchange",
			Message: "exchange name is required",
		}
	}

	var err error
	switch cfg.Type {
	case constants.BrokerKafka:
		err = validateKafka(cfg.Kafka)
	case constants.BrokerNATS:
		err = validateNATS(cfg.NATS)
	case constants.BrokerMemory:
	case "":
		return &ValidationError{
			Field:   "broker.type",
			Message: "broker type is required",
		}
	default:
		return &ValidationError{
			Field:   "broker.type",
			Message: fmt.Sprintf("unknown broker type: %s (supported: kafka, nats, memory)", cfg.Type),
		}
	}
	if err != nil {
		return err
	}

	return validateRetry("broker.retry", cfg.Retry)
}

func validateKafka(cfg KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "at least one Kafka broker is required",
		}
	}

	for i, broker := range cfg.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.DLQSuffix == "" {
		return &ValidationError{
			Field:   "broker.kafka.dlq_suffix",
			Message: "dead-letter suffix is required",
		}
	}

	return nil
}

func validateNATS(cfg NATSConfig) error {
	if !strings.HasPrefix(cfg.URL, "nats://") && !strings.HasPrefix(cfg.URL, "tls://") {
		return &ValidationError{
			Field:   "broker.nats.url",
			Message: "NATS URL must start with nats:// or tls://",
		}
	}

	if cfg.Stream == "" || strings.ContainsAny(cfg.Stream, ". *>") {
		return &ValidationError{
			Field:   "broker.nats.stream",
			Message: fmt.Sprintf("invalid stream name %q", cfg.Stream),
		}
	}

	if cfg.AckWait <= 0 {
		return &ValidationError{
			Field:   "broker.nats.ack_wait",
			Message: "ack_wait must be positive",
		}
	}

	return nil
}

func validateRetry(field string, cfg RetryConfig) error {
	if cfg.MaxAttempts < 1 {
		return &ValidationError{
			Field:   field + ".max_attempts",
			Message: "max_attempts must be at least 1",
		}
	}

	if cfg.InitialInterval < 0 || cfg.MaxInterval < 0 {
		return &ValidationError{
			Field:   field,
			Message: "intervals must be non-negative",
		}
	}

	if cfg.MaxInterval > 0 && cfg.InitialInterval > 0 && cfg.MaxInterval < cfg.InitialInterval {
		return &ValidationError{
			Field:   field + ".max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		}
	}

	if cfg.Multiplier <= 0 {
		return &ValidationError{
			Field:   field + ".multiplier",
			Message: "multiplier must be positive",
		}
	}

	return nil
}

func validateDatabase(cfg DatabaseConfig) error {
	if cfg.Redis.Host != "" || cfg.Redis.Port > 0 {
		if err := validateRedis(cfg.Redis); err != nil {
			return err
		}
	}

	if cfg.MongoDB.URI != "" {
		if err := validateMongoDB(cfg.MongoDB); err != nil {
			return err
		}
	}

	return nil
}

func validateRedis(cfg RedisConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.redis.host",
			Message: "Redis host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.redis.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	return nil
}

func validateMongoDB(cfg MongoDBConfig) error {
	if !strings.HasPrefix(cfg.URI, "mongodb://") && !strings.HasPrefix(cfg.URI, "mongodb+srv://") {
		return &ValidationError{
			Field:   "database.mongodb.uri",
			Message: "MongoDB URI must start with mongodb:// or mongodb+srv://",
		}
	}

	if cfg.Database == "" {
		return &ValidationError{
			Field:   "database.mongodb.database",
			Message: "MongoDB database name is required",
		}
	}

	return nil
}

func validateCircuitBreaker(cfg CircuitBreakerConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.FailureThreshold == 0 && cfg.FailureRatio == 0 {
		return &ValidationError{
			Field:   "circuit_breaker.failure_threshold",
			Message: "either failure_threshold or failure_ratio must be set",
		}
	}

	if cfg.FailureRatio < 0 || cfg.FailureRatio > 1 {
		return &ValidationError{
			Field:   "circuit_breaker.failure_ratio",
			Message: "failure_ratio must be within [0, 1]",
		}
	}

	if cfg.Timeout <= 0 {
		return &ValidationError{
			Field:   "circuit_breaker.timeout",
			Message: "open-state timeout must be positive",
		}
	}

	return nil
}

func validateGateway(cfg GatewayConfig) error {
	if cfg.Timeout < 0 {
		return &ValidationError{
			Field:   "gateway.timeout",
			Message: "timeout must be non-negative",
		}
	}

	if cfg.MaxBodyBytes < 0 {
		return &ValidationError{
			Field:   "gateway.max_body_bytes",
			Message: "max_body_bytes must be non-negative",
		}
	}

	seen := make(map[string]bool, len(cfg.Routes))
	for i, r := range cfg.Routes {
		field := fmt.Sprintf("gateway.routes[%d]", i)
		if r.ID == "" || r.Path == "" || r.URI == "" {
			return &ValidationError{
				Field:   field,
				Message: "id, path and uri are required",
			}
		}
		if seen[r.ID] {
			return &ValidationError{
				Field:   field + ".id",
				Message: fmt.Sprintf("duplicate route id %q", r.ID),
			}
		}
		seen[r.ID] = true
	}

	return nil
}

func validateHub(cfg *Config) error {
	switch cfg.Hub.Locking.Backend {
	case constants.LockBackendLocal:
	case constants.LockBackendRedis:
		if cfg.Database.Redis.Host == "" {
			return &ValidationError{
				Field:   "hub.locking.backend",
				Message: "redis locking requires database.redis to be configured",
			}
		}
		if cfg.Hub.Locking.TTL <= 0 {
			return &ValidationError{
				Field:   "hub.locking.ttl",
				Message: "lock ttl must be positive",
			}
		}
	default:
		return &ValidationError{
			Field:   "hub.locking.backend",
			Message: fmt.Sprintf("unknown lock backend: %s (supported: local, redis)", cfg.Hub.Locking.Backend),
		}
	}

	return validateRetry("hub.conflict_retry", cfg.Hub.ConflictRetry)
}

func validateOutbox(cfg OutboxConfig) error {
	if !cfg.RelayEnabled {
		return nil
	}

	if cfg.RelayInterval <= 0 {
		return &ValidationError{
			Field:   "treasure.outbox.relay_interval",
			Message: "relay_interval must be positive",
		}
	}

	if cfg.MaxAttempts < 1 {
		return &ValidationError{
			Field:   "treasure.outbox.max_attempts",
			Message: "max_attempts must be at least 1",
		}
	}

	if cfg.BatchSize < 1 {
		return &ValidationError{
			Field:   "treasure.outbox.batch_size",
			Message: "batch_size must be at least 1",
		}
	}

	return nil
}
