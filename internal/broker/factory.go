package broker

import (
	"context"
	"fmt"

	"inabottle/internal/config"
	"inabottle/internal/constants"
	"inabottle/internal/logger"
)

// New validates the topology and connects the configured broker.
func New(ctx context.Context, cfg config.BrokerConfig, topology Topology, log logger.Logger) (Broker, error) {
	if err := topology.Validate(); err != nil {
		return nil, fmt.Errorf("invalid broker topology: %w", err)
	}

	policy := PolicyFromConfig(cfg.Retry)

	switch cfg.Type {
	case constants.BrokerKafka:
		return NewKafkaBroker(cfg.Kafka, topology, policy, log), nil
	case constants.BrokerNATS:
		return NewNATSBroker(ctx, cfg.NATS, topology, policy, log)
	case constants.BrokerMemory:
		return NewMemoryBroker(topology, policy, log), nil
	default:
		return nil, fmt.Errorf("unknown broker type: %s", cfg.Type)
	}
}
