package bootstrap

import (
	"context"
	"fmt"

	"inabottle/internal/broker"
	"inabottle/internal/config"
	"inabottle/internal/logger"
	"inabottle/pkg/metrics"
)

// Base carries what every service binary shares: config, logger and the
// broker connection bound to the inabottle topology.
type Base struct {
	Config      *config.Config
	Logger      logger.Logger
	ServiceName string
	Broker      broker.Broker
}

func NewBase(cfg *config.Config, log logger.Logger, serviceName string) *Base {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(serviceName)
	}
	return &Base{
		Config:      cfg,
		Logger:      log,
		ServiceName: serviceName,
	}
}

// InitBroker connects the configured broker after checking the topology.
func (b *Base) InitBroker(ctx context.Context) error {
	metrics.RegisterBrokerMetrics()

	topology := broker.DefaultTopology(b.Config.Broker.Exchange)
	br, err := broker.New(ctx, b.Config.Broker, topology, b.Logger)
	if err != nil {
		return fmt.Errorf("failed to create broker: %w", err)
	}
	br.SetServiceName(b.ServiceName)

	b.Broker = br
	b.Logger.InfowCtx(ctx, "Broker connected",
		"type", b.Config.Broker.Type,
		"exchange", topology.Exchange,
	)
	return nil
}

func (b *Base) ShutdownBroker() []error {
	var errs []error

	if b.Broker != nil {
		if err := b.Broker.Close(); err != nil {
			errs = append(errs, fmt.Errorf("broker close error: %w", err))
		}
	}

	return errs
}

func (b *Base) Shutdown(ctx context.Context, additionalShutdown func(ctx context.Context) []error) error {
	b.Logger.InfowCtx(ctx, "Shutting down application...")

	var errs []error

	// Stop accepting work before the broker goes away.
	if additionalShutdown != nil {
		errs = append(errs, additionalShutdown(ctx)...)
	}

	errs = append(errs, b.ShutdownBroker()...)

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	b.Logger.InfowCtx(ctx, "Application exited successfully")
	return nil
}
