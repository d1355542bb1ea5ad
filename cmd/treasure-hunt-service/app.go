package main

import (
	"context"
	"fmt"
	"net/http"

	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"inabottle/internal/config"
	"inabottle/internal/constants"
	"inabottle/internal/logger"
	"inabottle/internal/treasure"
	"inabottle/pkg/bootstrap"
	"inabottle/pkg/health"
	"inabottle/pkg/metrics"
	"inabottle/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	mongoClient    *mongo.Client
	relay          *treasure.Relay
	server         *http.Server
	tracerProvider *tracing.TracerProvider
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		Base:        bootstrap.NewBase(cfg, log, constants.ServiceTreasureHunt),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	tp, err := tracing.Init(a.Config.Tracing, constants.ServiceTreasureHunt)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.RegisterOutboxMetrics()

	a.mongoClient, err = a.dbConnector.InitMongoDB(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize MongoDB: %w", err)
	}
	db, err := a.dbConnector.MongoDatabase(ctx, a.mongoClient, constants.CollectionTreasureHunts)
	if err != nil {
		return err
	}

	if err := a.InitBroker(ctx); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	outboxCfg := a.Config.Treasure.Outbox
	repo := treasure.NewRepository(db)
	producer := treasure.NewProducer(a.Broker, repo, outboxCfg.MaxAttempts, a.Logger)
	if outboxCfg.RelayEnabled {
		a.relay = treasure.NewRelay(producer, repo, outboxCfg, a.Logger)
	}

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewMongoDBChecker(a.mongoClient))
	if p, ok := a.Broker.(health.Pinger); ok {
		// Hunts are still accepted while the broker is down; the relay
		// catches up once it returns.
		healthRegistry.RegisterOptional(health.NewBrokerChecker(p))
	}

	router := bootstrap.NewRouter(a.Config, a.Logger, constants.ServiceTreasureHunt, healthRegistry)
	treasure.NewHandler(treasure.NewService(repo, producer, a.Logger), a.Logger).RegisterRoutes(router)

	a.server = bootstrap.NewHTTPServer(a.Config.Server, router)
	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return bootstrap.RunHTTPServer(gCtx, a.server, a.Logger)
	})

	if a.relay != nil {
		g.Go(func() error {
			return a.relay.Run(gCtx)
		})
	}

	err := g.Wait()
	if shutdownErr := a.shutdown(context.WithoutCancel(ctx)); err == nil {
		err = shutdownErr
	}
	return err
}

func (a *App) shutdown(ctx context.Context) error {
	return a.Shutdown(ctx, func(ctx context.Context) []error {
		var errs []error
		if err := a.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
		}
		return append(errs, a.dbConnector.ShutdownDatabases(ctx, nil, a.mongoClient)...)
	})
}
