package main

import (
	"context"
	"fmt"
	"net/http"

	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"inabottle/internal/config"
	"inabottle/internal/constants"
	"inabottle/internal/directmessage"
	"inabottle/internal/logger"
	"inabottle/pkg/bootstrap"
	"inabottle/pkg/health"
	"inabottle/pkg/logging"
	"inabottle/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	mongoClient    *mongo.Client
	consumer       *directmessage.Consumer
	server         *http.Server
	tracerProvider *tracing.TracerProvider
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		Base:        bootstrap.NewBase(cfg, log, constants.ServiceDirectMessage),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	tp, err := tracing.Init(a.Config.Tracing, constants.ServiceDirectMessage)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	a.mongoClient, err = a.dbConnector.InitMongoDB(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize MongoDB: %w", err)
	}
	db, err := a.dbConnector.MongoDatabase(ctx, a.mongoClient, constants.CollectionDirectMessages)
	if err != nil {
		return err
	}

	if err := a.InitBroker(ctx); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	repo := directmessage.NewRepository(db)
	a.consumer = directmessage.NewConsumer(repo, a.Logger)

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewMongoDBChecker(a.mongoClient))
	if p, ok := a.Broker.(health.Pinger); ok {
		healthRegistry.Register(health.NewBrokerChecker(p))
	}

	router := bootstrap.NewRouter(a.Config, a.Logger, constants.ServiceDirectMessage, healthRegistry)
	directmessage.NewHandler(directmessage.NewService(repo), a.Logger).RegisterRoutes(router)

	a.server = bootstrap.NewHTTPServer(a.Config.Server, router)
	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return bootstrap.RunHTTPServer(gCtx, a.server, a.Logger)
	})

	g.Go(func() error {
		consumeCtx := logging.WithServiceName(gCtx, constants.ServiceDirectMessage)
		return a.Broker.Subscribe(consumeCtx, constants.QueueDirectMessage, a.consumer.Handle)
	})

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
