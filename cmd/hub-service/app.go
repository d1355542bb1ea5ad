package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	"inabottle/internal/config"
	"inabottle/internal/constants"
	"inabottle/internal/hub"
	"inabottle/internal/logger"
	"inabottle/pkg/bootstrap"
	"inabottle/pkg/health"
	"inabottle/pkg/metrics"
	"inabottle/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	mongoClient    *mongo.Client
	redisClient    *redis.Client
	server         *http.Server
	tracerProvider *tracing.TracerProvider
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		Base:        bootstrap.NewBase(cfg, log, constants.ServiceHub),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	tp, err := tracing.Init(a.Config.Tracing, constants.ServiceHub)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.RegisterHubMetrics()

	a.mongoClient, err = a.dbConnector.InitMongoDB(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize MongoDB: %w", err)
	}
	db, err := a.dbConnector.MongoDatabase(ctx, a.mongoClient, constants.CollectionHubs)
	if err != nil {
		return err
	}

	if a.Config.Hub.Locking.Backend == constants.LockBackendRedis {
		a.redisClient, err = a.dbConnector.InitRedis(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize Redis: %w", err)
		}
	}

	locker, err := hub.NewLocker(a.Config.Hub.Locking, a.redisClient)
	if err != nil {
		return fmt.Errorf("failed to initialize hub locker: %w", err)
	}
	a.Logger.Infow("Hub locking configured", "backend", a.Config.Hub.Locking.Backend, "reaction_dedup", a.Config.Hub.Reactions.Dedup)

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewMongoDBChecker(a.mongoClient))
	if a.redisClient != nil {
		healthRegistry.RegisterOptional(health.NewRedisChecker(a.redisClient))
	}

	service := hub.NewService(hub.NewRepository(db), locker, a.Config.Hub, a.Logger)

	router := bootstrap.NewRouter(a.Config, a.Logger, constants.ServiceHub, healthRegistry)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	hub.NewHandler(service, a.Logger).RegisterRoutes(router)

	a.server = bootstrap.NewHTTPServer(a.Config.Server, router)
	return nil
}

func (a *App) Run(ctx context.Context) error {
	err := bootstrap.RunHTTPServer(ctx, a.server, a.Logger)
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
		return append(errs, a.dbConnector.ShutdownDatabases(ctx, a.redisClient, a.mongoClient)...)
	})
}
