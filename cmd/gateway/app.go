package main

import (
	"context"
	"fmt"
	"net/http"

	"inabottle/internal/config"
	"inabottle/internal/constants"
	"inabottle/internal/gateway"
	"inabottle/internal/logger"
	"inabottle/pkg/bootstrap"
	"inabottle/pkg/health"
	"inabottle/pkg/metrics"
	"inabottle/pkg/ratelimit"
	"inabottle/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	gateway        *gateway.Gateway
	server         *http.Server
	tracerProvider *tracing.TracerProvider
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{Base: bootstrap.NewBase(cfg, log, constants.ServiceGateway)}
}

func (a *App) Initialize(ctx context.Context) error {
	tp, err := tracing.Init(a.Config.Tracing, constants.ServiceGateway)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.RegisterGatewayMetrics()

	gw, err := gateway.New(a.Config, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize gateway: %w", err)
	}
	a.gateway = gw

	router := bootstrap.NewRouter(a.Config, a.Logger, constants.ServiceGateway, health.NewCheckerRegistry())

	if rl := a.Config.Gateway.RateLimit; rl.Enabled {
		rlCfg := ratelimit.FromConfig(rl)
		router.Use(ratelimit.RateLimitMiddleware(ctx, rlCfg))
		a.Logger.InfowCtx(ctx, "Rate limiting enabled", "rps", rlCfg.RPS, "burst", rlCfg.Burst)
	}

	gw.Register(router)
	for _, route := range gw.Routes() {
		a.Logger.InfowCtx(ctx, "Route registered", "route_id", route.ID, "path", route.Path, "uri", route.URI, "breaker", route.Breaker)
	}

	a.server = bootstrap.NewHTTPServer(a.Config.Server, router)
	return nil
}

func (a *App) Run(ctx context.Context) error {
	err := bootstrap.RunHTTPServer(ctx, a.server, a.Logger)

	shutdownErr := a.Shutdown(context.WithoutCancel(ctx), func(ctx context.Context) []error {
		if err := a.tracerProvider.Shutdown(ctx); err != nil {
			return []error{fmt.Errorf("tracer provider shutdown error: %w", err)}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return shutdownErr
}
