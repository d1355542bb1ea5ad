package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"

	"inabottle/internal/config"
	"inabottle/internal/constants"
	"inabottle/internal/logger"
	"inabottle/pkg/cel"
	"inabottle/pkg/circuitbreaker"
	"inabottle/pkg/metrics"
)

const (
	outcomeProxied  = "proxied"
	outcomeFallback = "fallback"
	outcomeNoRoute  = "no_route"
)

// Gateway dispatches requests to backends through per-breaker circuit
// breakers and serves the route's fallback whenever a call cannot complete.
type Gateway struct {
	routes         []*Route
	breakers       *circuitbreaker.Registry
	breakerEnabled bool
	proxy          *proxy
	timeout        time.Duration
	maxBody        int64
	fallbacks      map[string]gin.HandlerFunc
	logger         logger.Logger
}

func New(cfg *config.Config, log logger.Logger) (*Gateway, error) {
	routeCfgs := cfg.Gateway.Routes
	if len(routeCfgs) == 0 {
		routeCfgs = DefaultRoutes()
	}

	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return nil, err
	}

	routes, err := CompileRoutes(routeCfgs, evaluator)
	if err != nil {
		return nil, fmt.Errorf("failed to compile gateway routes: %w", err)
	}

	resolver, err := NewResolver(cfg.Gateway.Services)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Gateway.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultGatewayTimeout
	}
	maxBody := cfg.Gateway.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = constants.DefaultMaxBodyBytes
	}

	cbCfg := cfg.CircuitBreaker
	breakers := circuitbreaker.NewRegistry(func(name string) circuitbreaker.Config {
		c := circuitbreaker.FromConfig(name, cbCfg)
		c.IsSuccessful = isSuccessful
		c.OnStateChange = func(name string, from, to gobreaker.State) {
			log.Warnw("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		}
		return c
	})

	g := &Gateway{
		routes:         routes,
		breakers:       breakers,
		breakerEnabled: cfg.CircuitBreaker.Enabled,
		proxy:          newProxy(resolver, maxBody),
		timeout:        timeout,
		maxBody:        maxBody,
		fallbacks:      map[string]gin.HandlerFunc{constants.EmptyFallbackPath: EmptyFallback},
		logger:         log,
	}

	for _, route := range routes {
		if _, ok := g.fallbacks[route.FallbackPath()]; !ok {
			return nil, fmt.Errorf("route %s: unknown fallback %s", route.ID, route.Fallback)
		}
		// Created up front so breaker state is exported before the first call.
		g.breakers.Get(route.Breaker)
	}

	return g, nil
}

// isSuccessful keeps client-side cancellation from tripping a breaker.
func isSuccessful(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

// Register mounts the local fallback endpoints and sends every other
// unmatched request through the route table.
func (g *Gateway) Register(r *gin.Engine) {
	for path, handler := range g.fallbacks {
		r.Any(path, handler)
	}
	r.NoRoute(g.Handle)
}

func (g *Gateway) Routes() []*Route {
	return g.routes
}

func (g *Gateway) Breaker(name string) *circuitbreaker.Wrapper {
	return g.breakers.Get(name)
}

func (g *Gateway) match(ctx context.Context, req *http.Request) (*Route, error) {
	for _, route := range g.routes {
		ok, err := route.Matches(ctx, req)
		if err != nil {
			g.logger.WarnwCtx(ctx, "Route predicate failed, skipping route", "route_id", route.ID, "error", err)
			continue
		}
		if ok {
			return route, nil
		}
	}
	return nil, nil
}

func (g *Gateway) Handle(c *gin.Context) {
	ctx := c.Request.Context()

	route, _ := g.match(ctx, c.Request)
	if route == nil {
		metrics.IncGatewayRequest("", outcomeNoRoute)
		c.JSON(http.StatusNotFound, gin.H{
			"error":      "no route matches " + c.Request.URL.Path,
			"error_code": "NOT_FOUND",
		})
		return
	}
	c.Set("route_id", route.ID)

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, g.maxBody))
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error":      "request body too large",
			"error_code": "PAYLOAD_TOO_LARGE",
		})
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.call(callCtx, route, c.Request, body)
	status := 0
	if resp != nil {
		status = resp.status
	}
	metrics.ObserveGatewayUpstream(route.ID, status, time.Since(start))

	if err != nil {
		reason := failureReason(err)
		metrics.IncGatewayRequest(route.ID, outcomeFallback)
		metrics.IncFallback(route.ID, route.Breaker, reason)
		g.logger.WarnwCtx(ctx, "Serving fallback",
			"route_id", route.ID,
			"breaker", route.Breaker,
			"reason", reason,
			"error", err,
		)
		g.fallbacks[route.FallbackPath()](c)
		return
	}

	metrics.IncGatewayRequest(route.ID, outcomeProxied)
	for name, values := range resp.header {
		for _, v := range values {
			c.Writer.Header().Add(name, v)
		}
	}
	c.Writer.WriteHeader(resp.status)
	_, _ = c.Writer.Write(resp.body)
}

func (g *Gateway) call(ctx context.Context, route *Route, req *http.Request, body []byte) (*upstreamResponse, error) {
	do := func() (interface{}, error) {
		return g.proxy.forward(ctx, route, req, body)
	}

	var (
		result interface{}
		err    error
	)
	if g.breakerEnabled {
		result, err = g.breakers.Get(route.Breaker).ExecuteWithContext(ctx, do)
	} else {
		result, err = do()
	}

	resp, _ := result.(*upstreamResponse)
	return resp, err
}

func failureReason(err error) string {
	var se *statusError
	switch {
	case circuitbreaker.IsRejection(err):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &se):
		return "upstream_5xx"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "transport"
	}
}

// EmptyFallback answers with an empty JSON array.
func EmptyFallback(c *gin.Context) {
	c.JSON(http.StatusOK, []struct{}{})
}
