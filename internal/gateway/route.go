package gateway

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"inabottle/internal/config"
	"inabottle/internal/constants"
	"inabottle/pkg/cel"
)

const (
	wildcardSuffix = "/**"
	forwardScheme  = "forward:"
)

// Route is a compiled gateway route. Routes are built once at startup and
// never mutated.
type Route struct {
	ID       string
	Path     string
	URI      string
	Breaker  string
	Fallback string

	base        string
	prefix      bool
	rewrite     *regexp.Regexp
	replacement string
	when        *cel.Predicate
}

// DefaultRoutes is the routing table used when gateway.routes is empty.
func DefaultRoutes() []config.RouteConfig {
	fallback := forwardScheme + constants.EmptyFallbackPath
	resource := func(id, service, root, breaker string) []config.RouteConfig {
		return []config.RouteConfig{
			{
				ID:       id,
				Path:     root,
				URI:      "lb://" + service,
				Breaker:  breaker,
				Fallback: fallback,
			},
			{
				ID:                 id + "-id",
				Path:               root + wildcardSuffix,
				RewriteRegex:       root + "/(?P<segment>.*)",
				RewriteReplacement: root + "/${segment}",
				URI:                "lb://" + service,
				Breaker:            breaker,
				Fallback:           fallback,
			},
		}
	}

	var routes []config.RouteConfig
	routes = append(routes, resource(constants.ServiceDirectMessage, constants.ServiceDirectMessage, "/direct", "directFallback")...)
	routes = append(routes, resource(constants.ServiceHub, constants.ServiceHub, "/hub", "hubFallback")...)
	routes = append(routes, resource(constants.ServiceTreasureHunt, constants.ServiceTreasureHunt, "/treasure", "treasureFallback")...)
	return routes
}

// CompileRoutes validates the route table and compiles rewrites and `when`
// predicates. Order is preserved; the first matching route wins.
func CompileRoutes(cfgs []config.RouteConfig, evaluator *cel.Evaluator) ([]*Route, error) {
	routes := make([]*Route, 0, len(cfgs))
	seen := make(map[string]struct{}, len(cfgs))

	for i, rc := range cfgs {
		route, err := compileRoute(rc, evaluator)
		if err != nil {
			return nil, fmt.Errorf("route %d (%s): %w", i, rc.ID, err)
		}
		if _, dup := seen[route.ID]; dup {
			return nil, fmt.Errorf("route %d: duplicate id %s", i, route.ID)
		}
		seen[route.ID] = struct{}{}
		routes = append(routes, route)
	}

	return routes, nil
}

func compileRoute(rc config.RouteConfig, evaluator *cel.Evaluator) (*Route, error) {
	if rc.ID == "" {
		return nil, fmt.Errorf("id is required")
	}
	if !strings.HasPrefix(rc.Path, "/") {
		return nil, fmt.Errorf("path must start with /: %q", rc.Path)
	}
	if rc.URI == "" {
		return nil, fmt.Errorf("uri is required")
	}
	if !strings.HasPrefix(rc.Fallback, forwardScheme+"/") {
		return nil, fmt.Errorf("fallback must be a forward:/path uri, got %q", rc.Fallback)
	}

	route := &Route{
		ID:       rc.ID,
		Path:     rc.Path,
		URI:      rc.URI,
		Breaker:  rc.Breaker,
		Fallback: rc.Fallback,
		base:     rc.Path,
	}
	if route.Breaker == "" {
		route.Breaker = rc.ID
	}

	if strings.HasSuffix(rc.Path, wildcardSuffix) {
		route.prefix = true
		route.base = strings.TrimSuffix(rc.Path, wildcardSuffix)
		if rc.RewriteRegex == "" {
			return nil, fmt.Errorf("wildcard path %s needs a rewrite", rc.Path)
		}
	} else if strings.Contains(rc.Path, "*") {
		return nil, fmt.Errorf("only a trailing /** wildcard is supported: %q", rc.Path)
	}

	if rc.RewriteRegex != "" {
		re, err := regexp.Compile(rc.RewriteRegex)
		if err != nil {
			return nil, fmt.Errorf("invalid rewrite regex: %w", err)
		}
		route.rewrite = re
		route.replacement = rc.RewriteReplacement
	}

	if rc.When != "" {
		if evaluator == nil {
			var err error
			if evaluator, err = cel.NewEvaluator(); err != nil {
				return nil, err
			}
		}
		predicate, err := evaluator.CompilePredicate(rc.When)
		if err != nil {
			return nil, fmt.Errorf("invalid when predicate: %w", err)
		}
		route.when = predicate
	}

	return route, nil
}

func (r *Route) matchesPath(path string) bool {
	if !r.prefix {
		return path == r.Path
	}
	return path == r.base || strings.HasPrefix(path, r.base+"/")
}

// Matches reports whether req satisfies the path predicate and, if set, the
// `when` expression.
func (r *Route) Matches(ctx context.Context, req *http.Request) (bool, error) {
	if !r.matchesPath(req.URL.Path) {
		return false, nil
	}
	if r.when == nil {
		return true, nil
	}
	return r.when.Match(ctx, req)
}

// Rewrite applies the route's rewrite to path. Paths the regex does not match
// are returned unchanged.
func (r *Route) Rewrite(path string) string {
	if r.rewrite == nil || !r.rewrite.MatchString(path) {
		return path
	}
	return r.rewrite.ReplaceAllString(path, r.replacement)
}

func (r *Route) FallbackPath() string {
	return strings.TrimPrefix(r.Fallback, forwardScheme)
}
