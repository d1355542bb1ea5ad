package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inabottle/internal/config"
)

func TestDefaultRoutesCompile(t *testing.T) {
	routes, err := CompileRoutes(DefaultRoutes(), nil)
	require.NoError(t, err)
	require.Len(t, routes, 6)

	ids := make([]string, 0, len(routes))
	for _, r := range routes {
		ids = append(ids, r.ID)
		assert.Equal(t, "/empty-fallback", r.FallbackPath())
	}
	assert.Equal(t, []string{
		"direct-message-service", "direct-message-service-id",
		"hub-service", "hub-service-id",
		"treasure-hunt-service", "treasure-hunt-service-id",
	}, ids)
	assert.Equal(t, "directFallback", routes[0].Breaker)
	assert.Equal(t, routes[0].Breaker, routes[1].Breaker)
}

func TestRouteRewrite(t *testing.T) {
	routes, err := CompileRoutes(DefaultRoutes(), nil)
	require.NoError(t, err)
	byID := make(map[string]*Route)
	for _, r := range routes {
		byID[r.ID] = r
	}

	tests := []struct {
		route string
		in    string
		want  string
	}{
		{"treasure-hunt-service-id", "/treasure/123", "/treasure/123"},
		{"treasure-hunt-service-id", "/treasure/outbox/pending", "/treasure/outbox/pending"},
		{"hub-service-id", "/hub/1/message/2/addReaction", "/hub/1/message/2/addReaction"},
		{"hub-service", "/hub", "/hub"},
		{"direct-message-service-id", "/direct/", "/direct/"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, byID[tt.route].Rewrite(tt.in))
		})
	}
}

func TestRouteRewriteSubstitutesCapture(t *testing.T) {
	routes, err := CompileRoutes([]config.RouteConfig{{
		ID:                 "legacy",
		Path:               "/api/hub/**",
		RewriteRegex:       "/api/hub/(?P<segment>.*)",
		RewriteReplacement: "/hub/${segment}",
		URI:                "lb://hub-service",
		Fallback:           "forward:/empty-fallback",
	}}, nil)
	require.NoError(t, err)

	assert.Equal(t, "/hub/42/addMessage", routes[0].Rewrite("/api/hub/42/addMessage"))
	assert.Equal(t, "legacy", routes[0].Breaker)
}

func TestRouteMatchesPath(t *testing.T) {
	routes, err := CompileRoutes(DefaultRoutes(), nil)
	require.NoError(t, err)
	exact, wildcard := routes[2], routes[3]

	tests := []struct {
		path      string
		exactHit  bool
		prefixHit bool
	}{
		{"/hub", true, true},
		{"/hub/", false, true},
		{"/hub/abc", false, true},
		{"/hubs", false, false},
		{"/direct", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			ok, err := exact.Matches(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, tt.exactHit, ok)

			ok, err = wildcard.Matches(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, tt.prefixHit, ok)
		})
	}
}

func TestCompileRoutesRejects(t *testing.T) {
	valid := config.RouteConfig{
		ID:       "r",
		Path:     "/hub",
		URI:      "lb://hub-service",
		Fallback: "forward:/empty-fallback",
	}

	tests := []struct {
		name   string
		mutate func(*config.RouteConfig)
	}{
		{"missing id", func(r *config.RouteConfig) { r.ID = "" }},
		{"relative path", func(r *config.RouteConfig) { r.Path = "hub" }},
		{"missing uri", func(r *config.RouteConfig) { r.URI = "" }},
		{"missing fallback", func(r *config.RouteConfig) { r.Fallback = "" }},
		{"wildcard without rewrite", func(r *config.RouteConfig) { r.Path = "/hub/**" }},
		{"inner wildcard", func(r *config.RouteConfig) { r.Path = "/hub/*/x" }},
		{"bad regex", func(r *config.RouteConfig) { r.RewriteRegex = "(" }},
		{"bad predicate", func(r *config.RouteConfig) { r.When = "method ==" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := valid
			tt.mutate(&rc)
			_, err := CompileRoutes([]config.RouteConfig{rc}, nil)
			assert.Error(t, err)
		})
	}

	t.Run("duplicate id", func(t *testing.T) {
		_, err := CompileRoutes([]config.RouteConfig{valid, valid}, nil)
		assert.Error(t, err)
	})
}
