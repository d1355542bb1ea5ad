package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		key     string
		want    bool
	}{
		{"direct.message.#", "direct.message.save", true},
		{"direct.message.#", "direct.message", true},
		{"direct.message.#", "direct.message.save.bulk", true},
		{"direct.message.#", "direct.messages.save", false},
		{"points.#", "points.add", true},
		{"points.#", "direct.message.save", false},
		{"points.*", "points.add", true},
		{"points.*", "points", false},
		{"points.*", "points.add.extra", false},
		{"#", "anything.at.all", true},
		{"*.add", "points.add", true},
		{"#.save", "direct.message.save", true},
		{"direct.#.save", "direct.save", true},
		{"points.add", "points.add", true},
		{"points.add", "points.remove", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"~"+tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.pattern, tt.key))
		})
	}
}

func TestDefaultTopologyIsValid(t *testing.T) {
	topo := DefaultTopology("")
	require.NoError(t, topo.Validate())
	assert.Equal(t, "inabottle-exchange", topo.Exchange)
}

func TestDefaultTopologyFanOut(t *testing.T) {
	topo := DefaultTopology("")

	assert.ElementsMatch(t, []string{"direct-message-queue", "user-queue"}, topo.QueuesFor("direct.message.save"))
	assert.ElementsMatch(t, []string{"points-queue", "user-queue"}, topo.QueuesFor("points.add"))
	assert.Empty(t, topo.QueuesFor("hub.created"))

	assert.Equal(t, []string{"direct.message.save"}, topo.KeysFor("direct-message-queue"))
	assert.Equal(t, []string{"direct.message.save", "points.add"}, topo.KeysFor("user-queue"))
	assert.Nil(t, topo.KeysFor("missing-queue"))
}

func TestCheckRoutingKey(t *testing.T) {
	topo := DefaultTopology("")
	assert.NoError(t, topo.CheckRoutingKey("points.add"))
	assert.Error(t, topo.CheckRoutingKey("points.remove"))
}

func TestTopologyValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		topo Topology
	}{
		{
			name: "missing exchange",
			topo: Topology{RoutingKeys: []string{"a.b"}, Bindings: []Binding{{Queue: "q", Patterns: []string{"a.#"}}}},
		},
		{
			name: "pattern matches nothing",
			topo: Topology{
				Exchange:    "x",
				RoutingKeys: []string{"a.b"},
				Bindings:    []Binding{{Queue: "q", Patterns: []string{"a.#", "c.#"}}},
			},
		},
		{
			name: "key without consumer",
			topo: Topology{
				Exchange:    "x",
				RoutingKeys: []string{"a.b", "c.d"},
				Bindings:    []Binding{{Queue: "q", Patterns: []string{"a.#"}}},
			},
		},
		{
			name: "wildcard in routing key",
			topo: Topology{
				Exchange:    "x",
				RoutingKeys: []string{"a.*"},
				Bindings:    []Binding{{Queue: "q", Patterns: []string{"a.#"}}},
			},
		},
		{
			name: "duplicate queue",
			topo: Topology{
				Exchange:    "x",
				RoutingKeys: []string{"a.b"},
				Bindings: []Binding{
					{Queue: "q", Patterns: []string{"a.#"}},
					{Queue: "q", Patterns: []string{"a.b"}},
				},
			},
		},
		{
			name: "empty word",
			topo: Topology{
				Exchange:    "x",
				RoutingKeys: []string{"a..b"},
				Bindings:    []Binding{{Queue: "q", Patterns: []string{"#"}}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.topo.Validate())
		})
	}
}
