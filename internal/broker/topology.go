package broker

import (
	"fmt"
	"strings"

	"inabottle/internal/constants"
)

// Binding attaches a durable queue to the exchange with routing-key patterns.
// Patterns use topic-exchange syntax: words separated by '.', '*' matches
// exactly one word and '#' matches zero or more.
type Binding struct {
	Queue    string
	Patterns []string
}

// Topology is the single declarative description of the exchange, the
// routing keys producers may publish and the queues bound to it.
type Topology struct {
	Exchange    string
	RoutingKeys []string
	Bindings    []Binding
}

func DefaultTopology(exchange string) Topology {
	if exchange == "" {
		exchange = constants.DefaultExchange
	}
	return Topology{
		Exchange: exchange,
		RoutingKeys: []string{
			constants.RoutingKeyDirectMessageSave,
			constants.RoutingKeyPointsAdd,
		},
		Bindings: []Binding{
			{Queue: constants.QueueDirectMessage, Patterns: []string{"direct.message.#"}},
			{Queue: constants.QueuePoints, Patterns: []string{"points.#"}},
			{Queue: constants.QueueUser, Patterns: []string{"direct.message.#", "points.#"}},
		},
	}
}

// Validate checks the topology is closed: every pattern matches a declared
// key and every declared key reaches at least one queue.
func (t Topology) Validate() error {
	if t.Exchange == "" {
		return fmt.Errorf("topology: exchange name is required")
	}
	if len(t.RoutingKeys) == 0 {
		return fmt.Errorf("topology %s: no routing keys declared", t.Exchange)
	}

	keys := make(map[string]bool, len(t.RoutingKeys))
	for _, key := range t.RoutingKeys {
		if err := validateWords(key, false); err != nil {
			return fmt.Errorf("topology %s: routing key %q: %w", t.Exchange, key, err)
		}
		if keys[key] {
			return fmt.Errorf("topology %s: routing key %q declared twice", t.Exchange, key)
		}
		keys[key] = true
	}

	queues := make(map[string]bool, len(t.Bindings))
	for _, b := range t.Bindings {
		if b.Queue == "" {
			return fmt.Errorf("topology %s: binding without queue name", t.Exchange)
		}
		if queues[b.Queue] {
			return fmt.Errorf("topology %s: queue %q bound twice", t.Exchange, b.Queue)
		}
		queues[b.Queue] = true

		if len(b.Patterns) == 0 {
			return fmt.Errorf("topology %s: queue %q has no patterns", t.Exchange, b.Queue)
		}
		for _, p := range b.Patterns {
			if err := validateWords(p, true); err != nil {
				return fmt.Errorf("topology %s: queue %q pattern %q: %w", t.Exchange, b.Queue, p, err)
			}
			if !t.patternUsed(p) {
				return fmt.Errorf("topology %s: queue %q pattern %q matches no declared routing key", t.Exchange, b.Queue, p)
			}
		}
	}

	for _, key := range t.RoutingKeys {
		if len(t.QueuesFor(key)) == 0 {
			return fmt.Errorf("topology %s: routing key %q has no consumer", t.Exchange, key)
		}
	}

	return nil
}

func (t Topology) patternUsed(pattern string) bool {
	for _, key := range t.RoutingKeys {
		if Match(pattern, key) {
			return true
		}
	}
	return false
}

// CheckRoutingKey rejects keys a producer has not declared.
func (t Topology) CheckRoutingKey(key string) error {
	for _, k := range t.RoutingKeys {
		if k == key {
			return nil
		}
	}
	return fmt.Errorf("routing key %q is not declared on exchange %s", key, t.Exchange)
}

func (t Topology) Binding(queue string) (Binding, bool) {
	for _, b := range t.Bindings {
		if b.Queue == queue {
			return b, true
		}
	}
	return Binding{}, false
}

// QueuesFor lists the queues a publish with key fans out to.
func (t Topology) QueuesFor(key string) []string {
	var out []string
	for _, b := range t.Bindings {
		if b.Matches(key) {
			out = append(out, b.Queue)
		}
	}
	return out
}

// KeysFor lists the declared routing keys a queue receives.
func (t Topology) KeysFor(queue string) []string {
	b, ok := t.Binding(queue)
	if !ok {
		return nil
	}
	var out []string
	for _, key := range t.RoutingKeys {
		if b.Matches(key) {
			out = append(out, key)
		}
	}
	return out
}

func (b Binding) Matches(key string) bool {
	for _, p := range b.Patterns {
		if Match(p, key) {
			return true
		}
	}
	return false
}

// Match reports whether a routing key matches a binding pattern.
func Match(pattern, key string) bool {
	return matchWords(strings.Split(pattern, "."), strings.Split(key, "."))
}

func matchWords(pattern, key []string) bool {
	if len(pattern) == 0 {
		return len(key) == 0
	}

	switch pattern[0] {
	case "#":
		for i := 0; i <= len(key); i++ {
			if matchWords(pattern[1:], key[i:]) {
				return true
			}
		}
		return false
	case "*":
		return len(key) > 0 && matchWords(pattern[1:], key[1:])
	default:
		return len(key) > 0 && pattern[0] == key[0] && matchWords(pattern[1:], key[1:])
	}
}

func validateWords(s string, wildcards bool) error {
	if s == "" {
		return fmt.Errorf("empty")
	}
	for _, w := range strings.Split(s, ".") {
		switch {
		case w == "":
			return fmt.Errorf("empty word")
		case w == "*" || w == "#":
			if !wildcards {
				return fmt.Errorf("wildcard %q not allowed", w)
			}
		case strings.ContainsAny(w, "*#> \t"):
			return fmt.Errorf("invalid character in word %q", w)
		}
	}
	return nil
}
