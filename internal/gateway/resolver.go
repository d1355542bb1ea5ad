package gateway

import (
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
)

// Resolver turns a route uri into a concrete backend base url. lb://<service>
// uris round-robin over the instances listed in gateway.services; http and
// https uris are used as-is.
type Resolver struct {
	instances map[string][]*url.URL
	next      map[string]*atomic.Uint64
}

func NewResolver(services map[string][]string) (*Resolver, error) {
	r := &Resolver{
		instances: make(map[string][]*url.URL, len(services)),
		next:      make(map[string]*atomic.Uint64, len(services)),
	}

	for name, addrs := range services {
		key := strings.ToLower(name)
		for _, addr := range addrs {
			u, err := url.Parse(addr)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return nil, fmt.Errorf("service %s: invalid instance url %q", name, addr)
			}
			r.instances[key] = append(r.instances[key], u)
		}
		r.next[key] = new(atomic.Uint64)
	}

	return r, nil
}

func (r *Resolver) Resolve(uri string) (*url.URL, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid route uri %q: %w", uri, err)
	}

	switch u.Scheme {
	case "http", "https":
		return u, nil
	case "lb":
		key := strings.ToLower(u.Host)
		instances := r.instances[key]
		if len(instances) == 0 {
			return nil, fmt.Errorf("no instances available for service %s", u.Host)
		}
		n := r.next[key].Add(1) - 1
		return instances[n%uint64(len(instances))], nil
	default:
		return nil, fmt.Errorf("unsupported route uri scheme %q", u.Scheme)
	}
}
