package hub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"inabottle/internal/config"
	"inabottle/internal/constants"
	"inabottle/pkg/errors"
	"inabottle/pkg/retry"
)

// Locker serializes work per key. The returned release func must be called
// exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

// NewLocker builds the locker selected by cfg.Backend. client is only used
// by the redis backend.
func NewLocker(cfg config.LockingConfig, client *redis.Client) (Locker, error) {
	switch cfg.Backend {
	case "", constants.LockBackendLocal:
		return NewLocalLocker(), nil
	case constants.LockBackendRedis:
		if client == nil {
			return nil, fmt.Errorf("redis lock backend requires a redis client")
		}
		return NewRedisLocker(client, cfg), nil
	default:
		return nil, fmt.Errorf("unknown lock backend: %s", cfg.Backend)
	}
}

type localLocker struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() Locker {
	return &localLocker{slots: make(map[string]*lockSlot)}
}

func (l *localLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		l.drop(key, slot)
		return nil, errors.ErrTimeout.WithCause(ctx.Err()).WithDetail("lock", key)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.ch
			l.drop(key, slot)
		})
	}, nil
}

func (l *localLocker) drop(key string, slot *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, key)
	}
}

// releaseScript deletes the lock only if it still holds our token, so an
// expired lock re-acquired by another holder is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLocker struct {
	client      *redis.Client
	prefix      string
	ttl         time.Duration
	waitTimeout time.Duration
	policy      retry.Policy
}

func NewRedisLocker(client *redis.Client, cfg config.LockingConfig) Locker {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = constants.CacheKeyPrefixHubLock
	}
	return &redisLocker{
		client:      client,
		prefix:      prefix,
		ttl:         cfg.TTL,
		waitTimeout: cfg.WaitTimeout,
		policy: retry.Policy{
			InitialInterval: 5 * time.Millisecond,
			MaxInterval:     100 * time.Millisecond,
			Multiplier:      2,
		},
	}
}

var errLockHeld = fmt.Errorf("lock held")

func (l *redisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := uuid.NewString()

	waitCtx := ctx
	if l.waitTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.waitTimeout)
		defer cancel()
	}

	err := retry.UntilDone(waitCtx, l.policy, func() error {
		ok, err := l.client.SetNX(waitCtx, redisKey, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("redis SetNX failed: %w", err)
		}
		if !ok {
			return errLockHeld
		}
		return nil
	})
	if err != nil {
		if waitCtx.Err() != nil {
			return nil, errors.ErrTimeout.WithCause(err).WithDetail("lock", key)
		}
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be done; release regardless.
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
			defer cancel()
			_ = releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err()
		})
	}, nil
}
