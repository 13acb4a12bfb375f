package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"luxe-store/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Guard admits at most one in-flight checkout per cart session.
type Guard interface {
	// Acquire returns model.ErrCheckoutInProgress when key is already held.
	// The returned release func must be called exactly once.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// memoryGuard is a process-local Guard.
type memoryGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewMemoryGuard creates a Guard for a single API instance.
func NewMemoryGuard() Guard {
	return &memoryGuard{held: make(map[string]struct{})}
}

func (g *memoryGuard) Acquire(_ context.Context, key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.held[key]; busy {
		return nil, model.ErrCheckoutInProgress
	}
	g.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, key)
			g.mu.Unlock()
		})
	}, nil
}

// releaseScript deletes the lock only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// redisGuard shares the in-flight lock across API instances.
type redisGuard struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisGuard creates a Guard backed by SET NX. The ttl bounds how long a
// crashed instance can block a session.
func NewRedisGuard(client *redis.Client, ttl time.Duration, logger zerolog.Logger) Guard {
	return &redisGuard{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "checkout-guard").Logger(),
	}
}

func (g *redisGuard) Acquire(ctx context.Context, key string) (func(), error) {
	lockKey := "checkout-lock:" + key
	token := uuid.NewString()

	ok, err := g.client.SetNX(ctx, lockKey, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire checkout lock: %w", err)
	}
	if !ok {
		return nil, model.ErrCheckoutInProgress
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, g.client, []string{lockKey}, token).Err(); err != nil {
				g.logger.Error().Err(err).Str("lock", lockKey).Msg("failed to release checkout lock")
			}
		})
	}, nil
}
