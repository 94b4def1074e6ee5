package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"adaptive-quiz-service/internal/app"
	"adaptive-quiz-service/internal/domain"
)

// UserCache wraps a user repository with a TTL cache on Get. Teacher dashboards
// poll every few seconds and resolve every participant's name, so lookups are
// cached and concurrent misses for one id share a single backend read.
// Writes go straight through and drop the cached entry.
type UserCache struct {
	app.UserRepository

	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group
	rnd   *rand.Rand
	rndMu sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedUser
}

type cachedUser struct {
	user      domain.User
	expiresAt time.Time
}

func NewUserCache(backend app.UserRepository, ttl time.Duration) *UserCache {
	return &UserCache{
		UserRepository: backend,
		ttl:            ttl,
		clock:          time.Now,
		rnd:            rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:          make(map[string]cachedUser),
	}
}

func (c *UserCache) Get(ctx context.Context, id string) (domain.User, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[id]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.user, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(id, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[id]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.user, nil
		}
		c.mu.RUnlock()

		user, err := c.UserRepository.Get(ctx, id)
		if err != nil {
			return domain.User{}, err
		}

		c.mu.Lock()
		c.cache[id] = cachedUser{
			user:      user,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return user, nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return result.(domain.User), nil
}

func (c *UserCache) SetLastDifficulty(ctx context.Context, id string, d domain.Difficulty) error {
	err := c.UserRepository.SetLastDifficulty(ctx, id, d)
	c.invalidate(id)
	return err
}

func (c *UserCache) invalidate(id string) {
	c.mu.Lock()
	delete(c.cache, id)
	c.mu.Unlock()
}

func (c *UserCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
