package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"contest-service/internal/app"
	"contest-service/internal/domain"
)

// AnswerKeyLoader fetches a contest's correct-option map from the backing
// store.
type AnswerKeyLoader interface {
	LoadAnswerKey(ctx context.Context, contestID int64) (domain.AnswerKey, error)
}

// AnswerKeyCache caches answer keys with TTL to avoid repeated store hits
// while scoring in bulk.
type AnswerKeyCache struct {
	loader AnswerKeyLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[int64]cachedKey
}

type cachedKey struct {
	key       domain.AnswerKey
	expiresAt time.Time
}

func NewAnswerKeyCache(loader AnswerKeyLoader, ttl time.Duration) *AnswerKeyCache {
	return &AnswerKeyCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[int64]cachedKey),
	}
}

func (c *AnswerKeyCache) GetAnswerKey(ctx context.Context, contestID int64) (domain.AnswerKey, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[contestID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.key, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(keyName(contestID), func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[contestID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.key, nil
		}
		c.mu.RUnlock()

		key, err := c.loader.LoadAnswerKey(ctx, contestID)
		if err != nil {
			return domain.AnswerKey{}, err
		}

		c.mu.Lock()
		c.cache[contestID] = cachedKey{
			key:       key,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return key, nil
	})
	if err != nil {
		return domain.AnswerKey{}, err
	}
	return result.(domain.AnswerKey), nil
}

func (c *AnswerKeyCache) Invalidate(_ context.Context, contestID int64) error {
	c.mu.Lock()
	delete(c.cache, contestID)
	c.mu.Unlock()
	return nil
}

func (c *AnswerKeyCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func keyName(contestID int64) string {
	return "contest-" + strconv.FormatInt(contestID, 10)
}

// StoreLoader builds answer keys straight from the store's question rows.
// It backs the cache when no dedicated read path (Postgres) is configured.
type StoreLoader struct {
	store app.Store
}

func NewStoreLoader(store app.Store) *StoreLoader {
	return &StoreLoader{store: store}
}

func (l *StoreLoader) LoadAnswerKey(ctx context.Context, contestID int64) (domain.AnswerKey, error) {
	questions, err := l.store.QuestionsByContest(ctx, contestID)
	if err != nil {
		return domain.AnswerKey{}, err
	}
	key := domain.AnswerKey{ContestID: contestID, Correct: make(map[int64][]int64, len(questions))}
	for _, q := range questions {
		ids := make([]int64, 0, 1)
		for _, o := range q.Options {
			if o.Correct {
				ids = append(ids, o.ID)
			}
		}
		key.Correct[q.ID] = ids
	}
	return key, nil
}
