package redis

import (
	"context"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"contest-service/internal/domain"
)

// AnswerKeyLoader fetches a contest's correct-option map from the backing
// store (e.g., Postgres).
type AnswerKeyLoader interface {
	LoadAnswerKey(ctx context.Context, contestID int64) (domain.AnswerKey, error)
}

// AnswerKeyCache caches answer keys in Redis (hash per contest) and falls
// back to a loader on cache miss.
// Keys are stored as: HSET contest:{contestID}:answers {questionID} {correct option IDs, comma separated}
type AnswerKeyCache struct {
	client *redis.Client
	loader AnswerKeyLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewAnswerKeyCache(client *redis.Client, loader AnswerKeyLoader, ttl time.Duration) *AnswerKeyCache {
	return &AnswerKeyCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *AnswerKeyCache) GetAnswerKey(ctx context.Context, contestID int64) (domain.AnswerKey, error) {
	key := c.key(contestID)

	fields, err := c.client.HGetAll(ctx, key).Result()
	if err == nil && len(fields) > 0 {
		return parseKey(contestID, fields), nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		fields, err := c.client.HGetAll(ctx, key).Result()
		if err == nil && len(fields) > 0 {
			return parseKey(contestID, fields), nil
		}

		answerKey, err := c.loader.LoadAnswerKey(ctx, contestID)
		if err != nil {
			return domain.AnswerKey{}, err
		}

		if len(answerKey.Correct) > 0 {
			pipe := c.client.Pipeline()
			for questionID, optionIDs := range answerKey.Correct {
				pipe.HSet(ctx, key, strconv.FormatInt(questionID, 10), joinIDs(optionIDs))
			}
			if ttl := c.ttlWithJitter(); ttl > 0 {
				pipe.Expire(ctx, key, ttl)
			}
			_, _ = pipe.Exec(ctx)
		}

		return answerKey, nil
	})
	if err != nil {
		return domain.AnswerKey{}, err
	}
	return result.(domain.AnswerKey), nil
}

// Invalidate drops the cached key so the next read reloads fresh correctness
// data.
func (c *AnswerKeyCache) Invalidate(ctx context.Context, contestID int64) error {
	return c.client.Del(ctx, c.key(contestID)).Err()
}

func (c *AnswerKeyCache) key(contestID int64) string {
	return "contest:" + strconv.FormatInt(contestID, 10) + ":answers"
}

func (c *AnswerKeyCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func parseKey(contestID int64, fields map[string]string) domain.AnswerKey {
	key := domain.AnswerKey{ContestID: contestID, Correct: make(map[int64][]int64, len(fields))}
	for questionField, optionList := range fields {
		questionID, err := strconv.ParseInt(questionField, 10, 64)
		if err != nil {
			continue
		}
		var ids []int64
		for _, raw := range strings.Split(optionList, ",") {
			if raw == "" {
				continue
			}
			if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
				ids = append(ids, id)
			}
		}
		key.Correct[questionID] = ids
	}
	return key
}

func joinIDs(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ",")
}
