package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"contest-service/internal/domain"
)

func TestAnswerKeyCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	loader := &countingLoader{key: sampleKey()}
	cache := NewAnswerKeyCache(client, loader, time.Minute)

	key, err := cache.GetAnswerKey(context.Background(), 1)
	if err != nil {
		t.Fatalf("get key: %v", err)
	}
	if !key.IsCorrect(10, 101) || !key.IsCorrect(10, 102) {
		t.Fatalf("expected options 101 and 102 correct, got %+v", key.Correct)
	}
	if key.IsCorrect(11, 111) {
		t.Fatalf("question 11 has no correct options, got %+v", key.Correct)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}

	// Second call should hit the Redis hash, loader not incremented.
	cached, err := cache.GetAnswerKey(context.Background(), 1)
	if err != nil {
		t.Fatalf("get key 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if !cached.IsCorrect(10, 102) {
		t.Fatalf("cached key lost correctness data: %+v", cached.Correct)
	}
}

func TestAnswerKeyInvalidateForcesReload(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	loader := &countingLoader{key: sampleKey()}
	cache := NewAnswerKeyCache(client, loader, time.Minute)

	if _, err := cache.GetAnswerKey(context.Background(), 1); err != nil {
		t.Fatalf("get key: %v", err)
	}
	if err := cache.Invalidate(context.Background(), 1); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := cache.GetAnswerKey(context.Background(), 1); err != nil {
		t.Fatalf("get key 2: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidation, got %d calls", loader.calls)
	}
}

type countingLoader struct {
	key   domain.AnswerKey
	calls int
}

func (l *countingLoader) LoadAnswerKey(_ context.Context, contestID int64) (domain.AnswerKey, error) {
	l.calls++
	key := l.key
	key.ContestID = contestID
	return key, nil
}

func sampleKey() domain.AnswerKey {
	return domain.AnswerKey{
		Correct: map[int64][]int64{
			10: {101, 102},
			11: nil,
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
