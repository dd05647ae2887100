package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/keygate/backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type challengeStore interface {
	PutChallenge(ctx context.Context, accountID uuid.UUID, ch model.Challenge) error
	ConsumeChallenge(ctx context.Context, accountID uuid.UUID, code string, maxAttempts int) error
	DeleteChallenge(ctx context.Context, accountID uuid.UUID) error
}

func newRedisStore(t *testing.T) (*RedisChallengeStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return NewRedisChallengeStore(rdb), mr
}

func stores(t *testing.T) map[string]challengeStore {
	redisStore, _ := newRedisStore(t)
	return map[string]challengeStore{
		"memory": NewMemoryChallengeStore(),
		"redis":  redisStore,
	}
}

func pending(code string) model.Challenge {
	now := time.Now()
	return model.Challenge{Code: code, CreatedAt: now, ExpiresAt: now.Add(10 * time.Minute)}
}

func TestChallengeStoreConsumeOnce(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := uuid.New()

			require.NoError(t, store.PutChallenge(ctx, id, pending("Ab3xY9")))
			require.NoError(t, store.ConsumeChallenge(ctx, id, "Ab3xY9", 5))
			assert.ErrorIs(t, store.ConsumeChallenge(ctx, id, "Ab3xY9", 5), model.ErrNotFound)
		})
	}
}

func TestChallengeStoreOverwrite(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := uuid.New()

			require.NoError(t, store.PutChallenge(ctx, id, pending("first1")))
			require.NoError(t, store.PutChallenge(ctx, id, pending("secnd2")))

			assert.ErrorIs(t, store.ConsumeChallenge(ctx, id, "first1", 5), model.ErrCodeMismatch)
			assert.NoError(t, store.ConsumeChallenge(ctx, id, "secnd2", 5))
		})
	}
}

func TestChallengeStoreCaseSensitive(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := uuid.New()

			require.NoError(t, store.PutChallenge(ctx, id, pending("AbCdEf")))
			assert.ErrorIs(t, store.ConsumeChallenge(ctx, id, "abcdef", 5), model.ErrCodeMismatch)
			assert.ErrorIs(t, store.ConsumeChallenge(ctx, id, "AbCdE", 5), model.ErrCodeMismatch)
			assert.NoError(t, store.ConsumeChallenge(ctx, id, "AbCdEf", 5))
		})
	}
}

func TestChallengeStoreAttemptsExceeded(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := uuid.New()

			require.NoError(t, store.PutChallenge(ctx, id, pending("good42")))
			assert.ErrorIs(t, store.ConsumeChallenge(ctx, id, "bad001", 3), model.ErrCodeMismatch)
			assert.ErrorIs(t, store.ConsumeChallenge(ctx, id, "bad002", 3), model.ErrCodeMismatch)
			assert.ErrorIs(t, store.ConsumeChallenge(ctx, id, "bad003", 3), model.ErrAttemptsExceeded)
			assert.ErrorIs(t, store.ConsumeChallenge(ctx, id, "good42", 3), model.ErrNotFound)
		})
	}
}

func TestChallengeStoreDelete(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := uuid.New()

			require.NoError(t, store.PutChallenge(ctx, id, pending("zzz999")))
			require.NoError(t, store.DeleteChallenge(ctx, id))
			require.NoError(t, store.DeleteChallenge(ctx, id))
			assert.ErrorIs(t, store.ConsumeChallenge(ctx, id, "zzz999", 5), model.ErrNotFound)
		})
	}
}

func TestChallengeStoreConcurrentConsume(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := uuid.New()
			require.NoError(t, store.PutChallenge(ctx, id, pending("race01")))

			const workers = 8
			var wg sync.WaitGroup
			results := make([]error, workers)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i] = store.ConsumeChallenge(ctx, id, "race01", 5)
				}(i)
			}
			wg.Wait()

			wins := 0
			for _, err := range results {
				if err == nil {
					wins++
				}
			}
			assert.Equal(t, 1, wins)
		})
	}
}

func TestMemoryChallengeExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryChallengeStore()
	now := time.Now()
	store.now = func() time.Time { return now }
	id := uuid.New()

	require.NoError(t, store.PutChallenge(ctx, id, model.Challenge{Code: "exp123", CreatedAt: now, ExpiresAt: now.Add(time.Minute)}))

	store.now = func() time.Time { return now.Add(time.Minute) }
	assert.ErrorIs(t, store.ConsumeChallenge(ctx, id, "exp123", 5), model.ErrNotFound)
}

func TestRedisChallengeExpiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)
	id := uuid.New()

	require.NoError(t, store.PutChallenge(ctx, id, pending("exp123")))
	assert.True(t, mr.Exists(store.key(id)))

	mr.FastForward(11 * time.Minute)
	assert.ErrorIs(t, store.ConsumeChallenge(ctx, id, "exp123", 5), model.ErrNotFound)
}
