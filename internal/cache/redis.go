package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/keygate/backend/internal/config"
	"github.com/keygate/backend/internal/model"
	"github.com/redis/go-redis/v9"
)

const (
	challengeKeyPrefix = "2fa"
	maxWatchRetries    = 4
)

var errChallengeBackend = errors.New("challenge backend unavailable")

// RedisChallengeStore keeps one hash per account with the key expiring at the
// challenge deadline. Consume runs under WATCH so compare-and-delete is atomic.
type RedisChallengeStore struct {
	redis *redis.Client
}

func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	dbIndex, err := strconv.Atoi(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       dbIndex,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func NewRedisChallengeStore(client *redis.Client) *RedisChallengeStore {
	return &RedisChallengeStore{redis: client}
}

func (s *RedisChallengeStore) key(accountID uuid.UUID) string {
	return challengeKeyPrefix + ":" + accountID.String()
}

func (s *RedisChallengeStore) PutChallenge(ctx context.Context, accountID uuid.UUID, ch model.Challenge) error {
	key := s.key(accountID)
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"code", ch.Code,
			"attempts", 0,
			"created_at", ch.CreatedAt.Unix(),
			"expires_at", ch.ExpiresAt.Unix(),
		)
		pipe.ExpireAt(ctx, key, ch.ExpiresAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errChallengeBackend, err)
	}
	return nil
}

func (s *RedisChallengeStore) ConsumeChallenge(ctx context.Context, accountID uuid.UUID, code string, maxAttempts int) error {
	key := s.key(accountID)

	for i := 0; i < maxWatchRetries; i++ {
		var result error
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			fields, err := tx.HGetAll(ctx, key).Result()
			if err != nil {
				return err
			}
			ch, ok := decodeChallenge(fields)
			if !ok {
				result = model.ErrNotFound
				return nil
			}

			if !time.Now().Before(ch.ExpiresAt) {
				result = model.ErrNotFound
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				return err
			}

			if ch.Matches(code) {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				return err
			}

			if ch.Attempts+1 >= maxAttempts {
				result = model.ErrAttemptsExceeded
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				return err
			}

			result = model.ErrCodeMismatch
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HIncrBy(ctx, key, "attempts", 1)
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: %v", errChallengeBackend, err)
		}
		return result
	}

	return fmt.Errorf("%w: too much contention on %s", errChallengeBackend, key)
}

func (s *RedisChallengeStore) DeleteChallenge(ctx context.Context, accountID uuid.UUID) error {
	if err := s.redis.Del(ctx, s.key(accountID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", errChallengeBackend, err)
	}
	return nil
}

func decodeChallenge(fields map[string]string) (model.Challenge, bool) {
	code, ok := fields["code"]
	if !ok || code == "" {
		return model.Challenge{}, false
	}
	attempts, err := strconv.Atoi(fields["attempts"])
	if err != nil {
		return model.Challenge{}, false
	}
	createdAt, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return model.Challenge{}, false
	}
	expiresAt, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return model.Challenge{}, false
	}
	return model.Challenge{
		Code:      code,
		Attempts:  attempts,
		CreatedAt: time.Unix(createdAt, 0),
		ExpiresAt: time.Unix(expiresAt, 0),
	}, true
}
