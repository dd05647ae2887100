// Package cache holds the two-factor challenge stores that live outside the
// relational database.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/keygate/backend/internal/model"
)

// MemoryChallengeStore keeps at most one challenge per account in a
// mutex-guarded map. Expired entries are dropped lazily on access.
type MemoryChallengeStore struct {
	mu         sync.Mutex
	challenges map[uuid.UUID]model.Challenge
	now        func() time.Time
}

func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{
		challenges: make(map[uuid.UUID]model.Challenge),
		now:        time.Now,
	}
}

func (s *MemoryChallengeStore) PutChallenge(_ context.Context, accountID uuid.UUID, ch model.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch.Attempts = 0
	s.challenges[accountID] = ch
	return nil
}

func (s *MemoryChallengeStore) ConsumeChallenge(_ context.Context, accountID uuid.UUID, code string, maxAttempts int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.challenges[accountID]
	if !ok {
		return model.ErrNotFound
	}
	if !s.now().Before(ch.ExpiresAt) {
		delete(s.challenges, accountID)
		return model.ErrNotFound
	}

	if !ch.Matches(code) {
		ch.Attempts++
		if ch.Attempts >= maxAttempts {
			delete(s.challenges, accountID)
			return model.ErrAttemptsExceeded
		}
		s.challenges[accountID] = ch
		return model.ErrCodeMismatch
	}

	delete(s.challenges, accountID)
	return nil
}

func (s *MemoryChallengeStore) DeleteChallenge(_ context.Context, accountID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.challenges, accountID)
	return nil
}
