package db

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/keygate/backend/internal/model"
)

// Memory is an in-process account and session store. Unique email and
// username are enforced under the same lock as the insert.
type Memory struct {
	mu         sync.RWMutex
	accounts   map[uuid.UUID]*model.Account
	byEmail    map[string]uuid.UUID
	byUsername map[string]uuid.UUID
	sessions   map[uuid.UUID]*model.Session
}

func NewMemory() *Memory {
	return &Memory{
		accounts:   make(map[uuid.UUID]*model.Account),
		byEmail:    make(map[string]uuid.UUID),
		byUsername: make(map[string]uuid.UUID),
		sessions:   make(map[uuid.UUID]*model.Session),
	}
}

func (m *Memory) InsertAccount(_ context.Context, account *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byEmail[account.Email]; ok {
		return &model.ConflictError{Field: model.FieldEmail}
	}
	if _, ok := m.byUsername[account.Username]; ok {
		return &model.ConflictError{Field: model.FieldUsername}
	}

	stored := *account
	m.accounts[account.ID] = &stored
	m.byEmail[account.Email] = account.ID
	m.byUsername[account.Username] = account.ID
	return nil
}

func (m *Memory) FindAccountByEmail(_ context.Context, email string) (*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accountLocked(m.byEmail[email])
}

func (m *Memory) FindAccountByUsername(_ context.Context, username string) (*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accountLocked(m.byUsername[username])
}

func (m *Memory) FindAccountByID(_ context.Context, id uuid.UUID) (*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accountLocked(id)
}

func (m *Memory) TouchLastOnline(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		return model.ErrNotFound
	}
	account.TimeOfLastOnline = at
	return nil
}

func (m *Memory) InsertSession(_ context.Context, session *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[session.AccountID]; !ok {
		return model.ErrNotFound
	}
	stored := *session
	m.sessions[session.ID] = &stored
	return nil
}

func (m *Memory) FindSessionByID(_ context.Context, id uuid.UUID) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	out := *session
	return &out, nil
}

func (m *Memory) DeleteSession(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// accountLocked returns a copy so callers never alias the stored record.
func (m *Memory) accountLocked(id uuid.UUID) (*model.Account, error) {
	account, ok := m.accounts[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	out := *account
	return &out, nil
}
