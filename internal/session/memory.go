package session

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
)

// MemoryStore is a process-local session and credential store.
type MemoryStore struct {
	mu          sync.Mutex
	sessions    map[string]domain.Session
	credentials map[string]domain.Credential
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:    make(map[string]domain.Session),
		credentials: make(map[string]domain.Credential),
	}
}

func (m *MemoryStore) CreateSession(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (m *MemoryStore) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) SweepSessions(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) CreateCredential(_ context.Context, c *domain.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.credentials[c.IdentityID]; ok {
		return domain.ErrExists
	}
	m.credentials[c.IdentityID] = *c
	return nil
}

func (m *MemoryStore) GetCredential(_ context.Context, identityID string) (*domain.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.credentials[identityID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}
