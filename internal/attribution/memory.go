package attribution

import (
	"context"
	"sync"
	"time"

	"github.com/contwre/leadflow/internal/domain"
)

type memoryEntry struct {
	snap      *domain.AttributionSnapshot
	visited   bool
	expiresAt time.Time
}

// MemoryRepository is a mutex-guarded in-process repository. It backs the
// service when Redis is not configured, and every test. Entries expire
// lazily on access.
type MemoryRepository struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryRepository creates an in-memory repository with the given
// session TTL.
func NewMemoryRepository(ttl time.Duration) *MemoryRepository {
	return &MemoryRepository{
		entries: make(map[string]*memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// entry returns the live entry for a session, creating it if requested.
// Callers must hold mu.
func (m *MemoryRepository) entry(sessionID string, create bool) *memoryEntry {
	e, ok := m.entries[sessionID]
	if ok && m.now().After(e.expiresAt) {
		delete(m.entries, sessionID)
		ok = false
	}
	if !ok {
		if !create {
			return nil
		}
		e = &memoryEntry{}
		m.entries[sessionID] = e
	}
	e.expiresAt = m.now().Add(m.ttl)
	return e
}

func (m *MemoryRepository) Get(_ context.Context, sessionID string) (*domain.AttributionSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entry(sessionID, false)
	if e == nil || e.snap == nil {
		return nil, ErrNotFound
	}
	snap := *e.snap
	return &snap, nil
}

func (m *MemoryRepository) Put(_ context.Context, sessionID string, snap *domain.AttributionSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *snap
	m.entry(sessionID, true).snap = &cp
	return nil
}

func (m *MemoryRepository) Visited(_ context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entry(sessionID, false)
	return e != nil && e.visited, nil
}

func (m *MemoryRepository) MarkVisited(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entry(sessionID, true).visited = true
	return nil
}
