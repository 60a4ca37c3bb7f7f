package subscription

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// In-memory store implementations for tests and local development. They
// mirror the postgres stores' not-found semantics and hand out clones so
// callers never alias the maps.

type memoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[uuid.UUID]*Profile
}

// NewMemoryProfileStore returns an in-memory ProfileStore.
func NewMemoryProfileStore() ProfileStore {
	return &memoryProfileStore{profiles: make(map[uuid.UUID]*Profile)}
}

func (s *memoryProfileStore) Get(_ context.Context, userID uuid.UUID) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return p.Clone(), nil
}

func (s *memoryProfileStore) GetByExternalSubscriptionID(_ context.Context, externalID string) (*Profile, error) {
	if externalID == "" {
		return nil, ErrProfileNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.profiles {
		if p.ExternalSubscriptionID == externalID {
			return p.Clone(), nil
		}
	}
	return nil, ErrProfileNotFound
}

func (s *memoryProfileStore) Create(_ context.Context, p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p.Clone()
	return nil
}

func (s *memoryProfileStore) Save(_ context.Context, p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.UserID]; !ok {
		return ErrProfileNotFound
	}
	s.profiles[p.UserID] = p.Clone()
	return nil
}

type memorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*PaymentSession
}

// NewMemorySessionStore returns an in-memory SessionStore.
func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{sessions: make(map[string]*PaymentSession)}
}

func (s *memorySessionStore) Get(_ context.Context, externalReference string) (*PaymentSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[externalReference]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess.Clone(), nil
}

func (s *memorySessionStore) GetByExternalSubscriptionID(_ context.Context, externalID string) (*PaymentSession, error) {
	if externalID == "" {
		return nil, ErrSessionNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		if sess.ExternalSubscriptionID == externalID {
			return sess.Clone(), nil
		}
	}
	return nil, ErrSessionNotFound
}

func (s *memorySessionStore) Create(_ context.Context, sess *PaymentSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ExternalReference] = sess.Clone()
	return nil
}

func (s *memorySessionStore) Save(_ context.Context, sess *PaymentSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ExternalReference]; !ok {
		return ErrSessionNotFound
	}
	s.sessions[sess.ExternalReference] = sess.Clone()
	return nil
}

type memoryLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewMemoryLocker returns a per-key in-process Locker.
func NewMemoryLocker() Locker {
	return &memoryLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *memoryLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()
	return fn(ctx)
}

type memoryDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemoryDeduper returns an in-process Deduper.
func NewMemoryDeduper() Deduper {
	return &memoryDeduper{seen: make(map[string]struct{})}
}

func (d *memoryDeduper) Seen(_ context.Context, eventID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[eventID]; ok {
		return true, nil
	}
	d.seen[eventID] = struct{}{}
	return false, nil
}

func (d *memoryDeduper) Forget(_ context.Context, eventID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, eventID)
	return nil
}
