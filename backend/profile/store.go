package profile

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned by stores when no profile matches the lookup.
var ErrNotFound = errors.New("profile not found")

// Store is the keyed profile collaborator. Upsert replaces the whole record for
// p.Identity; merging happens in Repository before Upsert is called.
type Store interface {
	GetByIdentity(ctx context.Context, identity string) (Profile, error)
	GetByHandle(ctx context.Context, handle string) (Profile, error)
	Upsert(ctx context.Context, p Profile) error
	// ListAll returns every profile in insertion order.
	ListAll(ctx context.Context) ([]Profile, error)
	// GetMany returns the profiles found for identities, keyed by identity.
	GetMany(ctx context.Context, identities []string) (map[string]Profile, error)
}

// MemoryStore keeps profiles in process. Handles are unique: upserting a handle
// held by another identity moves it to the new owner.
type MemoryStore struct {
	mu       sync.RWMutex
	order    []string
	profiles map[string]Profile
	handles  map[string]string // normalized handle -> identity
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]Profile),
		handles:  make(map[string]string),
		now:      time.Now,
	}
}

func (s *MemoryStore) GetByIdentity(_ context.Context, identity string) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[identity]; ok {
		return p, nil
	}
	return Profile{}, ErrNotFound
}

func (s *MemoryStore) GetByHandle(_ context.Context, handle string) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.handles[NormalizeHandle(handle)]; ok {
		return s.profiles[id], nil
	}
	return Profile{}, ErrNotFound
}

func (s *MemoryStore) Upsert(_ context.Context, p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	old, exists := s.profiles[p.Identity]
	if exists {
		p.CreatedAt = old.CreatedAt
		if old.Handle != "" {
			delete(s.handles, NormalizeHandle(old.Handle))
		}
	} else {
		p.CreatedAt = now
		s.order = append(s.order, p.Identity)
	}
	p.UpdatedAt = now

	if p.Handle != "" {
		key := NormalizeHandle(p.Handle)
		if holder, ok := s.handles[key]; ok && holder != p.Identity {
			prev := s.profiles[holder]
			prev.Handle = ""
			s.profiles[holder] = prev
		}
		s.handles[key] = p.Identity
	}
	s.profiles[p.Identity] = p
	return nil
}

func (s *MemoryStore) ListAll(_ context.Context) ([]Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Profile, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.profiles[id])
	}
	return out, nil
}

func (s *MemoryStore) GetMany(_ context.Context, identities []string) (map[string]Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Profile, len(identities))
	for _, id := range identities {
		if p, ok := s.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// Close is a no-op; it lets the memory store share the lifecycle of the
// database-backed stores.
func (s *MemoryStore) Close() error { return nil }
