package review

import (
	"context"
	"strings"
	"sync"
	"time"

	"gitea.kood.tech/petrkubec/match-me-bot/backend/apperr"
	"gitea.kood.tech/petrkubec/match-me-bot/backend/profile"
)

// Entry is one review about a handle.
type Entry struct {
	Subject   string    `json:"subject"`
	Author    string    `json:"author,omitempty"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the append-only review collaborator. Handles passed in are already
// normalized.
type Store interface {
	Append(ctx context.Context, e Entry) error
	List(ctx context.Context, handle string) ([]Entry, error)
}

// Ledger appends and lists reviews keyed by handle, case-insensitively. It does
// not check that the handle belongs to a profile.
type Ledger struct {
	store Store
	now   func() time.Time
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// Append stores text under handle. author is the reviewer's identity and may be empty.
func (l *Ledger) Append(ctx context.Context, handle, author, text string) error {
	key := profile.NormalizeHandle(handle)
	if key == "" {
		return apperr.Validation("Please enter the username in the format @username.")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return apperr.Validation("Please write the review text.")
	}
	err := l.store.Append(ctx, Entry{Subject: key, Author: author, Text: text, CreatedAt: l.now()})
	if err != nil {
		return apperr.Store("append review", err)
	}
	return nil
}

// List returns the review texts for handle in insertion order.
func (l *Ledger) List(ctx context.Context, handle string) ([]string, error) {
	entries, err := l.Entries(ctx, handle)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(entries))
	for _, e := range entries {
		texts = append(texts, e.Text)
	}
	return texts, nil
}

// Entries returns the full review entries for handle in insertion order.
func (l *Ledger) Entries(ctx context.Context, handle string) ([]Entry, error) {
	entries, err := l.store.List(ctx, profile.NormalizeHandle(handle))
	if err != nil {
		return nil, apperr.Store("list reviews", err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]Entry)}
}

func (s *MemoryStore) Append(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.Subject] = append(s.entries[e.Subject], e)
	return nil
}

func (s *MemoryStore) List(_ context.Context, handle string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.entries[handle]
	out := make([]Entry, len(src))
	copy(out, src)
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
