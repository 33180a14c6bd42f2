package candidate

import (
	"context"
	"errors"
	"sync"

	"gitea.kood.tech/petrkubec/match-me-bot/backend/apperr"
	"gitea.kood.tech/petrkubec/match-me-bot/backend/profile"
)

var (
	// ErrNoMatches means the search ran and found nobody. It is a valid
	// outcome, not a failure.
	ErrNoMatches = errors.New("no matches")
	// ErrStalePosition means an action referenced a card that is no longer current.
	ErrStalePosition = errors.New("stale candidate position")
)

// Result is the cursor's view after a search or an action.
type Result struct {
	Candidate profile.Profile
	Position  int
	Total     int
	Exhausted bool
}

type cursor struct {
	results []profile.Profile
	index   int
}

func (c *cursor) result() Result {
	if c.index >= len(c.results) {
		return Result{Position: c.index, Total: len(c.results), Exhausted: true}
	}
	return Result{Candidate: c.results[c.index], Position: c.index, Total: len(c.results)}
}

// Browser steps each requester through their own search result. Callers
// serialize calls per requester; the map itself is safe for concurrent use.
type Browser struct {
	store   profile.Store
	mu      sync.Mutex
	cursors map[string]*cursor
}

func NewBrowser(store profile.Store) *Browser {
	return &Browser{store: store, cursors: make(map[string]*cursor)}
}

// Start runs a fresh search for requester and positions the cursor on the
// first candidate.
func (b *Browser) Start(ctx context.Context, requester string) (Result, error) {
	me, err := b.store.GetByIdentity(ctx, requester)
	if errors.Is(err, profile.ErrNotFound) {
		return Result{}, apperr.Precondition("First create your profile with /start")
	}
	if err != nil {
		return Result{}, apperr.Store("get requester profile", err)
	}
	pool, err := b.store.ListAll(ctx)
	if err != nil {
		return Result{}, apperr.Store("list profiles", err)
	}

	results := Select(me, pool)

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(results) == 0 {
		delete(b.cursors, requester)
		return Result{Exhausted: true}, ErrNoMatches
	}
	c := &cursor{results: results}
	b.cursors[requester] = c
	return c.result(), nil
}

// Current returns the candidate shown at position. An action for any other
// position gets ErrStalePosition together with the actual cursor state.
func (b *Browser) Current(requester string, position int) (Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.cursors[requester]
	if !ok {
		return Result{}, apperr.Precondition("No profiles to show. Start a search with /search")
	}
	res := c.result()
	if res.Exhausted || position != c.index {
		return res, ErrStalePosition
	}
	return res, nil
}

// Advance moves past the current candidate. Past the end it reports
// Exhausted and never wraps.
func (b *Browser) Advance(requester string) Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.cursors[requester]
	if !ok {
		return Result{Exhausted: true}
	}
	if c.index < len(c.results) {
		c.index++
	}
	return c.result()
}

// Reset forgets requester's cursor.
func (b *Browser) Reset(requester string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.cursors, requester)
}
