package interest

import (
	"context"
	"fmt"

	"gitea.kood.tech/petrkubec/match-me-bot/backend/apperr"
	"gitea.kood.tech/petrkubec/match-me-bot/backend/keylock"
)

// Outcome of recording one directed interest.
type Outcome int

const (
	NewInterest Outcome = iota + 1
	AlreadyRecorded
	MutualMatchFormed
)

func (o Outcome) String() string {
	switch o {
	case NewInterest:
		return "new_interest"
	case AlreadyRecorded:
		return "already_recorded"
	case MutualMatchFormed:
		return "mutual_match"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// EdgeStore persists directed edges. InsertEdge reports whether the edge was
// newly inserted.
type EdgeStore interface {
	HasEdge(ctx context.Context, from, to string) (bool, error)
	InsertEdge(ctx context.Context, from, to string) (bool, error)
}

// AtomicEdgeStore can insert an edge and look up its reverse as one atomic
// step, which keeps mutual detection exact across processes sharing the store.
type AtomicEdgeStore interface {
	EdgeStore
	InsertAndCheckReverse(ctx context.Context, from, to string) (inserted, reverse bool, err error)
}

// Graph records interest edges and reports mutual matches. The insert and the
// reverse lookup for a pair always run under that pair's lock, so exactly one of
// two racing inserts can observe the other.
type Graph struct {
	store EdgeStore
	locks *keylock.Map
}

func NewGraph(store EdgeStore) *Graph {
	return &Graph{store: store, locks: keylock.New()}
}

// Record inserts from -> to. MutualMatchFormed is returned only by the insert
// that completes the pair; repeating any insert returns AlreadyRecorded.
func (g *Graph) Record(ctx context.Context, from, to string) (Outcome, error) {
	if from == "" || to == "" {
		return 0, apperr.Validation("both identities are required")
	}
	if from == to {
		return 0, apperr.Validation("You cannot like your own profile.")
	}

	unlock := g.locks.Lock(keylock.PairKey(from, to))
	defer unlock()

	inserted, reverse, err := g.insert(ctx, from, to)
	if err != nil {
		return 0, apperr.Store("record interest", err)
	}
	switch {
	case !inserted:
		return AlreadyRecorded, nil
	case reverse:
		return MutualMatchFormed, nil
	default:
		return NewInterest, nil
	}
}

// IsMutual reports whether a and b hold edges toward each other.
func (g *Graph) IsMutual(ctx context.Context, a, b string) (bool, error) {
	ab, err := g.store.HasEdge(ctx, a, b)
	if err != nil || !ab {
		return false, err
	}
	return g.store.HasEdge(ctx, b, a)
}

func (g *Graph) insert(ctx context.Context, from, to string) (inserted, reverse bool, err error) {
	if atomic, ok := g.store.(AtomicEdgeStore); ok {
		return atomic.InsertAndCheckReverse(ctx, from, to)
	}
	inserted, err = g.store.InsertEdge(ctx, from, to)
	if err != nil || !inserted {
		return inserted, false, err
	}
	reverse, err = g.store.HasEdge(ctx, to, from)
	return inserted, reverse, err
}
