package profile

import (
	"context"
	"errors"

	"gitea.kood.tech/petrkubec/match-me-bot/backend/apperr"
	"gitea.kood.tech/petrkubec/match-me-bot/backend/keylock"
)

// Repository wraps a Store with per-identity read-modify-write.
type Repository struct {
	store Store
	locks *keylock.Map
}

func NewRepository(store Store) *Repository {
	return &Repository{store: store, locks: keylock.New()}
}

// Store exposes the underlying collaborator for read-only callers.
func (r *Repository) Store() Store { return r.store }

// Get returns the profile for identity, a NotFound error if there is none, or
// a Store error.
func (r *Repository) Get(ctx context.Context, identity string) (Profile, error) {
	p, err := r.store.GetByIdentity(ctx, identity)
	if errors.Is(err, ErrNotFound) {
		return Profile{}, apperr.NotFound("profile not found")
	}
	if err != nil {
		return Profile{}, apperr.Store("get profile", err)
	}
	return p, nil
}

// GetByHandle looks up a profile by its public handle.
func (r *Repository) GetByHandle(ctx context.Context, handle string) (Profile, error) {
	p, err := r.store.GetByHandle(ctx, handle)
	if errors.Is(err, ErrNotFound) {
		return Profile{}, apperr.NotFound("User with this username was not found.")
	}
	if err != nil {
		return Profile{}, apperr.Store("get profile by handle", err)
	}
	return p, nil
}

// Apply merges patch into the stored profile for identity, inserting a new
// record if none exists, and validates the result before writing it. A patch
// that cannot produce a complete profile for a new identity is a precondition
// failure. An empty patch for an existing profile writes nothing.
func (r *Repository) Apply(ctx context.Context, identity string, patch Patch) (Profile, error) {
	var saved Profile
	err := r.locks.With(identity, func() error {
		existing, err := r.store.GetByIdentity(ctx, identity)
		switch {
		case errors.Is(err, ErrNotFound):
			if !patch.Complete() {
				return apperr.Precondition("First create your profile with /start")
			}
			existing = Profile{Identity: identity}
		case err != nil:
			return apperr.Store("get profile", err)
		case patch.Empty():
			saved = existing
			return nil
		}

		merged := existing.Merge(patch)
		merged.Identity = identity
		if err := merged.Validate(); err != nil {
			return err
		}
		if err := r.store.Upsert(ctx, merged); err != nil {
			return apperr.Store("upsert profile", err)
		}
		saved = merged
		return nil
	})
	if err != nil {
		return Profile{}, err
	}
	return saved, nil
}
