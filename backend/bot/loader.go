package bot

import (
	"context"
	"time"

	"github.com/graph-gophers/dataloader/v7"

	"gitea.kood.tech/petrkubec/match-me-bot/backend/profile"
)

// ProfileLoader batches profile lookups by identity into one GetMany call.
type ProfileLoader = dataloader.Loader[string, profile.Profile]

// NewProfileLoader builds a loader for one request. Loaders cache, so do not
// share them across requests.
func NewProfileLoader(store profile.Store) *ProfileLoader {
	return dataloader.NewBatchedLoader(profileBatchFn(store),
		dataloader.WithWait[string, profile.Profile](2*time.Millisecond))
}

func profileBatchFn(store profile.Store) dataloader.BatchFunc[string, profile.Profile] {
	return func(ctx context.Context, keys []string) []*dataloader.Result[profile.Profile] {
		results := make([]*dataloader.Result[profile.Profile], len(keys))

		found, err := store.GetMany(ctx, keys)
		for i, key := range keys {
			switch p, ok := found[key]; {
			case err != nil:
				results[i] = &dataloader.Result[profile.Profile]{Error: err}
			case !ok:
				results[i] = &dataloader.Result[profile.Profile]{Error: profile.ErrNotFound}
			default:
				results[i] = &dataloader.Result[profile.Profile]{Data: p}
			}
		}
		return results
	}
}

type loaderKey struct{}

// WithProfileLoader stores a per-request loader in ctx.
func WithProfileLoader(ctx context.Context, l *ProfileLoader) context.Context {
	return context.WithValue(ctx, loaderKey{}, l)
}

// profileLoader returns the request's loader, or a fresh one.
func (s *Service) profileLoader(ctx context.Context) *ProfileLoader {
	if l, ok := ctx.Value(loaderKey{}).(*ProfileLoader); ok && l != nil {
		return l
	}
	return NewProfileLoader(s.profiles.Store())
}

// handles resolves identities to handles. Identities without a profile or a
// handle are missing from the map.
func (s *Service) handles(ctx context.Context, identities []string) map[string]string {
	out := make(map[string]string, len(identities))
	if len(identities) == 0 {
		return out
	}
	profiles, errs := s.profileLoader(ctx).LoadMany(ctx, identities)()
	for i, p := range profiles {
		if i < len(errs) && errs[i] != nil {
			continue
		}
		if p.Handle != "" {
			out[identities[i]] = p.Handle
		}
	}
	return out
}
