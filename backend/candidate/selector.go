package candidate

import (
	"github.com/samber/lo"

	"gitea.kood.tech/petrkubec/match-me-bot/backend/profile"
)

// Select returns the pool members compatible with requester, in pool order.
// The requester is never included. Only the requester's preferences are applied.
func Select(requester profile.Profile, pool []profile.Profile) []profile.Profile {
	return lo.Filter(pool, func(c profile.Profile, _ int) bool {
		return Compatible(requester, c)
	})
}

// Compatible reports whether candidate fits requester's target gender and age range.
func Compatible(requester, candidate profile.Profile) bool {
	if candidate.Identity == requester.Identity {
		return false
	}
	if !requester.TargetGender.Accepts(candidate.Gender) {
		return false
	}
	return candidate.Age >= requester.AgeMin && candidate.Age <= requester.AgeMax
}
