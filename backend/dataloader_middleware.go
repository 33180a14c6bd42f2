package main

import (
	"net/http"

	"gitea.kood.tech/petrkubec/match-me-bot/backend/bot"
)

// withProfileLoader gives each request its own batched profile loader, so the
// cache never outlives the request.
func (a *app) withProfileLoader(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		loader := bot.NewProfileLoader(a.profiles)
		next(w, r.WithContext(bot.WithProfileLoader(r.Context(), loader)))
	}
}
