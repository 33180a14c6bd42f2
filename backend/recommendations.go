package main

import "net/http"

// searchHandler starts a new pass over the caller's matching profiles and
// returns the first card.
func (a *app) searchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		a.respond(w, r, a.svc.Search(r.Context(), eventFromContext(r.Context())))
	}
}
