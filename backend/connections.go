package main

import (
	"net/http"
	"strings"

	"gitea.kood.tech/petrkubec/match-me-bot/backend/bot"
)

// candidateActionHandler serves POST /candidates/{like|skip} with the card
// position in the body. A like that completes a pair notifies both sides.
func (a *app) candidateActionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/candidates/"), "/")
		if name != bot.ActionLike && name != bot.ActionSkip {
			writeError(w, http.StatusNotFound, "unknown_action")
			return
		}

		var req struct {
			Position *int `json:"position"`
		}
		if !decodeBody(r, &req) {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if req.Position == nil {
			writeError(w, http.StatusBadRequest, "missing_fields")
			return
		}

		ev := eventFromContext(r.Context())
		a.respond(w, r, a.svc.CandidateAction(r.Context(), ev, bot.Action{Name: name, Position: *req.Position}))
	}
}
