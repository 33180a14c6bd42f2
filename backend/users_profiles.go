package main

import (
	"net/http"
	"strings"

	"gitea.kood.tech/petrkubec/match-me-bot/backend/apperr"
	"gitea.kood.tech/petrkubec/match-me-bot/backend/session"
)

// flowsRouter serves POST /flows/{create|edit|review}, /flows/input and
// /flows/cancel.
func (a *app) flowsRouter() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		switch rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/flows/"), "/"); rest {
		case "input":
			a.flowInput(w, r)
		case "cancel":
			a.respond(w, r, a.svc.Cancel(r.Context(), eventFromContext(r.Context())))
		default:
			flow := session.Flow(rest)
			if !flow.Valid() {
				writeError(w, http.StatusNotFound, "unknown_flow")
				return
			}
			a.flowStart(w, r, flow)
		}
	}
}

func (a *app) flowStart(w http.ResponseWriter, r *http.Request, flow session.Flow) {
	var req struct {
		Arg string `json:"arg"`
	}
	if !decodeBody(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	a.respond(w, r, a.svc.StartFlow(r.Context(), eventFromContext(r.Context()), flow, req.Arg))
}

var inputKinds = map[string]session.InputKind{
	"text":   session.InputText,
	"photo":  session.InputPhoto,
	"skip":   session.InputSkip,
	"cancel": session.InputCancel,
}

func (a *app) flowInput(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind  string `json:"kind"`
		Text  string `json:"text"`
		Photo string `json:"photo"`
	}
	if !decodeBody(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Kind == "" {
		req.Kind = "text"
	}
	kind, ok := inputKinds[strings.ToLower(req.Kind)]
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_input_kind")
		return
	}
	in := session.Input{Kind: kind, Text: req.Text, Photo: req.Photo}
	a.respond(w, r, a.svc.Resume(r.Context(), eventFromContext(r.Context()), in))
}

// meHandler returns the caller's committed profile.
func (a *app) meHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		ev := eventFromContext(r.Context())
		p, err := a.svc.Profile(r.Context(), ev)
		switch {
		case apperr.IsNotFound(err):
			writeError(w, http.StatusNotFound, "profile_not_found")
			return
		case err != nil:
			a.log.Error().Err(err).Str("identity", ev.Identity).Msg("get profile")
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}
