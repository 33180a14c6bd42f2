package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"gitea.kood.tech/petrkubec/match-me-bot/backend/bot"
)

// --- Response helpers ---
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeBody reads an optional JSON body. An empty body leaves dst untouched.
func decodeBody(r *http.Request, dst interface{}) bool {
	if r.Body == nil {
		return true
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	return err == nil || errors.Is(err, io.EOF)
}

// botReply is the HTTP form of a bot.Response. Notifications for the caller
// are included; every notification is also pushed to connected chat clients.
type botReply struct {
	Response      bot.Response   `json:"response"`
	Notifications []bot.Response `json:"notifications,omitempty"`
}

func (a *app) respond(w http.ResponseWriter, r *http.Request, resp bot.Response) {
	ev := eventFromContext(r.Context())
	a.notify(resp.Notify)

	out := botReply{Response: resp}
	for _, n := range resp.Notify {
		if n.Identity == ev.Identity {
			out.Notifications = append(out.Notifications, n.Response)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, "invalid_method")
		return false
	}
	return true
}
