package main

import (
	"gitea.kood.tech/petrkubec/match-me-bot/backend/bot"
)

// isOnline reports whether identity has at least one open chat connection.
func (h *Hub) isOnline(identity string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clientsByIdentity[identity]) > 0
}

// notify pushes notifications to the recipients' chat connections. Offline
// recipients miss them; HTTP callers get their own copy in the response.
func (a *app) notify(notes []bot.Notification) {
	for _, n := range notes {
		if !a.hub.isOnline(n.Identity) {
			a.log.Debug().Str("identity", n.Identity).Msg("notification recipient offline")
			continue
		}
		if a.hub.sendToIdentity(n.Identity, ServerEvent{Type: "notify", Data: n.Response}) == 0 {
			a.log.Warn().Str("identity", n.Identity).Msg("notification dropped")
		}
	}
}
