package bot

import (
	"context"
	"strings"

	"gitea.kood.tech/petrkubec/match-me-bot/backend/session"
)

// HandleText routes a chat message: slash commands go to their entry point,
// anything else continues the active flow.
func (s *Service) HandleText(ctx context.Context, ev Event, msg string) Response {
	cmd, arg := splitCommand(msg)
	switch cmd {
	case "/start":
		return s.StartFlow(ctx, ev, session.FlowCreate, "")
	case "/edit":
		return s.StartFlow(ctx, ev, session.FlowEdit, "")
	case "/review":
		return s.StartFlow(ctx, ev, session.FlowReview, arg)
	case "/search":
		return s.Search(ctx, ev)
	case "/reviews":
		return s.ListMyReviews(ctx, ev)
	case "/help":
		return s.Help()
	}
	return s.Resume(ctx, ev, session.ParseText(msg))
}

// splitCommand returns the lower-cased command word and the rest of the line.
// cmd is empty when msg is not a command.
func splitCommand(msg string) (cmd, arg string) {
	msg = strings.TrimSpace(msg)
	if !strings.HasPrefix(msg, "/") {
		return "", ""
	}
	cmd, arg, _ = strings.Cut(msg, " ")
	return strings.ToLower(cmd), strings.TrimSpace(arg)
}
