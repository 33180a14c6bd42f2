package bot

import (
	"context"

	"gitea.kood.tech/petrkubec/match-me-bot/backend/profile"
)

// Event identifies who sent an inbound message. Handle is the sender's
// platform username and may be empty.
type Event struct {
	Identity string
	Handle   string
}

type ResponseKind string

const (
	KindPrompt ResponseKind = "prompt"
	KindCard   ResponseKind = "card"
	KindText   ResponseKind = "text"
)

const (
	ActionLike = "like"
	ActionSkip = "skip"
)

// Action is a button on a profile card. Position is the cursor position the
// card was rendered at.
type Action struct {
	Name     string `json:"name"`
	Position int    `json:"position"`
}

type Card struct {
	Profile profile.Profile `json:"profile"`
	Caption string          `json:"caption"`
	Actions []Action        `json:"actions,omitempty"`
}

// Response is a rendering-independent reply. Edit asks the transport to
// replace the last message instead of sending a new one.
type Response struct {
	Kind    ResponseKind   `json:"kind"`
	Text    string         `json:"text,omitempty"`
	Choices []string       `json:"choices,omitempty"`
	Card    *Card          `json:"card,omitempty"`
	Edit    bool           `json:"edit,omitempty"`
	Notify  []Notification `json:"-"`
}

// Notification is a response addressed to another identity.
type Notification struct {
	Identity string   `json:"identity"`
	Response Response `json:"response"`
}

// Interaction is the only way core code talks back to a user.
type Interaction interface {
	Reply(ctx context.Context, r Response) error
	EditLast(ctx context.Context, r Response) error
}

// Deliver sends r through ix, editing the last message when r asks for it.
func Deliver(ctx context.Context, ix Interaction, r Response) error {
	if r.Edit {
		return ix.EditLast(ctx, r)
	}
	return ix.Reply(ctx, r)
}

func text(msg string) Response {
	return Response{Kind: KindText, Text: msg}
}
