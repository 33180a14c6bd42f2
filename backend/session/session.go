package session

import (
	"strings"

	"gitea.kood.tech/petrkubec/match-me-bot/backend/profile"
)

// Flow is a named sequence of states.
type Flow string

const (
	FlowCreate Flow = "create"
	FlowEdit   Flow = "edit"
	FlowReview Flow = "review"
)

func (f Flow) Valid() bool {
	switch f {
	case FlowCreate, FlowEdit, FlowReview:
		return true
	}
	return false
}

type State string

const (
	StateIdle               State = "idle"
	StateChooseGender       State = "choose_gender"
	StateEnterAge           State = "enter_age"
	StateEnterAbout         State = "enter_about"
	StateChooseTargetGender State = "choose_target_gender"
	StateEnterAgeRange      State = "enter_age_range"
	StateUploadPhoto        State = "upload_photo"
	StateChooseField        State = "choose_field"
	StateFieldValue         State = "field_value"
	StateChooseTarget       State = "choose_target"
	StateEnterText          State = "enter_text"

	// stateCommit is never stored; reaching it runs the flow's commit.
	stateCommit State = "commit"
)

// InputKind tells the table which column an input falls into.
type InputKind int

const (
	InputText InputKind = iota
	InputPhoto
	InputSkip
	InputCancel
)

func (k InputKind) String() string {
	switch k {
	case InputText:
		return "text"
	case InputPhoto:
		return "photo"
	case InputSkip:
		return "skip"
	case InputCancel:
		return "cancel"
	}
	return "unknown"
}

// Input is one inbound user event while a flow is active.
type Input struct {
	Kind  InputKind `json:"kind"`
	Text  string    `json:"text,omitempty"`
	Photo string    `json:"photo,omitempty"`
}

func Text(s string) Input      { return Input{Kind: InputText, Text: s} }
func Photo(token string) Input { return Input{Kind: InputPhoto, Photo: token} }
func Skip() Input              { return Input{Kind: InputSkip} }
func Cancel() Input            { return Input{Kind: InputCancel} }

// ParseText maps the /cancel and /skip commands to their input kinds.
// Anything else is plain text.
func ParseText(s string) Input {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "/cancel":
		return Cancel()
	case "/skip":
		return Skip()
	}
	return Text(s)
}

// Session is the transient per-identity flow state.
type Session struct {
	Identity     string
	Handle       string
	Flow         Flow
	State        State
	Draft        profile.Patch
	EditField    profile.Field
	ReviewTarget string
	ReviewText   string
}

// Prompt is what the user is asked next.
type Prompt struct {
	Text    string   `json:"text"`
	Choices []string `json:"choices,omitempty"`
}

// ResultKind is the outcome of feeding one event to the machine.
type ResultKind string

const (
	ResultPrompt    ResultKind = "prompt"
	ResultReprompt  ResultKind = "reprompt"
	ResultCommitted ResultKind = "committed"
	ResultAborted   ResultKind = "aborted"
	ResultCancelled ResultKind = "cancelled"
	ResultNoSession ResultKind = "no_session"
)

// Result describes what happened and what to show. Err is set for aborts and
// reprompts and carries the apperr classification.
type Result struct {
	Kind    ResultKind
	Flow    Flow
	State   State
	Prompt  Prompt
	Message string
	Profile *profile.Profile
	Err     error
}

// Done reports whether the session no longer exists after this result.
func (r Result) Done() bool {
	switch r.Kind {
	case ResultCommitted, ResultAborted, ResultCancelled, ResultNoSession:
		return true
	}
	return false
}
