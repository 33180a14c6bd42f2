package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"gitea.kood.tech/petrkubec/match-me-bot/backend/apperr"
	"gitea.kood.tech/petrkubec/match-me-bot/backend/profile"
	"gitea.kood.tech/petrkubec/match-me-bot/backend/review"
)

const (
	msgGenericFailure = "Something went wrong, please try again later."
	msgNoProfile      = "First create your profile with /start"
	msgCancelled      = "Cancelled."
	msgNothingActive  = "There is nothing to continue. Use /start, /edit or /review."
	msgProfileSaved   = "Your profile has been saved."
	msgReviewSaved    = "Thank you! Your review has been saved."
)

// Machine owns every active session. Callers serialize Start, Resume and
// Cancel per identity; different identities may call concurrently.
type Machine struct {
	profiles *profile.Repository
	ledger   *review.Ledger

	mu       sync.Mutex
	sessions map[string]Session
}

func NewMachine(profiles *profile.Repository, ledger *review.Ledger) *Machine {
	return &Machine{
		profiles: profiles,
		ledger:   ledger,
		sessions: make(map[string]Session),
	}
}

// Start enters flow for identity, dropping whatever flow was active before.
// handle is the identity's platform username, merged into created profiles.
// For the review flow a non-empty arg is treated as the first answer.
func (m *Machine) Start(ctx context.Context, identity, handle string, flow Flow, arg string) Result {
	m.drop(identity)

	entry, ok := first[flow]
	if !ok {
		return Result{Kind: ResultAborted, Flow: flow, State: StateIdle,
			Message: msgGenericFailure, Err: apperr.Validation("unknown flow " + string(flow))}
	}

	if flow == FlowEdit {
		if _, err := m.profiles.Get(ctx, identity); err != nil {
			if apperr.IsNotFound(err) {
				err = apperr.Precondition(msgNoProfile)
			}
			return m.abort(Session{Identity: identity, Flow: flow}, err)
		}
	}

	s := Session{Identity: identity, Handle: handle, Flow: flow, State: entry}
	m.save(s)

	arg = strings.TrimSpace(arg)
	if flow == FlowReview && arg != "" {
		if !strings.HasPrefix(arg, "@") {
			arg = "@" + arg
		}
		return m.Resume(ctx, identity, Text(arg))
	}
	return Result{Kind: ResultPrompt, Flow: flow, State: entry, Prompt: promptFor(s)}
}

// Resume feeds one input to identity's active session.
func (m *Machine) Resume(ctx context.Context, identity string, in Input) Result {
	s, ok := m.Session(identity)
	if !ok {
		return Result{Kind: ResultNoSession, State: StateIdle, Message: msgNothingActive}
	}
	if in.Kind == InputCancel {
		return m.Cancel(identity)
	}

	t, ok := lookup(s.State, in.Kind)
	if !ok {
		return m.reprompt(s, wrongKind(s.State))
	}

	next := s
	if err := t.apply(&next, in); err != nil {
		if errors.Is(err, errEndFlow) {
			return m.Cancel(identity)
		}
		if apperr.IsValidation(err) {
			return m.reprompt(s, err)
		}
		return m.abort(s, err)
	}
	if t.check != nil {
		if err := t.check(ctx, m, &next); err != nil {
			if apperr.IsValidation(err) {
				return m.reprompt(s, err)
			}
			return m.abort(s, err)
		}
	}

	next.State = t.next
	if next.State == stateCommit {
		return m.commit(ctx, next)
	}
	m.save(next)
	return Result{Kind: ResultPrompt, Flow: next.Flow, State: next.State, Prompt: promptFor(next)}
}

// Cancel discards identity's active session, if any.
func (m *Machine) Cancel(identity string) Result {
	s, ok := m.Session(identity)
	if !ok {
		return Result{Kind: ResultNoSession, State: StateIdle, Message: msgNothingActive}
	}
	m.drop(identity)
	return Result{Kind: ResultCancelled, Flow: s.Flow, State: StateIdle, Message: msgCancelled}
}

// Session returns a copy of identity's active session.
func (m *Machine) Session(identity string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[identity]
	return s, ok
}

// Active is the number of sessions in progress.
func (m *Machine) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Machine) commit(ctx context.Context, s Session) Result {
	// The session is gone whatever the outcome.
	m.drop(s.Identity)

	switch s.Flow {
	case FlowCreate, FlowEdit:
		patch := s.Draft
		if s.Flow == FlowCreate && s.Handle != "" {
			if h, err := profile.ParseHandle(s.Handle, false); err == nil {
				patch.Handle = &h
			}
		}
		p, err := m.profiles.Apply(ctx, s.Identity, patch)
		if err != nil {
			return m.abort(s, err)
		}
		return Result{Kind: ResultCommitted, Flow: s.Flow, State: StateIdle, Message: msgProfileSaved, Profile: &p}
	case FlowReview:
		if err := m.ledger.Append(ctx, s.ReviewTarget, s.Identity, s.ReviewText); err != nil {
			return m.abort(s, err)
		}
		return Result{Kind: ResultCommitted, Flow: s.Flow, State: StateIdle, Message: msgReviewSaved}
	}
	return m.abort(s, errors.New("commit: unknown flow "+string(s.Flow)))
}

func (m *Machine) reprompt(s Session, err error) Result {
	return Result{
		Kind:    ResultReprompt,
		Flow:    s.Flow,
		State:   s.State,
		Prompt:  promptFor(s),
		Message: apperr.Message(err, msgGenericFailure),
		Err:     err,
	}
}

// abort ends the flow. Precondition and not-found errors keep their guidance
// text; everything else gets the generic failure message.
func (m *Machine) abort(s Session, err error) Result {
	m.drop(s.Identity)
	msg := msgGenericFailure
	if apperr.KindOf(err) != apperr.KindStore {
		msg = apperr.Message(err, msgGenericFailure)
	}
	return Result{Kind: ResultAborted, Flow: s.Flow, State: StateIdle, Message: msg, Err: err}
}

func (m *Machine) save(s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Identity] = s
}

func (m *Machine) drop(identity string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, identity)
}
