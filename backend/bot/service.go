package bot

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"gitea.kood.tech/petrkubec/match-me-bot/backend/apperr"
	"gitea.kood.tech/petrkubec/match-me-bot/backend/candidate"
	"gitea.kood.tech/petrkubec/match-me-bot/backend/events"
	"gitea.kood.tech/petrkubec/match-me-bot/backend/interest"
	"gitea.kood.tech/petrkubec/match-me-bot/backend/keylock"
	"gitea.kood.tech/petrkubec/match-me-bot/backend/metrics"
	"gitea.kood.tech/petrkubec/match-me-bot/backend/profile"
	"gitea.kood.tech/petrkubec/match-me-bot/backend/review"
	"gitea.kood.tech/petrkubec/match-me-bot/backend/session"
)

// Deps are the collaborators of a Service. Events and Metrics are optional.
type Deps struct {
	Profiles profile.Store
	Edges    interest.EdgeStore
	Reviews  review.Store
	Events   *events.Emitter
	Metrics  *metrics.Metrics
	Log      zerolog.Logger
}

// Service is the single entry point for inbound user events. Every call for
// one identity runs under that identity's lock, so events are handled in the
// order they acquire it. Different identities proceed concurrently.
type Service struct {
	profiles *profile.Repository
	machine  *session.Machine
	browser  *candidate.Browser
	graph    *interest.Graph
	ledger   *review.Ledger
	events   *events.Emitter
	metrics  *metrics.Metrics
	log      zerolog.Logger
	locks    *keylock.Map
}

func New(deps Deps) *Service {
	repo := profile.NewRepository(deps.Profiles)
	ledger := review.NewLedger(deps.Reviews)
	ev := deps.Events
	if ev == nil {
		ev = events.Nop()
	}
	return &Service{
		profiles: repo,
		machine:  session.NewMachine(repo, ledger),
		browser:  candidate.NewBrowser(deps.Profiles),
		graph:    interest.NewGraph(deps.Edges),
		ledger:   ledger,
		events:   ev,
		metrics:  deps.Metrics,
		log:      deps.Log,
		locks:    keylock.New(),
	}
}

// ActiveSessions is the number of flows in progress.
func (s *Service) ActiveSessions() int { return s.machine.Active() }

func (s *Service) lock(identity string) func() {
	return s.locks.Lock(identity)
}

// StartFlow enters flow, replacing any flow in progress.
func (s *Service) StartFlow(ctx context.Context, ev Event, flow session.Flow, arg string) Response {
	defer s.lock(ev.Identity)()

	if s.metrics != nil && flow.Valid() {
		s.metrics.IncFlowStarted(string(flow))
	}
	res := s.machine.Start(ctx, ev.Identity, ev.Handle, flow, arg)
	s.observe(ev, res)
	s.afterCommit(ev, res)
	return fromResult(res)
}

// Resume feeds one input to the active flow.
func (s *Service) Resume(ctx context.Context, ev Event, in session.Input) Response {
	defer s.lock(ev.Identity)()

	res := s.machine.Resume(ctx, ev.Identity, in)
	s.observe(ev, res)
	s.afterCommit(ev, res)
	return fromResult(res)
}

func (s *Service) Cancel(ctx context.Context, ev Event) Response {
	defer s.lock(ev.Identity)()

	res := s.machine.Cancel(ev.Identity)
	s.observe(ev, res)
	return fromResult(res)
}

// Profile returns the sender's committed profile, or a NotFound error.
func (s *Service) Profile(ctx context.Context, ev Event) (profile.Profile, error) {
	return s.profiles.Get(ctx, ev.Identity)
}

// Search starts a fresh pass over the matching profiles.
func (s *Service) Search(ctx context.Context, ev Event) Response {
	defer s.lock(ev.Identity)()

	res, err := s.browser.Start(ctx, ev.Identity)
	switch {
	case errors.Is(err, candidate.ErrNoMatches):
		return text(msgNoMatches)
	case err != nil:
		return s.failure(ev, "search", err)
	}
	return candidateCard(res.Candidate, res.Position, res.Total)
}

// CandidateAction handles a like or skip pressed on the card rendered at
// action.Position. A stale position re-renders the current card.
func (s *Service) CandidateAction(ctx context.Context, ev Event, action Action) Response {
	defer s.lock(ev.Identity)()

	if action.Name != ActionLike && action.Name != ActionSkip {
		return text("Unknown action.")
	}

	cur, err := s.browser.Current(ev.Identity, action.Position)
	if errors.Is(err, candidate.ErrStalePosition) {
		return s.cursorResponse(cur)
	}
	if err != nil {
		return s.failure(ev, "candidate action", err)
	}

	var (
		notify []Notification
		note   string
	)
	if action.Name == ActionLike {
		notify, note, err = s.like(ctx, ev, cur.Candidate)
		if err != nil {
			return s.failure(ev, "like", err)
		}
	}

	resp := s.cursorResponse(s.browser.Advance(ev.Identity))
	switch {
	case note == "":
	case resp.Card != nil:
		resp.Text = note
	case note != msgLiked:
		resp.Text = note + "\n\n" + resp.Text
	}
	resp.Notify = notify
	return resp
}

// like records the interest. It returns the notifications of a newly formed
// match, or otherwise a note for the caller.
func (s *Service) like(ctx context.Context, ev Event, target profile.Profile) ([]Notification, string, error) {
	outcome, err := s.graph.Record(ctx, ev.Identity, target.Identity)
	if err != nil {
		return nil, "", err
	}
	if s.metrics != nil {
		s.metrics.IncInterest(outcome.String())
	}
	s.log.Info().
		Str("identity", ev.Identity).
		Str("target", target.Identity).
		Str("outcome", outcome.String()).
		Msg("interest recorded")

	switch outcome {
	case interest.NewInterest:
		return nil, msgLiked, nil
	case interest.AlreadyRecorded:
		return nil, s.repeatedLikeNote(ctx, ev, target), nil
	}

	if err := s.events.MatchFormed(ctx, ev.Identity, target.Identity); err != nil {
		s.log.Warn().Err(err).Str("identity", ev.Identity).Msg("match event not published")
	}

	handles := s.handles(ctx, []string{ev.Identity, target.Identity})
	return []Notification{
		{Identity: ev.Identity, Response: text(matchText(handles[target.Identity]))},
		{Identity: target.Identity, Response: text(matchText(handles[ev.Identity]))},
	}, "", nil
}

func (s *Service) repeatedLikeNote(ctx context.Context, ev Event, target profile.Profile) string {
	mutual, err := s.graph.IsMutual(ctx, ev.Identity, target.Identity)
	if err != nil {
		s.log.Warn().Err(err).Str("identity", ev.Identity).Str("target", target.Identity).Msg("mutual check failed")
		return msgLiked
	}
	if !mutual {
		return msgLiked
	}
	return alreadyMatchedText(target.Handle)
}

// afterCommit drops the browse cursor once the sender's profile changes, since
// the pass was selected against the old preferences.
func (s *Service) afterCommit(ev Event, res session.Result) {
	if res.Kind != session.ResultCommitted {
		return
	}
	if res.Flow == session.FlowCreate || res.Flow == session.FlowEdit {
		s.browser.Reset(ev.Identity)
	}
}

func (s *Service) cursorResponse(res candidate.Result) Response {
	if res.Exhausted {
		r := text(msgExhausted)
		r.Edit = true
		return r
	}
	r := candidateCard(res.Candidate, res.Position, res.Total)
	r.Edit = true
	return r
}

// SubmitReview appends a review in one step, without a flow. The target must
// have a profile.
func (s *Service) SubmitReview(ctx context.Context, ev Event, handle, body string) Response {
	defer s.lock(ev.Identity)()

	h, err := profile.ParseHandle(handle, false)
	if err != nil {
		return text(apperr.Message(err, msgGenericFailure))
	}
	target, err := s.profiles.GetByHandle(ctx, h)
	if err != nil {
		return s.failure(ev, "review target", err)
	}
	if target.Identity == ev.Identity {
		return text("You cannot review your own profile.")
	}
	if err := s.ledger.Append(ctx, target.Handle, ev.Identity, body); err != nil {
		return s.failure(ev, "append review", err)
	}
	if s.metrics != nil {
		s.metrics.IncReviewAdded()
	}
	return text(msgReviewSaved)
}

// ListMyReviews renders the reviews about the sender's handle. The stored
// profile handle wins over the one carried by the event.
func (s *Service) ListMyReviews(ctx context.Context, ev Event) Response {
	defer s.lock(ev.Identity)()

	handle := ev.Handle
	if p, err := s.profiles.Get(ctx, ev.Identity); err == nil && p.Handle != "" {
		handle = p.Handle
	} else if err != nil && !apperr.IsNotFound(err) {
		return s.failure(ev, "get profile", err)
	}
	if strings.TrimSpace(handle) == "" {
		return text(msgNoHandle)
	}

	entries, err := s.ledger.Entries(ctx, handle)
	if err != nil {
		return s.failure(ev, "list reviews", err)
	}
	if len(entries) == 0 {
		return text(msgNoReviews)
	}

	authors := make([]string, 0, len(entries))
	seen := make(map[string]bool)
	for _, e := range entries {
		if e.Author != "" && !seen[e.Author] {
			seen[e.Author] = true
			authors = append(authors, e.Author)
		}
	}
	return text(renderReviews(entries, s.handles(ctx, authors)))
}

func (s *Service) Help() Response {
	return text(helpText)
}

// observe records metrics and logs for one session result.
func (s *Service) observe(ev Event, res session.Result) {
	logger := s.log.With().
		Str("identity", ev.Identity).
		Str("flow", string(res.Flow)).
		Str("state", string(res.State)).
		Logger()

	switch res.Kind {
	case session.ResultReprompt:
		if s.metrics != nil {
			s.metrics.IncReprompt(string(res.State))
		}
		logger.Debug().Err(res.Err).Msg("input rejected")
	case session.ResultCommitted, session.ResultCancelled, session.ResultAborted:
		if s.metrics != nil {
			s.metrics.IncFlowFinished(string(res.Flow), string(res.Kind))
			if res.Kind == session.ResultCommitted && res.Flow == session.FlowReview {
				s.metrics.IncReviewAdded()
			}
		}
		if res.Kind == session.ResultAborted && apperr.KindOf(res.Err) == apperr.KindStore {
			logger.Error().Err(res.Err).Msg("flow aborted")
			return
		}
		logger.Info().Str("result", string(res.Kind)).Msg("flow finished")
	}
}

// failure turns a classified error into the text shown to the user. Store
// errors are logged and replaced with the generic message.
func (s *Service) failure(ev Event, op string, err error) Response {
	if apperr.KindOf(err) == apperr.KindStore {
		s.log.Error().Err(err).Str("identity", ev.Identity).Str("op", op).Msg("request failed")
	}
	return text(apperr.Message(err, msgGenericFailure))
}
