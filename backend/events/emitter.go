package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const EventTypeMatch = "match.created"

// MatchEvent is published once per mutual match.
type MatchEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Identities [2]string `json:"identities"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher is satisfied by *RabbitMQ.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error
}

// Emitter publishes domain events to the fanout exchange. A nil publisher
// turns every call into a no-op, which is what runs without AMQP_URL.
type Emitter struct {
	pub Publisher
	log zerolog.Logger
	now func() time.Time
}

func NewEmitter(pub Publisher, log zerolog.Logger) *Emitter {
	return &Emitter{pub: pub, log: log, now: time.Now}
}

// Nop returns an emitter that publishes nothing.
func Nop() *Emitter {
	return &Emitter{log: zerolog.Nop(), now: time.Now}
}

// MatchFormed announces that a and b like each other. Publishing failures are
// returned; the match itself is already stored.
func (e *Emitter) MatchFormed(ctx context.Context, a, b string) error {
	if e == nil || e.pub == nil {
		return nil
	}
	evt := MatchEvent{
		ID:         uuid.NewString(),
		Type:       EventTypeMatch,
		Identities: [2]string{a, b},
		OccurredAt: e.now().UTC(),
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	if err := e.pub.Publish(ctx, ExchangeMatchEvents, "", body); err != nil {
		e.log.Error().Err(err).Str("event_id", evt.ID).Msg("publish match event")
		return err
	}
	e.log.Debug().Str("event_id", evt.ID).Msg("match event published")
	return nil
}
