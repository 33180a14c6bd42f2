package events

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	args := m.Called(ctx, exchange, routingKey, body)
	return args.Error(0)
}

func TestMatchFormed(t *testing.T) {
	pub := new(mockPublisher)
	var sent []byte
	pub.On("Publish", mock.Anything, ExchangeMatchEvents, "", mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(3).([]byte) }).
		Return(nil).Once()

	e := NewEmitter(pub, zerolog.Nop())
	e.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	require.NoError(t, e.MatchFormed(context.Background(), "u1", "u2"))
	pub.AssertExpectations(t)

	var evt MatchEvent
	require.NoError(t, json.Unmarshal(sent, &evt))
	assert.Equal(t, EventTypeMatch, evt.Type)
	assert.Equal(t, [2]string{"u1", "u2"}, evt.Identities)
	_, err := uuid.Parse(evt.ID)
	assert.NoError(t, err)
	assert.Equal(t, 2025, evt.OccurredAt.Year())
}

func TestMatchFormedPublishError(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("channel closed"))

	err := NewEmitter(pub, zerolog.Nop()).MatchFormed(context.Background(), "a", "b")
	assert.EqualError(t, err, "channel closed")
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop().MatchFormed(context.Background(), "a", "b"))
	var nilEmitter *Emitter
	assert.NoError(t, nilEmitter.MatchFormed(context.Background(), "a", "b"))
}

func TestRabbitMQIntegration(t *testing.T) {
	url := os.Getenv("TEST_AMQP_URL")
	if url == "" {
		t.Skip("TEST_AMQP_URL not set")
	}
	mq, err := Dial(url)
	require.NoError(t, err)
	defer mq.Close()

	require.NoError(t, mq.DeclareExchange(ExchangeMatchEvents, ExchangeTypeFanout))
	assert.NoError(t, NewEmitter(mq, zerolog.Nop()).MatchFormed(context.Background(), "a", "b"))
}
