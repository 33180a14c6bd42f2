package main

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"

	"gitea.kood.tech/petrkubec/match-me-bot/backend/config"
	"gitea.kood.tech/petrkubec/match-me-bot/backend/events"
	"gitea.kood.tech/petrkubec/match-me-bot/backend/interest"
	"gitea.kood.tech/petrkubec/match-me-bot/backend/pgdb"
	"gitea.kood.tech/petrkubec/match-me-bot/backend/profile"
	"gitea.kood.tech/petrkubec/match-me-bot/backend/redisdb"
	"gitea.kood.tech/petrkubec/match-me-bot/backend/review"
)

// stores bundles the collaborators picked by the config. Close releases every
// connection that was opened for them.
type stores struct {
	profiles profile.Store
	edges    interest.EdgeStore
	reviews  review.Store
	closers  []io.Closer
}

func (s *stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i].Close())
	}
	return errors.Join(errs...)
}

func memoryStores() *stores {
	return &stores{
		profiles: profile.NewMemoryStore(),
		edges:    interest.NewMemoryEdgeStore(),
		reviews:  review.NewMemoryStore(),
	}
}

func openStores(ctx context.Context, cfg config.Config, log zerolog.Logger) (*stores, error) {
	st := memoryStores()

	if cfg.Store == config.StorePostgres || cfg.EdgeBackend() == config.StorePostgres {
		db, err := pgdb.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, db)
		if err := pgdb.Migrate(ctx, db); err != nil {
			st.Close()
			return nil, err
		}
		if cfg.Store == config.StorePostgres {
			st.profiles = profile.NewPostgresStore(db)
			st.reviews = review.NewPostgresStore(db)
		}
		if cfg.EdgeBackend() == config.StorePostgres {
			st.edges = interest.NewPostgresEdgeStore(db)
		}
		log.Info().Msg("database connection established")
	}

	if cfg.EdgeBackend() == config.StoreRedis {
		client, err := redisdb.Open(ctx, cfg.RedisURL)
		if err != nil {
			st.Close()
			return nil, err
		}
		st.closers = append(st.closers, client)
		st.edges = interest.NewRedisEdgeStore(client)
		log.Info().Msg("redis connection established")
	}

	log.Info().
		Str("store", cfg.Store).
		Str("edge_store", cfg.EdgeBackend()).
		Msg("stores ready")
	return st, nil
}

// openEmitter connects to RabbitMQ when AMQP_URL is set. Without it match
// events are not published.
func openEmitter(cfg config.Config, log zerolog.Logger) (*events.Emitter, io.Closer, error) {
	if cfg.AMQPURL == "" {
		return events.Nop(), io.NopCloser(nil), nil
	}
	mq, err := events.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, nil, err
	}
	if err := mq.DeclareExchange(events.ExchangeMatchEvents, events.ExchangeTypeFanout); err != nil {
		mq.Close()
		return nil, nil, err
	}
	log.Info().Str("exchange", events.ExchangeMatchEvents).Msg("match events enabled")
	return events.NewEmitter(mq, log), mq, nil
}
