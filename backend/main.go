package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"gitea.kood.tech/petrkubec/match-me-bot/backend/bot"
	"gitea.kood.tech/petrkubec/match-me-bot/backend/config"
	"gitea.kood.tech/petrkubec/match-me-bot/backend/events"
	"gitea.kood.tech/petrkubec/match-me-bot/backend/logger"
	"gitea.kood.tech/petrkubec/match-me-bot/backend/metrics"
	"gitea.kood.tech/petrkubec/match-me-bot/backend/profile"
)

// app holds everything the handlers need.
type app struct {
	cfg      config.Config
	log      zerolog.Logger
	svc      *bot.Service
	profiles profile.Store
	hub      *Hub
	auth     *authenticator
	metrics  *metrics.Metrics
}

func newApp(cfg config.Config, log zerolog.Logger, st *stores, emitter *events.Emitter) *app {
	a := &app{
		cfg:      cfg,
		log:      log,
		profiles: st.profiles,
		hub:      newHub(),
		auth:     newAuthenticator(cfg.JWTSecret, cfg.GatewaySecretHash, cfg.TokenTTL),
	}
	a.metrics = metrics.New(func() float64 { return float64(a.svc.ActiveSessions()) })
	a.svc = bot.New(bot.Deps{
		Profiles: st.profiles,
		Edges:    st.edges,
		Reviews:  st.reviews,
		Events:   emitter,
		Metrics:  a.metrics,
		Log:      log,
	})
	return a
}

func (a *app) routes() http.Handler {
	mux := http.NewServeMux()

	// Gateway token exchange
	mux.Handle("/token", a.tokenHandler())

	// Conversation flows: create, edit, review
	mux.Handle("/flows/", a.auth.authenticate(a.flowsRouter()))

	// Browsing and likes
	mux.Handle("/search", a.auth.authenticate(a.searchHandler()))
	mux.Handle("/candidates/", a.auth.authenticate(a.withProfileLoader(a.candidateActionHandler())))

	// Reviews
	mux.Handle("/reviews", a.auth.authenticate(a.submitReviewHandler()))
	mux.Handle("/me/reviews", a.auth.authenticate(a.withProfileLoader(a.myReviewsHandler())))

	mux.Handle("/me", a.auth.authenticate(a.meHandler()))

	// Chat socket for gateways that keep a connection open
	mux.Handle("/ws/chat", a.wsChatHandler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("/metrics", a.metrics.Handler())

	return withCORS(a.cfg.AllowedOrigins, mux)
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "match-me-bot:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, cfg.Development())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	emitter, mq, err := openEmitter(cfg, log)
	if err != nil {
		return err
	}
	defer mq.Close()

	a := newApp(cfg, log, st, emitter)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           a.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.ListenAddr).Str("env", cfg.Env).Msg("starting match-me-bot")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		a.hub.closeAll()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
