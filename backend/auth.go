package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"gitea.kood.tech/petrkubec/match-me-bot/backend/bot"
	"gitea.kood.tech/petrkubec/match-me-bot/backend/profile"
)

type eventKey struct{}

// authenticator issues and checks the bearer tokens handed to chat gateways.
// A gateway proves itself with the shared secret whose bcrypt hash is
// configured; the token then carries the end user's identity and handle.
type authenticator struct {
	secret      []byte
	gatewayHash []byte
	ttl         time.Duration
	now         func() time.Time
}

func newAuthenticator(secret, gatewayHash string, ttl time.Duration) *authenticator {
	return &authenticator{
		secret:      []byte(secret),
		gatewayHash: []byte(gatewayHash),
		ttl:         ttl,
		now:         time.Now,
	}
}

func (a *authenticator) issue(ev bot.Event) (string, error) {
	now := a.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"identity": ev.Identity,
		"handle":   ev.Handle,
		"jti":      uuid.NewString(),
		"iat":      now.Unix(),
		"exp":      now.Add(a.ttl).Unix(),
	})
	return token.SignedString(a.secret)
}

func (a *authenticator) parse(tokenStr string) (bot.Event, bool) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithExpirationRequired(), jwt.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return bot.Event{}, false
	}
	identity, _ := claims["identity"].(string)
	if identity == "" {
		return bot.Event{}, false
	}
	handle, _ := claims["handle"].(string)
	return bot.Event{Identity: identity, Handle: handle}, true
}

// checkGateway reports whether secret matches the configured hash. Without a
// hash every caller is accepted, which only the development config allows.
func (a *authenticator) checkGateway(secret string) bool {
	if len(a.gatewayHash) == 0 {
		return true
	}
	return bcrypt.CompareHashAndPassword(a.gatewayHash, []byte(secret)) == nil
}

// eventFromRequest reads the bearer token from the Authorization header, or
// from the token query parameter for WebSocket clients that cannot set headers.
func (a *authenticator) eventFromRequest(r *http.Request) (bot.Event, bool) {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return a.parse(strings.TrimPrefix(auth, "Bearer "))
	}
	if q := r.URL.Query().Get("token"); q != "" {
		return a.parse(q)
	}
	return bot.Event{}, false
}

func (a *authenticator) authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ev, ok := a.eventFromRequest(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), eventKey{}, ev)))
	}
}

func eventFromContext(ctx context.Context) bot.Event {
	ev, _ := ctx.Value(eventKey{}).(bot.Event)
	return ev
}

func (a *app) tokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}

		var req struct {
			Identity string `json:"identity"`
			Handle   string `json:"handle"`
			Secret   string `json:"secret"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}

		req.Identity = strings.TrimSpace(req.Identity)
		if req.Identity == "" {
			writeError(w, http.StatusBadRequest, "missing_fields")
			return
		}
		if !a.auth.checkGateway(req.Secret) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}

		ev := bot.Event{Identity: req.Identity}
		if h := strings.TrimSpace(req.Handle); h != "" {
			handle, err := profile.ParseHandle(h, false)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_handle")
				return
			}
			ev.Handle = handle
		}
		token, err := a.auth.issue(ev)
		if err != nil {
			a.log.Error().Err(err).Str("identity", ev.Identity).Msg("generate token")
			writeError(w, http.StatusInternalServerError, "token_generation_error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"token": token, "identity": ev.Identity})
	}
}
