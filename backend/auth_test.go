package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"gitea.kood.tech/petrkubec/match-me-bot/backend/bot"
)

// ============================================================================
// AUTHENTICATION TEST SUITE
// ============================================================================

func TestAuthenticationSuite(t *testing.T) {
	t.Run("TokenExchange", func(t *testing.T) {
		testTokenExchange(t)
	})

	t.Run("TokenParsing", func(t *testing.T) {
		testTokenParsing(t)
	})

	t.Run("GatewaySecret", func(t *testing.T) {
		testGatewaySecret(t)
	})

	t.Run("ProductionNeedsGatewayHash", func(t *testing.T) {
		testProductionNeedsGatewayHash(t)
	})
}

func testTokenExchange(t *testing.T) {
	a := newTestApp(t)
	h := a.routes()

	t.Run("Valid Exchange", func(t *testing.T) {
		w := doRequest(t, h, http.MethodPost, "/token", "", map[string]string{
			"identity": "tg:100",
			"handle":   "@alice",
		})
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var out struct {
			Token    string `json:"token"`
			Identity string `json:"identity"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if out.Identity != "tg:100" {
			t.Errorf("expected identity tg:100, got %q", out.Identity)
		}

		ev, ok := a.auth.parse(out.Token)
		if !ok {
			t.Fatal("issued token does not parse")
		}
		if ev.Handle != "alice" {
			t.Errorf("expected handle without @, got %q", ev.Handle)
		}
	})

	t.Run("Handle Outside Allowed Characters", func(t *testing.T) {
		for _, handle := range []string{"john.doe", "@", "this_handle_is_far_too_long_to_be_accepted"} {
			w := doRequest(t, h, http.MethodPost, "/token", "", map[string]string{
				"identity": "tg:101",
				"handle":   handle,
			})
			if w.Code != http.StatusBadRequest {
				t.Errorf("handle %q: expected 400, got %d", handle, w.Code)
			}
			if !strings.Contains(w.Body.String(), "invalid_handle") {
				t.Errorf("handle %q: unexpected body %s", handle, w.Body.String())
			}
		}
	})

	t.Run("Empty Handle Allowed", func(t *testing.T) {
		w := doRequest(t, h, http.MethodPost, "/token", "", map[string]string{"identity": "tg:102", "handle": " "})
		if w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("Missing Identity", func(t *testing.T) {
		w := doRequest(t, h, http.MethodPost, "/token", "", map[string]string{"identity": "  "})
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})

	t.Run("Invalid JSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/token", nil)
		req.Body = http.NoBody
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for empty body, got %d", w.Code)
		}
	})

	t.Run("Wrong Method", func(t *testing.T) {
		w := doRequest(t, h, http.MethodGet, "/token", "", nil)
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", w.Code)
		}
	})
}

func testTokenParsing(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	auth := newAuthenticator(testSecret, "", time.Hour)
	auth.now = func() time.Time { return now }

	tok, err := auth.issue(bot.Event{Identity: "u1", Handle: "alice"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	t.Run("Round Trip", func(t *testing.T) {
		ev, ok := auth.parse(tok)
		if !ok || ev.Identity != "u1" || ev.Handle != "alice" {
			t.Errorf("unexpected event %+v (ok=%v)", ev, ok)
		}
	})

	t.Run("Expired", func(t *testing.T) {
		later := newAuthenticator(testSecret, "", time.Hour)
		later.now = func() time.Time { return now.Add(2 * time.Hour) }
		if _, ok := later.parse(tok); ok {
			t.Error("expected expired token to be rejected")
		}
	})

	t.Run("Wrong Secret", func(t *testing.T) {
		other := newAuthenticator("another-secret", "", time.Hour)
		other.now = auth.now
		if _, ok := other.parse(tok); ok {
			t.Error("expected token signed with another secret to be rejected")
		}
	})

	t.Run("Missing Expiry", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"identity": "u1"}).
			SignedString([]byte(testSecret))
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := auth.parse(raw); ok {
			t.Error("expected token without exp to be rejected")
		}
	})

	t.Run("Missing Identity", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"exp": now.Add(time.Hour).Unix(),
		}).SignedString([]byte(testSecret))
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := auth.parse(raw); ok {
			t.Error("expected token without identity to be rejected")
		}
	})

	t.Run("Header And Query", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ws/chat?token="+tok, nil)
		if ev, ok := auth.eventFromRequest(req); !ok || ev.Identity != "u1" {
			t.Errorf("query token not accepted: %+v", ev)
		}

		req = httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		if ev, ok := auth.eventFromRequest(req); !ok || ev.Identity != "u1" {
			t.Errorf("header token not accepted: %+v", ev)
		}

		req = httptest.NewRequest(http.MethodGet, "/me", nil)
		if _, ok := auth.eventFromRequest(req); ok {
			t.Error("expected request without token to be rejected")
		}
	})
}

func testGatewaySecret(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("gateway-secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	a := newTestApp(t)
	a.auth = newAuthenticator(testSecret, string(hash), time.Hour)
	h := a.routes()

	t.Run("Correct Secret", func(t *testing.T) {
		w := doRequest(t, h, http.MethodPost, "/token", "", map[string]string{
			"identity": "u1",
			"secret":   "gateway-secret",
		})
		if w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", w.Code)
		}
	})

	t.Run("Wrong Secret", func(t *testing.T) {
		w := doRequest(t, h, http.MethodPost, "/token", "", map[string]string{
			"identity": "u1",
			"secret":   "guess",
		})
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})
}

func testProductionNeedsGatewayHash(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("GATEWAY_SECRET_HASH", "")

	err := run(nil)
	if err == nil {
		t.Fatal("expected production start without a gateway hash to fail")
	}
	if !strings.Contains(err.Error(), "GATEWAY_SECRET_HASH") {
		t.Errorf("unexpected error: %v", err)
	}
}
