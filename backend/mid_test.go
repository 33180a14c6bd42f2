package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gitea.kood.tech/petrkubec/match-me-bot/backend/bot"
	"gitea.kood.tech/petrkubec/match-me-bot/backend/config"
)

// ============================================================================
// MIDDLEWARE AND ROUTING TEST SUITE
// ============================================================================

func TestMiddlewareAndRoutingSuite(t *testing.T) {
	t.Run("CORS", func(t *testing.T) {
		testCORS(t)
	})

	t.Run("Authentication", func(t *testing.T) {
		testAuthMiddleware(t)
	})

	t.Run("ProfileLoader", func(t *testing.T) {
		testProfileLoaderMiddleware(t)
	})

	t.Run("URLRouting", func(t *testing.T) {
		testURLRouting(t)
	})
}

func testCORS(t *testing.T) {
	origins := config.Default().AllowedOrigins

	t.Run("CORS Headers Applied", func(t *testing.T) {
		called := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusTeapot)
		})

		req := httptest.NewRequest(http.MethodGet, "/anything", nil)
		req.Header.Set("Origin", "http://127.0.0.1:5173")
		w := httptest.NewRecorder()

		withCORS(origins, handler).ServeHTTP(w, req)

		resp := w.Result()
		if resp.Header.Get("Access-Control-Allow-Origin") != "http://127.0.0.1:5173" {
			t.Errorf("missing or wrong CORS origin header: %v",
				resp.Header.Get("Access-Control-Allow-Origin"))
		}
		if !called {
			t.Error("expected wrapped handler to be called")
		}
		if resp.StatusCode != http.StatusTeapot {
			t.Errorf("expected status %d, got %d", http.StatusTeapot, resp.StatusCode)
		}
	})

	t.Run("Unknown Origin Falls Back", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/anything", nil)
		req.Header.Set("Origin", "http://evil.example")
		w := httptest.NewRecorder()

		withCORS(origins, http.NotFoundHandler()).ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != origins[0] {
			t.Errorf("expected fallback origin, got %q", got)
		}
	})

	t.Run("No Origins Configured", func(t *testing.T) {
		w := httptest.NewRecorder()
		withCORS(nil, http.NotFoundHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("expected no origin header, got %q", got)
		}
	})

	t.Run("OPTIONS Preflight", func(t *testing.T) {
		called := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		})

		req := httptest.NewRequest(http.MethodOptions, "/anything", nil)
		w := httptest.NewRecorder()

		withCORS(origins, handler).ServeHTTP(w, req)

		if w.Code != http.StatusNoContent {
			t.Errorf("expected status %d for OPTIONS, got %d", http.StatusNoContent, w.Code)
		}
		if called {
			t.Error("handler should not be called for OPTIONS preflight")
		}
	})
}

func testAuthMiddleware(t *testing.T) {
	a := newTestApp(t)
	var seen bot.Event
	protected := a.auth.authenticate(func(w http.ResponseWriter, r *http.Request) {
		seen = eventFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	t.Run("Valid Token", func(t *testing.T) {
		w := doRequest(t, protected, http.MethodGet, "/x", tokenFor(t, a, "u1", "alice"), nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if seen.Identity != "u1" || seen.Handle != "alice" {
			t.Errorf("event not stored in context: %+v", seen)
		}
	})

	t.Run("Invalid Token", func(t *testing.T) {
		w := doRequest(t, protected, http.MethodGet, "/x", "invalid_token", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})
}

func testProfileLoaderMiddleware(t *testing.T) {
	a := newTestApp(t)
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	original := req.Context()

	called := false
	handler := a.withProfileLoader(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if r.Context() == original {
			t.Error("expected a request context carrying the loader")
		}
		w.WriteHeader(http.StatusOK)
	})

	w := httptest.NewRecorder()
	handler(w, req)
	if !called {
		t.Fatal("expected wrapped handler to be called")
	}
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func testURLRouting(t *testing.T) {
	a := newTestApp(t)
	h := a.routes()
	tok := tokenFor(t, a, "u1", "alice")

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{"Health", http.MethodGet, "/health", "", http.StatusOK},
		{"Metrics", http.MethodGet, "/metrics", "", http.StatusOK},
		{"Flows Need Auth", http.MethodPost, "/flows/create", "", http.StatusUnauthorized},
		{"Unknown Flow", http.MethodPost, "/flows/dance", tok, http.StatusNotFound},
		{"Flows Are POST Only", http.MethodGet, "/flows/create", tok, http.StatusMethodNotAllowed},
		{"Unknown Candidate Action", http.MethodPost, "/candidates/superlike", tok, http.StatusNotFound},
		{"Me Without Profile", http.MethodGet, "/me", tok, http.StatusNotFound},
		{"Search Is POST Only", http.MethodGet, "/search", tok, http.StatusMethodNotAllowed},
		{"Reviews Need Fields", http.MethodPost, "/reviews", tok, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(t, h, tc.method, tc.path, tc.token, nil)
			if w.Code != tc.status {
				t.Errorf("%s %s: expected %d, got %d: %s", tc.method, tc.path, tc.status, w.Code, w.Body.String())
			}
		})
	}

	t.Run("Metrics Exposes Service Collectors", func(t *testing.T) {
		doRequest(t, h, http.MethodPost, "/flows/create", tok, nil)
		w := doRequest(t, h, http.MethodGet, "/metrics", "", nil)
		if !strings.Contains(w.Body.String(), "matchbot_flows_started_total") {
			t.Error("expected flow counter in /metrics output")
		}
		if !strings.Contains(w.Body.String(), "matchbot_active_sessions 1") {
			t.Error("expected active session gauge to read 1")
		}
	})
}
