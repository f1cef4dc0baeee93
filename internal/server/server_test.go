package server

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/lyrx/internal/shared"
	"golang.org/x/oauth2"
)

func TestBasicRouter(t *testing.T) {
	t.Run("Method Filtering", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle("get", "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("pong"))
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
			t.Errorf("unexpected response %d %q", rec.Code, rec.Body.String())
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("Middleware Order", func(t *testing.T) {
		var order []string
		mw := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mw("first"), mw("second"))
		router.Handle(http.MethodGet, "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		if strings.Join(order, ",") != "first,second,handler" {
			t.Errorf("unexpected order %v", order)
		}
	})

	t.Run("Logging", func(t *testing.T) {
		var buf bytes.Buffer
		router := NewBasicRouter()
		router.Use(Logging(shared.NewLogger(&buf)))
		router.Handle(http.MethodGet, "/teapot", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/teapot?code=secret", nil))

		out := buf.String()
		if !strings.Contains(out, "/teapot") || !strings.Contains(out, "418") {
			t.Errorf("expected path and status in log, got %q", out)
		}
		if strings.Contains(out, "secret") {
			t.Errorf("query string should not be logged, got %q", out)
		}
	})
}

func newTokenServer(t *testing.T, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"access","refresh_token":"refresh","token_type":"Bearer","expires_in":3600}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func testOAuthConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:    "client",
		RedirectURL: "http://127.0.0.1:3000/cb",
		Endpoint:    oauth2.Endpoint{AuthURL: "http://example.invalid/auth", TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams},
	}
}

func receive(t *testing.T, h *OAuthHandler) OAuthResult {
	t.Helper()
	select {
	case res := <-h.Result():
		return res
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for OAuth result")
		return OAuthResult{}
	}
}

func TestOAuthHandler(t *testing.T) {
	t.Run("Routes Follow Redirect URL", func(t *testing.T) {
		h := NewOAuthHandler(testOAuthConfig(""), "state")
		if routes := h.Routes(); len(routes) != 1 || routes[0] != "/cb" {
			t.Errorf("unexpected routes %v", routes)
		}

		h = NewOAuthHandler(&oauth2.Config{RedirectURL: "http://127.0.0.1:3000"}, "state")
		if routes := h.Routes(); routes[0] != "/callback" {
			t.Errorf("expected default route, got %v", routes)
		}
	})

	t.Run("Successful Exchange With Verifier", func(t *testing.T) {
		tokens := newTokenServer(t, func(r *http.Request) {
			if r.Form.Get("code") != "abc" {
				t.Errorf("unexpected code %q", r.Form.Get("code"))
			}
			if r.Form.Get("code_verifier") != "verifier" {
				t.Errorf("expected code_verifier, got %q", r.Form.Get("code_verifier"))
			}
		})

		h := NewOAuthHandler(testOAuthConfig(tokens.URL), "state", oauth2.VerifierOption("verifier"))
		router := NewBasicRouter()
		router.Handler(h)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cb?state=state&code=abc", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		res := receive(t, h)
		if res.Error() != nil {
			t.Fatalf("expected no error, got %v", res.Error())
		}
		if res.Token.AccessToken != "access" || res.Token.RefreshToken != "refresh" {
			t.Errorf("unexpected token %+v", res.Token)
		}
	})

	t.Run("Invalid State", func(t *testing.T) {
		h := NewOAuthHandler(testOAuthConfig(""), "state")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cb?state=other&code=abc", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if res := receive(t, h); !errors.Is(res.Error(), shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", res.Error())
		}
	})

	t.Run("Denied By User", func(t *testing.T) {
		h := NewOAuthHandler(testOAuthConfig(""), "state")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cb?state=state&error=access_denied", nil))
		res := receive(t, h)
		if !errors.Is(res.Error(), shared.ErrAuthFailed) || !strings.Contains(res.Error().Error(), "access_denied") {
			t.Errorf("expected access_denied failure, got %v", res.Error())
		}
	})

	t.Run("Only Handles One Callback", func(t *testing.T) {
		tokens := newTokenServer(t, nil)
		h := NewOAuthHandler(testOAuthConfig(tokens.URL), "state")

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/cb?state=state&code=abc", nil))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cb?state=state&code=abc", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected replay to be rejected, got %d", rec.Code)
		}

		receive(t, h)
		if _, open := <-h.Result(); open {
			t.Error("expected result channel to be closed after one result")
		}
	})
}
