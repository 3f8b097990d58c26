package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/shffl/internal/shared"
)

func TestCallbackHandler(t *testing.T) {
	fixed := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	newHandler := func() *CallbackHandler {
		h := NewCallbackHandler("state-123")
		h.now = func() time.Time { return fixed }
		return h
	}

	t.Run("valid callback delivers the token", func(t *testing.T) {
		h := newHandler()
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=state-123&token=abc&expires_in=3600", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Logged in") {
			t.Error("expected success page")
		}

		result := <-h.Result()
		if result.Error() != nil {
			t.Fatalf("unexpected error: %v", result.Error())
		}
		if result.Token.AccessToken != "abc" || result.Token.TokenType != "Bearer" {
			t.Errorf("unexpected token %+v", result.Token)
		}
		if !result.Token.Expiry.Equal(fixed.Add(time.Hour)) {
			t.Errorf("unexpected expiry %v", result.Token.Expiry)
		}
	})

	tc := []struct {
		name  string
		query string
	}{
		{name: "wrong state", query: "state=nope&token=abc"},
		{name: "backend error", query: "state=state-123&error=access_denied&error_description=cancelled"},
		{name: "missing token", query: "state=state-123"},
		{name: "bad expiry", query: "state=state-123&token=abc&expires_in=soon"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			h := newHandler()
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?"+tt.query, nil))

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
			result := <-h.Result()
			if !errors.Is(result.Error(), shared.ErrAuthFailed) {
				t.Errorf("expected ErrAuthFailed, got %v", result.Error())
			}
		})
	}

	t.Run("only the first callback is processed", func(t *testing.T) {
		h := newHandler()
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=state-123&token=abc", nil))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=state-123&token=evil", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected replay to be rejected, got %d", rec.Code)
		}
		if result := <-h.Result(); result.Token.AccessToken != "abc" {
			t.Errorf("expected first token, got %s", result.Token.AccessToken)
		}
		if _, ok := <-h.Result(); ok {
			t.Error("expected channel closed after one result")
		}
	})
}

func TestBasicRouter(t *testing.T) {
	t.Run("middleware runs in registration order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		r := NewBasicRouter()
		r.Use(mark("first"), mark("second"))
		r.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

		if strings.Join(order, ",") != "first,second,handler" {
			t.Errorf("unexpected order %v", order)
		}
	})

	t.Run("other methods are rejected", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handler(NewCallbackHandler("s"))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, CallbackPath, nil))

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("request logger omits the query", func(t *testing.T) {
		var buf bytes.Buffer
		logger := shared.NewLogger(&buf)
		shared.SetLogLevel(logger, log.DebugLevel)

		r := NewBasicRouter()
		r.Use(RequestLogger(logger))
		r.Handler(NewCallbackHandler("s"))

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=s&token=secret", nil))

		if !strings.Contains(buf.String(), "/callback") {
			t.Errorf("expected the path to be logged, got %q", buf.String())
		}
		if strings.Contains(buf.String(), "secret") {
			t.Errorf("token leaked into logs: %s", buf.String())
		}
	})
}

func TestListen(t *testing.T) {
	h := NewCallbackHandler("s")
	r := NewBasicRouter()
	r.Handler(h)

	l, err := Listen("127.0.0.1:0", r)
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	resp, err := http.Get("http://" + l.Addr() + "/callback?state=s&token=tok")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	select {
	case result := <-h.Result():
		if result.Token == nil || result.Token.AccessToken != "tok" {
			t.Errorf("unexpected result %+v", result)
		}
	case <-time.After(time.Second):
		t.Fatal("no callback result")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := l.Shutdown(ctx); err != nil {
		t.Errorf("shutdown failed: %v", err)
	}
}
