package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/desertthunder/shffl/internal/shared"
	"golang.org/x/oauth2"
)

func TestSessionToken(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if _, err := NewSessionToken(nil).Token(); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		s := NewSessionToken(&oauth2.Token{AccessToken: "old", Expiry: time.Now().Add(-time.Hour)})
		if _, err := s.Token(); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("set and clear", func(t *testing.T) {
		s := NewSessionToken(nil)
		s.Set(&oauth2.Token{AccessToken: "abc"})

		tok, err := s.Token()
		if err != nil || tok.AccessToken != "abc" {
			t.Fatalf("expected abc, got %v (%v)", tok, err)
		}

		s.Set(nil)
		if _, err := s.Token(); err == nil {
			t.Error("expected cleared token")
		}
	})
}

func TestSessionHTTPClient(t *testing.T) {
	var got []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("Authorization"))
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	source := NewSessionToken(nil)
	c := NewClient(server.URL, NewSessionHTTPClient(source, server.Client().Transport))

	if _, err := c.Get(context.Background(), "/user"); err != nil {
		t.Fatalf("unauthenticated request should still be sent: %v", err)
	}

	source.Set(&oauth2.Token{AccessToken: "secret", TokenType: "Bearer"})
	if _, err := c.Get(context.Background(), "/user"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 2 || got[0] != "" || got[1] != "Bearer secret" {
		t.Errorf("unexpected authorization headers %q", got)
	}
}
