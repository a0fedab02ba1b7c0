package watcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestChannelInfoLive(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/channels/ada" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"livestream":{"id":42,"is_live":true,"session_title":"speedrun","game":{"name":"Tetris"}}}`))
	}))
	defer srv.Close()

	c := NewKickClientWithBaseURL(srv.URL)
	info, err := c.ChannelInfo(context.Background(), "ada")
	if err != nil {
		t.Fatalf("channel info: %v", err)
	}
	if !info.Live || info.ID != 42 || info.Title != "speedrun" || info.Game != "Tetris" {
		t.Errorf("info = %+v", info)
	}
}

func TestChannelInfoOffline(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"livestream":null}`))
	}))
	defer srv.Close()

	c := NewKickClientWithBaseURL(srv.URL)
	info, err := c.ChannelInfo(context.Background(), "ada")
	if err != nil {
		t.Fatalf("channel info: %v", err)
	}
	if info.Live {
		t.Errorf("info = %+v, want offline", info)
	}
}

func TestChannelInfoNon200CountsAsOffline(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewKickClientWithBaseURL(srv.URL)
	info, err := c.ChannelInfo(context.Background(), "ada")
	if err != nil {
		t.Fatalf("non-200 must not error: %v", err)
	}
	if info.Live {
		t.Errorf("info = %+v", info)
	}
}

func TestChannelInfoEscapesLogin(t *testing.T) {
	t.Parallel()

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewKickClientWithBaseURL(srv.URL)
	if _, err := c.ChannelInfo(context.Background(), "a/b"); err != nil {
		t.Fatalf("channel info: %v", err)
	}
	if gotPath != "/channels/a%2Fb" {
		t.Errorf("path = %q", gotPath)
	}
}
