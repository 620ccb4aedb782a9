package content_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/mrsingh-rishi/voice-diary/content"
)

func TestFetcher_Fetch(t *testing.T) {
	var gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "audio/x-m4a")
		w.Write([]byte("fake-m4a"))
	}))
	defer server.Close()

	f := content.NewFetcher("token-abc", server.URL, server.Client())

	body, err := f.Fetch(context.Background(), "123")
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if string(body) != "fake-m4a" {
		t.Errorf("body: got %q", body)
	}
	if gotPath != "/v2/bot/message/123/content" {
		t.Errorf("path: got %s", gotPath)
	}
	if gotAuth != "Bearer token-abc" {
		t.Errorf("Authorization: got %s", gotAuth)
	}
}

func TestFetcher_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	f := content.NewFetcher("token-abc", server.URL, server.Client())

	_, err := f.Fetch(context.Background(), "missing")
	if !errors.Is(err, content.ErrContentUnavailable) {
		t.Fatalf("expected ErrContentUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "status 404") {
		t.Errorf("error should carry the status: %v", err)
	}
}

func TestFetcher_EmptyMessageID(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	f := content.NewFetcher("token-abc", server.URL, server.Client())

	if _, err := f.Fetch(context.Background(), ""); !errors.Is(err, content.ErrEmptyMessageID) {
		t.Fatalf("expected ErrEmptyMessageID, got %v", err)
	}
	if called {
		t.Error("no request should be sent for an empty id")
	}
}
