package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestComplete(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			http.Error(w, "bad key", http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"m",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":" 42 "}}]}`))
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{APIKey: "sk-test", BaseURL: srv.URL, Model: "m"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	reply, err := c.Complete(context.Background(), "be brief", "meaning of life?")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reply != "42" {
		t.Fatalf("reply=%q", reply)
	}
	if got.Model != "m" || len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "meaning of life?" {
		t.Fatalf("request=%#v", got)
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`))
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{APIKey: "k", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Complete(context.Background(), "", "hi"); !errors.Is(err, ErrEmptyReply) {
		t.Fatalf("expected ErrEmptyReply, got %v", err)
	}
}

func TestNewRequiresKey(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error without api key")
	}
}

func TestChunk(t *testing.T) {
	if got := Chunk("  ", 10); got != nil {
		t.Fatalf("blank => nil, got %q", got)
	}
	if got := Chunk("short", 10); len(got) != 1 || got[0] != "short" {
		t.Fatalf("got %q", got)
	}

	text := strings.Repeat("word ", 1000)
	chunks := Chunk(text, 2000)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	total := 0
	for _, c := range chunks {
		if len([]rune(c)) > 2000 {
			t.Fatalf("chunk too long: %d", len([]rune(c)))
		}
		total += strings.Count(c, "word")
	}
	if total != 1000 {
		t.Fatalf("lost words: %d", total)
	}

	// no break characters: hard cut
	hard := Chunk(strings.Repeat("x", 25), 10)
	if len(hard) != 3 || hard[2] != "xxxxx" {
		t.Fatalf("hard cut=%q", hard)
	}
}
