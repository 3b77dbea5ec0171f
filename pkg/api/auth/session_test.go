package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func fakeJWT(exp time.Time) string {
	payload, _ := json.Marshal(map[string]any{"exp": exp.Unix()})
	return "h." + base64.RawURLEncoding.EncodeToString(payload) + ".sig"
}

func TestBotSession_LoginOnceAndAuthorize(t *testing.T) {
	var logins, refreshes atomic.Int32
	token := fakeJWT(time.Now().Add(time.Hour))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/bot":
			logins.Add(1)
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["accessToken"] != "bot-token" {
				http.Error(w, "bad token", http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"user": map[string]any{"_id": "bot1", "username": "studybot"}, "token": token})
		case "/auth/refresh":
			refreshes.Add(1)
			http.Error(w, "no cookie", http.StatusUnauthorized)
		case "/echo":
			_, _ = io.WriteString(w, r.Header.Get("Authorization"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	s := NewBotSession(srv.URL+"/", "bot-token", srv.Client())
	me, err := s.User(context.Background())
	if err != nil {
		t.Fatalf("User: %v", err)
	}
	if me.ID != "bot1" {
		t.Fatalf("me=%#v", me)
	}

	for i := 0; i < 3; i++ {
		resp, err := s.HTTPClient().Get(srv.URL + "/echo")
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if string(b) != "Bearer "+token {
			t.Fatalf("Authorization=%q", string(b))
		}
	}
	if logins.Load() != 1 || refreshes.Load() != 0 {
		t.Fatalf("logins=%d refreshes=%d", logins.Load(), refreshes.Load())
	}
}

func TestBotSession_RenewsNearExpiry(t *testing.T) {
	var logins atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/bot":
			n := logins.Add(1)
			exp := time.Now().Add(30 * time.Second)
			if n > 1 {
				exp = time.Now().Add(time.Hour)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"user": map[string]any{"_id": "bot1"}, "token": fakeJWT(exp)})
		case "/auth/refresh":
			http.Error(w, "expired", http.StatusUnauthorized)
		}
	}))
	t.Cleanup(srv.Close)

	s := NewBotSession(srv.URL, "bot-token", srv.Client())
	if _, err := s.Token(context.Background()); err != nil {
		t.Fatalf("Token: %v", err)
	}
	// the first token expires inside the leeway, so the next call logs in again
	if _, err := s.Token(context.Background()); err != nil {
		t.Fatalf("Token: %v", err)
	}
	if logins.Load() != 2 {
		t.Fatalf("logins=%d, want 2", logins.Load())
	}
}

func TestAuthTransport_ReauthAndReplayOn401(t *testing.T) {
	var n atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			http.Error(w, "stale", http.StatusUnauthorized)
			return
		}
		n.Add(1)
		_, _ = w.Write(b)
	}))
	t.Cleanup(srv.Close)

	sess := &stubSession{token: "stale"}
	c := &http.Client{Transport: NewAuthTransport(nil, sess)}
	resp, err := c.Post(srv.URL+"/channels/c1/messages", "application/json", strings.NewReader(`{"content":"hi"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(b) != `{"content":"hi"}` {
		t.Fatalf("status=%d body=%q", resp.StatusCode, string(b))
	}
	if sess.reauths != 1 || n.Load() != 1 {
		t.Fatalf("reauths=%d served=%d", sess.reauths, n.Load())
	}
}

type stubSession struct {
	token   string
	reauths int
}

func (s *stubSession) Token(context.Context) (string, error) {
	if s.token == "" {
		return "", fmt.Errorf("no token")
	}
	return s.token, nil
}

func (s *stubSession) Reauth(context.Context) error {
	s.reauths++
	s.token = "fresh"
	return nil
}
