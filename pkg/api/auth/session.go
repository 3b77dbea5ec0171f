package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"studybot/pkg/api"
)

// refreshLeeway is how long before JWT expiry the session proactively
// refreshes.
const refreshLeeway = 2 * time.Minute

// BotSession holds the bot's JWT and renews it on demand. HTTPClient returns
// a client that authenticates every request with the current token.
type BotSession struct {
	apiBase     string
	accessToken string
	baseClient  *http.Client
	authed      *http.Client

	mu    sync.RWMutex
	me    api.User
	token string

	now func() time.Time
}

func NewBotSession(apiBase, accessToken string, httpClient *http.Client) *BotSession {
	s := &BotSession{
		apiBase:     strings.TrimRight(strings.TrimSpace(apiBase), "/"),
		accessToken: strings.TrimSpace(accessToken),
		baseClient:  httpClient,
		now:         time.Now,
	}
	if httpClient != nil {
		s.authed = &http.Client{
			Transport: NewAuthTransport(httpClient.Transport, s),
			Jar:       httpClient.Jar,
			Timeout:   httpClient.Timeout,
		}
	}
	return s
}

func (s *BotSession) HTTPClient() *http.Client { return s.authed }

func (s *BotSession) APIBase() string { return s.apiBase }

func (s *BotSession) Me() api.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.me
}

// User logs in if needed and returns the bot's own user.
func (s *BotSession) User(ctx context.Context) (api.User, error) {
	if _, err := s.Token(ctx); err != nil {
		return api.User{}, err
	}
	return s.Me(), nil
}

func (s *BotSession) Login(ctx context.Context) error {
	me, tok, err := LoginBot(ctx, s.baseClient, s.apiBase, s.accessToken)
	if err != nil {
		return err
	}
	s.set(me, tok)
	return nil
}

func (s *BotSession) Refresh(ctx context.Context) error {
	me, tok, err := Refresh(ctx, s.baseClient, s.apiBase)
	if err != nil {
		return err
	}
	s.set(me, tok)
	return nil
}

// Reauth prefers the refresh cookie and falls back to a fresh bot login.
func (s *BotSession) Reauth(ctx context.Context) error {
	if err := s.Refresh(ctx); err == nil {
		return nil
	}
	return s.Login(ctx)
}

func (s *BotSession) Token(ctx context.Context) (string, error) {
	if s.baseClient == nil {
		return "", fmt.Errorf("httpClient is required")
	}
	if s.apiBase == "" {
		return "", fmt.Errorf("apiBase is required")
	}
	if s.accessToken == "" {
		return "", fmt.Errorf("accessToken is required")
	}

	token := s.current()
	if token == "" {
		if err := s.Login(ctx); err != nil {
			return "", err
		}
		return s.current(), nil
	}

	if exp, ok := jwtExpiry(token); ok && exp.Before(s.now().Add(refreshLeeway)) {
		if err := s.Reauth(ctx); err != nil {
			return "", err
		}
	}
	return s.current(), nil
}

func (s *BotSession) current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *BotSession) set(me api.User, token string) {
	s.mu.Lock()
	s.me = me
	s.token = token
	s.mu.Unlock()
}

func jwtExpiry(jwt string) (time.Time, bool) {
	parts := strings.Split(jwt, ".")
	if len(parts) < 2 {
		return time.Time{}, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return time.Time{}, false
	}
	var parsed struct {
		Exp json.Number `json:"exp"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return time.Time{}, false
	}
	secs, err := parsed.Exp.Int64()
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(secs, 0), true
}
