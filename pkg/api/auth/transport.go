package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type Session interface {
	Token(ctx context.Context) (string, error)
	Reauth(ctx context.Context) error
}

// authTransport attaches the session's bearer token and, on a 401, reauths
// once and replays the request when its body can be replayed.
type authTransport struct {
	base    http.RoundTripper
	session Session
}

func NewAuthTransport(base http.RoundTripper, session Session) http.RoundTripper {
	return &authTransport{base: base, session: session}
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("request is nil")
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	if t.session == nil || isAuthEndpoint(req) || strings.TrimSpace(req.Header.Get("Authorization")) != "" {
		return base.RoundTrip(req)
	}

	first, err := t.withToken(req, req.Body)
	if err != nil {
		return nil, err
	}
	resp, err := base.RoundTrip(first)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	body, ok := replayBody(req)
	if !ok {
		return resp, nil
	}
	if err := t.session.Reauth(req.Context()); err != nil {
		return resp, nil
	}
	retry, err := t.withToken(req, body)
	if err != nil {
		return resp, nil
	}
	_ = drainAndClose(resp.Body)
	return base.RoundTrip(retry)
}

func (t *authTransport) withToken(req *http.Request, body io.ReadCloser) (*http.Request, error) {
	token, err := t.session.Token(req.Context())
	if err != nil {
		return nil, err
	}
	out := req.Clone(req.Context())
	out.Body = body
	if out.Header == nil {
		out.Header = make(http.Header)
	}
	out.Header.Set("Authorization", "Bearer "+token)
	return out, nil
}

func isAuthEndpoint(req *http.Request) bool {
	return req.URL != nil && strings.Contains(req.URL.Path, "/auth/")
}

func replayBody(req *http.Request) (io.ReadCloser, bool) {
	if req.Body == nil || req.Body == http.NoBody {
		return req.Body, true
	}
	if req.GetBody == nil {
		return nil, false
	}
	rc, err := req.GetBody()
	if err != nil {
		return nil, false
	}
	return rc, true
}

func drainAndClose(rc io.ReadCloser) error {
	if rc == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 64*1024))
	return rc.Close()
}
