package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"studybot/pkg/api"
)

// LoginBot exchanges a bot access token for a user JWT via /auth/bot.
func LoginBot(ctx context.Context, httpClient *http.Client, apiBase, accessToken string) (api.User, string, error) {
	body, err := json.Marshal(map[string]string{"accessToken": accessToken})
	if err != nil {
		return api.User{}, "", err
	}
	return postAuth(ctx, httpClient, apiBase, "/auth/bot", body)
}

// Refresh renews the JWT using the refresh cookie stored in httpClient's jar.
func Refresh(ctx context.Context, httpClient *http.Client, apiBase string) (api.User, string, error) {
	return postAuth(ctx, httpClient, apiBase, "/auth/refresh", []byte("{}"))
}

func postAuth(ctx context.Context, httpClient *http.Client, apiBase, path string, reqBody []byte) (api.User, string, error) {
	if httpClient == nil {
		return api.User{}, "", fmt.Errorf("httpClient is required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(apiBase, "/")+path, bytes.NewReader(reqBody))
	if err != nil {
		return api.User{}, "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return api.User{}, "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return api.User{}, "", &api.HTTPStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var parsed struct {
		User  api.User `json:"user"`
		Token string   `json:"token"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return api.User{}, "", fmt.Errorf("decode %s response: %w", path, err)
	}
	if strings.TrimSpace(parsed.User.ID) == "" || strings.TrimSpace(parsed.Token) == "" {
		return api.User{}, "", fmt.Errorf("invalid %s response: missing user/token", path)
	}
	return parsed.User, parsed.Token, nil
}
