// Package messages wraps the channel message endpoints. Every function takes
// an http.Client that already authenticates requests, typically
// auth.BotSession.HTTPClient().
package messages

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"studybot/pkg/api"
)

const maxResponseBytes = 2 * 1024 * 1024

// Send posts msg to channelID and returns the created message.
func Send(ctx context.Context, httpClient *http.Client, apiBase, channelID string, msg api.OutgoingMessage) (api.ChannelMessage, error) {
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return api.ChannelMessage{}, fmt.Errorf("channelID is required")
	}
	target := "/channels/" + url.PathEscape(channelID) + "/messages"
	return doMessage(ctx, httpClient, http.MethodPost, apiBase, target, msg)
}

// Edit replaces the content, payload and attachments of an existing message.
func Edit(ctx context.Context, httpClient *http.Client, apiBase, channelID, messageID string, msg api.OutgoingMessage) (api.ChannelMessage, error) {
	channelID = strings.TrimSpace(channelID)
	messageID = strings.TrimSpace(messageID)
	if channelID == "" || messageID == "" {
		return api.ChannelMessage{}, fmt.Errorf("channelID and messageID are required")
	}
	msg.ReferencedMessageID = ""
	target := "/channels/" + url.PathEscape(channelID) + "/messages/" + url.PathEscape(messageID)
	return doMessage(ctx, httpClient, http.MethodPatch, apiBase, target, msg)
}

// OpenDM opens (or reuses) the direct message channel between the bot and
// userID and returns its id.
func OpenDM(ctx context.Context, httpClient *http.Client, apiBase, userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", fmt.Errorf("userID is required")
	}
	body, err := doJSON(ctx, httpClient, http.MethodPost, apiBase, "/users/@me/channels", map[string]string{"recipientId": userID})
	if err != nil {
		return "", err
	}
	var ch struct {
		ID string `json:"_id"`
	}
	if err := json.Unmarshal(body, &ch); err != nil {
		return "", fmt.Errorf("decode dm channel: %w", err)
	}
	if strings.TrimSpace(ch.ID) == "" {
		return "", fmt.Errorf("dm channel response missing _id")
	}
	return ch.ID, nil
}

func doMessage(ctx context.Context, httpClient *http.Client, method, apiBase, path string, msg api.OutgoingMessage) (api.ChannelMessage, error) {
	body, err := doJSON(ctx, httpClient, method, apiBase, path, msg)
	if err != nil {
		return api.ChannelMessage{}, err
	}
	out, ok := api.ParseChannelMessage(body)
	if !ok || strings.TrimSpace(out.ID) == "" {
		return api.ChannelMessage{}, fmt.Errorf("invalid message response: %s", strings.TrimSpace(string(body)))
	}
	return out, nil
}

func doJSON(ctx context.Context, httpClient *http.Client, method, apiBase, path string, in any) ([]byte, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("httpClient is required")
	}
	apiBase = strings.TrimRight(strings.TrimSpace(apiBase), "/")
	if apiBase == "" {
		return nil, fmt.Errorf("apiBase is required")
	}
	b, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, apiBase+path, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &api.HTTPStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}
