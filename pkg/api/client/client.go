package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"studybot/pkg/api"
	"studybot/pkg/api/auth"
	"studybot/pkg/api/messages"
	"studybot/pkg/x/httpx"
)

type Options struct {
	APIBase     string
	AccessToken string
	// Proxy follows httpx.ApplyProxy; empty connects directly.
	Proxy   string
	Timeout time.Duration
}

// Client bundles the authenticated bot session with the message endpoints
// the bot uses.
type Client struct {
	apiBase string
	session *auth.BotSession

	dmMu sync.Mutex
	dms  map[string]string // user id -> DM channel id
}

func New(opts Options) (*Client, error) {
	apiBase := strings.TrimRight(strings.TrimSpace(opts.APIBase), "/")
	if apiBase == "" {
		return nil, fmt.Errorf("apiBase is required")
	}
	if strings.TrimSpace(opts.AccessToken) == "" {
		return nil, fmt.Errorf("accessToken is required")
	}
	hc, err := httpx.NewClient(httpx.ClientOptions{Timeout: opts.Timeout, Proxy: opts.Proxy, CookieJar: true})
	if err != nil {
		return nil, fmt.Errorf("invalid proxy: %w", err)
	}
	return &Client{
		apiBase: apiBase,
		session: auth.NewBotSession(apiBase, opts.AccessToken, hc),
		dms:     map[string]string{},
	}, nil
}

func (c *Client) APIBase() string { return c.apiBase }

func (c *Client) Session() *auth.BotSession { return c.session }

func (c *Client) HTTPClient() *http.Client { return c.session.HTTPClient() }

func (c *Client) Me(ctx context.Context) (api.User, error) { return c.session.User(ctx) }

func (c *Client) Send(ctx context.Context, channelID string, msg api.OutgoingMessage) (api.ChannelMessage, error) {
	return messages.Send(ctx, c.HTTPClient(), c.apiBase, channelID, msg)
}

func (c *Client) Edit(ctx context.Context, channelID, messageID string, msg api.OutgoingMessage) (api.ChannelMessage, error) {
	return messages.Edit(ctx, c.HTTPClient(), c.apiBase, channelID, messageID, msg)
}

func (c *Client) Upload(ctx context.Context, channelID, filename, contentType string, data []byte) (api.AttachmentRef, error) {
	return messages.UploadBytes(ctx, c.HTTPClient(), c.apiBase, channelID, filename, contentType, data)
}

func (c *Client) Download(ctx context.Context, att api.AttachmentRef, limit int64) ([]byte, error) {
	return messages.Download(ctx, c.HTTPClient(), c.apiBase, att, limit)
}

// DMChannel returns the direct message channel with userID, opening it on
// first use.
func (c *Client) DMChannel(ctx context.Context, userID string) (string, error) {
	c.dmMu.Lock()
	id, ok := c.dms[userID]
	c.dmMu.Unlock()
	if ok {
		return id, nil
	}
	id, err := messages.OpenDM(ctx, c.HTTPClient(), c.apiBase, userID)
	if err != nil {
		return "", err
	}
	c.dmMu.Lock()
	c.dms[userID] = id
	c.dmMu.Unlock()
	return id, nil
}
