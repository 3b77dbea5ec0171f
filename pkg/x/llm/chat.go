// Package llm is a thin wrapper over an OpenAI compatible chat completion
// endpoint.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaigo "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 75 * time.Second
	MaxRetries     = 3
)

// ErrEmptyReply is returned when the model answers with no text.
var ErrEmptyReply = errors.New("llm: empty reply")

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// HTTPClient defaults to a plain client with DefaultTimeout.
	HTTPClient *http.Client
}

type Client struct {
	api   openaigo.Client
	model string
}

func New(cfg Config) (*Client, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, fmt.Errorf("llm: api key is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}

	return &Client{
		api: openaigo.NewClient(
			option.WithBaseURL(baseURL),
			option.WithAPIKey(key),
			option.WithHTTPClient(hc),
			option.WithMaxRetries(MaxRetries),
			option.WithRequestTimeout(DefaultTimeout),
		),
		model: model,
	}, nil
}

func (c *Client) Model() string { return c.model }

// Complete sends one system prompt (optional) and one user prompt and returns
// the first choice's text.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	messages := make([]openaigo.ChatCompletionMessageParamUnion, 0, 2)
	if s := strings.TrimSpace(system); s != "" {
		messages = append(messages, openaigo.SystemMessage(s))
	}
	messages = append(messages, openaigo.UserMessage(strings.TrimSpace(prompt)))

	resp, err := c.api.Chat.Completions.New(ctx, openaigo.ChatCompletionNewParams{
		Model:    openaigo.ChatModel(c.model),
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}
	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}

// Chunk splits text into pieces of at most limit runes, preferring to cut at
// a newline and then at a space.
func Chunk(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if limit <= 0 {
		return []string{text}
	}
	var out []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		if i := lastIndex(runes[:limit], '\n'); i > limit/2 {
			cut = i + 1
		} else if i := lastIndex(runes[:limit], ' '); i > limit/2 {
			cut = i + 1
		}
		if piece := strings.TrimSpace(string(runes[:cut])); piece != "" {
			out = append(out, piece)
		}
		runes = runes[cut:]
	}
	if rest := strings.TrimSpace(string(runes)); rest != "" {
		out = append(out, rest)
	}
	return out
}

func lastIndex(rs []rune, r rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i] == r {
			return i
		}
	}
	return -1
}
