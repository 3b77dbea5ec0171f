package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Gateway events consumed by the bot.
const (
	EventMessageCreate      = "MESSAGE_CREATE"
	EventMessageInteraction = "MESSAGE_INTERACTION"
)

// Component types understood by the message renderer.
const (
	ComponentButton = "button"
	ComponentSelect = "select"
)

type User struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	IsBot    bool   `json:"isBot"`
}

type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "http status error"
	}
	return fmt.Sprintf("status=%d body=%s", e.StatusCode, e.Body)
}

type AttachmentRef struct {
	ChannelID string `json:"-"`

	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	URL         string `json:"url,omitempty"`
}

type ChannelMessage struct {
	ID        string `json:"_id"`
	ChannelID string `json:"channelId"`
	Type      string `json:"type"`
	Content   string `json:"content"`

	Payload     json.RawMessage `json:"payload,omitempty"`
	Attachments []AttachmentRef `json:"attachments"`

	// Mentions may hold plain ids or populated user objects.
	MentionsRaw []json.RawMessage `json:"mentions"`

	ReferencedMessageID string          `json:"referencedMessageId,omitempty"`
	EditedAt            *time.Time      `json:"editedAt,omitempty"`
	CreatedAt           time.Time       `json:"createdAt"`
	AuthorRaw           json.RawMessage `json:"authorId"`
}

func (m ChannelMessage) AuthorID() string { return AuthorID(m.AuthorRaw) }

func (m ChannelMessage) AuthorUsername() string { return AuthorUsername(m.AuthorRaw) }

func (m ChannelMessage) MentionIDs() []string { return MentionIDs(m.MentionsRaw) }

// Interaction is the payload of a MESSAGE_INTERACTION event, sent when a user
// clicks a button or picks dropdown values on a bot message.
type Interaction struct {
	MessageID string   `json:"messageId"`
	ChannelID string   `json:"channelId"`
	UserID    string   `json:"userId"`
	CustomID  string   `json:"customId"`
	Values    []string `json:"values,omitempty"`
}

type SelectOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type Component struct {
	Type        string         `json:"type"`
	CustomID    string         `json:"customId"`
	Label       string         `json:"label,omitempty"`
	Placeholder string         `json:"placeholder,omitempty"`
	Options     []SelectOption `json:"options,omitempty"`
	Disabled    bool           `json:"disabled,omitempty"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	// ImageKey references an attachment of the same message by upload key.
	ImageKey string `json:"imageKey,omitempty"`
}

type MessagePayload struct {
	Embed      *Embed      `json:"embed,omitempty"`
	Components []Component `json:"components,omitempty"`
}

type AllowedMentions struct {
	Users []string `json:"users"`
}

// OutgoingMessage is the body of a message create or edit request.
type OutgoingMessage struct {
	Content             string           `json:"content"`
	Payload             *MessagePayload  `json:"payload,omitempty"`
	Attachments         []AttachmentRef  `json:"attachments,omitempty"`
	ReferencedMessageID string           `json:"referencedMessageId,omitempty"`
	AllowedMentions     *AllowedMentions `json:"allowedMentions,omitempty"`
}

func ParseChannelMessage(payload json.RawMessage) (ChannelMessage, bool) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return ChannelMessage{}, false
	}
	var msg ChannelMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return ChannelMessage{}, false
	}
	for i := range msg.Attachments {
		msg.Attachments[i].ChannelID = msg.ChannelID
	}
	return msg, true
}

func ParseInteraction(payload json.RawMessage) (Interaction, bool) {
	var in Interaction
	if err := json.Unmarshal(bytes.TrimSpace(payload), &in); err != nil {
		return Interaction{}, false
	}
	if strings.TrimSpace(in.MessageID) == "" || strings.TrimSpace(in.UserID) == "" || strings.TrimSpace(in.CustomID) == "" {
		return Interaction{}, false
	}
	return in, true
}

func AuthorID(authorRaw json.RawMessage) string {
	raw := bytes.TrimSpace(authorRaw)
	if len(raw) == 0 {
		return ""
	}
	if raw[0] == '"' {
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			return ""
		}
		return strings.TrimSpace(id)
	}
	if raw[0] != '{' {
		return ""
	}
	var author struct {
		ID string `json:"_id"`
	}
	if err := json.Unmarshal(raw, &author); err != nil {
		return ""
	}
	return strings.TrimSpace(author.ID)
}

func AuthorUsername(authorRaw json.RawMessage) string {
	raw := bytes.TrimSpace(authorRaw)
	if len(raw) == 0 || raw[0] != '{' {
		return ""
	}
	var author struct {
		Username string `json:"username"`
	}
	if err := json.Unmarshal(raw, &author); err != nil {
		return ""
	}
	return strings.TrimSpace(author.Username)
}

func MentionIDs(mentionsRaw []json.RawMessage) []string {
	if len(mentionsRaw) == 0 {
		return nil
	}
	out := make([]string, 0, len(mentionsRaw))
	for _, m := range mentionsRaw {
		if id := AuthorID(m); id != "" {
			out = append(out, id)
		}
	}
	return out
}
