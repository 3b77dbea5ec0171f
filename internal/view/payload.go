package view

import (
	"context"

	"studybot/internal/session"
)

type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is the card part of a rendered artifact. Image names an attachment of
// the same payload that should be shown inside the card.
type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []Field
	Image       string
}

type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Payload enumerates everything a render may produce.
type Payload struct {
	Content     string
	Embed       *Embed
	Elements    []Element
	Attachments []Attachment

	// Mentions lists user ids that may be pinged. Empty means no pings.
	Mentions []string
}

func (p Payload) clone() Payload {
	out := p
	if p.Embed != nil {
		e := *p.Embed
		if p.Embed.Fields != nil {
			e.Fields = append([]Field(nil), p.Embed.Fields...)
		}
		out.Embed = &e
	}
	out.Elements = cloneElements(p.Elements)
	if p.Attachments != nil {
		out.Attachments = append([]Attachment(nil), p.Attachments...)
	}
	if p.Mentions != nil {
		out.Mentions = append([]string(nil), p.Mentions...)
	}
	return out
}

// Delivery is the transport used to show artifacts to users.
type Delivery interface {
	Send(ctx context.Context, channelID, replyTo string, p Payload) (session.Handle, error)
	Edit(ctx context.Context, h session.Handle, p Payload) (session.Handle, error)
	// NotifyPrivate shows text to userID only.
	NotifyPrivate(ctx context.Context, userID, text string) error
}
