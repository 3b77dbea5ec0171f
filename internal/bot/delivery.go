package bot

import (
	"context"
	"fmt"
	"strings"

	"studybot/internal/alert"
	"studybot/internal/errs"
	"studybot/internal/session"
	"studybot/internal/view"
	"studybot/pkg/api"
)

// Transport is the subset of the Mew client used to show messages.
type Transport interface {
	Send(ctx context.Context, channelID string, msg api.OutgoingMessage) (api.ChannelMessage, error)
	Edit(ctx context.Context, channelID, messageID string, msg api.OutgoingMessage) (api.ChannelMessage, error)
	Upload(ctx context.Context, channelID, filename, contentType string, data []byte) (api.AttachmentRef, error)
	DMChannel(ctx context.Context, userID string) (string, error)
}

// Delivery renders view payloads as Mew messages. It also delivers time
// table alerts to the fixed alert channel.
type Delivery struct {
	t              Transport
	alertChannelID string
}

func NewDelivery(t Transport, alertChannelID string) *Delivery {
	return &Delivery{t: t, alertChannelID: strings.TrimSpace(alertChannelID)}
}

func (d *Delivery) Send(ctx context.Context, channelID, replyTo string, p view.Payload) (session.Handle, error) {
	msg, err := d.outgoing(ctx, channelID, p)
	if err != nil {
		return session.Handle{}, err
	}
	msg.ReferencedMessageID = strings.TrimSpace(replyTo)
	sent, err := d.t.Send(ctx, channelID, msg)
	if err != nil {
		return session.Handle{}, errs.Delivery("send", err)
	}
	return handleOf(sent, channelID), nil
}

func (d *Delivery) Edit(ctx context.Context, h session.Handle, p view.Payload) (session.Handle, error) {
	msg, err := d.outgoing(ctx, h.ChannelID, p)
	if err != nil {
		return session.Handle{}, err
	}
	edited, err := d.t.Edit(ctx, h.ChannelID, h.MessageID, msg)
	if err != nil {
		return session.Handle{}, errs.Delivery("edit", err)
	}
	out := handleOf(edited, h.ChannelID)
	if out.MessageID == "" {
		out.MessageID = h.MessageID
	}
	return out, nil
}

// NotifyPrivate sends text to the user's direct message channel.
func (d *Delivery) NotifyPrivate(ctx context.Context, userID, text string) error {
	channelID, err := d.t.DMChannel(ctx, userID)
	if err != nil {
		return errs.Delivery("open dm", err)
	}
	if _, err := d.t.Send(ctx, channelID, api.OutgoingMessage{
		Content:         text,
		AllowedMentions: &api.AllowedMentions{Users: []string{}},
	}); err != nil {
		return errs.Delivery("send dm", err)
	}
	return nil
}

// DeliverAlert posts a reminder to the alert channel, pinging its owner.
func (d *Delivery) DeliverAlert(ctx context.Context, a alert.Alert) error {
	if d.alertChannelID == "" {
		return errs.Delivery("alert", fmt.Errorf("alert channel is not configured"))
	}
	_, err := d.Send(ctx, d.alertChannelID, "", alertPayload(a))
	if err != nil {
		return errs.Delivery("alert", err)
	}
	return nil
}

func alertPayload(a alert.Alert) view.Payload {
	return view.Payload{
		Content: fmt.Sprintf("<@%s> you have a time table alert!", a.OwnerID),
		Embed: &view.Embed{
			Title:       "Reminder: " + a.Title,
			Description: a.Body,
			Color:       alertColor,
			Fields: []view.Field{
				{Name: "Time", Value: alert.FormatTime(a.Time)},
				{Name: "Duration", Value: fmt.Sprintf("%d minutes", a.DurationMinutes)},
				{Name: "ID", Value: a.ID},
			},
		},
		Mentions: []string{a.OwnerID},
	}
}

// outgoing uploads p's attachments to channelID and builds the message body.
func (d *Delivery) outgoing(ctx context.Context, channelID string, p view.Payload) (api.OutgoingMessage, error) {
	msg := api.OutgoingMessage{
		Content:         p.Content,
		AllowedMentions: &api.AllowedMentions{Users: append([]string{}, p.Mentions...)},
	}

	keys := map[string]string{}
	for _, a := range p.Attachments {
		ref, err := d.t.Upload(ctx, channelID, a.Filename, a.ContentType, a.Data)
		if err != nil {
			return api.OutgoingMessage{}, errs.Delivery("upload "+a.Filename, err)
		}
		keys[a.Filename] = ref.Key
		msg.Attachments = append(msg.Attachments, ref)
	}

	var payload api.MessagePayload
	if p.Embed != nil {
		e := &api.Embed{
			Title:       p.Embed.Title,
			Description: p.Embed.Description,
			Color:       p.Embed.Color,
			ImageKey:    keys[p.Embed.Image],
		}
		for _, f := range p.Embed.Fields {
			e.Fields = append(e.Fields, api.EmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
		payload.Embed = e
	}
	for _, el := range p.Elements {
		payload.Components = append(payload.Components, component(el))
	}
	if payload.Embed != nil || len(payload.Components) > 0 {
		msg.Payload = &payload
	}
	return msg, nil
}

func component(el view.Element) api.Component {
	c := api.Component{CustomID: el.ID, Disabled: el.Disabled}
	switch el.Kind {
	case view.KindDropdown:
		c.Type = api.ComponentSelect
		c.Placeholder = el.Placeholder
		for _, o := range el.Options {
			c.Options = append(c.Options, api.SelectOption{Value: o.Value, Label: o.Label})
		}
	default:
		c.Type = api.ComponentButton
		c.Label = el.Label
	}
	return c
}

func handleOf(m api.ChannelMessage, channelID string) session.Handle {
	ch := strings.TrimSpace(m.ChannelID)
	if ch == "" {
		ch = channelID
	}
	return session.Handle{ChannelID: ch, MessageID: m.ID}
}
