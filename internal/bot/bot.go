// Package bot turns Mew gateway events into study tracker commands and view
// activations.
package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"studybot/internal/errs"
	"studybot/internal/session"
	"studybot/internal/store"
	"studybot/internal/view"
	"studybot/pkg/api"
	"studybot/pkg/api/gateway/socketio"
	"studybot/pkg/state"
	"studybot/pkg/x/syncx"
)

// Downloader fetches the bytes of an inbound attachment.
type Downloader interface {
	Download(ctx context.Context, att api.AttachmentRef, limit int64) ([]byte, error)
}

// Completer answers a free-form prompt.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// AIChannels is the persisted set of channels with AI auto replies on.
type AIChannels struct {
	Enabled map[string]bool `json:"enabled"`
}

type Options struct {
	Store    *store.Store
	Delivery view.Delivery
	Engine   *view.Engine
	Files    Downloader

	// AI is optional; AI commands answer with a notice when it is nil.
	AI      Completer
	AIState *state.Doc[AIChannels]

	Prefix   string
	Location *time.Location
	Now      func() time.Time

	PingDelay time.Duration
}

type Bot struct {
	store    *store.Store
	delivery view.Delivery
	engine   *view.Engine
	files    Downloader
	ai       Completer
	aiState  *state.Doc[AIChannels]

	prefix    string
	loc       *time.Location
	now       func() time.Time
	pingDelay time.Duration

	commands map[string]*command
	order    []*command

	selfMu sync.RWMutex
	selfID string

	// current task per (user, channel)
	taskMu  sync.Mutex
	current map[string]int64

	group *syncx.Group
}

func New(opts Options) (*Bot, error) {
	if opts.Store == nil || opts.Delivery == nil || opts.Engine == nil {
		return nil, fmt.Errorf("bot requires a store, a delivery and a view engine")
	}
	b := &Bot{
		store:     opts.Store,
		delivery:  opts.Delivery,
		engine:    opts.Engine,
		files:     opts.Files,
		ai:        opts.AI,
		aiState:   opts.AIState,
		prefix:    strings.TrimSpace(opts.Prefix),
		loc:       opts.Location,
		now:       opts.Now,
		pingDelay: opts.PingDelay,
		current:   map[string]int64{},
		group:     syncx.NewGroup(context.Background(), logPrefix),
	}
	if b.prefix == "" {
		b.prefix = defaultPrefix
	}
	if b.loc == nil {
		b.loc = time.Local
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.pingDelay <= 0 {
		b.pingDelay = defaultPingDelay
	}
	b.registerCommands()
	return b, nil
}

// SetSelfID records the bot's own user id so its messages are ignored.
func (b *Bot) SetSelfID(id string) {
	b.selfMu.Lock()
	b.selfID = strings.TrimSpace(id)
	b.selfMu.Unlock()
}

func (b *Bot) isSelf(userID string) bool {
	b.selfMu.RLock()
	defer b.selfMu.RUnlock()
	return b.selfID != "" && userID == b.selfID
}

// InFlight returns the number of events still being handled.
func (b *Bot) InFlight() int64 { return b.group.Running() }

// Close cancels in-flight handlers and waits for them.
func (b *Bot) Close() { b.group.Stop() }

// HandleEvent is the gateway event handler. Every event runs in its own
// goroutine so a slow command never blocks the socket.
func (b *Bot) HandleEvent(_ context.Context, eventName string, payload json.RawMessage, _ socketio.EmitFunc) error {
	switch eventName {
	case api.EventMessageCreate:
		msg, ok := api.ParseChannelMessage(payload)
		if !ok {
			return nil
		}
		b.group.Go(func(ctx context.Context) {
			ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
			defer cancel()
			if err := b.HandleMessage(ctx, msg); err != nil {
				log.Printf("%s command failed channel=%s msg=%s: %v", logPrefix, msg.ChannelID, msg.ID, err)
			}
		})
	case api.EventMessageInteraction:
		in, ok := api.ParseInteraction(payload)
		if !ok {
			return nil
		}
		b.group.Go(func(ctx context.Context) {
			ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
			defer cancel()
			if err := b.HandleInteraction(ctx, in); err != nil {
				log.Printf("%s interaction failed msg=%s user=%s element=%s: %v", logPrefix, in.MessageID, in.UserID, in.CustomID, err)
			}
		})
	}
	return nil
}

// HandleMessage runs the command in msg, if any. Every failure produces
// exactly one reply to the invoker; the error is returned for logging.
func (b *Bot) HandleMessage(ctx context.Context, msg api.ChannelMessage) error {
	if strings.TrimSpace(msg.ID) == "" || strings.TrimSpace(msg.ChannelID) == "" {
		return nil
	}
	userID := msg.AuthorID()
	if userID == "" || b.isSelf(userID) {
		return nil
	}

	name, args, ok := parseCommand(msg.Content, b.prefix)
	if !ok {
		return b.autoReply(ctx, msg, userID)
	}
	cmd, ok := b.commands[name]
	if !ok {
		log.Printf("%s unknown command %q from user=%s", logPrefix, name, userID)
		return nil
	}

	r := &request{
		msg:     msg,
		userID:  userID,
		args:    args,
		session: newChainSession(msg, userID),
	}
	log.Printf("%s command=%s user=%s channel=%s", logPrefix, cmd.name, userID, msg.ChannelID)

	if cmd.registered {
		exists, err := b.store.UserExists(ctx, userID)
		if err != nil {
			b.fail(ctx, r, err)
			return err
		}
		if !exists {
			return b.reply(ctx, r, view.Payload{Content: msgRegisterFirst, Mentions: []string{userID}})
		}
	}

	if err := cmd.run(ctx, r); err != nil {
		b.fail(ctx, r, err)
		return err
	}
	return nil
}

// HandleInteraction forwards an element activation to the view engine.
func (b *Bot) HandleInteraction(ctx context.Context, in api.Interaction) error {
	err := b.engine.Dispatch(ctx, view.Activation{
		MessageID: in.MessageID,
		ActorID:   in.UserID,
		ElementID: in.CustomID,
		Values:    in.Values,
	})
	if errors.Is(err, view.ErrClosed) {
		return nil
	}
	return err
}

func (b *Bot) fail(ctx context.Context, r *request, err error) {
	text := errs.UserMessage(err)
	if errors.Is(err, errs.ErrDelivery) {
		log.Printf("%s delivery failed for command user=%s: %v", logPrefix, r.userID, err)
	}
	if rerr := b.reply(ctx, r, view.Payload{Content: text, Mentions: []string{r.userID}}); rerr != nil {
		log.Printf("%s failed to report error to user=%s: %v", logPrefix, r.userID, rerr)
	}
}

// parseCommand splits "<prefix><name> <args>" into its parts. Arguments keep
// their line breaks.
func parseCommand(content, prefix string) (name, args string, ok bool) {
	s := strings.TrimLeft(content, " \t\r\n")
	if prefix == "" || !strings.HasPrefix(s, prefix) {
		return "", "", false
	}
	s = s[len(prefix):]
	end := strings.IndexAny(s, " \t\r\n")
	if end < 0 {
		end = len(s)
	}
	name = strings.ToLower(s[:end])
	if name == "" {
		return "", "", false
	}
	return name, strings.TrimSpace(s[end:]), true
}

// newChainSession starts the session of the chain triggered by msg.
func newChainSession(msg api.ChannelMessage, userID string) *session.Session {
	return session.Begin(userID, msg.ChannelID, msg.ID)
}

type request struct {
	msg     api.ChannelMessage
	userID  string
	args    string
	session *session.Session
}

func (r *request) fields() []string { return strings.Fields(r.args) }

func (b *Bot) reply(ctx context.Context, r *request, p view.Payload) error {
	_, err := view.Deliver(ctx, b.delivery, r.session, p)
	return err
}

func (b *Bot) replyText(ctx context.Context, r *request, text string) error {
	return b.reply(ctx, r, view.Payload{Content: text})
}

func (b *Bot) replyEmbed(ctx context.Context, r *request, e *view.Embed, atts ...view.Attachment) error {
	return b.reply(ctx, r, view.Payload{Embed: e, Attachments: atts})
}

// open shows v as the reply to r and waits for input on it.
func (b *Bot) open(ctx context.Context, r *request, v *view.View) error {
	_, err := b.engine.Open(ctx, r.session, v)
	return err
}

// argsN validates that r has exactly n whitespace separated arguments.
func argsN(r *request, n int, usage string) ([]string, error) {
	f := r.fields()
	if len(f) != n {
		return nil, errs.Validation("Missing or extra arguments.", usage)
	}
	return f, nil
}

func argText(r *request, usage string) (string, error) {
	if r.args == "" {
		return "", errs.Validation("Missing argument.", usage)
	}
	return r.args, nil
}
