package bot

import (
	"context"
	"log"
	"strings"

	"studybot/internal/errs"
	"studybot/internal/view"
	"studybot/pkg/api"
	"studybot/pkg/x/llm"
)

const askSystemPrompt = "You are the help desk of a study tracker chat bot. " +
	"Answer questions about its commands using only the list below. " +
	"Keep answers short and show the exact command syntax.\n\n"

func (b *Bot) cmdQuery(ctx context.Context, r *request) error {
	q, err := argText(r, b.prefix+"query <question>")
	if err != nil {
		return err
	}
	return b.answer(ctx, r, "", q)
}

func (b *Bot) cmdAsk(ctx context.Context, r *request) error {
	q, err := argText(r, b.prefix+"ask <question>")
	if err != nil {
		return err
	}
	return b.answer(ctx, r, askSystemPrompt+b.commandSheet(), q)
}

// commandSheet lists every command with its usage, one block per command.
func (b *Bot) commandSheet() string {
	var sb strings.Builder
	for _, c := range b.order {
		sb.WriteString("- ")
		sb.WriteString(c.usage)
		sb.WriteString("\n  ")
		sb.WriteString(c.help)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (b *Bot) answer(ctx context.Context, r *request, system, prompt string) error {
	if b.ai == nil {
		return errs.Validation(msgAIDisabled, "")
	}
	reply, err := b.ai.Complete(ctx, system, prompt)
	if err != nil {
		log.Printf("%s completion failed user=%s: %v", logPrefix, r.userID, err)
		return b.replyText(ctx, r, msgAIFailed)
	}
	chunks := llm.Chunk(reply, maxMessageLen)
	if len(chunks) == 0 {
		return b.replyText(ctx, r, msgAIFailed)
	}
	if err := b.replyText(ctx, r, chunks[0]); err != nil {
		return err
	}
	for _, c := range chunks[1:] {
		if _, err := b.delivery.Send(ctx, r.msg.ChannelID, "", view.Payload{Content: c}); err != nil {
			return errs.Delivery("send", err)
		}
	}
	return nil
}

func (b *Bot) cmdAI(ctx context.Context, r *request) error {
	usage := b.prefix + "ai enable|disable"
	if b.ai == nil || b.aiState == nil {
		return errs.Validation(msgAIDisabled, "")
	}
	var on bool
	switch strings.ToLower(r.args) {
	case "enable", "on":
		on = true
	case "disable", "off":
	default:
		return errs.Validation("Unknown option.", usage)
	}
	channelID := r.msg.ChannelID
	if err := b.aiState.Update(func(v AIChannels) AIChannels {
		if v.Enabled == nil {
			v.Enabled = map[string]bool{}
		}
		if on {
			v.Enabled[channelID] = true
		} else {
			delete(v.Enabled, channelID)
		}
		return v
	}); err != nil {
		return err
	}
	if on {
		return b.replyText(ctx, r, "AI replies are enabled in this channel.")
	}
	return b.replyText(ctx, r, "AI replies are disabled in this channel.")
}

func (b *Bot) aiEnabled(channelID string) bool {
	if b.ai == nil || b.aiState == nil {
		return false
	}
	v, err := b.aiState.Get()
	if err != nil {
		log.Printf("%s read ai state: %v", logPrefix, err)
		return false
	}
	return v.Enabled[channelID]
}

// autoReply answers plain messages in channels with AI replies on.
func (b *Bot) autoReply(ctx context.Context, msg api.ChannelMessage, userID string) error {
	text := strings.TrimSpace(msg.Content)
	if text == "" || !b.aiEnabled(msg.ChannelID) {
		return nil
	}
	r := &request{msg: msg, userID: userID, args: text}
	r.session = newChainSession(msg, userID)
	return b.answer(ctx, r, "", text)
}

func (b *Bot) cmdPM(ctx context.Context, r *request) error {
	return b.delivery.NotifyPrivate(ctx, r.userID, msgPrivateHello)
}
