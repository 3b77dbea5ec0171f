package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"studybot/internal/alert"
	"studybot/internal/view"
)

func (b *Bot) cmdCreateTimeTable(ctx context.Context, r *request) error {
	e, err := ParseTimeTable(r.msg.Content)
	if err != nil {
		return err
	}
	e.OwnerID = r.userID
	if err := b.store.CreateAlert(ctx, &e); err != nil {
		return err
	}
	return b.replyEmbed(ctx, r, b.timeTableEmbed(r, e))
}

func (b *Bot) cmdDeleteTimeTable(ctx context.Context, r *request) error {
	f, err := argsN(r, 1, b.prefix+"delete_time_table_entry <entry_id>")
	if err != nil {
		return err
	}
	if err := b.store.DeleteAlert(ctx, f[0], r.userID); err != nil {
		return err
	}
	return b.replyText(ctx, r, "Time Table Entry deleted.")
}

func (b *Bot) cmdListTimeTable(ctx context.Context, r *request) error {
	entries, err := b.store.ListAlertsByOwner(ctx, r.userID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return b.replyText(ctx, r, "You have no time table entries.")
	}
	return b.open(ctx, r, view.New(view.Pager("time-table", len(entries), func(i int) view.Payload {
		return view.Payload{
			Content: fmt.Sprintf("Entry %d/%d", i+1, len(entries)),
			Embed:   b.timeTableEmbed(r, entries[i]),
		}
	})))
}

func (b *Bot) timeTableEmbed(r *request, e alert.Entry) *view.Embed {
	em := b.embed(r, "Time Table Entry Details")
	addField(em, "ID", e.ID)
	addField(em, "Name", e.Name)
	addField(em, "Description", orNone(e.Description))
	addField(em, "Time", alert.FormatTime(e.Time))
	addField(em, "Days", strings.Join(alert.DayNames(e.Days), " "))
	addField(em, "Duration", strconv.Itoa(e.DurationMinutes)+" minutes")
	addField(em, "Ping", strconv.FormatBool(e.Notify))
	addField(em, "Active", strconv.FormatBool(e.Active))
	return em
}
