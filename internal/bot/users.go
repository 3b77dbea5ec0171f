package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"studybot/internal/errs"
	"studybot/internal/store"
	"studybot/internal/view"
)

func (b *Bot) cmdRegister(ctx context.Context, r *request) error {
	name, err := argText(r, b.prefix+"register <name>")
	if err != nil {
		return err
	}
	u := store.User{ID: r.userID, Name: name, JoinedAt: b.now()}
	if err := b.store.RegisterUser(ctx, u); err != nil {
		return err
	}
	return b.replyEmbed(ctx, r, b.userEmbed(r, u))
}

func (b *Bot) cmdProfile(ctx context.Context, r *request) error {
	u, err := b.store.GetUser(ctx, r.userID)
	if err != nil {
		return err
	}
	return b.replyEmbed(ctx, r, b.userEmbed(r, u))
}

func (b *Bot) cmdSetInstitution(ctx context.Context, r *request) error {
	inst, err := argText(r, b.prefix+"set_institution <institution>")
	if err != nil {
		return err
	}
	return b.updateUser(ctx, r, func(u *store.User) { u.Institution = inst })
}

func (b *Bot) cmdSetTimeZone(ctx context.Context, r *request) error {
	usage := b.prefix + "set_time_zone <offset>"
	f, err := argsN(r, 1, usage)
	if err != nil {
		return err
	}
	tz, err := strconv.Atoi(strings.TrimPrefix(f[0], "+"))
	if err != nil || tz < -12 || tz > 14 {
		return errs.Validation("Invalid time zone offset.", usage)
	}
	return b.updateUser(ctx, r, func(u *store.User) { u.TimeZone = &tz })
}

func (b *Bot) cmdSetDOB(ctx context.Context, r *request) error {
	usage := b.prefix + "set_dob <DD MM YYYY>"
	dob, err := parseDOB(r.args)
	if err != nil {
		return errs.Validation("Invalid date of birth.", usage)
	}
	return b.updateUser(ctx, r, func(u *store.User) { u.DOB = &dob })
}

func (b *Bot) updateUser(ctx context.Context, r *request, fn func(u *store.User)) error {
	u, err := b.store.GetUser(ctx, r.userID)
	if err != nil {
		return err
	}
	fn(&u)
	if err := b.store.UpdateUser(ctx, u); err != nil {
		return err
	}
	return b.replyEmbed(ctx, r, b.userEmbed(r, u))
}

// parseDOB reads "DD MM YYYY" as a UTC calendar date.
func parseDOB(s string) (time.Time, error) {
	f := strings.Fields(s)
	if len(f) != 3 {
		return time.Time{}, fmt.Errorf("want DD MM YYYY, got %q", s)
	}
	return time.Parse("2 1 2006", strings.Join(f, " "))
}

func (b *Bot) userEmbed(r *request, u store.User) *view.Embed {
	e := b.embed(r, "User Information")
	addField(e, "User ID", u.ID)
	addField(e, "Name", u.Name)
	if u.DOB != nil {
		addField(e, "Date of Birth", u.DOB.UTC().Format(profileDayLayout))
	}
	addField(e, "Join Date", u.JoinedAt.In(b.loc).Format(profileDayLayout))
	addField(e, "Institution", orNone(u.Institution))
	tz := "None"
	if u.TimeZone != nil {
		tz = strconv.Itoa(*u.TimeZone)
	}
	addField(e, "Time Zone", tz)
	return e
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "None"
	}
	return s
}
