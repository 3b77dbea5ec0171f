package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"studybot/internal/errs"
	"studybot/internal/store"
	"studybot/internal/view"
	"studybot/pkg/x/imagex"
)

const (
	quizOptionsID = "options"
	quizRevealID  = "reveal"
	quizRepeatID  = "repeat"

	listDeleteID  = "delete"
	listConfirmID = "confirm"
	listCancelID  = "cancel"
)

func (b *Bot) cmdAddFlashcard(ctx context.Context, r *request) error {
	if len(r.msg.Attachments) > 1 {
		return errs.Validation("Only one image is allowed.", "")
	}
	card, err := ParseFlashcard(r.msg.Content)
	if err != nil {
		return err
	}
	if len(r.msg.Attachments) == 1 {
		if card.Image, err = b.flashcardImage(ctx, r); err != nil {
			return err
		}
	}
	card.AuthorID = r.userID
	if err := b.store.CreateFlashcard(ctx, &card); err != nil {
		return err
	}
	e, atts := b.flashcardDetails(r.userID, card)
	return b.replyEmbed(ctx, r, e, atts...)
}

func (b *Bot) flashcardImage(ctx context.Context, r *request) ([]byte, error) {
	if b.files == nil {
		return nil, errs.Validation("Attachments are not supported here.", "")
	}
	raw, err := b.files.Download(ctx, r.msg.Attachments[0], maxImageBytes)
	if err != nil {
		return nil, fmt.Errorf("download flashcard image: %w", err)
	}
	img, err := imagex.NormalizePNG(raw, flashcardImageDim)
	if errors.Is(err, imagex.ErrNotImage) {
		return nil, errs.Validation("The attachment is not an image.", "")
	}
	if err != nil {
		return nil, fmt.Errorf("normalize flashcard image: %w", err)
	}
	return img, nil
}

func (b *Bot) cmdListFlashcards(ctx context.Context, r *request) error {
	cards, err := b.store.ListFlashcards(ctx, r.userID)
	if err != nil {
		return err
	}
	return b.open(ctx, r, b.flashcardListView(r, cards))
}

func (b *Bot) cmdFlashcardFlash(ctx context.Context, r *request) error {
	f, err := argsN(r, 1, b.prefix+"flashcard_flash <card_id>")
	if err != nil {
		return err
	}
	card, err := b.store.GetFlashcard(ctx, f[0])
	if err != nil {
		return err
	}
	return b.open(ctx, r, b.quizView(r.userID, []store.Flashcard{card}))
}

func (b *Bot) cmdCreateSet(ctx context.Context, r *request) error {
	f := r.fields()
	if len(f) == 0 {
		return errs.Validation("Missing argument.", b.prefix+"flashcard_create_set <set_name>")
	}
	set := store.FlashcardSet{
		Name:        f[0],
		OwnerID:     r.userID,
		Description: fencedBlock(r.msg.Content),
	}
	if err := b.store.CreateFlashcardSet(ctx, &set); err != nil {
		return err
	}
	return b.replyEmbed(ctx, r, b.setDetails(r, set))
}

func (b *Bot) cmdAddToSet(ctx context.Context, r *request) error {
	return b.changeSet(ctx, r, b.prefix+"flashcard_add_to_set <set_id> <card_id>", func(setID, cardID string) error {
		return b.store.AddToSet(ctx, setID, cardID, r.userID)
	})
}

func (b *Bot) cmdRemoveFromSet(ctx context.Context, r *request) error {
	return b.changeSet(ctx, r, b.prefix+"flashcard_remove_from_set <set_id> <card_id>", func(setID, cardID string) error {
		return b.store.RemoveFromSet(ctx, setID, cardID)
	})
}

// changeSet checks that both the card and the set exist, applies fn and
// replies with the updated set.
func (b *Bot) changeSet(ctx context.Context, r *request, usage string, fn func(setID, cardID string) error) error {
	f, err := argsN(r, 2, usage)
	if err != nil {
		return err
	}
	setID, cardID := f[0], f[1]
	if _, err := b.store.GetFlashcard(ctx, cardID); err != nil {
		return err
	}
	if _, err := b.store.GetFlashcardSet(ctx, setID); err != nil {
		return err
	}
	if err := fn(setID, cardID); err != nil {
		return err
	}
	set, err := b.store.GetFlashcardSet(ctx, setID)
	if err != nil {
		return err
	}
	return b.replyEmbed(ctx, r, b.setDetails(r, set))
}

func (b *Bot) cmdReviewSet(ctx context.Context, r *request) error {
	f, err := argsN(r, 1, b.prefix+"flashcard_review_set <set_id>")
	if err != nil {
		return err
	}
	if _, err := b.store.GetFlashcardSet(ctx, f[0]); err != nil {
		return err
	}
	cards, err := b.store.SetFlashcards(ctx, f[0])
	if err != nil {
		return err
	}
	if len(cards) == 0 {
		return b.replyText(ctx, r, "This flashcard set is empty.")
	}
	return b.open(ctx, r, b.quizView(r.userID, cards))
}

func (b *Bot) setDetails(r *request, set store.FlashcardSet) *view.Embed {
	e := b.embed(r, "Flashcard Set Details")
	addField(e, "ID", "`"+set.ID+"`")
	addField(e, "Name", set.Name)
	addField(e, "Owner", "<@"+set.OwnerID+">")
	addField(e, "Description", orNone(set.Description))
	for i, id := range set.CardIDs {
		addField(e, fmt.Sprintf("Flashcard %d", i+1), "`"+id+"`")
	}
	return e
}

func cardImage(c store.Flashcard) []view.Attachment {
	if len(c.Image) == 0 {
		return nil
	}
	return []view.Attachment{{Filename: flashcardImageName, ContentType: "image/png", Data: c.Image}}
}

func (b *Bot) flashcardDetails(userID string, c store.Flashcard) (*view.Embed, []view.Attachment) {
	e := &view.Embed{Title: "Flashcard Details", Description: "<@" + userID + ">", Color: embedColor}
	addField(e, "ID", "`"+c.ID+"`")
	addField(e, "Author", "<@"+c.AuthorID+">")
	addField(e, "Question", c.Question)
	for i, o := range c.Options {
		addField(e, fmt.Sprintf("Option %d", i+1), o)
	}
	addField(e, "Answer", c.Answer)
	atts := cardImage(c)
	if len(atts) > 0 {
		e.Image = flashcardImageName
	}
	return e, atts
}

type quizStep struct {
	Index    int
	Answered bool
	Correct  bool
	// Revealed marks an answer shown for a card without options.
	Revealed bool
}

// quizView flashes cards one by one: pick an option, see the verdict, then
// move on or repeat. Every pick is recorded in the card's history.
func (b *Bot) quizView(userID string, cards []store.Flashcard) *view.View {
	move := func(delta int) view.Transition[quizStep] {
		return func(_ context.Context, s quizStep, _ view.Event) (quizStep, error) {
			if !s.Answered {
				return s, nil
			}
			return quizStep{Index: view.ClampPage(s.Index+delta, len(cards))}, nil
		}
	}
	return view.New(view.Definition[quizStep]{
		Name: "flashcard-quiz",
		Render: func(s quizStep) view.Payload {
			return renderQuiz(userID, cards, s)
		},
		Transitions: map[string]view.Transition[quizStep]{
			quizOptionsID: func(ctx context.Context, s quizStep, ev view.Event) (quizStep, error) {
				c := cards[s.Index]
				i, err := strconv.Atoi(ev.Value())
				if s.Answered || err != nil || i < 0 || i >= len(c.Options) {
					return s, nil
				}
				s.Answered = true
				s.Correct = c.Options[i] == c.Answer
				if err := b.store.AddFlashcardHistory(ctx, c.ID, ev.ActorID, b.now(), s.Correct); err != nil {
					log.Printf("%s record flashcard history card=%s: %v", logPrefix, c.ID, err)
				}
				return s, nil
			},
			quizRevealID: func(_ context.Context, s quizStep, _ view.Event) (quizStep, error) {
				if !s.Answered {
					s.Answered, s.Revealed = true, true
				}
				return s, nil
			},
			quizRepeatID:    move(0),
			view.PreviousID: move(-1),
			view.NextID:     move(1),
		},
	})
}

func renderQuiz(userID string, cards []store.Flashcard, s quizStep) view.Payload {
	c := cards[s.Index]
	p := view.Payload{
		Content:     fmt.Sprintf("Card %d/%d", s.Index+1, len(cards)),
		Attachments: cardImage(c),
	}
	e := &view.Embed{Description: "<@" + userID + ">", Color: embedColor}
	if len(p.Attachments) > 0 {
		e.Image = flashcardImageName
	}
	p.Embed = e

	if !s.Answered {
		e.Title = c.Question
		if len(c.Options) == 0 {
			p.Elements = []view.Element{view.Button(quizRevealID, "Show answer", false)}
			return p
		}
		opts := make([]view.Option, len(c.Options))
		for i, o := range c.Options {
			opts[i] = view.Option{Value: strconv.Itoa(i), Label: o}
		}
		p.Elements = []view.Element{view.Dropdown(quizOptionsID, "Select an option", opts...)}
		return p
	}

	switch {
	case s.Revealed:
		e.Title = "Answer"
	case s.Correct:
		e.Title, e.Color = "Correct!", correctColor
	default:
		e.Title, e.Color = "Incorrect!", incorrectColor
	}
	addField(e, "Question", c.Question)
	addField(e, "Answer", c.Answer)
	prev, next := view.NavButtons(s.Index, len(cards), "", "")
	p.Elements = []view.Element{prev, view.Button(quizRepeatID, "Repeat", false), next}
	return p
}

type listStep struct {
	Cards   []store.Flashcard
	Page    int
	Confirm bool
}

// flashcardListView pages through the invoker's cards. Deleting asks for
// confirmation in a fresh message so the card stays visible above it.
func (b *Bot) flashcardListView(r *request, cards []store.Flashcard) *view.View {
	userID := r.userID
	s := r.session
	return view.New(view.Definition[listStep]{
		Name:    "flashcard-list",
		Initial: listStep{Cards: cards},
		Render: func(st listStep) view.Payload {
			return b.renderFlashcardList(userID, st)
		},
		Transitions: map[string]view.Transition[listStep]{
			view.PreviousID: func(_ context.Context, st listStep, _ view.Event) (listStep, error) {
				if !st.Confirm {
					st.Page = view.ClampPage(st.Page-1, len(st.Cards))
				}
				return st, nil
			},
			view.NextID: func(_ context.Context, st listStep, _ view.Event) (listStep, error) {
				if !st.Confirm {
					st.Page = view.ClampPage(st.Page+1, len(st.Cards))
				}
				return st, nil
			},
			listDeleteID: func(_ context.Context, st listStep, _ view.Event) (listStep, error) {
				if st.Confirm || len(st.Cards) == 0 {
					return st, nil
				}
				st.Confirm = true
				s.SetReplaceMode(true)
				return st, nil
			},
			listConfirmID: func(ctx context.Context, st listStep, ev view.Event) (listStep, error) {
				if !st.Confirm {
					return st, nil
				}
				card := st.Cards[st.Page]
				if err := b.store.DeleteFlashcard(ctx, card.ID, ev.ActorID); err != nil {
					return st, err
				}
				rest := make([]store.Flashcard, 0, len(st.Cards)-1)
				rest = append(rest, st.Cards[:st.Page]...)
				rest = append(rest, st.Cards[st.Page+1:]...)
				return listStep{Cards: rest, Page: view.ClampPage(st.Page, len(rest))}, nil
			},
			listCancelID: func(_ context.Context, st listStep, _ view.Event) (listStep, error) {
				st.Confirm = false
				return st, nil
			},
		},
	})
}

func (b *Bot) renderFlashcardList(userID string, st listStep) view.Payload {
	if len(st.Cards) == 0 {
		return view.Payload{
			Embed: &view.Embed{Title: "No Flashcards", Description: "<@" + userID + ">", Color: embedColor},
			Elements: []view.Element{
				view.Button(view.PreviousID, "⬅️", true),
				view.Button(listDeleteID, "❌", true),
				view.Button(view.NextID, "➡️", true),
			},
		}
	}
	page := view.ClampPage(st.Page, len(st.Cards))
	card := st.Cards[page]
	e, atts := b.flashcardDetails(userID, card)
	p := view.Payload{Embed: e, Attachments: atts}
	if st.Confirm {
		p.Content = fmt.Sprintf("Delete flashcard `%s`? This cannot be undone.", card.ID)
		p.Elements = []view.Element{
			view.Button(listConfirmID, "Delete", false),
			view.Button(listCancelID, "Cancel", false),
		}
		return p
	}
	p.Content = fmt.Sprintf("Card %d/%d", page+1, len(st.Cards))
	prev, next := view.NavButtons(page, len(st.Cards), "⬅️", "➡️")
	p.Elements = []view.Element{prev, view.Button(listDeleteID, "❌", false), next}
	return p
}
