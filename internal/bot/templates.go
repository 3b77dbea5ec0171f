package bot

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"studybot/internal/alert"
	"studybot/internal/errs"
	"studybot/internal/store"
)

const (
	FlashcardTemplate = "# Q: <question 256 chars>\n" +
		"## A: <answer 256 chars>\n" +
		"- <option1 256 chars>\n" +
		"- <option2 256 chars>\n" +
		"- <option3>"

	TimeTableTemplate = "# name: <name>\n" +
		"## time: <time>\n" +
		"## days: <days>\n" +
		"## duration: <duration>\n" +
		"- description: <description>"

	maxFlashcardText = 256
	maxOptions       = 8
)

func invalidFlashcard() error {
	return errs.Validation("Invalid flashcard format.", FlashcardTemplate)
}

func invalidTimeTable() error {
	return errs.Validation("Invalid time table entry format", TimeTableTemplate)
}

// ParseFlashcard reads a flashcard block. Lines outside the template are
// ignored, so the command line itself may be part of text.
func ParseFlashcard(text string) (store.Flashcard, error) {
	var c store.Flashcard
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case strings.HasPrefix(line, "# Q: "):
			c.Question = strings.TrimSpace(line[len("# Q: "):])
		case strings.HasPrefix(line, "## A: "):
			c.Answer = strings.TrimSpace(line[len("## A: "):])
		case strings.HasPrefix(line, "- "):
			c.Options = append(c.Options, strings.TrimSpace(line[2:]))
		}
	}

	if c.Question == "" || c.Answer == "" {
		return store.Flashcard{}, invalidFlashcard()
	}
	if tooLong(c.Question) || tooLong(c.Answer) {
		return store.Flashcard{}, invalidFlashcard()
	}
	// a single option is no choice at all
	if len(c.Options) == 1 || len(c.Options) > maxOptions {
		return store.Flashcard{}, invalidFlashcard()
	}
	for _, o := range c.Options {
		if o == "" || tooLong(o) {
			return store.Flashcard{}, invalidFlashcard()
		}
	}
	return c, nil
}

func tooLong(s string) bool { return utf8.RuneCountInString(s) > maxFlashcardText }

// ParseTimeTable reads a time table block into an active entry with
// notifications on. Time accepts "9:00", "09:00" and "900".
func ParseTimeTable(text string) (alert.Entry, error) {
	e := alert.Entry{Notify: true, Active: true}
	var haveTime, haveDuration bool
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case strings.HasPrefix(line, "# name: "):
			e.Name = strings.TrimSpace(line[len("# name: "):])
		case strings.HasPrefix(line, "## time: "):
			raw := strings.ReplaceAll(strings.TrimSpace(line[len("## time: "):]), ":", "")
			t, err := strconv.Atoi(raw)
			if err != nil || !alert.ValidTime(t) {
				return alert.Entry{}, invalidTimeTable()
			}
			e.Time, haveTime = t, true
		case strings.HasPrefix(line, "## days: "):
			e.Days = alert.ParseDays(line[len("## days: "):])
		case strings.HasPrefix(line, "## duration: "):
			d, err := strconv.Atoi(strings.TrimSpace(line[len("## duration: "):]))
			if err != nil || d < 0 {
				return alert.Entry{}, invalidTimeTable()
			}
			e.DurationMinutes, haveDuration = d, true
		case strings.HasPrefix(line, "- description: "):
			e.Description = strings.TrimSpace(line[len("- description: "):])
		}
	}
	if e.Name == "" || !haveTime || !haveDuration || e.Days == 0 {
		return alert.Entry{}, invalidTimeTable()
	}
	return e, nil
}

// fencedBlock returns the body of the first ``` block in text, if any.
func fencedBlock(text string) string {
	start := strings.Index(text, "```\n")
	if start < 0 {
		return ""
	}
	body := text[start+4:]
	end := strings.LastIndex(body, "\n```")
	if end < 0 {
		return strings.TrimSpace(body)
	}
	return strings.TrimSpace(body[:end])
}
