package bot

import (
	"errors"
	"strings"
	"testing"

	"studybot/internal/errs"
)

func TestParseFlashcard(t *testing.T) {
	c, err := ParseFlashcard("$add_flashcard\n# Q: 2+2?\n## A: 4\n- 3\n- 4\n- 5")
	if err != nil {
		t.Fatalf("ParseFlashcard: %v", err)
	}
	if c.Question != "2+2?" || c.Answer != "4" || len(c.Options) != 3 || c.Options[1] != "4" {
		t.Fatalf("card=%+v", c)
	}

	c, err = ParseFlashcard("# Q: capital of France?\r\n## A: Paris\r\n")
	if err != nil || len(c.Options) != 0 || c.Answer != "Paris" {
		t.Fatalf("no options: card=%+v err=%v", c, err)
	}
}

func TestParseFlashcardMissingQuestionEchoesTemplate(t *testing.T) {
	_, err := ParseFlashcard("$add_flashcard\n## A: 4\n- 3\n- 4")
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	var ve *errs.ValidationError
	if !errors.As(err, &ve) || ve.Template != FlashcardTemplate {
		t.Fatalf("template not echoed: %#v", err)
	}
	want := "ERROR: Invalid flashcard format.\nPlease use the following format:\n" +
		"# Q: <question 256 chars>\n## A: <answer 256 chars>\n- <option1 256 chars>\n- <option2 256 chars>\n- <option3>"
	if got := errs.UserMessage(err); got != want {
		t.Fatalf("user message=%q", got)
	}
}

func TestParseFlashcardLimits(t *testing.T) {
	long := strings.Repeat("x", 257)
	cases := map[string]string{
		"one option":     "# Q: q\n## A: a\n- only",
		"nine options":   "# Q: q\n## A: a\n- 1\n- 2\n- 3\n- 4\n- 5\n- 6\n- 7\n- 8\n- 9",
		"long question":  "# Q: " + long + "\n## A: a",
		"long answer":    "# Q: q\n## A: " + long,
		"long option":    "# Q: q\n## A: a\n- " + long + "\n- b",
		"empty option":   "# Q: q\n## A: a\n- \n- b",
		"missing answer": "# Q: q\n- a\n- b",
	}
	for name, text := range cases {
		if _, err := ParseFlashcard(text); !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
	// exactly 256 runes is fine
	if _, err := ParseFlashcard("# Q: " + strings.Repeat("é", 256) + "\n## A: a"); err != nil {
		t.Fatalf("256 runes rejected: %v", err)
	}
}

func TestParseTimeTable(t *testing.T) {
	e, err := ParseTimeTable("$create_time_table_entry\n# name: Math\n## time: 09:00\n## days: Mon Wed\n## duration: 60\n- description: Algebra")
	if err != nil {
		t.Fatalf("ParseTimeTable: %v", err)
	}
	if e.Name != "Math" || e.Time != 900 || e.Days != 10 || e.DurationMinutes != 60 || e.Description != "Algebra" {
		t.Fatalf("entry=%+v", e)
	}
	if !e.Active || !e.Notify {
		t.Fatalf("new entries must be active with notifications on: %+v", e)
	}

	for name, text := range map[string]string{
		"no name":     "## time: 9:00\n## days: Mon\n## duration: 5",
		"bad time":    "# name: x\n## time: 25:00\n## days: Mon\n## duration: 5",
		"bad minutes": "# name: x\n## time: 9:75\n## days: Mon\n## duration: 5",
		"no days":     "# name: x\n## time: 9:00\n## days: someday\n## duration: 5",
		"no duration": "# name: x\n## time: 9:00\n## days: Mon",
	} {
		_, err := ParseTimeTable(text)
		var ve *errs.ValidationError
		if !errors.As(err, &ve) || ve.Template != TimeTableTemplate {
			t.Fatalf("%s: expected template error, got %v", name, err)
		}
	}
}

func TestFencedBlock(t *testing.T) {
	if got := fencedBlock("$flashcard_create_set bio\n```\ncells and\norganelles\n```"); got != "cells and\norganelles" {
		t.Fatalf("got %q", got)
	}
	if got := fencedBlock("$flashcard_create_set bio"); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestParseCommand(t *testing.T) {
	name, args, ok := parseCommand("  $Add_Task read chapter 3", "$")
	if !ok || name != "add_task" || args != "read chapter 3" {
		t.Fatalf("name=%q args=%q ok=%v", name, args, ok)
	}
	name, args, ok = parseCommand("$add_flashcard\n# Q: x", "$")
	if !ok || name != "add_flashcard" || args != "# Q: x" {
		t.Fatalf("name=%q args=%q ok=%v", name, args, ok)
	}
	for _, s := range []string{"hello", "$", "$ ping", ""} {
		if _, _, ok := parseCommand(s, "$"); ok {
			t.Fatalf("%q should not parse", s)
		}
	}
}

func TestSplitSong(t *testing.T) {
	name, artist, ok := splitSong("Stand By Me by Ben E. King")
	if !ok || name != "Stand By Me" || artist != "Ben E. King" {
		t.Fatalf("name=%q artist=%q ok=%v", name, artist, ok)
	}
	if _, _, ok := splitSong("no artist here"); ok {
		t.Fatalf("expected failure")
	}
}
