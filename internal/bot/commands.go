package bot

import (
	"context"
	"fmt"
	"time"

	"studybot/internal/view"
)

type command struct {
	name  string
	usage string
	help  string
	group string
	// registered commands refuse users without a profile
	registered bool
	run        func(ctx context.Context, r *request) error
}

const (
	groupGeneral    = "General"
	groupFlashcards = "Flashcards"
	groupTasks      = "Tasks"
	groupMusic      = "Music"
	groupTimeTable  = "Time table"
)

func (b *Bot) registerCommands() {
	b.commands = map[string]*command{}
	b.order = nil
	add := func(c command) {
		c.usage = b.prefix + c.usage
		cc := c
		b.commands[c.name] = &cc
		b.order = append(b.order, &cc)
	}

	add(command{name: "ping", usage: "ping", group: groupGeneral, help: "Responds with 'Pong!' and alternates messages.", run: b.cmdPing})
	add(command{name: "help", usage: "help", group: groupGeneral, help: "Lists the available commands.", run: b.cmdHelp})
	add(command{name: "register", usage: "register <name>", group: groupGeneral, help: "Registers you as a user.", run: b.cmdRegister})
	add(command{name: "profile", usage: "profile", group: groupGeneral, help: "Shows your profile.", registered: true, run: b.cmdProfile})
	add(command{name: "set_institution", usage: "set_institution <institution>", group: groupGeneral, help: "Sets your institution.", registered: true, run: b.cmdSetInstitution})
	add(command{name: "set_time_zone", usage: "set_time_zone <offset>", group: groupGeneral, help: "Sets your time zone offset.", registered: true, run: b.cmdSetTimeZone})
	add(command{name: "set_dob", usage: "set_dob <DD MM YYYY>", group: groupGeneral, help: "Sets your date of birth.", registered: true, run: b.cmdSetDOB})
	add(command{name: "query", usage: "query <question>", group: groupGeneral, help: "Asks the AI model a question.", run: b.cmdQuery})
	add(command{name: "ask", usage: "ask <question>", group: groupGeneral, help: "Asks the AI model a question about the bot's commands.", run: b.cmdAsk})
	add(command{name: "ai", usage: "ai enable|disable", group: groupGeneral, help: "Turns AI replies to every message in this channel on or off.", run: b.cmdAI})
	add(command{name: "pm", usage: "pm", group: groupGeneral, help: "Sends you a private message.", run: b.cmdPM})

	add(command{name: "add_flashcard", usage: "add_flashcard\n" + FlashcardTemplate, group: groupFlashcards, help: "Adds a new flashcard.", registered: true, run: b.cmdAddFlashcard})
	add(command{name: "list_flashcards", usage: "list_flashcards", group: groupFlashcards, help: "Lists your flashcards.", run: b.cmdListFlashcards})
	add(command{name: "flashcard_flash", usage: "flashcard_flash <card_id>", group: groupFlashcards, help: "Flashes a specific flashcard by ID.", run: b.cmdFlashcardFlash})
	add(command{name: "flashcard_create_set", usage: "flashcard_create_set <set_name>", group: groupFlashcards, help: "Creates a new flashcard set given the name.", registered: true, run: b.cmdCreateSet})
	add(command{name: "flashcard_add_to_set", usage: "flashcard_add_to_set <set_id> <card_id>", group: groupFlashcards, help: "Adds a flashcard to a set.", registered: true, run: b.cmdAddToSet})
	add(command{name: "flashcard_remove_from_set", usage: "flashcard_remove_from_set <set_id> <card_id>", group: groupFlashcards, help: "Removes a flashcard from a set.", run: b.cmdRemoveFromSet})
	add(command{name: "flashcard_review_set", usage: "flashcard_review_set <set_id>", group: groupFlashcards, help: "Reviews a flashcard set.", run: b.cmdReviewSet})

	add(command{name: "add_task", usage: "add_task <name>", group: groupTasks, help: "Adds a new task with a specified name.", registered: true, run: b.cmdAddTask})
	add(command{name: "set_task", usage: "set_task <name>", group: groupTasks, help: "Sets the current task by name.", run: b.cmdSetTask})
	add(command{name: "set_task_by_id", usage: "set_task_by_id <id>", group: groupTasks, help: "Sets the current task by ID.", run: b.cmdSetTaskByID})
	add(command{name: "add_description", usage: "add_description <description>", group: groupTasks, help: "Adds a description to the current task.", run: b.cmdAddDescription})
	add(command{name: "list_tasks", usage: "list_tasks", group: groupTasks, help: "Lists all tasks.", run: b.cmdListTasks})
	add(command{name: "remove_task", usage: "remove_task <name>", group: groupTasks, help: "Removes a task by name.", run: b.cmdRemoveTask})
	add(command{name: "delete_task", usage: "delete_task <id>", group: groupTasks, help: "Deletes a task by ID.", run: b.cmdDeleteTask})
	add(command{name: "mark_as_done", usage: "mark_as_done <name>", group: groupTasks, help: "Marks a task as done by name.", run: b.taskStatusByName(taskDone)})
	add(command{name: "mark_as_started", usage: "mark_as_started <name>", group: groupTasks, help: "Marks a task as started by name.", run: b.taskStatusByName(taskStarted)})
	add(command{name: "mark_as_done_by_id", usage: "mark_as_done_by_id <id>", group: groupTasks, help: "Marks a task as done by ID.", run: b.taskStatusByID(taskDone)})
	add(command{name: "mark_as_started_by_id", usage: "mark_as_started_by_id <id>", group: groupTasks, help: "Marks a task as started by ID.", run: b.taskStatusByID(taskStarted)})
	add(command{name: "set_due_date", usage: "set_due_date <YYYY-MM-DD HH:MM:SS>", group: groupTasks, help: "Sets a due date for the current task.", run: b.cmdSetDueDate})

	add(command{name: "add_song", usage: "add_song <song name> by <artist>", group: groupMusic, help: "Adds a song; attach exactly one audio file.", registered: true, run: b.cmdAddSong})
	add(command{name: "get_song", usage: "get_song <song_id>", group: groupMusic, help: "Gets a song by ID.", run: b.cmdGetSong})
	add(command{name: "create_playlist", usage: "create_playlist <name>", group: groupMusic, help: "Creates a playlist given a name.", registered: true, run: b.cmdCreatePlaylist})
	add(command{name: "get_playlist", usage: "get_playlist <playlist_id>", group: groupMusic, help: "Gets a playlist by ID.", run: b.cmdGetPlaylist})
	add(command{name: "add_song_to_playlist", usage: "add_song_to_playlist <playlist_id> <song_id>", group: groupMusic, help: "Adds a song to one of your playlists.", run: b.cmdAddSongToPlaylist})
	add(command{name: "remove_song_from_playlist", usage: "remove_song_from_playlist <playlist_id> <song_id>", group: groupMusic, help: "Removes a song from one of your playlists.", run: b.cmdRemoveSongFromPlaylist})
	add(command{name: "play_playlist", usage: "play_playlist <playlist_id>", group: groupMusic, help: "Plays a playlist.", run: b.cmdPlayPlaylist})

	add(command{name: "create_time_table_entry", usage: "create_time_table_entry\n" + TimeTableTemplate, group: groupTimeTable, help: "Creates a new time table entry.", registered: true, run: b.cmdCreateTimeTable})
	add(command{name: "delete_time_table_entry", usage: "delete_time_table_entry <entry_id>", group: groupTimeTable, help: "Deletes one of your time table entries.", run: b.cmdDeleteTimeTable})
	add(command{name: "list_time_table", usage: "list_time_table", group: groupTimeTable, help: "Pages through your time table entries.", run: b.cmdListTimeTable})
}

// helpPages groups the command list into one embed per group, in
// registration order.
func (b *Bot) helpPages() []view.Payload {
	var (
		pages  []view.Payload
		groups = map[string]int{}
	)
	for _, c := range b.order {
		i, ok := groups[c.group]
		if !ok {
			i = len(pages)
			groups[c.group] = i
			pages = append(pages, view.Payload{Embed: &view.Embed{
				Title:       "Study Tracker Commands: " + c.group,
				Description: "List of available commands and their usage",
				Color:       helpColor,
			}})
		}
		pages[i].Embed.Fields = append(pages[i].Embed.Fields, view.Field{Name: c.usage, Value: c.help})
	}
	return pages
}

func (b *Bot) cmdHelp(ctx context.Context, r *request) error {
	pages := b.helpPages()
	return b.open(ctx, r, view.New(view.Pager("help", len(pages), func(i int) view.Payload {
		p := pages[i]
		p.Content = fmt.Sprintf("Page %d/%d", i+1, len(pages))
		return p
	})))
}

func (b *Bot) cmdPing(ctx context.Context, r *request) error {
	steps := []struct{ content, title string }{
		{"Pong!", "Ping!"},
		{"Ping!", "Pong!"},
		{"Pong!", "Ping!"},
	}
	for i, s := range steps {
		if i > 0 {
			t := time.NewTimer(b.pingDelay)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
		if err := b.reply(ctx, r, view.Payload{Content: s.content, Embed: b.embed(r, s.title)}); err != nil {
			return err
		}
	}
	return nil
}

// embed starts a card addressed to the invoker.
func (b *Bot) embed(r *request, title string) *view.Embed {
	return &view.Embed{Title: title, Description: "<@" + r.userID + ">", Color: embedColor}
}

func addField(e *view.Embed, name, value string) {
	e.Fields = append(e.Fields, view.Field{Name: name, Value: value})
}
