package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"studybot/internal/errs"
	"studybot/internal/store"
)

const (
	taskDone    = store.TaskDone
	taskStarted = store.TaskStarted
)

var dueDateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func taskKey(userID, channelID string) string { return userID + "\x00" + channelID }

func (b *Bot) setCurrentTask(r *request, id int64) {
	b.taskMu.Lock()
	b.current[taskKey(r.userID, r.msg.ChannelID)] = id
	b.taskMu.Unlock()
}

func (b *Bot) currentTask(r *request) (int64, bool) {
	b.taskMu.Lock()
	defer b.taskMu.Unlock()
	id, ok := b.current[taskKey(r.userID, r.msg.ChannelID)]
	return id, ok
}

// forgetTask drops id wherever the user had it selected.
func (b *Bot) forgetTask(userID string, id int64) {
	b.taskMu.Lock()
	defer b.taskMu.Unlock()
	prefix := userID + "\x00"
	for k, v := range b.current {
		if v == id && strings.HasPrefix(k, prefix) {
			delete(b.current, k)
		}
	}
}

func parseTaskID(s, usage string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.Validation("Invalid task id.", usage)
	}
	return id, nil
}

func (b *Bot) cmdAddTask(ctx context.Context, r *request) error {
	if r.args == "" {
		return errs.Validation("Please provide a task name", b.prefix+"add_task <name>")
	}
	t, err := b.store.AddTask(ctx, r.userID, r.args)
	if err != nil {
		return err
	}
	return b.replyText(ctx, r, fmt.Sprintf("Task added successfully (task number: %d)", t.ID))
}

func (b *Bot) cmdSetTask(ctx context.Context, r *request) error {
	name, err := argText(r, b.prefix+"set_task <name>")
	if err != nil {
		return err
	}
	t, err := b.store.FindTaskByName(ctx, r.userID, name)
	if err != nil {
		return err
	}
	b.setCurrentTask(r, t.ID)
	return b.replyText(ctx, r, fmt.Sprintf("Current task set to name: %s, id: %d", t.Name, t.ID))
}

func (b *Bot) cmdSetTaskByID(ctx context.Context, r *request) error {
	usage := b.prefix + "set_task_by_id <id>"
	id, err := parseTaskID(r.args, usage)
	if err != nil {
		return err
	}
	t, err := b.store.GetTask(ctx, r.userID, id)
	if err != nil {
		return err
	}
	b.setCurrentTask(r, t.ID)
	return b.replyText(ctx, r, fmt.Sprintf("Current task set to name: %s, id: %d", t.Name, t.ID))
}

func (b *Bot) cmdAddDescription(ctx context.Context, r *request) error {
	desc, err := argText(r, b.prefix+"add_description <description>")
	if err != nil {
		return err
	}
	id, ok := b.currentTask(r)
	if !ok {
		return errs.Validation(msgSetTaskFirst, "")
	}
	if err := b.store.SetTaskDescription(ctx, r.userID, id, desc); err != nil {
		return err
	}
	return b.replyText(ctx, r, fmt.Sprintf("Description added to task %d", id))
}

func (b *Bot) cmdSetDueDate(ctx context.Context, r *request) error {
	usage := b.prefix + "set_due_date <YYYY-MM-DD HH:MM:SS>"
	raw, err := argText(r, usage)
	if err != nil {
		return err
	}
	due, err := b.parseDueDate(raw)
	if err != nil {
		return errs.Validation("Invalid due date.", usage)
	}
	id, ok := b.currentTask(r)
	if !ok {
		return errs.Validation(msgSetTaskFirst, "")
	}
	if err := b.store.SetTaskDueDate(ctx, r.userID, id, due); err != nil {
		return err
	}
	return b.replyText(ctx, r, fmt.Sprintf("Due date of task %d set to %s", id, due.Format(taskDueLayout)))
}

func (b *Bot) parseDueDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dueDateLayouts {
		if t, err := time.ParseInLocation(layout, s, b.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func (b *Bot) cmdListTasks(ctx context.Context, r *request) error {
	tasks, err := b.store.ListTasks(ctx, r.userID)
	if err != nil {
		return err
	}
	e := b.embed(r, "Tasks")
	for _, t := range tasks {
		addField(e, t.Name, fmt.Sprintf(
			"task number: %d\nDescription: %s\nStatus: %s\nDue Date: %s\nCompletion Time: %s",
			t.ID, orNone(t.Description), t.Status, b.formatOptTime(t.DueAt), b.formatOptTime(t.CompletedAt),
		))
	}
	if len(tasks) == 0 {
		e.Description += "\nNo tasks yet."
	}
	return b.replyEmbed(ctx, r, e)
}

func (b *Bot) formatOptTime(t *time.Time) string {
	if t == nil {
		return "None"
	}
	return t.In(b.loc).Format(taskDueLayout)
}

func (b *Bot) cmdRemoveTask(ctx context.Context, r *request) error {
	name, err := argText(r, b.prefix+"remove_task <name>")
	if err != nil {
		return err
	}
	t, err := b.store.FindTaskByName(ctx, r.userID, name)
	if err != nil {
		return err
	}
	return b.deleteTask(ctx, r, t.ID)
}

func (b *Bot) cmdDeleteTask(ctx context.Context, r *request) error {
	id, err := parseTaskID(r.args, b.prefix+"delete_task <id>")
	if err != nil {
		return err
	}
	return b.deleteTask(ctx, r, id)
}

func (b *Bot) deleteTask(ctx context.Context, r *request, id int64) error {
	if err := b.store.DeleteTask(ctx, r.userID, id); err != nil {
		return err
	}
	b.forgetTask(r.userID, id)
	return b.replyText(ctx, r, "Task removed successfully")
}

func (b *Bot) taskStatusByName(status string) func(context.Context, *request) error {
	return func(ctx context.Context, r *request) error {
		name, err := argText(r, b.prefix+"mark_as_"+status+" <name>")
		if err != nil {
			return err
		}
		t, err := b.store.FindTaskByName(ctx, r.userID, name)
		if err != nil {
			return err
		}
		return b.setTaskStatus(ctx, r, t.ID, status)
	}
}

func (b *Bot) taskStatusByID(status string) func(context.Context, *request) error {
	return func(ctx context.Context, r *request) error {
		id, err := parseTaskID(r.args, b.prefix+"mark_as_"+status+"_by_id <id>")
		if err != nil {
			return err
		}
		return b.setTaskStatus(ctx, r, id, status)
	}
}

func (b *Bot) setTaskStatus(ctx context.Context, r *request, id int64, status string) error {
	if err := b.store.SetTaskStatus(ctx, r.userID, id, status, b.now()); err != nil {
		return err
	}
	return b.replyText(ctx, r, "Task marked as "+status)
}
