package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/xaenox/planner-bot/internal/models"
)

const remindUsage = `Format:
/remind 10m text
/remind 2h text
/remind 1d text
/remind 2025-12-02 18:30 text`

const reditUsage = `Format:
/redit <id> 15m new text
/redit <id> 2025-12-10 19:30 new text`

// Remind parses "<time> <text>" and schedules a reminder in chatID.
func (s *Service) Remind(ctx context.Context, chatID int64, raw string) (Reply, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Reply{}, usage(models.ErrEmptyInput, remindUsage)
	}

	parsed, ok := s.parser.Parse(ctx, raw)
	if !ok {
		return Reply{}, usage(models.ErrUnparseable, remindUsage)
	}

	r, err := s.reminders.Schedule(chatID, parsed.Text, parsed.FireAt)
	if err != nil {
		return Reply{}, err
	}

	return Reply{
		Text: fmt.Sprintf("Okay, I'll remind you 📅 %s\nText: \"%s\"\nID: #R%d", s.when(r.FireAt), r.Text, r.ID),
	}, nil
}

// EditReminder parses "<id> <time> <text>" and replaces the reminder's time
// and text.
func (s *Service) EditReminder(ctx context.Context, chatID int64, raw string) (Reply, error) {
	id, rest, ok := splitID(raw, "R")
	if !ok || rest == "" {
		return Reply{}, usage(models.ErrEmptyInput, reditUsage)
	}

	if _, err := s.reminderInChat(chatID, id); err != nil {
		return Reply{}, err
	}

	parsed, ok := s.parser.Parse(ctx, rest)
	if !ok {
		return Reply{}, usage(models.ErrUnparseable, reditUsage)
	}

	r, armed, err := s.reminders.Edit(id, parsed.FireAt, parsed.Text)
	if err != nil {
		return Reply{}, err
	}
	if !armed {
		return Reply{Text: fmt.Sprintf(
			"Reminder #R%d updated, but %s has already passed or is too close, so it will not fire.",
			r.ID, s.when(r.FireAt))}, nil
	}

	return Reply{
		Text: fmt.Sprintf("✏️ Reminder #R%d updated 📅 %s\nText: \"%s\"", r.ID, s.when(r.FireAt), r.Text),
	}, nil
}

// DeleteReminder cancels and forgets a reminder belonging to chatID.
func (s *Service) DeleteReminder(chatID, id int64) (Reply, error) {
	if _, err := s.reminderInChat(chatID, id); err != nil {
		return Reply{}, err
	}

	r, err := s.reminders.Delete(id)
	if err != nil {
		return Reply{}, err
	}

	return Reply{
		Text:  fmt.Sprintf("❌ Reminder #R%d deleted.\nText was: \"%s\"", r.ID, r.Text),
		Toast: "Reminder deleted",
	}, nil
}

// DeleteReminderText handles "/rdel <id>".
func (s *Service) DeleteReminderText(chatID int64, raw string) (Reply, error) {
	id, _, ok := splitID(raw, "R")
	if !ok {
		return Reply{}, usage(models.ErrEmptyInput, "Format:\n/rdel <id>")
	}
	return s.DeleteReminder(chatID, id)
}

func (s *Service) ViewReminder(chatID, id int64) (Reply, error) {
	r, err := s.reminderInChat(chatID, id)
	if err != nil {
		return Reply{}, err
	}

	return Reply{
		Text:     fmt.Sprintf("⏰ Reminder #R%d\nWhen: %s\nText: %s", r.ID, s.when(r.FireAt), r.Text),
		Keyboard: reminderManageKeyboard(r.ID),
	}, nil
}

func (s *Service) ReminderEditHelp(chatID, id int64) (Reply, error) {
	r, err := s.reminderInChat(chatID, id)
	if err != nil {
		return Reply{}, err
	}

	return Reply{Text: fmt.Sprintf(
		"✏️ Reminder #R%d\nCurrent text: \"%s\"\n\nTo change it, send:\n/redit %d 15m new text\n/redit %d 2025-12-10 19:30 new text",
		r.ID, r.Text, r.ID, r.ID)}, nil
}

// reminderInChat hides reminders of other chats behind ErrNotFound.
func (s *Service) reminderInChat(chatID, id int64) (models.Reminder, error) {
	r, err := s.reminders.Get(id)
	if err != nil {
		return models.Reminder{}, err
	}
	if r.ChatID != chatID {
		return models.Reminder{}, fmt.Errorf("reminder %d: %w", id, models.ErrNotFound)
	}
	return r, nil
}
