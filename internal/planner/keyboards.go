package planner

import (
	"fmt"

	"github.com/xaenox/planner-bot/internal/intent"
	"github.com/xaenox/planner-bot/internal/models"
	"github.com/xaenox/planner-bot/internal/notify"
)

const listButtonsPerRow = 3

func button(text string, i intent.Intent) notify.Button {
	return notify.Button{Text: text, Data: i.Encode()}
}

func rsvpKeyboard(eventID int64) notify.Keyboard {
	return notify.Keyboard{{
		button("✅ Going", intent.RSVP(eventID, models.RSVPAccepted)),
		button("❌ Not going", intent.RSVP(eventID, models.RSVPDeclined)),
	}}
}

func eventManageKeyboard(eventID int64) notify.Keyboard {
	return notify.Keyboard{{
		button("✏️ Edit", intent.Of(intent.EventEdit, eventID)),
		button("🗑 Delete", intent.Of(intent.EventDelete, eventID)),
	}}
}

func reminderManageKeyboard(id int64) notify.Keyboard {
	return notify.Keyboard{{
		button("✏️ Edit", intent.Of(intent.ReminderEdit, id)),
		button("🗑 Delete", intent.Of(intent.ReminderDelete, id)),
	}}
}

func menuKeyboard() notify.Keyboard {
	return notify.Keyboard{{
		button("⏰ Reminder", intent.MenuFor(intent.MenuReminder)),
		button("📅 Event", intent.MenuFor(intent.MenuEvent)),
	}}
}

// listKeyboard has one button per listed item, events first.
func listKeyboard(events []models.Event, reminders []models.Reminder) notify.Keyboard {
	var buttons []notify.Button
	for _, e := range events {
		buttons = append(buttons, button(fmt.Sprintf("📅 #%d", e.ID), intent.Of(intent.EventView, e.ID)))
	}
	for _, r := range reminders {
		buttons = append(buttons, button(fmt.Sprintf("⏰ #R%d", r.ID), intent.Of(intent.ReminderView, r.ID)))
	}

	var kb notify.Keyboard
	for len(buttons) > 0 {
		n := min(listButtonsPerRow, len(buttons))
		kb = append(kb, buttons[:n])
		buttons = buttons[n:]
	}
	return kb
}
