package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/xaenox/planner-bot/internal/event"
	"github.com/xaenox/planner-bot/internal/identity"
	"github.com/xaenox/planner-bot/internal/models"
)

// List shows sender's upcoming events and chatID's upcoming reminders.
func (s *Service) List(chatID int64, sender models.Sender) Reply {
	now := s.now()
	events := s.events.Active(sender.UserID, sender.Handle, now)
	reminders := s.reminders.Active(chatID, now)

	var b strings.Builder
	if len(events) == 0 {
		b.WriteString("📅 No upcoming events.")
	} else {
		b.WriteString("📅 Your events:\n")
		for _, e := range events {
			fmt.Fprintf(&b, "\n#%d - %s\n%s\n%s\n", e.ID, s.when(e.FireAt), e.Title, role(e, sender))
		}
	}

	b.WriteString("\n\n")
	if len(reminders) == 0 {
		b.WriteString("⏰ No reminders in this chat.")
	} else {
		b.WriteString("⏰ Reminders in this chat:\n")
		for _, r := range reminders {
			fmt.Fprintf(&b, "\n#R%d - %s\n%s\n", r.ID, s.when(r.FireAt), r.Text)
		}
	}

	return Reply{
		Text:     strings.TrimSpace(b.String()),
		Keyboard: listKeyboard(events, reminders),
	}
}

func role(e models.Event, sender models.Sender) string {
	if e.CreatorID == sender.UserID {
		return "Role: creator"
	}
	if inv, ok := e.InviteFor(sender.UserID); ok {
		return "Role: participant, " + event.StatusLabel(inv.Status)
	}
	for _, inv := range e.Invites {
		if sender.Handle != "" && identity.SameHandle(inv.Handle, sender.Handle) {
			return "Role: participant, " + event.StatusLabel(inv.Status)
		}
	}
	return "Role: participant"
}

// History lists the most recent notifications delivered to chatID.
func (s *Service) History(ctx context.Context, chatID int64) (Reply, error) {
	if s.journal == nil {
		return Reply{Text: "Delivery history is not available."}, nil
	}

	deliveries, err := s.journal.RecentDeliveries(ctx, chatID, s.historyLimit)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to load history: %w", err)
	}
	if len(deliveries) == 0 {
		return Reply{Text: "Nothing has been delivered here yet."}, nil
	}

	var b strings.Builder
	b.WriteString("🗂 Recent notifications:\n")
	for _, d := range deliveries {
		mark := "✅"
		if d.Failed() {
			mark = "⚠️"
		}
		fmt.Fprintf(&b, "\n%s %s %s", mark, s.when(d.DeliveredAt), deliveryLabel(d))
	}
	return Reply{Text: b.String()}, nil
}

func deliveryLabel(d models.Delivery) string {
	switch d.Kind {
	case models.DeliveryReminder:
		return fmt.Sprintf("reminder #R%d", d.EntityID)
	case models.DeliveryEventPersonal:
		return fmt.Sprintf("event #%d (personal)", d.EntityID)
	default:
		return fmt.Sprintf("event #%d", d.EntityID)
	}
}
