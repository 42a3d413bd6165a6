package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xaenox/planner-bot/internal/event"
	"github.com/xaenox/planner-bot/internal/models"
	"github.com/xaenox/planner-bot/internal/notify"
	"github.com/xaenox/planner-bot/internal/parser"
	"go.uber.org/zap"
)

const eventUsage = `Format:
/event 10m @user call
/event 2h @user1 @user2 meeting
/event 2025-12-10 19:30 @user meeting`

const editUsage = `Format:
/edit <id> 15m new title
/edit <id> 2025-12-10 19:30 new title`

// CreateEvent parses "<time> [@handle ...] <title>", stores the event and
// arms its notification. The event card is posted to chatID directly so
// its message can be kept up to date as answers arrive, and every invitee
// the bot already knows gets a personal invitation.
func (s *Service) CreateEvent(ctx context.Context, chatID int64, sender models.Sender, raw string) (Reply, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Reply{}, usage(models.ErrEmptyInput, eventUsage)
	}

	parsed, ok := s.parser.Parse(ctx, raw)
	if !ok {
		return Reply{}, usage(models.ErrUnparseable, eventUsage)
	}
	if !s.farEnough(parsed.FireAt) {
		return Reply{}, models.ErrTooLate
	}

	mentioned, title := parser.ExtractHandles(parsed.Text)
	handles := mentioned
	if s.includeCreator && sender.Handle != "" {
		handles = append(append([]string(nil), mentioned...), sender.Handle)
	}

	e := s.events.Create(chatID, sender.UserID, parsed.FireAt, title, handles)
	e, err := s.events.ResolveInvites(e.ID)
	if err != nil {
		return Reply{}, err
	}

	if err := s.notifier.Schedule(e.ID); err != nil {
		if _, delErr := s.events.Delete(e.ID); delErr != nil {
			s.logger.Warn("Failed to drop unscheduled event", zap.Error(delErr), zap.Int64("event_id", e.ID))
		}
		return Reply{}, err
	}

	s.logger.Info("Event created",
		zap.Int64("event_id", e.ID),
		zap.Int64("chat_id", chatID),
		zap.Int("invites", len(e.Invites)))

	card := event.Format(e, s.loc)

	var prefix strings.Builder
	for _, h := range mentioned {
		prefix.WriteString("@" + h + " ")
	}
	if prefix.Len() > 0 {
		prefix.WriteString("\n\n")
	}

	msgID, err := s.sink.Send(ctx, notify.Message{
		ChatID:   chatID,
		Text:     prefix.String() + card,
		Keyboard: s.cardKeyboard(e),
	})
	if err != nil {
		s.logger.Error("Failed to post event card",
			zap.Error(err),
			zap.Int64("event_id", e.ID),
			zap.Int64("chat_id", chatID))
	} else if err := s.events.SetCreatorMessage(e.ID, msgID); err != nil {
		s.logger.Warn("Failed to remember event card", zap.Error(err), zap.Int64("event_id", e.ID))
	}

	s.sendInvitations(ctx, e, card)
	return Reply{}, nil
}

func (s *Service) sendInvitations(ctx context.Context, e models.Event, card string) {
	for _, inv := range e.Invites {
		if !inv.Resolved() || inv.UserID == e.CreatorID || inv.UserID == e.ChatID {
			continue
		}

		name := "@" + inv.Handle
		if k, ok := s.identities.ByID(inv.UserID); ok {
			name = k.Name()
		}

		_, err := s.sink.Send(ctx, notify.Message{
			ChatID:   inv.UserID,
			Text:     fmt.Sprintf("👋 Hi, %s!\nYou're invited to an event:\n\n%s", name, card),
			Keyboard: rsvpKeyboard(e.ID),
		})
		if err != nil {
			s.logger.Warn("Failed to send invitation",
				zap.Error(err),
				zap.Int64("event_id", e.ID),
				zap.Int64("user_id", inv.UserID))
		}
	}
}

// EditEvent parses "<id> <time> <title>". Only the creator may edit. An
// edit that lands too close to now is kept but will not notify.
func (s *Service) EditEvent(ctx context.Context, sender models.Sender, raw string) (Reply, error) {
	id, rest, ok := splitID(raw, "")
	if !ok || rest == "" {
		return Reply{}, usage(models.ErrEmptyInput, editUsage)
	}

	parsed, ok := s.parser.Parse(ctx, rest)
	if !ok {
		return Reply{}, usage(models.ErrUnparseable, editUsage)
	}

	e, err := s.events.Edit(id, sender.UserID, parsed.FireAt, parsed.Text)
	if err != nil {
		return Reply{}, err
	}

	schedErr := s.notifier.Schedule(e.ID)
	if schedErr != nil && !errors.Is(schedErr, models.ErrTooLate) {
		return Reply{}, schedErr
	}

	s.refreshCard(ctx, e)
	card := event.Format(e, s.loc)

	if schedErr != nil {
		return Reply{Text: "✏️ Event updated, but its time has already passed, so no notification will be sent.\n\n" + card}, nil
	}
	return Reply{Text: "✏️ Event updated.\n\n" + card}, nil
}

// DeleteEvent cancels and forgets an event. Only the creator may delete.
func (s *Service) DeleteEvent(sender models.Sender, id int64) (Reply, error) {
	e, err := s.events.DeleteBy(id, sender.UserID)
	if err != nil {
		return Reply{}, err
	}

	s.logger.Info("Event deleted", zap.Int64("event_id", e.ID), zap.Int64("user_id", sender.UserID))
	return Reply{
		Text:  fmt.Sprintf("❌ Event #%d \"%s\" deleted.", e.ID, e.Title),
		Toast: "Event deleted",
	}, nil
}

// DeleteEventText handles "/delete <id>".
func (s *Service) DeleteEventText(sender models.Sender, raw string) (Reply, error) {
	id, _, ok := splitID(raw, "")
	if !ok {
		return Reply{}, usage(models.ErrEmptyInput, "Format:\n/delete <id>")
	}
	return s.DeleteEvent(sender, id)
}

// ViewEvent shows an event card. The creator gets edit and delete buttons,
// everyone else gets the answer buttons.
func (s *Service) ViewEvent(sender models.Sender, id int64) (Reply, error) {
	e, err := s.events.Get(id)
	if err != nil {
		return Reply{}, err
	}

	kb := rsvpKeyboard(e.ID)
	if e.CreatorID == sender.UserID {
		kb = eventManageKeyboard(e.ID)
	}
	return Reply{Text: event.Format(e, s.loc), Keyboard: kb}, nil
}

func (s *Service) EventEditHelp(sender models.Sender, id int64) (Reply, error) {
	e, err := s.events.Get(id)
	if err != nil {
		return Reply{}, err
	}
	if e.CreatorID != sender.UserID {
		return Reply{}, models.ErrForbidden
	}

	return Reply{Text: fmt.Sprintf(
		"✏️ Event #%d\nCurrent title: \"%s\"\n\nTo change it, send:\n/edit %d 15m new title\n/edit %d 2025-12-10 19:30 new title",
		e.ID, e.Title, e.ID, e.ID)}, nil
}

// RSVP records sender's answer. The returned reply replaces the pressed
// message, and the event card in the creating chat is refreshed unless it
// is the message that was pressed.
func (s *Service) RSVP(ctx context.Context, sender models.Sender, origin Origin, eventID int64, status models.RSVPStatus) (Reply, error) {
	e, err := s.events.UpdateRSVP(eventID, sender.Handle, sender.UserID, status)
	if err != nil {
		return Reply{}, err
	}

	s.logger.Info("RSVP recorded",
		zap.Int64("event_id", e.ID),
		zap.Int64("user_id", sender.UserID),
		zap.String("status", string(status)))

	if origin.ChatID != e.ChatID || origin.MessageID != e.CreatorMessageID {
		s.refreshCard(ctx, e)
	}

	toast := "Your answer: going ✅"
	if status == models.RSVPDeclined {
		toast = "Your answer: not going ❌"
	}
	return Reply{
		Text:     event.Format(e, s.loc),
		Keyboard: s.cardKeyboard(e),
		Toast:    toast,
	}, nil
}

// refreshCard rewrites the card posted when the event was created.
func (s *Service) refreshCard(ctx context.Context, e models.Event) {
	if e.CreatorMessageID == 0 {
		return
	}

	err := s.sink.Edit(ctx, e.CreatorMessageID, notify.Message{
		ChatID:   e.ChatID,
		Text:     event.Format(e, s.loc),
		Keyboard: s.cardKeyboard(e),
	})
	if err != nil {
		s.logger.Warn("Failed to refresh event card",
			zap.Error(err),
			zap.Int64("event_id", e.ID),
			zap.Int("message_id", e.CreatorMessageID))
	}
}

// cardKeyboard keeps the answer buttons while there is anyone to answer.
func (s *Service) cardKeyboard(e models.Event) notify.Keyboard {
	if len(e.Invites) == 0 {
		return nil
	}
	return rsvpKeyboard(e.ID)
}
