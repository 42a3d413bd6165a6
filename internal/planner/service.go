// Package planner is the application layer between the Telegram transport
// and the reminder and event stores.
package planner

import (
	"context"
	"strings"
	"time"

	"github.com/xaenox/planner-bot/internal/event"
	"github.com/xaenox/planner-bot/internal/identity"
	"github.com/xaenox/planner-bot/internal/models"
	"github.com/xaenox/planner-bot/internal/notify"
	"github.com/xaenox/planner-bot/internal/parser"
	"github.com/xaenox/planner-bot/internal/pending"
	"github.com/xaenox/planner-bot/internal/reminder"
	"github.com/xaenox/planner-bot/internal/storage"
	"go.uber.org/zap"
)

// Reply is what the bot should answer in the originating chat. For button
// presses Text replaces the pressed message and Toast is shown as a popup.
// An empty Text means nothing needs to be sent.
type Reply struct {
	Text     string
	Markdown bool
	Keyboard notify.Keyboard
	Toast    string
}

// Origin identifies the message whose button was pressed.
type Origin struct {
	ChatID    int64
	MessageID int
}

type Deps struct {
	Reminders      *reminder.Store
	Events         *event.Store
	Notifier       *event.Notifier
	Identities     *identity.Resolver
	Router         *pending.Router
	Parser         parser.Parser
	Sink           notify.Sink
	Journal        storage.Journal
	Now            func() time.Time
	Location       *time.Location
	Grace          time.Duration
	IncludeCreator bool
	HistoryLimit   int
	Logger         *zap.Logger
}

type Service struct {
	reminders      *reminder.Store
	events         *event.Store
	notifier       *event.Notifier
	identities     *identity.Resolver
	router         *pending.Router
	parser         parser.Parser
	sink           notify.Sink
	journal        storage.Journal
	now            func() time.Time
	loc            *time.Location
	grace          time.Duration
	includeCreator bool
	historyLimit   int
	logger         *zap.Logger
}

func New(d Deps) *Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.Grace <= 0 {
		d.Grace = reminder.DefaultGrace
	}
	if d.HistoryLimit <= 0 {
		d.HistoryLimit = 10
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Service{
		reminders:      d.Reminders,
		events:         d.Events,
		notifier:       d.Notifier,
		identities:     d.Identities,
		router:         d.Router,
		parser:         d.Parser,
		sink:           d.Sink,
		journal:        d.Journal,
		now:            d.Now,
		loc:            d.Location,
		grace:          d.Grace,
		includeCreator: d.IncludeCreator,
		historyLimit:   d.HistoryLimit,
		logger:         d.Logger,
	}
}

// Touch records that sender interacted with the bot. When this reveals a
// new handle, invites waiting on that handle are resolved.
func (s *Service) Touch(sender models.Sender) {
	if sender.UserID == 0 {
		return
	}
	prev, known := s.identities.ByID(sender.UserID)
	k := s.identities.Register(sender.UserID, sender.Handle, sender.DisplayName)
	if k.Handle == "" || (known && identity.SameHandle(prev.Handle, k.Handle)) {
		return
	}

	for _, e := range s.events.ListForIdentity(0, k.Handle) {
		for _, inv := range e.Invites {
			if !inv.Resolved() && identity.SameHandle(inv.Handle, k.Handle) {
				if _, err := s.events.ResolveInvites(e.ID); err != nil {
					s.logger.Warn("Failed to resolve invites",
						zap.Error(err),
						zap.Int64("event_id", e.ID))
				}
				break
			}
		}
	}
}

func (s *Service) Start(sender models.Sender) Reply {
	s.Touch(sender)
	return Reply{Text: "Hi, " + sender.Identity().Name() + "! 👋\n" +
		"I'm a reminder bot.\n" +
		"Send /help to see all commands or /menu to get started."}
}

func (s *Service) Help() Reply {
	return Reply{Text: `Available commands:
/start - Start the bot
/help - Show this help message
/menu - Create a reminder or an event step by step
/cancel - Cancel the step-by-step input
/remind <time> <text> - Set a reminder
/redit <id> <time> <text> - Change a reminder
/rdel <id> - Delete a reminder
/event <time> [@user ...] <title> - Create an event
/edit <id> <time> <title> - Change an event
/delete <id> - Delete an event
/list - Show upcoming events and reminders
/history - Show recently delivered notifications

Time can be relative (10m, 2h, 1d) or absolute (2025-12-10 19:30).`}
}

// Menu offers the step-by-step entry points.
func (s *Service) Menu() Reply {
	return Reply{
		Text:     "What would you like to create?",
		Keyboard: menuKeyboard(),
	}
}

// BeginMenu makes the sender's next free-text message feed the chosen wizard.
func (s *Service) BeginMenu(sender models.Sender, action pending.Action) Reply {
	s.router.Begin(sender.UserID, action)

	switch action {
	case pending.AwaitingReminderText:
		return Reply{
			Text:  "Send me the reminder, for example:\n10m buy milk\n2025-12-02 18:30 call mom",
			Toast: "Waiting for your reminder",
		}
	case pending.AwaitingEventText:
		return Reply{
			Text:  "Send me the event, for example:\n2h @alice @bob team sync\n2025-12-10 19:30 @alice dinner",
			Toast: "Waiting for your event",
		}
	default:
		return Reply{Text: "Okay."}
	}
}

// CancelPending drops the sender's pending wizard, if any.
func (s *Service) CancelPending(sender models.Sender) Reply {
	if s.router.Cancel(sender.UserID) {
		return Reply{Text: "Cancelled."}
	}
	return Reply{Text: "Nothing to cancel."}
}

// HandleText routes non-command text. Text outside a wizard is ignored.
func (s *Service) HandleText(ctx context.Context, chatID int64, sender models.Sender, text string) (Reply, error) {
	action, ok := s.router.Route(sender.UserID, text, false)
	if !ok {
		return Reply{}, nil
	}

	s.logger.Debug("Routing text to wizard",
		zap.Int64("user_id", sender.UserID),
		zap.Stringer("action", action))

	switch action {
	case pending.AwaitingReminderText:
		return s.Remind(ctx, chatID, text)
	case pending.AwaitingEventText:
		return s.CreateEvent(ctx, chatID, sender, text)
	default:
		return Reply{}, nil
	}
}

func (s *Service) when(t time.Time) string {
	return t.In(s.loc).Format(event.TimeLayout)
}

func (s *Service) farEnough(t time.Time) bool {
	return t.After(s.now().Add(s.grace))
}

// splitID separates a leading "<id>" (optionally "#12" or "R12") from the
// rest of the arguments.
func splitID(raw, prefix string) (int64, string, bool) {
	fields := strings.SplitN(strings.TrimSpace(raw), " ", 2)
	if len(fields) == 0 || fields[0] == "" {
		return 0, "", false
	}
	id, ok := ParseID(fields[0], prefix)
	if !ok {
		return 0, "", false
	}
	rest := ""
	if len(fields) == 2 {
		rest = strings.TrimSpace(fields[1])
	}
	return id, rest, true
}
