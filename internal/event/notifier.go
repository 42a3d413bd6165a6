package event

import (
	"context"
	"fmt"
	"time"

	"github.com/xaenox/planner-bot/internal/models"
	"github.com/xaenox/planner-bot/internal/notify"
	"github.com/xaenox/planner-bot/internal/scheduler"
	"github.com/xaenox/planner-bot/internal/storage"
	"go.uber.org/zap"
)

// DefaultGrace is the minimum lead time an event notification must have.
const DefaultGrace = 500 * time.Millisecond

const timerKind = "event"

type NotifierOptions struct {
	Grace    time.Duration
	Journal  storage.DeliveryRecorder
	Location *time.Location
}

// Notifier arms and fires the start-of-event notification.
//
// When an event starts, the chat gets one broadcast and every invitee who
// accepted and whose identity is known gets a personal message. The creator
// is never messaged personally; the broadcast covers them.
type Notifier struct {
	store   *Store
	sink    notify.Sink
	journal storage.DeliveryRecorder
	grace   time.Duration
	loc     *time.Location
	logger  *zap.Logger
}

func NewNotifier(store *Store, sink notify.Sink, logger *zap.Logger, opts NotifierOptions) *Notifier {
	if opts.Grace <= 0 {
		opts.Grace = DefaultGrace
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Notifier{
		store:   store,
		sink:    sink,
		journal: opts.Journal,
		grace:   opts.Grace,
		loc:     opts.Location,
		logger:  logger,
	}
}

// Schedule (re)arms the notification for the event's current time. Any
// earlier timer for the event is cancelled first. If the event is within
// the grace window nothing is armed and models.ErrTooLate is returned.
func (n *Notifier) Schedule(eventID int64) error {
	s := n.store
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[eventID]
	if !ok {
		return fmt.Errorf("event %d: %w", eventID, models.ErrNotFound)
	}

	if !rec.FireAt.After(s.sched.Now().Add(n.grace)) {
		s.sched.Cancel(rec.timer)
		rec.timer = scheduler.Handle{}
		return fmt.Errorf("event %d: %w", eventID, models.ErrTooLate)
	}

	h, err := s.sched.Rearm(scheduler.Key(timerKind, eventID), rec.FireAt, n.onFire(eventID))
	if err != nil {
		rec.timer = scheduler.Handle{}
		return fmt.Errorf("arm event %d: %w", eventID, err)
	}
	rec.timer = h
	return nil
}

// Cancel stops the pending notification, if any, without touching the event.
func (n *Notifier) Cancel(eventID int64) {
	s := n.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.byID[eventID]; ok {
		s.sched.Cancel(rec.timer)
		rec.timer = scheduler.Handle{}
	}
}

// Armed reports whether the event has a live notification timer.
func (n *Notifier) Armed(eventID int64) bool {
	s := n.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[eventID]
	return ok && s.sched.Live(rec.timer)
}

func (n *Notifier) onFire(eventID int64) scheduler.Callback {
	return func(ctx context.Context, h scheduler.Handle) {
		n.fire(ctx, eventID, h)
	}
}

func (n *Notifier) fire(ctx context.Context, eventID int64, h scheduler.Handle) {
	s := n.store
	s.mu.Lock()
	rec, ok := s.byID[eventID]
	if !ok || rec.timer != h {
		s.mu.Unlock()
		return
	}
	rec.timer = scheduler.Handle{}
	rec.Fired = true
	e := rec.Event.Clone()
	s.mu.Unlock()

	card := Format(e, n.loc)
	n.deliver(ctx, e, models.DeliveryEventBroadcast, e.ChatID, "🔔 It's time for the event!\n\n"+card)

	for _, inv := range e.Invites {
		if !inv.Resolved() || inv.Status != models.RSVPAccepted || inv.UserID == e.CreatorID {
			continue
		}
		n.deliver(ctx, e, models.DeliveryEventPersonal, inv.UserID, "🔔 Event reminder:\n\n"+card)
	}
}

func (n *Notifier) deliver(ctx context.Context, e models.Event, kind models.DeliveryKind, chatID int64, text string) {
	delivery := models.Delivery{
		Kind:        kind,
		EntityID:    e.ID,
		ChatID:      chatID,
		Text:        text,
		DeliveredAt: n.store.sched.Now(),
	}

	if _, err := n.sink.Send(ctx, notify.Message{ChatID: chatID, Text: text}); err != nil {
		n.logger.Error("Failed to deliver event notification",
			zap.Error(err),
			zap.Int64("event_id", e.ID),
			zap.Int64("chat_id", chatID),
			zap.String("kind", string(kind)))
		delivery.Error = err.Error()
	}

	if n.journal != nil {
		if err := n.journal.RecordDelivery(ctx, delivery); err != nil {
			n.logger.Error("Failed to journal event delivery",
				zap.Error(err),
				zap.Int64("event_id", e.ID))
		}
	}
}
