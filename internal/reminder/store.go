// Package reminder owns reminders and the single timer each one carries.
package reminder

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xaenox/planner-bot/internal/models"
	"github.com/xaenox/planner-bot/internal/notify"
	"github.com/xaenox/planner-bot/internal/scheduler"
	"github.com/xaenox/planner-bot/internal/storage"
	"go.uber.org/zap"
)

// DefaultGrace is the minimum lead time a new reminder must have.
const DefaultGrace = 500 * time.Millisecond

const timerKind = "reminder"

type Options struct {
	Grace   time.Duration
	Journal storage.DeliveryRecorder
}

type record struct {
	models.Reminder
	timer scheduler.Handle
}

// Store keeps reminders by id and by chat. A reminder is removed from the
// store before it is delivered, so it can fire at most once.
type Store struct {
	mu      sync.RWMutex
	lastID  int64
	byID    map[int64]*record
	byChat  map[int64][]int64
	sched   *scheduler.Scheduler
	sink    notify.Sink
	journal storage.DeliveryRecorder
	grace   time.Duration
	logger  *zap.Logger
}

func NewStore(sched *scheduler.Scheduler, sink notify.Sink, logger *zap.Logger, opts Options) *Store {
	if opts.Grace <= 0 {
		opts.Grace = DefaultGrace
	}
	return &Store{
		byID:    make(map[int64]*record),
		byChat:  make(map[int64][]int64),
		sched:   sched,
		sink:    sink,
		journal: opts.Journal,
		grace:   opts.Grace,
		logger:  logger,
	}
}

// Schedule creates a reminder and arms its timer. It fails with
// models.ErrTooLate when fireAt is within the grace window.
func (s *Store) Schedule(chatID int64, text string, fireAt time.Time) (models.Reminder, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Reminder{}, models.ErrEmptyInput
	}
	if !s.farEnough(fireAt) {
		return models.Reminder{}, models.ErrTooLate
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	rec := &record{Reminder: models.Reminder{
		ID:     s.lastID,
		ChatID: chatID,
		Text:   text,
		FireAt: fireAt,
	}}

	h, err := s.sched.Arm(scheduler.Key(timerKind, rec.ID), fireAt, s.onFire(rec.ID))
	if err != nil {
		return models.Reminder{}, fmt.Errorf("arm reminder %d: %w", rec.ID, err)
	}
	rec.timer = h

	s.byID[rec.ID] = rec
	s.byChat[chatID] = append(s.byChat[chatID], rec.ID)

	s.logger.Debug("Reminder scheduled",
		zap.Int64("reminder_id", rec.ID),
		zap.Int64("chat_id", chatID),
		zap.Time("fire_at", fireAt))
	return rec.Reminder, nil
}

// Edit replaces the time and, when text is not empty, the text of a
// reminder. The old timer is always cancelled. A new one is armed only if
// fireAt leaves enough lead time; otherwise the edit is still applied and
// the reminder stays silent. The returned flag tells whether a timer is armed.
func (s *Store) Edit(id int64, fireAt time.Time, text string) (models.Reminder, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return models.Reminder{}, false, fmt.Errorf("reminder %d: %w", id, models.ErrNotFound)
	}

	rec.FireAt = fireAt
	if text = strings.TrimSpace(text); text != "" {
		rec.Text = text
	}

	if !s.farEnough(fireAt) {
		s.sched.Cancel(rec.timer)
		rec.timer = scheduler.Handle{}
		return rec.Reminder, false, nil
	}

	h, err := s.sched.Rearm(scheduler.Key(timerKind, id), fireAt, s.onFire(id))
	if err != nil {
		rec.timer = scheduler.Handle{}
		return rec.Reminder, false, nil
	}
	rec.timer = h
	return rec.Reminder, true, nil
}

// Delete cancels the reminder's timer and forgets it.
func (s *Store) Delete(id int64) (models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return models.Reminder{}, fmt.Errorf("reminder %d: %w", id, models.ErrNotFound)
	}
	s.sched.Cancel(rec.timer)
	s.removeLocked(rec)
	return rec.Reminder, nil
}

func (s *Store) Get(id int64) (models.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		return models.Reminder{}, fmt.Errorf("reminder %d: %w", id, models.ErrNotFound)
	}
	return rec.Reminder, nil
}

// Armed reports whether the reminder currently has a live timer.
func (s *Store) Armed(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	return ok && s.sched.Live(rec.timer)
}

// ListForChat returns the chat's reminders in creation order.
func (s *Store) ListForChat(chatID int64) []models.Reminder {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byChat[chatID]
	result := make([]models.Reminder, 0, len(ids))
	for _, id := range ids {
		if rec, ok := s.byID[id]; ok {
			result = append(result, rec.Reminder)
		}
	}
	return result
}

// Active returns the chat's reminders still in the future, soonest first.
// Reminders that can no longer fire (an edit moved them inside the grace
// window and their time has now passed) are dropped from the store.
func (s *Store) Active(chatID int64, now time.Time) []models.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := append([]int64(nil), s.byChat[chatID]...)
	var active []models.Reminder
	for _, id := range ids {
		rec, ok := s.byID[id]
		if !ok {
			continue
		}
		if rec.FireAt.After(now) {
			active = append(active, rec.Reminder)
			continue
		}
		if !s.sched.Live(rec.timer) {
			s.removeLocked(rec)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].FireAt.Before(active[j].FireAt)
	})
	return active
}

func (s *Store) farEnough(fireAt time.Time) bool {
	return fireAt.After(s.sched.Now().Add(s.grace))
}

func (s *Store) removeLocked(rec *record) {
	delete(s.byID, rec.ID)

	ids := s.byChat[rec.ChatID]
	filtered := ids[:0]
	for _, id := range ids {
		if id != rec.ID {
			filtered = append(filtered, id)
		}
	}
	if len(filtered) == 0 {
		delete(s.byChat, rec.ChatID)
	} else {
		s.byChat[rec.ChatID] = filtered
	}
}

func (s *Store) onFire(id int64) scheduler.Callback {
	return func(ctx context.Context, h scheduler.Handle) {
		s.fire(ctx, id, h)
	}
}

func (s *Store) fire(ctx context.Context, id int64, h scheduler.Handle) {
	s.mu.Lock()
	rec, ok := s.byID[id]
	if !ok || rec.timer != h {
		s.mu.Unlock()
		return
	}
	s.removeLocked(rec)
	reminder := rec.Reminder
	s.mu.Unlock()

	text := "🔔 Reminder: " + reminder.Text
	delivery := models.Delivery{
		Kind:        models.DeliveryReminder,
		EntityID:    reminder.ID,
		ChatID:      reminder.ChatID,
		Text:        text,
		DeliveredAt: s.sched.Now(),
	}

	if _, err := s.sink.Send(ctx, notify.Message{ChatID: reminder.ChatID, Text: text}); err != nil {
		s.logger.Error("Failed to deliver reminder",
			zap.Error(err),
			zap.Int64("reminder_id", reminder.ID),
			zap.Int64("chat_id", reminder.ChatID))
		delivery.Error = err.Error()
	}

	if s.journal != nil {
		if err := s.journal.RecordDelivery(ctx, delivery); err != nil {
			s.logger.Error("Failed to journal reminder delivery",
				zap.Error(err),
				zap.Int64("reminder_id", reminder.ID))
		}
	}
}
