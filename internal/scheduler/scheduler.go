// Package scheduler arms one-shot timers for entities and guarantees that
// at most one timer per entity key is live at any moment.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xaenox/planner-bot/internal/models"
	"go.uber.org/zap"
)

// Handle identifies one armed timer. The zero Handle refers to nothing and
// is safe to cancel.
type Handle struct {
	key string
	seq uint64
}

// IsZero reports whether h was never armed.
func (h Handle) IsZero() bool {
	return h.seq == 0
}

// Key returns the entity key the handle was armed for.
func (h Handle) Key() string {
	return h.key
}

// Callback runs once when a timer fires. It receives only the handle that
// fired and must look up the entity's current state itself.
type Callback func(ctx context.Context, h Handle)

type entry struct {
	seq    uint64
	fireAt time.Time
	timer  Timer
}

// Scheduler owns every pending timer of the process.
type Scheduler struct {
	mu     sync.Mutex
	clock  Clock
	logger *zap.Logger
	seq    uint64
	live   map[string]*entry
}

func New(clock Clock, logger *zap.Logger) *Scheduler {
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		clock:  clock,
		logger: logger,
		live:   make(map[string]*entry),
	}
}

// Key builds the scheduler key for an entity of the given kind.
func Key(kind string, id int64) string {
	return fmt.Sprintf("%s:%d", kind, id)
}

// Now returns the scheduler's notion of the current instant.
func (s *Scheduler) Now() time.Time {
	return s.clock.Now()
}

// Arm schedules cb to run at fireAt. It returns models.ErrTooLate when
// fireAt is not after now. Arming a key that already has a live timer is a
// bug in the caller; use Rearm for edits.
func (s *Scheduler) Arm(key string, fireAt time.Time, cb Callback) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.live[key]; ok {
		s.logger.DPanic("Timer already live for key",
			zap.String("key", key),
			zap.Time("fire_at", existing.fireAt))
		s.stopLocked(key, existing)
	}
	return s.armLocked(key, fireAt, cb)
}

// Rearm cancels the live timer for key, if any, and arms a new one in a
// single step. When fireAt is too late the old timer is still cancelled.
func (s *Scheduler) Rearm(key string, fireAt time.Time, cb Callback) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.live[key]; ok {
		s.stopLocked(key, existing)
	}
	return s.armLocked(key, fireAt, cb)
}

// Cancel stops the timer behind h. Cancelling a fired, cancelled, replaced
// or zero handle does nothing.
func (s *Scheduler) Cancel(h Handle) {
	if h.IsZero() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.live[h.key]; ok && e.seq == h.seq {
		s.stopLocked(h.key, e)
	}
}

// CancelKey stops whatever timer is live for key.
func (s *Scheduler) CancelKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.live[key]; ok {
		s.stopLocked(key, e)
	}
}

// Live reports whether h is still waiting to fire.
func (s *Scheduler) Live(h Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live[h.key]
	return ok && e.seq == h.seq
}

// Pending returns the number of armed timers.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// Stop cancels every pending timer. Used on shutdown.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, e := range s.live {
		s.stopLocked(key, e)
	}
}

func (s *Scheduler) armLocked(key string, fireAt time.Time, cb Callback) (Handle, error) {
	delay := fireAt.Sub(s.clock.Now())
	if delay <= 0 {
		return Handle{}, models.ErrTooLate
	}

	s.seq++
	h := Handle{key: key, seq: s.seq}
	e := &entry{seq: h.seq, fireAt: fireAt}
	e.timer = s.clock.AfterFunc(delay, func() { s.fire(h, cb) })
	s.live[key] = e
	return h, nil
}

func (s *Scheduler) stopLocked(key string, e *entry) {
	if e.timer != nil {
		e.timer.Stop()
	}
	delete(s.live, key)
}

func (s *Scheduler) fire(h Handle, cb Callback) {
	s.mu.Lock()
	e, ok := s.live[h.key]
	if !ok || e.seq != h.seq {
		s.mu.Unlock()
		return
	}
	delete(s.live, h.key)
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Timer callback panicked",
				zap.String("key", h.key),
				zap.Any("panic", r))
		}
	}()
	cb(context.Background(), h)
}
