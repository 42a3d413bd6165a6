package testutil

import (
	"context"
	"sync"

	"github.com/xaenox/planner-bot/internal/notify"
)

// Edit is one recorded call to RecordingSink.Edit.
type Edit struct {
	MessageID int
	Message   notify.Message
}

// RecordingSink captures everything sent through it.
type RecordingSink struct {
	mu     sync.Mutex
	nextID int
	sent   []notify.Message
	edits  []Edit
	fail   map[int64]error
}

func NewRecordingSink() *RecordingSink {
	return &RecordingSink{fail: make(map[int64]error)}
}

// FailFor makes every send or edit to chatID return err.
func (s *RecordingSink) FailFor(chatID int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[chatID] = err
}

func (s *RecordingSink) Send(_ context.Context, msg notify.Message) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail[msg.ChatID]; err != nil {
		return 0, err
	}
	s.nextID++
	s.sent = append(s.sent, msg)
	return s.nextID, nil
}

func (s *RecordingSink) Edit(_ context.Context, messageID int, msg notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail[msg.ChatID]; err != nil {
		return err
	}
	s.edits = append(s.edits, Edit{MessageID: messageID, Message: msg})
	return nil
}

// Sent returns a copy of all successfully sent messages.
func (s *RecordingSink) Sent() []notify.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notify.Message(nil), s.sent...)
}

// SentTo returns the messages delivered to chatID.
func (s *RecordingSink) SentTo(chatID int64) []notify.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []notify.Message
	for _, m := range s.sent {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

// Edits returns a copy of all recorded edits.
func (s *RecordingSink) Edits() []Edit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Edit(nil), s.edits...)
}

// Reset forgets everything recorded so far.
func (s *RecordingSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = nil
	s.edits = nil
}
