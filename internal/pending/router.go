// Package pending routes a user's next free-text message into the wizard
// they picked from the menu.
package pending

import "sync"

// Action is what a user's next free-text message will be used for.
type Action int

const (
	Idle Action = iota
	AwaitingReminderText
	AwaitingEventText
)

func (a Action) String() string {
	switch a {
	case AwaitingReminderText:
		return "awaiting_reminder_text"
	case AwaitingEventText:
		return "awaiting_event_text"
	default:
		return "idle"
	}
}

// Router holds at most one pending action per user.
type Router struct {
	mu    sync.Mutex
	slots map[int64]Action
}

func NewRouter() *Router {
	return &Router{slots: make(map[int64]Action)}
}

// Begin arms the user's slot, replacing whatever was pending.
func (r *Router) Begin(userID int64, action Action) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if action == Idle {
		delete(r.slots, userID)
		return
	}
	r.slots[userID] = action
}

// Route decides where an inbound message goes. Commands never touch the
// slot. Free text consumes the slot whatever happens downstream; the
// returned flag is false when nothing was pending.
func (r *Router) Route(userID int64, text string, isCommand bool) (Action, bool) {
	if isCommand {
		return Idle, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	action, ok := r.slots[userID]
	if !ok {
		return Idle, false
	}
	delete(r.slots, userID)
	return action, true
}

// Peek returns the pending action without consuming it.
func (r *Router) Peek(userID int64) Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slots[userID]
}

// Cancel clears the slot and reports whether anything was pending.
func (r *Router) Cancel(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.slots[userID]
	delete(r.slots, userID)
	return ok
}
