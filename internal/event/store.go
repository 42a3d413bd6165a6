// Package event owns events, their invite lists and the RSVP state machine,
// and schedules the notification each event sends when it starts.
package event

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xaenox/planner-bot/internal/identity"
	"github.com/xaenox/planner-bot/internal/models"
	"github.com/xaenox/planner-bot/internal/scheduler"
)

// IdentityLookup resolves handles to users that have talked to the bot.
type IdentityLookup interface {
	ResolveByHandle(handle string) (models.KnownIdentity, bool)
}

type record struct {
	models.Event
	timer scheduler.Handle
}

// Store keeps events by id and by chat. Events stay in the store after
// they fire until someone deletes them.
type Store struct {
	mu         sync.RWMutex
	lastID     int64
	byID       map[int64]*record
	byChat     map[int64][]int64
	sched      *scheduler.Scheduler
	identities IdentityLookup
}

func NewStore(sched *scheduler.Scheduler, identities IdentityLookup) *Store {
	return &Store{
		byID:       make(map[int64]*record),
		byChat:     make(map[int64][]int64),
		sched:      sched,
		identities: identities,
	}
}

// Create builds an event with a pending invite per distinct handle. It
// neither resolves identities nor arms a timer.
func (s *Store) Create(chatID, creatorID int64, fireAt time.Time, title string, handles []string) models.Event {
	invites := make([]models.Invite, 0, len(handles))
	seen := make(map[string]struct{}, len(handles))
	for _, h := range handles {
		key := identity.Normalize(h)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		invites = append(invites, models.Invite{
			Handle: strings.TrimPrefix(strings.TrimSpace(h), "@"),
			Status: models.RSVPPending,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	rec := &record{Event: models.Event{
		ID:        s.lastID,
		ChatID:    chatID,
		CreatorID: creatorID,
		Title:     strings.TrimSpace(title),
		FireAt:    fireAt,
		Invites:   invites,
	}}
	s.byID[rec.ID] = rec
	s.byChat[chatID] = append(s.byChat[chatID], rec.ID)
	return rec.Event.Clone()
}

// UpdateRSVP records an answer. The responder is matched by userID first,
// then by handle; a responder matching neither joins the event, provided a
// handle is known. A handle match whose invite already belongs to another
// user is refused.
func (s *Store) UpdateRSVP(eventID int64, handle string, userID int64, status models.RSVPStatus) (models.Event, error) {
	if status != models.RSVPAccepted && status != models.RSVPDeclined {
		return models.Event{}, fmt.Errorf("rsvp %q: %w", status, models.ErrInvalidStatus)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[eventID]
	if !ok {
		return models.Event{}, fmt.Errorf("event %d: %w", eventID, models.ErrNotFound)
	}

	idx := -1
	if userID != 0 {
		for i, inv := range rec.Invites {
			if inv.UserID == userID {
				idx = i
				break
			}
		}
	}
	if idx < 0 && identity.Normalize(handle) != "" {
		for i, inv := range rec.Invites {
			if identity.SameHandle(inv.Handle, handle) {
				if inv.Resolved() && inv.UserID != userID {
					return models.Event{}, fmt.Errorf("event %d handle @%s: %w", eventID, inv.Handle, models.ErrNotInvited)
				}
				idx = i
				break
			}
		}
	}

	switch {
	case idx >= 0:
		rec.Invites[idx].Status = status
		if !rec.Invites[idx].Resolved() {
			rec.Invites[idx].UserID = userID
		}
	case identity.Normalize(handle) != "":
		rec.Invites = append(rec.Invites, models.Invite{
			Handle: strings.TrimPrefix(strings.TrimSpace(handle), "@"),
			UserID: userID,
			Status: status,
		})
	default:
		return models.Event{}, fmt.Errorf("event %d: %w", eventID, models.ErrNotInvited)
	}

	return rec.Event.Clone(), nil
}

// Edit changes the time and, when title is not empty, the title. Only the
// creator may edit. RSVP state is left untouched. The pending notification
// is cancelled in the same critical section, so the old timer can never
// fire for the moved event; the caller must reschedule it.
func (s *Store) Edit(eventID, actorID int64, fireAt time.Time, title string) (models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[eventID]
	if !ok {
		return models.Event{}, fmt.Errorf("event %d: %w", eventID, models.ErrNotFound)
	}
	if rec.CreatorID != actorID {
		return models.Event{}, fmt.Errorf("edit event %d: %w", eventID, models.ErrForbidden)
	}

	s.sched.Cancel(rec.timer)
	rec.timer = scheduler.Handle{}

	rec.FireAt = fireAt
	if title = strings.TrimSpace(title); title != "" {
		rec.Title = title
	}
	rec.Fired = false
	return rec.Event.Clone(), nil
}

// Delete cancels the event's timer and removes it.
func (s *Store) Delete(eventID int64) (models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[eventID]
	if !ok {
		return models.Event{}, fmt.Errorf("event %d: %w", eventID, models.ErrNotFound)
	}
	s.sched.Cancel(rec.timer)
	s.removeLocked(rec)
	return rec.Event.Clone(), nil
}

// DeleteBy deletes the event on behalf of actorID, who must be its creator.
func (s *Store) DeleteBy(eventID, actorID int64) (models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[eventID]
	if !ok {
		return models.Event{}, fmt.Errorf("event %d: %w", eventID, models.ErrNotFound)
	}
	if rec.CreatorID != actorID {
		return models.Event{}, fmt.Errorf("delete event %d: %w", eventID, models.ErrForbidden)
	}
	s.sched.Cancel(rec.timer)
	s.removeLocked(rec)
	return rec.Event.Clone(), nil
}

// SetCreatorMessage remembers which message shows the creator live RSVP updates.
func (s *Store) SetCreatorMessage(eventID int64, messageID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[eventID]
	if !ok {
		return fmt.Errorf("event %d: %w", eventID, models.ErrNotFound)
	}
	rec.CreatorMessageID = messageID
	return nil
}

// ResolveInvites fills in the user id of every unresolved invite whose
// handle is now known. Resolved invites are never rewritten.
func (s *Store) ResolveInvites(eventID int64) (models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[eventID]
	if !ok {
		return models.Event{}, fmt.Errorf("event %d: %w", eventID, models.ErrNotFound)
	}
	if s.identities == nil {
		return rec.Event.Clone(), nil
	}
	for i, inv := range rec.Invites {
		if inv.Resolved() {
			continue
		}
		if k, found := s.identities.ResolveByHandle(inv.Handle); found {
			rec.Invites[i].UserID = k.UserID
		}
	}
	return rec.Event.Clone(), nil
}

func (s *Store) Get(eventID int64) (models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[eventID]
	if !ok {
		return models.Event{}, fmt.Errorf("event %d: %w", eventID, models.ErrNotFound)
	}
	return rec.Event.Clone(), nil
}

// ListForChat returns the chat's events in creation order.
func (s *Store) ListForChat(chatID int64) []models.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byChat[chatID]
	result := make([]models.Event, 0, len(ids))
	for _, id := range ids {
		if rec, ok := s.byID[id]; ok {
			result = append(result, rec.Event.Clone())
		}
	}
	return result
}

// ListForIdentity returns every event the user created or is invited to,
// ordered by id.
func (s *Store) ListForIdentity(userID int64, handle string) []models.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Event
	for _, rec := range s.byID {
		if involves(rec.Event, userID, handle) {
			result = append(result, rec.Event.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

// Active returns the user's events that have not started yet, soonest first.
func (s *Store) Active(userID int64, handle string, now time.Time) []models.Event {
	all := s.ListForIdentity(userID, handle)
	active := all[:0]
	for _, e := range all {
		if e.FireAt.After(now) {
			active = append(active, e)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].FireAt.Before(active[j].FireAt)
	})
	return active
}

func involves(e models.Event, userID int64, handle string) bool {
	if e.CreatorID == userID {
		return true
	}
	for _, inv := range e.Invites {
		if identity.SameHandle(inv.Handle, handle) {
			return true
		}
		if userID != 0 && inv.UserID == userID {
			return true
		}
	}
	return false
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
