package models

import "time"

// RSVPStatus is the answer an invitee gave for an event.
type RSVPStatus string

const (
	RSVPPending  RSVPStatus = "pending"
	RSVPAccepted RSVPStatus = "accepted"
	RSVPDeclined RSVPStatus = "declined"
)

// Valid reports whether s is one of the known statuses.
func (s RSVPStatus) Valid() bool {
	switch s {
	case RSVPPending, RSVPAccepted, RSVPDeclined:
		return true
	default:
		return false
	}
}

// Invite tracks one invitee of an event. UserID is zero until the
// invitee's numeric identity becomes known.
type Invite struct {
	Handle string     `json:"handle"`
	UserID int64      `json:"user_id,omitempty"`
	Status RSVPStatus `json:"status"`
}

// Resolved reports whether the invitee's numeric identity is known.
func (i Invite) Resolved() bool {
	return i.UserID != 0
}

// Event is a scheduled gathering with an ordered invite list.
type Event struct {
	ID               int64     `json:"id"`
	ChatID           int64     `json:"chat_id"`
	CreatorID        int64     `json:"creator_id"`
	Title            string    `json:"title"`
	FireAt           time.Time `json:"fire_at"`
	Invites          []Invite  `json:"invites"`
	CreatorMessageID int       `json:"creator_message_id,omitempty"`
	Fired            bool      `json:"fired"`
}

// Clone returns a copy of e that shares no invite storage with it.
func (e Event) Clone() Event {
	if e.Invites != nil {
		invites := make([]Invite, len(e.Invites))
		copy(invites, e.Invites)
		e.Invites = invites
	}
	return e
}

// InviteFor returns the invite held by userID, if any.
func (e Event) InviteFor(userID int64) (Invite, bool) {
	for _, inv := range e.Invites {
		if inv.UserID != 0 && inv.UserID == userID {
			return inv, true
		}
	}
	return Invite{}, false
}
