// Package intent decodes inline-button payloads into a closed set of typed
// intents, and encodes them back.
package intent

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xaenox/planner-bot/internal/models"
)

var (
	ErrUnknownIntent   = errors.New("unknown intent")
	ErrMalformedIntent = errors.New("malformed intent")
)

// Kind enumerates every button action the bot understands.
type Kind string

const (
	EventView      Kind = "event_view"
	EventEdit      Kind = "event_edit"
	EventDelete    Kind = "event_delete"
	EventRSVP      Kind = "event_rsvp"
	ReminderView   Kind = "rem_view"
	ReminderEdit   Kind = "rem_edit"
	ReminderDelete Kind = "rem_del"
	Menu           Kind = "menu"
)

// Menu targets.
const (
	MenuReminder = "reminder"
	MenuEvent    = "event"
)

// Intent is one decoded button press. ID is set for entity intents,
// Status for EventRSVP and Target for Menu.
type Intent struct {
	Kind   Kind
	ID     int64
	Status models.RSVPStatus
	Target string
}

const (
	wireYes = "yes"
	wireNo  = "no"
)

// Decode parses "<kind>:<id>[:<arg>]" or "menu:<target>".
func Decode(data string) (Intent, error) {
	parts := strings.Split(data, ":")
	kind := Kind(parts[0])

	switch kind {
	case Menu:
		if len(parts) != 2 {
			return Intent{}, fmt.Errorf("%q: %w", data, ErrMalformedIntent)
		}
		switch parts[1] {
		case MenuReminder, MenuEvent:
			return Intent{Kind: Menu, Target: parts[1]}, nil
		default:
			return Intent{}, fmt.Errorf("%q: %w", data, ErrMalformedIntent)
		}

	case EventView, EventEdit, EventDelete, ReminderView, ReminderEdit, ReminderDelete:
		if len(parts) != 2 {
			return Intent{}, fmt.Errorf("%q: %w", data, ErrMalformedIntent)
		}
		id, err := parseID(parts[1])
		if err != nil {
			return Intent{}, fmt.Errorf("%q: %w", data, err)
		}
		return Intent{Kind: kind, ID: id}, nil

	case EventRSVP:
		if len(parts) != 3 {
			return Intent{}, fmt.Errorf("%q: %w", data, ErrMalformedIntent)
		}
		id, err := parseID(parts[1])
		if err != nil {
			return Intent{}, fmt.Errorf("%q: %w", data, err)
		}
		var status models.RSVPStatus
		switch parts[2] {
		case wireYes:
			status = models.RSVPAccepted
		case wireNo:
			status = models.RSVPDeclined
		default:
			return Intent{}, fmt.Errorf("%q: %w", data, ErrMalformedIntent)
		}
		return Intent{Kind: EventRSVP, ID: id, Status: status}, nil
	}

	return Intent{}, fmt.Errorf("%q: %w", data, ErrUnknownIntent)
}

// Encode renders the intent in its wire form.
func (i Intent) Encode() string {
	switch i.Kind {
	case Menu:
		return string(Menu) + ":" + i.Target
	case EventRSVP:
		answer := wireNo
		if i.Status == models.RSVPAccepted {
			answer = wireYes
		}
		return fmt.Sprintf("%s:%d:%s", EventRSVP, i.ID, answer)
	default:
		return fmt.Sprintf("%s:%d", i.Kind, i.ID)
	}
}

// Of builds an entity intent.
func Of(kind Kind, id int64) Intent {
	return Intent{Kind: kind, ID: id}
}

// RSVP builds an answer intent for an event.
func RSVP(eventID int64, status models.RSVPStatus) Intent {
	return Intent{Kind: EventRSVP, ID: eventID, Status: status}
}

// MenuFor builds a menu intent.
func MenuFor(target string) Intent {
	return Intent{Kind: Menu, Target: target}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrMalformedIntent
	}
	return id, nil
}
