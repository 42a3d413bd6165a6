package planner

import (
	"errors"
	"strconv"
	"strings"

	"github.com/xaenox/planner-bot/internal/models"
)

// InputError is a user error that carries a usage hint for the command.
type InputError struct {
	Err  error
	Hint string
}

func (e *InputError) Error() string { return e.Err.Error() }

func (e *InputError) Unwrap() error { return e.Err }

func usage(err error, hint string) error {
	return &InputError{Err: err, Hint: hint}
}

// Explain turns an error returned by the service into text for the user.
func Explain(err error) string {
	var msg string
	switch {
	case errors.Is(err, models.ErrTooLate):
		msg = "That time has already passed or is too close to now."
	case errors.Is(err, models.ErrUnparseable):
		msg = "I couldn't understand the time 😔"
	case errors.Is(err, models.ErrEmptyInput):
		msg = "Something is missing."
	case errors.Is(err, models.ErrNotFound):
		msg = "Not found. It may have been deleted already."
	case errors.Is(err, models.ErrForbidden):
		msg = "Only the creator can do that."
	case errors.Is(err, models.ErrNotInvited):
		msg = "I couldn't match you to the invite list. Do you have a @username set?"
	case errors.Is(err, models.ErrInvalidStatus):
		msg = "Unknown answer."
	default:
		return "Something went wrong. Please try again later."
	}

	var ie *InputError
	if errors.As(err, &ie) && ie.Hint != "" {
		msg += "\n\n" + ie.Hint
	}
	return msg
}

// ParseID reads an entity id typed by a user. A leading "#" and the given
// prefix (e.g. "R" for reminders) are accepted.
func ParseID(s, prefix string) (int64, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if prefix != "" && len(s) > len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		s = s[len(prefix):]
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
