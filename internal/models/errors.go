package models

import "errors"

var (
	// ErrTooLate indicates the requested instant is not far enough in the future.
	ErrTooLate = errors.New("time already passed")
	// ErrUnparseable indicates the time expression could not be understood.
	ErrUnparseable = errors.New("could not parse time")
	// ErrEmptyInput indicates a required argument was missing.
	ErrEmptyInput = errors.New("missing input")
	// ErrNotFound indicates an unknown reminder or event id.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates a non-creator tried to change an event.
	ErrForbidden = errors.New("only the creator can do that")
	// ErrInvalidStatus indicates an RSVP status outside the known set.
	ErrInvalidStatus = errors.New("invalid rsvp status")
	// ErrNotInvited indicates an RSVP that could not be matched to anyone.
	ErrNotInvited = errors.New("responder is not on the invite list")
)

// IsUserError reports whether err should be shown to the user rather
// than logged as a system fault.
func IsUserError(err error) bool {
	for _, target := range []error{
		ErrTooLate, ErrUnparseable, ErrEmptyInput, ErrNotFound,
		ErrForbidden, ErrInvalidStatus, ErrNotInvited,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
