package domain

import "errors"

var (
	// ErrActivityNotFound is returned when no activity has the requested name.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrAlreadySignedUp is returned when the email is already on the roster.
	ErrAlreadySignedUp = errors.New("student already signed up for this activity")
	// ErrNotRegistered is returned when unregistering an email that is not on the roster.
	ErrNotRegistered = errors.New("student is not registered for this activity")
)

// Kind classifies domain errors for transport mapping.
type Kind string

const (
	KindNotFound Kind = "not_found"
	KindConflict Kind = "conflict"
	KindInternal Kind = "server_error"
)

// KindOf reports the kind of err. Errors outside the domain are KindInternal.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrActivityNotFound):
		return KindNotFound
	case errors.Is(err, ErrAlreadySignedUp), errors.Is(err, ErrNotRegistered):
		return KindConflict
	default:
		return KindInternal
	}
}
