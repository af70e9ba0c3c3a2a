package store

import "errors"

// Sentinel errors for the store package.
var (
	// ErrMailboxNotFound is returned when a username has no registered mailbox.
	ErrMailboxNotFound = errors.New("store: mailbox not found")

	// ErrNotConnected is returned when operations are attempted before Connect().
	ErrNotConnected = errors.New("store: not connected")

	// ErrAlreadyConnected is returned when Connect() is called twice.
	ErrAlreadyConnected = errors.New("store: already connected")
)

// Error checking helpers.

func IsMailboxNotFound(err error) bool {
	return errors.Is(err, ErrMailboxNotFound)
}

func IsNotConnected(err error) bool {
	return errors.Is(err, ErrNotConnected)
}
