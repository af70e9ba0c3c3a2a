package postoffice

import (
	"errors"
	"fmt"

	"github.com/rbaliyan/postoffice/store"
)

// Sentinel errors for the postoffice package.
// Use errors.Is() to check for these errors.
//
// Errors that have a store-level counterpart wrap it, so
// errors.Is(err, postoffice.ErrRecipientNotFound) and
// errors.Is(err, store.ErrMailboxNotFound) both match.
var (
	// ErrRecipientNotFound is returned when a username has no registered
	// mailbox. This is a programming-error-class failure: the office never
	// retries it. Wraps store.ErrMailboxNotFound.
	ErrRecipientNotFound = fmt.Errorf("postoffice: %w", store.ErrMailboxNotFound)

	// ErrNilMessage is returned when Send is given a nil message.
	ErrNilMessage = errors.New("postoffice: nil message")

	// ErrNotConnected is returned when operations are attempted before Connect().
	// Wraps store.ErrNotConnected.
	ErrNotConnected = fmt.Errorf("postoffice: %w", store.ErrNotConnected)

	// ErrAlreadyConnected is returned when Connect() is called twice.
	// Wraps store.ErrAlreadyConnected.
	ErrAlreadyConnected = fmt.Errorf("postoffice: %w", store.ErrAlreadyConnected)
)

// recipientNotFound wraps ErrRecipientNotFound with the offending username.
func recipientNotFound(username string) error {
	return fmt.Errorf("%w: %q", ErrRecipientNotFound, username)
}

// IsRecipientNotFound reports whether err indicates an unregistered username.
func IsRecipientNotFound(err error) bool {
	return errors.Is(err, ErrRecipientNotFound)
}

// EventPublishError is returned when event publishing fails but the
// operation itself succeeded. The message was delivered (or the inbox was
// read); only the notification failed.
type EventPublishError struct {
	Event string // the event name, e.g. "MessageSent"
	Err   error  // the underlying publish error
}

func (e *EventPublishError) Error() string {
	return fmt.Sprintf("postoffice: event %s publish failed: %v", e.Event, e.Err)
}

func (e *EventPublishError) Unwrap() error {
	return e.Err
}

// IsEventPublishError checks if the error is an event publish error and
// returns its details. Useful with WithEventErrorsFatal(true) when the
// caller still needs to know the underlying operation succeeded.
func IsEventPublishError(err error) (*EventPublishError, bool) {
	var epe *EventPublishError
	if errors.As(err, &epe) {
		return epe, true
	}
	return nil, false
}

// PluginError provides details about a plugin lifecycle failure.
type PluginError struct {
	Plugin string // plugin name
	Op     string // "init" or "close"
	Err    error
}

func (e *PluginError) Error() string {
	return fmt.Sprintf("postoffice: plugin %s %s failed: %v", e.Plugin, e.Op, e.Err)
}

func (e *PluginError) Unwrap() error {
	return e.Err
}
