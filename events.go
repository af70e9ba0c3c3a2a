package postoffice

import (
	"context"
	"fmt"
	"time"

	"github.com/rbaliyan/event/v3"
)

// Event names for post office events.
const (
	EventNameMessageSent = "postoffice.message.sent"
	EventNameInboxRead   = "postoffice.inbox.read"
)

// MessageSentEvent is published when a message is accepted into a mailbox.
type MessageSentEvent struct {
	MessageID int64     `json:"message_id"`
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Urgent    bool      `json:"urgent"`
	SentAt    time.Time `json:"sent_at"`
}

// InboxReadEvent is published when an inbox scan marks messages as read.
// Count is the number of previously-unread messages returned by the scan;
// a scan that finds nothing unread still publishes with Count zero.
type InboxReadEvent struct {
	Username string    `json:"username"`
	Count    int       `json:"count"`
	ReadAt   time.Time `json:"read_at"`
}

// ServiceEvents provides access to per-office event instances.
// Each office creates its own events bound to its own event bus, enabling
// independent event routing and parallel testing.
//
// Subscribe to events:
//
//	office.Events().MessageSent.Subscribe(ctx, handler)
//	office.Events().InboxRead.Subscribe(ctx, handler)
type ServiceEvents struct {
	// MessageSent is published when a message is accepted into a mailbox.
	MessageSent event.Event[MessageSentEvent]

	// InboxRead is published when an inbox scan marks messages as read.
	InboxRead event.Event[InboxReadEvent]
}

// newServiceEvents creates per-office event instances with a unique name prefix.
func newServiceEvents(namePrefix string) *ServiceEvents {
	return &ServiceEvents{
		MessageSent: event.New[MessageSentEvent](namePrefix + "." + EventNameMessageSent),
		InboxRead:   event.New[InboxReadEvent](namePrefix + "." + EventNameInboxRead),
	}
}

// registerServiceEvents registers per-office events with the given bus.
func registerServiceEvents(ctx context.Context, bus *event.Bus, events *ServiceEvents) error {
	if err := event.Register(ctx, bus, events.MessageSent); err != nil {
		return fmt.Errorf("register MessageSent: %w", err)
	}
	if err := event.Register(ctx, bus, events.InboxRead); err != nil {
		return fmt.Errorf("register InboxRead: %w", err)
	}
	return nil
}
