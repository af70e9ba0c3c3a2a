// Package store provides the storage interface and types for the post office.
// The only shipped implementation is store/memory; the interface stays
// pluggable so applications can substitute their own mailbox storage.
package store

import (
	"context"
)

// ReadAll is the window sentinel for ReadWindow: scan the entire mailbox.
const ReadAll = -1

// Store is the storage interface for the post office.
//
// A store owns one ordered mailbox per registered username plus a single
// delivery counter shared by all mailboxes. All operations must be safe for
// concurrent use; Deliver must treat the counter increment and the mailbox
// insertion as one critical section so that concurrent sends can never
// interleave between the two.
type Store interface {
	// Lifecycle
	Connect(ctx context.Context) error
	Close(ctx context.Context) error

	// Register creates one empty mailbox per username.
	// Already-registered usernames keep their existing mailbox.
	Register(ctx context.Context, usernames ...string) error

	// Deliver assigns the next delivery id to the record and inserts it
	// into the recipient's mailbox: at the front when urgent is true, at
	// the back otherwise. Returns the assigned id.
	// Returns ErrMailboxNotFound for unregistered recipients; the counter
	// is not consumed in that case.
	Deliver(ctx context.Context, data RecordData, urgent bool) (int64, error)

	// ReadWindow scans the first limit records of the mailbox (the whole
	// mailbox when limit is ReadAll or exceeds the mailbox length),
	// marks every record in the window as read, and returns the records
	// that were unread before the call, in mailbox order.
	ReadWindow(ctx context.Context, username string, limit int) ([]Record, error)

	// Search returns every record in the mailbox whose body contains
	// substring (case-sensitive), in mailbox order. Read state is not
	// affected.
	Search(ctx context.Context, username, substring string) ([]Record, error)

	// List returns the full mailbox in delivery order.
	List(ctx context.Context, username string) ([]Record, error)

	// Stats returns aggregate counts for a mailbox.
	Stats(ctx context.Context, username string) (MailboxStats, error)
}

// MailboxStats holds aggregate counts for a single mailbox.
type MailboxStats struct {
	Total  int64
	Unread int64
}

// Clone returns a copy of the stats.
func (s *MailboxStats) Clone() *MailboxStats {
	c := *s
	return &c
}
