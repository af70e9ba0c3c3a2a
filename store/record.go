package store

import (
	"time"
)

// Record is the storage-level view of a delivered message.
// Records are snapshots: stores hand out copies, and mutations happen only
// through Store operations (ReadWindow flips the read flag).
type Record struct {
	// ID is the office-assigned delivery id, unique and strictly
	// increasing across all mailboxes.
	ID int64

	Sender    string
	Recipient string
	Subject   string
	Body      string

	// Read reports whether the record has been returned by a ReadWindow
	// scan. The transition is one-way; no operation clears it.
	Read bool

	// Urgent reports whether the record was delivered to the front of
	// the mailbox.
	Urgent bool

	// DeliveredAt is the time the record was accepted by the store.
	DeliveredAt time.Time
}

// RecordData contains the caller-supplied fields for a delivery.
// The store fills in ID, Read, Urgent, and DeliveredAt.
type RecordData struct {
	Sender    string
	Recipient string
	Subject   string
	Body      string
}
