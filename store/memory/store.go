// Package memory provides the in-memory Store implementation.
// This is the canonical backend for the post office model: mailboxes live
// for the store's lifetime and nothing is persisted.
package memory

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rbaliyan/postoffice/store"
)

// Store implements store.Store with in-memory mailboxes.
// Safe for concurrent use: a single mutex guards the delivery counter and
// all mailboxes, so a delivery's counter increment and insertion are one
// critical section.
type Store struct {
	mu        sync.Mutex
	boxes     map[string][]*store.Record
	nextID    int64
	connected int32
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{boxes: make(map[string][]*store.Record)}
}

// Connect marks the store as connected.
func (s *Store) Connect(_ context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 0, 1) {
		return store.ErrAlreadyConnected
	}
	return nil
}

// Close marks the store as disconnected. Mailbox contents are retained so
// a reconnected store resumes where it left off.
func (s *Store) Close(_ context.Context) error {
	atomic.StoreInt32(&s.connected, 0)
	return nil
}

func (s *Store) checkConnected() error {
	if atomic.LoadInt32(&s.connected) == 0 {
		return store.ErrNotConnected
	}
	return nil
}

// Register creates one empty mailbox per username.
// Duplicate usernames collapse to a single mailbox, and usernames that
// already have a mailbox keep it untouched.
func (s *Store) Register(_ context.Context, usernames ...string) error {
	if err := s.checkConnected(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range usernames {
		if _, ok := s.boxes[u]; !ok {
			s.boxes[u] = nil
		}
	}
	return nil
}

// Deliver assigns the next delivery id and inserts the record into the
// recipient's mailbox, at the front when urgent.
func (s *Store) Deliver(_ context.Context, data store.RecordData, urgent bool) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	box, ok := s.boxes[data.Recipient]
	if !ok {
		// Counter untouched: failed sends leave no gap in the sequence.
		return 0, store.ErrMailboxNotFound
	}

	s.nextID++
	rec := &store.Record{
		ID:          s.nextID,
		Sender:      data.Sender,
		Recipient:   data.Recipient,
		Subject:     data.Subject,
		Body:        data.Body,
		Urgent:      urgent,
		DeliveredAt: time.Now().UTC(),
	}

	if urgent {
		s.boxes[data.Recipient] = append([]*store.Record{rec}, box...)
	} else {
		s.boxes[data.Recipient] = append(box, rec)
	}
	return rec.ID, nil
}

// ReadWindow marks the window as read and returns the records that were
// unread before the call, in mailbox order. The returned snapshots carry
// the post-scan state, i.e. Read is true.
func (s *Store) ReadWindow(_ context.Context, username string, limit int) ([]store.Record, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	box, ok := s.boxes[username]
	if !ok {
		return nil, store.ErrMailboxNotFound
	}

	window := len(box)
	if limit != store.ReadAll && limit < window {
		window = limit
	}

	var unread []*store.Record
	for _, rec := range box[:window] {
		if !rec.Read {
			unread = append(unread, rec)
			rec.Read = true
		}
	}

	out := make([]store.Record, len(unread))
	for i, rec := range unread {
		out[i] = *rec
	}
	return out, nil
}

// Search returns every record whose body contains substring, in mailbox
// order. Matching is a case-sensitive literal substring test.
func (s *Store) Search(_ context.Context, username, substring string) ([]store.Record, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	box, ok := s.boxes[username]
	if !ok {
		return nil, store.ErrMailboxNotFound
	}

	var out []store.Record
	for _, rec := range box {
		if strings.Contains(rec.Body, substring) {
			out = append(out, *rec)
		}
	}
	return out, nil
}

// List returns the full mailbox in delivery order.
func (s *Store) List(_ context.Context, username string) ([]store.Record, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	box, ok := s.boxes[username]
	if !ok {
		return nil, store.ErrMailboxNotFound
	}

	out := make([]store.Record, len(box))
	for i, rec := range box {
		out[i] = *rec
	}
	return out, nil
}

// Stats returns aggregate counts for a mailbox.
func (s *Store) Stats(_ context.Context, username string) (store.MailboxStats, error) {
	if err := s.checkConnected(); err != nil {
		return store.MailboxStats{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	box, ok := s.boxes[username]
	if !ok {
		return store.MailboxStats{}, store.ErrMailboxNotFound
	}

	stats := store.MailboxStats{Total: int64(len(box))}
	for _, rec := range box {
		if !rec.Read {
			stats.Unread++
		}
	}
	return stats, nil
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)
