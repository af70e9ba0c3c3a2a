package postoffice

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// ReadInbox scans a window of the mailbox and returns the messages that
// were unread before the call, in mailbox order (urgent-first as stored).
//
// The window is the whole mailbox unless WithLimit is given and the limit
// is smaller than the mailbox. Every message in the window is marked read,
// including ones that already were, so a second identical call returns
// nothing. Messages outside the window keep their read state.
func (s *service) ReadInbox(ctx context.Context, username string, opts ...ReadOption) ([]*Message, error) {
	if err := s.checkAccess(); err != nil {
		return nil, err
	}

	ro := newReadOptions(opts...)

	ctx, endSpan := s.otel.startSpan(ctx, "postoffice.read_inbox",
		attribute.String("username", username),
		attribute.Int("limit", ro.limit),
	)
	start := time.Now()
	var readErr error
	var resultCount int
	defer func() {
		endSpan(readErr)
		s.otel.recordRead(ctx, time.Since(start), resultCount, readErr)
	}()

	recs, err := s.store.ReadWindow(ctx, username, ro.limit)
	if err != nil {
		readErr = wrapStoreErr(err, username)
		return nil, readErr
	}
	resultCount = len(recs)

	if err := s.events.InboxRead.Publish(ctx, InboxReadEvent{
		Username: username,
		Count:    len(recs),
		ReadAt:   time.Now().UTC(),
	}); err != nil {
		if s.opts.eventErrorsFatal {
			readErr = &EventPublishError{Event: "InboxRead", Err: err}
			return fromRecords(recs), readErr
		}
		s.opts.safeEventPublishFailure("InboxRead", err)
	}

	return fromRecords(recs), nil
}

// SearchInbox returns every message in the mailbox whose body contains
// substring as a literal, case-sensitive match, in mailbox order. Read
// state is not affected, and already-read messages are included.
func (s *service) SearchInbox(ctx context.Context, username, substring string) ([]*Message, error) {
	if err := s.checkAccess(); err != nil {
		return nil, err
	}

	ctx, endSpan := s.otel.startSpan(ctx, "postoffice.search_inbox",
		attribute.String("username", username),
	)
	start := time.Now()
	var searchErr error
	var resultCount int
	defer func() {
		endSpan(searchErr)
		s.otel.recordSearch(ctx, time.Since(start), resultCount, searchErr)
	}()

	recs, err := s.store.Search(ctx, username, substring)
	if err != nil {
		searchErr = wrapStoreErr(err, username)
		return nil, searchErr
	}
	resultCount = len(recs)

	return fromRecords(recs), nil
}

// Mailbox returns the full mailbox in delivery order, read or not.
func (s *service) Mailbox(ctx context.Context, username string) ([]*Message, error) {
	if err := s.checkAccess(); err != nil {
		return nil, err
	}

	ctx, endSpan := s.otel.startSpan(ctx, "postoffice.mailbox",
		attribute.String("username", username),
	)
	start := time.Now()
	var listErr error
	var resultCount int
	defer func() {
		endSpan(listErr)
		s.otel.recordList(ctx, time.Since(start), resultCount, listErr)
	}()

	recs, err := s.store.List(ctx, username)
	if err != nil {
		listErr = wrapStoreErr(err, username)
		return nil, listErr
	}
	resultCount = len(recs)

	return fromRecords(recs), nil
}
