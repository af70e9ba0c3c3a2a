package postoffice

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Send delivers a message to its recipient's mailbox.
//
// On success the office's global counter advances by one and the new value
// is returned; the sequence of returned ids is strictly increasing and
// gap-free across all mailboxes, starting at 1. An urgent delivery goes to
// the front of the mailbox, so of two urgent messages the later one ends up
// first.
//
// Send does not write the assigned id back into msg. That mirrors the
// original office behavior: the Message keeps its placeholder until the
// caller syncs it.
//
//	id, err := office.Send(ctx, msg)
//	if err == nil {
//	    msg.AssignID(id)
//	}
//
// Returns ErrRecipientNotFound when the recipient has no mailbox; the
// counter is not consumed in that case.
func (s *service) Send(ctx context.Context, msg *Message, opts ...SendOption) (int64, error) {
	if err := s.checkAccess(); err != nil {
		return 0, err
	}
	if msg == nil {
		return 0, ErrNilMessage
	}

	so := newSendOptions(opts...)

	// Setup tracing
	ctx, endSpan := s.otel.startSpan(ctx, "postoffice.send",
		attribute.String("recipient", msg.Recipient()),
		attribute.Bool("urgent", so.urgent),
	)
	start := time.Now()
	var sendErr error
	defer func() {
		endSpan(sendErr)
		s.otel.recordSend(ctx, time.Since(start), so.urgent, sendErr)
	}()

	// Bound concurrent sends
	if err := s.sendSem.Acquire(ctx, 1); err != nil {
		sendErr = err
		return 0, sendErr
	}
	defer s.sendSem.Release(1)

	if err := s.plugins.beforeSend(ctx, msg, so.urgent); err != nil {
		sendErr = err
		return 0, sendErr
	}

	id, err := s.store.Deliver(ctx, msg.data(), so.urgent)
	if err != nil {
		sendErr = wrapStoreErr(err, msg.Recipient())
		return 0, sendErr
	}

	s.logger.Debug("message delivered",
		"id", id, "recipient", msg.Recipient(), "urgent", so.urgent)

	if err := s.events.MessageSent.Publish(ctx, MessageSentEvent{
		MessageID: id,
		Sender:    msg.Sender(),
		Recipient: msg.Recipient(),
		Subject:   msg.Subject(),
		Urgent:    so.urgent,
		SentAt:    time.Now().UTC(),
	}); err != nil {
		if s.opts.eventErrorsFatal {
			// Delivery succeeded but the event failed; surface both facts.
			sendErr = &EventPublishError{Event: "MessageSent", Err: err}
			return id, sendErr
		}
		s.opts.safeEventPublishFailure("MessageSent", err)
	}

	if err := s.plugins.afterSend(ctx, msg, id); err != nil {
		sendErr = err
		return id, sendErr
	}

	return id, nil
}
