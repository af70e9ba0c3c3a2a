// Package postoffice provides an in-memory post-office messaging library
// for Go.
//
// A post office owns one mailbox per registered user, assigns globally
// unique, strictly increasing message ids, and supports urgent delivery
// (front of the mailbox), windowed unread retrieval with mark-as-read, and
// case-sensitive substring search over message bodies.
//
// # Basic Usage
//
//	office, err := postoffice.New([]string{"newman", "peanutbutter"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx := context.Background()
//	if err := office.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer office.Close(ctx)
//
//	msg := postoffice.NewMessage("peanutbutter", "newman", "Hello", "Hello, Newman.")
//	id, err := office.Send(ctx, msg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	msg.AssignID(id)
//
//	unread, _ := office.ReadInbox(ctx, "newman")
//	hits, _ := office.SearchInbox(ctx, "newman", "Newman")
//
// Send returns the office-assigned id but does not write it back into the
// Message; callers sync it with AssignID when they want the Message object
// to reflect it.
//
// # Office Operations
//
//   - Send: deliver a message (Urgent() jumps the queue)
//   - ReadInbox: unread messages in a window, marking the window read
//   - SearchInbox: substring search over bodies
//   - Mailbox: full listing in delivery order
//   - Stats: total/unread counts per mailbox
//
// # Storage
//
// The store package defines the storage interface; store/memory is the
// canonical in-memory backend and the default. Custom stores can be
// supplied with WithStore.
//
// # Events
//
// The office publishes typed events for message lifecycle notifications
// using the github.com/rbaliyan/event/v3 library. The default transport is
// noop (events are dropped); pass WithRedisClient or WithEventTransport to
// enable delivery:
//
//	office, err := postoffice.New(users,
//	    postoffice.WithRedisClient(redisClient),
//	)
//
// Events are registered during Connect(). Access per-office events via
// Events():
//
//	office.Events().MessageSent.Subscribe(ctx, handler)
//	office.Events().InboxRead.Subscribe(ctx, handler)
package postoffice
