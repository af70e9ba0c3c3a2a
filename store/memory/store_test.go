package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/rbaliyan/postoffice/store"
)

func setupStore(t *testing.T, usernames ...string) *Store {
	t.Helper()
	s := New()
	ctx := context.Background()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := s.Register(ctx, usernames...); err != nil {
		t.Fatalf("register: %v", err)
	}
	return s
}

func deliver(t *testing.T, s *Store, recipient, body string, urgent bool) int64 {
	t.Helper()
	id, err := s.Deliver(context.Background(), store.RecordData{
		Sender:    "sender",
		Recipient: recipient,
		Subject:   "subject",
		Body:      body,
	}, urgent)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	return id
}

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	t.Run("operations fail before connect", func(t *testing.T) {
		if err := s.Register(ctx, "alice"); !errors.Is(err, store.ErrNotConnected) {
			t.Errorf("expected ErrNotConnected, got %v", err)
		}
		if _, err := s.List(ctx, "alice"); !errors.Is(err, store.ErrNotConnected) {
			t.Errorf("expected ErrNotConnected, got %v", err)
		}
	})

	t.Run("double connect fails", func(t *testing.T) {
		if err := s.Connect(ctx); err != nil {
			t.Fatalf("connect: %v", err)
		}
		if err := s.Connect(ctx); !errors.Is(err, store.ErrAlreadyConnected) {
			t.Errorf("expected ErrAlreadyConnected, got %v", err)
		}
	})

	t.Run("contents survive reconnect", func(t *testing.T) {
		if err := s.Register(ctx, "alice"); err != nil {
			t.Fatalf("register: %v", err)
		}
		deliver(t, s, "alice", "kept", false)

		if err := s.Close(ctx); err != nil {
			t.Fatalf("close: %v", err)
		}
		if err := s.Connect(ctx); err != nil {
			t.Fatalf("reconnect: %v", err)
		}

		recs, err := s.List(ctx, "alice")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(recs) != 1 || recs[0].Body != "kept" {
			t.Errorf("expected retained record, got %v", recs)
		}
	})
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t, "alice")

	t.Run("re-registering keeps the mailbox", func(t *testing.T) {
		deliver(t, s, "alice", "body", false)

		if err := s.Register(ctx, "alice"); err != nil {
			t.Fatalf("register: %v", err)
		}

		recs, err := s.List(ctx, "alice")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(recs) != 1 {
			t.Errorf("expected mailbox to survive re-registration, got %d records", len(recs))
		}
	})
}

func TestDeliver(t *testing.T) {
	ctx := context.Background()

	t.Run("ids are sequential across mailboxes", func(t *testing.T) {
		s := setupStore(t, "alice", "bob")
		if id := deliver(t, s, "alice", "b", false); id != 1 {
			t.Errorf("expected id 1, got %d", id)
		}
		if id := deliver(t, s, "bob", "b", false); id != 2 {
			t.Errorf("expected id 2, got %d", id)
		}
	})

	t.Run("unknown recipient consumes no id", func(t *testing.T) {
		s := setupStore(t, "alice")
		_, err := s.Deliver(ctx, store.RecordData{Recipient: "ghost"}, false)
		if !store.IsMailboxNotFound(err) {
			t.Fatalf("expected ErrMailboxNotFound, got %v", err)
		}
		if id := deliver(t, s, "alice", "b", false); id != 1 {
			t.Errorf("expected id 1 after failed delivery, got %d", id)
		}
	})

	t.Run("urgent prepends", func(t *testing.T) {
		s := setupStore(t, "alice")
		deliver(t, s, "alice", "normal", false)
		deliver(t, s, "alice", "urgent1", true)
		deliver(t, s, "alice", "urgent2", true)

		recs, err := s.List(ctx, "alice")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		want := []string{"urgent2", "urgent1", "normal"}
		for i, body := range want {
			if recs[i].Body != body {
				t.Errorf("position %d: expected %q, got %q", i, body, recs[i].Body)
			}
		}
		if !recs[0].Urgent || recs[2].Urgent {
			t.Error("expected urgent flags to match delivery mode")
		}
	})

	t.Run("records carry delivery time", func(t *testing.T) {
		s := setupStore(t, "alice")
		deliver(t, s, "alice", "b", false)
		recs, err := s.List(ctx, "alice")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if recs[0].DeliveredAt.IsZero() {
			t.Error("expected DeliveredAt to be set")
		}
	})
}

func TestReadWindow(t *testing.T) {
	ctx := context.Background()

	t.Run("marks the window and returns prior unread", func(t *testing.T) {
		s := setupStore(t, "alice")
		deliver(t, s, "alice", "one", false)
		deliver(t, s, "alice", "two", false)
		deliver(t, s, "alice", "three", false)

		recs, err := s.ReadWindow(ctx, "alice", 2)
		if err != nil {
			t.Fatalf("read window: %v", err)
		}
		if len(recs) != 2 {
			t.Fatalf("expected 2 records, got %d", len(recs))
		}
		for i, rec := range recs {
			if !rec.Read {
				t.Errorf("record %d: expected post-scan snapshot to be read", i)
			}
		}

		// Third entry is outside the window and stays unread.
		rest, err := s.ReadWindow(ctx, "alice", store.ReadAll)
		if err != nil {
			t.Fatalf("read window: %v", err)
		}
		if len(rest) != 1 || rest[0].Body != "three" {
			t.Errorf("expected only the third record, got %v", rest)
		}
	})

	t.Run("already-read records are skipped but re-marked", func(t *testing.T) {
		s := setupStore(t, "alice")
		deliver(t, s, "alice", "one", false)

		if _, err := s.ReadWindow(ctx, "alice", store.ReadAll); err != nil {
			t.Fatalf("read window: %v", err)
		}
		recs, err := s.ReadWindow(ctx, "alice", store.ReadAll)
		if err != nil {
			t.Fatalf("read window: %v", err)
		}
		if len(recs) != 0 {
			t.Errorf("expected no records on second scan, got %d", len(recs))
		}
	})

	t.Run("window larger than mailbox scans everything", func(t *testing.T) {
		s := setupStore(t, "alice")
		deliver(t, s, "alice", "one", false)

		recs, err := s.ReadWindow(ctx, "alice", 100)
		if err != nil {
			t.Fatalf("read window: %v", err)
		}
		if len(recs) != 1 {
			t.Errorf("expected 1 record, got %d", len(recs))
		}
	})

	t.Run("unknown mailbox", func(t *testing.T) {
		s := setupStore(t)
		if _, err := s.ReadWindow(ctx, "ghost", store.ReadAll); !store.IsMailboxNotFound(err) {
			t.Errorf("expected ErrMailboxNotFound, got %v", err)
		}
	})
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t, "alice")
	deliver(t, s, "alice", "Hello world", false)
	deliver(t, s, "alice", "hello again", false)

	t.Run("case-sensitive substring", func(t *testing.T) {
		recs, err := s.Search(ctx, "alice", "Hello")
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(recs) != 1 || recs[0].Body != "Hello world" {
			t.Errorf("expected single exact-case match, got %v", recs)
		}
	})

	t.Run("search does not mark read", func(t *testing.T) {
		if _, err := s.Search(ctx, "alice", "hello"); err != nil {
			t.Fatalf("search: %v", err)
		}
		stats, err := s.Stats(ctx, "alice")
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		if stats.Unread != 2 {
			t.Errorf("expected 2 unread after search, got %d", stats.Unread)
		}
	})
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t, "alice")

	deliver(t, s, "alice", "one", false)
	deliver(t, s, "alice", "two", false)

	if _, err := s.ReadWindow(ctx, "alice", 1); err != nil {
		t.Fatalf("read window: %v", err)
	}

	stats, err := s.Stats(ctx, "alice")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 2 {
		t.Errorf("expected total=2, got %d", stats.Total)
	}
	if stats.Unread != 1 {
		t.Errorf("expected unread=1, got %d", stats.Unread)
	}
}
