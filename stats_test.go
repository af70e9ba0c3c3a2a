package postoffice

import (
	"context"
	"testing"
	"time"

	"github.com/rbaliyan/event/v3/transport/channel"
	"github.com/rbaliyan/postoffice/store"
	"github.com/rbaliyan/postoffice/store/memory"
)

// setupStatsOffice creates an office backed by the given store, with a long
// TTL so cached entries only change through event handlers or explicit
// refresh.
func setupStatsOffice(t *testing.T, memStore *memory.Store, opts ...Option) Service {
	t.Helper()
	opts = append([]Option{
		WithStore(memStore),
		WithStatsRefreshInterval(1 * time.Hour),
	}, opts...)
	office, err := New([]string{"alice", "bob"}, opts...)
	if err != nil {
		t.Fatalf("create office: %v", err)
	}
	if err := office.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return office
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	office := setupTestOffice(t, "alice", "bob")
	defer office.Close(ctx)

	t.Run("empty mailbox returns zero stats", func(t *testing.T) {
		stats, err := office.Stats(ctx, "alice")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stats.Total != 0 || stats.Unread != 0 {
			t.Errorf("expected zero stats, got total=%d unread=%d", stats.Total, stats.Unread)
		}
	})

	t.Run("stats reflect sent messages", func(t *testing.T) {
		mustSend(t, office, NewMessage("alice", "bob", "Hello Bob", "How are you?"))

		stats, err := office.Stats(ctx, "bob")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stats.Total != 1 {
			t.Errorf("expected total=1, got %d", stats.Total)
		}
		if stats.Unread != 1 {
			t.Errorf("expected unread=1, got %d", stats.Unread)
		}
	})
}

func TestStatsCaching(t *testing.T) {
	ctx := context.Background()

	t.Run("returns cached result within TTL", func(t *testing.T) {
		memStore := memory.New()
		office := setupStatsOffice(t, memStore)
		defer office.Close(ctx)

		// First call seeds the cache.
		stats1, err := office.Stats(ctx, "bob")
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		if stats1.Total != 0 {
			t.Fatalf("expected 0, got %d", stats1.Total)
		}

		// Deliver directly to the store, bypassing the office and its events.
		if _, err := memStore.Deliver(ctx, store.RecordData{
			Sender:    "other",
			Recipient: "bob",
			Subject:   "Test",
			Body:      "body",
		}, false); err != nil {
			t.Fatalf("deliver: %v", err)
		}

		// Second call returns the cached (stale) snapshot.
		stats2, err := office.Stats(ctx, "bob")
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		if stats2.Total != 0 {
			t.Errorf("expected cached total=0, got %d", stats2.Total)
		}
	})

	t.Run("refreshes after TTL expires", func(t *testing.T) {
		memStore := memory.New()
		office, err := New([]string{"alice", "bob"},
			WithStore(memStore),
			WithStatsRefreshInterval(1*time.Millisecond),
		)
		if err != nil {
			t.Fatalf("create office: %v", err)
		}
		if err := office.Connect(ctx); err != nil {
			t.Fatalf("connect: %v", err)
		}
		defer office.Close(ctx)

		stats1, err := office.Stats(ctx, "bob")
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		if stats1.Total != 0 {
			t.Fatalf("expected 0, got %d", stats1.Total)
		}

		if _, err := memStore.Deliver(ctx, store.RecordData{
			Sender:    "other",
			Recipient: "bob",
			Subject:   "Test",
			Body:      "body",
		}, false); err != nil {
			t.Fatalf("deliver: %v", err)
		}

		// Wait for TTL to expire
		time.Sleep(5 * time.Millisecond)

		stats2, err := office.Stats(ctx, "bob")
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		if stats2.Total != 1 {
			t.Errorf("expected refreshed total=1, got %d", stats2.Total)
		}
	})
}

func TestStatsEventUpdates(t *testing.T) {
	ctx := context.Background()
	office := setupStatsOffice(t, memory.New(), WithEventTransport(channel.New()))
	defer office.Close(ctx)

	// Seed both caches
	if _, err := office.Stats(ctx, "alice"); err != nil {
		t.Fatalf("stats: %v", err)
	}
	if _, err := office.Stats(ctx, "bob"); err != nil {
		t.Fatalf("stats: %v", err)
	}

	t.Run("send updates recipient cache", func(t *testing.T) {
		mustSend(t, office, NewMessage("alice", "bob", "Event test", "body"))

		// Channel transport delivers asynchronously via goroutines
		time.Sleep(50 * time.Millisecond)

		bobStats, err := office.Stats(ctx, "bob")
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		if bobStats.Total != 1 {
			t.Errorf("expected bob total=1, got %d", bobStats.Total)
		}
		if bobStats.Unread != 1 {
			t.Errorf("expected bob unread=1, got %d", bobStats.Unread)
		}
	})

	t.Run("read decrements unread", func(t *testing.T) {
		msgs, err := office.ReadInbox(ctx, "bob")
		if err != nil {
			t.Fatalf("read inbox: %v", err)
		}
		if len(msgs) == 0 {
			t.Fatal("expected unread messages in bob's inbox")
		}

		time.Sleep(50 * time.Millisecond)

		bobStats, err := office.Stats(ctx, "bob")
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		if bobStats.Unread != 0 {
			t.Errorf("expected bob unread=0, got %d", bobStats.Unread)
		}
		if bobStats.Total != 1 {
			t.Errorf("expected bob total=1, got %d", bobStats.Total)
		}
	})
}
