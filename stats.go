package postoffice

import (
	"context"
	"sync"
	"time"

	"github.com/rbaliyan/event/v3"
	"github.com/rbaliyan/postoffice/store"
)

// statsEntry holds a cached stats snapshot for a single mailbox.
type statsEntry struct {
	mu        sync.Mutex
	stats     *store.MailboxStats
	updatedAt time.Time
}

// Stats returns aggregate statistics for a user's mailbox.
func (s *service) Stats(ctx context.Context, username string) (*store.MailboxStats, error) {
	if err := s.checkAccess(); err != nil {
		return nil, err
	}
	return s.getOrRefreshStats(ctx, username)
}

// getOrRefreshStats returns cached stats if within TTL, otherwise refreshes
// from the store.
func (s *service) getOrRefreshStats(ctx context.Context, username string) (*store.MailboxStats, error) {
	now := time.Now()

	// Fast path: return cached entry if within TTL.
	if val, ok := s.statsCache.Load(username); ok {
		entry := val.(*statsEntry)
		entry.mu.Lock()
		if entry.stats != nil && now.Sub(entry.updatedAt) < s.opts.statsRefreshInterval {
			clone := entry.stats.Clone()
			entry.mu.Unlock()
			return clone, nil
		}
		entry.mu.Unlock()
	}

	// Slow path: fetch from store and cache.
	stats, err := s.store.Stats(ctx, username)
	if err != nil {
		return nil, wrapStoreErr(err, username)
	}

	s.statsCache.Store(username, &statsEntry{
		stats:     &stats,
		updatedAt: now,
	})

	return stats.Clone(), nil
}

// updateCachedStats applies a mutation to a cached stats entry if it exists.
// If no cache entry exists for the user, this is a no-op.
func (s *service) updateCachedStats(username string, fn func(stats *store.MailboxStats)) {
	val, ok := s.statsCache.Load(username)
	if !ok {
		return
	}
	entry := val.(*statsEntry)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.stats != nil {
		fn(entry.stats)
	}
}

// subscribeStatsHandlers wires the stats cache to the office's own events.
func (s *service) subscribeStatsHandlers(ctx context.Context) error {
	if err := s.events.MessageSent.Subscribe(ctx, s.onMessageSent); err != nil {
		return err
	}
	return s.events.InboxRead.Subscribe(ctx, s.onInboxRead)
}

// onMessageSent handles the MessageSent event for stats cache updates.
// Increments the recipient's total and unread counts.
func (s *service) onMessageSent(_ context.Context, _ event.Event[MessageSentEvent], data MessageSentEvent) error {
	s.updateCachedStats(data.Recipient, func(stats *store.MailboxStats) {
		stats.Total++
		stats.Unread++
	})
	return nil
}

// onInboxRead handles the InboxRead event for stats cache updates.
// Decrements the unread count by the number of messages the scan returned.
func (s *service) onInboxRead(_ context.Context, _ event.Event[InboxReadEvent], data InboxReadEvent) error {
	s.updateCachedStats(data.Username, func(stats *store.MailboxStats) {
		stats.Unread -= int64(data.Count)
		if stats.Unread < 0 {
			stats.Unread = 0
		}
	})
	return nil
}
