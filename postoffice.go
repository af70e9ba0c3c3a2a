package postoffice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rbaliyan/event/v3"
	"github.com/rbaliyan/event/v3/transport/noop"
	eventredis "github.com/rbaliyan/event/v3/transport/redis"
	"github.com/rbaliyan/postoffice/store"
	"github.com/rbaliyan/postoffice/store/memory"
	"golang.org/x/sync/semaphore"
)

// ServiceHealth provides health and state information about the office.
type ServiceHealth interface {
	// IsConnected returns true if the office is connected and ready.
	IsConnected() bool
}

// MessageSender provides message delivery.
type MessageSender interface {
	// Send delivers a message to its recipient's mailbox and returns the
	// office-assigned id. The Message's own id field is NOT synchronized;
	// call AssignID with the returned value to sync it.
	Send(ctx context.Context, msg *Message, opts ...SendOption) (int64, error)
}

// InboxReader provides mailbox retrieval and search.
type InboxReader interface {
	// ReadInbox returns the previously-unread messages in the scan window
	// and marks the whole window as read.
	ReadInbox(ctx context.Context, username string, opts ...ReadOption) ([]*Message, error)

	// SearchInbox returns every message in the mailbox whose body contains
	// substring, in mailbox order. Read state is not affected.
	SearchInbox(ctx context.Context, username, substring string) ([]*Message, error)

	// Mailbox returns the full mailbox in delivery order.
	Mailbox(ctx context.Context, username string) ([]*Message, error)
}

// StatsReader provides access to aggregate mailbox statistics.
type StatsReader interface {
	// Stats returns aggregate statistics for a user's mailbox.
	// Results are cached with event-driven incremental updates and
	// periodic TTL refresh.
	Stats(ctx context.Context, username string) (*store.MailboxStats, error)
}

// Service is a post office: it owns one mailbox per registered user and
// routes messages between them.
//
// Composed of focused interfaces:
//   - ServiceHealth: health queries (IsConnected)
//   - MessageSender: delivery (Send)
//   - InboxReader: retrieval (ReadInbox, SearchInbox, Mailbox)
//   - StatsReader: aggregate counts (Stats)
type Service interface {
	ServiceHealth
	MessageSender
	InboxReader
	StatsReader

	// Connect registers the mailboxes with the store and brings up the
	// event bus.
	Connect(ctx context.Context) error
	// Close shuts the office down, draining in-flight sends.
	Close(ctx context.Context) error
	// Usernames returns the registered usernames in sorted order.
	Usernames() []string
	// Events returns per-office event instances for subscribing and
	// publishing. Each office has its own events bound to its own bus,
	// enabling independent routing and parallel testing.
	Events() *ServiceEvents
}

// Connection states for the office.
const (
	stateDisconnected int32 = 0
	stateConnecting   int32 = 1
	stateConnected    int32 = 2
)

// service is the default implementation of Service.
type service struct {
	store      store.Store
	logger     *slog.Logger
	opts       *options
	usernames  []string
	state      int32 // stateDisconnected, stateConnecting, or stateConnected
	plugins    *pluginRegistry
	otel       *otelInstrumentation
	sendSem    *semaphore.Weighted // limits concurrent sends
	eventBus   *event.Bus
	events     *ServiceEvents
	statsCache sync.Map // map[string]*statsEntry
}

// New creates a post office with one mailbox per username.
// Duplicate usernames collapse to a single mailbox.
// Call Connect() to register the mailboxes and start the event bus.
func New(usernames []string, opts ...Option) (Service, error) {
	o := newOptions(opts...)

	if o.store == nil {
		o.store = memory.New()
	}

	// Collapse duplicates; sorted for deterministic Usernames().
	seen := make(map[string]struct{}, len(usernames))
	unique := make([]string, 0, len(usernames))
	for _, u := range usernames {
		if _, ok := seen[u]; !ok {
			seen[u] = struct{}{}
			unique = append(unique, u)
		}
	}
	sort.Strings(unique)

	plugins := newPluginRegistry(o.logger)
	for _, p := range o.plugins {
		plugins.register(p)
	}

	otelInstr, err := newOtelInstrumentation(o)
	if err != nil {
		return nil, fmt.Errorf("init otel: %w", err)
	}

	return &service{
		store:     o.store,
		logger:    o.logger,
		opts:      o,
		usernames: unique,
		plugins:   plugins,
		otel:      otelInstr,
		sendSem:   semaphore.NewWeighted(int64(o.maxConcurrentSends)),
	}, nil
}

// Events returns per-office event instances for subscribing and publishing.
func (s *service) Events() *ServiceEvents {
	return s.events
}

// IsConnected returns true if the office is connected and ready.
func (s *service) IsConnected() bool {
	return atomic.LoadInt32(&s.state) == stateConnected
}

// Usernames returns the registered usernames in sorted order.
func (s *service) Usernames() []string {
	out := make([]string, len(s.usernames))
	copy(out, s.usernames)
	return out
}

// Connect registers the mailboxes with the store and brings up the event bus.
func (s *service) Connect(ctx context.Context) error {
	// Three-state transition keeps operations from seeing partial
	// initialization: stateDisconnected -> stateConnecting -> stateConnected
	if !atomic.CompareAndSwapInt32(&s.state, stateDisconnected, stateConnecting) {
		return ErrAlreadyConnected
	}

	success := false
	defer func() {
		if success {
			atomic.StoreInt32(&s.state, stateConnected)
		} else {
			atomic.StoreInt32(&s.state, stateDisconnected)
		}
	}()

	if err := s.store.Connect(ctx); err != nil {
		return fmt.Errorf("connect store: %w", err)
	}

	if err := s.store.Register(ctx, s.usernames...); err != nil {
		s.store.Close(ctx)
		return fmt.Errorf("register mailboxes: %w", err)
	}

	if err := s.initEventBus(ctx); err != nil {
		s.store.Close(ctx)
		return fmt.Errorf("init event bus: %w", err)
	}

	if err := s.plugins.initAll(ctx); err != nil {
		s.eventBus.Close(ctx)
		s.store.Close(ctx)
		return fmt.Errorf("init plugins: %w", err)
	}

	success = true
	s.logger.Info("post office connected", "mailboxes", len(s.usernames))
	return nil
}

// initEventBus initializes the event bus for this office.
// Each office creates its own bus with a unique name so independent offices
// in one process never collide.
func (s *service) initEventBus(ctx context.Context) error {
	serviceName := s.opts.serviceName
	if serviceName == "" {
		serviceName = "postoffice"
	}
	busName := fmt.Sprintf("%s-%s", serviceName, uuid.NewString())

	var bus *event.Bus
	var err error

	switch {
	case s.opts.eventTransport != nil:
		s.logger.Info("initializing event bus with custom transport")
		bus, err = event.NewBus(busName, event.WithTransport(s.opts.eventTransport))
	case s.opts.redisClient != nil:
		s.logger.Info("initializing event bus with Redis transport")
		t, transportErr := eventredis.New(s.opts.redisClient)
		if transportErr != nil {
			return fmt.Errorf("create redis transport: %w", transportErr)
		}
		bus, err = event.NewBus(busName, event.WithTransport(t))
	default:
		s.logger.Debug("initializing event bus with noop transport")
		bus, err = event.NewBus(busName, event.WithTransport(noop.New()))
	}

	if err != nil {
		return fmt.Errorf("create event bus: %w", err)
	}
	s.eventBus = bus

	s.events = newServiceEvents(busName)
	if err := registerServiceEvents(ctx, bus, s.events); err != nil {
		bus.Close(ctx)
		return fmt.Errorf("register events: %w", err)
	}

	// Stats cache handlers ride the same bus as user subscriptions.
	if err := s.subscribeStatsHandlers(ctx); err != nil {
		bus.Close(ctx)
		return fmt.Errorf("subscribe stats handlers: %w", err)
	}

	return nil
}

// Close shuts the office down, draining in-flight sends.
func (s *service) Close(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.state, stateConnected, stateDisconnected) {
		return nil
	}

	var errs []error

	// Wait for in-flight sends to finish. After the state flips, no new
	// sends can start because checkAccess fails.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, s.opts.shutdownTimeout)
	defer shutdownCancel()
	if err := s.sendSem.Acquire(shutdownCtx, int64(s.opts.maxConcurrentSends)); err != nil {
		s.logger.Warn("timeout waiting for in-flight sends, proceeding with shutdown",
			"error", err)
		errs = append(errs, fmt.Errorf("graceful shutdown timeout: %w", err))
	} else {
		s.sendSem.Release(int64(s.opts.maxConcurrentSends))
	}

	// Close plugins first (reverse order of init)
	if err := s.plugins.closeAll(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close plugins: %w", err))
	}

	// Close the event bus only when a real transport is configured.
	// The noop bus holds no resources.
	if s.eventBus != nil && (s.opts.eventTransport != nil || s.opts.redisClient != nil) {
		if err := s.eventBus.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close event bus: %w", err))
		}
	}

	if err := s.store.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	return errors.Join(errs...)
}

// checkAccess verifies the office is ready for operations.
func (s *service) checkAccess() error {
	if atomic.LoadInt32(&s.state) != stateConnected {
		return ErrNotConnected
	}
	return nil
}

// wrapStoreErr maps store-level mailbox lookups onto the package sentinel.
func wrapStoreErr(err error, username string) error {
	if store.IsMailboxNotFound(err) {
		return recipientNotFound(username)
	}
	return err
}
