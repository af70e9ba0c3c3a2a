package postoffice

import (
	"context"
	"errors"
	"log/slog"
)

// Plugin defines the interface for post office extensions.
// Plugins can hook into message sending to add custom behavior such as
// spam filtering or rate limiting.
//
// For observing other operations (inbox reads), use the event system
// instead (MessageSent, InboxRead).
type Plugin interface {
	// Name returns the plugin identifier.
	Name() string
	// Init initializes the plugin. Called when the office connects.
	Init(ctx context.Context) error
	// Close cleans up plugin resources. Called when the office closes.
	Close(ctx context.Context) error
}

// SendHook is called before/after sending messages.
type SendHook interface {
	Plugin
	// BeforeSend is called before a message is delivered. Return an error
	// to abort the send.
	BeforeSend(ctx context.Context, msg *Message, urgent bool) error
	// AfterSend is called after a message has been delivered with the
	// office-assigned id. The delivery cannot be rolled back.
	AfterSend(ctx context.Context, msg *Message, id int64) error
}

// pluginRegistry holds registered plugins.
type pluginRegistry struct {
	all    []Plugin
	send   []SendHook
	logger *slog.Logger
}

// newPluginRegistry creates a new plugin registry.
func newPluginRegistry(logger *slog.Logger) *pluginRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &pluginRegistry{logger: logger}
}

// register adds a plugin to the registry.
func (r *pluginRegistry) register(p Plugin) {
	r.all = append(r.all, p)

	if h, ok := p.(SendHook); ok {
		r.send = append(r.send, h)
	}
}

// initAll initializes all plugins.
// On failure, already-initialized plugins are closed in reverse order.
func (r *pluginRegistry) initAll(ctx context.Context) error {
	for i, p := range r.all {
		if err := p.Init(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				if closeErr := r.all[j].Close(ctx); closeErr != nil {
					r.logger.Error("failed to close plugin during init rollback",
						"plugin", r.all[j].Name(), "error", closeErr)
				}
			}
			return &PluginError{Plugin: p.Name(), Op: "init", Err: err}
		}
	}
	return nil
}

// closeAll closes all plugins in reverse order of registration.
func (r *pluginRegistry) closeAll(ctx context.Context) error {
	var errs []error
	for i := len(r.all) - 1; i >= 0; i-- {
		if err := r.all[i].Close(ctx); err != nil {
			errs = append(errs, &PluginError{Plugin: r.all[i].Name(), Op: "close", Err: err})
		}
	}
	return errors.Join(errs...)
}

// beforeSend runs all BeforeSend hooks in registration order.
func (r *pluginRegistry) beforeSend(ctx context.Context, msg *Message, urgent bool) error {
	for _, h := range r.send {
		if err := h.BeforeSend(ctx, msg, urgent); err != nil {
			return err
		}
	}
	return nil
}

// afterSend runs all AfterSend hooks in registration order.
func (r *pluginRegistry) afterSend(ctx context.Context, msg *Message, id int64) error {
	for _, h := range r.send {
		if err := h.AfterSend(ctx, msg, id); err != nil {
			return err
		}
	}
	return nil
}
