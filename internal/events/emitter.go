package events

import (
	"context"
	"log/slog"
	"sync"
)

// CardDispatcher delivers card events from the palace service to every
// registered handler, in registration order, on the caller's goroutine.
// Events arrive only after the change they describe has been saved, so a
// handler never sees a card that a failed save rolled back.
type CardDispatcher struct {
	mu       sync.RWMutex
	handlers []EventHandler
	logger   *slog.Logger
}

var _ EventEmitter = (*CardDispatcher)(nil)

// NewCardDispatcher returns a dispatcher with no handlers.
func NewCardDispatcher(logger *slog.Logger) *CardDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &CardDispatcher{logger: logger.With("component", "card_events")}
}

// RegisterHandler subscribes h to every later card event.
func (d *CardDispatcher) RegisterHandler(h EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, h)
	d.logger.Debug("card event handler registered", slog.Int("handler_count", len(d.handlers)))
}

// EmitEvent hands event to each handler. A failing handler does not stop
// delivery to the rest; the first failure is returned.
func (d *CardDispatcher) EmitEvent(ctx context.Context, event *Event) error {
	d.mu.RLock()
	handlers := append([]EventHandler(nil), d.handlers...)
	d.mu.RUnlock()

	log := d.logger.With(
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.Type))
	log.Debug("dispatching card event", slog.Int("handler_count", len(handlers)))

	var firstErr error
	for i, h := range handlers {
		if err := h.HandleEvent(ctx, event); err != nil {
			log.Error("card event handler failed",
				slog.String("error", err.Error()),
				slog.Int("handler_index", i))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
