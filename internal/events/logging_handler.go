package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/mindpalace/internal/platform/logger"
)

// LoggingHandler writes an activity log line for every event.
// Grades are logged at info, everything else at debug.
type LoggingHandler struct {
	logger *slog.Logger
}

// NewLoggingHandler creates a LoggingHandler.
// If logger is nil, a default logger will be used.
func NewLoggingHandler(logger *slog.Logger) *LoggingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingHandler{logger: logger.With("component", "activity_log")}
}

// HandleEvent implements EventHandler.
func (h *LoggingHandler) HandleEvent(ctx context.Context, event *Event) error {
	var payload CardPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", event.Type, err)
	}

	log := logger.FromContextOrDefault(ctx, h.logger)
	attrs := []any{
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.Type),
		slog.String("card_id", payload.CardID),
		slog.String("locus_id", payload.LocusID),
	}

	switch event.Type {
	case CardGraded:
		log.InfoContext(ctx, "card reviewed",
			append(attrs,
				slog.String("grade", payload.Grade),
				slog.Time("due_at", payload.DueAt))...)
	case CardPostponed:
		log.DebugContext(ctx, "card postponed",
			append(attrs, slog.Time("due_at", payload.DueAt))...)
	default:
		log.DebugContext(ctx, "palace activity", attrs...)
	}
	return nil
}
