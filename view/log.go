package view

import (
	"context"
	"log/slog"

	"github.com/ferro-labs/faceslots"
	"github.com/ferro-labs/faceslots/internal/logging"
)

// Log records every change as a structured log line.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a Log sink. A nil logger means the package logger.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = logging.Logger
	}
	return &Log{logger: logger}
}

// SlotChanged implements faceslots.ViewSink.
func (l *Log) SlotChanged(ctx context.Context, change faceslots.SlotChange) error {
	logging.FromContext(ctx, l.logger).Info("slot changed",
		"slot_id", change.SlotID,
		"location", change.Location.String(),
		"state", change.State.String(),
		"provider", change.Provider.String(),
	)
	return nil
}
