package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogDispatcher writes events to the log; used when no relay is configured.
type LogDispatcher struct {
	logger *zap.Logger
}

func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(_ context.Context, ev Event) error {
	d.logger.Info("Notification",
		zap.String("type", string(ev.Type)),
		zap.String("tenant_id", ev.TenantID.String()),
		zap.String("entity_id", ev.EntityID.String()),
		zap.Int("recipients", len(ev.Recipients)),
		zap.String("title", ev.Title))
	return nil
}
