package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/model"
	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/queue"
)

func opLogger(base *zap.Logger, component, operation string, actor model.Principal) *zap.Logger {
	return base.With(
		zap.String("component", component),
		zap.String("operation", operation),
		zap.String("principal_id", actor.ID),
	)
}

// logResult logs err, or msg when err is nil.  Caller mistakes are logged
// at warn level; internal failures at error level.
func logResult(logger *zap.Logger, msg string, err error, fields ...zap.Field) {
	if err == nil {
		logger.Info(msg, fields...)
		return
	}
	fields = append(fields, zap.Error(err), zap.String("error_kind", ErrorKind(err)))
	if ErrorKind(err) == "internal" {
		logger.Error(msg+" failed", fields...)
		return
	}
	logger.Warn(msg+" rejected", fields...)
}

// publish hands ev to events.  The mutation has already committed, so a
// broker failure is only logged.
func publish(ctx context.Context, events EventPublisher, logger *zap.Logger, ev queue.Event) {
	if events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := events.Publish(ctx, ev); err != nil {
		logger.Warn("audit publish failed", zap.Error(err), zap.String("event_type", string(ev.Type)), zap.String("event_id", ev.ID))
	}
}
