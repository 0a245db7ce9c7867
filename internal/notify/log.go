package notify

import (
    "context"

    "go.uber.org/zap"

    "github.com/iliyamo/store-reservation/internal/logger"
)

// LogPublisher writes events to the request logger instead of a broker.
// It backs NOTIFY_DRIVER=log for local runs.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, ev ReservationEvent) error {
    logger.FromContext(ctx).Info("reservation event", eventFields(ev)...)
    return nil
}

func eventFields(ev ReservationEvent) []zap.Field {
    return []zap.Field{
        zap.String("event_id", ev.EventID),
        zap.String("type", ev.Type),
        zap.Uint64("reservation_id", ev.ReservationID),
        zap.Uint64("store_id", ev.StoreID),
        zap.Uint64("member_id", ev.MemberID),
        zap.String("status", ev.Status),
        zap.String("reservation_time", ev.ReservationTime),
        zap.String("occurred_at", ev.OccurredAt),
    }
}
