// Package notify carries reservation lifecycle events to members and stores
// over a message broker.  Publishing is best-effort: callers log failures
// and never roll back a committed state change because of them.
package notify

import (
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/store-reservation/internal/model"
)

// Event types.  Each maps to its own RabbitMQ queue; on Kafka the type is
// carried in the message key prefix and header.
const (
    EventReservationDecided   = "reservation.decided"    // approve/reject, addressed to the member
    EventReservationCheckedIn = "reservation.checked_in" // kiosk check-in, addressed to the store
)

// ReservationEvent is published after a reservation changes state.  It
// contains enough information for downstream consumers to notify the
// recipient without querying the primary database.
type ReservationEvent struct {
    EventID         string `json:"event_id"`
    Type            string `json:"type"`
    ReservationID   uint64 `json:"reservation_id"`
    StoreID         uint64 `json:"store_id"`
    MemberID        uint64 `json:"member_id"`
    Status          string `json:"status"`
    ReservationTime string `json:"reservation_time"`
    OccurredAt      string `json:"occurred_at"`
}

// NewReservationEvent snapshots res into an event of the given type.
func NewReservationEvent(eventType string, res model.Reservation, at time.Time) ReservationEvent {
    return ReservationEvent{
        EventID:         uuid.NewString(),
        Type:            eventType,
        ReservationID:   res.ID,
        StoreID:         res.StoreID,
        MemberID:        res.MemberID,
        Status:          string(res.Status),
        ReservationTime: res.ReservationTime.UTC().Format(time.RFC3339),
        OccurredAt:      at.UTC().Format(time.RFC3339),
    }
}
