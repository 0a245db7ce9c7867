package model

import (
    "errors"
    "time"
)

// ReservationStatus is the lifecycle state of a reservation.  Values are
// stored verbatim in reservations.status.
type ReservationStatus string

const (
    StatusPending   ReservationStatus = "PENDING"
    StatusApproved  ReservationStatus = "APPROVED"
    StatusRejected  ReservationStatus = "REJECTED"
    StatusCheckedIn ReservationStatus = "CHECKED_IN"
    StatusCompleted ReservationStatus = "COMPLETED"
    StatusCancelled ReservationStatus = "CANCELLED"
    StatusNoShow    ReservationStatus = "NO_SHOW"
)

// ErrIllegalTransition is returned by Reservation.TransitionTo when the
// requested edge does not exist in the state machine.
var ErrIllegalTransition = errors.New("illegal reservation status transition")

// transitions lists the outgoing edges of every state.  States without an
// entry are terminal.
var transitions = map[ReservationStatus][]ReservationStatus{
    StatusPending:   {StatusApproved, StatusRejected},
    StatusApproved:  {StatusCheckedIn, StatusCancelled, StatusNoShow},
    StatusCheckedIn: {StatusCompleted, StatusCancelled},
}

// ParseReservationStatus converts user input into a known status.  The
// second return value is false for unknown strings.
func ParseReservationStatus(s string) (ReservationStatus, bool) {
    st := ReservationStatus(s)
    switch st {
    case StatusPending, StatusApproved, StatusRejected, StatusCheckedIn,
        StatusCompleted, StatusCancelled, StatusNoShow:
        return st, true
    }
    return "", false
}

// IsTerminal reports whether no transition leaves s.
func (s ReservationStatus) IsTerminal() bool {
    return len(transitions[s]) == 0
}

// CanTransitionTo reports whether s -> next is an edge of the state machine.
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
    for _, n := range transitions[s] {
        if n == next {
            return true
        }
    }
    return false
}

// Reservation records a member's visit slot at a store.
//
// Fields:
//  ID               – primary key identifier.
//  StoreID          – store being visited.
//  MemberID         – member who made the reservation.
//  ReservationTime  – start of the visit (UTC).
//  Status           – lifecycle state, see ReservationStatus.
//  VerificationCode – code presented at the kiosk on check-in.
//  CheckInTime      – set when the kiosk check-in succeeds.
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type Reservation struct {
    ID               uint64            // reservations.id
    StoreID          uint64            // reservations.store_id
    MemberID         uint64            // reservations.member_id
    ReservationTime  time.Time         // reservations.reservation_time
    Status           ReservationStatus // reservations.status
    VerificationCode string            // reservations.verification_code
    CheckInTime      *time.Time        // reservations.check_in_time (nullable)
    CreatedAt        time.Time         // reservations.created_at
    UpdatedAt        time.Time         // reservations.updated_at
}

// TransitionTo moves the reservation along an edge of the state machine and
// stamps UpdatedAt.  Entering CHECKED_IN also records the check-in time.
func (r *Reservation) TransitionTo(next ReservationStatus, now time.Time) error {
    if !r.Status.CanTransitionTo(next) {
        return ErrIllegalTransition
    }
    r.Status = next
    r.UpdatedAt = now
    if next == StatusCheckedIn {
        t := now
        r.CheckInTime = &t
    }
    return nil
}

// ReservationSummary is the read projection returned by reservation
// searches: the reservation row plus the store name and member email
// resolved by the query layer.
type ReservationSummary struct {
    Reservation
    StoreName   string
    MemberEmail string
}
