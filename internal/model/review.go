package model

import "time"

// Review is a member's rating of a completed reservation.  At most one
// review exists per reservation.  StoreID and MemberID are copied from the
// reservation when the review is written so store listings and author
// checks do not need a join.
type Review struct {
    ID            uint64    // reviews.id
    ReservationID uint64    // reviews.reservation_id (unique)
    StoreID       uint64    // reviews.store_id
    MemberID      uint64    // reviews.member_id
    Rating        int       // reviews.rating, 1..5
    Content       string    // reviews.content, up to 1000 characters
    CreatedAt     time.Time // reviews.created_at
    UpdatedAt     time.Time // reviews.updated_at
}
