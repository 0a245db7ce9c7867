package model

import "time"

// Store represents a physical store owned by a partner member.  Members
// reserve visit slots at a store and review it after a completed visit.
// This struct corresponds to a row in the `stores` table.
//
// Fields:
//  ID            – primary key identifier.
//  OwnerID       – member ID of the partner who owns the store.
//  Name          – display name.
//  Location      – free-form address.
//  Description   – optional description.
//  Latitude      – optional coordinate used for distance sorting.
//  Longitude     – optional coordinate used for distance sorting.
//  AverageRating – mean rating of all reviews (0 when there are none).
//  ReviewCount   – number of reviews.
//  CreatedAt     – timestamp when the store was created.
//  UpdatedAt     – timestamp of last update.
type Store struct {
    ID            uint64    // stores.id
    OwnerID       uint64    // stores.owner_id
    Name          string    // stores.name
    Location      string    // stores.location
    Description   string    // stores.description
    Latitude      *float64  // stores.latitude (nullable)
    Longitude     *float64  // stores.longitude (nullable)
    AverageRating float64   // stores.average_rating
    ReviewCount   int       // stores.review_count
    CreatedAt     time.Time // stores.created_at
    UpdatedAt     time.Time // stores.updated_at
}

// AddRating folds a new review rating into the aggregate.
func (s *Store) AddRating(rating int) {
    total := s.AverageRating*float64(s.ReviewCount) + float64(rating)
    s.ReviewCount++
    s.AverageRating = total / float64(s.ReviewCount)
}

// ReplaceRating swaps an existing rating for a new one.  The count is
// unchanged.
func (s *Store) ReplaceRating(old, rating int) {
    if s.ReviewCount == 0 {
        s.AddRating(rating)
        return
    }
    total := s.AverageRating*float64(s.ReviewCount) - float64(old) + float64(rating)
    s.AverageRating = total / float64(s.ReviewCount)
}

// RemoveRating takes a rating out of the aggregate.  Removing the last one
// resets the store to (0.0, 0).
func (s *Store) RemoveRating(rating int) {
    if s.ReviewCount <= 1 {
        s.ReviewCount = 0
        s.AverageRating = 0
        return
    }
    total := s.AverageRating*float64(s.ReviewCount) - float64(rating)
    s.ReviewCount--
    s.AverageRating = total / float64(s.ReviewCount)
    if s.AverageRating < 0 {
        s.AverageRating = 0
    }
}

// TimeSlot is one entry of a store's daily timetable.
type TimeSlot struct {
    Start          time.Time
    AvailableSeats int
    Available      bool
}
