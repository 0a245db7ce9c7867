package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStore_RatingAggregate(t *testing.T) {
	s := &Store{}

	s.AddRating(5)
	assert.Equal(t, 1, s.ReviewCount)
	assert.InDelta(t, 5.0, s.AverageRating, 1e-9)

	s.AddRating(3)
	assert.Equal(t, 2, s.ReviewCount)
	assert.InDelta(t, 4.0, s.AverageRating, 1e-9)

	s.ReplaceRating(3, 1)
	assert.Equal(t, 2, s.ReviewCount)
	assert.InDelta(t, 3.0, s.AverageRating, 1e-9)

	s.RemoveRating(5)
	assert.Equal(t, 1, s.ReviewCount)
	assert.InDelta(t, 1.0, s.AverageRating, 1e-9)

	s.RemoveRating(1)
	assert.Equal(t, 0, s.ReviewCount)
	assert.Equal(t, 0.0, s.AverageRating)
}

func TestStore_RemoveRatingOnEmptyStore(t *testing.T) {
	s := &Store{}
	s.RemoveRating(4)
	assert.Equal(t, 0, s.ReviewCount)
	assert.Equal(t, 0.0, s.AverageRating)
}
