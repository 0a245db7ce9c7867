package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/iliyamo/store-reservation/internal/apperr"
	"github.com/iliyamo/store-reservation/internal/metrics"
	"github.com/iliyamo/store-reservation/internal/model"
	"github.com/iliyamo/store-reservation/internal/repository"
)

const (
	minRating        = 1
	maxRating        = 5
	maxReviewContent = 1000
)

// ReviewService is the review eligibility gate: only the member who made a
// COMPLETED reservation may review it, once.  Every write keeps the store's
// rating aggregate in step under the store row lock.  Writes lock the member
// row first and the store row last, the same order CreateReservation uses.
type ReviewService struct {
	tx      TxRunner
	metrics *metrics.ReservationMetrics
	now     func() time.Time
}

func NewReviewService(tx TxRunner, m *metrics.ReservationMetrics, now func() time.Time) *ReviewService {
	if tx == nil {
		panic("nil TxRunner passed to NewReviewService")
	}
	if now == nil {
		now = time.Now
	}
	return &ReviewService{tx: tx, metrics: m, now: now}
}

// CreateReviewRequest is the input of CreateReview.
type CreateReviewRequest struct {
	ReservationID uint64
	Rating        int
	Content       string
}

func (s *ReviewService) CreateReview(ctx context.Context, memberEmail string, req CreateReviewRequest) (model.Review, error) {
	now := s.now().UTC()

	var out model.Review
	err := s.tx.WithinTx(ctx, func(ctx context.Context, r Repos) error {
		member, err := r.Members.GetByEmailForUpdate(ctx, memberEmail)
		if err != nil {
			return notFoundAs(err, apperr.CodeNotReservationOwner)
		}
		res, err := r.Reservations.GetByIDForUpdate(ctx, req.ReservationID)
		if err != nil {
			return notFoundAs(err, apperr.CodeReservationNotFound)
		}
		if res.MemberID != member.ID {
			return apperr.New(apperr.CodeNotReservationOwner)
		}
		if res.Status != model.StatusCompleted {
			return apperr.New(apperr.CodeInvalidReviewStatus)
		}
		exists, err := r.Reviews.ExistsByReservationID(ctx, res.ID)
		if err != nil {
			return err
		}
		if exists {
			return apperr.New(apperr.CodeReviewAlreadyExists)
		}
		if err := validateReview(req.Rating, req.Content); err != nil {
			return err
		}

		store, err := r.Stores.GetByIDForUpdate(ctx, res.StoreID)
		if err != nil {
			return notFoundAs(err, apperr.CodeStoreNotFound)
		}
		rv := model.Review{
			ReservationID: res.ID,
			StoreID:       res.StoreID,
			MemberID:      res.MemberID,
			Rating:        req.Rating,
			Content:       strings.TrimSpace(req.Content),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := r.Reviews.Create(ctx, &rv); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperr.New(apperr.CodeReviewAlreadyExists)
			}
			return err
		}
		store.AddRating(rv.Rating)
		if err := r.Stores.UpdateRating(ctx, &store); err != nil {
			return err
		}
		out = rv
		return nil
	})
	if err != nil {
		return model.Review{}, fail(ctx, s.metrics, "create review", err,
			zap.Uint64("reservation_id", req.ReservationID), zap.String("member", memberEmail))
	}
	return out, nil
}

// UpdateReview replaces rating and content of the caller's own review.
func (s *ReviewService) UpdateReview(ctx context.Context, memberEmail string, reviewID uint64, rating int, content string) (model.Review, error) {
	now := s.now().UTC()

	var out model.Review
	err := s.tx.WithinTx(ctx, func(ctx context.Context, r Repos) error {
		rv, err := s.lockOwnReview(ctx, r, memberEmail, reviewID)
		if err != nil {
			return err
		}
		if err := validateReview(rating, content); err != nil {
			return err
		}
		store, err := r.Stores.GetByIDForUpdate(ctx, rv.StoreID)
		if err != nil {
			return notFoundAs(err, apperr.CodeStoreNotFound)
		}
		old := rv.Rating
		rv.Rating = rating
		rv.Content = strings.TrimSpace(content)
		rv.UpdatedAt = now
		if err := r.Reviews.Update(ctx, &rv); err != nil {
			return err
		}
		if old != rating {
			store.ReplaceRating(old, rating)
			if err := r.Stores.UpdateRating(ctx, &store); err != nil {
				return err
			}
		}
		out = rv
		return nil
	})
	if err != nil {
		return model.Review{}, fail(ctx, s.metrics, "update review", err, zap.Uint64("review_id", reviewID))
	}
	return out, nil
}

// DeleteReview removes the caller's own review and its rating.
func (s *ReviewService) DeleteReview(ctx context.Context, memberEmail string, reviewID uint64) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context, r Repos) error {
		rv, err := s.lockOwnReview(ctx, r, memberEmail, reviewID)
		if err != nil {
			return err
		}
		store, err := r.Stores.GetByIDForUpdate(ctx, rv.StoreID)
		if err != nil {
			return notFoundAs(err, apperr.CodeStoreNotFound)
		}
		if err := r.Reviews.Delete(ctx, rv.ID); err != nil {
			return notFoundAs(err, apperr.CodeReviewNotFound)
		}
		store.RemoveRating(rv.Rating)
		return r.Stores.UpdateRating(ctx, &store)
	})
	if err != nil {
		return fail(ctx, s.metrics, "delete review", err, zap.Uint64("review_id", reviewID))
	}
	return nil
}

// GetStoreReviews lists a store's reviews, newest first.
func (s *ReviewService) GetStoreReviews(ctx context.Context, storeID uint64, page repository.Page) ([]model.Review, int64, error) {
	r := s.tx.Repos()
	if _, err := r.Stores.GetByID(ctx, storeID); err != nil {
		return nil, 0, fail(ctx, nil, "list reviews", notFoundAs(err, apperr.CodeStoreNotFound))
	}
	items, total, err := r.Reviews.ListByStore(ctx, storeID, page)
	if err != nil {
		return nil, 0, fail(ctx, nil, "list reviews", err, zap.Uint64("store_id", storeID))
	}
	return items, total, nil
}

func (s *ReviewService) lockOwnReview(ctx context.Context, r Repos, memberEmail string, reviewID uint64) (model.Review, error) {
	m, err := r.Members.GetByEmailForUpdate(ctx, memberEmail)
	if err != nil {
		return model.Review{}, notFoundAs(err, apperr.CodeNotReviewAuthor)
	}
	rv, err := r.Reviews.GetByIDForUpdate(ctx, reviewID)
	if err != nil {
		return model.Review{}, notFoundAs(err, apperr.CodeReviewNotFound)
	}
	if m.ID != rv.MemberID {
		return model.Review{}, apperr.New(apperr.CodeNotReviewAuthor)
	}
	return rv, nil
}

func validateReview(rating int, content string) error {
	if rating < minRating || rating > maxRating {
		return apperr.Newf(apperr.CodeInvalidRequest, "rating must be between %d and %d", minRating, maxRating)
	}
	if utf8.RuneCountInString(strings.TrimSpace(content)) > maxReviewContent {
		return apperr.Newf(apperr.CodeInvalidRequest, "content must be at most %d characters", maxReviewContent)
	}
	return nil
}
