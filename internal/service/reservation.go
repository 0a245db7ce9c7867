package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/store-reservation/internal/apperr"
	"github.com/iliyamo/store-reservation/internal/config"
	"github.com/iliyamo/store-reservation/internal/logger"
	"github.com/iliyamo/store-reservation/internal/metrics"
	"github.com/iliyamo/store-reservation/internal/model"
	"github.com/iliyamo/store-reservation/internal/notify"
	"github.com/iliyamo/store-reservation/internal/repository"
)

// ReservationService is the reservation lifecycle engine.  It admits new
// reservations against the time, overlap and capacity rules of its policy
// and drives every later status change.
type ReservationService struct {
	tx       TxRunner
	policy   config.ReservationPolicy
	notifier Notifier
	metrics  *metrics.ReservationMetrics
	now      func() time.Time
	newCode  func() (string, error)
}

// ReservationOption customizes a ReservationService.
type ReservationOption func(*ReservationService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ReservationOption {
	return func(s *ReservationService) { s.now = now }
}

// WithNotifier sets the event publisher.  Without one events are dropped.
func WithNotifier(n Notifier) ReservationOption {
	return func(s *ReservationService) { s.notifier = n }
}

func WithMetrics(m *metrics.ReservationMetrics) ReservationOption {
	return func(s *ReservationService) { s.metrics = m }
}

// WithCodeGenerator replaces the verification code source.
func WithCodeGenerator(gen func() (string, error)) ReservationOption {
	return func(s *ReservationService) { s.newCode = gen }
}

func NewReservationService(tx TxRunner, policy config.ReservationPolicy, opts ...ReservationOption) *ReservationService {
	if tx == nil {
		panic("nil TxRunner passed to NewReservationService")
	}
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	s := &ReservationService{
		tx:      tx,
		policy:  policy,
		now:     time.Now,
		newCode: NewVerificationCode,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewVerificationCode returns a uniformly random 6-digit code.
func NewVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// CreateReservation admits a PENDING reservation for memberEmail at store
// storeID.  Checks run in a fixed order and the first failure wins.  The
// member row and then the store row are locked so that the duplicate and
// capacity counts cannot race with another admission.
func (s *ReservationService) CreateReservation(ctx context.Context, memberEmail string, storeID uint64, at time.Time) (model.Reservation, error) {
	now := s.now().UTC()
	at = at.UTC()

	var out model.Reservation
	err := s.tx.WithinTx(ctx, func(ctx context.Context, r Repos) error {
		member, err := r.Members.GetByEmailForUpdate(ctx, memberEmail)
		if err != nil {
			return notFoundAs(err, apperr.CodeMemberNotFound)
		}
		if _, err := r.Stores.GetByIDForUpdate(ctx, storeID); err != nil {
			return notFoundAs(err, apperr.CodeStoreNotFound)
		}
		if err := s.checkReservationTime(at, now); err != nil {
			return err
		}

		dup, err := r.Reservations.ExistsByMemberAndTimeBetween(ctx, member.ID,
			at.Add(-s.policy.DuplicateWindow), at.Add(s.policy.DuplicateWindow))
		if err != nil {
			return err
		}
		if dup {
			return apperr.New(apperr.CodeDuplicateReservation)
		}

		booked, err := r.Reservations.CountByStoreAndTimeBetween(ctx, storeID,
			at.Add(-s.policy.CapacityWindow), at.Add(s.policy.CapacityWindow))
		if err != nil {
			return err
		}
		if booked >= int64(s.policy.SlotCapacity) {
			return apperr.New(apperr.CodeStoreFullyBooked)
		}

		code, err := s.newCode()
		if err != nil {
			return err
		}
		res := model.Reservation{
			StoreID:          storeID,
			MemberID:         member.ID,
			ReservationTime:  at,
			Status:           model.StatusPending,
			VerificationCode: code,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := r.Reservations.Create(ctx, &res); err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return model.Reservation{}, fail(ctx, s.metrics, "create reservation", err,
			zap.String("member", memberEmail), zap.Uint64("store_id", storeID), zap.Time("reservation_time", at))
	}
	s.metrics.Transition("", string(out.Status))
	logger.FromContext(ctx).Info("reservation created",
		zap.Uint64("reservation_id", out.ID), zap.Uint64("store_id", storeID))
	return out, nil
}

// checkReservationTime applies the lead-time and business-hour rules.
func (s *ReservationService) checkReservationTime(at, now time.Time) error {
	p := s.policy
	if !at.After(now) {
		return apperr.New(apperr.CodeInvalidReservationTime)
	}
	if at.Before(now.Add(p.MinLeadTime)) {
		return apperr.New(apperr.CodeReservationTooClose)
	}
	if at.After(now.Add(p.MaxLeadTime)) {
		return apperr.New(apperr.CodeReservationTooFar)
	}
	if h := at.In(p.Location).Hour(); h < p.OpenHour || h >= p.CloseHour {
		return apperr.New(apperr.CodeOutsideBusinessHours)
	}
	return nil
}

// HandleReservation lets the store owner approve or reject a PENDING
// reservation.  The member is notified after commit.
func (s *ReservationService) HandleReservation(ctx context.Context, ownerEmail string, reservationID uint64, approved bool) (model.Reservation, error) {
	now := s.now().UTC()
	next := model.StatusRejected
	if approved {
		next = model.StatusApproved
	}

	var out model.Reservation
	err := s.tx.WithinTx(ctx, func(ctx context.Context, r Repos) error {
		res, err := r.Reservations.GetByIDForUpdate(ctx, reservationID)
		if err != nil {
			return notFoundAs(err, apperr.CodeReservationNotFound)
		}
		if err := requireStoreOwner(ctx, r, res.StoreID, ownerEmail); err != nil {
			return err
		}
		if res.Status != model.StatusPending {
			return apperr.New(apperr.CodeInvalidStatusUpdate)
		}
		if err := res.TransitionTo(next, now); err != nil {
			return apperr.New(apperr.CodeInvalidStatusUpdate)
		}
		if err := r.Reservations.UpdateStatus(ctx, &res); err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return model.Reservation{}, fail(ctx, s.metrics, "handle reservation", err,
			zap.Uint64("reservation_id", reservationID), zap.String("owner", ownerEmail))
	}
	s.metrics.Transition(string(model.StatusPending), string(next))
	s.publish(ctx, notify.EventReservationDecided, out, now)
	return out, nil
}

// UpdateStatusRequest is the input of UpdateReservationStatus.  ActorEmail
// is the store owner on the partner route; an empty ActorEmail skips the
// ownership check for internal callers.
type UpdateStatusRequest struct {
	ReservationID uint64
	Status        model.ReservationStatus
	ActorEmail    string
}

// UpdateReservationStatus is the generic transition path used for
// completion, cancellation and manual overrides.  CHECKED_IN and NO_SHOW
// are reachable only through CheckIn and MarkNoShow.
func (s *ReservationService) UpdateReservationStatus(ctx context.Context, req UpdateStatusRequest) (model.Reservation, error) {
	now := s.now().UTC()

	var (
		out  model.Reservation
		from model.ReservationStatus
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, r Repos) error {
		res, err := r.Reservations.GetByIDForUpdate(ctx, req.ReservationID)
		if err != nil {
			return notFoundAs(err, apperr.CodeReservationNotFound)
		}
		if req.ActorEmail != "" {
			if err := requireStoreOwner(ctx, r, res.StoreID, req.ActorEmail); err != nil {
				return err
			}
		}
		from = res.Status
		if err := applyGenericTransition(&res, req.Status, now); err != nil {
			return err
		}
		if err := r.Reservations.UpdateStatus(ctx, &res); err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return model.Reservation{}, fail(ctx, s.metrics, "update reservation status", err,
			zap.Uint64("reservation_id", req.ReservationID), zap.String("status", string(req.Status)))
	}
	s.metrics.Transition(string(from), string(out.Status))
	if out.Status == model.StatusApproved || out.Status == model.StatusRejected {
		s.publish(ctx, notify.EventReservationDecided, out, now)
	}
	return out, nil
}

// CancelReservation lets the reserving member cancel under the same rules
// as UpdateReservationStatus(CANCELLED).
func (s *ReservationService) CancelReservation(ctx context.Context, memberEmail string, reservationID uint64) (model.Reservation, error) {
	now := s.now().UTC()

	var (
		out  model.Reservation
		from model.ReservationStatus
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, r Repos) error {
		res, err := r.Reservations.GetByIDForUpdate(ctx, reservationID)
		if err != nil {
			return notFoundAs(err, apperr.CodeReservationNotFound)
		}
		if err := requireReservationOwner(ctx, r, res, memberEmail); err != nil {
			return err
		}
		from = res.Status
		if err := applyGenericTransition(&res, model.StatusCancelled, now); err != nil {
			return err
		}
		if err := r.Reservations.UpdateStatus(ctx, &res); err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return model.Reservation{}, fail(ctx, s.metrics, "cancel reservation", err,
			zap.Uint64("reservation_id", reservationID), zap.String("member", memberEmail))
	}
	s.metrics.Transition(string(from), string(out.Status))
	return out, nil
}

// applyGenericTransition enforces the rules of the generic status path.
func applyGenericTransition(res *model.Reservation, next model.ReservationStatus, now time.Time) error {
	switch {
	case res.Status == model.StatusCompleted || res.Status == model.StatusCancelled:
		return apperr.New(apperr.CodeInvalidStatusUpdate)
	case next == model.StatusCheckedIn || next == model.StatusNoShow:
		return apperr.New(apperr.CodeInvalidStatusUpdate)
	}
	if err := res.TransitionTo(next, now); err != nil {
		return apperr.New(apperr.CodeInvalidStatusUpdate)
	}
	return nil
}

// CheckIn is the kiosk path: an APPROVED reservation inside its check-in
// window with the right code becomes CHECKED_IN.  The row lock makes a
// second concurrent attempt observe CHECKED_IN and fail.
func (s *ReservationService) CheckIn(ctx context.Context, reservationID uint64, verificationCode string) (model.Reservation, error) {
	now := s.now().UTC()

	var out model.Reservation
	err := s.tx.WithinTx(ctx, func(ctx context.Context, r Repos) error {
		res, err := r.Reservations.GetByIDForUpdate(ctx, reservationID)
		if err != nil {
			return notFoundAs(err, apperr.CodeReservationNotFound)
		}
		if res.Status != model.StatusApproved {
			return apperr.New(apperr.CodeInvalidCheckinStatus)
		}
		if now.Before(res.ReservationTime.Add(-s.policy.CheckInEarly)) {
			return apperr.New(apperr.CodeEarlyCheckin)
		}
		if now.After(res.ReservationTime.Add(s.policy.CheckInLate)) {
			return apperr.New(apperr.CodeLateCheckin)
		}
		if subtle.ConstantTimeCompare([]byte(verificationCode), []byte(res.VerificationCode)) != 1 {
			return apperr.New(apperr.CodeInvalidVerificationCode)
		}
		if err := res.TransitionTo(model.StatusCheckedIn, now); err != nil {
			return apperr.New(apperr.CodeInvalidCheckinStatus)
		}
		if err := r.Reservations.UpdateStatus(ctx, &res); err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return model.Reservation{}, fail(ctx, s.metrics, "check in", err, zap.Uint64("reservation_id", reservationID))
	}
	s.metrics.Transition(string(model.StatusApproved), string(model.StatusCheckedIn))
	s.publish(ctx, notify.EventReservationCheckedIn, out, now)
	return out, nil
}

// MarkNoShow closes an APPROVED reservation whose check-in window has
// passed.  The target status comes from the policy.
func (s *ReservationService) MarkNoShow(ctx context.Context, ownerEmail string, reservationID uint64) (model.Reservation, error) {
	now := s.now().UTC()
	target := model.ReservationStatus(s.policy.NoShowStatus)
	if target != model.StatusCancelled {
		target = model.StatusNoShow
	}

	var out model.Reservation
	err := s.tx.WithinTx(ctx, func(ctx context.Context, r Repos) error {
		res, err := r.Reservations.GetByIDForUpdate(ctx, reservationID)
		if err != nil {
			return notFoundAs(err, apperr.CodeReservationNotFound)
		}
		if err := requireStoreOwner(ctx, r, res.StoreID, ownerEmail); err != nil {
			return err
		}
		if res.Status != model.StatusApproved {
			return apperr.New(apperr.CodeInvalidStatusUpdate)
		}
		if !now.After(res.ReservationTime.Add(s.policy.CheckInLate)) {
			return apperr.New(apperr.CodeNoShowTooEarly)
		}
		if err := res.TransitionTo(target, now); err != nil {
			return apperr.New(apperr.CodeInvalidStatusUpdate)
		}
		if err := r.Reservations.UpdateStatus(ctx, &res); err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return model.Reservation{}, fail(ctx, s.metrics, "mark no-show", err, zap.Uint64("reservation_id", reservationID))
	}
	s.metrics.Transition(string(model.StatusApproved), string(target))
	return out, nil
}

// GetReservations runs a filtered, paginated listing.
func (s *ReservationService) GetReservations(ctx context.Context, c repository.ReservationCriteria, page repository.Page) ([]model.ReservationSummary, int64, error) {
	items, total, err := s.tx.Repos().Reservations.Search(ctx, c, page)
	if err != nil {
		return nil, 0, fail(ctx, nil, "search reservations", err)
	}
	return items, total, nil
}

// GetMemberReservation returns a reservation only to the member who made
// it.  The kiosk QR endpoint reads the verification code through this.
func (s *ReservationService) GetMemberReservation(ctx context.Context, memberEmail string, reservationID uint64) (model.Reservation, error) {
	r := s.tx.Repos()
	res, err := r.Reservations.GetByID(ctx, reservationID)
	if err != nil {
		return model.Reservation{}, fail(ctx, nil, "get reservation", notFoundAs(err, apperr.CodeReservationNotFound))
	}
	if err := requireReservationOwner(ctx, r, res, memberEmail); err != nil {
		return model.Reservation{}, fail(ctx, nil, "get reservation", err)
	}
	return res, nil
}

// publish sends an event after commit.  Failures are logged only.
func (s *ReservationService) publish(ctx context.Context, eventType string, res model.Reservation, now time.Time) {
	if s.notifier == nil {
		return
	}
	ev := notify.NewReservationEvent(eventType, res, now)
	if err := s.notifier.Publish(ctx, ev); err != nil {
		logger.FromContext(ctx).Warn("notification not delivered",
			zap.String("type", eventType), zap.Uint64("reservation_id", res.ID), zap.Error(err))
	}
}

func requireStoreOwner(ctx context.Context, r Repos, storeID uint64, ownerEmail string) error {
	ok, err := r.Stores.IsOwnedBy(ctx, storeID, ownerEmail)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.New(apperr.CodeInvalidStoreOwner)
	}
	return nil
}

// requireReservationOwner fails with NOT_RESERVATION_OWNER unless
// memberEmail belongs to the member who made res.  An unknown email is
// treated the same as a different member.
func requireReservationOwner(ctx context.Context, r Repos, res model.Reservation, memberEmail string) error {
	m, err := r.Members.GetByEmail(ctx, memberEmail)
	if err != nil {
		return notFoundAs(err, apperr.CodeNotReservationOwner)
	}
	if m.ID != res.MemberID {
		return apperr.New(apperr.CodeNotReservationOwner)
	}
	return nil
}
