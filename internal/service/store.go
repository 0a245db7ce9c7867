package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/store-reservation/internal/apperr"
	"github.com/iliyamo/store-reservation/internal/config"
	"github.com/iliyamo/store-reservation/internal/logger"
	"github.com/iliyamo/store-reservation/internal/model"
	"github.com/iliyamo/store-reservation/internal/repository"
)

// StoreService is the store directory: registration by partners, public
// search and the per-day timetable.
type StoreService struct {
	tx     TxRunner
	policy config.ReservationPolicy
	now    func() time.Time
}

func NewStoreService(tx TxRunner, policy config.ReservationPolicy, now func() time.Time) *StoreService {
	if tx == nil {
		panic("nil TxRunner passed to NewStoreService")
	}
	if now == nil {
		now = time.Now
	}
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	return &StoreService{tx: tx, policy: policy, now: now}
}

type RegisterStoreRequest struct {
	Name        string
	Location    string
	Description string
	Latitude    *float64
	Longitude   *float64
}

func (s *StoreService) RegisterStore(ctx context.Context, ownerEmail string, req RegisterStoreRequest) (model.Store, error) {
	name := strings.TrimSpace(req.Name)
	location := strings.TrimSpace(req.Location)
	if name == "" || location == "" {
		return model.Store{}, apperr.Newf(apperr.CodeInvalidRequest, "name and location are required")
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return model.Store{}, apperr.Newf(apperr.CodeInvalidRequest, "latitude and longitude go together")
	}
	if req.Latitude != nil && (*req.Latitude < -90 || *req.Latitude > 90 || *req.Longitude < -180 || *req.Longitude > 180) {
		return model.Store{}, apperr.Newf(apperr.CodeInvalidRequest, "coordinates out of range")
	}

	r := s.tx.Repos()
	owner, err := r.Members.GetByEmail(ctx, ownerEmail)
	if err != nil {
		return model.Store{}, fail(ctx, nil, "register store", notFoundAs(err, apperr.CodeMemberNotFound))
	}
	if !owner.IsPartner() {
		return model.Store{}, apperr.New(apperr.CodeNotPartnerMember)
	}
	st := model.Store{
		OwnerID:     owner.ID,
		Name:        name,
		Location:    location,
		Description: strings.TrimSpace(req.Description),
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	}
	if err := r.Stores.Create(ctx, &st); err != nil {
		return model.Store{}, fail(ctx, nil, "register store", err, zap.String("owner", ownerEmail))
	}
	logger.FromContext(ctx).Info("store registered", zap.Uint64("store_id", st.ID), zap.Uint64("owner_id", owner.ID))
	return st, nil
}

func (s *StoreService) GetStore(ctx context.Context, id uint64) (model.Store, error) {
	st, err := s.tx.Repos().Stores.GetByID(ctx, id)
	if err != nil {
		return model.Store{}, fail(ctx, nil, "get store", notFoundAs(err, apperr.CodeStoreNotFound))
	}
	return st, nil
}

func (s *StoreService) SearchStores(ctx context.Context, q repository.StoreSearchQuery) ([]model.Store, int64, error) {
	if strings.EqualFold(q.Sort, repository.SortByDistance) && (q.Latitude == nil || q.Longitude == nil) {
		return nil, 0, apperr.Newf(apperr.CodeInvalidRequest, "lat and lng are required for DISTANCE sort")
	}
	items, total, err := s.tx.Repos().Stores.Search(ctx, q)
	if err != nil {
		return nil, 0, fail(ctx, nil, "search stores", err)
	}
	return items, total, nil
}

// IsOwner reports whether ownerEmail owns storeID.
func (s *StoreService) IsOwner(ctx context.Context, storeID uint64, ownerEmail string) (bool, error) {
	ok, err := s.tx.Repos().Stores.IsOwnedBy(ctx, storeID, ownerEmail)
	if err != nil {
		return false, fail(ctx, nil, "check store owner", err)
	}
	return ok, nil
}

// GetTimeTable lists the day's bookable slots for a store.  Only the
// calendar date of date is used, read in the business time zone; the zero
// time means today.  A slot's seats are the capacity left in its capacity
// window; a slot is available when seats remain and it falls inside the
// lead-time bounds.
func (s *StoreService) GetTimeTable(ctx context.Context, storeID uint64, date time.Time) ([]model.TimeSlot, error) {
	p := s.policy
	r := s.tx.Repos()
	if _, err := r.Stores.GetByID(ctx, storeID); err != nil {
		return nil, fail(ctx, nil, "get timetable", notFoundAs(err, apperr.CodeStoreNotFound))
	}

	if date.IsZero() {
		date = s.now().In(p.Location)
	}
	y, m, d := date.Date()
	open := time.Date(y, m, d, p.OpenHour, 0, 0, 0, p.Location).UTC()
	closing := time.Date(y, m, d, p.CloseHour, 0, 0, 0, p.Location).UTC()
	if !open.Before(closing) {
		return []model.TimeSlot{}, nil
	}

	times, err := r.Reservations.ListTimesByStoreBetween(ctx, storeID,
		open.Add(-p.CapacityWindow), closing.Add(p.CapacityWindow))
	if err != nil {
		return nil, fail(ctx, nil, "get timetable", err, zap.Uint64("store_id", storeID))
	}

	now := s.now().UTC()
	earliest, latest := now.Add(p.MinLeadTime), now.Add(p.MaxLeadTime)
	slots := []model.TimeSlot{}
	for t := open; t.Before(closing); t = t.Add(p.SlotStep) {
		seats := p.SlotCapacity - countWithin(times, t.Add(-p.CapacityWindow), t.Add(p.CapacityWindow))
		if seats < 0 {
			seats = 0
		}
		slots = append(slots, model.TimeSlot{
			Start:          t,
			AvailableSeats: seats,
			Available:      seats > 0 && !t.Before(earliest) && !t.After(latest),
		})
	}
	return slots, nil
}

// countWithin counts times in [from, to].  times is small (one day of one
// store) so a linear scan is enough.
func countWithin(times []time.Time, from, to time.Time) int {
	n := 0
	for _, t := range times {
		if !t.Before(from) && !t.After(to) {
			n++
		}
	}
	return n
}
