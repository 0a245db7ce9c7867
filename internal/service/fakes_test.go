package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/store-reservation/internal/model"
	"github.com/iliyamo/store-reservation/internal/notify"
	"github.com/iliyamo/store-reservation/internal/repository"
)

// memDB is an in-memory stand-in for the MySQL schema.  fakeTx serializes
// units of work on one mutex, so it cannot reveal a missing row lock on its
// own; instead every locking read and window query is appended to calls and
// tests assert the order the real repositories would see.
type memDB struct {
	members      map[uint64]model.Member
	stores       map[uint64]model.Store
	reservations map[uint64]model.Reservation
	reviews      map[uint64]model.Review
	tokens       map[string]tokenRow
	seq          uint64
}

type tokenRow struct {
	memberID uint64
	exp      time.Time
	revoked  bool
}

func newMemDB() *memDB {
	return &memDB{
		members:      map[uint64]model.Member{},
		stores:       map[uint64]model.Store{},
		reservations: map[uint64]model.Reservation{},
		reviews:      map[uint64]model.Review{},
		tokens:       map[string]tokenRow{},
	}
}

func (db *memDB) next() uint64 { db.seq++; return db.seq }

type fakeTx struct {
	mu     sync.Mutex
	db     *memDB
	failOn string
	calls  []string
}

func newFakeTx() *fakeTx { return &fakeTx{db: newMemDB()} }

func (f *fakeTx) repos() Repos {
	return Repos{
		Members:      memMembers{f},
		Stores:       memStores{f},
		Reservations: memReservations{f},
		Reviews:      memReviews{f},
		Tokens:       memTokens{f},
	}
}

// WithinTx applies fn to a copy of the data and keeps it only on success.
func (f *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
	snapshot := f.db.clone()
	if err := fn(ctx, f.repos()); err != nil {
		f.db = snapshot
		return err
	}
	return nil
}

func (f *fakeTx) Repos() Repos { return f.repos() }

func (f *fakeTx) record(call string) { f.calls = append(f.calls, call) }

// lastCalls returns the locks and window queries of the most recent unit of work.
func (f *fakeTx) lastCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (db *memDB) clone() *memDB {
	c := newMemDB()
	c.seq = db.seq
	for k, v := range db.members {
		c.members[k] = v
	}
	for k, v := range db.stores {
		c.stores[k] = v
	}
	for k, v := range db.reservations {
		c.reservations[k] = v
	}
	for k, v := range db.reviews {
		c.reviews[k] = v
	}
	for k, v := range db.tokens {
		c.tokens[k] = v
	}
	return c
}

func (f *fakeTx) addMember(email string, role model.MemberRole) model.Member {
	m := model.Member{ID: f.db.next(), Email: email, Role: role, Name: email}
	f.db.members[m.ID] = m
	return m
}

func (f *fakeTx) addStore(owner model.Member, name string) model.Store {
	s := model.Store{ID: f.db.next(), OwnerID: owner.ID, Name: name, Location: "Main St"}
	f.db.stores[s.ID] = s
	return s
}

func (f *fakeTx) addReservation(res model.Reservation) model.Reservation {
	res.ID = f.db.next()
	f.db.reservations[res.ID] = res
	return res
}

func (f *fakeTx) reservation(id uint64) model.Reservation { return f.db.reservations[id] }
func (f *fakeTx) store(id uint64) model.Store             { return f.db.stores[id] }

type memMembers struct{ f *fakeTx }

func (m memMembers) Create(_ context.Context, mem *model.Member) error {
	for _, x := range m.f.db.members {
		if x.Email == repository.NormalizeEmail(mem.Email) {
			return repository.ErrDuplicate
		}
	}
	mem.ID = m.f.db.next()
	mem.Email = repository.NormalizeEmail(mem.Email)
	m.f.db.members[mem.ID] = *mem
	return nil
}

func (m memMembers) GetByEmail(_ context.Context, email string) (model.Member, error) {
	for _, x := range m.f.db.members {
		if x.Email == repository.NormalizeEmail(email) {
			return x, nil
		}
	}
	return model.Member{}, repository.ErrNotFound
}

func (m memMembers) GetByEmailForUpdate(ctx context.Context, email string) (model.Member, error) {
	m.f.record("lock member")
	return m.GetByEmail(ctx, email)
}

func (m memMembers) GetByID(_ context.Context, id uint64) (model.Member, error) {
	x, ok := m.f.db.members[id]
	if !ok {
		return model.Member{}, repository.ErrNotFound
	}
	return x, nil
}

func (m memMembers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	return err == nil, nil
}

type memStores struct{ f *fakeTx }

func (s memStores) Create(_ context.Context, st *model.Store) error {
	st.ID = s.f.db.next()
	s.f.db.stores[st.ID] = *st
	return nil
}

func (s memStores) GetByID(_ context.Context, id uint64) (model.Store, error) {
	x, ok := s.f.db.stores[id]
	if !ok {
		return model.Store{}, repository.ErrNotFound
	}
	return x, nil
}

func (s memStores) GetByIDForUpdate(ctx context.Context, id uint64) (model.Store, error) {
	s.f.record("lock store")
	return s.GetByID(ctx, id)
}

func (s memStores) IsOwnedBy(_ context.Context, storeID uint64, ownerEmail string) (bool, error) {
	st, ok := s.f.db.stores[storeID]
	if !ok {
		return false, nil
	}
	owner := s.f.db.members[st.OwnerID]
	return owner.Email == repository.NormalizeEmail(ownerEmail), nil
}

func (s memStores) ListByOwner(_ context.Context, ownerID uint64) ([]model.Store, error) {
	out := []model.Store{}
	for _, x := range s.f.db.stores {
		if x.OwnerID == ownerID {
			out = append(out, x)
		}
	}
	return out, nil
}

func (s memStores) UpdateRating(_ context.Context, st *model.Store) error {
	cur := s.f.db.stores[st.ID]
	cur.AverageRating, cur.ReviewCount = st.AverageRating, st.ReviewCount
	s.f.db.stores[st.ID] = cur
	return nil
}

func (s memStores) Search(_ context.Context, q repository.StoreSearchQuery) ([]model.Store, int64, error) {
	out := []model.Store{}
	for _, x := range s.f.db.stores {
		if q.Keyword == "" || strings.Contains(strings.ToLower(x.Name), strings.ToLower(q.Keyword)) {
			out = append(out, x)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, int64(len(out)), nil
}

type memReservations struct{ f *fakeTx }

func (r memReservations) Create(_ context.Context, res *model.Reservation) error {
	if r.f.failOn == "reservations.create" {
		return errBoom
	}
	res.ID = r.f.db.next()
	r.f.db.reservations[res.ID] = *res
	return nil
}

func (r memReservations) GetByID(_ context.Context, id uint64) (model.Reservation, error) {
	x, ok := r.f.db.reservations[id]
	if !ok {
		return model.Reservation{}, repository.ErrNotFound
	}
	return x, nil
}

func (r memReservations) GetByIDForUpdate(ctx context.Context, id uint64) (model.Reservation, error) {
	r.f.record("lock reservation")
	return r.GetByID(ctx, id)
}

func (r memReservations) UpdateStatus(_ context.Context, res *model.Reservation) error {
	r.f.db.reservations[res.ID] = *res
	return nil
}

func (r memReservations) ExistsByMemberAndTimeBetween(_ context.Context, memberID uint64, start, end time.Time) (bool, error) {
	r.f.record("member window")
	for _, x := range r.f.db.reservations {
		if x.MemberID == memberID &&
			!x.ReservationTime.Before(start) && !x.ReservationTime.After(end) {
			return true, nil
		}
	}
	return false, nil
}

func (r memReservations) CountByStoreAndTimeBetween(_ context.Context, storeID uint64, start, end time.Time) (int64, error) {
	r.f.record("store window")
	var n int64
	for _, x := range r.f.db.reservations {
		if x.StoreID == storeID &&
			!x.ReservationTime.Before(start) && !x.ReservationTime.After(end) {
			n++
		}
	}
	return n, nil
}

func (r memReservations) ListTimesByStoreBetween(_ context.Context, storeID uint64, start, end time.Time) ([]time.Time, error) {
	var out []time.Time
	for _, x := range r.f.db.reservations {
		if x.StoreID == storeID &&
			!x.ReservationTime.Before(start) && !x.ReservationTime.After(end) {
			out = append(out, x.ReservationTime)
		}
	}
	return out, nil
}

func (r memReservations) Search(_ context.Context, c repository.ReservationCriteria, _ repository.Page) ([]model.ReservationSummary, int64, error) {
	out := []model.ReservationSummary{}
	for _, x := range r.f.db.reservations {
		m := r.f.db.members[x.MemberID]
		if c.MemberEmail != "" && m.Email != c.MemberEmail {
			continue
		}
		if c.StoreID != 0 && x.StoreID != c.StoreID {
			continue
		}
		out = append(out, model.ReservationSummary{Reservation: x, MemberEmail: m.Email, StoreName: r.f.db.stores[x.StoreID].Name})
	}
	return out, int64(len(out)), nil
}

type memReviews struct{ f *fakeTx }

func (r memReviews) Create(_ context.Context, rv *model.Review) error {
	for _, x := range r.f.db.reviews {
		if x.ReservationID == rv.ReservationID {
			return repository.ErrDuplicate
		}
	}
	rv.ID = r.f.db.next()
	r.f.db.reviews[rv.ID] = *rv
	return nil
}

func (r memReviews) GetByID(_ context.Context, id uint64) (model.Review, error) {
	x, ok := r.f.db.reviews[id]
	if !ok {
		return model.Review{}, repository.ErrNotFound
	}
	return x, nil
}

func (r memReviews) GetByIDForUpdate(ctx context.Context, id uint64) (model.Review, error) {
	r.f.record("lock review")
	return r.GetByID(ctx, id)
}

func (r memReviews) Update(_ context.Context, rv *model.Review) error {
	r.f.db.reviews[rv.ID] = *rv
	return nil
}

func (r memReviews) Delete(_ context.Context, id uint64) error {
	if _, ok := r.f.db.reviews[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.f.db.reviews, id)
	return nil
}

func (r memReviews) ExistsByReservationID(_ context.Context, reservationID uint64) (bool, error) {
	for _, x := range r.f.db.reviews {
		if x.ReservationID == reservationID {
			return true, nil
		}
	}
	return false, nil
}

func (r memReviews) ListByStore(_ context.Context, storeID uint64, _ repository.Page) ([]model.Review, int64, error) {
	out := []model.Review{}
	for _, x := range r.f.db.reviews {
		if x.StoreID == storeID {
			out = append(out, x)
		}
	}
	return out, int64(len(out)), nil
}

type memTokens struct{ f *fakeTx }

func (t memTokens) StoreRefresh(_ context.Context, memberID uint64, hash string, exp time.Time) error {
	t.f.db.tokens[hash] = tokenRow{memberID: memberID, exp: exp}
	return nil
}

func (t memTokens) ValidateRefresh(_ context.Context, hash string) (uint64, error) {
	row, ok := t.f.db.tokens[hash]
	if !ok || row.revoked || time.Now().After(row.exp) {
		return 0, repository.ErrNotFound
	}
	return row.memberID, nil
}

func (t memTokens) RevokeByHash(_ context.Context, hash string) error {
	if row, ok := t.f.db.tokens[hash]; ok {
		row.revoked = true
		t.f.db.tokens[hash] = row
	}
	return nil
}

func (t memTokens) RevokeAllForMember(_ context.Context, memberID uint64) error {
	for k, row := range t.f.db.tokens {
		if row.memberID == memberID {
			row.revoked = true
			t.f.db.tokens[k] = row
		}
	}
	return nil
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Publish(ctx context.Context, ev notify.ReservationEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

type mockBlacklist struct {
	mock.Mock
}

func (m *mockBlacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

func (m *mockBlacklist) Revoke(ctx context.Context, token string, expiry time.Time) error {
	args := m.Called(ctx, token, expiry)
	return args.Error(0)
}
