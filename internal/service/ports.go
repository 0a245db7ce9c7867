// Package service holds the business rules: the reservation lifecycle
// engine, the review eligibility gate, and the member and store directory
// operations around them.  Services depend on repository ports and run
// every state change inside one transaction obtained from a TxRunner.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/store-reservation/internal/model"
	"github.com/iliyamo/store-reservation/internal/notify"
	"github.com/iliyamo/store-reservation/internal/repository"
)

type MemberRepository interface {
	Create(ctx context.Context, m *model.Member) error
	GetByEmail(ctx context.Context, email string) (model.Member, error)
	GetByEmailForUpdate(ctx context.Context, email string) (model.Member, error)
	GetByID(ctx context.Context, id uint64) (model.Member, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

type StoreRepository interface {
	Create(ctx context.Context, s *model.Store) error
	GetByID(ctx context.Context, id uint64) (model.Store, error)
	GetByIDForUpdate(ctx context.Context, id uint64) (model.Store, error)
	IsOwnedBy(ctx context.Context, storeID uint64, ownerEmail string) (bool, error)
	ListByOwner(ctx context.Context, ownerID uint64) ([]model.Store, error)
	UpdateRating(ctx context.Context, s *model.Store) error
	Search(ctx context.Context, q repository.StoreSearchQuery) ([]model.Store, int64, error)
}

type ReservationRepository interface {
	Create(ctx context.Context, res *model.Reservation) error
	GetByID(ctx context.Context, id uint64) (model.Reservation, error)
	GetByIDForUpdate(ctx context.Context, id uint64) (model.Reservation, error)
	UpdateStatus(ctx context.Context, res *model.Reservation) error
	ExistsByMemberAndTimeBetween(ctx context.Context, memberID uint64, start, end time.Time) (bool, error)
	CountByStoreAndTimeBetween(ctx context.Context, storeID uint64, start, end time.Time) (int64, error)
	ListTimesByStoreBetween(ctx context.Context, storeID uint64, start, end time.Time) ([]time.Time, error)
	Search(ctx context.Context, c repository.ReservationCriteria, page repository.Page) ([]model.ReservationSummary, int64, error)
}

type ReviewRepository interface {
	Create(ctx context.Context, rv *model.Review) error
	GetByID(ctx context.Context, id uint64) (model.Review, error)
	GetByIDForUpdate(ctx context.Context, id uint64) (model.Review, error)
	Update(ctx context.Context, rv *model.Review) error
	Delete(ctx context.Context, id uint64) error
	ExistsByReservationID(ctx context.Context, reservationID uint64) (bool, error)
	ListByStore(ctx context.Context, storeID uint64, page repository.Page) ([]model.Review, int64, error)
}

type TokenRepository interface {
	StoreRefresh(ctx context.Context, memberID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForMember(ctx context.Context, memberID uint64) error
}

// Repos bundles the repositories bound to one connection or transaction.
type Repos struct {
	Members      MemberRepository
	Stores       StoreRepository
	Reservations ReservationRepository
	Reviews      ReviewRepository
	Tokens       TokenRepository
}

// TxRunner hands out repositories.  WithinTx binds them to a single
// transaction that commits when fn returns nil and rolls back otherwise;
// Repos returns pool-bound repositories for plain reads.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
	Repos() Repos
}

// Notifier publishes lifecycle events.  Implementations live in package
// notify.
type Notifier interface {
	Publish(ctx context.Context, ev notify.ReservationEvent) error
}

// Blacklist is the revoked access-token store consulted on sign-out.
type Blacklist interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
	Revoke(ctx context.Context, token string, expiry time.Time) error
}
