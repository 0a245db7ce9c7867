package repository

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/store-reservation/internal/model"
)

const memberColumns = "id,email,password_hash,name,role,created_at,updated_at"

type MemberRepo struct{ db DBTX }

func NewMemberRepo(db DBTX) *MemberRepo { return &MemberRepo{db: db} }

// NormalizeEmail lower-cases and trims an email the way it is stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts m and fills in its ID and timestamps.  A duplicate email
// yields ErrDuplicate.
func (r *MemberRepo) Create(ctx context.Context, m *model.Member) error {
	now := time.Now().UTC()
	m.Email = NormalizeEmail(m.Email)
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO members (email, password_hash, name, role, created_at, updated_at) VALUES (?,?,?,?,?,?)",
		m.Email, m.PasswordHash, m.Name, string(m.Role), now, now)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	m.CreatedAt, m.UpdatedAt = now, now
	return nil
}

// GetByEmail fetches a member by normalized email.
func (r *MemberRepo) GetByEmail(ctx context.Context, email string) (model.Member, error) {
	return scanMember(r.db.QueryRowContext(ctx,
		"SELECT "+memberColumns+" FROM members WHERE email=? LIMIT 1", NormalizeEmail(email)))
}

// GetByEmailForUpdate is GetByEmail with a row lock.  Reservation creation
// takes it so two requests from the same member serialize on the duplicate
// check.
func (r *MemberRepo) GetByEmailForUpdate(ctx context.Context, email string) (model.Member, error) {
	return scanMember(r.db.QueryRowContext(ctx,
		"SELECT "+memberColumns+" FROM members WHERE email=? LIMIT 1 FOR UPDATE", NormalizeEmail(email)))
}

// GetByID fetches a member by id.
func (r *MemberRepo) GetByID(ctx context.Context, id uint64) (model.Member, error) {
	return scanMember(r.db.QueryRowContext(ctx,
		"SELECT "+memberColumns+" FROM members WHERE id=? LIMIT 1", id))
}

// ExistsByEmail reports whether a member with this email is registered.
func (r *MemberRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM members WHERE email=?", NormalizeEmail(email)).Scan(&n)
	return n > 0, err
}

func scanMember(row rowScanner) (model.Member, error) {
	var (
		m    model.Member
		role string
	)
	err := row.Scan(&m.ID, &m.Email, &m.PasswordHash, &m.Name, &role, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return model.Member{}, translate(err)
	}
	m.Role = model.MemberRole(role)
	return m, nil
}
