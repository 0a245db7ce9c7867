package model

import "time"

// MemberRole is the role claim carried by a member.  USER members make
// reservations and reviews, PARTNER members own stores.
type MemberRole string

const (
    RoleUser    MemberRole = "USER"
    RolePartner MemberRole = "PARTNER"
)

// ParseMemberRole maps sign-up input onto a role.  Anything other than
// PARTNER falls back to USER.
func ParseMemberRole(s string) MemberRole {
    if MemberRole(s) == RolePartner {
        return RolePartner
    }
    return RoleUser
}

// Member represents a row of the `members` table.
//
// Fields:
//  ID           – primary key identifier of the member.
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hashed password.
//  Name         – display name.
//  Role         – USER or PARTNER.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type Member struct {
    ID           uint64     // members.id
    Email        string     // members.email
    PasswordHash string     // members.password_hash
    Name         string     // members.name
    Role         MemberRole // members.role
    CreatedAt    time.Time  // members.created_at
    UpdatedAt    time.Time  // members.updated_at
}

// IsPartner reports whether the member may own stores.
func (m Member) IsPartner() bool { return m.Role == RolePartner }

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA‑256 hash of the raw token is stored.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    MemberID  uint64     // refresh_tokens.member_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
