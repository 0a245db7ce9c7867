package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/store-reservation/internal/apperr"
	"github.com/iliyamo/store-reservation/internal/config"
	"github.com/iliyamo/store-reservation/internal/logger"
	"github.com/iliyamo/store-reservation/internal/model"
	"github.com/iliyamo/store-reservation/internal/repository"
	"github.com/iliyamo/store-reservation/internal/utils"
)

const minPasswordLen = 8

// MemberService covers sign-up, sign-in, token refresh and sign-out.
type MemberService struct {
	tx        TxRunner
	cfg       config.Config
	blacklist Blacklist
}

func NewMemberService(tx TxRunner, cfg config.Config, bl Blacklist) *MemberService {
	if tx == nil {
		panic("nil TxRunner passed to NewMemberService")
	}
	return &MemberService{tx: tx, cfg: cfg, blacklist: bl}
}

type SignUpRequest struct {
	Email    string
	Password string
	Name     string
	Role     string
}

// Session is the token pair handed out on sign-in and refresh.
type Session struct {
	Member       model.Member
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
}

func (s *MemberService) SignUp(ctx context.Context, req SignUpRequest) (model.Member, error) {
	email := repository.NormalizeEmail(req.Email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return model.Member{}, apperr.Newf(apperr.CodeInvalidRequest, "invalid email")
	}
	if len(req.Password) < minPasswordLen {
		return model.Member{}, apperr.Newf(apperr.CodeInvalidRequest, "password must be at least %d characters", minPasswordLen)
	}
	hash, err := utils.HashPassword(req.Password, s.cfg.BcryptCost)
	if err != nil {
		return model.Member{}, fail(ctx, nil, "sign up", err)
	}
	m := model.Member{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(req.Name),
		Role:         model.ParseMemberRole(strings.ToUpper(strings.TrimSpace(req.Role))),
	}
	if err := s.tx.Repos().Members.Create(ctx, &m); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.Member{}, apperr.New(apperr.CodeEmailAlreadyExists)
		}
		return model.Member{}, fail(ctx, nil, "sign up", err, zap.String("email", email))
	}
	logger.FromContext(ctx).Info("member registered", zap.Uint64("member_id", m.ID), zap.String("role", string(m.Role)))
	return m, nil
}

// SignIn verifies credentials.  Unknown email and wrong password are
// indistinguishable to the caller.
func (s *MemberService) SignIn(ctx context.Context, email, password string) (Session, error) {
	r := s.tx.Repos()
	m, err := r.Members.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.VerifyPassword("", password)
			return Session{}, apperr.New(apperr.CodeInvalidCredentials)
		}
		return Session{}, fail(ctx, nil, "sign in", err)
	}
	if !utils.VerifyPassword(m.PasswordHash, password) {
		return Session{}, apperr.New(apperr.CodeInvalidCredentials)
	}
	sess, err := s.issue(ctx, r, m)
	if err != nil {
		return Session{}, fail(ctx, nil, "sign in", err, zap.Uint64("member_id", m.ID))
	}
	return sess, nil
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued.
func (s *MemberService) Refresh(ctx context.Context, refreshRaw string) (Session, error) {
	var out Session
	err := s.tx.WithinTx(ctx, func(ctx context.Context, r Repos) error {
		hash := utils.HashRefreshRaw(refreshRaw)
		memberID, err := r.Tokens.ValidateRefresh(ctx, hash)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.Newf(apperr.CodeInvalidCredentials, "invalid refresh token")
			}
			return err
		}
		m, err := r.Members.GetByID(ctx, memberID)
		if err != nil {
			return notFoundAs(err, apperr.CodeMemberNotFound)
		}
		if err := r.Tokens.RevokeByHash(ctx, hash); err != nil {
			return err
		}
		out, err = s.issue(ctx, r, m)
		return err
	})
	if err != nil {
		return Session{}, fail(ctx, nil, "refresh", err)
	}
	return out, nil
}

// SignOut blacklists the access token until it expires and revokes the
// refresh token when one is given.
func (s *MemberService) SignOut(ctx context.Context, accessToken string, accessExp time.Time, refreshRaw string) error {
	if s.blacklist != nil && accessToken != "" {
		if err := s.blacklist.Revoke(ctx, accessToken, accessExp); err != nil {
			return fail(ctx, nil, "sign out", err)
		}
	}
	if refreshRaw != "" {
		if err := s.tx.Repos().Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(refreshRaw)); err != nil {
			return fail(ctx, nil, "sign out", err)
		}
	}
	return nil
}

// IsRevoked reports whether accessToken was signed out.
func (s *MemberService) IsRevoked(ctx context.Context, accessToken string) (bool, error) {
	if s.blacklist == nil {
		return false, nil
	}
	return s.blacklist.IsRevoked(ctx, accessToken)
}

// Me returns the member behind an authenticated email.
func (s *MemberService) Me(ctx context.Context, email string) (model.Member, error) {
	m, err := s.tx.Repos().Members.GetByEmail(ctx, email)
	if err != nil {
		return model.Member{}, fail(ctx, nil, "get member", notFoundAs(err, apperr.CodeMemberNotFound))
	}
	return m, nil
}

func (s *MemberService) issue(ctx context.Context, r Repos, m model.Member) (Session, error) {
	access, err := utils.NewAccessToken(s.cfg.JWTSecret, m.Email, string(m.Role), s.cfg.AccessTTLMin)
	if err != nil {
		return Session{}, err
	}
	refresh, err := utils.NewRefreshToken(s.cfg.RefreshTTLDays)
	if err != nil {
		return Session{}, err
	}
	if err := r.Tokens.StoreRefresh(ctx, m.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return Session{}, err
	}
	return Session{
		Member:       m,
		AccessToken:  access.Token,
		AccessExp:    access.Exp,
		RefreshToken: refresh.Raw,
		RefreshExp:   refresh.Exp,
	}, nil
}
