package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/store-reservation/internal/middleware"
    "github.com/iliyamo/store-reservation/internal/model"
    "github.com/iliyamo/store-reservation/internal/service"
)

// AuthHandler serves sign-up, sign-in, refresh, sign-out and /me.
type AuthHandler struct {
    Members MemberAPI
}

func NewAuthHandler(m MemberAPI) *AuthHandler {
    if m == nil {
        panic("nil MemberAPI passed to NewAuthHandler")
    }
    return &AuthHandler{Members: m}
}

// ----- DTOs -----

type signUpReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
    Name     string `json:"name"`
    Role     string `json:"role"` // USER | PARTNER
}
type signInReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}
type refreshReq struct {
    RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}
type memberPart struct {
    ID    uint64 `json:"id"`
    Email string `json:"email"`
    Name  string `json:"name,omitempty"`
    Role  string `json:"role"`
}
type authResp struct {
    Member  memberPart `json:"member"`
    Access  tokenPart  `json:"access"`
    Refresh tokenPart  `json:"refresh"`
}

func toMemberPart(m model.Member) memberPart {
    return memberPart{ID: m.ID, Email: m.Email, Name: m.Name, Role: string(m.Role)}
}

func toAuthResp(s service.Session) authResp {
    return authResp{
        Member:  toMemberPart(s.Member),
        Access:  tokenPart{Token: s.AccessToken, Expires: s.AccessExp},
        Refresh: tokenPart{Token: s.RefreshToken, Expires: s.RefreshExp},
    }
}

// SignUp: POST /v1/auth/sign-up.  Returns the member; tokens come from
// sign-in.
func (h *AuthHandler) SignUp(c echo.Context) error {
    var req signUpReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    m, err := h.Members.SignUp(c.Request().Context(), service.SignUpRequest{
        Email: req.Email, Password: req.Password, Name: req.Name, Role: req.Role,
    })
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"member": toMemberPart(m)})
}

// SignIn: POST /v1/auth/sign-in.
func (h *AuthHandler) SignIn(c echo.Context) error {
    var req signInReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    if req.Email == "" || req.Password == "" {
        return badRequest(c, "email/password required")
    }
    s, err := h.Members.SignIn(c.Request().Context(), req.Email, req.Password)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, toAuthResp(s))
}

// Refresh: POST /v1/auth/refresh.  The old refresh token is revoked.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
        return badRequest(c, "refresh_token required")
    }
    s, err := h.Members.Refresh(c.Request().Context(), req.RefreshToken)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, toAuthResp(s))
}

// SignOut: POST /v1/auth/sign-out.  Runs behind JWTAuth so the access
// token is known; the refresh token in the body is optional.
func (h *AuthHandler) SignOut(c echo.Context) error {
    var req refreshReq
    _ = c.Bind(&req)
    tok, exp := middleware.AccessToken(c)
    if err := h.Members.SignOut(c.Request().Context(), tok, exp, req.RefreshToken); err != nil {
        return writeError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// Me: GET /v1/me.
func (h *AuthHandler) Me(c echo.Context) error {
    m, err := h.Members.Me(c.Request().Context(), middleware.Email(c))
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"member": toMemberPart(m)})
}
