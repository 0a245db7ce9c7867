package handler

import (
    "fmt"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/skip2/go-qrcode"

    "github.com/iliyamo/store-reservation/internal/apperr"
    "github.com/iliyamo/store-reservation/internal/middleware"
    "github.com/iliyamo/store-reservation/internal/model"
    "github.com/iliyamo/store-reservation/internal/repository"
    "github.com/iliyamo/store-reservation/internal/service"
)

const qrSize = 256

// ReservationHandler serves the member, partner and kiosk reservation
// routes.
type ReservationHandler struct {
    Reservations ReservationAPI
    Stores       StoreAPI
}

func NewReservationHandler(r ReservationAPI, s StoreAPI) *ReservationHandler {
    if r == nil || s == nil {
        panic("nil service passed to NewReservationHandler")
    }
    return &ReservationHandler{Reservations: r, Stores: s}
}

// reservationResp omits the verification code; only the reserving member
// sees it, in the create response and the QR image.
type reservationResp struct {
    ID              uint64     `json:"id"`
    StoreID         uint64     `json:"store_id"`
    MemberID        uint64     `json:"member_id"`
    ReservationTime time.Time  `json:"reservation_time"`
    Status          string     `json:"status"`
    CheckInTime     *time.Time `json:"check_in_time,omitempty"`
    CreatedAt       time.Time  `json:"created_at"`
    UpdatedAt       time.Time  `json:"updated_at"`
    StoreName       string     `json:"store_name,omitempty"`
    MemberEmail     string     `json:"member_email,omitempty"`
}

func toReservationResp(r model.Reservation) reservationResp {
    return reservationResp{
        ID: r.ID, StoreID: r.StoreID, MemberID: r.MemberID, ReservationTime: r.ReservationTime,
        Status: string(r.Status), CheckInTime: r.CheckInTime, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
    }
}

type createReservationReq struct {
    StoreID         uint64    `json:"store_id"`
    ReservationTime time.Time `json:"reservation_time"`
}

// Create: POST /v1/reservations (USER).
func (h *ReservationHandler) Create(c echo.Context) error {
    var req createReservationReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body; reservation_time must be RFC3339")
    }
    if req.StoreID == 0 || req.ReservationTime.IsZero() {
        return badRequest(c, "store_id and reservation_time required")
    }
    res, err := h.Reservations.CreateReservation(c.Request().Context(), middleware.Email(c), req.StoreID, req.ReservationTime)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "item":              toReservationResp(res),
        "verification_code": res.VerificationCode,
    })
}

// List: GET /v1/reservations.  USER members see only their own;
// PARTNER members must pass a store_id they own.
func (h *ReservationHandler) List(c echo.Context) error {
    ctx := c.Request().Context()
    crit := repository.ReservationCriteria{}

    if raw := c.QueryParam("store_id"); raw != "" {
        id, err := strconv.ParseUint(raw, 10, 64)
        if err != nil || id == 0 {
            return badRequest(c, "invalid store_id")
        }
        crit.StoreID = id
    }
    if raw := c.QueryParam("status"); raw != "" {
        st, ok := model.ParseReservationStatus(strings.ToUpper(raw))
        if !ok {
            return badRequest(c, "invalid status")
        }
        crit.Status = st
    }
    var err error
    if crit.From, err = optTime(c.QueryParam("from")); err != nil {
        return badRequest(c, "from must be RFC3339")
    }
    if crit.To, err = optTime(c.QueryParam("to")); err != nil {
        return badRequest(c, "to must be RFC3339")
    }

    switch middleware.Role(c) {
    case string(model.RolePartner):
        if crit.StoreID == 0 {
            return badRequest(c, "store_id required")
        }
        owns, err := h.Stores.IsOwner(ctx, crit.StoreID, middleware.Email(c))
        if err != nil {
            return writeError(c, err)
        }
        if !owns {
            return writeError(c, apperr.New(apperr.CodeInvalidStoreOwner))
        }
        crit.MemberEmail = strings.TrimSpace(c.QueryParam("member_email"))
    default:
        crit.MemberEmail = middleware.Email(c)
    }

    p := pageFrom(c)
    items, total, err := h.Reservations.GetReservations(ctx, crit, p)
    if err != nil {
        return writeError(c, err)
    }
    out := make([]reservationResp, 0, len(items))
    for _, it := range items {
        r := toReservationResp(it.Reservation)
        r.StoreName, r.MemberEmail = it.StoreName, it.MemberEmail
        out = append(out, r)
    }
    return c.JSON(http.StatusOK, pageResponse(out, total, p))
}

// Cancel: POST /v1/reservations/:id/cancel (USER, reserving member only).
func (h *ReservationHandler) Cancel(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid reservation id")
    }
    res, err := h.Reservations.CancelReservation(c.Request().Context(), middleware.Email(c), id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"item": toReservationResp(res)})
}

// QR: GET /v1/reservations/:id/qr renders the kiosk payload as a PNG.
func (h *ReservationHandler) QR(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid reservation id")
    }
    res, err := h.Reservations.GetMemberReservation(c.Request().Context(), middleware.Email(c), id)
    if err != nil {
        return writeError(c, err)
    }
    png, err := qrcode.Encode(kioskPayload(res), qrcode.Medium, qrSize)
    if err != nil {
        return writeError(c, err)
    }
    c.Response().Header().Set("Cache-Control", "no-store")
    return c.Blob(http.StatusOK, "image/png", png)
}

// kioskPayload is what the kiosk scanner reads: the id and code it posts
// to the check-in route.
func kioskPayload(r model.Reservation) string {
    return fmt.Sprintf(`{"reservation_id":%d,"verification_code":%q}`, r.ID, r.VerificationCode)
}

type handleReq struct {
    Approved *bool `json:"approved"`
}

// Handle: PATCH /v1/reservations/:id/handle (PARTNER) with {"approved": bool}.
func (h *ReservationHandler) Handle(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid reservation id")
    }
    var req handleReq
    if err := c.Bind(&req); err != nil || req.Approved == nil {
        return badRequest(c, "approved required")
    }
    res, err := h.Reservations.HandleReservation(c.Request().Context(), middleware.Email(c), id, *req.Approved)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"item": toReservationResp(res)})
}

type statusReq struct {
    Status string `json:"status"`
}

// UpdateStatus: PATCH /v1/reservations/:id/status (PARTNER, store owner).
func (h *ReservationHandler) UpdateStatus(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid reservation id")
    }
    var req statusReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    st, ok := model.ParseReservationStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
    if !ok {
        return badRequest(c, "invalid status")
    }
    res, err := h.Reservations.UpdateReservationStatus(c.Request().Context(), service.UpdateStatusRequest{
        ReservationID: id, Status: st, ActorEmail: middleware.Email(c),
    })
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"item": toReservationResp(res)})
}

// NoShow: POST /v1/reservations/:id/no-show (PARTNER, store owner).
func (h *ReservationHandler) NoShow(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid reservation id")
    }
    res, err := h.Reservations.MarkNoShow(c.Request().Context(), middleware.Email(c), id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"item": toReservationResp(res)})
}

type checkInReq struct {
    VerificationCode string `json:"verification_code"`
}

// CheckIn: POST /v1/reservations/:id/check-in.  Kiosk route, no member
// token; the verification code is the credential.
func (h *ReservationHandler) CheckIn(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid reservation id")
    }
    var req checkInReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.VerificationCode) == "" {
        return badRequest(c, "verification_code required")
    }
    res, err := h.Reservations.CheckIn(c.Request().Context(), id, strings.TrimSpace(req.VerificationCode))
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"item": toReservationResp(res)})
}

func optTime(s string) (*time.Time, error) {
    if s == "" {
        return nil, nil
    }
    t, err := time.Parse(time.RFC3339, s)
    if err != nil {
        return nil, err
    }
    return &t, nil
}
