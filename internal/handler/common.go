package handler // handler defines http handlers

import (
    "context"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/store-reservation/internal/apperr"
    "github.com/iliyamo/store-reservation/internal/logger"
    "github.com/iliyamo/store-reservation/internal/model"
    "github.com/iliyamo/store-reservation/internal/repository"
    "github.com/iliyamo/store-reservation/internal/service"
)

// The handler layer depends on these service method sets.  The concrete
// services in package service satisfy them.

type MemberAPI interface {
    SignUp(ctx context.Context, req service.SignUpRequest) (model.Member, error)
    SignIn(ctx context.Context, email, password string) (service.Session, error)
    Refresh(ctx context.Context, refreshRaw string) (service.Session, error)
    SignOut(ctx context.Context, accessToken string, accessExp time.Time, refreshRaw string) error
    Me(ctx context.Context, email string) (model.Member, error)
}

type StoreAPI interface {
    RegisterStore(ctx context.Context, ownerEmail string, req service.RegisterStoreRequest) (model.Store, error)
    GetStore(ctx context.Context, id uint64) (model.Store, error)
    SearchStores(ctx context.Context, q repository.StoreSearchQuery) ([]model.Store, int64, error)
    IsOwner(ctx context.Context, storeID uint64, ownerEmail string) (bool, error)
    GetTimeTable(ctx context.Context, storeID uint64, date time.Time) ([]model.TimeSlot, error)
}

type ReservationAPI interface {
    CreateReservation(ctx context.Context, memberEmail string, storeID uint64, at time.Time) (model.Reservation, error)
    HandleReservation(ctx context.Context, ownerEmail string, reservationID uint64, approved bool) (model.Reservation, error)
    UpdateReservationStatus(ctx context.Context, req service.UpdateStatusRequest) (model.Reservation, error)
    CancelReservation(ctx context.Context, memberEmail string, reservationID uint64) (model.Reservation, error)
    CheckIn(ctx context.Context, reservationID uint64, verificationCode string) (model.Reservation, error)
    MarkNoShow(ctx context.Context, ownerEmail string, reservationID uint64) (model.Reservation, error)
    GetReservations(ctx context.Context, c repository.ReservationCriteria, page repository.Page) ([]model.ReservationSummary, int64, error)
    GetMemberReservation(ctx context.Context, memberEmail string, reservationID uint64) (model.Reservation, error)
}

type ReviewAPI interface {
    CreateReview(ctx context.Context, memberEmail string, req service.CreateReviewRequest) (model.Review, error)
    UpdateReview(ctx context.Context, memberEmail string, reviewID uint64, rating int, content string) (model.Review, error)
    DeleteReview(ctx context.Context, memberEmail string, reviewID uint64) error
    GetStoreReviews(ctx context.Context, storeID uint64, page repository.Page) ([]model.Review, int64, error)
}

// writeError renders err as {"error", "code"} with the status of its kind.
// Internal errors never expose their cause.
func writeError(c echo.Context, err error) error {
    e := apperr.From(err)
    status := apperr.HTTPStatus(e.Kind)
    if status >= http.StatusInternalServerError {
        logger.FromEcho(c).Error("request failed", zap.String("code", string(e.Code)), zap.Error(err))
    }
    return c.JSON(status, echo.Map{"error": e.Message, "code": e.Code})
}

func badRequest(c echo.Context, msg string) error {
    return writeError(c, apperr.Newf(apperr.CodeInvalidRequest, "%s", msg))
}

// parseID reads a positive uint64 path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    return id, err == nil && id > 0
}

// pageFrom reads page and page_size; defaults and caps come from
// repository.NewPage.
func pageFrom(c echo.Context) repository.Page {
    page, _ := strconv.Atoi(c.QueryParam("page"))
    ps, _ := strconv.Atoi(c.QueryParam("page_size"))
    return repository.NewPage(page, ps)
}

func pageResponse(data any, total int64, p repository.Page) echo.Map {
    return echo.Map{
        "data":      data,
        "total":     total,
        "page":      p.Page,
        "page_size": p.PageSize,
    }
}
