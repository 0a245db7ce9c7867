package handler

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/mock"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/store-reservation/internal/apperr"
    "github.com/iliyamo/store-reservation/internal/middleware"
    "github.com/iliyamo/store-reservation/internal/model"
    "github.com/iliyamo/store-reservation/internal/repository"
    "github.com/iliyamo/store-reservation/internal/service"
)

type mockReservations struct{ mock.Mock }

func (m *mockReservations) CreateReservation(ctx context.Context, email string, storeID uint64, at time.Time) (model.Reservation, error) {
    args := m.Called(ctx, email, storeID, at)
    return args.Get(0).(model.Reservation), args.Error(1)
}
func (m *mockReservations) HandleReservation(ctx context.Context, owner string, id uint64, approved bool) (model.Reservation, error) {
    args := m.Called(ctx, owner, id, approved)
    return args.Get(0).(model.Reservation), args.Error(1)
}
func (m *mockReservations) UpdateReservationStatus(ctx context.Context, req service.UpdateStatusRequest) (model.Reservation, error) {
    args := m.Called(ctx, req)
    return args.Get(0).(model.Reservation), args.Error(1)
}
func (m *mockReservations) CancelReservation(ctx context.Context, email string, id uint64) (model.Reservation, error) {
    args := m.Called(ctx, email, id)
    return args.Get(0).(model.Reservation), args.Error(1)
}
func (m *mockReservations) CheckIn(ctx context.Context, id uint64, code string) (model.Reservation, error) {
    args := m.Called(ctx, id, code)
    return args.Get(0).(model.Reservation), args.Error(1)
}
func (m *mockReservations) MarkNoShow(ctx context.Context, owner string, id uint64) (model.Reservation, error) {
    args := m.Called(ctx, owner, id)
    return args.Get(0).(model.Reservation), args.Error(1)
}
func (m *mockReservations) GetReservations(ctx context.Context, c repository.ReservationCriteria, p repository.Page) ([]model.ReservationSummary, int64, error) {
    args := m.Called(ctx, c, p)
    return args.Get(0).([]model.ReservationSummary), args.Get(1).(int64), args.Error(2)
}
func (m *mockReservations) GetMemberReservation(ctx context.Context, email string, id uint64) (model.Reservation, error) {
    args := m.Called(ctx, email, id)
    return args.Get(0).(model.Reservation), args.Error(1)
}

type mockStores struct{ mock.Mock }

func (m *mockStores) RegisterStore(ctx context.Context, owner string, req service.RegisterStoreRequest) (model.Store, error) {
    args := m.Called(ctx, owner, req)
    return args.Get(0).(model.Store), args.Error(1)
}
func (m *mockStores) GetStore(ctx context.Context, id uint64) (model.Store, error) {
    args := m.Called(ctx, id)
    return args.Get(0).(model.Store), args.Error(1)
}
func (m *mockStores) SearchStores(ctx context.Context, q repository.StoreSearchQuery) ([]model.Store, int64, error) {
    args := m.Called(ctx, q)
    return args.Get(0).([]model.Store), args.Get(1).(int64), args.Error(2)
}
func (m *mockStores) IsOwner(ctx context.Context, storeID uint64, owner string) (bool, error) {
    args := m.Called(ctx, storeID, owner)
    return args.Bool(0), args.Error(1)
}
func (m *mockStores) GetTimeTable(ctx context.Context, storeID uint64, date time.Time) ([]model.TimeSlot, error) {
    args := m.Called(ctx, storeID, date)
    return args.Get(0).([]model.TimeSlot), args.Error(1)
}

type mockMembers struct{ mock.Mock }

func (m *mockMembers) SignUp(ctx context.Context, req service.SignUpRequest) (model.Member, error) {
    args := m.Called(ctx, req)
    return args.Get(0).(model.Member), args.Error(1)
}
func (m *mockMembers) SignIn(ctx context.Context, email, password string) (service.Session, error) {
    args := m.Called(ctx, email, password)
    return args.Get(0).(service.Session), args.Error(1)
}
func (m *mockMembers) Refresh(ctx context.Context, raw string) (service.Session, error) {
    args := m.Called(ctx, raw)
    return args.Get(0).(service.Session), args.Error(1)
}
func (m *mockMembers) SignOut(ctx context.Context, tok string, exp time.Time, raw string) error {
    return m.Called(ctx, tok, exp, raw).Error(0)
}
func (m *mockMembers) Me(ctx context.Context, email string) (model.Member, error) {
    args := m.Called(ctx, email)
    return args.Get(0).(model.Member), args.Error(1)
}

// newCtx builds an echo context as JWTAuth would leave it.
func newCtx(method, target, body, email, role string) (echo.Context, *httptest.ResponseRecorder) {
    e := echo.New()
    req := httptest.NewRequest(method, target, strings.NewReader(body))
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    if email != "" {
        c.Set(middleware.KeyEmail, email)
        c.Set(middleware.KeyRole, role)
    }
    return c, rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
    t.Helper()
    var out map[string]any
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
    return out
}

func TestWriteError_StatusMapping(t *testing.T) {
    tests := []struct {
        err    error
        status int
    }{
        {apperr.New(apperr.CodeReservationNotFound), http.StatusNotFound},
        {apperr.New(apperr.CodeInvalidStoreOwner), http.StatusForbidden},
        {apperr.New(apperr.CodeStoreFullyBooked), http.StatusBadRequest},
        {apperr.New(apperr.CodeInvalidCredentials), http.StatusUnauthorized},
        {assert.AnError, http.StatusInternalServerError},
    }
    for _, tt := range tests {
        c, rec := newCtx(http.MethodGet, "/", "", "", "")
        require.NoError(t, writeError(c, tt.err))
        assert.Equal(t, tt.status, rec.Code)
        body := decode(t, rec)
        assert.Equal(t, string(apperr.CodeOf(tt.err)), body["code"])
    }

    c, rec := newCtx(http.MethodGet, "/", "", "", "")
    require.NoError(t, writeError(c, assert.AnError))
    assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}

func TestReservationHandler_Create(t *testing.T) {
    rs, ss := &mockReservations{}, &mockStores{}
    h := NewReservationHandler(rs, ss)
    when := time.Date(2026, 3, 4, 14, 0, 0, 0, time.UTC)
    rs.On("CreateReservation", mock.Anything, "m@example.com", uint64(3), when).
        Return(model.Reservation{ID: 9, StoreID: 3, Status: model.StatusPending, ReservationTime: when, VerificationCode: "042042"}, nil)

    c, rec := newCtx(http.MethodPost, "/v1/reservations",
        `{"store_id":3,"reservation_time":"2026-03-04T14:00:00Z"}`, "m@example.com", "USER")
    require.NoError(t, h.Create(c))

    assert.Equal(t, http.StatusCreated, rec.Code)
    body := decode(t, rec)
    assert.Equal(t, "042042", body["verification_code"])
    assert.Equal(t, "PENDING", body["item"].(map[string]any)["status"])
    rs.AssertExpectations(t)
}

func TestReservationHandler_CreateRejected(t *testing.T) {
    rs := &mockReservations{}
    h := NewReservationHandler(rs, &mockStores{})
    rs.On("CreateReservation", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
        Return(model.Reservation{}, apperr.New(apperr.CodeReservationTooClose))

    c, rec := newCtx(http.MethodPost, "/v1/reservations",
        `{"store_id":3,"reservation_time":"2026-03-02T09:10:00Z"}`, "m@example.com", "USER")
    require.NoError(t, h.Create(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Equal(t, "RESERVATION_TOO_CLOSE", decode(t, rec)["code"])
}

func TestReservationHandler_ListForPartnerRequiresOwnership(t *testing.T) {
    rs, ss := &mockReservations{}, &mockStores{}
    h := NewReservationHandler(rs, ss)
    ss.On("IsOwner", mock.Anything, uint64(4), "owner@example.com").Return(false, nil)

    c, rec := newCtx(http.MethodGet, "/v1/reservations?store_id=4", "", "owner@example.com", "PARTNER")
    require.NoError(t, h.List(c))
    assert.Equal(t, http.StatusForbidden, rec.Code)
    rs.AssertNotCalled(t, "GetReservations", mock.Anything, mock.Anything, mock.Anything)
}

func TestReservationHandler_ListForUserIsScopedToSelf(t *testing.T) {
    rs := &mockReservations{}
    h := NewReservationHandler(rs, &mockStores{})
    rs.On("GetReservations", mock.Anything, mock.MatchedBy(func(c repository.ReservationCriteria) bool {
        return c.MemberEmail == "m@example.com" && c.Status == model.StatusApproved
    }), repository.NewPage(2, 10)).Return([]model.ReservationSummary{{
        Reservation: model.Reservation{ID: 1, Status: model.StatusApproved}, StoreName: "Cafe",
    }}, int64(11), nil)

    c, rec := newCtx(http.MethodGet, "/v1/reservations?status=approved&page=2&page_size=10&member_email=other@example.com",
        "", "m@example.com", "USER")
    require.NoError(t, h.List(c))
    assert.Equal(t, http.StatusOK, rec.Code)
    body := decode(t, rec)
    assert.EqualValues(t, 11, body["total"])
    rs.AssertExpectations(t)
}

func TestReservationHandler_CheckIn(t *testing.T) {
    rs := &mockReservations{}
    h := NewReservationHandler(rs, &mockStores{})
    rs.On("CheckIn", mock.Anything, uint64(5), "000111").
        Return(model.Reservation{}, apperr.New(apperr.CodeInvalidVerificationCode))

    c, rec := newCtx(http.MethodPost, "/v1/reservations/5/check-in", `{"verification_code":" 000111 "}`, "", "")
    c.SetParamNames("id")
    c.SetParamValues("5")
    require.NoError(t, h.CheckIn(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Equal(t, "INVALID_VERIFICATION_CODE", decode(t, rec)["code"])
}

func TestReservationHandler_UpdateStatusPassesActor(t *testing.T) {
    rs := &mockReservations{}
    h := NewReservationHandler(rs, &mockStores{})
    rs.On("UpdateReservationStatus", mock.Anything, service.UpdateStatusRequest{
        ReservationID: 8, Status: model.StatusCompleted, ActorEmail: "owner@example.com",
    }).Return(model.Reservation{ID: 8, Status: model.StatusCompleted}, nil)

    c, rec := newCtx(http.MethodPatch, "/v1/reservations/8/status", `{"status":"completed"}`, "owner@example.com", "PARTNER")
    c.SetParamNames("id")
    c.SetParamValues("8")
    require.NoError(t, h.UpdateStatus(c))
    assert.Equal(t, http.StatusOK, rec.Code)
    rs.AssertExpectations(t)
}

func TestReservationHandler_UpdateStatusUnknownStatus(t *testing.T) {
    h := NewReservationHandler(&mockReservations{}, &mockStores{})
    c, rec := newCtx(http.MethodPatch, "/v1/reservations/8/status", `{"status":"LOST"}`, "owner@example.com", "PARTNER")
    c.SetParamNames("id")
    c.SetParamValues("8")
    require.NoError(t, h.UpdateStatus(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReservationHandler_QR(t *testing.T) {
    rs := &mockReservations{}
    h := NewReservationHandler(rs, &mockStores{})
    rs.On("GetMemberReservation", mock.Anything, "m@example.com", uint64(2)).
        Return(model.Reservation{ID: 2, VerificationCode: "123456"}, nil)

    c, rec := newCtx(http.MethodGet, "/v1/reservations/2/qr", "", "m@example.com", "USER")
    c.SetParamNames("id")
    c.SetParamValues("2")
    require.NoError(t, h.QR(c))
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
    assert.Equal(t, []byte("\x89PNG"), rec.Body.Bytes()[:4])
}

func TestKioskPayload(t *testing.T) {
    assert.Equal(t, `{"reservation_id":2,"verification_code":"012345"}`,
        kioskPayload(model.Reservation{ID: 2, VerificationCode: "012345"}))
}

func TestStoreHandler_SearchRejectsUnknownSort(t *testing.T) {
    h := NewStoreHandler(&mockStores{}, &mockReviews{})
    c, rec := newCtx(http.MethodGet, "/v1/stores?sort=PRICE", "", "", "")
    require.NoError(t, h.SearchStores(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStoreHandler_SearchByDistance(t *testing.T) {
    ss := &mockStores{}
    h := NewStoreHandler(ss, &mockReviews{})
    ss.On("SearchStores", mock.Anything, mock.MatchedBy(func(q repository.StoreSearchQuery) bool {
        return q.Sort == repository.SortByDistance && q.Latitude != nil && *q.Latitude == 37.5 && q.Desc
    })).Return([]model.Store{{ID: 1, Name: "A"}}, int64(1), nil)

    c, rec := newCtx(http.MethodGet, "/v1/stores?sort=distance&direction=desc&lat=37.5&lng=127", "", "", "")
    require.NoError(t, h.SearchStores(c))
    assert.Equal(t, http.StatusOK, rec.Code)
    ss.AssertExpectations(t)
}

func TestStoreHandler_TimeTable(t *testing.T) {
    ss := &mockStores{}
    h := NewStoreHandler(ss, &mockReviews{})
    day := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
    ss.On("GetTimeTable", mock.Anything, uint64(1), day).
        Return([]model.TimeSlot{{Start: day.Add(10 * time.Hour), AvailableSeats: 5, Available: true}}, nil)

    c, rec := newCtx(http.MethodGet, "/v1/stores/1/timetable?date=2026-03-04", "", "", "")
    c.SetParamNames("id")
    c.SetParamValues("1")
    require.NoError(t, h.TimeTable(c))
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"available_seats":5`)

    c, rec = newCtx(http.MethodGet, "/v1/stores/1/timetable?date=04-03-2026", "", "", "")
    c.SetParamNames("id")
    c.SetParamValues("1")
    require.NoError(t, h.TimeTable(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandler_SignOut(t *testing.T) {
    ms := &mockMembers{}
    h := NewAuthHandler(ms)
    exp := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
    ms.On("SignOut", mock.Anything, "jwt-token", exp, "refresh-raw").Return(nil)

    c, rec := newCtx(http.MethodPost, "/v1/auth/sign-out", `{"refresh_token":"refresh-raw"}`, "m@example.com", "USER")
    c.Set(middleware.KeyToken, "jwt-token")
    c.Set(middleware.KeyTokenExp, exp)
    require.NoError(t, h.SignOut(c))
    assert.Equal(t, http.StatusNoContent, rec.Code)
    ms.AssertExpectations(t)
}

func TestAuthHandler_SignInInvalidCredentials(t *testing.T) {
    ms := &mockMembers{}
    h := NewAuthHandler(ms)
    ms.On("SignIn", mock.Anything, "m@example.com", "wrong-pass").
        Return(service.Session{}, apperr.New(apperr.CodeInvalidCredentials))

    c, rec := newCtx(http.MethodPost, "/v1/auth/sign-in", `{"email":"m@example.com","password":"wrong-pass"}`, "", "")
    require.NoError(t, h.SignIn(c))
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type mockReviews struct{ mock.Mock }

func (m *mockReviews) CreateReview(ctx context.Context, email string, req service.CreateReviewRequest) (model.Review, error) {
    args := m.Called(ctx, email, req)
    return args.Get(0).(model.Review), args.Error(1)
}
func (m *mockReviews) UpdateReview(ctx context.Context, email string, id uint64, rating int, content string) (model.Review, error) {
    args := m.Called(ctx, email, id, rating, content)
    return args.Get(0).(model.Review), args.Error(1)
}
func (m *mockReviews) DeleteReview(ctx context.Context, email string, id uint64) error {
    return m.Called(ctx, email, id).Error(0)
}
func (m *mockReviews) GetStoreReviews(ctx context.Context, storeID uint64, p repository.Page) ([]model.Review, int64, error) {
    args := m.Called(ctx, storeID, p)
    return args.Get(0).([]model.Review), args.Get(1).(int64), args.Error(2)
}

func TestReviewHandler_DeleteByOtherMember(t *testing.T) {
    rv := &mockReviews{}
    h := NewReviewHandler(rv)
    rv.On("DeleteReview", mock.Anything, "x@example.com", uint64(4)).Return(apperr.New(apperr.CodeNotReviewAuthor))

    c, rec := newCtx(http.MethodDelete, "/v1/reviews/4", "", "x@example.com", "USER")
    c.SetParamNames("id")
    c.SetParamValues("4")
    require.NoError(t, h.Delete(c))
    assert.Equal(t, http.StatusForbidden, rec.Code)
    assert.Equal(t, "NOT_REVIEW_AUTHOR", decode(t, rec)["code"])
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
    for _, tc := range []struct {
        db   Pinger
        want int
    }{
        {nil, http.StatusOK},
        {pinger{}, http.StatusOK},
        {pinger{err: context.DeadlineExceeded}, http.StatusServiceUnavailable},
    } {
        e := echo.New()
        rec := httptest.NewRecorder()
        c := e.NewContext(httptest.NewRequest(http.MethodGet, "/healthz", nil), rec)
        require.NoError(t, Health(tc.db)(c))
        assert.Equal(t, tc.want, rec.Code)
    }
}
