package handler

import (
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/store-reservation/internal/middleware"
    "github.com/iliyamo/store-reservation/internal/model"
    "github.com/iliyamo/store-reservation/internal/repository"
    "github.com/iliyamo/store-reservation/internal/service"
)

// StoreHandler serves the public store directory and partner store
// registration.
type StoreHandler struct {
    Stores  StoreAPI
    Reviews ReviewAPI
}

func NewStoreHandler(s StoreAPI, r ReviewAPI) *StoreHandler {
    if s == nil || r == nil {
        panic("nil service passed to NewStoreHandler")
    }
    return &StoreHandler{Stores: s, Reviews: r}
}

// PublicStore is the store shape exposed by the API.  The owner id is not
// included.
type PublicStore struct {
    ID            uint64   `json:"id"`
    Name          string   `json:"name"`
    Location      string   `json:"location"`
    Description   string   `json:"description,omitempty"`
    Latitude      *float64 `json:"latitude,omitempty"`
    Longitude     *float64 `json:"longitude,omitempty"`
    AverageRating float64  `json:"average_rating"`
    ReviewCount   int      `json:"review_count"`
}

func toPublicStore(s model.Store) PublicStore {
    return PublicStore{
        ID: s.ID, Name: s.Name, Location: s.Location, Description: s.Description,
        Latitude: s.Latitude, Longitude: s.Longitude,
        AverageRating: s.AverageRating, ReviewCount: s.ReviewCount,
    }
}

type registerStoreReq struct {
    Name        string   `json:"name"`
    Location    string   `json:"location"`
    Description string   `json:"description"`
    Latitude    *float64 `json:"latitude"`
    Longitude   *float64 `json:"longitude"`
}

// RegisterStore: POST /v1/stores (PARTNER).
func (h *StoreHandler) RegisterStore(c echo.Context) error {
    var req registerStoreReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    st, err := h.Stores.RegisterStore(c.Request().Context(), middleware.Email(c), service.RegisterStoreRequest{
        Name: req.Name, Location: req.Location, Description: req.Description,
        Latitude: req.Latitude, Longitude: req.Longitude,
    })
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"item": toPublicStore(st)})
}

// SearchStores: GET /v1/stores?keyword=&owner=&sort=NAME|RATING|DISTANCE&direction=ASC|DESC&lat=&lng=
func (h *StoreHandler) SearchStores(c echo.Context) error {
    q := repository.StoreSearchQuery{
        Keyword:    strings.TrimSpace(c.QueryParam("keyword")),
        OwnerEmail: strings.TrimSpace(c.QueryParam("owner")),
        Sort:       strings.ToUpper(strings.TrimSpace(c.QueryParam("sort"))),
        Desc:       strings.EqualFold(c.QueryParam("direction"), "DESC"),
        Page:       pageFrom(c),
    }
    switch q.Sort {
    case "", repository.SortByName, repository.SortByRating, repository.SortByDistance:
    default:
        return badRequest(c, "sort must be NAME, RATING or DISTANCE")
    }
    var ok bool
    if q.Latitude, ok = optFloat(c.QueryParam("lat")); !ok {
        return badRequest(c, "invalid lat")
    }
    if q.Longitude, ok = optFloat(c.QueryParam("lng")); !ok {
        return badRequest(c, "invalid lng")
    }

    items, total, err := h.Stores.SearchStores(c.Request().Context(), q)
    if err != nil {
        return writeError(c, err)
    }
    out := make([]PublicStore, 0, len(items))
    for _, s := range items {
        out = append(out, toPublicStore(s))
    }
    return c.JSON(http.StatusOK, pageResponse(out, total, q.Page))
}

// GetStore: GET /v1/stores/:id.
func (h *StoreHandler) GetStore(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid store id")
    }
    st, err := h.Stores.GetStore(c.Request().Context(), id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"item": toPublicStore(st)})
}

type timeSlotResp struct {
    Start          time.Time `json:"start"`
    AvailableSeats int       `json:"available_seats"`
    Available      bool      `json:"available"`
}

// TimeTable: GET /v1/stores/:id/timetable?date=YYYY-MM-DD (default today).
func (h *StoreHandler) TimeTable(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid store id")
    }
    var date time.Time
    if raw := c.QueryParam("date"); raw != "" {
        d, err := time.Parse("2006-01-02", raw)
        if err != nil {
            return badRequest(c, "date must be YYYY-MM-DD")
        }
        date = d
    }
    slots, err := h.Stores.GetTimeTable(c.Request().Context(), id, date)
    if err != nil {
        return writeError(c, err)
    }
    out := make([]timeSlotResp, 0, len(slots))
    for _, s := range slots {
        out = append(out, timeSlotResp{Start: s.Start, AvailableSeats: s.AvailableSeats, Available: s.Available})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// StoreReviews: GET /v1/stores/:id/reviews, newest first.
func (h *StoreHandler) StoreReviews(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid store id")
    }
    p := pageFrom(c)
    items, total, err := h.Reviews.GetStoreReviews(c.Request().Context(), id, p)
    if err != nil {
        return writeError(c, err)
    }
    out := make([]reviewResp, 0, len(items))
    for _, rv := range items {
        out = append(out, toReviewResp(rv))
    }
    return c.JSON(http.StatusOK, pageResponse(out, total, p))
}

// optFloat parses an optional float query value.
func optFloat(s string) (*float64, bool) {
    if s == "" {
        return nil, true
    }
    f, err := strconv.ParseFloat(s, 64)
    if err != nil {
        return nil, false
    }
    return &f, true
}
