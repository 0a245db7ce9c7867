package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/store-reservation/internal/middleware"
    "github.com/iliyamo/store-reservation/internal/model"
    "github.com/iliyamo/store-reservation/internal/service"
)

// ReviewHandler serves review writes by USER members.
type ReviewHandler struct {
    Reviews ReviewAPI
}

func NewReviewHandler(r ReviewAPI) *ReviewHandler {
    if r == nil {
        panic("nil ReviewAPI passed to NewReviewHandler")
    }
    return &ReviewHandler{Reviews: r}
}

type reviewResp struct {
    ID            uint64    `json:"id"`
    ReservationID uint64    `json:"reservation_id"`
    StoreID       uint64    `json:"store_id"`
    Rating        int       `json:"rating"`
    Content       string    `json:"content"`
    CreatedAt     time.Time `json:"created_at"`
    UpdatedAt     time.Time `json:"updated_at"`
}

func toReviewResp(rv model.Review) reviewResp {
    return reviewResp{
        ID: rv.ID, ReservationID: rv.ReservationID, StoreID: rv.StoreID,
        Rating: rv.Rating, Content: rv.Content, CreatedAt: rv.CreatedAt, UpdatedAt: rv.UpdatedAt,
    }
}

type createReviewReq struct {
    ReservationID uint64 `json:"reservation_id"`
    Rating        int    `json:"rating"`
    Content       string `json:"content"`
}

type updateReviewReq struct {
    Rating  int    `json:"rating"`
    Content string `json:"content"`
}

// Create: POST /v1/reviews.
func (h *ReviewHandler) Create(c echo.Context) error {
    var req createReviewReq
    if err := c.Bind(&req); err != nil || req.ReservationID == 0 {
        return badRequest(c, "reservation_id required")
    }
    rv, err := h.Reviews.CreateReview(c.Request().Context(), middleware.Email(c), service.CreateReviewRequest{
        ReservationID: req.ReservationID, Rating: req.Rating, Content: req.Content,
    })
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"item": toReviewResp(rv)})
}

// Update: PUT /v1/reviews/:id (author only).
func (h *ReviewHandler) Update(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid review id")
    }
    var req updateReviewReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    rv, err := h.Reviews.UpdateReview(c.Request().Context(), middleware.Email(c), id, req.Rating, req.Content)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"item": toReviewResp(rv)})
}

// Delete: DELETE /v1/reviews/:id (author only).
func (h *ReviewHandler) Delete(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid review id")
    }
    if err := h.Reviews.DeleteReview(c.Request().Context(), middleware.Email(c), id); err != nil {
        return writeError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}
