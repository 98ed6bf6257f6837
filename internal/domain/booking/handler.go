package booking

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"deptrooms/internal/domain"
	"deptrooms/internal/middleware"
	"deptrooms/internal/pkg/response"
	"deptrooms/internal/pkg/validator"
)

type Handler struct {
	manager *Manager
}

func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

func (h *Handler) Book(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, validator.FromBindError(err))
		return
	}

	b, err := h.manager.Create(c.Request.Context(), sess, req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, b)
}

func (h *Handler) List(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Fail(c, validator.FromBindError(err))
		return
	}

	res, err := h.manager.List(c.Request.Context(), sess, ListFilter{
		Skip:        q.Skip,
		Limit:       q.Limit,
		RoomID:      q.RoomID,
		UserID:      q.UserID,
		Status:      domain.BookingStatus(q.Status),
		BookingDate: q.BookingDate,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) Get(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	id, ok := bookingID(c)
	if !ok {
		return
	}

	b, err := h.manager.Get(c.Request.Context(), sess, id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

func (h *Handler) Cancel(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	id, ok := bookingID(c)
	if !ok {
		return
	}

	b, err := h.manager.Cancel(c.Request.Context(), sess, id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"message": "Booking cancelled",
		"booking": b,
	})
}

func (h *Handler) Approve(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	id, ok := bookingID(c)
	if !ok {
		return
	}

	b, err := h.manager.Approve(c.Request.Context(), sess, id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

func session(c *gin.Context) (domain.Session, bool) {
	sess, ok := middleware.SessionFrom(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return domain.Session{}, false
	}
	return sess, true
}

func bookingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid booking ID")
		return 0, false
	}
	return id, true
}
