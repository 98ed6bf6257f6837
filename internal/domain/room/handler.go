package room

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"deptrooms/internal/domain"
	"deptrooms/internal/domain/availability"
	"deptrooms/internal/domain/slot"
	"deptrooms/internal/pkg/response"
	"deptrooms/internal/pkg/validator"
)

type Handler struct {
	service *Service
	slots   *slot.Service
	search  *availability.Service
}

func NewHandler(service *Service, slots *slot.Service, search *availability.Service) *Handler {
	return &Handler{service: service, slots: slots, search: search}
}

func (h *Handler) List(c *gin.Context) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Fail(c, validator.FromBindError(err))
		return
	}

	res, err := h.service.List(c.Request.Context(), ListFilter{
		Skip:    q.Skip,
		Limit:   q.Limit,
		Status:  domain.RoomStatus(q.Status),
		Purpose: q.Purpose,
	}, q.IncludeSchedule)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	include, _ := strconv.ParseBool(c.DefaultQuery("include_schedule", "false"))

	v, err := h.service.Get(c.Request.Context(), id, include)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, v)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, validator.FromBindError(err))
		return
	}

	r, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, r)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, validator.FromBindError(err))
		return
	}

	res, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, res.Room)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Room deleted"})
}

func (h *Handler) WeeklySchedule(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}

	ws, err := h.slots.WeeklySchedule(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, ws)
}

func (h *Handler) DaySchedule(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	offset, err := strconv.Atoi(c.Param("day_offset"))
	if err != nil {
		response.Fail(c, domain.NewValidationError("day_offset", "must be an integer"))
		return
	}

	ds, err := h.slots.DaySchedule(c.Request.Context(), id, offset)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, ds)
}

// SearchAvailable lists rooms free for the whole requested range.
func (h *Handler) SearchAvailable(c *gin.Context) {
	var req availability.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, validator.FromBindError(err))
		return
	}

	res, err := h.search.Search(c.Request.Context(), req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func roomID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid room ID")
		return 0, false
	}
	return id, true
}
