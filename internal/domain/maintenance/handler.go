package maintenance

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"deptrooms/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RollDailySlots(c *gin.Context) {
	res, err := h.service.RollDaily(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"message":         fmt.Sprintf("Rolled %d of %d rooms", res.RoomsRolled, res.RoomsProcessed),
		"deleted_slots":   res.DeletedSlots,
		"new_slots":       res.NewSlots,
		"rooms_processed": res.RoomsProcessed,
	})
}

func (h *Handler) RollRoomForward(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid room id")
		return
	}

	out, err := h.service.RollRoom(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"message":            fmt.Sprintf("Rolled room %d forward by one day", id),
		"window_start":       out.WindowStart,
		"deleted_slots":      out.DeletedSlots,
		"new_slots":          out.NewSlots,
		"completed_bookings": out.CompletedBookings,
	})
}

func (h *Handler) InitializeAllSlots(c *gin.Context) {
	n, err := h.service.InitializeAll(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"message":         fmt.Sprintf("Initialized slots for %d rooms", n),
		"rooms_processed": n,
	})
}

func (h *Handler) CleanupExpiredBookings(c *gin.Context) {
	res, err := h.service.Cleanup(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"message":          fmt.Sprintf("Cleaned up %d expired bookings", res.CleanedBookings),
		"cleaned_bookings": res.CleanedBookings,
		"orphaned_slots":   res.OrphanedSlots,
	})
}

func (h *Handler) SlotStatistics(c *gin.Context) {
	st, err := h.service.SlotStatistics(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, st)
}

func (h *Handler) ValidateSlots(c *gin.Context) {
	v, err := h.service.ValidateSlots(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, v)
}

func (h *Handler) SystemStatus(c *gin.Context) {
	st, err := h.service.SystemStatus(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, st)
}
