package maintenance

import (
	"github.com/gin-gonic/gin"

	"deptrooms/internal/domain"
	"deptrooms/internal/middleware"
)

// RegisterRoutes mounts the admin jobs under /rooms/admin.
func (h *Handler) RegisterRoutes(rooms *gin.RouterGroup) {
	admin := rooms.Group("/admin", middleware.Require(domain.CanRunMaintenance))
	{
		admin.POST("/roll-daily-slots", h.RollDailySlots)
		admin.POST("/roll-forward/:id", h.RollRoomForward)
		admin.POST("/initialize-all-slots", h.InitializeAllSlots)
		admin.POST("/cleanup-expired-bookings", h.CleanupExpiredBookings)
		admin.GET("/slot-statistics", h.SlotStatistics)
		admin.GET("/validate-slots", h.ValidateSlots)
		admin.GET("/system-status", h.SystemStatus)
	}
}
