package room

import (
	"github.com/gin-gonic/gin"

	"deptrooms/internal/domain"
	"deptrooms/internal/middleware"
)

// RegisterRoutes mounts room CRUD, schedules and search on the authenticated
// /rooms group.
func (h *Handler) RegisterRoutes(rooms *gin.RouterGroup) {
	manage := middleware.Require(domain.CanManageRooms)

	rooms.GET("/", h.List)
	rooms.POST("/", manage, h.Create)
	rooms.POST("/search/available", h.SearchAvailable)

	rooms.GET("/:id", h.Get)
	rooms.PUT("/:id", manage, h.Update)
	rooms.DELETE("/:id", manage, h.Delete)
	rooms.GET("/:id/schedule", h.WeeklySchedule)
	rooms.GET("/:id/schedule/:day_offset", h.DaySchedule)
}
