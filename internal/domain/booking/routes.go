package booking

import (
	"github.com/gin-gonic/gin"

	"deptrooms/internal/middleware"
)

// RegisterRoutes mounts the booking endpoints on the authenticated /rooms group.
func (h *Handler) RegisterRoutes(rooms *gin.RouterGroup) {
	rooms.POST("/book", h.Book)

	bookings := rooms.Group("/bookings")
	{
		bookings.GET("/", h.List)
		bookings.GET("/:id", h.Get)
		bookings.PUT("/:id/cancel", h.Cancel)
		bookings.PUT("/:id/approve", middleware.AdminOnly(), h.Approve)
	}
}
