package live

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"deptrooms/internal/middleware"
	"deptrooms/internal/pkg/jwt"
	"deptrooms/internal/pkg/response"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Handler struct {
	hub *Hub
}

func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// Schedule upgrades an authenticated request to the schedule feed.
func (h *Handler) Schedule(c *gin.Context) {
	sess, ok := middleware.SessionFrom(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WARN] websocket upgrade failed user_id=%d error=%v", sess.UserID, err)
		return
	}
	h.hub.ServeWS(conn, sess.UserID)
}

// RegisterRoutes mounts GET /ws/schedule. Browsers cannot set headers on a
// websocket handshake, so the token travels in the query string.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, jwtSvc *jwt.Service) {
	r.GET("/ws/schedule", middleware.QueryTokenAuth(jwtSvc), h.Schedule)
}
