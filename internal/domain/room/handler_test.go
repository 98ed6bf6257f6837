package room

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deptrooms/internal/domain"
	"deptrooms/internal/domain/availability"
	"deptrooms/internal/middleware"
)

func newRouter(t *testing.T, role domain.Role) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, svc, slots := setup(t)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		middleware.SetSession(c, domain.Session{UserID: 7, Role: role})
		c.Next()
	})
	NewHandler(svc, slots, availability.NewService(db, slots)).RegisterRoutes(r.Group("/api/v1/rooms"))
	return r
}

func call(t *testing.T, r http.Handler, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestHandler_CrudAndSchedule(t *testing.T) {
	r := newRouter(t, domain.RoleStaff)

	status, body := call(t, r, http.MethodPost, "/api/v1/rooms/", map[string]any{
		"room_number": "A-101", "purpose": "lecture", "capacity": 40, "start_time": "08:00", "end_time": "10:00",
	})
	require.Equal(t, http.StatusCreated, status, body)
	created := body["data"].(map[string]any)
	assert.Equal(t, "A-101", created["room_number"])

	status, body = call(t, r, http.MethodGet, "/api/v1/rooms/1?include_schedule=true", nil)
	require.Equal(t, http.StatusOK, status)
	schedule := body["data"].(map[string]any)["schedule"].(map[string]any)
	assert.Equal(t, "2026-10-16", schedule["window_start"])

	status, body = call(t, r, http.MethodGet, "/api/v1/rooms/1/schedule/0", nil)
	require.Equal(t, http.StatusOK, status)
	day := body["data"].(map[string]any)
	assert.Equal(t, float64(4), day["available_slots"])

	status, body = call(t, r, http.MethodGet, "/api/v1/rooms/1/schedule/7", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))

	status, body = call(t, r, http.MethodGet, "/api/v1/rooms/1/schedule/x", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(body))

	status, _ = call(t, r, http.MethodGet, "/api/v1/rooms/1/schedule", nil)
	assert.Equal(t, http.StatusOK, status)

	status, body = call(t, r, http.MethodPut, "/api/v1/rooms/1", map[string]any{"status": "maintenance"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "maintenance", body["data"].(map[string]any)["status"])

	status, body = call(t, r, http.MethodGet, "/api/v1/rooms/?status=maintenance", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["data"].(map[string]any)["total"])

	status, body = call(t, r, http.MethodDelete, "/api/v1/rooms/1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Room deleted", body["data"].(map[string]any)["message"])

	status, body = call(t, r, http.MethodGet, "/api/v1/rooms/1", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}

func TestHandler_StudentsCannotManageRooms(t *testing.T) {
	r := newRouter(t, domain.RoleStudent)

	status, body := call(t, r, http.MethodPost, "/api/v1/rooms/", map[string]any{
		"room_number": "A-101", "purpose": "lecture", "capacity": 40, "start_time": "08:00", "end_time": "10:00",
	})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	status, _ = call(t, r, http.MethodDelete, "/api/v1/rooms/1", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = call(t, r, http.MethodGet, "/api/v1/rooms/", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["data"].(map[string]any)["total"])
}

func TestHandler_SearchAvailable(t *testing.T) {
	r := newRouter(t, domain.RoleAdmin)

	for _, n := range []string{"A-101", "A-102"} {
		status, body := call(t, r, http.MethodPost, "/api/v1/rooms/", map[string]any{
			"room_number": n, "purpose": "lecture", "capacity": 40, "start_time": "08:00", "end_time": "18:00",
		})
		require.Equal(t, http.StatusCreated, status, body)
	}

	status, body := call(t, r, http.MethodPost, "/api/v1/rooms/search/available", map[string]any{
		"booking_date": "2026-10-17", "start_time": "09:00", "end_time": "11:00", "capacity": 30,
	})
	require.Equal(t, http.StatusOK, status, body)
	rooms := body["data"].(map[string]any)["available_rooms"].([]any)
	assert.Len(t, rooms, 2)

	status, body = call(t, r, http.MethodPost, "/api/v1/rooms/search/available", map[string]any{
		"booking_date": "2026-10-17", "start_time": "09:10", "end_time": "11:00",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(body))
}
