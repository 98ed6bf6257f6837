package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deptrooms/internal/config"
	"deptrooms/internal/domain"
	"deptrooms/internal/pkg/clock"
	"deptrooms/internal/testutil"
)

type testResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *errorDetail    `json:"error,omitempty"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type suite struct {
	app    *App
	router *gin.Engine
	clock  *clock.Manual
}

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:              "test",
		JWTSecret:           "test_secret_key_32_characters_min",
		JWTTTL:              time.Hour,
		SlotMinutes:         30,
		WindowDays:          7,
		Timezone:            "UTC",
		Location:            time.UTC,
		RequestTimeout:      5 * time.Second,
		MaintenanceInterval: time.Hour,
		CleanupGrace:        time.Hour,
		RateLimitRPS:        1000,
		RateLimitBurst:      1000,
	}
}

func setupSuite(t *testing.T) *suite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clk := clock.NewManual(time.Date(2026, 10, 16, 7, 0, 0, 0, time.UTC))
	a, err := New(testConfig(), testutil.NewTestDB(t), Options{Clock: clk})
	require.NoError(t, err)
	return &suite{app: a, router: a.Router(), clock: clk}
}

func (s *suite) token(t *testing.T, userID int64, role domain.Role) string {
	t.Helper()
	tok, err := s.app.JWT.GenerateToken(userID, role)
	require.NoError(t, err)
	return tok
}

func (s *suite) do(t *testing.T, method, path string, body any, token string) (*httptest.ResponseRecorder, testResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp testResponse
	if bytes.HasPrefix(w.Body.Bytes(), []byte("{")) {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

func availableIDs(t *testing.T, raw json.RawMessage) []int64 {
	t.Helper()
	var data struct {
		AvailableRooms []domain.Room `json:"available_rooms"`
	}
	require.NoError(t, json.Unmarshal(raw, &data))
	ids := make([]int64, 0, len(data.AvailableRooms))
	for _, r := range data.AvailableRooms {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestFlow_RoomSearchBookCancel(t *testing.T) {
	s := setupSuite(t)
	staff := s.token(t, 20, domain.RoleStaff)
	student := s.token(t, 10, domain.RoleStudent)

	var roomID int64
	t.Run("staff creates a room", func(t *testing.T) {
		w, resp := s.do(t, http.MethodPost, "/api/v1/rooms/", map[string]any{
			"room_number": "A-101",
			"purpose":     "lecture",
			"capacity":    40,
			"start_time":  "08:00",
			"end_time":    "18:00",
		}, staff)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var r domain.Room
		require.NoError(t, json.Unmarshal(resp.Data, &r))
		roomID = r.ID
		assert.Equal(t, domain.RoomAvailable, r.Status)
	})

	search := map[string]any{
		"booking_date": "2026-10-17",
		"start_time":   "10:00",
		"end_time":     "11:00",
	}

	t.Run("room is available before booking", func(t *testing.T) {
		w, resp := s.do(t, http.MethodPost, "/api/v1/rooms/search/available", search, student)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Contains(t, availableIDs(t, resp.Data), roomID)
	})

	var bookingID int64
	t.Run("student books", func(t *testing.T) {
		w, resp := s.do(t, http.MethodPost, "/api/v1/rooms/book", map[string]any{
			"room_id":      roomID,
			"booking_date": "2026-10-17",
			"start_time":   "10:00",
			"end_time":     "11:00",
			"purpose":      "study group",
		}, student)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var b domain.Booking
		require.NoError(t, json.Unmarshal(resp.Data, &b))
		bookingID = b.ID
		assert.Equal(t, domain.BookingScheduled, b.Status)
		assert.Equal(t, 2, b.DurationSlots)
	})

	t.Run("overlapping booking conflicts", func(t *testing.T) {
		w, resp := s.do(t, http.MethodPost, "/api/v1/rooms/book", map[string]any{
			"room_id":      roomID,
			"booking_date": "2026-10-17",
			"start_time":   "10:30",
			"end_time":     "11:30",
			"purpose":      "another group",
		}, s.token(t, 11, domain.RoleFaculty))
		assert.Equal(t, http.StatusConflict, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "SLOT_CONFLICT", resp.Error.Code)
	})

	t.Run("room drops out of search", func(t *testing.T) {
		w, resp := s.do(t, http.MethodPost, "/api/v1/rooms/search/available", search, student)
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, availableIDs(t, resp.Data), roomID)
	})

	t.Run("owner cancels and the room returns", func(t *testing.T) {
		w, _ := s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/rooms/bookings/%d/cancel", bookingID), nil, student)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w, resp := s.do(t, http.MethodPost, "/api/v1/rooms/search/available", search, student)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, availableIDs(t, resp.Data), roomID)
	})
}

func TestFlow_AccessControl(t *testing.T) {
	s := setupSuite(t)
	student := s.token(t, 10, domain.RoleStudent)

	w, resp := s.do(t, http.MethodGet, "/api/v1/rooms/", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotNil(t, resp.Error)

	w, _ = s.do(t, http.MethodGet, "/api/v1/rooms/", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, resp = s.do(t, http.MethodPost, "/api/v1/rooms/", map[string]any{
		"room_number": "X-1", "purpose": "lab", "capacity": 4, "start_time": "09:00", "end_time": "12:00",
	}, student)
	assert.Equal(t, http.StatusForbidden, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "FORBIDDEN", resp.Error.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/rooms/admin/system-status", nil, s.token(t, 20, domain.RoleStaff))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestFlow_MaintenanceAndStatus(t *testing.T) {
	s := setupSuite(t)
	staff := s.token(t, 20, domain.RoleStaff)
	admin := s.token(t, 1, domain.RoleAdmin)

	w, _ := s.do(t, http.MethodPost, "/api/v1/rooms/", map[string]any{
		"room_number": "B-202", "purpose": "seminar", "capacity": 12, "start_time": "09:00", "end_time": "12:00",
	}, staff)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	s.clock.Advance(24 * time.Hour)

	w, resp := s.do(t, http.MethodPost, "/api/v1/rooms/admin/roll-daily-slots", nil, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var roll struct {
		DeletedSlots   int64 `json:"deleted_slots"`
		NewSlots       int   `json:"new_slots"`
		RoomsProcessed int   `json:"rooms_processed"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &roll))
	assert.Equal(t, 1, roll.RoomsProcessed)
	assert.Equal(t, int64(6), roll.DeletedSlots)
	assert.Equal(t, 6, roll.NewSlots)

	w, resp = s.do(t, http.MethodGet, "/api/v1/rooms/admin/system-status", nil, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var status struct {
		Today            string `json:"today"`
		TotalRooms       int64  `json:"total_rooms"`
		RoomsNeedingRoll int64  `json:"rooms_needing_roll"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &status))
	assert.Equal(t, "2026-10-17", status.Today)
	assert.Equal(t, int64(1), status.TotalRooms)
	assert.Zero(t, status.RoomsNeedingRoll)

	w, resp = s.do(t, http.MethodGet, "/api/v1/rooms/admin/validate-slots", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	var v struct {
		Valid bool `json:"valid"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &v))
	assert.True(t, v.Valid)
}

func TestHealthAndMetrics(t *testing.T) {
	s := setupSuite(t)

	w, _ := s.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w, _ = s.do(t, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}
