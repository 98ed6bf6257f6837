package maintenance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"deptrooms/internal/database"
	"deptrooms/internal/domain"
	"deptrooms/internal/domain/booking"
	"deptrooms/internal/domain/room"
	"deptrooms/internal/domain/slot"
	"deptrooms/internal/lock"
	"deptrooms/internal/middleware"
	"deptrooms/internal/pkg/clock"
	"deptrooms/internal/pkg/slotgrid"
	"deptrooms/internal/testutil"
)

type env struct {
	db      *gorm.DB
	clock   *clock.Manual
	slots   *slot.Service
	manager *booking.Manager
	svc     *Service
	rooms   []*domain.Room
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewTestDB(t)
	grid, err := slotgrid.New(30)
	require.NoError(t, err)
	clk := clock.NewManual(time.Date(2026, 10, 16, 7, 0, 0, 0, time.UTC))
	slots := slot.NewService(slot.NewRepository(db), clk, grid, 7)
	manager := booking.NewManager(db, booking.NewRepository(db), slots, lock.NewLocal(), nil, time.Hour)
	sx, err := database.SQLX(db)
	require.NoError(t, err)

	e := &env{
		db:      db,
		clock:   clk,
		slots:   slots,
		manager: manager,
		svc:     NewService(db, room.NewRepository(db), manager, slots, NewReports(sx)),
	}

	for _, n := range []string{"A-101", "B-202"} {
		r := &domain.Room{RoomNumber: n, Purpose: "lecture", Capacity: 30, Status: domain.RoomAvailable, StartTime: "08:00", EndTime: "18:00"}
		require.NoError(t, db.Create(r).Error)
		e.rooms = append(e.rooms, r)
	}
	_, err = slots.Initialize(context.Background(), e.rooms[0])
	require.NoError(t, err)
	return e
}

func (e *env) book(t *testing.T, date, start, end string) *domain.Booking {
	t.Helper()
	b, err := e.manager.Create(context.Background(), domain.Session{UserID: 9, Role: domain.RoleFaculty}, booking.CreateRequest{
		RoomID: e.rooms[0].ID, BookingDate: date, StartTime: start, EndTime: end, Purpose: "lecture",
	})
	require.NoError(t, err)
	return b
}

func TestRun_RollsAdvancesAndRecords(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.book(t, "2026-10-16", "09:00", "10:00")
	later := e.book(t, "2026-10-18", "09:00", "10:00")

	e.clock.Set(time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC))

	before, err := e.svc.SystemStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), before.RoomsNeedingRoll)
	assert.Equal(t, int64(1), before.RoomsWithoutSlots)
	assert.Nil(t, before.LastRun)

	rep, err := e.svc.Run(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, 2, rep.RoomsProcessed)
	require.Len(t, rep.Rolls, 2)
	assert.Equal(t, 2, rep.Rolls[0].Days)
	assert.Equal(t, int64(1), rep.Rolls[0].CompletedBookings)
	assert.True(t, rep.Rolls[1].Initialized)
	assert.Equal(t, int64(1), rep.Transitions.Started)
	assert.Empty(t, rep.Errors)

	got, err := e.manager.Get(ctx, domain.Session{UserID: 1, Role: domain.RoleAdmin}, later.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingOngoing, got.Status)

	after, err := e.svc.SystemStatus(ctx)
	require.NoError(t, err)
	assert.Zero(t, after.RoomsNeedingRoll)
	assert.Zero(t, after.RoomsWithoutSlots)
	assert.Equal(t, int64(2), after.TotalRooms)
	assert.Equal(t, int64(2), after.RoomsByStatus["available"])
	assert.Equal(t, int64(1), after.ActiveBookings)
	assert.Equal(t, 7, after.WindowDays)
	assert.Equal(t, 30, after.SlotMinutes)
	require.NotNil(t, after.LastRun)
	assert.True(t, after.LastRun.Success)
	assert.Equal(t, "test", after.LastRun.Trigger)

	var details Report
	require.NoError(t, json.Unmarshal(after.LastRun.Details, &details))
	assert.Equal(t, 2, details.RoomsProcessed)

	again, err := e.svc.Run(ctx, "test")
	require.NoError(t, err)
	assert.Empty(t, again.Rolls)

	v, err := e.svc.ValidateSlots(ctx)
	require.NoError(t, err)
	assert.True(t, v.Valid, v.Issues)
}

func TestRollDailyAndInitializeAll(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	n, err := e.svc.InitializeAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = e.svc.InitializeAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	e.clock.Advance(24 * time.Hour)
	sum, err := e.svc.RollDaily(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.RoomsProcessed)
	assert.Equal(t, 2, sum.RoomsRolled)
	assert.Equal(t, int64(40), sum.DeletedSlots)
	assert.Equal(t, 40, sum.NewSlots)

	sum, err = e.svc.RollDaily(ctx)
	require.NoError(t, err)
	assert.Zero(t, sum.RoomsRolled)
}

func TestReports_StatisticsAndValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	b := e.book(t, "2026-10-17", "09:00", "10:00")

	st, err := e.svc.SlotStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(140), st.TotalSlots)
	assert.Equal(t, int64(2), st.BookedSlots)
	assert.Equal(t, int64(138), st.AvailableSlots)
	assert.InDelta(t, 2.0/140, st.Utilization, 1e-9)
	require.Len(t, st.Rooms, 2)
	assert.Equal(t, "A-101", st.Rooms[0].RoomNumber)
	assert.Equal(t, int64(2), st.Rooms[0].Booked)
	assert.Zero(t, st.Rooms[1].Total)
	assert.Zero(t, st.Rooms[1].Booked)
	require.Len(t, st.Days, 7)
	assert.Equal(t, "2026-10-17", st.Days[1].Date)
	assert.Equal(t, int64(2), st.Days[1].Booked)

	v, err := e.svc.ValidateSlots(ctx)
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Empty(t, v.Issues)

	ghost := int64(4242)
	require.NoError(t, e.db.Model(&domain.Slot{}).
		Where("room_id = ? AND slot_date = ? AND slot_time = ?", e.rooms[0].ID, "2026-10-19", "12:00").
		Updates(map[string]any{"is_available": false, "booking_id": ghost}).Error)
	require.NoError(t, e.db.Model(&domain.Slot{}).
		Where("room_id = ? AND slot_date = ? AND slot_time = ?", e.rooms[0].ID, "2026-10-19", "13:00").
		Update("booking_id", ghost).Error)
	require.NoError(t, e.db.Model(&domain.Slot{}).
		Where("booking_id = ? AND slot_time = ?", b.ID, "09:30").
		Updates(map[string]any{"is_available": true, "booking_id": nil}).Error)

	v, err = e.svc.ValidateSlots(ctx)
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, int64(1), v.OrphanedSlots)
	assert.Equal(t, int64(1), v.InconsistentSlots)
	assert.Equal(t, int64(1), v.MissingClaims)
	assert.Zero(t, v.WrongDayCounts)
	assert.Len(t, v.Issues, 3)
}

func TestHandler_AdminOnly(t *testing.T) {
	e := newEnv(t)
	gin.SetMode(gin.TestMode)

	newRouter := func(role domain.Role) *gin.Engine {
		r := gin.New()
		r.Use(func(c *gin.Context) {
			middleware.SetSession(c, domain.Session{UserID: 1, Role: role})
			c.Next()
		})
		NewHandler(e.svc).RegisterRoutes(r.Group("/api/v1/rooms"))
		return r
	}

	w := httptest.NewRecorder()
	newRouter(domain.RoleStaff).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/rooms/admin/roll-daily-slots", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin := newRouter(domain.RoleAdmin)

	w = httptest.NewRecorder()
	admin.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/rooms/admin/initialize-all-slots", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, float64(1), body.Data["rooms_processed"])

	for _, path := range []string{"slot-statistics", "validate-slots", "system-status"} {
		w = httptest.NewRecorder()
		admin.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/rooms/admin/"+path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w = httptest.NewRecorder()
	admin.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/rooms/admin/cleanup-expired-bookings", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(0), body.Data["cleaned_bookings"])
}

func TestRollRoom_ShiftsOneDay(t *testing.T) {
	e := newEnv(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		middleware.SetSession(c, domain.Session{UserID: 1, Role: domain.RoleAdmin})
		c.Next()
	})
	NewHandler(e.svc).RegisterRoutes(r.Group("/api/v1/rooms"))

	post := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
		return w
	}

	w := post(fmt.Sprintf("/api/v1/rooms/admin/roll-forward/%d", e.rooms[0].ID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Data struct {
			WindowStart  string `json:"window_start"`
			DeletedSlots int64  `json:"deleted_slots"`
			NewSlots     int    `json:"new_slots"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "2026-10-17", body.Data.WindowStart)
	assert.Equal(t, int64(20), body.Data.DeletedSlots)
	assert.Equal(t, 20, body.Data.NewSlots)

	v, err := e.svc.ValidateSlots(context.Background())
	require.NoError(t, err)
	assert.Zero(t, v.WrongDayCounts)

	// the room without a window cannot be shifted
	w = post(fmt.Sprintf("/api/v1/rooms/admin/roll-forward/%d", e.rooms[1].ID))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = post("/api/v1/rooms/admin/roll-forward/abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
