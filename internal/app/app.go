// Package app assembles the room booking services and their HTTP router.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"deptrooms/internal/config"
	"deptrooms/internal/database"
	"deptrooms/internal/domain/availability"
	"deptrooms/internal/domain/booking"
	"deptrooms/internal/domain/live"
	"deptrooms/internal/domain/maintenance"
	"deptrooms/internal/domain/room"
	"deptrooms/internal/domain/slot"
	"deptrooms/internal/events"
	"deptrooms/internal/lock"
	"deptrooms/internal/middleware"
	"deptrooms/internal/pkg/clock"
	jwtsvc "deptrooms/internal/pkg/jwt"
	"deptrooms/internal/pkg/slotgrid"
)

// Options carries the pluggable infrastructure. Zero values fall back to
// in-process implementations.
type Options struct {
	Clock     clock.Clock
	Locker    lock.Locker
	Publisher events.Publisher
	// Checks are extra health checks, e.g. the redis lock backend.
	Checks map[string]func(context.Context) error
}

type App struct {
	cfg    *config.Config
	db     *gorm.DB
	clock  clock.Clock
	checks map[string]func(context.Context) error

	JWT         *jwtsvc.Service
	Hub         *live.Hub
	Slots       *slot.Service
	Search      *availability.Service
	Manager     *booking.Manager
	Rooms       *room.Service
	Maintenance *maintenance.Service
	Limiter     *middleware.RateLimiter
}

func New(cfg *config.Config, db *gorm.DB, opts Options) (*App, error) {
	grid, err := slotgrid.New(cfg.SlotMinutes)
	if err != nil {
		return nil, err
	}
	sqlxDB, err := database.SQLX(db)
	if err != nil {
		return nil, err
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.Real{Loc: cfg.Location}
	}
	locker := opts.Locker
	if locker == nil {
		locker = lock.NewLocal()
	}

	a := &App{cfg: cfg, db: db, clock: clk, checks: opts.Checks}
	a.JWT = jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)
	a.Hub = live.NewHub()

	publisher := events.Multi{a.Hub}
	if opts.Publisher != nil {
		publisher = append(publisher, opts.Publisher)
	}

	a.Slots = slot.NewService(slot.NewRepository(db), clk, grid, cfg.WindowDays)
	a.Search = availability.NewService(db, a.Slots)
	a.Manager = booking.NewManager(db, booking.NewRepository(db), a.Slots, locker, publisher, cfg.CleanupGrace)
	roomRepo := room.NewRepository(db)
	a.Rooms = room.NewService(db, roomRepo, a.Slots, locker)
	a.Maintenance = maintenance.NewService(db, roomRepo, a.Manager, a.Slots, maintenance.NewReports(sqlxDB))
	a.Limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute)
	return a, nil
}

func (a *App) Router() *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.ErrorLogger(),
		middleware.AccessLog(),
		middleware.Metrics(),
		middleware.CORS(a.cfg.CORSAllowedOrigins),
	)

	r.GET("/health", a.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		// websocket feed: token in the query string, no request timeout
		live.NewHandler(a.Hub).RegisterRoutes(v1, a.JWT)

		rooms := v1.Group("/rooms")
		rooms.Use(
			middleware.Timeout(a.cfg.RequestTimeout),
			middleware.JWTAuth(a.JWT),
			middleware.RateLimit(a.Limiter),
		)
		{
			room.NewHandler(a.Rooms, a.Slots, a.Search).RegisterRoutes(rooms)
			booking.NewHandler(a.Manager).RegisterRoutes(rooms)
			maintenance.NewHandler(a.Maintenance).RegisterRoutes(rooms)
		}
	}
	return r
}

func (a *App) health(c *gin.Context) {
	status := gin.H{"status": "ok", "time": a.clock.Now().Format(time.RFC3339)}

	failed := gin.H{}
	sqlDB, err := a.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		failed["database"] = err.Error()
	}
	for name, check := range a.checks {
		if err := check(c.Request.Context()); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		status["status"] = "degraded"
		status["errors"] = failed
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Start launches the background maintenance loop and the rate limiter
// sweeper. Both stop when ctx is cancelled.
func (a *App) Start(ctx context.Context) {
	a.Maintenance.Schedule(ctx, maintenance.SchedulerConfig{
		Interval:   a.cfg.MaintenanceInterval,
		Enabled:    a.cfg.MaintenanceEnabled,
		RunOnStart: true,
	})
	go a.Limiter.RunSweeper(ctx, time.Minute)
}
