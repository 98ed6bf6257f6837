// Package maintenance runs the periodic jobs that keep slot windows current
// and booking statuses in step with the clock.
package maintenance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"deptrooms/internal/domain"
	"deptrooms/internal/domain/booking"
	"deptrooms/internal/domain/room"
	"deptrooms/internal/domain/slot"
	"deptrooms/internal/metrics"
)

// Report is the outcome of one maintenance pass.
type Report struct {
	Trigger        string                   `json:"trigger"`
	StartedAt      time.Time                `json:"started_at"`
	FinishedAt     time.Time                `json:"finished_at"`
	RoomsProcessed int                      `json:"rooms_processed"`
	Rolls          []booking.RollOutcome    `json:"rolls,omitempty"`
	Transitions    booking.TransitionResult `json:"transitions"`
	Cleanup        booking.CleanupResult    `json:"cleanup"`
	Errors         []string                 `json:"errors,omitempty"`
}

// RollSummary aggregates a daily roll over all rooms.
type RollSummary struct {
	RoomsProcessed int   `json:"rooms_processed"`
	RoomsRolled    int   `json:"rooms_rolled"`
	DeletedSlots   int64 `json:"deleted_slots"`
	NewSlots       int   `json:"new_slots"`
}

type Service struct {
	db      *gorm.DB
	rooms   *room.Repository
	manager *booking.Manager
	slots   *slot.Service
	reports *Reports
}

func NewService(db *gorm.DB, rooms *room.Repository, manager *booking.Manager, slots *slot.Service, reports *Reports) *Service {
	return &Service{db: db, rooms: rooms, manager: manager, slots: slots, reports: reports}
}

// Run rolls every room to today, advances booking statuses, cleans up
// expired bookings and records the pass. Failures of single rooms do not
// stop the pass; they are collected in the report.
func (s *Service) Run(ctx context.Context, trigger string) (*Report, error) {
	rep := &Report{Trigger: trigger, StartedAt: s.slots.Clock().Now()}

	summary, rolls, err := s.rollAll(ctx)
	rep.RoomsProcessed = summary.RoomsProcessed
	rep.Rolls = rolls
	if err != nil {
		rep.Errors = append(rep.Errors, err.Error())
	}

	if rep.Transitions, err = s.manager.AdvanceStatuses(ctx); err != nil {
		rep.Errors = append(rep.Errors, fmt.Sprintf("advance statuses: %v", err))
	}
	if rep.Cleanup, err = s.manager.CleanupExpired(ctx); err != nil {
		rep.Errors = append(rep.Errors, fmt.Sprintf("cleanup: %v", err))
	}
	rep.FinishedAt = s.slots.Clock().Now()

	var runErr error
	if len(rep.Errors) > 0 {
		runErr = fmt.Errorf("maintenance run finished with %d errors", len(rep.Errors))
	}
	metrics.RecordMaintenance("run", runErr)

	if err := s.record(ctx, rep); err != nil {
		log.Printf("[WARN] maintenance run not recorded: %v", err)
	}
	log.Printf("maintenance_run trigger=%s rooms=%d rolled=%d started=%d completed=%d cleaned=%d orphaned=%d errors=%d",
		trigger, rep.RoomsProcessed, len(rep.Rolls), rep.Transitions.Started, rep.Transitions.Completed,
		rep.Cleanup.CleanedBookings, rep.Cleanup.OrphanedSlots, len(rep.Errors))
	return rep, runErr
}

// RollDaily brings every room's window up to today.
func (s *Service) RollDaily(ctx context.Context) (RollSummary, error) {
	summary, _, err := s.rollAll(ctx)
	metrics.RecordMaintenance("roll_daily", err)
	return summary, err
}

func (s *Service) rollAll(ctx context.Context) (RollSummary, []booking.RollOutcome, error) {
	var summary RollSummary
	rooms, err := s.rooms.All(ctx)
	if err != nil {
		return summary, nil, err
	}

	var rolls []booking.RollOutcome
	var errs []error
	for _, r := range rooms {
		out, err := s.manager.RollToToday(ctx, r.ID)
		if err != nil {
			log.Printf("[ERROR] roll failed room_id=%d error=%v", r.ID, err)
			errs = append(errs, fmt.Errorf("room %d: %w", r.ID, err))
			continue
		}
		summary.RoomsProcessed++
		if out.Days > 0 || out.Initialized {
			summary.RoomsRolled++
			summary.DeletedSlots += out.DeletedSlots
			summary.NewSlots += out.NewSlots
			rolls = append(rolls, out)
		}
	}
	return summary, rolls, errors.Join(errs...)
}

// RollRoom shifts one room's window by exactly one day, regardless of today.
// It is the manual counterpart of the daily roll, e.g. after a missed day was
// repaired by hand.
func (s *Service) RollRoom(ctx context.Context, roomID int64) (booking.RollOutcome, error) {
	out, err := s.manager.RollForward(ctx, roomID)
	metrics.RecordMaintenance("roll_room", err)
	return out, err
}

// InitializeAll generates a window for every room that has none and
// returns how many rooms were initialized.
func (s *Service) InitializeAll(ctx context.Context) (int, error) {
	rooms, err := s.rooms.All(ctx)
	if err != nil {
		return 0, err
	}

	initialized := 0
	for _, r := range rooms {
		n, err := s.slots.Repo().Count(ctx, r.ID)
		if err != nil {
			return initialized, err
		}
		if n > 0 {
			continue
		}
		out, err := s.manager.RollToToday(ctx, r.ID)
		if err != nil {
			metrics.RecordMaintenance("initialize_all", err)
			return initialized, err
		}
		if out.Initialized {
			initialized++
		}
	}
	metrics.RecordMaintenance("initialize_all", nil)
	log.Printf("slots_initialized rooms=%d", initialized)
	return initialized, nil
}

func (s *Service) Cleanup(ctx context.Context) (booking.CleanupResult, error) {
	res, err := s.manager.CleanupExpired(ctx)
	metrics.RecordMaintenance("cleanup", err)
	return res, err
}

func (s *Service) SlotStatistics(ctx context.Context) (*SlotStatistics, error) {
	return s.reports.SlotStatistics(ctx)
}

func (s *Service) ValidateSlots(ctx context.Context) (*Validation, error) {
	return s.reports.ValidateSlots(ctx, s.slots.WindowDays())
}

func (s *Service) SystemStatus(ctx context.Context) (*SystemStatus, error) {
	st, err := s.reports.SystemStatus(ctx, s.slots.Today())
	if err != nil {
		return nil, err
	}
	st.WindowDays = s.slots.WindowDays()
	st.SlotMinutes = s.slots.Grid().Minutes
	if st.LastRun, err = s.LastRun(ctx); err != nil {
		return nil, err
	}
	return st, nil
}

// LastRun returns the most recent recorded pass, or nil if none ran yet.
func (s *Service) LastRun(ctx context.Context) (*domain.MaintenanceRun, error) {
	var run domain.MaintenanceRun
	err := s.db.WithContext(ctx).Order("started_at DESC, id DESC").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *Service) record(ctx context.Context, rep *Report) error {
	details, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(&domain.MaintenanceRun{
		Trigger:    rep.Trigger,
		Success:    len(rep.Errors) == 0,
		StartedAt:  rep.StartedAt,
		FinishedAt: rep.FinishedAt,
		Details:    details,
	}).Error
}
