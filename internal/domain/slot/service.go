package slot

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"deptrooms/internal/domain"
	"deptrooms/internal/pkg/clock"
	"deptrooms/internal/pkg/slotgrid"
)

// Service owns the shape of every room's rolling slot window. It never
// changes who holds a slot; that is the booking manager's job.
type Service struct {
	repo  *Repository
	clock clock.Clock
	grid  slotgrid.Grid
	days  int
}

func NewService(repo *Repository, clk clock.Clock, grid slotgrid.Grid, windowDays int) *Service {
	return &Service{repo: repo, clock: clk, grid: grid, days: windowDays}
}

// WithTx returns a copy whose queries run inside tx.
func (s *Service) WithTx(tx *gorm.DB) *Service {
	cp := *s
	cp.repo = s.repo.WithTx(tx)
	return &cp
}

func (s *Service) Repo() *Repository { return s.repo }

func (s *Service) Grid() slotgrid.Grid { return s.grid }

func (s *Service) WindowDays() int { return s.days }

func (s *Service) Clock() clock.Clock { return s.clock }

func (s *Service) Today() string { return clock.Today(s.clock) }

// Hours parses the room's operating hours onto the grid.
func (s *Service) Hours(room *domain.Room) (slotgrid.Range, error) {
	return s.grid.ParseRange(room.StartTime, room.EndTime)
}

// Initialize generates days 0..W-1 starting today, all free.
func (s *Service) Initialize(ctx context.Context, room *domain.Room) (int, error) {
	n, err := s.repo.Count(ctx, room.ID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, domain.Errorf(domain.ErrInvalidState, "room %s already has a slot window", room.RoomNumber)
	}
	return s.generate(ctx, room, s.Today(), 0, s.days)
}

// generate inserts free slots for count days starting at (date, offset).
func (s *Service) generate(ctx context.Context, room *domain.Room, date string, offset, count int) (int, error) {
	hours, err := s.Hours(room)
	if err != nil {
		return 0, fmt.Errorf("room %d operating hours: %w", room.ID, err)
	}
	times := s.grid.Times(hours)

	slots := make([]domain.Slot, 0, len(times)*count)
	for d := 0; d < count; d++ {
		day, err := slotgrid.AddDays(date, d)
		if err != nil {
			return 0, err
		}
		for _, t := range times {
			slots = append(slots, domain.Slot{
				RoomID:      room.ID,
				DayOffset:   offset + d,
				SlotDate:    day,
				SlotTime:    t,
				IsAvailable: true,
			})
		}
	}
	if err := s.repo.CreateBatch(ctx, slots); err != nil {
		return 0, err
	}
	return len(slots), nil
}

func (s *Service) WeeklySchedule(ctx context.Context, roomID int64) (*WeeklySchedule, error) {
	if err := s.requireRoom(ctx, roomID); err != nil {
		return nil, err
	}
	slots, err := s.repo.List(ctx, roomID, nil)
	if err != nil {
		return nil, err
	}

	ws := &WeeklySchedule{
		RoomID:      roomID,
		WindowDays:  s.days,
		SlotMinutes: s.grid.Minutes,
		Days:        []DaySchedule{},
	}
	ws.Days = append(ws.Days, s.groupByDay(roomID, slots)...)
	if len(ws.Days) > 0 {
		ws.WindowStart = ws.Days[0].Date
	}
	return ws, nil
}

func (s *Service) DaySchedule(ctx context.Context, roomID int64, dayOffset int) (*DaySchedule, error) {
	if dayOffset < 0 || dayOffset >= s.days {
		return nil, domain.Errorf(domain.ErrNotFound, "day offset %d is outside the %d day window", dayOffset, s.days)
	}
	if err := s.requireRoom(ctx, roomID); err != nil {
		return nil, err
	}
	slots, err := s.repo.List(ctx, roomID, &dayOffset)
	if err != nil {
		return nil, err
	}
	days := s.groupByDay(roomID, slots)
	if len(days) == 0 {
		return nil, domain.Errorf(domain.ErrNotFound, "room %d has no slots on day offset %d", roomID, dayOffset)
	}
	return &days[0], nil
}

// groupByDay expects slots ordered by day_offset, slot_time.
func (s *Service) groupByDay(roomID int64, slots []domain.Slot) []DaySchedule {
	var out []DaySchedule
	for _, sl := range slots {
		if len(out) == 0 || out[len(out)-1].DayOffset != sl.DayOffset {
			out = append(out, DaySchedule{RoomID: roomID, DayOffset: sl.DayOffset, Date: sl.SlotDate})
		}
		day := &out[len(out)-1]
		view := SlotView{
			SlotTime:    sl.SlotTime,
			EndTime:     s.slotEnd(sl.SlotTime),
			IsAvailable: sl.IsAvailable,
			BookingID:   sl.BookingID,
		}
		day.Slots = append(day.Slots, view)
		day.Total++
		if sl.IsAvailable {
			day.Available++
		}
	}
	return out
}

func (s *Service) slotEnd(start string) string {
	m, err := slotgrid.ParseClock(start)
	if err != nil {
		return ""
	}
	return slotgrid.FormatClock((m + s.grid.Minutes) % (24 * 60))
}

// RollForward drops day 0, shifts the window down by one day and appends a
// fresh free day at offset W-1. Surviving slots keep their state. Callers
// must resolve bookings on day 0 first and hold the room lock.
func (s *Service) RollForward(ctx context.Context, room *domain.Room) (RollResult, error) {
	start, ok, err := s.repo.WindowStart(ctx, room.ID)
	if err != nil {
		return RollResult{}, err
	}
	if !ok {
		return RollResult{}, domain.Errorf(domain.ErrInvalidState, "room %s has no slot window", room.RoomNumber)
	}

	deleted, err := s.repo.DeleteDay(ctx, room.ID, 0)
	if err != nil {
		return RollResult{}, err
	}
	if err := s.repo.ShiftDown(ctx, room.ID); err != nil {
		return RollResult{}, err
	}

	newDate, err := slotgrid.AddDays(start, s.days)
	if err != nil {
		return RollResult{}, err
	}
	created, err := s.generate(ctx, room, newDate, s.days-1, 1)
	if err != nil {
		return RollResult{}, err
	}
	return RollResult{DeletedSlots: deleted, NewSlots: created, NewDate: newDate}, nil
}

// Rebuild replaces the whole window with a fresh one starting today. Only
// used when the window is at least W days stale, so nothing in it can be
// kept.
func (s *Service) Rebuild(ctx context.Context, room *domain.Room) (RollResult, error) {
	deleted, err := s.repo.DeleteRoom(ctx, room.ID)
	if err != nil {
		return RollResult{}, err
	}
	created, err := s.generate(ctx, room, s.Today(), 0, s.days)
	if err != nil {
		return RollResult{}, err
	}
	last, _ := slotgrid.AddDays(s.Today(), s.days-1)
	return RollResult{DeletedSlots: deleted, NewSlots: created, NewDate: last}, nil
}

// Resync brings free slots in line with new operating hours. Claimed slots
// outside the new hours stay until their booking is cancelled or rolls out.
func (s *Service) Resync(ctx context.Context, room *domain.Room) (ResyncResult, error) {
	hours, err := s.Hours(room)
	if err != nil {
		return ResyncResult{}, err
	}
	start, ok, err := s.repo.WindowStart(ctx, room.ID)
	if err != nil {
		return ResyncResult{}, err
	}
	if !ok {
		n, err := s.Initialize(ctx, room)
		return ResyncResult{Added: n}, err
	}

	removed, err := s.repo.DeleteFreeOutside(ctx, room.ID, hours.StartClock(), hours.EndClock())
	if err != nil {
		return ResyncResult{}, err
	}

	existing, err := s.repo.List(ctx, room.ID, nil)
	if err != nil {
		return ResyncResult{}, err
	}
	have := make(map[string]bool, len(existing))
	for _, sl := range existing {
		have[sl.SlotDate+" "+sl.SlotTime] = true
	}

	var missing []domain.Slot
	for d := 0; d < s.days; d++ {
		date, err := slotgrid.AddDays(start, d)
		if err != nil {
			return ResyncResult{}, err
		}
		for _, t := range s.grid.Times(hours) {
			if have[date+" "+t] {
				continue
			}
			missing = append(missing, domain.Slot{
				RoomID:      room.ID,
				DayOffset:   d,
				SlotDate:    date,
				SlotTime:    t,
				IsAvailable: true,
			})
		}
	}
	if err := s.repo.CreateBatch(ctx, missing); err != nil {
		return ResyncResult{}, err
	}
	return ResyncResult{Removed: removed, Added: len(missing)}, nil
}

func (s *Service) requireRoom(ctx context.Context, roomID int64) error {
	ok, err := s.repo.RoomExists(ctx, roomID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.Errorf(domain.ErrNotFound, "room %d not found", roomID)
	}
	return nil
}
