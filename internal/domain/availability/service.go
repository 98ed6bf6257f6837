// Package availability answers "which rooms are free for this range". It is
// read-only: nothing found here is reserved.
package availability

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"deptrooms/internal/domain"
	"deptrooms/internal/domain/slot"
	"deptrooms/internal/metrics"
	"deptrooms/internal/pkg/slotgrid"
)

type SearchRequest struct {
	BookingDate string `json:"booking_date" binding:"required"`
	StartTime   string `json:"start_time" binding:"required"`
	EndTime     string `json:"end_time" binding:"required"`
	Purpose     string `json:"purpose,omitempty"`
	Capacity    int    `json:"capacity,omitempty" binding:"omitempty,min=1"`
}

type SearchResult struct {
	AvailableRooms []domain.Room `json:"available_rooms"`
}

// Query is a validated search range.
type Query struct {
	Date  string
	Range slotgrid.Range
	Times []string
}

type Service struct {
	db    *gorm.DB
	slots *slot.Service
}

func NewService(db *gorm.DB, slots *slot.Service) *Service {
	return &Service{db: db, slots: slots}
}

// ParseRange validates a date and time range against the grid and the clock:
// times must be aligned, start before end, and the range must not start in
// the past.
func ParseRange(slots *slot.Service, date, start, end string) (Query, error) {
	verr := &domain.ValidationError{}

	if _, err := slotgrid.ParseDate(date); err != nil {
		verr.Add("booking_date", err.Error())
	}
	r, err := slots.Grid().ParseRange(start, end)
	if err != nil {
		field := "end_time"
		if strings.HasPrefix(err.Error(), "start_time") {
			field = "start_time"
		}
		verr.Add(field, rangeMessage(err))
	}
	if verr.HasErrors() {
		return Query{}, verr
	}

	now := slots.Clock().Now()
	today := slots.Today()
	nowMinutes := now.Hour()*60 + now.Minute()
	if date < today || (date == today && r.Start < nowMinutes) {
		return Query{}, domain.NewValidationError("start_time", "range starts in the past")
	}

	return Query{Date: date, Range: r, Times: slots.Grid().Times(r)}, nil
}

func rangeMessage(err error) string {
	switch {
	case errors.Is(err, slotgrid.ErrNotAligned):
		return slotgrid.ErrNotAligned.Error()
	case errors.Is(err, slotgrid.ErrMalformedTime):
		return slotgrid.ErrMalformedTime.Error()
	case errors.Is(err, slotgrid.ErrEmptyRange):
		return slotgrid.ErrEmptyRange.Error()
	}
	return err.Error()
}

// Search returns rooms that are available, match the optional filters and
// have every slot of the range free. Dates outside a room's window simply
// have no slots and produce no match.
func (s *Service) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	if req.Capacity < 0 {
		return nil, domain.NewValidationError("capacity", "must be positive")
	}
	q, err := ParseRange(s.slots, req.BookingDate, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	metrics.RecordSearch()

	db := s.db.WithContext(ctx).Where("status = ?", domain.RoomAvailable)
	if p := strings.TrimSpace(req.Purpose); p != "" {
		db = db.Where("LOWER(purpose) = ?", strings.ToLower(p))
	}
	if req.Capacity > 0 {
		db = db.Where("capacity >= ?", req.Capacity)
	}

	var candidates []domain.Room
	if err := db.Order("room_number ASC").Find(&candidates).Error; err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return &SearchResult{AvailableRooms: []domain.Room{}}, nil
	}

	ids := make([]int64, len(candidates))
	for i, r := range candidates {
		ids[i] = r.ID
	}
	free, err := s.slots.Repo().FullyAvailable(ctx, ids, q.Date, q.Times)
	if err != nil {
		return nil, err
	}
	freeSet := make(map[int64]bool, len(free))
	for _, id := range free {
		freeSet[id] = true
	}

	out := make([]domain.Room, 0, len(free))
	for _, r := range candidates {
		if freeSet[r.ID] {
			out = append(out, r)
		}
	}
	return &SearchResult{AvailableRooms: out}, nil
}
