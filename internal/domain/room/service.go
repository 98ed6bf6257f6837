// Package room manages the rooms whose calendars the slot model holds.
package room

import (
	"context"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"

	"deptrooms/internal/database"
	"deptrooms/internal/domain"
	"deptrooms/internal/domain/booking"
	"deptrooms/internal/domain/slot"
	"deptrooms/internal/lock"
	"deptrooms/internal/pkg/validator"
)

const (
	defaultListLimit = 100
	maxListLimit     = 200
)

type Service struct {
	db     *gorm.DB
	repo   *Repository
	slots  *slot.Service
	locker lock.Locker
}

func NewService(db *gorm.DB, repo *Repository, slots *slot.Service, locker lock.Locker) *Service {
	return &Service{db: db, repo: repo, slots: slots, locker: locker}
}

func (s *Service) List(ctx context.Context, f ListFilter, includeSchedule bool) (*ListResult, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, domain.NewValidationError("status", "unknown room status")
	}
	if f.Skip < 0 {
		f.Skip = 0
	}
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}

	rooms, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}

	views := make([]View, 0, len(rooms))
	for _, r := range rooms {
		v, err := s.view(ctx, r, includeSchedule)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return &ListResult{Rooms: views, Total: total, Skip: f.Skip, Limit: f.Limit}, nil
}

func (s *Service) Get(ctx context.Context, id int64, includeSchedule bool) (*View, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	v, err := s.view(ctx, *r, includeSchedule)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *Service) view(ctx context.Context, r domain.Room, includeSchedule bool) (View, error) {
	v := View{Room: r}
	if !includeSchedule {
		return v, nil
	}
	ws, err := s.slots.WeeklySchedule(ctx, r.ID)
	if err != nil {
		return View{}, err
	}
	v.Schedule = ws
	return v, nil
}

// Create inserts the room and generates its slot window in one transaction.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*domain.Room, error) {
	if err := validator.Check(req); err != nil {
		return nil, err
	}

	r := &domain.Room{
		RoomNumber:  strings.TrimSpace(req.RoomNumber),
		Purpose:     strings.TrimSpace(req.Purpose),
		Capacity:    req.Capacity,
		Location:    strings.TrimSpace(req.Location),
		Description: req.Description,
		Status:      req.Status,
	}
	if r.Status == "" {
		r.Status = domain.RoomAvailable
	}
	if err := s.setHours(r, req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	var created int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := checkNumber(ctx, repo, r.RoomNumber, 0); err != nil {
			return err
		}
		if err := repo.Create(ctx, r); err != nil {
			if database.IsUniqueViolation(err) {
				return duplicateNumber(r.RoomNumber)
			}
			return err
		}
		var err error
		created, err = s.slots.WithTx(tx).Initialize(ctx, r)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("room_created id=%d room_number=%s hours=%s-%s slots=%d", r.ID, r.RoomNumber, r.StartTime, r.EndTime, created)
	return r, nil
}

// Update applies a partial update under the room lock. Changed operating
// hours resync the free slots of the window.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (*UpdateResult, error) {
	if err := validator.Check(req); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, lock.RoomKey(id))
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := &UpdateResult{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		r, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if req.RoomNumber != nil {
			number := strings.TrimSpace(*req.RoomNumber)
			if err := checkNumber(ctx, repo, number, id); err != nil {
				return err
			}
			r.RoomNumber = number
		}
		if req.Purpose != nil {
			r.Purpose = strings.TrimSpace(*req.Purpose)
		}
		if req.Capacity != nil {
			r.Capacity = *req.Capacity
		}
		if req.Location != nil {
			r.Location = strings.TrimSpace(*req.Location)
		}
		if req.Description != nil {
			r.Description = *req.Description
		}
		if req.Status != nil {
			r.Status = *req.Status
		}

		start, end := r.StartTime, r.EndTime
		if req.StartTime != nil {
			start = *req.StartTime
		}
		if req.EndTime != nil {
			end = *req.EndTime
		}
		oldStart, oldEnd := r.StartTime, r.EndTime
		if err := s.setHours(r, start, end); err != nil {
			return err
		}

		if err := repo.Save(ctx, r); err != nil {
			if database.IsUniqueViolation(err) {
				return duplicateNumber(r.RoomNumber)
			}
			return err
		}
		out.Room = r

		if r.StartTime != oldStart || r.EndTime != oldEnd {
			res, err := s.slots.WithTx(tx).Resync(ctx, r)
			if err != nil {
				return err
			}
			out.Resync = &res
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if out.Resync != nil {
		log.Printf("room_hours_changed id=%d hours=%s-%s removed_slots=%d added_slots=%d",
			id, out.Room.StartTime, out.Room.EndTime, out.Resync.Removed, out.Resync.Added)
	}
	return out, nil
}

// Delete removes the room with its slots and past bookings. Rooms that still
// have active bookings cannot be deleted.
func (s *Service) Delete(ctx context.Context, id int64) error {
	unlock, err := s.locker.Lock(ctx, lock.RoomKey(id))
	if err != nil {
		return err
	}
	defer unlock()

	var slots, bookings int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.repo.WithTx(tx).GetByID(ctx, id)
		if err != nil {
			return err
		}
		bookingRepo := booking.NewRepository(tx)
		active, err := bookingRepo.CountActiveByRoom(ctx, id)
		if err != nil {
			return err
		}
		if active > 0 {
			return domain.Errorf(domain.ErrInvalidState, "room %s has %d active bookings", r.RoomNumber, active)
		}
		if slots, err = s.slots.WithTx(tx).Repo().DeleteRoom(ctx, id); err != nil {
			return err
		}
		if bookings, err = bookingRepo.DeleteByRoom(ctx, id); err != nil {
			return err
		}
		return s.repo.WithTx(tx).Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	log.Printf("room_deleted id=%d slots=%d bookings=%d", id, slots, bookings)
	return nil
}

// setHours validates and normalizes operating hours onto the slot grid.
func (s *Service) setHours(r *domain.Room, start, end string) error {
	hours, err := s.slots.Grid().ParseRange(start, end)
	if err != nil {
		field := "end_time"
		if strings.HasPrefix(err.Error(), "start_time") {
			field = "start_time"
		}
		return domain.NewValidationError(field, fmt.Sprintf("invalid operating hours: %v", err))
	}
	r.StartTime = hours.StartClock()
	r.EndTime = hours.EndClock()
	return nil
}

func checkNumber(ctx context.Context, repo *Repository, number string, exceptID int64) error {
	taken, err := repo.NumberTaken(ctx, number, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return duplicateNumber(number)
	}
	return nil
}

func duplicateNumber(number string) error {
	return domain.NewValidationError("room_number", fmt.Sprintf("room %s already exists", number))
}
