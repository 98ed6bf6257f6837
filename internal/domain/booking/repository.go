package booking

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"deptrooms/internal/domain"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, b *domain.Booking) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	var b domain.Booking
	err := r.db.WithContext(ctx).First(&b, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.Errorf(domain.ErrNotFound, "booking %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *Repository) List(ctx context.Context, f ListFilter) ([]domain.Booking, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Booking{})
	if f.RoomID != nil {
		q = q.Where("room_id = ?", *f.RoomID)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.BookingDate != "" {
		q = q.Where("booking_date = ?", f.BookingDate)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []domain.Booking
	err := q.Order("booking_date DESC, start_time DESC, id DESC").
		Offset(f.Skip).
		Limit(f.Limit).
		Find(&out).Error
	return out, total, err
}

// MarkCancelled moves a scheduled booking to cancelled. Zero rows means the
// booking was not scheduled any more.
func (r *Repository) MarkCancelled(ctx context.Context, id, actorID int64, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Booking{}).
		Where("id = ? AND status = ?", id, domain.BookingScheduled).
		Updates(map[string]any{
			"status":          domain.BookingCancelled,
			"cancelled_by_id": actorID,
			"cancelled_at":    now,
			"updated_at":      now,
		})
	return res.RowsAffected, res.Error
}

func (r *Repository) MarkApproved(ctx context.Context, id, actorID int64, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Booking{}).
		Where("id = ? AND status = ? AND approved_at IS NULL", id, domain.BookingScheduled).
		Updates(map[string]any{
			"approved_by_id": actorID,
			"approved_at":    now,
			"updated_at":     now,
		})
	return res.RowsAffected, res.Error
}

// CompleteThrough completes the room's active bookings dated on or before date.
func (r *Repository) CompleteThrough(ctx context.Context, roomID int64, date string, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Booking{}).
		Where("room_id = ? AND status IN ? AND booking_date <= ?", roomID, domain.ActiveBookingStatuses, date).
		Updates(map[string]any{"status": domain.BookingCompleted, "updated_at": now})
	return res.RowsAffected, res.Error
}

// StartDue moves scheduled bookings whose start is at or before today's
// clockNow to ongoing, including ones a missed tick let run past their end.
func (r *Repository) StartDue(ctx context.Context, today, clockNow string, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Booking{}).
		Where("status = ?", domain.BookingScheduled).
		Where("(booking_date < ? OR (booking_date = ? AND start_time <= ?))", today, today, clockNow).
		Updates(map[string]any{"status": domain.BookingOngoing, "updated_at": now})
	return res.RowsAffected, res.Error
}

// CompleteEndedBefore completes bookings in one of statuses that ended at or
// before the given date and clock time.
func (r *Repository) CompleteEndedBefore(ctx context.Context, statuses []domain.BookingStatus, date, clockTime string, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Booking{}).
		Where("status IN ?", statuses).
		Where("(booking_date < ? OR (booking_date = ? AND end_time <= ?))", date, date, clockTime).
		Updates(map[string]any{"status": domain.BookingCompleted, "updated_at": now})
	return res.RowsAffected, res.Error
}

// CompleteOutsideWindow completes active bookings dated before their room's
// window start.
func (r *Repository) CompleteOutsideWindow(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Booking{}).
		Where("status IN ?", domain.ActiveBookingStatuses).
		Where("booking_date < (SELECT MIN(s.slot_date) FROM room_slots s WHERE s.room_id = room_bookings.room_id)").
		Updates(map[string]any{"status": domain.BookingCompleted, "updated_at": now})
	return res.RowsAffected, res.Error
}

// CountOrphanedSlots counts claimed slots whose booking is missing or
// cancelled.
func (r *Repository) CountOrphanedSlots(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Table("room_slots AS s").
		Joins("LEFT JOIN room_bookings b ON b.id = s.booking_id").
		Where("s.is_available = ?", false).
		Where("(b.id IS NULL OR b.status = ?)", domain.BookingCancelled).
		Count(&n).Error
	return n, err
}

func (r *Repository) CountActiveByRoom(ctx context.Context, roomID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Booking{}).
		Where("room_id = ? AND status IN ?", roomID, domain.ActiveBookingStatuses).
		Count(&n).Error
	return n, err
}

func (r *Repository) DeleteByRoom(ctx context.Context, roomID int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("room_id = ?", roomID).Delete(&domain.Booking{})
	return res.RowsAffected, res.Error
}
