package slot

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"deptrooms/internal/domain"
)

const insertBatchSize = 500

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) DB() *gorm.DB { return r.db }

func (r *Repository) RoomExists(ctx context.Context, roomID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Room{}).Where("id = ?", roomID).Count(&n).Error
	return n > 0, err
}

func (r *Repository) Count(ctx context.Context, roomID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Slot{}).Where("room_id = ?", roomID).Count(&n).Error
	return n, err
}

func (r *Repository) CreateBatch(ctx context.Context, slots []domain.Slot) error {
	if len(slots) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(slots, insertBatchSize).Error
}

// List returns the room's slots ordered by day and time. A nil dayOffset
// returns the whole window.
func (r *Repository) List(ctx context.Context, roomID int64, dayOffset *int) ([]domain.Slot, error) {
	q := r.db.WithContext(ctx).Where("room_id = ?", roomID)
	if dayOffset != nil {
		q = q.Where("day_offset = ?", *dayOffset)
	}
	var out []domain.Slot
	err := q.Order("day_offset ASC, slot_time ASC").Find(&out).Error
	return out, err
}

// WindowStart is the date of day_offset 0; ok is false when the room has no
// slots.
func (r *Repository) WindowStart(ctx context.Context, roomID int64) (string, bool, error) {
	var dates []string
	err := r.db.WithContext(ctx).Model(&domain.Slot{}).
		Where("room_id = ? AND day_offset = 0", roomID).
		Limit(1).
		Pluck("slot_date", &dates).Error
	if err != nil || len(dates) == 0 {
		return "", false, err
	}
	return dates[0], true, nil
}

func (r *Repository) DeleteDay(ctx context.Context, roomID int64, dayOffset int) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("room_id = ? AND day_offset = ?", roomID, dayOffset).
		Delete(&domain.Slot{})
	return res.RowsAffected, res.Error
}

func (r *Repository) DeleteRoom(ctx context.Context, roomID int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("room_id = ?", roomID).Delete(&domain.Slot{})
	return res.RowsAffected, res.Error
}

// ShiftDown decrements every day_offset of the room by one.
func (r *Repository) ShiftDown(ctx context.Context, roomID int64) error {
	return r.db.WithContext(ctx).Model(&domain.Slot{}).
		Where("room_id = ?", roomID).
		UpdateColumn("day_offset", gorm.Expr("day_offset - 1")).Error
}

// DeleteFreeOutside removes available slots outside [start, end). Claimed
// slots are left alone.
func (r *Repository) DeleteFreeOutside(ctx context.Context, roomID int64, start, end string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("room_id = ? AND is_available = ?", roomID, true).
		Where("(slot_time < ? OR slot_time >= ?)", start, end).
		Delete(&domain.Slot{})
	return res.RowsAffected, res.Error
}

// Claim marks the given free slots as taken by bookingID and returns how many
// rows changed. Slots that are already taken are not touched, so a result
// smaller than len(times) means a conflict.
func (r *Repository) Claim(ctx context.Context, roomID int64, date string, times []string, bookingID int64, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Slot{}).
		Where("room_id = ? AND slot_date = ? AND slot_time IN ? AND is_available = ?", roomID, date, times, true).
		Updates(map[string]any{
			"is_available": false,
			"booking_id":   bookingID,
			"updated_at":   now,
		})
	return res.RowsAffected, res.Error
}

// Release frees every slot held by bookingID.
func (r *Repository) Release(ctx context.Context, bookingID int64, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Slot{}).
		Where("booking_id = ?", bookingID).
		Updates(map[string]any{
			"is_available": true,
			"booking_id":   nil,
			"updated_at":   now,
		})
	return res.RowsAffected, res.Error
}

// CountClaimed returns how many slots reference bookingID.
func (r *Repository) CountClaimed(ctx context.Context, bookingID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Slot{}).Where("booking_id = ?", bookingID).Count(&n).Error
	return n, err
}

// FullyAvailable returns the ids among roomIDs that have every one of times
// free on date.
func (r *Repository) FullyAvailable(ctx context.Context, roomIDs []int64, date string, times []string) ([]int64, error) {
	if len(roomIDs) == 0 || len(times) == 0 {
		return nil, nil
	}
	var ids []int64
	err := r.db.WithContext(ctx).Model(&domain.Slot{}).
		Where("room_id IN ? AND slot_date = ? AND slot_time IN ? AND is_available = ?", roomIDs, date, times, true).
		Group("room_id").
		Having("COUNT(*) = ?", len(times)).
		Order("room_id ASC").
		Pluck("room_id", &ids).Error
	return ids, err
}

// LockRows takes row locks on the room's slots for the rest of the
// transaction. SQLite has no FOR UPDATE and relies on its writer lock.
func (r *Repository) LockRows(ctx context.Context, roomID int64, date string) error {
	if r.db.Dialector.Name() == "sqlite" {
		return nil
	}
	var ids []int64
	return r.db.WithContext(ctx).Model(&domain.Slot{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("room_id = ? AND slot_date = ?", roomID, date).
		Pluck("id", &ids).Error
}
