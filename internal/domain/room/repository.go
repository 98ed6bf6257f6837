package room

import (
	"context"
	"errors"
	"strings"

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

func (r *Repository) List(ctx context.Context, f ListFilter) ([]domain.Room, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Room{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if p := strings.TrimSpace(f.Purpose); p != "" {
		q = q.Where("LOWER(purpose) = ?", strings.ToLower(p))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rooms []domain.Room
	err := q.Order("room_number ASC").Offset(f.Skip).Limit(f.Limit).Find(&rooms).Error
	return rooms, total, err
}

// All returns every room ordered by id.
func (r *Repository) All(ctx context.Context) ([]domain.Room, error) {
	var rooms []domain.Room
	err := r.db.WithContext(ctx).Order("id ASC").Find(&rooms).Error
	return rooms, err
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).First(&room, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.Errorf(domain.ErrNotFound, "room %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// NumberTaken reports whether another room already uses number.
func (r *Repository) NumberTaken(ctx context.Context, number string, exceptID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Room{}).
		Where("room_number = ? AND id <> ?", number, exceptID).
		Count(&n).Error
	return n > 0, err
}

func (r *Repository) Create(ctx context.Context, room *domain.Room) error {
	return r.db.WithContext(ctx).Create(room).Error
}

func (r *Repository) Save(ctx context.Context, room *domain.Room) error {
	return r.db.WithContext(ctx).Save(room).Error
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&domain.Room{}, id).Error
}
