package room

import (
	"deptrooms/internal/domain"
	"deptrooms/internal/domain/slot"
)

type CreateRequest struct {
	RoomNumber  string            `json:"room_number" validate:"required,max=32"`
	Purpose     string            `json:"purpose" validate:"required,max=64"`
	Capacity    int               `json:"capacity" validate:"required,min=1"`
	Location    string            `json:"location,omitempty" validate:"max=128"`
	Description string            `json:"description,omitempty"`
	Status      domain.RoomStatus `json:"status,omitempty" validate:"omitempty,oneof=available maintenance occupied"`
	StartTime   string            `json:"start_time" validate:"required,clock"`
	EndTime     string            `json:"end_time" validate:"required,clock"`
}

// UpdateRequest is a partial update; nil fields are left unchanged.
type UpdateRequest struct {
	RoomNumber  *string            `json:"room_number,omitempty" validate:"omitempty,min=1,max=32"`
	Purpose     *string            `json:"purpose,omitempty" validate:"omitempty,min=1,max=64"`
	Capacity    *int               `json:"capacity,omitempty" validate:"omitempty,min=1"`
	Location    *string            `json:"location,omitempty" validate:"omitempty,max=128"`
	Description *string            `json:"description,omitempty"`
	Status      *domain.RoomStatus `json:"status,omitempty" validate:"omitempty,oneof=available maintenance occupied"`
	StartTime   *string            `json:"start_time,omitempty" validate:"omitempty,clock"`
	EndTime     *string            `json:"end_time,omitempty" validate:"omitempty,clock"`
}

type ListFilter struct {
	Skip    int
	Limit   int
	Status  domain.RoomStatus
	Purpose string
}

type ListQuery struct {
	Skip            int    `form:"skip" binding:"omitempty,min=0"`
	Limit           int    `form:"limit" binding:"omitempty,min=1,max=200"`
	Status          string `form:"status"`
	Purpose         string `form:"purpose"`
	IncludeSchedule bool   `form:"include_schedule"`
}

// View is a room optionally carrying its weekly schedule.
type View struct {
	domain.Room
	Schedule *slot.WeeklySchedule `json:"schedule,omitempty"`
}

type ListResult struct {
	Rooms []View `json:"rooms"`
	Total int64  `json:"total"`
	Skip  int    `json:"skip"`
	Limit int    `json:"limit"`
}

type UpdateResult struct {
	Room   *domain.Room       `json:"room"`
	Resync *slot.ResyncResult `json:"resync,omitempty"`
}
