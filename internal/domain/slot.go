package domain

import "time"

// Slot is one grid cell of a room's calendar. BookingID is set exactly when
// IsAvailable is false.
type Slot struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	RoomID      int64     `json:"room_id" gorm:"not null;uniqueIndex:idx_room_slots_room_date_time,priority:1;index:idx_room_slots_room_offset,priority:1"`
	DayOffset   int       `json:"day_offset" gorm:"not null;index:idx_room_slots_room_offset,priority:2"`
	SlotDate    string    `json:"slot_date" gorm:"size:10;not null;uniqueIndex:idx_room_slots_room_date_time,priority:2"`
	SlotTime    string    `json:"slot_time" gorm:"size:5;not null;uniqueIndex:idx_room_slots_room_date_time,priority:3"`
	IsAvailable bool      `json:"is_available" gorm:"not null"`
	BookingID   *int64    `json:"booking_id,omitempty" gorm:"index"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Slot) TableName() string { return "room_slots" }
