package domain

import "time"

type RoomStatus string

const (
	RoomAvailable   RoomStatus = "available"
	RoomMaintenance RoomStatus = "maintenance"
	RoomOccupied    RoomStatus = "occupied"
)

func (s RoomStatus) Valid() bool {
	switch s {
	case RoomAvailable, RoomMaintenance, RoomOccupied:
		return true
	}
	return false
}

// Room is a bookable department room. StartTime and EndTime are the operating
// hours ("HH:MM") that bound its slot grid.
type Room struct {
	ID          int64      `json:"id" gorm:"primaryKey"`
	RoomNumber  string     `json:"room_number" gorm:"size:32;not null;uniqueIndex"`
	Purpose     string     `json:"purpose" gorm:"size:64;not null;index"`
	Capacity    int        `json:"capacity" gorm:"not null"`
	Location    string     `json:"location,omitempty" gorm:"size:128"`
	Description string     `json:"description,omitempty" gorm:"type:text"`
	Status      RoomStatus `json:"status" gorm:"size:16;not null;index"`
	StartTime   string     `json:"start_time" gorm:"size:5;not null"`
	EndTime     string     `json:"end_time" gorm:"size:5;not null"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Room) TableName() string { return "rooms" }

// Bookable reports whether new bookings may be placed in the room.
func (r *Room) Bookable() bool {
	return r.Status == RoomAvailable
}
