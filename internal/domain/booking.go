package domain

import "time"

type BookingStatus string

const (
	BookingScheduled BookingStatus = "scheduled"
	BookingOngoing   BookingStatus = "ongoing"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// ActiveBookingStatuses are the statuses that hold slots.
var ActiveBookingStatuses = []BookingStatus{BookingScheduled, BookingOngoing}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingScheduled, BookingOngoing, BookingCompleted, BookingCancelled:
		return true
	}
	return false
}

func (s BookingStatus) Active() bool {
	return s == BookingScheduled || s == BookingOngoing
}

func (s BookingStatus) Terminal() bool {
	return s == BookingCompleted || s == BookingCancelled
}

type Booking struct {
	ID            int64         `json:"id" gorm:"primaryKey"`
	RoomID        int64         `json:"room_id" gorm:"not null;index"`
	UserID        int64         `json:"user_id" gorm:"not null;index"`
	Purpose       string        `json:"purpose" gorm:"size:255;not null"`
	Notes         string        `json:"notes,omitempty" gorm:"type:text"`
	BookingDate   string        `json:"booking_date" gorm:"size:10;not null;index"`
	StartTime     string        `json:"start_time" gorm:"size:5;not null"`
	EndTime       string        `json:"end_time" gorm:"size:5;not null"`
	DurationSlots int           `json:"duration_slots" gorm:"not null"`
	Status        BookingStatus `json:"status" gorm:"size:16;not null;index"`
	ApprovedByID  *int64        `json:"approved_by_id,omitempty"`
	ApprovedAt    *time.Time    `json:"approved_at,omitempty"`
	CancelledByID *int64        `json:"cancelled_by_id,omitempty"`
	CancelledAt   *time.Time    `json:"cancelled_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func (Booking) TableName() string { return "room_bookings" }
