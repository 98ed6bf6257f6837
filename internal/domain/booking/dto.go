package booking

import "deptrooms/internal/domain"

type CreateRequest struct {
	RoomID      int64  `json:"room_id" binding:"required,min=1"`
	BookingDate string `json:"booking_date" binding:"required"`
	StartTime   string `json:"start_time" binding:"required"`
	EndTime     string `json:"end_time" binding:"required"`
	Purpose     string `json:"purpose" binding:"required,max=255"`
	Notes       string `json:"notes,omitempty"`
	// UserID books on behalf of another user; staff and admins only.
	UserID *int64 `json:"user_id,omitempty"`
}

type ListFilter struct {
	Skip        int
	Limit       int
	RoomID      *int64
	UserID      *int64
	Status      domain.BookingStatus
	BookingDate string
}

type ListQuery struct {
	Skip        int    `form:"skip" binding:"omitempty,min=0"`
	Limit       int    `form:"limit" binding:"omitempty,min=1,max=200"`
	RoomID      *int64 `form:"room_id"`
	UserID      *int64 `form:"user_id"`
	Status      string `form:"status"`
	BookingDate string `form:"booking_date"`
}

type ListResult struct {
	Bookings []domain.Booking `json:"bookings"`
	Total    int64            `json:"total"`
	Skip     int              `json:"skip"`
	Limit    int              `json:"limit"`
}

type TransitionResult struct {
	Started   int64 `json:"started"`
	Completed int64 `json:"completed"`
}

type CleanupResult struct {
	CleanedBookings int64 `json:"cleaned_bookings"`
	OrphanedSlots   int64 `json:"orphaned_slots"`
}

// RollOutcome describes what rolling one room's window did.
type RollOutcome struct {
	RoomID            int64  `json:"room_id"`
	Days              int    `json:"days_rolled"`
	Rebuilt           bool   `json:"rebuilt,omitempty"`
	Initialized       bool   `json:"initialized,omitempty"`
	CompletedBookings int64  `json:"completed_bookings"`
	DeletedSlots      int64  `json:"deleted_slots"`
	NewSlots          int    `json:"new_slots"`
	WindowStart       string `json:"window_start"`
}
