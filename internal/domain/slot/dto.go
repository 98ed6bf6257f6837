package slot

type SlotView struct {
	SlotTime    string `json:"slot_time"`
	EndTime     string `json:"end_time"`
	IsAvailable bool   `json:"is_available"`
	BookingID   *int64 `json:"booking_id,omitempty"`
}

type DaySchedule struct {
	RoomID    int64      `json:"room_id"`
	DayOffset int        `json:"day_offset"`
	Date      string     `json:"date"`
	Available int        `json:"available_slots"`
	Total     int        `json:"total_slots"`
	Slots     []SlotView `json:"slots"`
}

type WeeklySchedule struct {
	RoomID      int64         `json:"room_id"`
	WindowStart string        `json:"window_start,omitempty"`
	WindowDays  int           `json:"window_days"`
	SlotMinutes int           `json:"slot_minutes"`
	Days        []DaySchedule `json:"days"`
}

// RollResult reports the slot rows touched by one roll of a room's window.
type RollResult struct {
	DeletedSlots int64  `json:"deleted_slots"`
	NewSlots     int    `json:"new_slots"`
	NewDate      string `json:"new_date"`
}

type ResyncResult struct {
	Removed int64 `json:"removed_slots"`
	Added   int   `json:"added_slots"`
}
