package maintenance

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"deptrooms/internal/domain"
)

// Reports runs the read-only aggregate queries behind the admin endpoints.
type Reports struct {
	db *sqlx.DB
}

func NewReports(db *sqlx.DB) *Reports {
	return &Reports{db: db}
}

type RoomUtilization struct {
	RoomID      int64   `db:"room_id" json:"room_id"`
	RoomNumber  string  `db:"room_number" json:"room_number"`
	Total       int64   `db:"total" json:"total_slots"`
	Booked      int64   `db:"booked" json:"booked_slots"`
	Utilization float64 `db:"-" json:"utilization"`
}

type DayUtilization struct {
	DayOffset   int     `db:"day_offset" json:"day_offset"`
	Date        string  `db:"slot_date" json:"date"`
	Total       int64   `db:"total" json:"total_slots"`
	Booked      int64   `db:"booked" json:"booked_slots"`
	Utilization float64 `db:"-" json:"utilization"`
}

type SlotStatistics struct {
	TotalSlots     int64             `json:"total_slots"`
	AvailableSlots int64             `json:"available_slots"`
	BookedSlots    int64             `json:"booked_slots"`
	Utilization    float64           `json:"utilization"`
	Rooms          []RoomUtilization `json:"rooms"`
	Days           []DayUtilization  `json:"days"`
}

type Validation struct {
	Valid             bool     `json:"valid"`
	Issues            []string `json:"issues"`
	OrphanedSlots     int64    `json:"orphaned_slots"`
	InconsistentSlots int64    `json:"inconsistent_slots"`
	MissingClaims     int64    `json:"missing_claims"`
	WrongDayCounts    int64    `json:"wrong_day_counts"`
}

type SystemStatus struct {
	Today             string                 `json:"today"`
	WindowDays        int                    `json:"window_days"`
	SlotMinutes       int                    `json:"slot_minutes"`
	TotalRooms        int64                  `json:"total_rooms"`
	RoomsByStatus     map[string]int64       `json:"rooms_by_status"`
	RoomsWithoutSlots int64                  `json:"rooms_without_slots"`
	RoomsNeedingRoll  int64                  `json:"rooms_needing_roll"`
	ActiveBookings    int64                  `json:"active_bookings"`
	LastRun           *domain.MaintenanceRun `json:"last_run,omitempty"`
}

func (r *Reports) SlotStatistics(ctx context.Context) (*SlotStatistics, error) {
	var totals struct {
		Total  int64 `db:"total"`
		Booked int64 `db:"booked"`
	}
	q := `SELECT COUNT(*) AS total, COALESCE(SUM(CASE WHEN is_available = ? THEN 1 ELSE 0 END), 0) AS booked FROM room_slots`
	if err := r.db.GetContext(ctx, &totals, r.db.Rebind(q), false); err != nil {
		return nil, fmt.Errorf("slot totals: %w", err)
	}

	rooms := []RoomUtilization{}
	q = `SELECT r.id AS room_id, r.room_number, COUNT(s.id) AS total,
		COALESCE(SUM(CASE WHEN s.is_available = ? THEN 1 ELSE 0 END), 0) AS booked
		FROM rooms r LEFT JOIN room_slots s ON s.room_id = r.id
		GROUP BY r.id, r.room_number
		ORDER BY r.room_number`
	if err := r.db.SelectContext(ctx, &rooms, r.db.Rebind(q), false); err != nil {
		return nil, fmt.Errorf("room utilization: %w", err)
	}
	for i := range rooms {
		rooms[i].Utilization = ratio(rooms[i].Booked, rooms[i].Total)
	}

	days := []DayUtilization{}
	q = `SELECT day_offset, slot_date, COUNT(*) AS total,
		COALESCE(SUM(CASE WHEN is_available = ? THEN 1 ELSE 0 END), 0) AS booked
		FROM room_slots
		GROUP BY day_offset, slot_date
		ORDER BY day_offset, slot_date`
	if err := r.db.SelectContext(ctx, &days, r.db.Rebind(q), false); err != nil {
		return nil, fmt.Errorf("day utilization: %w", err)
	}
	for i := range days {
		days[i].Utilization = ratio(days[i].Booked, days[i].Total)
	}

	return &SlotStatistics{
		TotalSlots:     totals.Total,
		AvailableSlots: totals.Total - totals.Booked,
		BookedSlots:    totals.Booked,
		Utilization:    ratio(totals.Booked, totals.Total),
		Rooms:          rooms,
		Days:           days,
	}, nil
}

// ValidateSlots checks slot/booking consistency across all rooms. It only
// reports; nothing is repaired.
func (r *Reports) ValidateSlots(ctx context.Context, windowDays int) (*Validation, error) {
	v := &Validation{Issues: []string{}}

	checks := []struct {
		dest  *int64
		query string
		args  []any
		issue string
	}{
		{
			dest: &v.OrphanedSlots,
			query: `SELECT COUNT(*) FROM room_slots s
				LEFT JOIN room_bookings b ON b.id = s.booking_id
				WHERE s.is_available = ? AND (b.id IS NULL OR b.status = ?)`,
			args:  []any{false, domain.BookingCancelled},
			issue: "%d claimed slots reference a missing or cancelled booking",
		},
		{
			dest: &v.InconsistentSlots,
			query: `SELECT COUNT(*) FROM room_slots
				WHERE (is_available = ? AND booking_id IS NOT NULL) OR (is_available = ? AND booking_id IS NULL)`,
			args:  []any{true, false},
			issue: "%d slots disagree between availability and booking reference",
		},
		{
			dest: &v.MissingClaims,
			query: `SELECT COUNT(*) FROM room_bookings b
				WHERE b.status IN (?, ?)
				AND b.duration_slots <> (SELECT COUNT(*) FROM room_slots s WHERE s.booking_id = b.id)`,
			args:  []any{domain.BookingScheduled, domain.BookingOngoing},
			issue: "%d active bookings do not hold exactly their slots",
		},
		{
			dest: &v.WrongDayCounts,
			query: `SELECT COUNT(*) FROM (
				SELECT room_id FROM room_slots GROUP BY room_id HAVING COUNT(DISTINCT day_offset) <> ?
			) AS t`,
			args:  []any{windowDays},
			issue: fmt.Sprintf("%%d rooms do not have exactly %d days of slots", windowDays),
		},
	}

	for _, c := range checks {
		if err := r.db.GetContext(ctx, c.dest, r.db.Rebind(c.query), c.args...); err != nil {
			return nil, err
		}
		if *c.dest > 0 {
			v.Issues = append(v.Issues, fmt.Sprintf(c.issue, *c.dest))
		}
	}
	v.Valid = len(v.Issues) == 0
	return v, nil
}

// SystemStatus summarizes rooms and bookings as of today.
func (r *Reports) SystemStatus(ctx context.Context, today string) (*SystemStatus, error) {
	st := &SystemStatus{Today: today, RoomsByStatus: map[string]int64{}}

	var byStatus []struct {
		Status string `db:"status"`
		N      int64  `db:"n"`
	}
	if err := r.db.SelectContext(ctx, &byStatus, `SELECT status, COUNT(*) AS n FROM rooms GROUP BY status`); err != nil {
		return nil, fmt.Errorf("rooms by status: %w", err)
	}
	for _, row := range byStatus {
		st.RoomsByStatus[row.Status] = row.N
		st.TotalRooms += row.N
	}

	q := `SELECT COUNT(*) FROM rooms r WHERE NOT EXISTS (SELECT 1 FROM room_slots s WHERE s.room_id = r.id)`
	if err := r.db.GetContext(ctx, &st.RoomsWithoutSlots, q); err != nil {
		return nil, fmt.Errorf("rooms without slots: %w", err)
	}

	q = `SELECT COUNT(*) FROM (SELECT room_id FROM room_slots GROUP BY room_id HAVING MIN(slot_date) < ?) AS t`
	if err := r.db.GetContext(ctx, &st.RoomsNeedingRoll, r.db.Rebind(q), today); err != nil {
		return nil, fmt.Errorf("rooms needing roll: %w", err)
	}

	q = `SELECT COUNT(*) FROM room_bookings WHERE status IN (?, ?)`
	if err := r.db.GetContext(ctx, &st.ActiveBookings, r.db.Rebind(q), domain.BookingScheduled, domain.BookingOngoing); err != nil {
		return nil, fmt.Errorf("active bookings: %w", err)
	}
	return st, nil
}

func ratio(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}
