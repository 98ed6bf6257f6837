package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"deptrooms/internal/domain"
	"deptrooms/internal/domain/availability"
	"deptrooms/internal/domain/slot"
	"deptrooms/internal/events"
	"deptrooms/internal/lock"
	"deptrooms/internal/metrics"
	"deptrooms/internal/pkg/clock"
	"deptrooms/internal/pkg/slotgrid"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	clockLayout      = "15:04"
)

// Manager is the only writer of slot ownership and booking status. Every
// mutation of a room's slots runs in one transaction under that room's lock.
type Manager struct {
	db        *gorm.DB
	repo      *Repository
	slots     *slot.Service
	locker    lock.Locker
	publisher events.Publisher
	clock     clock.Clock
	grace     time.Duration
}

func NewManager(db *gorm.DB, repo *Repository, slots *slot.Service, locker lock.Locker, publisher events.Publisher, grace time.Duration) *Manager {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Manager{
		db:        db,
		repo:      repo,
		slots:     slots,
		locker:    locker,
		publisher: publisher,
		clock:     slots.Clock(),
		grace:     grace,
	}
}

// withRoom runs fn in a transaction while holding the room's lock.
func (m *Manager) withRoom(ctx context.Context, roomID int64, fn func(tx *gorm.DB, room *domain.Room) error) error {
	unlock, err := m.locker.Lock(ctx, lock.RoomKey(roomID))
	if err != nil {
		return err
	}
	defer unlock()

	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room domain.Room
		if err := tx.First(&room, roomID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.Errorf(domain.ErrNotFound, "room %d not found", roomID)
			}
			return err
		}
		return fn(tx, &room)
	})
}

func (m *Manager) Create(ctx context.Context, sess domain.Session, req CreateRequest) (*domain.Booking, error) {
	userID := sess.UserID
	if req.UserID != nil && *req.UserID != sess.UserID {
		if !domain.CanBookOnBehalf(sess) {
			return nil, domain.Errorf(domain.ErrForbidden, "only staff and administrators can book for another user")
		}
		userID = *req.UserID
	}
	if userID <= 0 {
		return nil, domain.NewValidationError("user_id", "is required")
	}
	purpose := strings.TrimSpace(req.Purpose)
	if purpose == "" {
		return nil, domain.NewValidationError("purpose", "is required")
	}

	q, err := availability.ParseRange(m.slots, req.BookingDate, req.StartTime, req.EndTime)
	if err != nil {
		metrics.RecordBooking("rejected")
		return nil, err
	}

	now := m.clock.Now()
	b := &domain.Booking{
		RoomID:        req.RoomID,
		UserID:        userID,
		Purpose:       purpose,
		Notes:         strings.TrimSpace(req.Notes),
		BookingDate:   q.Date,
		StartTime:     q.Range.StartClock(),
		EndTime:       q.Range.EndClock(),
		DurationSlots: len(q.Times),
		Status:        domain.BookingScheduled,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = m.withRoom(ctx, req.RoomID, func(tx *gorm.DB, room *domain.Room) error {
		if !room.Bookable() {
			return domain.Errorf(domain.ErrRoomUnavailable, "room %s is %s", room.RoomNumber, room.Status)
		}
		if err := m.checkWithinRoom(ctx, tx, room, q); err != nil {
			return err
		}

		slots := m.slots.WithTx(tx).Repo()
		if err := slots.LockRows(ctx, room.ID, q.Date); err != nil {
			return err
		}
		if err := m.repo.WithTx(tx).Create(ctx, b); err != nil {
			return err
		}
		claimed, err := slots.Claim(ctx, room.ID, q.Date, q.Times, b.ID, now)
		if err != nil {
			return err
		}
		if claimed != int64(len(q.Times)) {
			return domain.ErrSlotConflict
		}
		return nil
	})
	if err != nil {
		recordCreateFailure(err)
		return nil, err
	}

	metrics.RecordBooking("created")
	log.Printf("booking_created id=%d room_id=%d user_id=%d date=%s start=%s end=%s", b.ID, b.RoomID, b.UserID, b.BookingDate, b.StartTime, b.EndTime)
	m.publish(ctx, bookingEvent(events.BookingCreated, b, now))
	return b, nil
}

// checkWithinRoom rejects ranges outside the room's operating hours or its
// current window; neither can ever be claimed.
func (m *Manager) checkWithinRoom(ctx context.Context, tx *gorm.DB, room *domain.Room, q availability.Query) error {
	hours, err := m.slots.Hours(room)
	if err != nil {
		return fmt.Errorf("room %d operating hours: %w", room.ID, err)
	}
	if !hours.Contains(q.Range) {
		return domain.NewValidationError("start_time", fmt.Sprintf("outside operating hours %s-%s", room.StartTime, room.EndTime))
	}

	start, ok, err := m.slots.WithTx(tx).Repo().WindowStart(ctx, room.ID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.Errorf(domain.ErrInvalidState, "room %s has no slot window", room.RoomNumber)
	}
	offset, err := slotgrid.DaysBetween(start, q.Date)
	if err != nil {
		return err
	}
	if offset < 0 || offset >= m.slots.WindowDays() {
		return domain.NewValidationError("booking_date", "outside the bookable window")
	}
	return nil
}

func recordCreateFailure(err error) {
	switch {
	case errors.Is(err, domain.ErrSlotConflict):
		metrics.RecordBooking("conflict")
	case errors.Is(err, domain.ErrRoomUnavailable):
		metrics.RecordBooking("unavailable")
	default:
		metrics.RecordBooking("rejected")
	}
}

// Cancel releases the booking's slots. Only the owner or an administrator
// may cancel, and only while the booking is scheduled.
func (m *Manager) Cancel(ctx context.Context, sess domain.Session, id int64) (*domain.Booking, error) {
	b, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanCancelBooking(sess, b) {
		return nil, domain.Errorf(domain.ErrForbidden, "only the owner or an administrator can cancel this booking")
	}
	if err := cancellable(b.Status); err != nil {
		return nil, err
	}

	now := m.clock.Now()
	var released int64
	err = m.withRoom(ctx, b.RoomID, func(tx *gorm.DB, _ *domain.Room) error {
		n, err := m.repo.WithTx(tx).MarkCancelled(ctx, id, sess.UserID, now)
		if err != nil {
			return err
		}
		if n == 0 {
			current, err := m.repo.WithTx(tx).GetByID(ctx, id)
			if err != nil {
				return err
			}
			if err := cancellable(current.Status); err != nil {
				return err
			}
			return domain.Errorf(domain.ErrInvalidState, "booking %d changed concurrently", id)
		}
		released, err = m.slots.WithTx(tx).Repo().Release(ctx, id, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	b.Status = domain.BookingCancelled
	b.CancelledByID = &sess.UserID
	b.CancelledAt = &now
	b.UpdatedAt = now

	metrics.RecordBookingCancellation()
	log.Printf("booking_cancelled id=%d room_id=%d actor_id=%d released_slots=%d", id, b.RoomID, sess.UserID, released)
	m.publish(ctx, bookingEvent(events.BookingCancelled, b, now))
	return b, nil
}

func cancellable(status domain.BookingStatus) error {
	switch status {
	case domain.BookingScheduled:
		return nil
	case domain.BookingCompleted:
		return domain.Errorf(domain.ErrInvalidState, "cannot cancel: booking already completed")
	case domain.BookingCancelled:
		return domain.Errorf(domain.ErrInvalidState, "cannot cancel: booking already cancelled")
	default:
		return domain.Errorf(domain.ErrInvalidState, "cannot cancel: booking is %s", status)
	}
}

// Approve records an administrator's approval of a scheduled booking.
func (m *Manager) Approve(ctx context.Context, sess domain.Session, id int64) (*domain.Booking, error) {
	if !domain.CanApproveBooking(sess) {
		return nil, domain.Errorf(domain.ErrForbidden, "only administrators can approve bookings")
	}
	b, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != domain.BookingScheduled {
		return nil, domain.Errorf(domain.ErrInvalidState, "cannot approve: booking is %s", b.Status)
	}
	if b.ApprovedAt != nil {
		return nil, domain.Errorf(domain.ErrInvalidState, "booking %d is already approved", id)
	}

	now := m.clock.Now()
	n, err := m.repo.MarkApproved(ctx, id, sess.UserID, now)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, domain.Errorf(domain.ErrInvalidState, "booking %d changed concurrently", id)
	}

	b.ApprovedByID = &sess.UserID
	b.ApprovedAt = &now
	b.UpdatedAt = now
	m.publish(ctx, bookingEvent(events.BookingApproved, b, now))
	return b, nil
}

func (m *Manager) Get(ctx context.Context, sess domain.Session, id int64) (*domain.Booking, error) {
	b, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanViewBooking(sess, b) {
		return nil, domain.Errorf(domain.ErrForbidden, "you cannot view this booking")
	}
	return b, nil
}

// List pages through bookings. Students and faculty only ever see their own.
func (m *Manager) List(ctx context.Context, sess domain.Session, f ListFilter) (*ListResult, error) {
	if !domain.CanListAllBookings(sess) {
		if f.UserID != nil && *f.UserID != sess.UserID {
			return nil, domain.Errorf(domain.ErrForbidden, "you can only list your own bookings")
		}
		uid := sess.UserID
		f.UserID = &uid
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, domain.NewValidationError("status", "unknown booking status")
	}
	if f.BookingDate != "" {
		if _, err := slotgrid.ParseDate(f.BookingDate); err != nil {
			return nil, domain.NewValidationError("booking_date", err.Error())
		}
	}
	if f.Skip < 0 {
		f.Skip = 0
	}
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}

	items, total, err := m.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Booking{}
	}
	return &ListResult{Bookings: items, Total: total, Skip: f.Skip, Limit: f.Limit}, nil
}

// AdvanceStatuses applies the time-driven transitions. Only ongoing bookings
// complete here, so every booking passes through ongoing; one whose start was
// missed becomes ongoing now and completes on the next call. Slots are not
// touched: a completed booking keeps its slots until its day rolls out.
func (m *Manager) AdvanceStatuses(ctx context.Context) (TransitionResult, error) {
	now := m.clock.Now()
	today := now.Format(slotgrid.DateLayout)
	clockNow := now.Format(clockLayout)

	var res TransitionResult
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := m.repo.WithTx(tx)
		var err error
		if res.Completed, err = repo.CompleteEndedBefore(ctx, []domain.BookingStatus{domain.BookingOngoing}, today, clockNow, now); err != nil {
			return err
		}
		res.Started, err = repo.StartDue(ctx, today, clockNow, now)
		return err
	})
	if err != nil {
		return TransitionResult{}, err
	}

	metrics.RecordTransitions(string(domain.BookingOngoing), res.Started)
	metrics.RecordTransitions(string(domain.BookingCompleted), res.Completed)
	if res.Started > 0 || res.Completed > 0 {
		log.Printf("booking_transitions started=%d completed=%d", res.Started, res.Completed)
	}
	return res, nil
}

// CleanupExpired completes active bookings that fell out of their room's
// window or ended longer than the grace period ago, and reports orphaned
// slots without repairing them.
func (m *Manager) CleanupExpired(ctx context.Context) (CleanupResult, error) {
	now := m.clock.Now()
	cutoff := now.Add(-m.grace)

	var res CleanupResult
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := m.repo.WithTx(tx)
		outside, err := repo.CompleteOutsideWindow(ctx, now)
		if err != nil {
			return err
		}
		ended, err := repo.CompleteEndedBefore(ctx, domain.ActiveBookingStatuses, cutoff.Format(slotgrid.DateLayout), cutoff.Format(clockLayout), now)
		if err != nil {
			return err
		}
		res.CleanedBookings = outside + ended
		res.OrphanedSlots, err = repo.CountOrphanedSlots(ctx)
		return err
	})
	if err != nil {
		return CleanupResult{}, err
	}

	metrics.OrphanedSlots.Set(float64(res.OrphanedSlots))
	metrics.RecordTransitions(string(domain.BookingCompleted), res.CleanedBookings)
	if res.OrphanedSlots > 0 {
		log.Printf("[WARN] cleanup found orphaned_slots=%d", res.OrphanedSlots)
	}
	return res, nil
}

// RollForward shifts the room's window by exactly one day. Active bookings
// on the outgoing day are completed in the same transaction.
func (m *Manager) RollForward(ctx context.Context, roomID int64) (RollOutcome, error) {
	out := RollOutcome{RoomID: roomID}
	now := m.clock.Now()
	err := m.withRoom(ctx, roomID, func(tx *gorm.DB, room *domain.Room) error {
		start, ok, err := m.slots.WithTx(tx).Repo().WindowStart(ctx, roomID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.Errorf(domain.ErrInvalidState, "room %s has no slot window", room.RoomNumber)
		}
		return m.rollOnce(ctx, tx, room, start, now, &out)
	})
	if err != nil {
		return RollOutcome{}, err
	}
	m.publishRoll(ctx, out, now)
	return out, nil
}

func (m *Manager) rollOnce(ctx context.Context, tx *gorm.DB, room *domain.Room, start string, now time.Time, out *RollOutcome) error {
	completed, err := m.repo.WithTx(tx).CompleteThrough(ctx, room.ID, start, now)
	if err != nil {
		return err
	}
	res, err := m.slots.WithTx(tx).RollForward(ctx, room)
	if err != nil {
		return err
	}
	out.Days++
	out.CompletedBookings += completed
	out.DeletedSlots += res.DeletedSlots
	out.NewSlots += res.NewSlots
	out.WindowStart, _ = slotgrid.AddDays(start, 1)
	metrics.RecordWindowRoll()
	return nil
}

// RollToToday rolls the room's window until day 0 is today. Running it again
// on the same day changes nothing. A window W or more days stale is rebuilt
// from scratch, and a room without slots is initialized.
func (m *Manager) RollToToday(ctx context.Context, roomID int64) (RollOutcome, error) {
	out := RollOutcome{RoomID: roomID}
	now := m.clock.Now()
	today := now.Format(slotgrid.DateLayout)

	err := m.withRoom(ctx, roomID, func(tx *gorm.DB, room *domain.Room) error {
		slots := m.slots.WithTx(tx)
		start, ok, err := slots.Repo().WindowStart(ctx, roomID)
		if err != nil {
			return err
		}
		if !ok {
			n, err := slots.Initialize(ctx, room)
			out.Initialized, out.NewSlots, out.WindowStart = true, n, today
			return err
		}

		gap, err := slotgrid.DaysBetween(start, today)
		if err != nil {
			return err
		}
		out.WindowStart = start
		if gap <= 0 {
			return nil
		}

		if gap >= m.slots.WindowDays() {
			yesterday, _ := slotgrid.AddDays(today, -1)
			completed, err := m.repo.WithTx(tx).CompleteThrough(ctx, roomID, yesterday, now)
			if err != nil {
				return err
			}
			res, err := slots.Rebuild(ctx, room)
			if err != nil {
				return err
			}
			out.Rebuilt = true
			out.Days = gap
			out.CompletedBookings = completed
			out.DeletedSlots = res.DeletedSlots
			out.NewSlots = res.NewSlots
			out.WindowStart = today
			metrics.RecordWindowRoll()
			return nil
		}

		for i := 0; i < gap; i++ {
			day, err := slotgrid.AddDays(start, i)
			if err != nil {
				return err
			}
			if err := m.rollOnce(ctx, tx, room, day, now, &out); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return RollOutcome{}, err
	}
	if out.Days > 0 || out.Initialized {
		log.Printf("window_rolled room_id=%d days=%d rebuilt=%t completed_bookings=%d deleted_slots=%d new_slots=%d",
			roomID, out.Days, out.Rebuilt, out.CompletedBookings, out.DeletedSlots, out.NewSlots)
		m.publishRoll(ctx, out, now)
	}
	return out, nil
}

func (m *Manager) publishRoll(ctx context.Context, out RollOutcome, now time.Time) {
	m.publish(ctx, events.Event{
		Type:       events.WindowRolled,
		RoomID:     out.RoomID,
		Date:       out.WindowStart,
		OccurredAt: now,
	})
}

func (m *Manager) publish(ctx context.Context, e events.Event) {
	if err := m.publisher.Publish(ctx, e); err != nil {
		log.Printf("[WARN] event publish failed type=%s room_id=%d booking_id=%d error=%v", e.Type, e.RoomID, e.BookingID, err)
	}
}

func bookingEvent(t events.Type, b *domain.Booking, now time.Time) events.Event {
	return events.Event{
		Type:       t,
		RoomID:     b.RoomID,
		BookingID:  b.ID,
		UserID:     b.UserID,
		Date:       b.BookingDate,
		StartTime:  b.StartTime,
		EndTime:    b.EndTime,
		Status:     string(b.Status),
		OccurredAt: now,
	}
}
