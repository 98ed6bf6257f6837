package domain

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

// ParseRole accepts only the known roles; anything else is an error.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleStudent, RoleFaculty, RoleStaff, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Session is the authenticated actor of a request.
type Session struct {
	UserID int64
	Role   Role
	Token  string
}

func (s Session) IsAdmin() bool { return s.Role == RoleAdmin }

func (s Session) privileged() bool {
	return s.Role == RoleAdmin || s.Role == RoleStaff
}

// CanCancelBooking: the owner or an administrator.
func CanCancelBooking(s Session, b *Booking) bool {
	if b == nil || s.UserID == 0 {
		return false
	}
	return s.IsAdmin() || b.UserID == s.UserID
}

func CanViewBooking(s Session, b *Booking) bool {
	if b == nil || s.UserID == 0 {
		return false
	}
	return s.privileged() || b.UserID == s.UserID
}

func CanApproveBooking(s Session) bool { return s.IsAdmin() }

func CanManageRooms(s Session) bool { return s.privileged() }

func CanRunMaintenance(s Session) bool { return s.IsAdmin() }

func CanBookOnBehalf(s Session) bool { return s.privileged() }

// CanListAllBookings decides whether booking listings may span other users.
func CanListAllBookings(s Session) bool { return s.privileged() }
