package library

import (
	"fmt"
	"strings"
)

// Role determines which policy the engine applies to a user.
type Role string

const (
	RoleStudent   Role = "Student"
	RoleFaculty   Role = "Faculty"
	RoleLibrarian Role = "Librarian"
)

// ParseRole accepts a role name in any letter case.
func ParseRole(s string) (Role, error) {
	for _, r := range []Role{RoleStudent, RoleFaculty, RoleLibrarian} {
		if strings.EqualFold(strings.TrimSpace(s), string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// Policy holds the lending limits and capabilities of one role.
// Zero values mean "not applicable": a zero WindowDays never produces a fine
// and a zero OverdueBlockDays never blocks.
type Policy struct {
	MaxLoans         int
	WindowDays       int
	OverdueBlockDays int
	FineRate         int64

	CanBorrow        bool
	CanManageCatalog bool
	CanManageUsers   bool
	CanSettleFines   bool
}

// Policies is the role table used by NewEngine.
var Policies = map[Role]Policy{
	RoleStudent: {
		MaxLoans:   3,
		WindowDays: 15,
		FineRate:   10,
		CanBorrow:  true,
	},
	RoleFaculty: {
		MaxLoans:         5,
		OverdueBlockDays: 60,
		CanBorrow:        true,
	},
	RoleLibrarian: {
		CanManageCatalog: true,
		CanManageUsers:   true,
		CanSettleFines:   true,
	},
}

// chargesFines reports whether overdue loans under p accrue fines.
func (p Policy) chargesFines() bool { return p.FineRate > 0 && p.WindowDays > 0 }

// overdueFee is the fine for a loan that has run for days under p.
func (p Policy) overdueFee(days int) (overdue int, fee int64) {
	if !p.chargesFines() {
		return 0, 0
	}
	overdue = days - p.WindowDays
	if overdue <= 0 {
		return 0, 0
	}
	return overdue, int64(overdue) * p.FineRate
}
