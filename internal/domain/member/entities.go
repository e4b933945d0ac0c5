package member

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"coop-loans/internal/domain/enum"
)

var (
	ErrNotFound      = errors.New("member not found")
	ErrInvalidStatus = errors.New("invalid member status")
)

type Status string

const (
	StatusActive    Status = "active"
	StatusProbation Status = "probation"
	StatusSuspended Status = "suspended"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(enum.Normalize(s)); st {
	case StatusActive, StatusProbation, StatusSuspended:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

func (s *Status) Scan(src any) error {
	raw, err := enum.ScanString(src)
	if err != nil || raw == "" {
		*s = ""
		return err
	}
	st, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

func (s Status) Value() (driver.Value, error) { return string(s), nil }

type MembershipType string

const (
	TypeOrdinary  MembershipType = "ordinary"
	TypeAssociate MembershipType = "associate"
	TypeStaff     MembershipType = "staff"
)

// Table: members
type Member struct {
	ID             uint64         `gorm:"primaryKey;column:id"`
	MemberID       string         `gorm:"column:member_id;size:32;uniqueIndex:ux_members_member_id"`
	FullName       string         `gorm:"column:full_name;size:160"`
	MembershipType MembershipType `gorm:"column:membership_type;type:varchar(20);default:'ordinary'"`
	Status         Status         `gorm:"column:status;type:varchar(20);default:'active'"`
	// JoinedAt is written once on create and never updated.
	JoinedAt  time.Time `gorm:"column:joined_at;<-:create"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Member) TableName() string { return "members" }

// MonthsSinceJoining counts whole calendar months between JoinedAt and now.
// A month only counts once its day-of-month has been reached.
func (m Member) MonthsSinceJoining(now time.Time) int {
	return MonthsBetween(m.JoinedAt, now)
}

func MonthsBetween(from, to time.Time) int {
	from, to = from.UTC(), to.UTC()
	if to.Before(from) {
		return 0
	}
	months := (to.Year()-from.Year())*12 + int(to.Month()-from.Month())
	if to.Day() < from.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
