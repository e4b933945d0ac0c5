package savings

import (
	"database/sql/driver"
	"fmt"
	"time"

	"coop-loans/internal/domain/enum"

	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeMandatory Type = "mandatory"
	TypeVoluntary Type = "voluntary"
)

func ParseType(s string) (Type, error) {
	switch t := Type(enum.Normalize(s)); t {
	case TypeMandatory, TypeVoluntary:
		return t, nil
	}
	return "", fmt.Errorf("invalid contribution type: %q", s)
}

func (t *Type) Scan(src any) error {
	raw, err := enum.ScanString(src)
	if err != nil || raw == "" {
		*t = ""
		return err
	}
	v, err := ParseType(raw)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (t Type) Value() (driver.Value, error) { return string(t), nil }

type Status string

const (
	StatusCompleted Status = "completed"
	StatusPending   Status = "pending"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(enum.Normalize(s)); st {
	case StatusCompleted, StatusPending:
		return st, nil
	}
	return "", fmt.Errorf("invalid contribution status: %q", s)
}

func (s *Status) Scan(src any) error {
	raw, err := enum.ScanString(src)
	if err != nil || raw == "" {
		*s = ""
		return err
	}
	v, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s Status) Value() (driver.Value, error) { return string(s), nil }

// Table: contributions. Rows are append-only; balances are always derived.
type Contribution struct {
	ID            uint64          `gorm:"primaryKey;column:id"`
	MemberID      string          `gorm:"column:member_id;size:32;index:idx_contributions_member"`
	Amount        decimal.Decimal `gorm:"column:amount;type:decimal(18,2);not null"`
	Type          Type            `gorm:"column:type;type:varchar(20);not null"`
	Status        Status          `gorm:"column:status;type:varchar(20);not null"`
	ContributedAt time.Time       `gorm:"column:contributed_at;not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (Contribution) TableName() string { return "contributions" }

// Totals are sums over completed contributions.
type Totals struct {
	Total     decimal.Decimal
	Mandatory decimal.Decimal
	Voluntary decimal.Decimal
}
