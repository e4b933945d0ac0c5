package workflow

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"coop-loans/internal/domain/enum"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound     = errors.New("approval not found")
	ErrAlreadyFinal = errors.New("approval already finalised")
	ErrWrongRole    = errors.New("approver role does not match current level")
)

const EntityLoan = "loan"

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(enum.Normalize(s)); st {
	case StatusPending, StatusApproved, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("invalid approval status: %q", s)
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

func (s Status) IsFinal() bool { return s == StatusApproved || s == StatusRejected }

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Table: workflow_templates
type Template struct {
	ID         uint64              `gorm:"primaryKey;column:id"`
	Name       string              `gorm:"column:name;size:80;not null"`
	EntityType string              `gorm:"column:entity_type;size:20;not null;index"`
	MinAmount  decimal.Decimal     `gorm:"column:min_amount;type:decimal(18,2);not null"`
	MaxAmount  decimal.NullDecimal `gorm:"column:max_amount;type:decimal(18,2)"`
	// Empty matches every risk class.
	RiskClass string `gorm:"column:risk_class;size:20"`
	// Ordered approver roles, comma separated: "loan_officer,committee".
	Levels   string `gorm:"column:levels;size:255;not null"`
	Priority int    `gorm:"column:priority;not null;default:100"`
	Active   bool   `gorm:"column:active;default:true"`
}

func (Template) TableName() string { return "workflow_templates" }

func (t Template) Roles() []string { return splitRoles(t.Levels) }

// Matches applies the amount band (inclusive) and risk class filter.
func (t Template) Matches(amount decimal.Decimal, riskClass string) bool {
	if !t.Active || len(t.Roles()) == 0 {
		return false
	}
	if amount.LessThan(t.MinAmount) {
		return false
	}
	if t.MaxAmount.Valid && amount.GreaterThan(t.MaxAmount.Decimal) {
		return false
	}
	return t.RiskClass == "" || enum.Normalize(t.RiskClass) == enum.Normalize(riskClass)
}

// Table: workflow_approvals
type Approval struct {
	ID           uint64     `gorm:"primaryKey;column:id"`
	ApprovalID   string     `gorm:"column:approval_id;type:char(32);not null;uniqueIndex:ux_workflow_approvals_approval_id"`
	EntityType   string     `gorm:"column:entity_type;size:20;not null;uniqueIndex:ux_workflow_approvals_entity"`
	EntityID     string     `gorm:"column:entity_id;size:32;not null;uniqueIndex:ux_workflow_approvals_entity"`
	TemplateID   *uint64    `gorm:"column:template_id"`
	CurrentLevel int        `gorm:"column:current_level;not null"`
	TotalLevels  int        `gorm:"column:total_levels;not null"`
	Levels       string     `gorm:"column:levels;size:255"`
	Status       Status     `gorm:"column:status;type:varchar(20);not null;default:'pending'"`
	CompletedAt  *time.Time `gorm:"column:completed_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Approval) TableName() string { return "workflow_approvals" }

func (a Approval) Roles() []string { return splitRoles(a.Levels) }

// CurrentRole is empty once the approval is final or has no levels.
func (a Approval) CurrentRole() string {
	roles := a.Roles()
	if a.Status.IsFinal() || a.CurrentLevel < 1 || a.CurrentLevel > len(roles) {
		return ""
	}
	return roles[a.CurrentLevel-1]
}

// Table: workflow_actions (audit trail, one row per decision)
type Action struct {
	ID         uint64    `gorm:"primaryKey;column:id"`
	ApprovalID string    `gorm:"column:approval_id;type:char(32);not null;index"`
	Level      int       `gorm:"column:level;not null"`
	Role       string    `gorm:"column:role;size:40"`
	ActorID    string    `gorm:"column:actor_id;size:32;not null"`
	Decision   Decision  `gorm:"column:decision;size:20;not null"`
	Comment    string    `gorm:"column:comment;type:text"`
	ActedAt    time.Time `gorm:"column:acted_at;not null"`
}

func (Action) TableName() string { return "workflow_actions" }

func JoinRoles(roles []string) string { return strings.Join(roles, ",") }

func splitRoles(levels string) []string {
	if strings.TrimSpace(levels) == "" {
		return nil
	}
	parts := strings.Split(levels, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, enum.Normalize(p))
		}
	}
	return out
}
