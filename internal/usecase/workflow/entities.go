package workflow

import (
	"time"

	domain "coop-loans/internal/domain/workflow"
)

type ApproveInput struct {
	ApprovalID string `json:"-"`
	ActorID    string `json:"actor_id"`
	Role       string `json:"role"`
	Comment    string `json:"comment"`
}

type RejectInput struct {
	ApprovalID string `json:"-"`
	ActorID    string `json:"actor_id"`
	Role       string `json:"role"`
	Comment    string `json:"comment"`
}

type ActionDTO struct {
	Level    int       `json:"level"`
	Role     string    `json:"role"`
	ActorID  string    `json:"actor_id"`
	Decision string    `json:"decision"`
	Comment  string    `json:"comment,omitempty"`
	ActedAt  time.Time `json:"acted_at"`
}

type ApprovalDTO struct {
	ApprovalID   string      `json:"approval_id"`
	EntityType   string      `json:"entity_type"`
	EntityID     string      `json:"entity_id"`
	Status       string      `json:"status"`
	CurrentLevel int         `json:"current_level"`
	TotalLevels  int         `json:"total_levels"`
	Levels       []string    `json:"levels"`
	CurrentRole  string      `json:"current_role,omitempty"`
	AutoApproved bool        `json:"auto_approved"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	Actions      []ActionDTO `json:"actions,omitempty"`
}

func toDTO(a *domain.Approval, actions []domain.Action) *ApprovalDTO {
	levels := a.Roles()
	if levels == nil {
		levels = []string{}
	}
	dto := &ApprovalDTO{
		ApprovalID:   a.ApprovalID,
		EntityType:   a.EntityType,
		EntityID:     a.EntityID,
		Status:       string(a.Status),
		CurrentLevel: a.CurrentLevel,
		TotalLevels:  a.TotalLevels,
		Levels:       levels,
		CurrentRole:  a.CurrentRole(),
		AutoApproved: a.TotalLevels == 0 && a.Status == domain.StatusApproved,
		CompletedAt:  a.CompletedAt,
		CreatedAt:    a.CreatedAt,
	}
	for _, act := range actions {
		dto.Actions = append(dto.Actions, ActionDTO{
			Level:    act.Level,
			Role:     act.Role,
			ActorID:  act.ActorID,
			Decision: string(act.Decision),
			Comment:  act.Comment,
			ActedAt:  act.ActedAt,
		})
	}
	return dto
}
