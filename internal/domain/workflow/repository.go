package workflow

import "context"

type Repository interface {
	// Create a new approval (DB uniqueness ensures at most one per entity)
	CreateApproval(ctx context.Context, a *Approval) error
	SaveApproval(ctx context.Context, a *Approval) error

	GetByApprovalID(ctx context.Context, approvalID string) (*Approval, error)
	// Locks the approval row until the surrounding transaction ends.
	GetByApprovalIDForUpdate(ctx context.Context, approvalID string) (*Approval, error)
	GetByEntity(ctx context.Context, entityType, entityID string) (*Approval, error)

	AddAction(ctx context.Context, a *Action) error
	ListActions(ctx context.Context, approvalID string) ([]Action, error)

	// Active templates for an entity type, lowest priority value first.
	ListTemplates(ctx context.Context, entityType string) ([]Template, error)
	CreateTemplate(ctx context.Context, t *Template) error
}
