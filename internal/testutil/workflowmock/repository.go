package workflowmock

import (
	"context"

	domain "coop-loans/internal/domain/workflow"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
// Unset writes are no-ops; unset reads return context.Canceled.
type Repo struct {
	CreateApprovalFn           func(ctx context.Context, a *domain.Approval) error
	SaveApprovalFn             func(ctx context.Context, a *domain.Approval) error
	GetByApprovalIDFn          func(ctx context.Context, approvalID string) (*domain.Approval, error)
	GetByApprovalIDForUpdateFn func(ctx context.Context, approvalID string) (*domain.Approval, error)
	GetByEntityFn              func(ctx context.Context, entityType, entityID string) (*domain.Approval, error)
	AddActionFn                func(ctx context.Context, a *domain.Action) error
	ListActionsFn              func(ctx context.Context, approvalID string) ([]domain.Action, error)
	ListTemplatesFn            func(ctx context.Context, entityType string) ([]domain.Template, error)
	CreateTemplateFn           func(ctx context.Context, t *domain.Template) error
}

func (m *Repo) CreateApproval(ctx context.Context, a *domain.Approval) error {
	if m.CreateApprovalFn != nil {
		return m.CreateApprovalFn(ctx, a)
	}
	return nil
}

func (m *Repo) SaveApproval(ctx context.Context, a *domain.Approval) error {
	if m.SaveApprovalFn != nil {
		return m.SaveApprovalFn(ctx, a)
	}
	return nil
}

func (m *Repo) GetByApprovalID(ctx context.Context, approvalID string) (*domain.Approval, error) {
	if m.GetByApprovalIDFn != nil {
		return m.GetByApprovalIDFn(ctx, approvalID)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByApprovalIDForUpdate(ctx context.Context, approvalID string) (*domain.Approval, error) {
	if m.GetByApprovalIDForUpdateFn != nil {
		return m.GetByApprovalIDForUpdateFn(ctx, approvalID)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByEntity(ctx context.Context, entityType, entityID string) (*domain.Approval, error) {
	if m.GetByEntityFn != nil {
		return m.GetByEntityFn(ctx, entityType, entityID)
	}
	return nil, context.Canceled
}

func (m *Repo) AddAction(ctx context.Context, a *domain.Action) error {
	if m.AddActionFn != nil {
		return m.AddActionFn(ctx, a)
	}
	return nil
}

func (m *Repo) ListActions(ctx context.Context, approvalID string) ([]domain.Action, error) {
	if m.ListActionsFn != nil {
		return m.ListActionsFn(ctx, approvalID)
	}
	return nil, context.Canceled
}

func (m *Repo) ListTemplates(ctx context.Context, entityType string) ([]domain.Template, error) {
	if m.ListTemplatesFn != nil {
		return m.ListTemplatesFn(ctx, entityType)
	}
	return nil, context.Canceled
}

func (m *Repo) CreateTemplate(ctx context.Context, t *domain.Template) error {
	if m.CreateTemplateFn != nil {
		return m.CreateTemplateFn(ctx, t)
	}
	return nil
}
