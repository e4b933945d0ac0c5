package mysql

import (
	"context"

	workflowDomain "coop-loans/internal/domain/workflow"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WorkflowRepository struct{ db *gorm.DB }

func NewWorkflowRepository(db *gorm.DB) *WorkflowRepository { return &WorkflowRepository{db: db} }

func (r *WorkflowRepository) CreateApproval(ctx context.Context, a *workflowDomain.Approval) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *WorkflowRepository) SaveApproval(ctx context.Context, a *workflowDomain.Approval) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *WorkflowRepository) GetByApprovalID(ctx context.Context, approvalID string) (*workflowDomain.Approval, error) {
	var out workflowDomain.Approval
	if err := r.db.WithContext(ctx).Where("approval_id = ?", approvalID).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *WorkflowRepository) GetByApprovalIDForUpdate(ctx context.Context, approvalID string) (*workflowDomain.Approval, error) {
	var out workflowDomain.Approval
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("approval_id = ?", approvalID).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *WorkflowRepository) GetByEntity(ctx context.Context, entityType, entityID string) (*workflowDomain.Approval, error) {
	var out workflowDomain.Approval
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *WorkflowRepository) AddAction(ctx context.Context, a *workflowDomain.Action) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *WorkflowRepository) ListActions(ctx context.Context, approvalID string) ([]workflowDomain.Action, error) {
	var out []workflowDomain.Action
	err := r.db.WithContext(ctx).
		Where("approval_id = ?", approvalID).
		Order("level ASC, id ASC").
		Find(&out).Error
	return out, err
}

func (r *WorkflowRepository) ListTemplates(ctx context.Context, entityType string) ([]workflowDomain.Template, error) {
	var out []workflowDomain.Template
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND active = ?", entityType, true).
		Order("priority ASC, id ASC").
		Find(&out).Error
	return out, err
}

func (r *WorkflowRepository) CreateTemplate(ctx context.Context, t *workflowDomain.Template) error {
	return r.db.WithContext(ctx).Create(t).Error
}
