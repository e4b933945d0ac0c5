package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	workflowDomain "coop-loans/internal/domain/workflow"
	"coop-loans/pkg/id"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func makeApproval(entityID string) *workflowDomain.Approval {
	return &workflowDomain.Approval{
		ApprovalID:   id.NewID32(),
		EntityType:   workflowDomain.EntityLoan,
		EntityID:     entityID,
		CurrentLevel: 1,
		TotalLevels:  2,
		Levels:       "loan_officer,committee",
		Status:       workflowDomain.StatusPending,
	}
}

func TestWorkflow_ApprovalCreateAndGet(t *testing.T) {
	db := openTestDB(t)
	repo := NewWorkflowRepository(db)
	ctx := context.Background()

	a := makeApproval("LN-20261018-00000001")
	if err := repo.CreateApproval(ctx, a); err != nil {
		t.Fatalf("CreateApproval: %v", err)
	}

	byID, err := repo.GetByApprovalID(ctx, a.ApprovalID)
	if err != nil || byID.EntityID != a.EntityID {
		t.Fatalf("GetByApprovalID: %+v, %v", byID, err)
	}
	byEntity, err := repo.GetByEntity(ctx, workflowDomain.EntityLoan, a.EntityID)
	if err != nil || byEntity.ApprovalID != a.ApprovalID {
		t.Fatalf("GetByEntity: %+v, %v", byEntity, err)
	}

	locked, err := repo.GetByApprovalIDForUpdate(ctx, a.ApprovalID)
	if err != nil {
		t.Fatalf("GetByApprovalIDForUpdate: %v", err)
	}
	locked.CurrentLevel = 2
	if err := repo.SaveApproval(ctx, locked); err != nil {
		t.Fatalf("SaveApproval: %v", err)
	}
	again, _ := repo.GetByApprovalID(ctx, a.ApprovalID)
	if again.CurrentLevel != 2 {
		t.Fatalf("current level = %d, want 2", again.CurrentLevel)
	}
}

func TestWorkflow_OneApprovalPerEntity(t *testing.T) {
	db := openTestDB(t)
	repo := NewWorkflowRepository(db)
	ctx := context.Background()

	if err := repo.CreateApproval(ctx, makeApproval("LN-X")); err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateApproval(ctx, makeApproval("LN-X")); err == nil {
		t.Fatal("expected unique violation for second approval on the same entity")
	}
}

func TestWorkflow_NotFound(t *testing.T) {
	db := openTestDB(t)
	repo := NewWorkflowRepository(db)

	if _, err := repo.GetByApprovalID(context.Background(), "NOPE"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	if _, err := repo.GetByEntity(context.Background(), "loan", "NOPE"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestWorkflow_ActionsOrdered(t *testing.T) {
	db := openTestDB(t)
	repo := NewWorkflowRepository(db)
	ctx := context.Background()

	apr := id.NewID32()
	now := time.Now().UTC()
	for _, lvl := range []int{2, 1} {
		if err := repo.AddAction(ctx, &workflowDomain.Action{
			ApprovalID: apr, Level: lvl, Role: "r", ActorID: "actor", Decision: workflowDomain.DecisionApprove, ActedAt: now,
		}); err != nil {
			t.Fatalf("AddAction: %v", err)
		}
	}
	acts, err := repo.ListActions(ctx, apr)
	if err != nil {
		t.Fatalf("ListActions: %v", err)
	}
	if len(acts) != 2 || acts[0].Level != 1 || acts[1].Level != 2 {
		t.Fatalf("unexpected actions: %+v", acts)
	}
}

func TestWorkflow_TemplatesByPriority(t *testing.T) {
	db := openTestDB(t)
	repo := NewWorkflowRepository(db)
	ctx := context.Background()

	tpls := []workflowDomain.Template{
		{Name: "large", EntityType: "loan", MinAmount: decimal.NewFromInt(500_001), Levels: "officer,committee,board", Priority: 30, Active: true},
		{Name: "small", EntityType: "loan", MinAmount: decimal.Zero, MaxAmount: decimal.NewNullDecimal(decimal.NewFromInt(100_000)), Levels: "officer", Priority: 10, Active: true},
		{Name: "retired", EntityType: "loan", MinAmount: decimal.Zero, Levels: "officer", Priority: 1, Active: true},
		{Name: "withdrawal", EntityType: "withdrawal", MinAmount: decimal.Zero, Levels: "officer", Priority: 1, Active: true},
	}
	for i := range tpls {
		if err := repo.CreateTemplate(ctx, &tpls[i]); err != nil {
			t.Fatalf("CreateTemplate: %v", err)
		}
	}
	// gorm skips zero-value bools on create when a default is set, so retire explicitly
	if err := db.Model(&workflowDomain.Template{}).Where("name = ?", "retired").Update("active", false).Error; err != nil {
		t.Fatal(err)
	}

	got, err := repo.ListTemplates(ctx, "loan")
	if err != nil {
		t.Fatalf("ListTemplates: %v", err)
	}
	if len(got) != 2 || got[0].Name != "small" || got[1].Name != "large" {
		t.Fatalf("unexpected templates: %+v", got)
	}
	if !got[0].MaxAmount.Valid || got[1].MaxAmount.Valid {
		t.Fatalf("max amount nullability lost: %+v / %+v", got[0].MaxAmount, got[1].MaxAmount)
	}
}
