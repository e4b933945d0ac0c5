package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"coop-loans/internal/adapter/repository/mysql"
	domainLoan "coop-loans/internal/domain/loan"
	"coop-loans/internal/domain/uow"
	domain "coop-loans/internal/domain/workflow"
	"coop-loans/internal/infrastructure/notify"
	"coop-loans/internal/testutil/loanmock"
	"coop-loans/internal/testutil/testdb"
	"coop-loans/internal/testutil/uowmock"
	"coop-loans/internal/testutil/workflowmock"
	"coop-loans/internal/usecase/rules"
	"coop-loans/pkg/id"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixedRules struct{ th rules.Thresholds }

func (f fixedRules) Current(context.Context) rules.Snapshot { return rules.Snapshot{Thresholds: f.th} }

func thresholds() rules.Thresholds {
	return rules.Thresholds{AutoApprovalLimit: decimal.NewFromInt(50000)}
}

type recorder struct {
	mu  sync.Mutex
	got []notify.Event
}

func (r *recorder) Dispatch(_ context.Context, ev notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, ev)
	return nil
}

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.got))
	for _, ev := range r.got {
		out = append(out, ev.Kind)
	}
	return out
}

func TestRoute(t *testing.T) {
	tpls := []domain.Template{
		{ID: 1, Name: "high risk", MinAmount: decimal.Zero, RiskClass: "high", Levels: "officer,committee,board", Active: true},
		{ID: 2, Name: "standard", MinAmount: decimal.Zero, MaxAmount: decimal.NewNullDecimal(decimal.NewFromInt(500000)), Levels: "officer,committee", Active: true},
		{ID: 3, Name: "large", MinAmount: decimal.RequireFromString("500000.01"), Levels: "officer,committee,board", Active: true},
	}
	th := thresholds()

	p, err := Route(tpls, decimal.NewFromInt(50000), "standard", th)
	require.NoError(t, err)
	assert.True(t, p.AutoApprove, "auto-approval limit is inclusive")

	p, err = Route(tpls, decimal.RequireFromString("50000.01"), "standard", th)
	require.NoError(t, err)
	assert.False(t, p.AutoApprove)
	assert.Equal(t, uint64(2), p.Template.ID)

	p, err = Route(tpls, decimal.NewFromInt(200000), "HIGH", th)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), p.Template.ID, "first match by priority wins")

	p, err = Route(tpls, decimal.NewFromInt(900000), "standard", th)
	require.NoError(t, err)
	assert.Equal(t, []string{"officer", "committee", "board"}, p.Roles)

	_, err = Route(tpls[:2], decimal.NewFromInt(900000), "standard", th)
	assert.ErrorIs(t, err, ErrNoTemplate)
}

type env struct {
	db     *gorm.DB
	uow    *mysql.GormUoW
	router *Router
	notes  *recorder
	lt     *domainLoan.LoanType
}

func newEnv(t *testing.T) *env {
	gdb := testdb.Open(t)
	u := mysql.NewGormUoW(gdb)
	rec := &recorder{}
	e := &env{db: gdb, uow: u, notes: rec, lt: testdb.LoanType(t, gdb, nil)}
	e.router = NewRouter(u, fixedRules{th: thresholds()}, rec, nil)
	testdb.Template(t, gdb, "standard", "0", "500000", 10, "loan_officer", "credit_committee")
	return e
}

func (e *env) pendingLoan(t *testing.T, principal string) *domainLoan.Loan {
	t.Helper()
	l := &domainLoan.Loan{
		Reference:    id.NewReference("LN", time.Now()),
		MemberID:     "m1",
		LoanTypeID:   e.lt.ID,
		Principal:    testdb.D(principal),
		InterestRate: testdb.D("12"),
		TermMonths:   12,
		TotalPayable: domainLoan.TotalPayable(testdb.D(principal), testdb.D("12"), 12),
		AmountPaid:   decimal.Zero,
		Status:       domainLoan.StatusPending,
	}
	require.NoError(t, e.uow.Repos().Loans.Create(context.Background(), l))
	return l
}

func (e *env) start(t *testing.T, l *domainLoan.Loan) *ApprovalDTO {
	t.Helper()
	var dto *ApprovalDTO
	err := e.uow.WithinTx(context.Background(), func(r uow.Repos) error {
		var err error
		dto, err = e.router.Start(context.Background(), r, l, e.lt)
		return err
	})
	require.NoError(t, err)
	return dto
}

func (e *env) loanStatus(t *testing.T, ref string) domainLoan.Status {
	t.Helper()
	l, err := e.uow.Repos().Loans.GetByReference(context.Background(), ref)
	require.NoError(t, err)
	return l.Status
}

func TestTwoLevelApproval(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	l := e.pendingLoan(t, "200000")

	a := e.start(t, l)
	assert.Equal(t, "pending", a.Status)
	assert.Equal(t, 1, a.CurrentLevel)
	assert.Equal(t, 2, a.TotalLevels)
	assert.Equal(t, "loan_officer", a.CurrentRole)

	a, err := e.router.Approve(ctx, ApproveInput{ApprovalID: a.ApprovalID, ActorID: "officer-1", Role: "loan_officer"})
	require.NoError(t, err)
	assert.Equal(t, "pending", a.Status)
	assert.Equal(t, 2, a.CurrentLevel)
	assert.Equal(t, domainLoan.StatusPending, e.loanStatus(t, l.Reference))

	a, err = e.router.Approve(ctx, ApproveInput{ApprovalID: a.ApprovalID, ActorID: "cmte-1", Role: "Credit Committee", Comment: "ok"})
	require.NoError(t, err)
	assert.Equal(t, "approved", a.Status)
	assert.Equal(t, 2, a.CurrentLevel, "level never moves back")
	assert.NotNil(t, a.CompletedAt)
	assert.Len(t, a.Actions, 2)
	assert.Equal(t, domainLoan.StatusApproved, e.loanStatus(t, l.Reference))

	assert.Equal(t, []string{notify.KindApprovalRequired, notify.KindLoanApproved}, e.notes.kinds())

	_, err = e.router.Approve(ctx, ApproveInput{ApprovalID: a.ApprovalID, ActorID: "x", Role: "credit_committee"})
	assert.ErrorIs(t, err, domain.ErrAlreadyFinal)
}

func TestAutoApproval(t *testing.T) {
	e := newEnv(t)
	l := e.pendingLoan(t, "50000")

	a := e.start(t, l)
	assert.Equal(t, "approved", a.Status)
	assert.True(t, a.AutoApproved)
	assert.Equal(t, 0, a.TotalLevels)
	assert.Empty(t, a.Levels)
	assert.Equal(t, domainLoan.StatusApproved, e.loanStatus(t, l.Reference))

	got, err := e.router.Get(context.Background(), a.ApprovalID)
	require.NoError(t, err)
	require.Len(t, got.Actions, 1)
	assert.Equal(t, systemActor, got.Actions[0].ActorID)
}

func TestStart_NoTemplate(t *testing.T) {
	e := newEnv(t)
	l := e.pendingLoan(t, "900000")

	err := e.uow.WithinTx(context.Background(), func(r uow.Repos) error {
		_, err := e.router.Start(context.Background(), r, l, e.lt)
		return err
	})
	assert.ErrorIs(t, err, ErrNoTemplate)
}

func TestReject(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	l := e.pendingLoan(t, "200000")
	a := e.start(t, l)

	a, err := e.router.Reject(ctx, RejectInput{ApprovalID: a.ApprovalID, ActorID: "officer-1", Role: "loan_officer", Comment: "insufficient documents"})
	require.NoError(t, err)
	assert.Equal(t, "rejected", a.Status)
	assert.Equal(t, domainLoan.StatusRejected, e.loanStatus(t, l.Reference))

	_, err = e.router.Reject(ctx, RejectInput{ApprovalID: a.ApprovalID, ActorID: "officer-1", Role: "loan_officer"})
	assert.ErrorIs(t, err, domain.ErrAlreadyFinal)
	assert.Contains(t, e.notes.kinds(), notify.KindLoanRejected)
}

func TestApprove_WrongRoleLeavesStateUntouched(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.start(t, e.pendingLoan(t, "200000"))

	_, err := e.router.Approve(ctx, ApproveInput{ApprovalID: a.ApprovalID, ActorID: "cmte-1", Role: "credit_committee"})
	assert.ErrorIs(t, err, domain.ErrWrongRole)

	got, err := e.router.Get(ctx, a.ApprovalID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentLevel)
	assert.Empty(t, got.Actions)
}

func TestGet_NotFound(t *testing.T) {
	e := newEnv(t)
	_, err := e.router.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = e.router.Approve(context.Background(), ApproveInput{ApprovalID: "missing", Role: "loan_officer"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApprove_LoanWriteFailureRollsBack(t *testing.T) {
	wantErr := errors.New("disk full")
	a := &domain.Approval{ApprovalID: "A1", EntityID: "LN-1", CurrentLevel: 1, TotalLevels: 1, Levels: "officer", Status: domain.StatusPending}
	saved := false
	wf := &workflowmock.Repo{
		GetByApprovalIDForUpdateFn: func(context.Context, string) (*domain.Approval, error) { return a, nil },
		SaveApprovalFn: func(context.Context, *domain.Approval) error {
			saved = true
			return nil
		},
	}
	loans := &loanmock.Repo{
		GetByReferenceForUpdateFn: func(_ context.Context, ref string) (*domainLoan.Loan, error) {
			return &domainLoan.Loan{Reference: ref, Status: domainLoan.StatusPending}, nil
		},
		SaveFn: func(context.Context, *domainLoan.Loan) error { return wantErr },
	}
	tx := &uowmock.UoW{WithinTxFn: func(_ context.Context, fn func(uow.Repos) error) error {
		return fn(uow.Repos{Workflows: wf, Loans: loans})
	}}
	rec := &recorder{}
	r := NewRouter(tx, fixedRules{th: thresholds()}, rec, nil)

	_, err := r.Approve(context.Background(), ApproveInput{ApprovalID: "A1", ActorID: "o", Role: "officer"})
	assert.ErrorIs(t, err, wantErr)
	assert.True(t, saved)
	assert.Empty(t, rec.kinds(), "no notification for a failed decision")
}
