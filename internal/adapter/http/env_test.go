package http

import (
	"bytes"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"coop-loans/internal/adapter/repository/mysql"
	domainLoan "coop-loans/internal/domain/loan"
	"coop-loans/internal/domain/savings"
	"coop-loans/internal/infrastructure/notify"
	"coop-loans/internal/testutil/testdb"
	"coop-loans/internal/usecase/credit"
	"coop-loans/internal/usecase/eligibility"
	ucLoan "coop-loans/internal/usecase/loan"
	ucMember "coop-loans/internal/usecase/member"
	"coop-loans/internal/usecase/rules"
	"coop-loans/internal/usecase/workflow"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newEchoWithValidator() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func mustJSON(v any) *bytes.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func defaults() rules.Thresholds {
	return rules.Thresholds{
		MinMembershipMonths:     6,
		MinMandatorySavings:     testdb.D("20000"),
		LoanToSavingsMultiplier: testdb.D("3"),
		SystemMaxLoanAmount:     testdb.D("5000000"),
		MaxActiveLoans:          2,
		GuarantorThreshold:      testdb.D("500000"),
		MinGuarantorsRequired:   2,
		AutoApprovalLimit:       testdb.D("50000"),
		PenaltyRate:             testdb.D("2"),
		GracePeriodDays:         7,
	}
}

// api is the full HTTP stack over an in-memory database. Member m1 is
// eligible for up to 300,000; m2 joined two months ago with no savings.
type api struct {
	e  *echo.Echo
	db *gorm.DB
	lt *domainLoan.LoanType
}

func newAPI(t *testing.T, withTemplate bool) *api {
	t.Helper()
	gdb := testdb.Open(t)
	g := mysql.NewGormUoW(gdb)
	repos := g.Repos()
	log := zap.NewNop()
	n := notify.NewLogDispatcher(log)

	provider := rules.NewProvider(mysql.NewSettingsRepository(gdb), defaults(), time.Hour, log)
	ev := eligibility.NewEvaluator(repos.Members, eligibility.Sources{Savings: repos.Savings, Loans: repos.Loans}, provider, log)
	router := workflow.NewRouter(g, provider, n, log)
	scorer := credit.NewScorer(repos.Members, repos.Loans, provider)

	e := newEchoWithValidator()
	Register(e, Handlers{
		Health:    NewHandler(),
		Loans:     NewLoanHandler(ucLoan.NewUsecase(g, repos, ev, router, provider, n, log), log),
		Approvals: NewApprovalHandler(router, log),
		Members:   NewMemberHandler(ucMember.NewUsecase(repos.Members, repos.Savings, repos.Loans, scorer, provider, log), scorer, log),
		Admin:     NewAdminHandler(provider, log),
	}, nil)

	a := &api{e: e, db: gdb, lt: testdb.LoanType(t, gdb, nil)}
	joined := time.Now().AddDate(-2, 0, 0)
	testdb.Member(t, gdb, "m1", joined)
	testdb.Contribution(t, gdb, "m1", "100000", savings.TypeMandatory, joined.AddDate(0, 1, 0))
	testdb.Member(t, gdb, "m2", time.Now().AddDate(0, -2, 0))
	if withTemplate {
		testdb.Template(t, gdb, "standard", "0", "", 10, "loan_officer", "credit_committee")
	}
	return a
}

func (a *api) do(t *testing.T, method, path, member string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *stdhttp.Request
	if body != nil {
		req = httptest.NewRequest(method, path, mustJSON(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if member != "" {
		req.Header.Set(HeaderMemberID, member)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *api) application(amount string) map[string]any {
	return map[string]any{
		"loan_type_id": a.lt.ID,
		"amount":       amount,
		"term_months":  12,
		"purpose":      "school fees",
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("bad json: %v; raw=%s", err, rec.Body.String())
	}
	return out
}
