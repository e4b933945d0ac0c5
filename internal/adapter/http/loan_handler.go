package http

import (
	"errors"
	"net/http"

	"coop-loans/internal/usecase/loan"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type LoanHandler struct {
	uc  *loan.Usecase
	log *zap.Logger
}

func NewLoanHandler(uc *loan.Usecase, log *zap.Logger) *LoanHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoanHandler{uc: uc, log: log}
}

type guarantorReq struct {
	MemberID string `json:"member_id" validate:"required,memberid"`
	Amount   string `json:"amount"    validate:"required,money"`
}

type collateralReq struct {
	Type           string `json:"type"            validate:"required,max=40"`
	EstimatedValue string `json:"estimated_value" validate:"required,money"`
	Description    string `json:"description"     validate:"max=500"`
}

type applyReq struct {
	LoanTypeID uint64          `json:"loan_type_id" validate:"required"`
	Amount     string          `json:"amount"       validate:"required,money"`
	TermMonths int             `json:"term_months"  validate:"required,gte=1,lte=360"`
	Purpose    string          `json:"purpose"      validate:"required,max=500"`
	Guarantors []guarantorReq  `json:"guarantors"   validate:"max=10,dive"`
	Collateral []collateralReq `json:"collateral"   validate:"max=10,dive"`
}

func (r applyReq) input(memberID string) loan.ApplyInput {
	in := loan.ApplyInput{
		MemberID:   memberID,
		LoanTypeID: r.LoanTypeID,
		Amount:     r.Amount,
		TermMonths: r.TermMonths,
		Purpose:    r.Purpose,
	}
	for _, g := range r.Guarantors {
		in.Guarantors = append(in.Guarantors, loan.GuarantorInput{MemberID: g.MemberID, Amount: g.Amount})
	}
	for _, col := range r.Collateral {
		in.Collateral = append(in.Collateral, loan.CollateralInput{Type: col.Type, EstimatedValue: col.EstimatedValue, Description: col.Description})
	}
	return in
}

type repaymentReq struct {
	Amount string `json:"amount" validate:"required,money"`
}

// Apply: 201 on success, 202 when the loan is stored but routing is pending.
func (h *LoanHandler) Apply(c echo.Context) error {
	member, ok := memberID(c)
	if !ok {
		return missingMember(c)
	}
	var req applyReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	dto, err := h.uc.Apply(c.Request().Context(), req.input(member))
	if err != nil {
		var wie *loan.WorkflowInitiationError
		if errors.As(err, &wie) && dto != nil {
			return c.JSON(http.StatusAccepted, dto)
		}
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

// CheckEligibility evaluates without persisting; ineligible is still a 200.
func (h *LoanHandler) CheckEligibility(c echo.Context) error {
	member, ok := memberID(c)
	if !ok {
		return missingMember(c)
	}
	var req applyReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	res, err := h.uc.Check(c.Request().Context(), req.input(member))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *LoanHandler) GetLoan(c echo.Context) error {
	dto, err := h.uc.Get(c.Request().Context(), c.Param("reference"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) ListMemberLoans(c echo.Context) error {
	out, err := h.uc.ListByMember(c.Request().Context(), c.Param("member_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *LoanHandler) ListLoanTypes(c echo.Context) error {
	out, err := h.uc.ListTypes(c.Request().Context())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *LoanHandler) RetryRouting(c echo.Context) error {
	dto, err := h.uc.RetryRouting(c.Request().Context(), c.Param("reference"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) Disburse(c echo.Context) error {
	dto, err := h.uc.Disburse(c.Request().Context(), c.Param("reference"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) Repay(c echo.Context) error {
	var req repaymentReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	dto, err := h.uc.RecordRepayment(c.Request().Context(), loan.RepaymentInput{
		Reference: c.Param("reference"),
		Amount:    req.Amount,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) WriteOff(c echo.Context) error {
	dto, err := h.uc.WriteOff(c.Request().Context(), c.Param("reference"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}
