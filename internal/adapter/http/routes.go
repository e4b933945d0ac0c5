package http

import (
	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Health    *Handler
	Loans     *LoanHandler
	Approvals *ApprovalHandler
	Members   *MemberHandler
	Admin     *AdminHandler
}

// Register mounts every route. idemp guards the mutating loan and approval
// endpoints; pass nil to disable it.
func Register(e *echo.Echo, h Handlers, idemp echo.MiddlewareFunc) {
	guarded := []echo.MiddlewareFunc{}
	if idemp != nil {
		guarded = append(guarded, idemp)
	}

	e.GET("/health", h.Health.Health)

	e.POST("/eligibility", h.Loans.CheckEligibility)
	e.GET("/loan-types", h.Loans.ListLoanTypes)

	loans := e.Group("/loans")
	loans.POST("", h.Loans.Apply, guarded...)
	loans.GET("/:reference", h.Loans.GetLoan)
	loans.POST("/:reference/routing", h.Loans.RetryRouting, guarded...)
	loans.POST("/:reference/disburse", h.Loans.Disburse, guarded...)
	loans.POST("/:reference/repayments", h.Loans.Repay, guarded...)
	loans.POST("/:reference/write-off", h.Loans.WriteOff, guarded...)

	approvals := e.Group("/approvals")
	approvals.GET("/:approval_id", h.Approvals.GetApproval)
	approvals.POST("/:approval_id/approve", h.Approvals.Approve, guarded...)
	approvals.POST("/:approval_id/reject", h.Approvals.Reject, guarded...)

	members := e.Group("/members")
	members.GET("/:member_id/loans", h.Loans.ListMemberLoans)
	members.GET("/:member_id/credit-score", h.Members.CreditScore)
	members.GET("/:member_id/summary", h.Members.Summary)
	members.POST("/:member_id/contributions", h.Members.RecordContribution, guarded...)

	admin := e.Group("/admin")
	admin.GET("/business-config", h.Admin.GetConfig)
	admin.PUT("/business-config/:key", h.Admin.SetConfig)
	admin.POST("/business-config/reload", h.Admin.ReloadConfig)
	admin.PUT("/members/:member_id/status", h.Members.UpdateStatus)
}
