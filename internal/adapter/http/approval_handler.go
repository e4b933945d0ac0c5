package http

import (
	"net/http"

	"coop-loans/internal/usecase/workflow"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type ApprovalHandler struct {
	router *workflow.Router
	log    *zap.Logger
}

func NewApprovalHandler(r *workflow.Router, log *zap.Logger) *ApprovalHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ApprovalHandler{router: r, log: log}
}

type decisionReq struct {
	ApprovalID string `param:"approval_id" json:"-" validate:"required,hex32"`
	Role       string `json:"role"    validate:"required,max=40"`
	Comment    string `json:"comment" validate:"max=1000"`
}

func (h *ApprovalHandler) GetApproval(c echo.Context) error {
	approvalID := c.Param("approval_id")
	if !reHex32.MatchString(approvalID) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid approval_id path param"})
	}
	dto, err := h.router.Get(c.Request().Context(), approvalID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *ApprovalHandler) Approve(c echo.Context) error {
	actor, req, ok, err := h.decision(c)
	if !ok {
		return err
	}
	dto, err := h.router.Approve(c.Request().Context(), workflow.ApproveInput{
		ApprovalID: req.ApprovalID,
		ActorID:    actor,
		Role:       req.Role,
		Comment:    req.Comment,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *ApprovalHandler) Reject(c echo.Context) error {
	actor, req, ok, err := h.decision(c)
	if !ok {
		return err
	}
	dto, err := h.router.Reject(c.Request().Context(), workflow.RejectInput{
		ApprovalID: req.ApprovalID,
		ActorID:    actor,
		Role:       req.Role,
		Comment:    req.Comment,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// decision binds the path param and body of approve/reject; the actor is the
// caller's X-Member-Id.
func (h *ApprovalHandler) decision(c echo.Context) (string, decisionReq, bool, error) {
	var req decisionReq
	actor, ok := memberID(c)
	if !ok {
		return "", req, false, missingMember(c)
	}
	if ok, err := bindAndValidate(c, &req); !ok {
		return "", req, false, err
	}
	return actor, req, true, nil
}
