package http

import (
	"net/http"
	"time"

	"coop-loans/internal/usecase/credit"
	"coop-loans/internal/usecase/member"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type MemberHandler struct {
	summary *member.Usecase
	scorer  *credit.Scorer
	log     *zap.Logger
}

func NewMemberHandler(summary *member.Usecase, scorer *credit.Scorer, log *zap.Logger) *MemberHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &MemberHandler{summary: summary, scorer: scorer, log: log}
}

func (h *MemberHandler) CreditScore(c echo.Context) error {
	score, err := h.scorer.Score(c.Request().Context(), c.Param("member_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, score)
}

func (h *MemberHandler) Summary(c echo.Context) error {
	out, err := h.summary.Summary(c.Request().Context(), c.Param("member_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

type contributionReq struct {
	MemberID      string     `param:"member_id" json:"-" validate:"required,memberid"`
	Amount        string     `json:"amount" validate:"required,money"`
	Type          string     `json:"type" validate:"required,oneof=mandatory voluntary"`
	Status        string     `json:"status" validate:"omitempty,oneof=completed pending"`
	ContributedAt *time.Time `json:"contributed_at"`
}

type contributionResp struct {
	MemberID      string    `json:"member_id"`
	Amount        string    `json:"amount"`
	Type          string    `json:"type"`
	Status        string    `json:"status"`
	ContributedAt time.Time `json:"contributed_at"`
}

func (h *MemberHandler) RecordContribution(c echo.Context) error {
	var req contributionReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	out, err := h.summary.RecordContribution(c.Request().Context(), member.ContributionInput{
		MemberID:      req.MemberID,
		Amount:        req.Amount,
		Type:          req.Type,
		Status:        req.Status,
		ContributedAt: req.ContributedAt,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, contributionResp{
		MemberID:      out.MemberID,
		Amount:        out.Amount.StringFixed(2),
		Type:          string(out.Type),
		Status:        string(out.Status),
		ContributedAt: out.ContributedAt,
	})
}

type statusReq struct {
	MemberID string `param:"member_id" json:"-" validate:"required,memberid"`
	Status   string `json:"status" validate:"required"`
}

func (h *MemberHandler) UpdateStatus(c echo.Context) error {
	var req statusReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	if err := h.summary.UpdateStatus(c.Request().Context(), req.MemberID, req.Status); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"member_id": req.MemberID, "status": req.Status})
}
