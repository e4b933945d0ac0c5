package http

import (
	"errors"
	"net/http"

	domainLoan "coop-loans/internal/domain/loan"
	domainMember "coop-loans/internal/domain/member"
	"coop-loans/internal/domain/settings"
	domainWorkflow "coop-loans/internal/domain/workflow"
	ucLoan "coop-loans/internal/usecase/loan"
	ucMember "coop-loans/internal/usecase/member"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// writeError maps use case errors to HTTP codes.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	var (
		verr *ucLoan.ValidationError
		elig *ucLoan.EligibilityError
		wie  *ucLoan.WorkflowInitiationError
	)
	switch {
	case errors.As(err, &verr):
		details := make([]FieldError, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			details = append(details, FieldError{Field: f.Field, Message: f.Message})
		}
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Details: details})
	case errors.As(err, &elig):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "not eligible", Violations: elig.Violations()})
	case errors.As(err, &wie):
		return c.JSON(http.StatusAccepted, ErrorResponse{Error: "approval routing pending", Reference: wie.Reference})
	case errors.Is(err, domainLoan.ErrNotFound),
		errors.Is(err, domainLoan.ErrTypeNotFound),
		errors.Is(err, domainMember.ErrNotFound),
		errors.Is(err, domainWorkflow.ErrNotFound),
		errors.Is(err, settings.ErrUnknownKey):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, settings.ErrInvalidValue),
		errors.Is(err, ucMember.ErrInvalidContribution),
		errors.Is(err, domainMember.ErrInvalidStatus):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domainWorkflow.ErrWrongRole):
		return c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domainLoan.ErrInvalidTransition),
		errors.Is(err, domainWorkflow.ErrAlreadyFinal):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	}
	log.Error("request failed",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// bindAndValidate reports its own 400/422 response; callers return when ok is false.
func bindAndValidate(c echo.Context, req any) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(req); err != nil {
		return false, c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	return true, nil
}

const HeaderMemberID = "X-Member-Id"

// memberID reads the caller's identity header.
func memberID(c echo.Context) (string, bool) {
	id := c.Request().Header.Get(HeaderMemberID)
	return id, reMemberID.MatchString(id)
}

func missingMember(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing or invalid " + HeaderMemberID})
}
