package http

import (
	"net/http"
	"time"

	"coop-loans/internal/usecase/rules"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type AdminHandler struct {
	rules *rules.Provider
	log   *zap.Logger
}

func NewAdminHandler(p *rules.Provider, log *zap.Logger) *AdminHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminHandler{rules: p, log: log}
}

type configResp struct {
	Values   map[string]string `json:"values"`
	Degraded bool              `json:"degraded"`
	Error    string            `json:"error,omitempty"`
	LoadedAt string            `json:"loaded_at"`
}

func toConfigResp(s rules.Snapshot) configResp {
	out := configResp{
		Values:   s.Values(),
		Degraded: s.Degraded,
		LoadedAt: s.LoadedAt.UTC().Format(time.RFC3339),
	}
	if s.Err != nil {
		out.Error = s.Err.Error()
	}
	return out
}

type setConfigReq struct {
	Value string `json:"value" validate:"required,max=64"`
}

func (h *AdminHandler) GetConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, toConfigResp(h.rules.Current(c.Request().Context())))
}

func (h *AdminHandler) SetConfig(c echo.Context) error {
	actor, ok := memberID(c)
	if !ok {
		return missingMember(c)
	}
	var req setConfigReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	snap, err := h.rules.Set(c.Request().Context(), c.Param("key"), req.Value, actor)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toConfigResp(snap))
}

// ReloadConfig forces a refresh; a failed reload still answers with the
// snapshot in force, flagged degraded.
func (h *AdminHandler) ReloadConfig(c echo.Context) error {
	snap, err := h.rules.Reload(c.Request().Context())
	if err != nil {
		h.log.Warn("business config reload failed", zap.Error(err))
	}
	return c.JSON(http.StatusOK, toConfigResp(snap))
}
