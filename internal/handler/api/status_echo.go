// Package api exposes the engine's operational surface: health, open
// positions, account state, outcomes, equity reports, and a manual scan
// trigger. The engine trades on its own; this API observes and feeds it.
package api

import (
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/repository"
	"github.com/bwight-dev/turtle-trader-sub001/internal/usecase"
	xhttp "github.com/bwight-dev/turtle-trader-sub001/pkg/http"
	xlogger "github.com/bwight-dev/turtle-trader-sub001/pkg/logger"
	"github.com/bwight-dev/turtle-trader-sub001/pkg/util"
)

// StatusHandler implements the Echo HTTP handlers.
type StatusHandler struct {
	logger   *xlogger.Logger
	registry *usecase.Registry
	accounts *usecase.AccountManager
	store    repository.StateStore
	metrics  repository.Metrics

	// scanNow runs one scan cycle out of schedule; wired by the app.
	scanNow func() error
}

// NewStatusHandler creates the handler.
func NewStatusHandler(
	logger *xlogger.Logger,
	registry *usecase.Registry,
	accounts *usecase.AccountManager,
	store repository.StateStore,
	metrics repository.Metrics,
	scanNow func() error,
) *StatusHandler {
	return &StatusHandler{
		logger:   logger,
		registry: registry,
		accounts: accounts,
		store:    store,
		metrics:  metrics,
		scanNow:  scanNow,
	}
}

func (h *StatusHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api/v1")
	g.GET("/positions", h.Positions)
	g.GET("/account", h.Account)
	g.GET("/outcomes", h.Outcomes)
	g.POST("/equity", h.ReportEquity)
	g.POST("/equity/reset", h.ResetEquity)
	g.POST("/scan", h.Scan)
}

func (h *StatusHandler) Health(c echo.Context) error {
	if err := h.store.Health(c.Request().Context()); err != nil {
		h.logger.Error("state store unhealthy", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("state store unreachable").WithError(err))
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *StatusHandler) Positions(c echo.Context) error {
	open := h.registry.Open()
	return xhttp.ListResponse(c, open, int64(len(open)))
}

func (h *StatusHandler) Account(c echo.Context) error {
	if !h.accounts.Ready() {
		return xhttp.NotFoundResponse(c, "no equity reported yet")
	}
	return xhttp.SuccessResponse(c, h.accounts.Snapshot())
}

func (h *StatusHandler) Outcomes(c echo.Context) error {
	outcomes, err := h.store.LoadOutcomes(c.Request().Context())
	if err != nil {
		h.logger.Error("load outcomes failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("load outcomes").WithError(err))
	}
	if since, ok := util.ParseTime(c.QueryParam("since")); ok {
		filtered := outcomes[:0]
		for _, o := range outcomes {
			if !o.ClosedAt.Before(since) {
				filtered = append(filtered, o)
			}
		}
		outcomes = filtered
	}
	total := int64(len(outcomes))
	if limit := util.ParseIntDefault(c.QueryParam("limit"), 0); limit > 0 && limit < len(outcomes) {
		outcomes = outcomes[:limit]
	}
	return xhttp.ListResponse(c, outcomes, total)
}

// EquityRequest reports account equity. The value arrives as a string and is
// parsed as an exact decimal.
type EquityRequest struct {
	Equity string `json:"equity" validate:"required"`
}

func (h *StatusHandler) ReportEquity(c echo.Context) error {
	req := &EquityRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	equity, err := decimal.NewFromString(req.Equity)
	if err != nil || !equity.IsPositive() {
		return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{
			Code:    "ERR_DECIMAL",
			Field:   "equity",
			Message: "equity must be a positive decimal string",
		}})
	}

	st, err := h.accounts.ReportEquity(c.Request().Context(), equity)
	if err != nil {
		h.logger.Error("equity report failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("equity report").WithError(err))
	}
	h.metrics.RecordEquity(equity.InexactFloat64(), st.NotionalMultiplier.InexactFloat64())
	h.logger.Info("equity reported",
		xlogger.Decimal("equity", equity),
		xlogger.Decimal("drawdown_pct", st.DrawdownPct),
		xlogger.Decimal("multiplier", st.NotionalMultiplier))
	return xhttp.SuccessResponse(c, st)
}

// ResetEquity re-anchors the high-water mark after a capital withdrawal or
// deposit.
func (h *StatusHandler) ResetEquity(c echo.Context) error {
	req := &EquityRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	equity, err := decimal.NewFromString(req.Equity)
	if err != nil || !equity.IsPositive() {
		return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{
			Code:    "ERR_DECIMAL",
			Field:   "equity",
			Message: "equity must be a positive decimal string",
		}})
	}

	st, err := h.accounts.Reset(c.Request().Context(), equity)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.InternalError("equity reset").WithError(err))
	}
	h.logger.Info("high-water mark reset", xlogger.Decimal("equity", equity))
	return xhttp.SuccessResponse(c, st)
}

// Scan runs one scan cycle immediately.
func (h *StatusHandler) Scan(c echo.Context) error {
	if h.scanNow == nil {
		return xhttp.NotFoundResponse(c, "manual scan not wired")
	}
	if err := h.scanNow(); err != nil {
		h.logger.Warn("manual scan declined", xlogger.Error(err))
		return xhttp.ConflictResponse(c, err.Error())
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "scan complete"})
}
