package api

import (
	"errors"
	"net/http"

	models "OptionLens/internal/domain/models"
	dsvc "OptionLens/internal/domain/service"
	"OptionLens/internal/quant/density"
	"OptionLens/internal/quant/vol"
	"OptionLens/internal/usecase"
	xhttp "OptionLens/pkg/http"
	xlogger "OptionLens/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AnalysisEchoHandler exposes the analysis pipeline over HTTP.
type AnalysisEchoHandler struct {
	logger   *xlogger.Logger
	analyzer *usecase.Analyzer
	rates    dsvc.RateSource
}

func NewAnalysisEchoHandler(logger *xlogger.Logger, analyzer *usecase.Analyzer, rates dsvc.RateSource) *AnalysisEchoHandler {
	return &AnalysisEchoHandler{logger: logger, analyzer: analyzer, rates: rates}
}

func (h *AnalysisEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/analyze", h.Analyze)
	g.GET("/analyze", h.Analyze)
	g.GET("/probability", h.Probability)
	g.GET("/range", h.Range)
	g.GET("/patterns", h.Patterns)
	g.GET("/rate", h.Rate)
	g.GET("/tickers", h.Tickers)
	g.GET("/health", h.Health)
}

func (h *AnalysisEchoHandler) Analyze(c echo.Context) error {
	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	snap, err := h.analyzer.Analyze(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("analyze usecase error",
			xlogger.String("ticker", req.Ticker), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, snap)
}

func (h *AnalysisEchoHandler) Probability(c echo.Context) error {
	req := &models.ProbabilityRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	prob, snap, err := h.analyzer.Probability(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("probability usecase error",
			xlogger.String("ticker", req.Ticker), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"ticker":      snap.Ticker,
		"expiration":  snap.Expiration,
		"level":       req.Level,
		"side":        req.Side,
		"probability": prob,
	})
}

func (h *AnalysisEchoHandler) Range(c echo.Context) error {
	req := &models.ProbabilityRangeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	prob, snap, err := h.analyzer.ProbabilityRange(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("range usecase error",
			xlogger.String("ticker", req.Ticker), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"ticker":      snap.Ticker,
		"expiration":  snap.Expiration,
		"lower":       req.Lower,
		"upper":       req.Upper,
		"probability": prob,
	})
}

func (h *AnalysisEchoHandler) Patterns(c echo.Context) error {
	req := &models.PatternsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	matches, snap, err := h.analyzer.Patterns(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("patterns usecase error",
			xlogger.String("ticker", req.Ticker), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"ticker":     snap.Ticker,
		"expiration": snap.Expiration,
		"matches":    matches,
	})
}

func (h *AnalysisEchoHandler) Rate(c echo.Context) error {
	req := &models.RateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rate, err := h.rates.Rate(c.Request().Context(), req.DaysToExpiry)
	if err != nil {
		h.logger.Error("rate lookup error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"days_to_maturity": req.DaysToExpiry,
		"rate":             rate,
	})
}

func (h *AnalysisEchoHandler) Tickers(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"tickers": h.analyzer.Tickers(),
	})
}

func (h *AnalysisEchoHandler) Health(c echo.Context) error {
	if err := h.analyzer.Health(c.Request().Context()); err != nil {
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"error":  err.Error(),
		})
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

// toAppError maps pipeline failures onto HTTP statuses. Data quality
// problems are the client's market, not a server fault, so they report
// as 422 with the reason spelled out.
func toAppError(err error) error {
	var insufficient *density.InsufficientDataError
	if errors.As(err, &insufficient) {
		return xhttp.NewAppError("ERR_INSUFFICIENT_DATA", "", insufficient.Error(), http.StatusUnprocessableEntity).WithError(err)
	}
	var degenerate *density.DegenerateDensityError
	if errors.As(err, &degenerate) {
		return xhttp.NewAppError("ERR_DEGENERATE_DENSITY", "", degenerate.Error(), http.StatusUnprocessableEntity).WithError(err)
	}
	var calib *vol.CalibrationError
	if errors.As(err, &calib) {
		return xhttp.NewAppError("ERR_CALIBRATION", "", calib.Error(), http.StatusUnprocessableEntity).WithError(err)
	}
	return err
}
