package api

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"CreditRisk/internal/domain/models"
	"CreditRisk/internal/service/metrics"
	"CreditRisk/internal/services/scoring"
	"CreditRisk/internal/usecase"
	"CreditRisk/pkg/cache"
	xhttp "CreditRisk/pkg/http"
	xlogger "CreditRisk/pkg/logger"
	"CreditRisk/pkg/util"

	"github.com/labstack/echo/v4"
)

// ReportEchoHandler serves history, portfolio reports and tier lookups.
type ReportEchoHandler struct {
	logger   *xlogger.Logger
	reporter *usecase.Reporter
	cache    cache.Service
	cacheTTL time.Duration
	now      func() time.Time
}

func NewReportEchoHandler(logger *xlogger.Logger, reporter *usecase.Reporter) *ReportEchoHandler {
	metrics.Register()
	return &ReportEchoHandler{logger: logger, reporter: reporter, now: time.Now}
}

// SetCache enables report caching for ttl.
func (h *ReportEchoHandler) SetCache(c cache.Service, ttl time.Duration) {
	h.cache = c
	h.cacheTTL = ttl
}

func (h *ReportEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/history", h.History)
	g.GET("/report", h.Report)
	g.GET("/tiers", h.Tier)
}

func (h *ReportEchoHandler) History(c echo.Context) error {
	const endpoint = "history"
	defer observe(endpoint, time.Now())

	q := &HistoryQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, q); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, err := parseBound(q.From, time.Time{})
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("invalid from: %v", err))
	}
	to, err := parseBound(q.To, time.Time{})
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("invalid to: %v", err))
	}

	rs, err := h.reporter.History(c.Request().Context(), models.HistoryFilter{
		CustomerID: q.CustomerID,
		ModelName:  q.Model,
		From:       from,
		To:         to,
		Limit:      q.Limit,
	})
	if err != nil {
		return h.reportError(c, endpoint, err)
	}
	return xhttp.ListResponse(c, newViews(rs), int64(len(rs)))
}

// Report defaults to the last 24 hours.
func (h *ReportEchoHandler) Report(c echo.Context) error {
	const endpoint = "report"
	defer observe(endpoint, time.Now())

	q := &ReportQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, q); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	now := h.now().UTC()
	to, err := parseBound(q.To, now)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("invalid to: %v", err))
	}
	from, err := parseBound(q.From, to.Add(-24*time.Hour))
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("invalid from: %v", err))
	}
	if from.After(to) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("from must not be after to"))
	}

	ctx := c.Request().Context()
	key := cache.Key("report", from.Format(time.RFC3339), to.Format(time.RFC3339))
	if h.cache != nil && h.cacheTTL > 0 {
		var cached models.PortfolioSummary
		if err := h.cache.Get(ctx, key, &cached); err == nil {
			h.logger.Debug("report cache_hit", xlogger.String("key", key))
			return xhttp.SuccessResponse(c, &cached)
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			h.logger.Warn("report cache_get_error", xlogger.Error(err))
		}
	}

	s, err := h.reporter.Summary(ctx, from, to)
	if err != nil {
		return h.reportError(c, endpoint, err)
	}
	if h.cache != nil && h.cacheTTL > 0 {
		if err := h.cache.Set(ctx, key, s, h.cacheTTL); err != nil {
			h.logger.Warn("report cache_set_error", xlogger.Error(err))
		}
	}
	return xhttp.SuccessResponse(c, s)
}

func (h *ReportEchoHandler) Tier(c echo.Context) error {
	q := &TierQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, q); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	p, err := strconv.ParseFloat(q.P, 64)
	if err != nil || !util.IsFinite(p) || p < 0 || p > 1 {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("p must be within [0, 1]"))
	}
	return xhttp.SuccessResponse(c, TierResponse{Probability: p, Tier: scoring.TierFor(p)})
}

func (h *ReportEchoHandler) reportError(c echo.Context, endpoint string, err error) error {
	if errors.Is(err, usecase.ErrNoHistory) {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("prediction history is not enabled"))
	}
	metrics.APIErrors.WithLabelValues(endpoint, "store").Inc()
	h.logger.Error("report usecase error", xlogger.String("endpoint", endpoint), xlogger.Error(err))
	return xhttp.InternalServerErrorResponse(c)
}

// parseBound accepts the formats util.ParseTime does; empty yields def.
func parseBound(s string, def time.Time) (time.Time, error) {
	if s == "" {
		return def, nil
	}
	t, ok := util.ParseTime(s)
	if !ok {
		return time.Time{}, fmt.Errorf("unrecognised time %q", s)
	}
	return t, nil
}
