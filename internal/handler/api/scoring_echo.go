package api

import (
	"context"
	"errors"
	"time"

	"CreditRisk/internal/domain/models"
	"CreditRisk/internal/service/metrics"
	"CreditRisk/internal/service/ratelimit"
	"CreditRisk/internal/services/features"
	"CreditRisk/internal/services/scoring"
	"CreditRisk/internal/usecase"
	xhttp "CreditRisk/pkg/http"
	xlogger "CreditRisk/pkg/logger"

	"github.com/labstack/echo/v4"
)

// CalibrationInspector is the calibration surface the API exposes.
type CalibrationInspector interface {
	Describe(ctx context.Context, model string) scoring.CalibrationStatus
	Refresh(ctx context.Context)
}

// ModelManager is the model surface the API exposes.
type ModelManager interface {
	ModelName() string
	Reload(ctx context.Context, path string) error
}

// ScoringEchoHandler serves prediction, calibration and model endpoints.
type ScoringEchoHandler struct {
	logger      *xlogger.Logger
	svc         *usecase.ScoringService
	calibration CalibrationInspector
	model       ModelManager
	rl          *ratelimit.Limiter
}

func NewScoringEchoHandler(
	logger *xlogger.Logger,
	svc *usecase.ScoringService,
	calibration CalibrationInspector,
	model ModelManager,
	rl *ratelimit.Limiter,
) *ScoringEchoHandler {
	metrics.Register()
	return &ScoringEchoHandler{logger: logger, svc: svc, calibration: calibration, model: model, rl: rl}
}

func (h *ScoringEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/predict", h.Predict, rateLimited(h.rl, "predict"))
	g.POST("/predict/batch", h.PredictBatch, rateLimited(h.rl, "predict_batch"))
	g.GET("/calibration", h.Calibration)
	g.POST("/calibration/refresh", h.RefreshCalibration)
	g.POST("/model/reload", h.ReloadModel)
}

func (h *ScoringEchoHandler) Predict(c echo.Context) error {
	const endpoint = "predict"
	defer observe(endpoint, time.Now())

	req := &PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.APIErrors.WithLabelValues(endpoint, "validation").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.svc.Score(c.Request().Context(), req.toDomain())
	if err != nil {
		return h.pipelineError(c, endpoint, err)
	}
	return xhttp.SuccessResponse(c, newView(res))
}

func (h *ScoringEchoHandler) PredictBatch(c echo.Context) error {
	const endpoint = "predict_batch"
	defer observe(endpoint, time.Now())

	req := &BatchPredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.APIErrors.WithLabelValues(endpoint, "validation").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}

	reqs := make([]models.ScoreRequest, len(req.Items))
	for i, it := range req.Items {
		reqs[i] = it.toDomain()
	}
	rs, err := h.svc.ScoreBatch(c.Request().Context(), reqs)
	if err != nil {
		return h.pipelineError(c, endpoint, err)
	}
	return xhttp.ListResponse(c, newViews(rs), int64(len(rs)))
}

func (h *ScoringEchoHandler) Calibration(c echo.Context) error {
	q := &CalibrationQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, q); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	model := q.Model
	if model == "" {
		model = h.model.ModelName()
	}
	return xhttp.SuccessResponse(c, h.calibration.Describe(c.Request().Context(), model))
}

func (h *ScoringEchoHandler) RefreshCalibration(c echo.Context) error {
	ctx := c.Request().Context()
	h.calibration.Refresh(ctx)
	h.logger.Info("calibration refreshed")
	return xhttp.SuccessResponse(c, h.calibration.Describe(ctx, h.model.ModelName()))
}

func (h *ScoringEchoHandler) ReloadModel(c echo.Context) error {
	const endpoint = "model_reload"
	req := &ReloadRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.model.Reload(c.Request().Context(), req.Path); err != nil {
		metrics.APIErrors.WithLabelValues(endpoint, "reload").Inc()
		h.logger.Error("model reload failed", xlogger.String("path", req.Path), xlogger.Error(err))
		if errors.Is(err, scoring.ErrNoLoader) {
			return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("model reload is not available"))
		}
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("model reload failed").WithParam("detail", err.Error()))
	}
	return xhttp.SuccessResponse(c, map[string]string{"model": h.model.ModelName()})
}

// pipelineError maps malformed-input errors to 400 and everything else to 500.
func (h *ScoringEchoHandler) pipelineError(c echo.Context, endpoint string, err error) error {
	var missing *features.MissingFeatureError
	if errors.As(err, &missing) {
		metrics.APIErrors.WithLabelValues(endpoint, "missing_feature").Inc()
		return xhttp.AppErrorResponse(c, xhttp.MissingFeatureError(missing.Missing).WithParam("detail", err.Error()))
	}
	var invalid *features.InvalidFeatureError
	if errors.As(err, &invalid) {
		metrics.APIErrors.WithLabelValues(endpoint, "invalid_feature").Inc()
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()).WithParam("feature", invalid.Name))
	}
	metrics.APIErrors.WithLabelValues(endpoint, "internal").Inc()
	h.logger.Error("scoring usecase error", xlogger.String("endpoint", endpoint), xlogger.Error(err))
	return xhttp.InternalServerErrorResponse(c)
}

func observe(endpoint string, start time.Time) {
	metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// rateLimited keys the bucket by client IP and endpoint.
func rateLimited(rl *ratelimit.Limiter, endpoint string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if rl != nil && !rl.Allow(c.RealIP()+":"+endpoint) {
				metrics.RateLimited.WithLabelValues(endpoint).Inc()
				return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limited"))
			}
			return next(c)
		}
	}
}
