package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"CryptoVision/internal/domain/models"
	domrepo "CryptoVision/internal/domain/repository"
	"CryptoVision/internal/service/ratelimit"
	"CryptoVision/internal/usecase"
	xhttp "CryptoVision/pkg/http"
	xlogger "CryptoVision/pkg/logger"

	"github.com/labstack/echo/v4"
)

// PredictEchoHandler serves forecasts and model reports over Echo.
type PredictEchoHandler struct {
	logger    *xlogger.Logger
	predictor *usecase.Predictor
	publisher domrepo.PredictionPublisher
	limiter   ratelimit.Limiter
	metrics   domrepo.Metrics
}

func NewPredictEchoHandler(logger *xlogger.Logger, predictor *usecase.Predictor) *PredictEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &PredictEchoHandler{logger: logger, predictor: predictor}
}

// SetPublisher injects the sink notified of every served prediction.
func (h *PredictEchoHandler) SetPublisher(p domrepo.PredictionPublisher) { h.publisher = p }

// SetLimiter injects a per-client rate limiter.
func (h *PredictEchoHandler) SetLimiter(l ratelimit.Limiter) { h.limiter = l }

// SetMetrics injects a metrics recorder.
func (h *PredictEchoHandler) SetMetrics(m domrepo.Metrics) { h.metrics = m }

func (h *PredictEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/predict", h.Predict)
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/assets", h.Assets)
	g.GET("/assets/:asset", h.Asset)
}

// Predict answers with the flat {"predicted_closing_price": x} or
// {"error": "..."} bodies that existing clients parse.
func (h *PredictEchoHandler) Predict(c echo.Context) error {
	start := time.Now()
	defer func() {
		if h.metrics != nil {
			h.metrics.RecordLatency("predict", time.Since(start).Seconds())
		}
	}()
	ctx := c.Request().Context()

	if h.limiter != nil {
		ok, err := h.limiter.Allow(ctx, c.RealIP())
		if err != nil {
			// fail open: a limiter outage must not take predictions down
			h.logger.Warn("rate limiter error", xlogger.Error(err))
		} else if !ok {
			h.recordError("rate_limited")
			return xhttp.ErrorMessageResponse(c, http.StatusTooManyRequests, "rate limit exceeded")
		}
	}

	var req models.PredictionRequest
	dec := json.NewDecoder(c.Request().Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		msg := "invalid JSON body: " + err.Error()
		if errors.Is(err, io.EOF) {
			msg = "request body is required"
		}
		h.recordError(string(models.KindValidation))
		return xhttp.ErrorMessageResponse(c, http.StatusBadRequest, msg)
	}

	// single-asset deployments accept requests without an asset
	registry := h.predictor.Registry()
	if strings.TrimSpace(req.Asset) == "" && registry.Len() == 1 {
		req.Asset = registry.Assets()[0]
	}

	res, err := h.predictor.Predict(ctx, req)
	if err != nil {
		status := statusFor(err)
		h.recordError(errorKind(err))
		if status >= http.StatusInternalServerError {
			h.logger.Error("predict failed", xlogger.String("asset", req.Asset), xlogger.Error(err))
		} else {
			h.logger.Debug("predict rejected", xlogger.String("asset", req.Asset), xlogger.Error(err))
		}
		return xhttp.ErrorMessageResponse(c, status, publicMessage(err))
	}

	if h.metrics != nil {
		h.metrics.RecordPrediction(res.Asset)
	}
	if h.publisher != nil {
		ev := models.PredictionEvent{Asset: res.Asset, Features: res.Features, Predicted: res.Value, ServedAt: time.Now().UTC()}
		if err := h.publisher.PublishPrediction(ctx, ev); err != nil {
			h.logger.Warn("publish prediction failed", xlogger.String("asset", res.Asset), xlogger.Error(err))
		}
	}
	return c.JSON(http.StatusOK, models.PredictResponse{PredictedClosingPrice: res.Value})
}

func (h *PredictEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"status": "ok",
		"assets": h.predictor.Registry().Assets(),
	})
}

func (h *PredictEchoHandler) Assets(c echo.Context) error {
	req := &models.AssetsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	evals := h.predictor.Registry().Evaluations(req.Sort)
	xhttp.CacheFor(c, time.Minute)
	return xhttp.ListResponse(c, evals, int64(len(evals)))
}

func (h *PredictEchoHandler) Asset(c echo.Context) error {
	req := &models.AssetRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	registry := h.predictor.Registry()
	if _, err := registry.Get(req.Asset); err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	ev, ok := registry.Evaluation(req.Asset)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no evaluation for asset %q", req.Asset))
	}
	return xhttp.SuccessResponse(c, ev)
}

func (h *PredictEchoHandler) recordError(kind string) {
	if h.metrics != nil {
		h.metrics.RecordError(kind)
	}
}
