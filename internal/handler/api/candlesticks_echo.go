package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	models "chartfeed/internal/domain/models"
	"chartfeed/internal/services/chunks"
	"chartfeed/internal/usecase"
	xhttp "chartfeed/pkg/http"
	xlogger "chartfeed/pkg/logger"

	"github.com/labstack/echo/v4"
)

const sealedCacheControl = "public, max-age=31536000, immutable"

// CandlesticksEchoHandler serves the charting datafeed endpoints.
type CandlesticksEchoHandler struct {
	logger        *xlogger.Logger
	uc            *usecase.CandlesticksUseCase
	liveTTL       time.Duration
	healthTimeout time.Duration
}

func NewCandlesticksEchoHandler(logger *xlogger.Logger, uc *usecase.CandlesticksUseCase, liveTTL time.Duration) *CandlesticksEchoHandler {
	return &CandlesticksEchoHandler{logger: logger, uc: uc, liveTTL: liveTTL, healthTimeout: 3 * time.Second}
}

func (h *CandlesticksEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/candlesticks", h.Candlesticks)
	g.GET("/chunks", h.Chunks)
	e.GET("/healthz", h.Health)
}

// CandlesticksResponse is the getBars payload.
type CandlesticksResponse struct {
	Bars     []models.Bar `json:"bars"`
	Chunks   []int64      `json:"chunks"`
	Complete bool         `json:"complete"`
	NoData   bool         `json:"noData"`
}

func (h *CandlesticksEchoHandler) Candlesticks(c echo.Context) error {
	req := &models.CandlesticksRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	period, err := models.ParsePeriod(req.Period)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("period", err.Error()))
	}

	res, err := h.uc.GetBars(c.Request().Context(), usecase.GetBarsParams{
		MarketID: req.MarketID,
		Period:   period,
		PeriodParams: models.PeriodParams{
			From:             req.From,
			To:               req.To,
			CountBack:        req.CountBack,
			FirstDataRequest: req.FirstDataRequest,
		},
	})
	if err != nil {
		h.logger.Error("candlesticks usecase error",
			xlogger.Int64("market_id", req.MarketID),
			xlogger.String("period", period.String()),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, toAppError(err))
	}

	c.Response().Header().Set(echo.HeaderCacheControl, h.cacheControl(res.Sealed))
	return xhttp.SuccessResponse(c, CandlesticksResponse{
		Bars:     res.Bars,
		Chunks:   chunks.Selection{Chunks: res.Chunks}.ChunkIDs(),
		Complete: res.Complete,
		NoData:   res.NoData,
	})
}

func (h *CandlesticksEchoHandler) Chunks(c echo.Context) error {
	req := &models.ChunksRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	period, err := models.ParsePeriod(req.Period)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("period", err.Error()))
	}

	meta, err := h.uc.ListChunks(c.Request().Context(), req.MarketID, period)
	if err != nil {
		h.logger.Error("chunks usecase error", xlogger.Int64("market_id", req.MarketID), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.ListResponse(c, meta, int64(len(meta)))
}

func (h *CandlesticksEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.healthTimeout)
	defer cancel()

	if err := h.uc.Health(ctx); err != nil {
		h.logger.Warn("health check failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError(err.Error()))
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *CandlesticksEchoHandler) cacheControl(sealed bool) string {
	if sealed {
		return sealedCacheControl
	}
	return fmt.Sprintf("public, max-age=%d", int(h.liveTTL.Seconds()))
}

func toAppError(err error) *xhttp.AppError {
	switch {
	case errors.Is(err, usecase.ErrInvalidParams):
		return xhttp.BadRequestError("", err.Error()).WithError(err)
	case errors.Is(err, chunks.ErrUnordered):
		return xhttp.UnprocessableError("ERR_UNORDERED_METADATA", "chunk metadata is not ascending").WithError(err)
	case errors.Is(err, chunks.ErrChunkLength):
		return xhttp.NewAppError("ERR_CHUNK_LENGTH", "", "more than one incomplete chunk", http.StatusInternalServerError).WithError(err)
	case errors.Is(err, usecase.ErrSource):
		return xhttp.BadGatewayError("candlestick source unavailable").WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.NewAppError("ERR_TIMEOUT", "", "request timed out", http.StatusGatewayTimeout).WithError(err)
	default:
		return xhttp.InternalError("something went wrong").WithError(err)
	}
}
