package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	models "BarView/internal/domain/models"
	domrepo "BarView/internal/domain/repository"
	"BarView/internal/service/cache"
	"BarView/internal/service/metrics"
	"BarView/internal/usecase"
	xhttp "BarView/pkg/http"
	"BarView/pkg/http/middleware"
	xlogger "BarView/pkg/logger"

	"github.com/labstack/echo/v4"
)

const dataCacheControl = "public, max-age=300"

// BarsHandler serves bar data as JSON and as download files.
type BarsHandler struct {
	logger   *xlogger.Logger
	bars     *usecase.BarsUseCase
	cache    cache.BytesCache
	cacheTTL time.Duration
	metrics  domrepo.Metrics
	limiter  func(key string) bool
	now      func() time.Time
}

// BarsOption configures BarsHandler.
type BarsOption func(*BarsHandler)

// WithResponseCache stores encoded /api/data responses for ttl.
func WithResponseCache(c cache.BytesCache, ttl time.Duration) BarsOption {
	return func(h *BarsHandler) {
		h.cache = c
		h.cacheTTL = ttl
	}
}

// WithDownloadLimit gates downloads per client; allow reports whether the key may proceed.
func WithDownloadLimit(allow func(key string) bool) BarsOption {
	return func(h *BarsHandler) { h.limiter = allow }
}

func NewBarsHandler(logger *xlogger.Logger, bars *usecase.BarsUseCase, m domrepo.Metrics, opts ...BarsOption) *BarsHandler {
	metrics.Register()
	h := &BarsHandler{logger: logger, bars: bars, metrics: m, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *BarsHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/data/:table", h.Data)

	var mw []echo.MiddlewareFunc
	if h.limiter != nil {
		mw = append(mw, middleware.RateLimit(h.limiter, clientKey, h.tooManyDownloads))
	}
	e.GET("/download/:table", h.Download, mw...)
}

// Data returns bars for one table as a JSON array.
func (h *BarsHandler) Data(c echo.Context) error {
	req := &models.DataRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()

	key := cache.Key("data", req.Table, req.Timeframe, req.StartDate, req.EndDate, strconv.Itoa(usecase.ClampLimit(req.Limit)))
	if body, ok := h.cached(c, key); ok {
		c.Response().Header().Set(echo.HeaderCacheControl, dataCacheControl)
		return xhttp.JSONBlobResponse(c, body)
	}

	res, err := h.bars.Fetch(ctx, fetchParams(req))
	if err != nil {
		return h.fail(c, req.Table, err)
	}

	body, err := json.Marshal(res.Rows())
	if err != nil {
		h.logger.Error("encode bars", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	if h.cache != nil {
		if err := h.cache.SetBytes(ctx, key, body, h.cacheTTL); err != nil {
			h.logger.Warn("response cache write failed", xlogger.String("key", key), xlogger.Error(err))
		}
	}

	h.logger.Info("bars served",
		xlogger.String("table", req.Table),
		xlogger.String("timeframe", string(res.Timeframe)),
		xlogger.Int("rows", res.Len()),
	)
	c.Response().Header().Set(echo.HeaderCacheControl, dataCacheControl)
	return xhttp.JSONBlobResponse(c, body)
}

// Download returns bars as a csv, json or parquet attachment.
func (h *BarsHandler) Download(c echo.Context) error {
	req := &models.DownloadRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	exp, err := NewExporter(req.Format)
	if err != nil {
		metrics.ExportRejected.WithLabelValues("format").Inc()
		return xhttp.AppErrorResponse(c, toAppError(err))
	}

	res, err := h.bars.Fetch(c.Request().Context(), fetchParams(&req.DataRequest))
	if err != nil {
		return h.fail(c, req.Table, err)
	}

	start := time.Now()
	var buf bytes.Buffer
	if res.Timeframe.IsRaw() {
		err = exp.Raw(&buf, res.RawExportRows())
	} else {
		err = exp.Aggregated(&buf, res.AggregatedExportRows())
	}
	if err != nil {
		h.logger.Error("encode download",
			xlogger.String("table", req.Table),
			xlogger.String("format", exp.Extension()),
			xlogger.Error(err),
		)
		return xhttp.InternalServerErrorResponse(c)
	}
	metrics.ExportLatency.WithLabelValues(exp.Extension()).Observe(time.Since(start).Seconds())
	metrics.ExportBytes.WithLabelValues(exp.Extension()).Add(float64(buf.Len()))

	name := ExportFilename(req.Table, string(res.Timeframe), req.StartDate, req.EndDate, h.now(), exp.Extension())
	h.logger.Info("download prepared",
		xlogger.String("file", name),
		xlogger.Int("rows", res.Len()),
		xlogger.Int("bytes", buf.Len()),
	)
	return xhttp.AttachmentResponse(c, name, exp.ContentType(), buf.Bytes())
}

func (h *BarsHandler) cached(c echo.Context, key string) ([]byte, bool) {
	if h.cache == nil {
		return nil, false
	}
	body, ok, err := h.cache.GetBytes(c.Request().Context(), key)
	switch {
	case err != nil:
		h.metrics.RecordCache("error")
		h.logger.Warn("response cache read failed", xlogger.String("key", key), xlogger.Error(err))
		return nil, false
	case ok:
		h.metrics.RecordCache("hit")
		return body, true
	}
	h.metrics.RecordCache("miss")
	return nil, false
}

func (h *BarsHandler) fail(c echo.Context, table string, err error) error {
	appErr := toAppError(err)
	if errors.Is(err, domrepo.ErrTableNotFound) {
		appErr = xhttp.NotFoundErrorf("Table %s not found", table).WithError(err)
	}
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error("bars request failed", xlogger.String("table", table), xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func (h *BarsHandler) tooManyDownloads(c echo.Context) error {
	metrics.ExportRejected.WithLabelValues("rate_limit").Inc()
	return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("Too many downloads, slow down"))
}

func fetchParams(req *models.DataRequest) usecase.FetchParams {
	return usecase.FetchParams{
		Table:     req.Table,
		Timeframe: req.Timeframe,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Limit:     req.Limit,
	}
}

func clientKey(c echo.Context) string {
	return xhttp.ClientKey(c.Request().Header.Get(echo.HeaderXForwardedFor), c.RealIP())
}
