package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"WorthWatch/internal/domain/models"
	domrepo "WorthWatch/internal/domain/repository"
	icache "WorthWatch/internal/service/cache"
	"WorthWatch/internal/service/metrics"
	"WorthWatch/internal/service/ratelimit"
	"WorthWatch/internal/usecase"
	xhttp "WorthWatch/pkg/http"
	applogger "WorthWatch/pkg/logger"
	pkgqueue "WorthWatch/pkg/queue"
)

const dashboardBytesKey = "http:dashboard"

// DashboardHandler serves the dashboard API. The full document endpoint is
// cached twice: the usecase holds the built dashboard object, this handler
// holds the marshaled bytes together with an ETag derived from generated_at.
type DashboardHandler struct {
	dashboard *usecase.DashboardUseCase
	entries   *usecase.EntriesUseCase
	rates     *usecase.RatesUseCase
	queue     pkgqueue.QueueService
	cache     icache.BytesCache
	rl        *ratelimit.Limiter
	l         *applogger.Logger
	maxAge    int
}

func NewDashboardHandler(dashboard *usecase.DashboardUseCase, entries *usecase.EntriesUseCase) *DashboardHandler {
	metrics.Register()
	return &DashboardHandler{dashboard: dashboard, entries: entries, rl: ratelimit.New(), maxAge: 30}
}

func (h *DashboardHandler) SetCache(c icache.BytesCache) { h.cache = c }

// SetLogger injects a structured logger.
func (h *DashboardHandler) SetLogger(l *applogger.Logger) { h.l = l }

// SetRates enables the FX refresh endpoint.
func (h *DashboardHandler) SetRates(r *usecase.RatesUseCase) { h.rates = r }

// SetQueue lets cache invalidation schedule a rebuild instead of leaving it
// to the next read.
func (h *DashboardHandler) SetQueue(q pkgqueue.QueueService) { h.queue = q }

// SetHTTPCacheMaxAge sets the Cache-Control max-age for the full document.
func (h *DashboardHandler) SetHTTPCacheMaxAge(seconds int) {
	if seconds > 0 {
		h.maxAge = seconds
	}
}

func (h *DashboardHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	g := e.Group("/api")
	g.GET("/dashboard", h.Dashboard)
	g.GET("/dashboard/latest", h.Latest)
	g.GET("/dashboard/summary", h.Summary)
	g.GET("/dashboard/history", h.History)
	g.GET("/snapshots/:month/entries", h.Entries)
	g.GET("/snapshots/:month/entries/enriched", h.EnrichedEntries)
	g.POST("/cache/invalidate", h.InvalidateCache)
	g.POST("/months/:month/rates/refresh", h.RefreshRates)
}

func (h *DashboardHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "worthwatch-api",
	})
}

// Dashboard serves the full document with HTTP caching: a strong ETag from
// generated_at, Cache-Control max-age, and a byte cache for the hot path.
func (h *DashboardHandler) Dashboard(c echo.Context) error {
	start := time.Now()
	endpoint := "dashboard"
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	var body []byte
	if h.cache != nil {
		if b, ok, err := h.cache.GetBytes(dashboardBytesKey); err != nil {
			if h.l != nil {
				h.l.Warn("dashboard cache_get_error", applogger.Error(err))
			}
		} else if ok {
			body = b
		}
	}
	if body == nil {
		dash, err := h.dashboard.Get(c.Request().Context())
		if err != nil {
			metrics.APIErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("dashboard error", applogger.Error(err))
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		body, err = json.Marshal(dash)
		if err != nil {
			metrics.APIErrors.WithLabelValues(endpoint).Inc()
			return echo.NewHTTPError(http.StatusInternalServerError, "encode error")
		}
		if h.cache != nil {
			if err := h.cache.SetBytes(dashboardBytesKey, body, time.Duration(h.maxAge)*time.Second); err != nil && h.l != nil {
				h.l.Warn("dashboard cache_set_error", applogger.Error(err))
			}
		}
	}

	var meta struct {
		Metadata models.Metadata `json:"metadata"`
	}
	_ = json.Unmarshal(body, &meta)
	etag := `"` + meta.Metadata.GeneratedAt + `"`
	if match := c.Request().Header.Get("If-None-Match"); match == etag {
		return c.NoContent(http.StatusNotModified)
	}
	c.Response().Header().Set("ETag", etag)
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age="+strconv.Itoa(h.maxAge))
	return c.JSONBlob(http.StatusOK, body)
}

func (h *DashboardHandler) Latest(c echo.Context) error {
	start := time.Now()
	endpoint := "latest"
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	snap, err := h.dashboard.Latest(c.Request().Context())
	if err != nil {
		metrics.APIErrors.WithLabelValues(endpoint).Inc()
		if h.l != nil {
			h.l.Error("latest error", applogger.Error(err))
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if snap == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no snapshots yet")
	}
	return c.JSON(http.StatusOK, snap)
}

func (h *DashboardHandler) Summary(c echo.Context) error {
	start := time.Now()
	endpoint := "summary"
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.SummaryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	view := domrepo.NormalizeView(req.View)

	res, err := h.dashboard.Summary(c.Request().Context(), view)
	if err != nil {
		metrics.APIErrors.WithLabelValues(endpoint).Inc()
		if h.l != nil {
			h.l.Error("summary error", applogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DashboardHandler) History(c echo.Context) error {
	start := time.Now()
	endpoint := "history"
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	from := c.QueryParam("from")
	to := c.QueryParam("to")
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 120)

	snaps, err := h.dashboard.History(c.Request().Context(), from, to, limit)
	if err != nil {
		metrics.APIErrors.WithLabelValues(endpoint).Inc()
		if h.l != nil {
			h.l.Error("history error", applogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, snaps, int64(len(snaps)))
}

// Entries serves the month document exactly as stored in the ledger.
func (h *DashboardHandler) Entries(c echo.Context) error {
	start := time.Now()
	endpoint := "entries"
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.MonthRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	raw, err := h.entries.Raw(c.Request().Context(), req.Month)
	if err != nil {
		return h.monthError(c, endpoint, req.Month, err)
	}
	return c.JSONBlob(http.StatusOK, raw)
}

func (h *DashboardHandler) EnrichedEntries(c echo.Context) error {
	start := time.Now()
	endpoint := "entries_enriched"
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.MonthRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	enriched, err := h.entries.Enriched(c.Request().Context(), req.Month)
	if err != nil {
		return h.monthError(c, endpoint, req.Month, err)
	}
	return c.JSON(http.StatusOK, enriched)
}

func (h *DashboardHandler) monthError(c echo.Context, endpoint, month string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return echo.NewHTTPError(http.StatusNotFound, "month "+month+" not found")
	}
	metrics.APIErrors.WithLabelValues(endpoint).Inc()
	if h.l != nil {
		h.l.Error(endpoint+" error", applogger.String("month", month), applogger.Error(err))
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}

// InvalidateCache drops both cache levels and, when a queue is wired,
// schedules a rebuild. Accepted, not completed: the rebuild is async.
func (h *DashboardHandler) InvalidateCache(c echo.Context) error {
	start := time.Now()
	endpoint := "invalidate"
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	if !h.rl.Allow(c.RealIP()+":invalidate", 2, 0.5) {
		if h.l != nil {
			h.l.Warn("invalidate rate_limited", applogger.String("remote", c.RealIP()))
		}
		return echo.NewHTTPError(http.StatusTooManyRequests, "rate limited")
	}

	if h.cache != nil {
		if err := h.cache.DeleteBytes(dashboardBytesKey); err != nil && h.l != nil {
			h.l.Warn("invalidate cache_delete_error", applogger.Error(err))
		}
	}
	if err := h.dashboard.Invalidate(c.Request().Context()); err != nil {
		metrics.APIErrors.WithLabelValues(endpoint).Inc()
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	scheduled := false
	if h.queue != nil {
		err := h.queue.PublishMessage(c.Request().Context(), usecase.RebuildJobType,
			&usecase.RebuildPayload{Trigger: "invalidate"})
		if err != nil {
			if h.l != nil {
				h.l.Warn("invalidate enqueue_error", applogger.Error(err))
			}
		} else {
			scheduled = true
		}
	}
	return c.JSON(http.StatusAccepted, map[string]any{
		"invalidated":       true,
		"rebuild_scheduled": scheduled,
	})
}

// RefreshRates patches one month's FX table from the external provider.
func (h *DashboardHandler) RefreshRates(c echo.Context) error {
	start := time.Now()
	endpoint := "rates_refresh"
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	if h.rates == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "rates provider not configured")
	}
	if !h.rl.Allow(c.RealIP()+":rates", 1, 0.2) {
		if h.l != nil {
			h.l.Warn("rates_refresh rate_limited", applogger.String("remote", c.RealIP()))
		}
		return echo.NewHTTPError(http.StatusTooManyRequests, "rate limited")
	}

	req := &models.RatesRefreshRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rates, err := h.rates.RefreshMonth(c.Request().Context(), req.Month, req.Base)
	if err != nil {
		return h.monthError(c, endpoint, req.Month, err)
	}
	return xhttp.SuccessResponse(c, map[string]any{
		"month":    req.Month,
		"fx_rates": rates,
	})
}
