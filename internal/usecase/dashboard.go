package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"WorthWatch/internal/domain/models"
	domrepo "WorthWatch/internal/domain/repository"
	svcmetrics "WorthWatch/internal/service/metrics"
	"WorthWatch/internal/services/pipeline"
	pkgcache "WorthWatch/pkg/cache"
	applogger "WorthWatch/pkg/logger"
)

const dashboardCacheKey = "dashboard:current"

// DashboardUseCase owns the dashboard lifecycle: it loads the ledger, runs
// the snapshot pipeline, caches the result and answers read queries. History
// and event sinks are optional; a failed sink write never fails a build.
type DashboardUseCase struct {
	ledger  domrepo.Ledger
	builder *pipeline.Builder
	cache   pkgcache.Service
	history domrepo.HistoryStore
	events  domrepo.EventPublisher
	metrics domrepo.Metrics
	log     *applogger.Logger

	cacheTTL time.Duration
	now      func() time.Time

	mu sync.Mutex
}

func NewDashboardUseCase(
	ledger domrepo.Ledger,
	builder *pipeline.Builder,
	cache pkgcache.Service,
	metrics domrepo.Metrics,
	log *applogger.Logger,
	cacheTTL time.Duration,
) *DashboardUseCase {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &DashboardUseCase{
		ledger:   ledger,
		builder:  builder,
		cache:    cache,
		metrics:  metrics,
		log:      log,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// WithHistory attaches a snapshot history sink. Every successful build is
// batch-written there.
func (uc *DashboardUseCase) WithHistory(h domrepo.HistoryStore) *DashboardUseCase {
	uc.history = h
	return uc
}

// WithEvents attaches an event publisher notified after every rebuild.
func (uc *DashboardUseCase) WithEvents(e domrepo.EventPublisher) *DashboardUseCase {
	uc.events = e
	return uc
}

// Get returns the current dashboard, rebuilding it when the cache is cold.
func (uc *DashboardUseCase) Get(ctx context.Context) (*models.Dashboard, error) {
	if uc.cache != nil {
		var dash models.Dashboard
		err := uc.cache.Get(ctx, dashboardCacheKey, &dash)
		if err == nil {
			return &dash, nil
		}
		if !errors.Is(err, pkgcache.ErrCacheMiss) {
			uc.metrics.RecordError("cache_read")
			if uc.log != nil {
				uc.log.Warn("dashboard cache read failed", applogger.Error(err))
			}
		}
	}
	return uc.Rebuild(ctx, "cache_miss")
}

// Rebuild runs the full pipeline over the ledger and replaces the cached
// dashboard. Concurrent callers serialize; each still gets a fresh build.
func (uc *DashboardUseCase) Rebuild(ctx context.Context, trigger string) (*models.Dashboard, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	start := time.Now()
	dash, err := uc.build(ctx)
	elapsed := time.Since(start)
	uc.metrics.RecordLatency("dashboard_build", elapsed.Seconds())
	svcmetrics.BuildLatency.WithLabelValues(trigger).Observe(elapsed.Seconds())
	if err != nil {
		uc.metrics.RecordError("dashboard_build")
		svcmetrics.BuildErrors.WithLabelValues(trigger).Inc()
		return nil, err
	}

	if uc.cache != nil {
		if cerr := uc.cache.Set(ctx, dashboardCacheKey, dash, uc.cacheTTL); cerr != nil {
			uc.metrics.RecordError("cache_write")
			if uc.log != nil {
				uc.log.Warn("dashboard cache write failed", applogger.Error(cerr))
			}
		}
	}

	uc.observe(dash)
	uc.persistHistory(ctx, dash)
	uc.announce(ctx, dash)

	if uc.log != nil {
		uc.log.Info("dashboard rebuilt",
			applogger.String("trigger", trigger),
			applogger.Int("snapshots", len(dash.Snapshots)),
			applogger.Duration("took", elapsed))
	}
	return dash, nil
}

func (uc *DashboardUseCase) build(ctx context.Context) (*models.Dashboard, error) {
	settings, err := uc.ledger.LoadSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	keys, err := uc.ledger.Months(ctx)
	if err != nil {
		return nil, fmt.Errorf("list months: %w", err)
	}
	months := make([]*models.MonthInput, 0, len(keys))
	for _, key := range keys {
		m, err := uc.ledger.LoadMonth(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("load month %s: %w", key, err)
		}
		months = append(months, m)
	}
	return uc.builder.Build(ctx, settings, months, pipeline.Options{Now: uc.now()})
}

// observe exports the latest snapshot to the gauges.
func (uc *DashboardUseCase) observe(dash *models.Dashboard) {
	latest := dash.Latest()
	if latest == nil {
		return
	}
	uc.metrics.RecordNetWorth("nominal", latest.Totals.NetWorth)
	if latest.RealWealth != nil {
		uc.metrics.RecordNetWorth("real", latest.RealWealth.NetWorthReal)
	}
	if latest.PurchasingPower != nil {
		uc.metrics.RecordNetWorth("col_adjusted", latest.PurchasingPower.ColAdjustedNetWorth)
	}
	for i := range dash.Snapshots {
		s := &dash.Snapshots[i]
		svcmetrics.SnapshotWarnings.WithLabelValues(s.Month).Set(float64(len(s.Warnings)))
	}
}

func (uc *DashboardUseCase) persistHistory(ctx context.Context, dash *models.Dashboard) {
	if uc.history == nil || len(dash.Snapshots) == 0 {
		return
	}
	snaps := make([]*models.Snapshot, len(dash.Snapshots))
	for i := range dash.Snapshots {
		snaps[i] = &dash.Snapshots[i]
	}
	if err := uc.history.StoreBatch(ctx, snaps); err != nil {
		uc.metrics.RecordError("history_write")
		if uc.log != nil {
			uc.log.Warn("history write failed", applogger.Error(err))
		}
	}
}

func (uc *DashboardUseCase) announce(ctx context.Context, dash *models.Dashboard) {
	if uc.events == nil {
		return
	}
	ev := &models.Event{
		Event:       "dashboard_updated",
		GeneratedAt: dash.Metadata.GeneratedAt,
		Months:      len(dash.Snapshots),
	}
	if latest := dash.Latest(); latest != nil {
		ev.Month = latest.Month
		nw := latest.Totals.NetWorth
		ev.NetWorthLatest = &nw
	}
	if err := uc.events.Publish(ctx, ev); err != nil {
		uc.metrics.RecordError("event_publish")
		if uc.log != nil {
			uc.log.Warn("event publish failed", applogger.Error(err))
		}
	}
}

// Latest returns the most recent snapshot, nil when the ledger is empty.
func (uc *DashboardUseCase) Latest(ctx context.Context) (*models.Snapshot, error) {
	dash, err := uc.Get(ctx)
	if err != nil {
		return nil, err
	}
	return dash.Latest(), nil
}

// Summary answers "how am I doing" in one snapshot. The view selects how
// much of the adjusted data is included: nominal strips the real wealth and
// purchasing power records, real keeps inflation adjustment only.
func (uc *DashboardUseCase) Summary(ctx context.Context, view domrepo.View) (*models.SummaryResponse, error) {
	dash, err := uc.Get(ctx)
	if err != nil {
		return nil, err
	}
	resp := &models.SummaryResponse{
		GeneratedAt:  dash.Metadata.GeneratedAt,
		BaseCurrency: dash.Metadata.BaseCurrency,
		View:         string(view),
	}
	latest := dash.Latest()
	if latest == nil {
		return resp, nil
	}
	s := *latest
	switch view {
	case domrepo.ViewNominal:
		s.RealWealth = nil
		s.PurchasingPower = nil
	case domrepo.ViewReal:
		s.PurchasingPower = nil
	}
	resp.Latest = &s
	return resp, nil
}

// Invalidate drops the cached dashboard so the next read rebuilds.
func (uc *DashboardUseCase) Invalidate(ctx context.Context) error {
	if uc.cache == nil {
		return nil
	}
	if err := uc.cache.Delete(ctx, dashboardCacheKey); err != nil {
		uc.metrics.RecordError("cache_invalidate")
		return fmt.Errorf("invalidate dashboard cache: %w", err)
	}
	if uc.log != nil {
		uc.log.Info("dashboard cache invalidated")
	}
	return nil
}

// History reads stored snapshots back from the history store.
func (uc *DashboardUseCase) History(ctx context.Context, from, to string, limit int) ([]*models.Snapshot, error) {
	if uc.history == nil {
		return nil, fmt.Errorf("history store not configured")
	}
	if limit <= 0 {
		limit = 120
	}
	if limit > 1200 {
		limit = 1200
	}
	snaps, err := uc.history.Query(ctx, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	return snaps, nil
}
