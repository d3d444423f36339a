package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"WorthWatch/internal/domain/models"
	domrepo "WorthWatch/internal/domain/repository"
	mid "WorthWatch/internal/middleware"
	"WorthWatch/internal/services/pipeline"
	pkgcache "WorthWatch/pkg/cache"
)

type fakeLedger struct {
	mu       sync.Mutex
	settings *models.Settings
	months   map[string]*models.MonthInput
	loads    int
	saves    int
}

func newFakeLedger(settings *models.Settings, months ...*models.MonthInput) *fakeLedger {
	l := &fakeLedger{settings: settings, months: make(map[string]*models.MonthInput)}
	for _, m := range months {
		l.months[m.Month] = m
	}
	return l
}

func (l *fakeLedger) LoadSettings(ctx context.Context) (*models.Settings, error) {
	return l.settings, nil
}

func (l *fakeLedger) Months(ctx context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	keys := make([]string, 0, len(l.months))
	for k := range l.months {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (l *fakeLedger) LoadMonth(ctx context.Context, month string) (*models.MonthInput, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.months[month]
	if !ok {
		return nil, fmt.Errorf("month %s not found", month)
	}
	l.loads++
	return m, nil
}

func (l *fakeLedger) LoadMonthRaw(ctx context.Context, month string) ([]byte, error) {
	m, err := l.LoadMonth(ctx, month)
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

func (l *fakeLedger) SaveMonth(ctx context.Context, input *models.MonthInput) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.months[input.Month] = input
	l.saves++
	return nil
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) Set(ctx context.Context, key string, value interface{}, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = b
	c.sets++
	return nil
}

func (c *memCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	b, ok := c.data[key]
	c.mu.Unlock()
	if !ok {
		return pkgcache.ErrCacheMiss
	}
	return json.Unmarshal(b, dest)
}

func (c *memCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *memCache) DeleteByPattern(ctx context.Context, pattern string) error { return nil }

func (c *memCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		if _, ok := c.data[k]; !ok {
			return false, nil
		}
	}
	return true, nil
}

func (c *memCache) Increment(ctx context.Context, key string) (int64, error) { return 0, nil }

func (c *memCache) Expire(ctx context.Context, key string, _ time.Duration) (bool, error) {
	return true, nil
}

func (c *memCache) MSet(ctx context.Context, values map[string]interface{}, _ time.Duration) error {
	return nil
}

func (c *memCache) MGet(ctx context.Context, keys ...string) (map[string]string, error) {
	return map[string]string{}, nil
}

func (c *memCache) TryLock(ctx context.Context, key string, _ time.Duration) (bool, error) {
	return true, nil
}

func (c *memCache) Unlock(ctx context.Context, key string) error { return nil }

type fakeMetrics struct {
	mu     sync.Mutex
	errs   map[string]int
	gauges map[string]float64
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{errs: make(map[string]int), gauges: make(map[string]float64)}
}

func (m *fakeMetrics) RecordEventPublished(sink, event string) {}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[kind]++
}

func (m *fakeMetrics) RecordNetWorth(measure string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[measure] = value
}

func (m *fakeMetrics) RecordLatency(op string, seconds float64) {}

type fakeEvents struct {
	mu     sync.Mutex
	events []*models.Event
}

func (e *fakeEvents) Publish(ctx context.Context, ev *models.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return nil
}

func (e *fakeEvents) Close() error { return nil }

type fakeHistory struct {
	mu      sync.Mutex
	batches [][]*models.Snapshot
}

func (h *fakeHistory) Init(ctx context.Context) error { return nil }

func (h *fakeHistory) Store(ctx context.Context, s *models.Snapshot) error { return nil }

func (h *fakeHistory) StoreBatch(ctx context.Context, snaps []*models.Snapshot) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.batches = append(h.batches, snaps)
	return nil
}

func (h *fakeHistory) Query(ctx context.Context, from, to string, limit int) ([]*models.Snapshot, error) {
	return nil, nil
}

func (h *fakeHistory) Health(ctx context.Context) error { return nil }
func (h *fakeHistory) Close() error                     { return nil }

func ucSettings() *models.Settings {
	return &models.Settings{
		SettingsVersion: 1,
		BaseCurrency:    "USD",
		HICP:            models.HICPSettings{BaseYear: 2025, BaseMonth: 1, BaseValue: 100},
		Performance:     models.PerformanceSettings{ExternalFlowSource: "net_cash_flow"},
		CostOfLiving: &models.CostOfLivingSettings{
			Enabled: true,
			Weights: models.ECLIWeights{Rent: 0.40, Groceries: 0.35, CostOfLiving: 0.25},
		},
		Categories: models.Categories{
			Assets:            []string{"Cash", "Investments"},
			Liabilities:       []string{"Credit Card"},
			PositiveCashFlows: []string{"Salary"},
			NegativeCashFlows: []string{"Rent"},
		},
	}
}

func ucMonth(month string, balance, index float64) *models.MonthInput {
	idx := index
	rent, groceries, col := 90.0, 95.0, 92.0
	return &models.MonthInput{
		Month:   month,
		FXRates: map[string]float64{"EUR": 1.08},
		HICP:    &idx,
		ECLI:    &models.ECLIInput{RentIndex: &rent, GroceriesIndex: &groceries, CostOfLivingIndex: &col},
		NetWorthEntries: []models.NetWorthEntry{
			{Name: "Checking", Kind: "Cash", Currency: "USD", Balance: decimal.NewFromFloat(balance)},
		},
		CashFlowEntries: []models.CashFlowEntry{
			{Name: "Paycheck", Kind: "Salary", Currency: "USD", Amount: decimal.NewFromFloat(5000)},
			{Name: "Apartment", Kind: "Rent", Currency: "USD", Amount: decimal.NewFromFloat(-2000)},
		},
	}
}

func newTestDashboard(ledger domrepo.Ledger, cache pkgcache.Service, metrics domrepo.Metrics) *DashboardUseCase {
	return NewDashboardUseCase(ledger, pipeline.NewBuilder(nil), cache, metrics, nil, time.Minute)
}

func TestDashboardGetCachesBuild(t *testing.T) {
	ledger := newFakeLedger(ucSettings(), ucMonth("2025-01", 100000, 100), ucMonth("2025-02", 105000, 100.5))
	cache := newMemCache()
	uc := newTestDashboard(ledger, cache, newFakeMetrics())

	dash, err := uc.Get(context.Background())
	require.NoError(t, err)
	require.Len(t, dash.Snapshots, 2)
	require.Equal(t, "USD", dash.Metadata.BaseCurrency)
	require.Equal(t, 2, ledger.loads)
	require.Equal(t, 1, cache.sets)

	again, err := uc.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, ledger.loads, "second read must come from cache")
	require.Equal(t, dash.Metadata.GeneratedAt, again.Metadata.GeneratedAt)
}

func TestDashboardRebuildNotifiesSinks(t *testing.T) {
	ledger := newFakeLedger(ucSettings(), ucMonth("2025-01", 100000, 100), ucMonth("2025-02", 105000, 100.5))
	metrics := newFakeMetrics()
	events := &fakeEvents{}
	history := &fakeHistory{}
	uc := newTestDashboard(ledger, nil, metrics).WithEvents(events).WithHistory(history)

	dash, err := uc.Rebuild(context.Background(), "manual")
	require.NoError(t, err)

	require.Len(t, events.events, 1)
	require.Equal(t, "dashboard_updated", events.events[0].Event)
	require.Equal(t, "2025-02", events.events[0].Month)
	require.Equal(t, dash.Metadata.GeneratedAt, events.events[0].GeneratedAt)

	require.Len(t, history.batches, 1)
	require.Len(t, history.batches[0], 2)

	require.Equal(t, dash.Latest().Totals.NetWorth, metrics.gauges["nominal"])
	require.Contains(t, metrics.gauges, "real")
	require.Contains(t, metrics.gauges, "col_adjusted")
}

func TestDashboardSummaryViews(t *testing.T) {
	ledger := newFakeLedger(ucSettings(), ucMonth("2025-01", 100000, 100), ucMonth("2025-02", 105000, 100.5))
	uc := newTestDashboard(ledger, nil, newFakeMetrics())
	ctx := context.Background()

	nominal, err := uc.Summary(ctx, domrepo.ViewNominal)
	require.NoError(t, err)
	require.Equal(t, "nominal", nominal.View)
	require.NotNil(t, nominal.Latest)
	require.Nil(t, nominal.Latest.RealWealth)
	require.Nil(t, nominal.Latest.PurchasingPower)
	require.NotEmpty(t, nominal.GeneratedAt)

	adjusted, err := uc.Summary(ctx, domrepo.ViewReal)
	require.NoError(t, err)
	require.NotNil(t, adjusted.Latest.RealWealth)
	require.Nil(t, adjusted.Latest.PurchasingPower)

	pp, err := uc.Summary(ctx, domrepo.ViewPurchasingPower)
	require.NoError(t, err)
	require.NotNil(t, pp.Latest.RealWealth)
	require.NotNil(t, pp.Latest.PurchasingPower)
}

func TestDashboardInvalidate(t *testing.T) {
	ledger := newFakeLedger(ucSettings(), ucMonth("2025-01", 100000, 100))
	cache := newMemCache()
	uc := newTestDashboard(ledger, cache, newFakeMetrics())
	ctx := context.Background()

	_, err := uc.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, ledger.loads)

	require.NoError(t, uc.Invalidate(ctx))

	_, err = uc.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, ledger.loads, "invalidate must force a rebuild")
}

func TestMonthProcessorInlineRebuild(t *testing.T) {
	ledger := newFakeLedger(ucSettings(), ucMonth("2025-01", 100000, 100))
	events := &fakeEvents{}
	uc := newTestDashboard(ledger, nil, newFakeMetrics()).WithEvents(events)
	proc := NewMonthProcessor(ledger, uc, nil, newFakeMetrics(), nil, RebuildInline)

	err := proc.Process(context.Background(), ucMonth("2025-02", 105000, 100.5))
	require.NoError(t, err)
	require.Equal(t, 1, ledger.saves)
	require.Len(t, events.events, 1)
	require.Equal(t, "2025-02", events.events[0].Month)
}

func TestRebuildJobHandle(t *testing.T) {
	ledger := newFakeLedger(ucSettings(), ucMonth("2025-01", 100000, 100))
	events := &fakeEvents{}
	uc := newTestDashboard(ledger, nil, newFakeMetrics()).WithEvents(events)
	job := NewRebuildJob(uc, nil)

	require.Equal(t, "dashboard-rebuild", job.Name())
	require.Equal(t, RebuildJobType, job.Type())

	payload := json.RawMessage(`{"trigger":"ingest","month":"2025-01"}`)
	require.NoError(t, job.Handle(context.Background(), payload))
	require.Len(t, events.events, 1)
}

func TestKafkaMonthsHandler(t *testing.T) {
	ledger := newFakeLedger(ucSettings(), ucMonth("2025-01", 100000, 100))
	uc := newTestDashboard(ledger, nil, newFakeMetrics())
	proc := NewMonthProcessor(ledger, uc, nil, newFakeMetrics(), nil, RebuildInline)
	metrics := newFakeMetrics()
	guard := mid.NewIngestGuard(proc, metrics)
	handler := NewKafkaMonthsHandler("months", guard, metrics)

	require.Equal(t, "months", handler.Topic())

	err := handler.Handle(context.Background(), []byte("{not json"))
	require.Error(t, err)
	require.Equal(t, 1, metrics.errs["consumer_unmarshal"])

	doc, err := json.Marshal(ucMonth("2025-02", 105000, 100.5))
	require.NoError(t, err)
	require.NoError(t, handler.Handle(context.Background(), doc))
	require.Equal(t, 1, ledger.saves)
}

func TestEntriesUseCase(t *testing.T) {
	month := &models.MonthInput{
		Month:   "2025-01",
		FXRates: map[string]float64{"EUR": 0.92},
		NetWorthEntries: []models.NetWorthEntry{
			{Name: "Broker", Kind: "Investments", Currency: "EUR", Balance: decimal.NewFromInt(100)},
			{Name: "Travel card", Kind: "Cash", Currency: "GBP", Balance: decimal.NewFromInt(50)},
		},
	}
	ledger := newFakeLedger(ucSettings(), month)
	uc := NewEntriesUseCase(ledger)
	ctx := context.Background()

	raw, err := uc.Raw(ctx, "2025-01")
	require.NoError(t, err)
	require.Contains(t, string(raw), `"2025-01"`)

	enriched, err := uc.Enriched(ctx, "2025-01")
	require.NoError(t, err)
	require.Equal(t, "2025-01", enriched.Metadata.ReferenceMonth)
	require.Len(t, enriched.Entries, 2)
	require.True(t, enriched.Entries[0].BalanceInBase.Equal(decimal.NewFromInt(92)),
		"100 EUR at 0.92 must be exactly 92, got %s", enriched.Entries[0].BalanceInBase)
	require.True(t, enriched.Entries[1].BalanceInBase.Equal(decimal.NewFromInt(50)),
		"missing GBP rate must fall back to 1.0")

	_, err = uc.Raw(ctx, "not-a-month")
	require.Error(t, err)
}
