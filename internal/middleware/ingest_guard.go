package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"WorthWatch/internal/domain/models"
	domrepo "WorthWatch/internal/domain/repository"
	"WorthWatch/pkg/util"
)

// Proc is the minimal processor interface the guard needs.
type Proc interface {
	Process(ctx context.Context, in *models.MonthInput) error
}

// IngestGuard is a middleware between the Kafka month feed and the ledger
// writer. It validates documents, throttles per-month update bursts,
// optionally transforms, and buffers when downstream is unavailable.
type IngestGuard struct {
	proc     Proc
	metrics  domrepo.Metrics
	maxRPS   int
	bufSize  int
	bufCh    chan *models.MonthInput
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex
	lastSeen map[string]time.Time // per-month last accepted time
	// simple document transform hook (optional)
	transform func(*models.MonthInput) *models.MonthInput
	// metrics
	bufDepthGauge func(int)
	throttleWarn  func(string)
}

type GuardOption func(*IngestGuard)

// WithMaxRPS sets the max accepted updates per second per month.
func WithMaxRPS(n int) GuardOption {
	return func(g *IngestGuard) {
		if n > 0 {
			g.maxRPS = n
		}
	}
}

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) GuardOption {
	return func(g *IngestGuard) {
		if n > 0 {
			g.bufSize = n
		}
	}
}

// WithTransform sets a transformation hook to rewrite documents before validation.
func WithTransform(fn func(*models.MonthInput) *models.MonthInput) GuardOption {
	return func(g *IngestGuard) { g.transform = fn }
}

// NewIngestGuard creates a new guard.
func NewIngestGuard(proc Proc, metrics domrepo.Metrics, opts ...GuardOption) *IngestGuard {
	g := &IngestGuard{
		proc:     proc,
		metrics:  metrics,
		maxRPS:   5,   // default throttle per month
		bufSize:  100, // default buffer
		bufCh:    make(chan *models.MonthInput, 100),
		stopCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.bufSize != cap(g.bufCh) {
		g.bufCh = make(chan *models.MonthInput, g.bufSize)
	}
	// metrics hooks using domain metrics if available
	g.bufDepthGauge = func(n int) { g.metrics.RecordLatency("ingest_buffer_depth", float64(n)) }
	g.throttleWarn = func(month string) { g.metrics.RecordError("ingest_throttle_" + month) }
	return g
}

// Start launches background flushing of buffered documents.
func (g *IngestGuard) Start(ctx context.Context) {
	g.mu.Lock()
	if g.started {
		g.mu.Unlock()
		return
	}
	g.started = true
	g.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-g.stopCh:
				return
			case in := <-g.bufCh:
				if in == nil {
					continue
				}
				if err := g.proc.Process(ctx, in); err != nil {
					// exponential backoff with cap
					if backoff < 2*time.Second {
						backoff *= 2
					}
					g.metrics.RecordError("ingest_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case g.bufCh <- in:
					default:
						g.metrics.RecordError("ingest_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (g *IngestGuard) Stop() {
	g.mu.Lock()
	if !g.started {
		g.mu.Unlock()
		return
	}
	g.started = false
	g.mu.Unlock()
	close(g.stopCh)
}

// Process validates, throttles, and forwards a month document downstream,
// buffering on errors.
func (g *IngestGuard) Process(ctx context.Context, in *models.MonthInput) error {
	start := time.Now()
	if g.transform != nil {
		in = g.transform(in)
	}
	if err := validateMonthInput(in); err != nil {
		g.metrics.RecordError("ingest_validate")
		return err
	}
	if !g.allow(in.Month, start) {
		// throttled; record and drop silently
		g.metrics.RecordError("ingest_throttle")
		if g.throttleWarn != nil {
			g.throttleWarn(in.Month)
		}
		return nil
	}

	if err := g.proc.Process(ctx, in); err != nil {
		g.metrics.RecordError("ingest_process")
		// buffer non-blocking
		select {
		case g.bufCh <- in:
			if g.bufDepthGauge != nil {
				g.bufDepthGauge(len(g.bufCh))
			}
		default:
			g.metrics.RecordError("ingest_buffer_full")
		}
		return fmt.Errorf("ingest downstream: %w", err)
	}
	g.metrics.RecordLatency("ingest_process", time.Since(start).Seconds())
	return nil
}

func validateMonthInput(in *models.MonthInput) error {
	if in == nil {
		return fmt.Errorf("month document nil")
	}
	month, err := util.ParseMonth(in.Month)
	if err != nil {
		return err
	}
	in.Month = month
	for _, e := range in.NetWorthEntries {
		if e.Name == "" || e.Kind == "" || e.Currency == "" {
			return fmt.Errorf("month %s: net worth entry missing name, type, or currency", month)
		}
	}
	for _, e := range in.CashFlowEntries {
		if e.Name == "" || e.Kind == "" || e.Currency == "" {
			return fmt.Errorf("month %s: cash flow entry missing name, type, or currency", month)
		}
	}
	return nil
}

func (g *IngestGuard) allow(month string, now time.Time) bool {
	if g.maxRPS <= 0 {
		return true
	}
	// simple throttle: at most maxRPS updates per second per month. The
	// consumer dispatches from a worker pool, so lastSeen needs the lock.
	g.mu.Lock()
	defer g.mu.Unlock()
	last := g.lastSeen[month]
	if last.IsZero() {
		g.lastSeen[month] = now
		return true
	}
	if now.Sub(last) < time.Second/time.Duration(g.maxRPS) {
		return false
	}
	g.lastSeen[month] = now
	return true
}
