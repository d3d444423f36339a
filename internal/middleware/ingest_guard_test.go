package middleware

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WorthWatch/internal/domain/models"
)

type countingProc struct {
	mu    sync.Mutex
	seen  []string
	fail  bool
	calls int
}

func (p *countingProc) Process(_ context.Context, in *models.MonthInput) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.fail {
		return fmt.Errorf("downstream unavailable")
	}
	p.seen = append(p.seen, in.Month)
	return nil
}

type nopMetrics struct{}

func (nopMetrics) RecordEventPublished(string, string) {}
func (nopMetrics) RecordError(string)                  {}
func (nopMetrics) RecordNetWorth(string, float64)      {}
func (nopMetrics) RecordLatency(string, float64)       {}

func guardMonth(month string) *models.MonthInput {
	return &models.MonthInput{
		Month:   month,
		FXRates: map[string]float64{"EUR": 1.0},
		NetWorthEntries: []models.NetWorthEntry{
			{Name: "Checking", Kind: "Cash", Currency: "EUR", Balance: decimal.NewFromInt(1000)},
		},
	}
}

func TestIngestGuardValidates(t *testing.T) {
	proc := &countingProc{}
	guard := NewIngestGuard(proc, nopMetrics{})

	bad := guardMonth("2025-01")
	bad.NetWorthEntries[0].Currency = ""
	require.Error(t, guard.Process(context.Background(), bad))
	assert.Zero(t, proc.calls)

	require.NoError(t, guard.Process(context.Background(), guardMonth("2025-01")))
	assert.Equal(t, []string{"2025-01"}, proc.seen)
}

func TestIngestGuardThrottlesPerMonth(t *testing.T) {
	proc := &countingProc{}
	guard := NewIngestGuard(proc, nopMetrics{}, WithMaxRPS(1))

	require.NoError(t, guard.Process(context.Background(), guardMonth("2025-01")))
	// An immediate repeat of the same month is dropped; another month passes.
	require.NoError(t, guard.Process(context.Background(), guardMonth("2025-01")))
	require.NoError(t, guard.Process(context.Background(), guardMonth("2025-02")))
	assert.Equal(t, []string{"2025-01", "2025-02"}, proc.seen)
}

func TestIngestGuardConcurrentIngest(t *testing.T) {
	// The consumer dispatches Process from a worker pool; concurrent months
	// must not race on the throttle state (run under -race).
	proc := &countingProc{}
	guard := NewIngestGuard(proc, nopMetrics{}, WithMaxRPS(1000))

	var wg sync.WaitGroup
	for i := 0; i < 24; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			month := fmt.Sprintf("2025-%02d", i%12+1)
			_ = guard.Process(context.Background(), guardMonth(month))
		}(i)
	}
	wg.Wait()

	proc.mu.Lock()
	defer proc.mu.Unlock()
	assert.NotEmpty(t, proc.seen)
	assert.LessOrEqual(t, len(proc.seen), 24)
}

func TestIngestGuardBuffersOnDownstreamError(t *testing.T) {
	proc := &countingProc{fail: true}
	guard := NewIngestGuard(proc, nopMetrics{}, WithBufferSize(4))

	err := guard.Process(context.Background(), guardMonth("2025-01"))
	require.Error(t, err)

	// Once downstream recovers, Start drains the buffer.
	proc.mu.Lock()
	proc.fail = false
	proc.mu.Unlock()

	guard.Start(context.Background())
	defer guard.Stop()

	require.Eventually(t, func() bool {
		proc.mu.Lock()
		defer proc.mu.Unlock()
		return len(proc.seen) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
