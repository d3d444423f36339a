package usecase

import (
	"context"
	"fmt"
	"time"

	"WorthWatch/internal/domain/models"
	domrepo "WorthWatch/internal/domain/repository"
	mid "WorthWatch/internal/middleware"
	applogger "WorthWatch/pkg/logger"
	pkgqueue "WorthWatch/pkg/queue"
)

// Rebuild scheduling modes.
const (
	RebuildInline = "inline"
	RebuildQueued = "queue"
)

// MonthProcessor persists ingested month documents and schedules the
// dashboard rebuild that follows. Rebuilds run inline or go through the
// queue depending on wiring; a failed enqueue falls back to inline so an
// ingested month is never left without a rebuild.
type MonthProcessor struct {
	ledger    domrepo.Ledger
	dashboard *DashboardUseCase
	queue     pkgqueue.QueueService
	metrics   domrepo.Metrics
	log       *applogger.Logger
	mode      string
}

func NewMonthProcessor(
	ledger domrepo.Ledger,
	dashboard *DashboardUseCase,
	queue pkgqueue.QueueService,
	metrics domrepo.Metrics,
	log *applogger.Logger,
	mode string,
) *MonthProcessor {
	if mode != RebuildQueued {
		mode = RebuildInline
	}
	return &MonthProcessor{
		ledger:    ledger,
		dashboard: dashboard,
		queue:     queue,
		metrics:   metrics,
		log:       log,
		mode:      mode,
	}
}

// Process saves one month document and triggers a rebuild.
func (p *MonthProcessor) Process(ctx context.Context, in *models.MonthInput) error {
	start := time.Now()
	if err := p.ledger.SaveMonth(ctx, in); err != nil {
		p.metrics.RecordError("month_save")
		return fmt.Errorf("save month %s: %w", in.Month, err)
	}
	p.metrics.RecordLatency("month_save", time.Since(start).Seconds())
	if p.log != nil {
		p.log.Info("month saved", applogger.String("month", in.Month))
	}
	return p.scheduleRebuild(ctx, in.Month)
}

// ProcessBatch saves several months and rebuilds once at the end.
func (p *MonthProcessor) ProcessBatch(ctx context.Context, months []*models.MonthInput) error {
	if len(months) == 0 {
		return nil
	}
	for _, in := range months {
		if err := p.ledger.SaveMonth(ctx, in); err != nil {
			p.metrics.RecordError("month_save")
			return fmt.Errorf("save month %s: %w", in.Month, err)
		}
	}
	last := months[len(months)-1]
	return p.scheduleRebuild(ctx, last.Month)
}

func (p *MonthProcessor) scheduleRebuild(ctx context.Context, month string) error {
	if p.mode == RebuildQueued && p.queue != nil {
		err := p.queue.PublishMessage(ctx, RebuildJobType, &RebuildPayload{Trigger: "ingest", Month: month})
		if err == nil {
			return nil
		}
		p.metrics.RecordError("rebuild_enqueue")
		if p.log != nil {
			p.log.Warn("rebuild enqueue failed, rebuilding inline", applogger.Error(err))
		}
	}
	_, err := p.dashboard.Rebuild(ctx, "ingest")
	return err
}

var _ mid.Proc = (*MonthProcessor)(nil)
