package repository

import (
	"context"

	"WorthWatch/internal/domain/models"
)

// Ledger is the source of truth: one settings document plus one input
// document per month. Implementations must write atomically; a crashed
// save may lose the update but never corrupt an existing document.
type Ledger interface {
	LoadSettings(ctx context.Context) (*models.Settings, error)
	Months(ctx context.Context) ([]string, error)
	LoadMonth(ctx context.Context, month string) (*models.MonthInput, error)
	LoadMonthRaw(ctx context.Context, month string) ([]byte, error)
	SaveMonth(ctx context.Context, input *models.MonthInput) error
}

// HistoryStore keeps built snapshots queryable outside the ledger, for
// long-horizon analysis. Rebuilds overwrite months idempotently.
type HistoryStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, s *models.Snapshot) error
	StoreBatch(ctx context.Context, snaps []*models.Snapshot) error
	Query(ctx context.Context, from, to string, limit int) ([]*models.Snapshot, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// EventPublisher fans dashboard lifecycle events out to consumers.
type EventPublisher interface {
	Publish(ctx context.Context, e *models.Event) error
	Close() error
}

type Metrics interface {
	RecordEventPublished(sink, event string)
	RecordError(kind string)
	RecordNetWorth(measure string, value float64)
	RecordLatency(op string, seconds float64)
}
