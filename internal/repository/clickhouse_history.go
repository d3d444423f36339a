package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"WorthWatch/internal/domain/models"
	domrepo "WorthWatch/internal/domain/repository"
	pkgch "WorthWatch/pkg/clickhouse"
	applogger "WorthWatch/pkg/logger"
)

// CHHistoryStore implements HistoryStore backed by ClickHouse. Each row is
// one built snapshot keyed by month; rebuilds replace prior rows, so the
// table follows the ledger rather than accumulating versions.
type CHHistoryStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHHistoryStore(ch *pkgch.Client, table string) *CHHistoryStore {
	if table == "" {
		table = "worthwatch.snapshot_history"
	}
	return &CHHistoryStore{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHHistoryStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHHistoryStore) Init(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHHistoryStore) Store(ctx context.Context, snap *models.Snapshot) error {
	return s.StoreBatch(ctx, []*models.Snapshot{snap})
}

func (s *CHHistoryStore) StoreBatch(ctx context.Context, snaps []*models.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	// Multi-row VALUES to reduce round-trips; a full rebuild writes the
	// whole ledger in one or two statements.
	const chunkSize = 500
	updatedAt := time.Now().UTC()
	for start := 0; start < len(snaps); start += chunkSize {
		end := start + chunkSize
		if end > len(snaps) {
			end = len(snaps)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*13)
		for _, snap := range snaps[start:end] {
			if snap == nil || snap.Month == "" {
				continue
			}
			doc, err := json.Marshal(snap)
			if err != nil {
				return fmt.Errorf("marshal snapshot %s: %w", snap.Month, err)
			}
			var netWorthReal interface{}
			if snap.RealWealth != nil {
				netWorthReal = snap.RealWealth.NetWorthReal
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				snap.Month,
				snap.Totals.Assets,
				snap.Totals.Liabilities,
				snap.Totals.NetWorth,
				snap.CashFlow.Income,
				snap.CashFlow.Expenses,
				snap.CashFlow.NetCashFlow,
				snap.Performance.NominalReturn,
				snap.Performance.RealReturn,
				snap.Performance.TWRCumulative,
				netWorthReal,
				string(doc),
				updatedAt,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf(
			"INSERT INTO %s (month, assets, liabilities, net_worth, income, expenses, net_cash_flow, nominal_return, real_return, twr_cumulative, net_worth_real, doc, updated_at) VALUES %s",
			s.table, strings.Join(values, ","),
		)
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("store snapshots: %w", err)
		}
	}
	return nil
}

// Query returns snapshots for the month range [from, to] in ascending
// order, newest months first when trimmed by limit. Empty bounds mean
// unbounded.
func (s *CHHistoryStore) Query(ctx context.Context, from, to string, limit int) ([]*models.Snapshot, error) {
	started := time.Now()
	if to == "" {
		to = "9999-12"
	}
	if limit <= 0 {
		limit = 1000
	}
	q := fmt.Sprintf(`
        SELECT doc
        FROM %s FINAL
        WHERE month >= ? AND month <= ?
        ORDER BY month DESC
        LIMIT ?
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, from, to, limit)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse history query error",
				applogger.String("from", from),
				applogger.String("to", to),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	tmp := make([]*models.Snapshot, 0, limit)
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		var snap models.Snapshot
		if err := json.Unmarshal([]byte(doc), &snap); err != nil {
			return nil, fmt.Errorf("parse snapshot: %w", err)
		}
		tmp = append(tmp, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	// reverse to ASC
	for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	if s.l != nil {
		s.l.Info("clickhouse history query ok",
			applogger.Int("rows", len(tmp)),
			applogger.Duration("duration_ms", time.Since(started)),
		)
	}
	return tmp, nil
}

func (s *CHHistoryStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHHistoryStore) Close() error {
	return nil // Managed by pkg
}

var _ domrepo.HistoryStore = (*CHHistoryStore)(nil)
