package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"WorthWatch/internal/domain/models"
	applogger "WorthWatch/pkg/logger"
	"WorthWatch/pkg/util"
)

// FSLedger implements Ledger over plain JSON files: a settings document at
// the ledger root and one database/YYYY_MM.json per month. The files are
// the system of record and stay hand-editable.
type FSLedger struct {
	dir          string
	settingsFile string
	validate     *validator.Validate
	l            *applogger.Logger
}

func NewFSLedger(dir, settingsFile string) *FSLedger {
	if settingsFile == "" {
		settingsFile = "settings.json"
	}
	return &FSLedger{
		dir:          dir,
		settingsFile: settingsFile,
		validate:     validator.New(),
	}
}

// SetLogger injects a structured logger.
func (r *FSLedger) SetLogger(l *applogger.Logger) { r.l = l }

func (r *FSLedger) databaseDir() string { return filepath.Join(r.dir, "database") }

func (r *FSLedger) LoadSettings(ctx context.Context) (*models.Settings, error) {
	path := filepath.Join(r.dir, r.settingsFile)
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var s models.Settings
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	if err := defaults.Set(&s); err != nil {
		return nil, fmt.Errorf("apply settings defaults: %w", err)
	}
	if err := r.validate.StructCtx(ctx, &s); err != nil {
		return nil, fmt.Errorf("validate settings: %w", err)
	}
	return &s, nil
}

// Months lists the month keys present in the database directory, ascending.
// Files that do not look like month documents are ignored.
func (r *FSLedger) Months(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(r.databaseDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read ledger dir: %w", err)
	}

	months := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if m, ok := util.MonthFromFileName(e.Name()); ok {
			months = append(months, m)
		}
	}
	sort.Strings(months)
	return months, nil
}

func (r *FSLedger) LoadMonth(ctx context.Context, month string) (*models.MonthInput, error) {
	m, err := util.ParseMonth(month)
	if err != nil {
		return nil, err
	}
	b, err := r.LoadMonthRaw(ctx, m)
	if err != nil {
		return nil, err
	}

	var in models.MonthInput
	if err := json.Unmarshal(b, &in); err != nil {
		return nil, fmt.Errorf("parse month %s: %w", m, err)
	}
	if in.Month == "" {
		in.Month = m
	} else if normalized, err := util.ParseMonth(in.Month); err != nil || normalized != m {
		return nil, fmt.Errorf("month document %s declares month %q", m, in.Month)
	} else {
		in.Month = normalized
	}
	return &in, nil
}

func (r *FSLedger) LoadMonthRaw(ctx context.Context, month string) ([]byte, error) {
	m, err := util.ParseMonth(month)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(filepath.Join(r.databaseDir(), util.MonthFileName(m)))
	if err != nil {
		return nil, fmt.Errorf("read month %s: %w", m, err)
	}
	return b, nil
}

// SaveMonth writes the document via a temp file and rename, so a crash
// mid-write never leaves a truncated month behind.
func (r *FSLedger) SaveMonth(ctx context.Context, in *models.MonthInput) error {
	if in == nil {
		return fmt.Errorf("month document is required")
	}
	m, err := util.ParseMonth(in.Month)
	if err != nil {
		return err
	}

	doc := *in
	doc.Month = m
	if doc.FXRates == nil {
		doc.FXRates = map[string]float64{}
	}
	if doc.CashFlowEntries == nil {
		doc.CashFlowEntries = []models.CashFlowEntry{}
	}
	if doc.NetWorthEntries == nil {
		doc.NetWorthEntries = []models.NetWorthEntry{}
	}

	if err := os.MkdirAll(r.databaseDir(), 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}
	b, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal month %s: %w", m, err)
	}
	b = append(b, '\n')

	path := filepath.Join(r.databaseDir(), util.MonthFileName(m))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write month %s: %w", m, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("persist month %s: %w", m, err)
	}

	if r.l != nil {
		r.l.Info("month saved", applogger.String("month", m), applogger.Int("bytes", len(b)))
	}
	return nil
}
