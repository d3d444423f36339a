package pipeline

import "fmt"

// Input errors are fatal: a dashboard is built from all months or none.
// Data quality findings that do not change totals become snapshot warnings
// instead (see UnmappedCategoryError).

// DuplicateMonthError reports two ledger documents claiming the same month.
type DuplicateMonthError struct {
	Month string
}

func (e *DuplicateMonthError) Error() string {
	return fmt.Sprintf("duplicate month %q in ledger", e.Month)
}

// MalformedMonthError reports a month document the build cannot interpret.
type MalformedMonthError struct {
	Month  string
	Reason string
}

func (e *MalformedMonthError) Error() string {
	return fmt.Sprintf("malformed month %q: %s", e.Month, e.Reason)
}

// MissingRateError reports an entry currency with no rate in the month's FX
// table. Guessing a rate would silently skew totals, so the build stops.
type MissingRateError struct {
	Month    string
	Currency string
}

func (e *MissingRateError) Error() string {
	return fmt.Sprintf("month %s: no fx rate for currency %q", e.Month, e.Currency)
}

// MissingIndexError reports an absent HICP reading for a month while
// inflation normalization is enabled.
type MissingIndexError struct {
	Month string
}

func (e *MissingIndexError) Error() string {
	return fmt.Sprintf("month %s: hicp index required but absent", e.Month)
}

// UnmappedCategoryError describes an entry whose kind is in no configured
// bucket. It is recoverable: the entry is excluded and the month carries
// the warning.
type UnmappedCategoryError struct {
	Month string
	Kind  string
	Entry string
}

func (e *UnmappedCategoryError) Error() string {
	return fmt.Sprintf("unmapped category %q for entry %q: excluded from totals", e.Kind, e.Entry)
}
