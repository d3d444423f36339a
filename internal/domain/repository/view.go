package repository

// View selects which measure the summary endpoints report.
type View string

const (
	ViewNominal         View = "nominal"
	ViewReal            View = "real"
	ViewPurchasingPower View = "purchasing_power"
)

// IsValidView returns true if v is a supported view.
func IsValidView(v View) bool {
	switch v {
	case ViewNominal, ViewReal, ViewPurchasingPower:
		return true
	default:
		return false
	}
}

// DefaultView returns the default view.
func DefaultView() View { return ViewNominal }

// NormalizeView converts a raw string to a valid view (or default). The
// spellings older clients used are accepted as aliases.
func NormalizeView(s string) View {
	switch s {
	case "":
		return DefaultView()
	case "inflation_adjusted":
		return ViewReal
	case "real_purchasing_power":
		return ViewPurchasingPower
	}
	v := View(s)
	if IsValidView(v) {
		return v
	}
	return DefaultView()
}
