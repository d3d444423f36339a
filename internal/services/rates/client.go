package rates

import (
	"context"
	"fmt"
	"strings"
	"time"

	domsvc "WorthWatch/internal/domain/service"
	"WorthWatch/pkg/config"
	xhttp "WorthWatch/pkg/http"
	applogger "WorthWatch/pkg/logger"
	"WorthWatch/pkg/util"
)

// Client fetches month-end FX tables from a frankfurter-compatible rates
// API: GET <base_url>/<YYYY-MM-DD>?base=XXX.
type Client struct {
	baseURL string
	apiKey  string
	http    *xhttp.Client
	log     *applogger.Logger
}

func NewClient(cfg *config.Config, log *applogger.Logger) *Client {
	timeout := cfg.Rates.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.Rates.BaseURL, "/"),
		apiKey:  cfg.Rates.APIKey,
		http:    xhttp.NewClient(xhttp.WithTimeout(timeout)),
		log:     log,
	}
}

type ratesResponse struct {
	Base  string             `json:"base"`
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

// FetchRates returns the FX table observed at the end of the month, quoted
// against base. The base currency itself always maps to 1.0.
func (c *Client) FetchRates(ctx context.Context, base, month string) (map[string]float64, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("rates client not configured")
	}
	base = strings.ToUpper(strings.TrimSpace(base))
	if base == "" {
		return nil, fmt.Errorf("base currency is required")
	}
	m, err := util.ParseMonth(month)
	if err != nil {
		return nil, err
	}

	headers := map[string]string{}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	var rr ratesResponse
	err = c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         fmt.Sprintf("%s/%s", c.baseURL, monthEnd(m)),
		Headers:     headers,
		QueryParams: map[string][]string{"base": {base}},
	}, &rr)
	if err != nil {
		return nil, fmt.Errorf("fetch rates for %s: %w", m, err)
	}
	if len(rr.Rates) == 0 {
		return nil, fmt.Errorf("fetch rates for %s: empty table", m)
	}

	// Providers quote foreign units per 1 base; the ledger stores the
	// inverse, base units per 1 foreign unit.
	rates := make(map[string]float64, len(rr.Rates)+1)
	for code, rate := range rr.Rates {
		if rate <= 0 {
			if c.log != nil {
				c.log.Warn("skipping non-positive fx quote",
					applogger.String("currency", code),
					applogger.String("month", m),
				)
			}
			continue
		}
		rates[strings.ToUpper(code)] = 1 / rate
	}
	rates[base] = 1.0

	if c.log != nil {
		c.log.Debug("fetched fx rates",
			applogger.String("month", m),
			applogger.Int("currencies", len(rates)),
		)
	}
	return rates, nil
}

// monthEnd maps a month key to its last calendar day, the reading the
// ledger snapshots against.
func monthEnd(month string) string {
	t, _ := time.Parse("2006-01", month)
	return t.AddDate(0, 1, -1).Format("2006-01-02")
}

var _ domsvc.RateSource = (*Client)(nil)
