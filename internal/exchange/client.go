// Package exchange fetches cross rates from the remote exchange-rate API.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"commerce-backoffice/internal/config"
	"commerce-backoffice/internal/domain"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	logger  zerolog.Logger
}

// New fails with domain.ErrConfiguration when the URL or key is missing.
func New(cfg config.RatesConfig, logger zerolog.Logger) (*Client, error) {
	if cfg.APIURL == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: rates api url and key are required", domain.ErrConfiguration)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: strings.TrimRight(cfg.APIURL, "/"),
		apiKey:  cfg.APIKey,
		logger:  logger,
	}, nil
}

type latestResponse struct {
	Result          string             `json:"result"`
	ErrorType       string             `json:"error-type"`
	BaseCode        string             `json:"base_code"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
}

// FetchRates returns the rates of every currency against base.
func (c *Client) FetchRates(ctx context.Context, base string) (map[string]float64, error) {
	base = strings.ToUpper(base)
	if !domain.ValidCurrencyCode(base) {
		return nil, domain.ErrInvalidCurrencyCode
	}
	endpoint := fmt.Sprintf("%s/%s/latest/%s", c.baseURL, c.apiKey, base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rates %s: %w", base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch rates %s: status %d", base, resp.StatusCode)
	}
	var out latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode rates %s: %w", base, err)
	}
	if out.Result != "" && out.Result != "success" {
		return nil, fmt.Errorf("fetch rates %s: %s", base, out.ErrorType)
	}
	if len(out.ConversionRates) == 0 {
		return nil, fmt.Errorf("fetch rates %s: empty table", base)
	}
	c.logger.Debug().Str("base", base).Int("rates", len(out.ConversionRates)).Msg("exchange: rates fetched")
	return out.ConversionRates, nil
}
