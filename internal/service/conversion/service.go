// Package conversion keeps per-currency exchange-rate tables fresh and
// answers rate lookups.
package conversion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"commerce-backoffice/internal/domain"
	"commerce-backoffice/internal/telemetry"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type rateRepo interface {
	Get(ctx context.Context, base string) (*domain.RateTable, error)
	Replace(ctx context.Context, table domain.RateTable) error
	List(ctx context.Context) ([]domain.RateTable, error)
}

// Fetcher retrieves the current cross rates of a base currency.
type Fetcher interface {
	FetchRates(ctx context.Context, base string) (map[string]float64, error)
}

// Cache is a read-through cache in front of the rate tables.
type Cache interface {
	Get(ctx context.Context, base string) (*domain.RateTable, error)
	Set(ctx context.Context, table domain.RateTable) error
}

type Options struct {
	Base       string
	Currencies []string
	Interval   time.Duration
}

type Service struct {
	repo    rateRepo
	fetcher Fetcher
	cache   Cache
	opts    Options
	now     func() time.Time
	logger  zerolog.Logger
	metrics *telemetry.Metrics
}

// New builds the service. A nil cache disables caching; a nil fetcher makes
// RefreshIfDue fail with a configuration error.
func New(repo rateRepo, fetcher Fetcher, cache Cache, opts Options, logger zerolog.Logger, metrics *telemetry.Metrics) *Service {
	if cache == nil {
		cache = noCache{}
	}
	opts.Base = strings.ToUpper(opts.Base)
	if opts.Interval <= 0 {
		opts.Interval = 24 * time.Hour
	}
	return &Service{repo: repo, fetcher: fetcher, cache: cache, opts: opts, now: time.Now, logger: logger, metrics: metrics}
}

// Base is the configured system base currency.
func (s *Service) Base() string { return s.opts.Base }

// RefreshIfDue refreshes every traded currency when the table of base is
// missing or past its next update. It reports whether a refresh happened.
// Concurrent callers may both refresh; the last write wins.
func (s *Service) RefreshIfDue(ctx context.Context, base string) (bool, error) {
	if base == "" {
		base = s.opts.Base
	}
	base = strings.ToUpper(base)
	now := s.now().UTC()

	current, err := s.repo.Get(ctx, base)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}
	if !current.Due(now) {
		return false, nil
	}
	if s.fetcher == nil {
		return false, fmt.Errorf("exchange-rate fetcher: %w", domain.ErrConfiguration)
	}

	for _, code := range s.tradedCurrencies(base) {
		rates, err := s.fetcher.FetchRates(ctx, code)
		if err != nil {
			s.count("error")
			s.logger.Error().Err(err).Str("base", code).Msg("conversion: fetch rates")
			return false, fmt.Errorf("fetch rates for %s: %w", code, err)
		}
		table := domain.RateTable{Base: code, Rates: rates, LastUpdate: now, NextUpdate: now.Add(s.opts.Interval)}
		if err := s.repo.Replace(ctx, table); err != nil {
			s.count("error")
			return false, fmt.Errorf("store rates for %s: %w", code, err)
		}
		if err := s.cache.Set(ctx, table); err != nil {
			s.logger.Warn().Err(err).Str("base", code).Msg("conversion: cache set")
		}
	}
	s.count("refreshed")
	s.logger.Info().Str("base", base).Time("next_update", now.Add(s.opts.Interval)).Msg("conversion: rates refreshed")
	return true, nil
}

func (s *Service) tradedCurrencies(base string) []string {
	codes := make([]string, 0, len(s.opts.Currencies)+1)
	seen := map[string]struct{}{}
	for _, c := range append([]string{base}, s.opts.Currencies...) {
		c = strings.ToUpper(c)
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		codes = append(codes, c)
	}
	return codes
}

// Rate returns how many units of target one unit of base buys. It is 1 when
// both codes match, and also when no table or entry exists.
func (s *Service) Rate(ctx context.Context, target, base string) (decimal.Decimal, error) {
	target = strings.ToUpper(target)
	if base == "" {
		base = s.opts.Base
	}
	base = strings.ToUpper(base)
	if target == base {
		return decimal.NewFromInt(1), nil
	}
	if !domain.ValidCurrencyCode(target) {
		return decimal.Zero, fmt.Errorf("%w: %q", domain.ErrInvalidCurrencyCode, target)
	}

	table, err := s.Table(ctx, base)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return decimal.NewFromInt(1), nil
		}
		return decimal.Zero, err
	}
	rate, ok := table.Rates[target]
	if !ok {
		return decimal.NewFromInt(1), nil
	}
	return decimal.NewFromFloat(rate), nil
}

// Table returns the cached rate table of base.
func (s *Service) Table(ctx context.Context, base string) (*domain.RateTable, error) {
	base = strings.ToUpper(base)
	if t, err := s.cache.Get(ctx, base); err == nil && t != nil {
		return t, nil
	} else if err != nil {
		s.logger.Warn().Err(err).Str("base", base).Msg("conversion: cache get")
	}
	t, err := s.repo.Get(ctx, base)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, *t); err != nil {
		s.logger.Warn().Err(err).Str("base", base).Msg("conversion: cache set")
	}
	return t, nil
}

// Tables lists every stored table.
func (s *Service) Tables(ctx context.Context) ([]domain.RateTable, error) {
	return s.repo.List(ctx)
}

func (s *Service) count(result string) {
	if s.metrics != nil {
		s.metrics.RateRefreshes.WithLabelValues(result).Inc()
	}
}

type noCache struct{}

func (noCache) Get(context.Context, string) (*domain.RateTable, error) { return nil, nil }
func (noCache) Set(context.Context, domain.RateTable) error           { return nil }
