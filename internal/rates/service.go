package rates

import (
	"time"

	"github.com/pkg/errors"
	"github.com/valutatrade/hub/internal/entities"
	"github.com/valutatrade/hub/internal/metrics"
)

// FallbackSource tags snapshot entries recomputed from the reference table.
const FallbackSource = "ReferenceTable"

// Service answers point-in-time rate lookups from the persisted snapshot,
// applying the freshness window and falling back to the static reference
// table when no fresh provider data covers a pair.
type Service struct {
	storage  Storage
	fallback map[string]float64
	ttl      time.Duration
	metrics  *metrics.Metrics

	now func() time.Time
}

func NewService(storage Storage, fallback map[string]float64, ttl time.Duration, m *metrics.Metrics) *Service {
	return &Service{
		storage:  storage,
		fallback: fallback,
		ttl:      ttl,
		metrics:  m,
		now:      time.Now,
	}
}

// GetRate returns the rate from one currency to another and the moment it was
// observed. Codes are validated against the registry before any storage
// access; an unknown code fails with *entities.CurrencyNotFoundError, a pair
// absent from both snapshot and reference table with
// *entities.RateUnavailableError.
func (s *Service) GetRate(from, to string) (float64, time.Time, error) {
	const op = "rates.GetRate"

	fromCurrency, err := entities.GetCurrency(from)
	if err != nil {
		return 0, time.Time{}, err
	}

	toCurrency, err := entities.GetCurrency(to)
	if err != nil {
		return 0, time.Time{}, err
	}

	if s.metrics != nil {
		s.metrics.RateLookupsTotal.Inc()
	}

	now := s.now().UTC()

	if fromCurrency.Code == toCurrency.Code {
		return 1.0, now, nil
	}

	pairKey := entities.PairKey(fromCurrency.Code, toCurrency.Code)

	snapshot, err := s.storage.LoadSnapshot()
	if err != nil {
		return 0, time.Time{}, errors.Wrap(err, op)
	}

	if entry, ok := snapshot.Pairs[pairKey]; ok {
		if now.Sub(entry.UpdatedAt) <= s.ttl {
			if s.metrics != nil {
				s.metrics.CacheHitsTotal.Inc()
			}
			return entry.Rate, entry.UpdatedAt, nil
		}
	}

	if s.metrics != nil {
		s.metrics.CacheMissesTotal.Inc()
	}

	valueFrom, okFrom := s.fallback[fromCurrency.Code]
	valueTo, okTo := s.fallback[toCurrency.Code]
	if !okFrom || !okTo {
		return 0, time.Time{}, &entities.RateUnavailableError{
			From: fromCurrency.Code,
			To:   toCurrency.Code,
		}
	}

	rate := valueFrom / valueTo

	entry := entities.SnapshotEntry{
		Rate:      rate,
		UpdatedAt: now,
		Source:    FallbackSource,
	}

	if err := s.storage.UpdatePair(pairKey, entry, FallbackSource); err != nil {
		return 0, time.Time{}, errors.Wrap(err, op)
	}

	if s.metrics != nil {
		s.metrics.FallbackComputationsTotal.Inc()
	}

	return rate, now, nil
}

// RateInfo is the forward and reverse rate for a pair in one call.
type RateInfo struct {
	From        string    `json:"from"`
	To          string    `json:"to"`
	Rate        float64   `json:"rate"`
	ReverseRate float64   `json:"reverse_rate"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (s *Service) GetRateInfo(from, to string) (*RateInfo, error) {
	rate, updatedAt, err := s.GetRate(from, to)
	if err != nil {
		return nil, err
	}

	reverseRate, _, err := s.GetRate(to, from)
	if err != nil {
		return nil, err
	}

	return &RateInfo{
		From:        normalizeCode(from),
		To:          normalizeCode(to),
		Rate:        rate,
		ReverseRate: reverseRate,
		UpdatedAt:   updatedAt,
	}, nil
}

// Convert prices an amount of one currency in another.
func (s *Service) Convert(from, to string, amount float64) (float64, float64, time.Time, error) {
	rate, updatedAt, err := s.GetRate(from, to)
	if err != nil {
		return 0, 0, time.Time{}, err
	}
	return amount * rate, rate, updatedAt, nil
}

func normalizeCode(code string) string {
	currency, err := entities.GetCurrency(code)
	if err != nil {
		return code
	}
	return currency.Code
}
