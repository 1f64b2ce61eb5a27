package updater

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/valutatrade/hub/internal/entities"
	"github.com/valutatrade/hub/internal/metrics"
)

// SourceName stamped on the snapshot document when the aggregator writes it.
const SourceName = "ParserService"

// Updater drives all configured providers for one refresh cycle and merges
// their results. Provider failures are soft: the cycle continues and the
// errors are carried in the report. Storage failures are hard.
type Updater struct {
	storage   Storage
	providers []Provider
	events    Events
	metrics   *metrics.Metrics
	interval  time.Duration
}

// New builds an updater. The providers slice order is the merge precedence:
// when two providers report the same pair, the later one wins.
func New(storage Storage, providers []Provider, events Events, m *metrics.Metrics, interval time.Duration) *Updater {
	return &Updater{
		storage:   storage,
		providers: providers,
		events:    events,
		metrics:   m,
		interval:  interval,
	}
}

// RunUpdate performs one aggregation cycle, optionally restricted to sources
// whose name contains sourceFilter (case-insensitive).
func (u *Updater) RunUpdate(ctx context.Context, sourceFilter string) (entities.UpdateReport, error) {
	const op = "updater.RunUpdate"

	slog.Info("Starting rates update", "filter", sourceFilter)

	// One reference timestamp for the whole cycle keeps snapshot and history
	// internally consistent even though providers are queried sequentially.
	now := time.Now().UTC()

	allPairs := make(map[string]entities.RateInfo)
	var errs []string

	for _, provider := range u.providers {
		nameLower := strings.ToLower(provider.SourceName())
		if sourceFilter != "" && !strings.Contains(nameLower, strings.ToLower(sourceFilter)) {
			continue
		}

		slog.Info("Fetching rates", "source", provider.SourceName())

		result, err := provider.FetchRates(ctx)
		if err != nil {
			reason := err.Error()
			var provErr *entities.ProviderError
			if errors.As(err, &provErr) {
				reason = provErr.Err.Error()
			}

			msg := fmt.Sprintf("Failed to fetch from %s: %s", provider.SourceName(), reason)
			slog.Error(msg)
			errs = append(errs, msg)

			if u.metrics != nil {
				u.metrics.ProviderFailuresTotal.WithLabelValues(provider.SourceName()).Inc()
			}
			continue
		}

		slog.Info("Fetched rates", "source", provider.SourceName(), "count", len(result))

		for pairKey, info := range result {
			allPairs[pairKey] = info
		}
	}

	report := entities.UpdateReport{
		TotalRates:  len(allPairs),
		LastRefresh: now,
		Errors:      errs,
	}

	if len(allPairs) == 0 {
		slog.Warn("No rates were updated")
		return report, nil
	}

	history := make([]entities.HistoryEntry, 0, len(allPairs))
	for pairKey, info := range allPairs {
		from, to := entities.SplitPairKey(pairKey)
		history = append(history, entities.HistoryEntry{
			ID:           entities.HistoryID(from, to, now),
			FromCurrency: from,
			ToCurrency:   to,
			Rate:         info.Rate,
			Timestamp:    now,
			Source:       info.Source,
			Meta:         info.Meta,
		})
	}

	if err := u.storage.SaveSnapshot(allPairs, now, SourceName); err != nil {
		return entities.UpdateReport{}, errors.Wrap(err, op)
	}

	if err := u.storage.AppendHistory(history); err != nil {
		return entities.UpdateReport{}, errors.Wrap(err, op)
	}

	if u.metrics != nil {
		u.metrics.UpdateCyclesTotal.Inc()
		u.metrics.RatesWrittenTotal.Add(float64(len(allPairs)))
	}

	if u.events != nil {
		if err := u.events.PublishUpdated(ctx, report); err != nil {
			slog.Error("Failed to publish update event", "error", err)
		}
	}

	if len(errs) > 0 {
		slog.Info("Update completed with errors", "written", len(allPairs), "errors", len(errs))
	} else {
		slog.Info("Update successful", "written", len(allPairs))
	}

	return report, nil
}

// Start refreshes immediately, then on every tick until the context ends.
func (u *Updater) Start(ctx context.Context) error {
	const op = "updater.Start"

	if _, err := u.RunUpdate(ctx, ""); err != nil {
		slog.Error("Startup rates update failed", "error", err)
	}

	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := u.RunUpdate(ctx, ""); err != nil {
				slog.Error("Scheduled rates update failed", "error", err)
			}
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), op)
		}
	}
}
