package updater

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/valutatrade/hub/internal/entities"
)

type MockProvider struct {
	Name           string
	FetchRatesFunc func(ctx context.Context) (map[string]entities.RateInfo, error)
	Calls          int
}

func (m *MockProvider) SourceName() string {
	return m.Name
}

func (m *MockProvider) FetchRates(ctx context.Context) (map[string]entities.RateInfo, error) {
	m.Calls++
	return m.FetchRatesFunc(ctx)
}

type MockStorage struct {
	SaveSnapshotFunc  func(pairs map[string]entities.RateInfo, lastRefresh time.Time, source string) error
	AppendHistoryFunc func(entries []entities.HistoryEntry) error

	SavedPairs   map[string]entities.RateInfo
	SavedRefresh time.Time
	SavedSource  string
	History      []entities.HistoryEntry
	SaveCalls    int
	AppendCalls  int
}

func (m *MockStorage) SaveSnapshot(pairs map[string]entities.RateInfo, lastRefresh time.Time, source string) error {
	m.SaveCalls++
	m.SavedPairs = pairs
	m.SavedRefresh = lastRefresh
	m.SavedSource = source
	if m.SaveSnapshotFunc != nil {
		return m.SaveSnapshotFunc(pairs, lastRefresh, source)
	}
	return nil
}

func (m *MockStorage) AppendHistory(entries []entities.HistoryEntry) error {
	m.AppendCalls++
	m.History = append(m.History, entries...)
	if m.AppendHistoryFunc != nil {
		return m.AppendHistoryFunc(entries)
	}
	return nil
}

type MockEvents struct {
	Published []entities.UpdateReport
}

func (m *MockEvents) PublishUpdated(_ context.Context, report entities.UpdateReport) error {
	m.Published = append(m.Published, report)
	return nil
}

func ratesResult(pairs map[string]entities.RateInfo) func(ctx context.Context) (map[string]entities.RateInfo, error) {
	return func(ctx context.Context) (map[string]entities.RateInfo, error) {
		return pairs, nil
	}
}

func ratesFailure(source string, reason string) func(ctx context.Context) (map[string]entities.RateInfo, error) {
	return func(ctx context.Context) (map[string]entities.RateInfo, error) {
		return nil, &entities.ProviderError{Source: source, Err: errors.New(reason)}
	}
}

func TestRunUpdatePartialFailure(t *testing.T) {
	crypto := &MockProvider{
		Name: "CoinGecko",
		FetchRatesFunc: ratesResult(map[string]entities.RateInfo{
			"BTC_USD": {Rate: 60000, Source: "CoinGecko"},
			"ETH_USD": {Rate: 3000, Source: "CoinGecko"},
		}),
	}
	fiat := &MockProvider{
		Name:           "ExchangeRate-API",
		FetchRatesFunc: ratesFailure("ExchangeRate-API", "connection refused"),
	}

	storage := &MockStorage{}
	events := &MockEvents{}
	u := New(storage, []Provider{crypto, fiat}, events, nil, time.Minute)

	report, err := u.RunUpdate(context.Background(), "")
	if err != nil {
		t.Fatalf("RunUpdate: %v", err)
	}

	// Partial success: data written and errors reported at the same time.
	if report.TotalRates != 2 {
		t.Errorf("got TotalRates %d, want 2", report.TotalRates)
	}
	if len(report.Errors) != 1 {
		t.Fatalf("got %d errors, want 1", len(report.Errors))
	}
	want := "Failed to fetch from ExchangeRate-API: connection refused"
	if report.Errors[0] != want {
		t.Errorf("got error %q, want %q", report.Errors[0], want)
	}

	if storage.SaveCalls != 1 || storage.AppendCalls != 1 {
		t.Errorf("got %d saves and %d appends, want 1 and 1", storage.SaveCalls, storage.AppendCalls)
	}
	if len(storage.SavedPairs) != 2 {
		t.Errorf("snapshot should hold only the successful provider's pairs, got %v", storage.SavedPairs)
	}
	if len(events.Published) != 1 {
		t.Errorf("expected one published update event, got %d", len(events.Published))
	}
}

func TestRunUpdateMergeTieBreak(t *testing.T) {
	first := &MockProvider{
		Name: "CoinGecko",
		FetchRatesFunc: ratesResult(map[string]entities.RateInfo{
			"BTC_USD": {Rate: 60000, Source: "CoinGecko"},
		}),
	}
	second := &MockProvider{
		Name: "ExchangeRate-API",
		FetchRatesFunc: ratesResult(map[string]entities.RateInfo{
			"BTC_USD": {Rate: 60123, Source: "ExchangeRate-API"},
		}),
	}

	storage := &MockStorage{}
	u := New(storage, []Provider{first, second}, nil, nil, time.Minute)

	report, err := u.RunUpdate(context.Background(), "")
	if err != nil {
		t.Fatalf("RunUpdate: %v", err)
	}
	if report.TotalRates != 1 {
		t.Fatalf("got TotalRates %d, want 1", report.TotalRates)
	}

	// Later provider in configured order wins the pair.
	entry := storage.SavedPairs["BTC_USD"]
	if entry.Source != "ExchangeRate-API" || entry.Rate != 60123 {
		t.Errorf("got %+v, want the later provider's entry", entry)
	}
}

func TestRunUpdateNothingUpdated(t *testing.T) {
	failing := &MockProvider{
		Name:           "CoinGecko",
		FetchRatesFunc: ratesFailure("CoinGecko", "timeout"),
	}

	storage := &MockStorage{}
	events := &MockEvents{}
	u := New(storage, []Provider{failing}, events, nil, time.Minute)

	report, err := u.RunUpdate(context.Background(), "")
	if err != nil {
		t.Fatalf("RunUpdate: %v", err)
	}
	if report.TotalRates != 0 {
		t.Errorf("got TotalRates %d, want 0", report.TotalRates)
	}
	if len(report.Errors) != 1 {
		t.Errorf("got %d errors, want 1", len(report.Errors))
	}
	if storage.SaveCalls != 0 || storage.AppendCalls != 0 {
		t.Error("empty cycle must not touch storage")
	}
	if len(events.Published) != 0 {
		t.Error("empty cycle must not publish an update event")
	}
}

func TestRunUpdateSourceFilter(t *testing.T) {
	crypto := &MockProvider{
		Name: "CoinGecko",
		FetchRatesFunc: ratesResult(map[string]entities.RateInfo{
			"BTC_USD": {Rate: 60000, Source: "CoinGecko"},
		}),
	}
	fiat := &MockProvider{
		Name: "ExchangeRate-API",
		FetchRatesFunc: ratesResult(map[string]entities.RateInfo{
			"EUR_USD": {Rate: 1.1, Source: "ExchangeRate-API"},
		}),
	}

	storage := &MockStorage{}
	u := New(storage, []Provider{crypto, fiat}, nil, nil, time.Minute)

	// Case-insensitive substring match against the source name.
	report, err := u.RunUpdate(context.Background(), "GECKO")
	if err != nil {
		t.Fatalf("RunUpdate: %v", err)
	}

	if crypto.Calls != 1 {
		t.Error("matching provider was not invoked")
	}
	if fiat.Calls != 0 {
		t.Error("filtered-out provider was invoked")
	}
	if report.TotalRates != 1 {
		t.Errorf("got TotalRates %d, want 1", report.TotalRates)
	}
}

func TestRunUpdateSingleCycleTimestamp(t *testing.T) {
	crypto := &MockProvider{
		Name: "CoinGecko",
		FetchRatesFunc: ratesResult(map[string]entities.RateInfo{
			"BTC_USD": {Rate: 60000, Source: "CoinGecko"},
			"ETH_USD": {Rate: 3000, Source: "CoinGecko"},
		}),
	}

	storage := &MockStorage{}
	u := New(storage, []Provider{crypto}, nil, nil, time.Minute)

	report, err := u.RunUpdate(context.Background(), "")
	if err != nil {
		t.Fatalf("RunUpdate: %v", err)
	}

	if !storage.SavedRefresh.Equal(report.LastRefresh) {
		t.Error("snapshot refresh timestamp differs from the report's")
	}
	for _, entry := range storage.History {
		if !entry.Timestamp.Equal(report.LastRefresh) {
			t.Errorf("history entry %s stamped %v, want %v", entry.ID, entry.Timestamp, report.LastRefresh)
		}
		wantID := entities.HistoryID(entry.FromCurrency, entry.ToCurrency, report.LastRefresh)
		if entry.ID != wantID {
			t.Errorf("got id %q, want %q", entry.ID, wantID)
		}
	}
}

func TestRunUpdateStorageFailureIsHard(t *testing.T) {
	crypto := &MockProvider{
		Name: "CoinGecko",
		FetchRatesFunc: ratesResult(map[string]entities.RateInfo{
			"BTC_USD": {Rate: 60000, Source: "CoinGecko"},
		}),
	}

	storage := &MockStorage{
		SaveSnapshotFunc: func(map[string]entities.RateInfo, time.Time, string) error {
			return errors.New("disk full")
		},
	}
	u := New(storage, []Provider{crypto}, nil, nil, time.Minute)

	if _, err := u.RunUpdate(context.Background(), ""); err == nil {
		t.Fatal("expected storage failure to propagate")
	}
}
