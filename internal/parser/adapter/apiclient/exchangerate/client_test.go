package exchangerate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/valutatrade/hub/deploy/config"
	"github.com/valutatrade/hub/internal/entities"
)

func testConfig(url, apiKey string) *config.Config {
	return &config.Config{
		Providers: config.Providers{
			ExchangeRateURL:    url,
			ExchangeRateAPIKey: apiKey,
			FiatCurrencies:     "EUR,GBP,RUB",
			Timeout:            2 * time.Second,
		},
		Rates: config.Rates{
			BaseCurrency:  "USD",
			FallbackTable: "USD:1.0,EUR:1.1,RUB:0.011",
		},
	}
}

func TestFetchRatesMissingAPIKey(t *testing.T) {
	client := New(testConfig("http://unused", ""))

	_, err := client.FetchRates(context.Background())

	var provErr *entities.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("got %v, want ProviderError", err)
	}
}

func TestFetchRatesWithFallback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"result": "success",
			"rates": {"EUR": 0.92, "GBP": 0.79}
		}`))
	}))
	defer ts.Close()

	client := New(testConfig(ts.URL, "test-key"))

	result, err := client.FetchRates(context.Background())
	if err != nil {
		t.Fatalf("FetchRates: %v", err)
	}

	if len(result) != 3 {
		t.Fatalf("got %d pairs, want 3: %v", len(result), result)
	}

	eur := result["EUR_USD"]
	if eur.Rate != 0.92 || eur.Meta.UsedFallback {
		t.Errorf("live EUR entry wrong: %+v", eur)
	}

	// RUB is absent from the live response: the static reference table
	// supplies the value and the entry is flagged.
	rub, ok := result["RUB_USD"]
	if !ok {
		t.Fatal("missing RUB_USD fallback entry")
	}
	if rub.Rate != 0.011 || !rub.Meta.UsedFallback {
		t.Errorf("fallback RUB entry wrong: %+v", rub)
	}
	if rub.Meta.StatusCode != http.StatusOK {
		t.Errorf("fallback entries still report the response status, got %d", rub.Meta.StatusCode)
	}
}

func TestFetchRatesSkipsCodeWithoutAnyData(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result": "success", "rates": {"EUR": 0.92, "RUB": 90.1}}`))
	}))
	defer ts.Close()

	cfg := testConfig(ts.URL, "test-key")
	cfg.Rates.FallbackTable = "USD:1.0"
	client := New(cfg)

	result, err := client.FetchRates(context.Background())
	if err != nil {
		t.Fatalf("FetchRates: %v", err)
	}

	// GBP is neither in the response nor in the reference table.
	if _, ok := result["GBP_USD"]; ok {
		t.Error("GBP should be skipped, not fabricated")
	}
	if len(result) != 2 {
		t.Errorf("got %d pairs, want 2: %v", len(result), result)
	}
}

func TestFetchRatesBusinessFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result": "error", "error-type": "invalid-key"}`))
	}))
	defer ts.Close()

	client := New(testConfig(ts.URL, "bad-key"))

	_, err := client.FetchRates(context.Background())

	var provErr *entities.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("got %v, want ProviderError", err)
	}
}

func TestFetchRatesNon200(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	client := New(testConfig(ts.URL, "test-key"))

	if _, err := client.FetchRates(context.Background()); err == nil {
		t.Fatal("expected error on non-200 status")
	}
}
