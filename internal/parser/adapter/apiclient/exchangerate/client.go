package exchangerate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/valutatrade/hub/deploy/config"
	"github.com/valutatrade/hub/internal/entities"
)

const SourceName = "ExchangeRate-API"

// Client fetches fiat rates from ExchangeRate-API. When the live response is
// missing a requested code, the static reference table supplies a last-known
// value and the entry is marked used_fallback.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	baseCurrency  string
	fiatCodes     []string
	fallbackTable map[string]float64
}

func New(cfg *config.Config) *Client {
	return &Client{
		httpClient:    &http.Client{Timeout: cfg.Providers.Timeout},
		baseURL:       strings.TrimRight(cfg.Providers.ExchangeRateURL, "/"),
		apiKey:        cfg.Providers.ExchangeRateAPIKey,
		baseCurrency:  strings.ToUpper(cfg.Rates.BaseCurrency),
		fiatCodes:     config.Split(cfg.Providers.FiatCurrencies),
		fallbackTable: cfg.Rates.Fallback(),
	}
}

func (c *Client) SourceName() string {
	return SourceName
}

type latestResponse struct {
	Result string             `json:"result"`
	Rates  map[string]float64 `json:"rates"`
}

func (c *Client) FetchRates(ctx context.Context) (map[string]entities.RateInfo, error) {
	if c.apiKey == "" {
		return nil, &entities.ProviderError{
			Source: SourceName,
			Err:    errors.New("EXCHANGERATE_API_KEY is not set"),
		}
	}

	url := fmt.Sprintf("%s/%s/latest/%s", c.baseURL, c.apiKey, c.baseCurrency)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &entities.ProviderError{Source: SourceName, Err: err}
	}

	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &entities.ProviderError{Source: SourceName, Err: err}
	}
	defer resp.Body.Close()

	elapsedMS := time.Since(start).Milliseconds()

	if resp.StatusCode != http.StatusOK {
		return nil, &entities.ProviderError{
			Source: SourceName,
			Err:    fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var payload latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &entities.ProviderError{Source: SourceName, Err: err}
	}

	// Business-level failure is distinct from transport failure but still
	// makes the provider unavailable for this cycle.
	if payload.Result != "success" {
		return nil, &entities.ProviderError{
			Source: SourceName,
			Err:    fmt.Errorf("result is not success: %q", payload.Result),
		}
	}

	etag := resp.Header.Get("ETag")

	result := make(map[string]entities.RateInfo, len(c.fiatCodes))
	for _, code := range c.fiatCodes {
		if code == c.baseCurrency {
			continue
		}

		value, ok := payload.Rates[code]
		usedFallback := false

		if !ok {
			fallback, hasFallback := c.fallbackTable[code]
			if !hasFallback {
				// Neither live nor reference data; skip the code rather
				// than fail the whole call.
				continue
			}
			value = fallback
			usedFallback = true
		}

		pairKey := entities.PairKey(code, c.baseCurrency)
		result[pairKey] = entities.RateInfo{
			Rate:   value,
			Source: SourceName,
			Meta: entities.ProviderMeta{
				RawID:        code,
				RequestMS:    elapsedMS,
				StatusCode:   resp.StatusCode,
				ETag:         etag,
				UsedFallback: usedFallback,
			},
		}
	}

	return result, nil
}
