package coingecko

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"context"

	"github.com/valutatrade/hub/deploy/config"
	"github.com/valutatrade/hub/internal/entities"
)

const SourceName = "CoinGecko"

// Client fetches crypto rates from the CoinGecko simple-price endpoint and
// normalizes them into pair-keyed results against the base currency.
type Client struct {
	httpClient   *http.Client
	url          string
	baseCurrency string
	cryptoCodes  []string
	idByCode     map[string]string
}

func New(cfg *config.Config) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: cfg.Providers.Timeout},
		url:          cfg.Providers.CoinGeckoURL,
		baseCurrency: strings.ToUpper(cfg.Rates.BaseCurrency),
		cryptoCodes:  config.Split(cfg.Providers.CryptoCurrencies),
		idByCode:     config.SplitMap(cfg.Providers.CryptoIDMap),
	}
}

func (c *Client) SourceName() string {
	return SourceName
}

func (c *Client) FetchRates(ctx context.Context) (map[string]entities.RateInfo, error) {
	ids := make([]string, 0, len(c.cryptoCodes))
	codeByID := make(map[string]string, len(c.cryptoCodes))

	// Codes without a CoinGecko id are skipped, not failed.
	for _, code := range c.cryptoCodes {
		coinID, ok := c.idByCode[code]
		if !ok {
			continue
		}
		ids = append(ids, coinID)
		codeByID[coinID] = code
	}

	if len(ids) == 0 {
		return map[string]entities.RateInfo{}, nil
	}

	apiURL, err := url.Parse(c.url)
	if err != nil {
		return nil, &entities.ProviderError{Source: SourceName, Err: err}
	}

	q := apiURL.Query()
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", strings.ToLower(c.baseCurrency))
	apiURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL.String(), nil)
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

	var payload map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &entities.ProviderError{Source: SourceName, Err: err}
	}

	etag := resp.Header.Get("ETag")
	baseKey := strings.ToLower(c.baseCurrency)

	result := make(map[string]entities.RateInfo, len(payload))
	for coinID, prices := range payload {
		code, ok := codeByID[coinID]
		if !ok {
			continue
		}

		rate, ok := prices[baseKey]
		if !ok {
			continue
		}

		pairKey := entities.PairKey(code, c.baseCurrency)
		result[pairKey] = entities.RateInfo{
			Rate:   rate,
			Source: SourceName,
			Meta: entities.ProviderMeta{
				RawID:      coinID,
				RequestMS:  elapsedMS,
				StatusCode: resp.StatusCode,
				ETag:       etag,
			},
		}
	}

	return result, nil
}
