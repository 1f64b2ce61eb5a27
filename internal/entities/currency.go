package entities

import "strings"

type CurrencyKind string

const (
	KindFiat   CurrencyKind = "fiat"
	KindCrypto CurrencyKind = "crypto"
)

type Currency struct {
	Code           string
	Name           string
	Kind           CurrencyKind
	IssuingCountry string
	Algorithm      string
}

func (c Currency) IsCrypto() bool {
	return c.Kind == KindCrypto
}

// currencyRegistry is the set of codes the system knows how to trade.
var currencyRegistry = map[string]Currency{
	"USD": {Code: "USD", Name: "US Dollar", Kind: KindFiat, IssuingCountry: "United States"},
	"EUR": {Code: "EUR", Name: "Euro", Kind: KindFiat, IssuingCountry: "Eurozone"},
	"GBP": {Code: "GBP", Name: "Pound Sterling", Kind: KindFiat, IssuingCountry: "United Kingdom"},
	"RUB": {Code: "RUB", Name: "Russian Ruble", Kind: KindFiat, IssuingCountry: "Russia"},
	"JPY": {Code: "JPY", Name: "Japanese Yen", Kind: KindFiat, IssuingCountry: "Japan"},
	"BTC": {Code: "BTC", Name: "Bitcoin", Kind: KindCrypto, Algorithm: "SHA-256"},
	"ETH": {Code: "ETH", Name: "Ethereum", Kind: KindCrypto, Algorithm: "Ethash"},
	"SOL": {Code: "SOL", Name: "Solana", Kind: KindCrypto, Algorithm: "PoH"},
}

// GetCurrency normalizes a code and resolves it against the registry.
func GetCurrency(code string) (Currency, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))

	if len(normalized) < 2 || len(normalized) > 5 || strings.Contains(normalized, " ") {
		return Currency{}, &CurrencyNotFoundError{Code: normalized}
	}

	currency, ok := currencyRegistry[normalized]
	if !ok {
		return Currency{}, &CurrencyNotFoundError{Code: normalized}
	}

	return currency, nil
}
