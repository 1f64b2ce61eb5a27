package entities

import (
	"errors"
	"testing"
)

func TestGetCurrency(t *testing.T) {
	testCases := []struct {
		name     string
		code     string
		wantCode string
		wantErr  bool
	}{
		{name: "known fiat", code: "USD", wantCode: "USD"},
		{name: "known crypto", code: "BTC", wantCode: "BTC"},
		{name: "lowercase normalized", code: "eur", wantCode: "EUR"},
		{name: "surrounding spaces", code: "  gbp ", wantCode: "GBP"},
		{name: "unknown code", code: "XYZ", wantErr: true},
		{name: "too short", code: "A", wantErr: true},
		{name: "too long", code: "ABCDEF", wantErr: true},
		{name: "empty", code: "", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			currency, err := GetCurrency(tc.code)

			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got currency %+v", tc.code, currency)
				}
				var notFound *CurrencyNotFoundError
				if !errors.As(err, &notFound) {
					t.Fatalf("expected CurrencyNotFoundError, got %T", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if currency.Code != tc.wantCode {
				t.Errorf("got code %q, want %q", currency.Code, tc.wantCode)
			}
		})
	}
}

func TestGetCurrencyKinds(t *testing.T) {
	btc, err := GetCurrency("BTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !btc.IsCrypto() {
		t.Error("BTC should be crypto")
	}

	usd, err := GetCurrency("USD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if usd.IsCrypto() {
		t.Error("USD should not be crypto")
	}
}
