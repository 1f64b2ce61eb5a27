package entities

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrUsernameTaken  = errors.New("username already taken")
	ErrWalletNotFound = errors.New("wallet not found")
)

type CurrencyNotFoundError struct {
	Code string
}

func (e *CurrencyNotFoundError) Error() string {
	return fmt.Sprintf("unknown currency '%s'", e.Code)
}

// ProviderError marks one external source as unavailable for this cycle:
// transport failure, timeout, non-2xx status or a business-level failure code.
type ProviderError struct {
	Source string
	Err    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s unavailable: %v", e.Source, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

type RateUnavailableError struct {
	From string
	To   string
}

func (e *RateUnavailableError) Error() string {
	return fmt.Sprintf("rate %s->%s unavailable", e.From, e.To)
}

type InsufficientFundsError struct {
	Available float64
	Required  float64
	Code      string
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: available %.4f %s, required %.4f %s",
		e.Available, e.Code, e.Required, e.Code)
}
