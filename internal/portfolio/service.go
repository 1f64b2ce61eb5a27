package portfolio

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/valutatrade/hub/internal/entities"
	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 4

var (
	ErrEmptyUsername    = errors.New("username must not be empty")
	ErrPasswordTooShort = errors.New("password is too short")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrInvalidAmount    = errors.New("amount must be positive")
)

// Service implements the account and wallet operations layered on top of
// rate lookups: register, login, buy, sell, portfolio summary.
type Service struct {
	storage      Storage
	rates        RateSource
	baseCurrency string
}

func NewService(storage Storage, rates RateSource, baseCurrency string) *Service {
	return &Service{
		storage:      storage,
		rates:        rates,
		baseCurrency: strings.ToUpper(baseCurrency),
	}
}

func (s *Service) Register(ctx context.Context, username, password string) (*entities.User, error) {
	const op = "portfolio.Register"

	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrEmptyUsername
	}
	if len(password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}

	user, err := s.storage.CreateUser(ctx, username, string(hashed))
	if err != nil {
		return nil, err
	}

	slog.Info("User registered", "username", username, "user_id", user.ID)

	return user, nil
}

func (s *Service) Login(ctx context.Context, username, password string) (*entities.User, error) {
	user, err := s.storage.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return nil, ErrInvalidPassword
	}

	return user, nil
}

// OperationResult reports one buy or sell with the rate used to price it.
type OperationResult struct {
	Currency       string    `json:"currency"`
	Amount         float64   `json:"amount"`
	OldBalance     float64   `json:"old_balance"`
	NewBalance     float64   `json:"new_balance"`
	Rate           float64   `json:"rate"`
	BaseCurrency   string    `json:"base_currency"`
	EstimatedValue float64   `json:"estimated_value"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (s *Service) Buy(ctx context.Context, userID int64, currencyCode string, amount float64) (*OperationResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.trade(ctx, userID, currencyCode, amount)
}

func (s *Service) Sell(ctx context.Context, userID int64, currencyCode string, amount float64) (*OperationResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.trade(ctx, userID, currencyCode, -amount)
}

func (s *Service) trade(ctx context.Context, userID int64, currencyCode string, delta float64) (*OperationResult, error) {
	amount := delta
	if amount < 0 {
		amount = -amount
	}

	currency, err := entities.GetCurrency(currencyCode)
	if err != nil {
		return nil, err
	}

	oldBalance, newBalance, err := s.storage.AdjustBalance(ctx, userID, currency.Code, delta)
	if err != nil {
		return nil, err
	}

	rate, updatedAt, err := s.rates.GetRate(currency.Code, s.baseCurrency)
	if err != nil {
		return nil, err
	}

	return &OperationResult{
		Currency:       currency.Code,
		Amount:         amount,
		OldBalance:     oldBalance,
		NewBalance:     newBalance,
		Rate:           rate,
		BaseCurrency:   s.baseCurrency,
		EstimatedValue: amount * rate,
		UpdatedAt:      updatedAt,
	}, nil
}

type SummaryItem struct {
	Currency    string  `json:"currency"`
	Balance     float64 `json:"balance"`
	ValueInBase float64 `json:"value_in_base"`
}

type Summary struct {
	UserID       int64         `json:"user_id"`
	BaseCurrency string        `json:"base_currency"`
	Items        []SummaryItem `json:"items"`
	Total        float64       `json:"total"`
}

// GetSummary values every wallet in the given base currency. Wallets whose
// rate is unavailable are valued at zero rather than failing the summary.
func (s *Service) GetSummary(ctx context.Context, userID int64, baseCurrency string) (*Summary, error) {
	base := strings.ToUpper(strings.TrimSpace(baseCurrency))
	if base == "" {
		base = s.baseCurrency
	}

	if _, err := entities.GetCurrency(base); err != nil {
		return nil, err
	}

	portfolio, err := s.storage.LoadPortfolio(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		UserID:       userID,
		BaseCurrency: base,
		Items:        make([]SummaryItem, 0, len(portfolio.Wallets)),
	}

	for code, wallet := range portfolio.Wallets {
		var valueInBase float64
		if wallet.Balance != 0 {
			rate, _, err := s.rates.GetRate(code, base)
			if err != nil {
				slog.Warn("No rate for wallet valuation", "currency", code, "base", base, "error", err)
			} else {
				valueInBase = wallet.Balance * rate
			}
		}

		summary.Items = append(summary.Items, SummaryItem{
			Currency:    code,
			Balance:     wallet.Balance,
			ValueInBase: valueInBase,
		})
		summary.Total += valueInBase
	}

	return summary, nil
}
