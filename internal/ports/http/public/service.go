package public

import (
	"context"
	"time"

	"github.com/valutatrade/hub/internal/entities"
	"github.com/valutatrade/hub/internal/portfolio"
	"github.com/valutatrade/hub/internal/rates"
)

type RatesService interface {
	GetRateInfo(from, to string) (*rates.RateInfo, error)
	Convert(from, to string, amount float64) (converted, rate float64, updatedAt time.Time, err error)
}

type UpdaterService interface {
	RunUpdate(ctx context.Context, sourceFilter string) (entities.UpdateReport, error)
}

type PortfolioService interface {
	Register(ctx context.Context, username, password string) (*entities.User, error)
	Login(ctx context.Context, username, password string) (*entities.User, error)
	Buy(ctx context.Context, userID int64, currencyCode string, amount float64) (*portfolio.OperationResult, error)
	Sell(ctx context.Context, userID int64, currencyCode string, amount float64) (*portfolio.OperationResult, error)
	GetSummary(ctx context.Context, userID int64, baseCurrency string) (*portfolio.Summary, error)
}
