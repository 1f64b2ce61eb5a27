package portfolio

import (
	"context"
	"time"

	"github.com/valutatrade/hub/internal/entities"
)

type Storage interface {
	CreateUser(ctx context.Context, username, hashedPassword string) (*entities.User, error)
	GetUserByUsername(ctx context.Context, username string) (*entities.User, error)
	LoadPortfolio(ctx context.Context, userID int64) (*entities.Portfolio, error)
	AdjustBalance(ctx context.Context, userID int64, code string, delta float64) (oldBalance, newBalance float64, err error)
}

// RateSource prices operations; *rates.Service satisfies it.
type RateSource interface {
	GetRate(from, to string) (float64, time.Time, error)
}
