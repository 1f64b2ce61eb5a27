package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/valutatrade/hub/internal/entities"
)

// Storage persists users and their portfolio wallets.
type Storage struct {
	db *pgxpool.Pool
}

func NewStorage(pool *pgxpool.Pool) *Storage {
	return &Storage{
		db: pool,
	}
}

func InitStorage(ctx context.Context, dsn string) (*Storage, error) {
	const op = "storage.postgres.InitStorage"

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 10 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, op)
	}

	storage := NewStorage(pool)

	if err = storage.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, op)
	}

	return storage, nil
}

func (s *Storage) ensureSchema(ctx context.Context) error {
	const op = "storage.postgres.ensureSchema"

	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			hashed_password TEXT NOT NULL,
			registration_date TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return errors.Wrap(err, op)
	}

	_, err = s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS wallets (
			user_id BIGINT NOT NULL REFERENCES users (id),
			currency_code TEXT NOT NULL,
			balance DOUBLE PRECISION NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, currency_code)
		)`)
	if err != nil {
		return errors.Wrap(err, op)
	}

	return nil
}

func (s *Storage) CreateUser(ctx context.Context, username, hashedPassword string) (*entities.User, error) {
	const op = "storage.postgres.CreateUser"

	user := &entities.User{
		Username:       username,
		HashedPassword: hashedPassword,
	}

	err := s.db.QueryRow(ctx, `
		INSERT INTO users (username, hashed_password)
		VALUES ($1, $2)
		RETURNING id, registration_date
	`, username, hashedPassword).Scan(&user.ID, &user.RegistrationDate)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, entities.ErrUsernameTaken
		}
		return nil, errors.Wrap(err, op)
	}

	return user, nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*entities.User, error) {
	const op = "storage.postgres.GetUserByUsername"

	user := &entities.User{}

	err := s.db.QueryRow(ctx, `
		SELECT id, username, hashed_password, registration_date
		FROM users
		WHERE username = $1
	`, username).Scan(&user.ID, &user.Username, &user.HashedPassword, &user.RegistrationDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entities.ErrUserNotFound
		}
		return nil, errors.Wrap(err, op)
	}

	return user, nil
}

func (s *Storage) LoadPortfolio(ctx context.Context, userID int64) (*entities.Portfolio, error) {
	const op = "storage.postgres.LoadPortfolio"

	rows, err := s.db.Query(ctx, `
		SELECT currency_code, balance
		FROM wallets
		WHERE user_id = $1
		ORDER BY currency_code
	`, userID)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	defer rows.Close()

	portfolio := &entities.Portfolio{
		UserID:  userID,
		Wallets: make(map[string]entities.Wallet),
	}

	for rows.Next() {
		var wallet entities.Wallet
		if err = rows.Scan(&wallet.CurrencyCode, &wallet.Balance); err != nil {
			return nil, errors.Wrap(err, op)
		}
		portfolio.Wallets[wallet.CurrencyCode] = wallet
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, op)
	}

	return portfolio, nil
}

// AdjustBalance applies a signed delta to one wallet inside a transaction.
// A positive delta creates the wallet on first use; a negative delta on a
// missing wallet is an error, and the balance can never go below zero.
func (s *Storage) AdjustBalance(ctx context.Context, userID int64, code string, delta float64) (oldBalance, newBalance float64, err error) {
	const op = "storage.postgres.AdjustBalance"

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, 0, errors.Wrap(err, op)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	err = tx.QueryRow(ctx, `
		SELECT balance FROM wallets
		WHERE user_id = $1 AND currency_code = $2
		FOR UPDATE
	`, userID, code).Scan(&oldBalance)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if delta < 0 {
			return 0, 0, entities.ErrWalletNotFound
		}
		oldBalance = 0
		_, err = tx.Exec(ctx, `
			INSERT INTO wallets (user_id, currency_code, balance)
			VALUES ($1, $2, 0)
		`, userID, code)
		if err != nil {
			return 0, 0, errors.Wrap(err, op)
		}
	case err != nil:
		return 0, 0, errors.Wrap(err, op)
	}

	newBalance = oldBalance + delta
	if newBalance < 0 {
		err = &entities.InsufficientFundsError{
			Available: oldBalance,
			Required:  -delta,
			Code:      code,
		}
		return 0, 0, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE wallets SET balance = $3
		WHERE user_id = $1 AND currency_code = $2
	`, userID, code, newBalance)
	if err != nil {
		return 0, 0, errors.Wrap(err, op)
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, 0, errors.Wrap(err, op)
	}

	return oldBalance, newBalance, nil
}
