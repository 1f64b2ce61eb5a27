package entities

import "time"

type User struct {
	ID               int64     `json:"user_id"`
	Username         string    `json:"username"`
	HashedPassword   string    `json:"-"`
	RegistrationDate time.Time `json:"registration_date"`
}

type Wallet struct {
	CurrencyCode string  `json:"currency_code"`
	Balance      float64 `json:"balance"`
}

// Portfolio is one user's set of per-currency wallets.
type Portfolio struct {
	UserID  int64             `json:"user_id"`
	Wallets map[string]Wallet `json:"wallets"`
}
