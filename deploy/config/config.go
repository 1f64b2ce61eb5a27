package config

import (
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Storage    Storage
	Postgres   Postgres
	Redis      Redis
	HTTPServer HTTPServer
	Providers  Providers
	Rates      Rates
	LogLevel   string `env:"LOG_LEVEL" env-default:"info"`
}

type Storage struct {
	DataDir     string `env:"DATA_DIR" env-default:"data"`
	RatesFile   string `env:"RATES_FILE" env-default:"rates.json"`
	HistoryFile string `env:"HISTORY_FILE" env-default:"history.json"`
}

type Postgres struct {
	Timeout  time.Duration `env:"BD_TIMEOUT" env-default:"10s"`
	Host     string        `env:"BD_HOST" env-default:"localhost"`
	Port     int           `env:"BD_PORT" env-default:"5432"`
	User     string        `env:"BD_USER" env-default:"postgres"`
	Password string        `env:"BD_PASSWORD" env-default:""`
	DBName   string        `env:"BD_DBNAME" env-default:"valutatrade"`
	SSLMode  string        `env:"BD_SSL_MODE" env-default:"disable"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST" env-default:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD" env-default:""`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

type HTTPServer struct {
	Port        string        `env:"HTTP_PORT" env-default:"8080"`
	Timeout     time.Duration `env:"HTTP_TIMEOUT" env-default:"30s"`
	IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

type Providers struct {
	CoinGeckoURL       string        `env:"COINGECKO_URL" env-default:"https://api.coingecko.com/api/v3/simple/price"`
	ExchangeRateURL    string        `env:"EXCHANGERATE_API_URL" env-default:"https://v6.exchangerate-api.com/v6"`
	ExchangeRateAPIKey string        `env:"EXCHANGERATE_API_KEY" env-default:""`
	CryptoCurrencies   string        `env:"CRYPTO_CURRENCIES" env-default:"BTC,ETH,SOL"`
	FiatCurrencies     string        `env:"FIAT_CURRENCIES" env-default:"EUR,GBP,RUB"`
	CryptoIDMap        string        `env:"CRYPTO_ID_MAP" env-default:"BTC:bitcoin,ETH:ethereum,SOL:solana"`
	Timeout            time.Duration `env:"PROVIDER_TIMEOUT" env-default:"10s"`
	RefreshInterval    time.Duration `env:"REFRESH_INTERVAL" env-default:"5m"`
}

type Rates struct {
	BaseCurrency  string        `env:"BASE_CURRENCY" env-default:"USD"`
	FreshnessTTL  time.Duration `env:"RATES_TTL" env-default:"300s"`
	FallbackTable string        `env:"RATES_FALLBACK_TABLE" env-default:"USD:1.0,EUR:1.1,BTC:60000,ETH:3000"`
}

func NewConfig() *Config {
	cfg := &Config{}

	_ = godotenv.Load(".env")

	err := cleanenv.ReadEnv(cfg)
	if err != nil {
		log.Fatal("Error reading env: ", err)
	}

	return cfg
}

func Split(value string) []string {
	if value == "" {
		return nil
	}
	return strings.Split(value, ",")
}

// SplitMap parses "KEY:value,KEY:value" lists such as the crypto id map.
func SplitMap(value string) map[string]string {
	result := make(map[string]string)
	for _, item := range Split(value) {
		parts := strings.SplitN(item, ":", 2)
		if len(parts) != 2 {
			continue
		}
		result[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return result
}

// Fallback returns the static reference table: currency code to its value in
// the common unit. Malformed entries are dropped.
func (r Rates) Fallback() map[string]float64 {
	table := make(map[string]float64)
	for code, raw := range SplitMap(r.FallbackTable) {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		table[strings.ToUpper(code)] = value
	}
	return table
}
