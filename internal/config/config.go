package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Config struct {
	Port string
	Env  string

	StoreBackend string
	RedisURL     string
	RedisPass    string
	RedisDB      int
	SQLitePath   string

	JWTSecret string
	JWTExpiry time.Duration

	NATSURL     string
	NATSSubject string

	// Currency code -> number of decimal places.
	Currencies      map[string]int32
	StartingBalance decimal.Decimal

	GamesFile string
	LogLevel  string

	RateLimitBets   int
	RateLimitWindow time.Duration
}

// GameLimits overrides the declared bet bounds of a game.
type GameLimits struct {
	MinBet decimal.Decimal `yaml:"-"`
	MaxBet decimal.Decimal `yaml:"-"`
}

type gameLimitsFile struct {
	Games map[string]struct {
		MinBet string `yaml:"min_bet"`
		MaxBet string `yaml:"max_bet"`
	} `yaml:"games"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		Env:          getEnv("APP_ENV", "development"),
		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", BackendMemory)),
		RedisURL:     getEnv("REDIS_URL", "localhost:6379"),
		RedisPass:    os.Getenv("REDIS_PASSWORD"),
		SQLitePath:   os.Getenv("SQLITE_PATH"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		NATSURL:      os.Getenv("NATS_URL"),
		NATSSubject:  getEnv("NATS_SUBJECT", "casino.rounds"),
		GamesFile:    os.Getenv("GAMES_FILE"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0")); err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	if cfg.JWTExpiry, err = time.ParseDuration(getEnv("JWT_EXPIRY", "24h")); err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRY: %w", err)
	}
	if cfg.Currencies, err = ParseCurrencies(getEnv("CURRENCIES", "USD:2,BTC:8")); err != nil {
		return nil, err
	}
	if cfg.StartingBalance, err = decimal.NewFromString(getEnv("STARTING_BALANCE", "100")); err != nil {
		return nil, fmt.Errorf("invalid STARTING_BALANCE: %w", err)
	}
	if cfg.RateLimitBets, err = strconv.Atoi(getEnv("RATE_LIMIT_BETS", "30")); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BETS: %w", err)
	}
	if cfg.RateLimitWindow, err = time.ParseDuration(getEnv("RATE_LIMIT_WINDOW", "1m")); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_WINDOW: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.JWTSecret == "" {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		c.JWTSecret = "development-secret"
	}
	if c.StartingBalance.IsNegative() {
		return fmt.Errorf("STARTING_BALANCE must not be negative")
	}
	if len(c.Currencies) == 0 {
		return fmt.Errorf("at least one currency must be configured")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// CurrencyCodes returns the configured currency codes in sorted order.
func (c *Config) CurrencyCodes() []string {
	codes := make([]string, 0, len(c.Currencies))
	for code := range c.Currencies {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// ParseCurrencies parses "USD:2,BTC:8".
func ParseCurrencies(raw string) (map[string]int32, error) {
	currencies := make(map[string]int32)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, places, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("invalid currency %q: want CODE:PRECISION", part)
		}
		precision, err := strconv.ParseInt(strings.TrimSpace(places), 10, 32)
		if err != nil || precision < 0 || precision > 18 {
			return nil, fmt.Errorf("invalid precision for currency %q", code)
		}
		currencies[strings.ToUpper(strings.TrimSpace(code))] = int32(precision)
	}
	if len(currencies) == 0 {
		return nil, fmt.Errorf("no currencies configured")
	}
	return currencies, nil
}

// LoadGameLimits reads per-game bet bound overrides from a YAML file:
//
//	games:
//	  roulette:
//	    min_bet: "0.10"
//	    max_bet: "500"
func LoadGameLimits(path string) (map[string]GameLimits, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file gameLimitsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	limits := make(map[string]GameLimits, len(file.Games))
	for id, g := range file.Games {
		var l GameLimits
		if g.MinBet != "" {
			if l.MinBet, err = decimal.NewFromString(g.MinBet); err != nil {
				return nil, fmt.Errorf("game %s: invalid min_bet: %w", id, err)
			}
		}
		if g.MaxBet != "" {
			if l.MaxBet, err = decimal.NewFromString(g.MaxBet); err != nil {
				return nil, fmt.Errorf("game %s: invalid max_bet: %w", id, err)
			}
		}
		if !l.MinBet.IsZero() && !l.MaxBet.IsZero() && l.MinBet.GreaterThan(l.MaxBet) {
			return nil, fmt.Errorf("game %s: min_bet exceeds max_bet", id)
		}
		limits[id] = l
	}
	return limits, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
