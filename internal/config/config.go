// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/cart"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/domain"
)

type AppConfig struct {
	Port string
}

type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// LoyaltyConfig carries the tenant-wide business knobs: flat per-zone
// delivery fees, tax, the points economy and scheduling limits.
type LoyaltyConfig struct {
	DeliveryFeeCapital    float64
	DeliveryFeeInterior   float64
	TaxRate               float64
	PointsCurrencyPerUnit float64
	PointsRoundUp         float64
	PointsRedeemStep      int
	MinPickupLeadMinutes  int
	NearestPickupLimit    int
	CartMergePolicy       cart.MergePolicy
	DefaultZone           domain.Zone
}

type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Loyalty  LoyaltyConfig
}

// NewConfig reads the environment. A missing .env is not an error; missing
// database credentials are.
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.App.Port = envOr("APP_PORT", "8080")

	cfg.Postgres.Host = os.Getenv("DB_HOST")
	cfg.Postgres.Port = envOr("DB_PORT", "5432")
	cfg.Postgres.User = os.Getenv("DB_USER")
	cfg.Postgres.Password = os.Getenv("DB_PASSWORD")
	cfg.Postgres.DBName = os.Getenv("DB_NAME")
	cfg.Postgres.SSLMode = envOr("DB_SSLMODE", "disable")
	for name, val := range map[string]string{
		"DB_HOST":     cfg.Postgres.Host,
		"DB_USER":     cfg.Postgres.User,
		"DB_PASSWORD": cfg.Postgres.Password,
		"DB_NAME":     cfg.Postgres.DBName,
	} {
		if val == "" {
			return nil, fmt.Errorf("config: %s is required", name)
		}
	}

	maxConns, err := envInt("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, err
	}
	minConns, err := envInt("DB_MIN_CONNS", 2)
	if err != nil {
		return nil, err
	}
	lifetimeMinutes, err := envInt("DB_MAX_CONN_LIFETIME_MINUTES", 60)
	if err != nil {
		return nil, err
	}
	cfg.Postgres.MaxConns = int32(maxConns)
	cfg.Postgres.MinConns = int32(minConns)
	cfg.Postgres.MaxConnLifetime = time.Duration(lifetimeMinutes) * time.Minute

	if cfg.Loyalty.DeliveryFeeCapital, err = envFloat("DELIVERY_FEE_CAPITAL", 15); err != nil {
		return nil, err
	}
	if cfg.Loyalty.DeliveryFeeInterior, err = envFloat("DELIVERY_FEE_INTERIOR", 25); err != nil {
		return nil, err
	}
	if cfg.Loyalty.TaxRate, err = envFloat("TAX_RATE", 0); err != nil {
		return nil, err
	}
	if cfg.Loyalty.PointsCurrencyPerUnit, err = envFloat("POINTS_CURRENCY_PER_POINT", 10); err != nil {
		return nil, err
	}
	if cfg.Loyalty.PointsRoundUp, err = envFloat("POINTS_ROUND_UP_THRESHOLD", 0.5); err != nil {
		return nil, err
	}
	if cfg.Loyalty.PointsRedeemStep, err = envInt("POINTS_REDEEM_STEP", 1); err != nil {
		return nil, err
	}
	if cfg.Loyalty.MinPickupLeadMinutes, err = envInt("MIN_PICKUP_LEAD_MINUTES", 30); err != nil {
		return nil, err
	}
	if cfg.Loyalty.NearestPickupLimit, err = envInt("NEAREST_PICKUP_LIMIT", 3); err != nil {
		return nil, err
	}

	switch policy := cart.MergePolicy(envOr("CART_MERGE_POLICY", string(cart.MergeQuantities))); policy {
	case cart.MergeQuantities, cart.DuplicateLines:
		cfg.Loyalty.CartMergePolicy = policy
	default:
		return nil, fmt.Errorf("config: CART_MERGE_POLICY must be %q or %q", cart.MergeQuantities, cart.DuplicateLines)
	}

	switch zone := domain.Zone(envOr("DEFAULT_ZONE", string(domain.ZoneCapital))); zone {
	case domain.ZoneCapital, domain.ZoneInterior:
		cfg.Loyalty.DefaultZone = zone
	default:
		return nil, fmt.Errorf("config: DEFAULT_ZONE must be %q or %q", domain.ZoneCapital, domain.ZoneInterior)
	}

	return cfg, nil
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func envInt(name string, fallback int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer: %w", name, err)
	}
	return parsed, nil
}

func envFloat(name string, fallback float64) (float64, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be a number: %w", name, err)
	}
	return parsed, nil
}
