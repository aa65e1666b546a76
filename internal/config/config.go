package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"telegram-club-bot/internal/domain/model"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token       string  `yaml:"token" env:"BOT_TOKEN"`
	Username    string  `yaml:"username"`
	Workers     int     `yaml:"workers"` // polling workers
	OperatorIDs []int64 `yaml:"operator_ids"`
	GroupID     int64   `yaml:"group_id"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url" env:"DATABASE_URL"`
}

type RedisConfig struct {
	URL      string        `yaml:"url" env:"REDIS_URL"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db"`
	StateTTL time.Duration `yaml:"state_ttl"`
}

type ProductConfig struct {
	DisplayName  string `yaml:"display_name"`
	Description  string `yaml:"description"`
	Amount       int64  `yaml:"amount"`
	ValidityDays int    `yaml:"validity_days"`
}

type CryptoConfig struct {
	Wallets map[string]string  `yaml:"wallets"` // asset -> wallet address
	Rates   map[string]float64 `yaml:"rates"`   // asset -> fiat per unit
}

type PaymentConfig struct {
	CardDetails string       `yaml:"card_details"` // static account/card string shown to users
	Crypto      CryptoConfig `yaml:"crypto"`
}

type ReferralConfig struct {
	PointsPerReferral int `yaml:"points_per_referral"` // advertised in the daily nudge
	NudgeThreshold    int `yaml:"nudge_threshold"`     // users below this count get the daily nudge
	NudgeAfterDays    int `yaml:"nudge_after_days"`    // only nudge users registered at least this long ago
	OfferMinReferrals int `yaml:"offer_min_referrals"` // >= this count receives the monthly offer
}

type SchedulerConfig struct {
	WarningHour    int           `yaml:"warning_hour"`    // expiring-warning, daily
	NudgeHour      int           `yaml:"nudge_hour"`      // renewal-nudge, daily
	OfferDay       int           `yaml:"offer_day"`       // limited-offer, day of month
	OfferHour      int           `yaml:"offer_hour"`
	StatsHour      int           `yaml:"stats_hour"`      // statistics, daily
	StatsMinute    int           `yaml:"stats_minute"`
	ActivityDay    int           `yaml:"activity_day"`    // activity-check, weekday (0=Sunday)
	ActivityHour   int           `yaml:"activity_hour"`
	ExpiryInterval time.Duration `yaml:"expiry_interval"` // expiry-enforcement cadence
}

type HTTPConfig struct {
	Port int `yaml:"port"` // health + metrics
}

type Config struct {
	Bot       BotConfig                           `yaml:"bot"`
	Log       LogConfig                           `yaml:"log"`
	Database  DatabaseConfig                      `yaml:"database"`
	Redis     RedisConfig                         `yaml:"redis"`
	Payment   PaymentConfig                       `yaml:"payment"`
	Products  map[model.ProductType]ProductConfig `yaml:"products"`
	Referral  ReferralConfig                      `yaml:"referral"`
	Scheduler SchedulerConfig                     `yaml:"scheduler"`
	HTTP      HTTPConfig                          `yaml:"http"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file, then lets environment variables override
// secrets (BOT_TOKEN, DATABASE_URL, REDIS_URL). A .env file is honored when
// present so local runs don't need exported variables.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	_ = godotenv.Load() // missing .env is fine
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Redis.StateTTL <= 0 {
		cfg.Redis.StateTTL = 15 * time.Minute
	}
	if cfg.Referral.PointsPerReferral <= 0 {
		cfg.Referral.PointsPerReferral = 1000
	}
	if cfg.Referral.NudgeThreshold <= 0 {
		cfg.Referral.NudgeThreshold = 5
	}
	if cfg.Referral.NudgeAfterDays <= 0 {
		cfg.Referral.NudgeAfterDays = 3
	}
	if cfg.Referral.OfferMinReferrals <= 0 {
		cfg.Referral.OfferMinReferrals = 1
	}
	s := &cfg.Scheduler
	if s.WarningHour == 0 {
		s.WarningHour = 12
	}
	if s.NudgeHour == 0 {
		s.NudgeHour = 10
	}
	if s.OfferDay == 0 {
		s.OfferDay = 1
	}
	if s.OfferHour == 0 {
		s.OfferHour = 9
	}
	if s.StatsMinute == 0 {
		s.StatsMinute = 5
	}
	if s.ActivityDay == 0 {
		s.ActivityDay = 1 // Monday
	}
	if s.ActivityHour == 0 {
		s.ActivityHour = 9
	}
	if s.ExpiryInterval <= 0 {
		s.ExpiryInterval = time.Hour
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.Products == nil {
		cfg.Products = defaultProducts()
	}
}

func (cfg *Config) validate() error {
	if cfg.Bot.Token == "" {
		return errors.New("bot.token is required")
	}
	if cfg.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	if cfg.Bot.GroupID == 0 {
		return errors.New("bot.group_id is required")
	}
	for pt, p := range cfg.Products {
		if !pt.Valid() {
			return fmt.Errorf("products: unknown product type %q", pt)
		}
		if p.Amount <= 0 {
			return fmt.Errorf("products.%s: amount must be positive", pt)
		}
	}
	if mc, ok := cfg.Products[model.ProductMembership]; !ok || mc.ValidityDays <= 0 {
		return errors.New("products.membership with validity_days is required")
	}
	return nil
}

// Catalog converts the configured product set into domain products.
func (cfg *Config) Catalog() map[model.ProductType]model.Product {
	out := make(map[model.ProductType]model.Product, len(cfg.Products))
	for pt, p := range cfg.Products {
		out[pt] = model.Product{
			Type:         pt,
			DisplayName:  p.DisplayName,
			Description:  p.Description,
			Amount:       p.Amount,
			ValidityDays: p.ValidityDays,
		}
	}
	return out
}

func defaultProducts() map[model.ProductType]ProductConfig {
	return map[model.ProductType]ProductConfig{
		model.ProductMembership: {
			DisplayName:  "Club membership",
			Description:  "Access to the private club group",
			Amount:       1000,
			ValidityDays: 30,
		},
		model.ProductEventTour: {
			DisplayName: "Vietnam tour",
			Description: "Online guided tour, 2 hours",
			Amount:      1000,
		},
		model.ProductEventConsultation: {
			DisplayName: "Founder consultation",
			Description: "Personal consultation, 1 hour",
			Amount:      2000,
		},
	}
}
