package main

import (
	"context"
	"flag"
	"log"

	"telegram-club-bot/internal/config"
	"telegram-club-bot/internal/infra/db/postgres"
)

// Creates (or upgrades) the database schema. Safe to run repeatedly;
// every statement is idempotent.
func main() {
	ctx := context.Background()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	pool, err := postgres.NewPgxPool(ctx, cfg.Database.URL, 5)
	if err != nil {
		log.Fatalf("postgres connection failed: %v", err)
	}
	defer pool.Close()

	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			log.Fatalf("schema statement failed: %v\n%s", err, stmt)
		}
	}
	log.Println("schema is up to date")
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id             TEXT PRIMARY KEY,
		telegram_id    BIGINT NOT NULL UNIQUE,
		username       TEXT NOT NULL DEFAULT '',
		first_name     TEXT NOT NULL DEFAULT '',
		last_name      TEXT NOT NULL DEFAULT '',
		registered_at  TIMESTAMPTZ NOT NULL,
		last_active_at TIMESTAMPTZ NOT NULL,
		referrer_id    TEXT REFERENCES users(id)
	);`,

	`CREATE TABLE IF NOT EXISTS payments (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL REFERENCES users(id),
		product      TEXT NOT NULL,
		amount       BIGINT NOT NULL,
		method       TEXT NOT NULL,
		status       TEXT NOT NULL DEFAULT 'pending',
		proofs       JSONB NOT NULL DEFAULT '[]'::jsonb,
		created_at   TIMESTAMPTZ NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL,
		confirmed_at TIMESTAMPTZ
	);`,
	`CREATE INDEX IF NOT EXISTS idx_payments_user ON payments (user_id);`,
	`CREATE INDEX IF NOT EXISTS idx_payments_created ON payments (created_at);`,

	`CREATE TABLE IF NOT EXISTS subscriptions (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(id),
		start_at   TIMESTAMPTZ NOT NULL,
		end_at     TIMESTAMPTZ NOT NULL,
		status     TEXT NOT NULL DEFAULT 'active',
		payment_id TEXT REFERENCES payments(id),
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);`,
	// One live subscription per user; renewals extend the row instead.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_subscriptions_one_active
		ON subscriptions (user_id) WHERE status = 'active';`,
	`CREATE INDEX IF NOT EXISTS idx_subscriptions_end_at ON subscriptions (end_at) WHERE status = 'active';`,

	`CREATE TABLE IF NOT EXISTS referrals (
		referrer_id TEXT NOT NULL REFERENCES users(id),
		referred_id TEXT NOT NULL REFERENCES users(id),
		created_at  TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (referrer_id, referred_id)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_referrals_referrer ON referrals (referrer_id);`,
}
