package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-dairy/internal/auth"
	"github.com/noah-isme/backend-dairy/internal/config"
	"github.com/noah-isme/backend-dairy/internal/obs"
	"github.com/noah-isme/backend-dairy/internal/store"
)

// sampleVendors are the reference suppliers every fresh installation starts with.
var sampleVendors = []store.Vendor{
	{Name: "Vendor A", Location: "Chennai", Phone: "9876543210"},
	{Name: "Vendor B", Location: "Madurai", Phone: "9123456780"},
	{Name: "Vendor C", Location: "Coimbatore", Phone: "9988776655"},
}

const (
	upsertVendorSQL = `INSERT INTO vendors (name, location, phone) VALUES ($1, $2, $3)
ON CONFLICT (name) DO UPDATE SET location = EXCLUDED.location, phone = EXCLUDED.phone`
	insertAdminSQL = `INSERT INTO admins (username, password_hash) VALUES ($1, $2)
ON CONFLICT (username) DO NOTHING`
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().Str("component", "seeder").Logger()

	if err := store.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("migrate")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	conn, err := pgx.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer conn.Close(context.Background())

	if err := seed(ctx, conn, cfg.Seed, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed")
	}
	logger.Info().Msg("seeding completed")
}

func seed(ctx context.Context, conn *pgx.Conn, admin config.SeedConfig, logger zerolog.Logger) error {
	hash, err := auth.HashPassword(admin.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	return pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		batch := seedBatch(admin.AdminUsername, hash)
		results := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("seed statement %d: %w", i, err)
			}
		}
		if err := results.Close(); err != nil {
			return err
		}
		logger.Info().Int("vendors", len(sampleVendors)).Str("admin", admin.AdminUsername).Msg("seed data upserted")
		return nil
	})
}

func seedBatch(username, passwordHash string) *pgx.Batch {
	batch := &pgx.Batch{}
	for _, v := range sampleVendors {
		batch.Queue(upsertVendorSQL, v.Name, v.Location, v.Phone)
	}
	batch.Queue(insertAdminSQL, username, passwordHash)
	return batch
}
