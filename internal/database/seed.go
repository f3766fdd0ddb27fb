package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// Default development credentials created by Seed.
const (
	SeedAdminUsername = "admin"
	SeedAdminEmail    = "admin@masterannonce.local"
	SeedAdminPassword = "Admin1234"
)

// seedCategories are inserted alongside the admin on an empty database.
var seedCategories = []string{"Vehicles", "Real Estate", "Electronics", "Services"}

// Seed populates an empty database with one admin account and a handful
// of categories, in a single transaction. It does nothing if any user
// exists.
func Seed(ctx context.Context, db *sql.DB) error {
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}
	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(SeedAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO users (username, email, password_hash, role)
		VALUES ($1, $2, $3, 'ROLE_ADMIN')
	`, SeedAdminUsername, SeedAdminEmail, string(hash)); err != nil {
		return fmt.Errorf("seed insert admin: %w", err)
	}

	for _, label := range seedCategories {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO categories (label) VALUES ($1) ON CONFLICT DO NOTHING`, label,
		); err != nil {
			return fmt.Errorf("seed insert category %q: %w", label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	slog.Info("database seeded with default admin user",
		"username", SeedAdminUsername,
		"categories", len(seedCategories),
	)
	return nil
}
