package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// Seed populates the database with initial development data: a default
// admin (reviewer) and a default author. No-op if any non-system users
// exist already.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users WHERE role <> 'system'").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	seedUsers := []struct {
		email, password, name, role string
	}{
		{"admin@flowcms.local", "admin", "Admin", "admin"},
		{"author@flowcms.local", "author", "Author", "author"},
	}

	for _, u := range seedUsers {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("seed bcrypt: %w", err)
		}
		if _, err := db.Exec(`
			INSERT INTO users (email, password_hash, display_name, role)
			VALUES ($1, $2, $3, $4)
		`, u.email, string(hash), u.name, u.role); err != nil {
			return fmt.Errorf("seed insert %s: %w", u.email, err)
		}
	}

	slog.Info("database seeded with default users",
		"admin", "admin@flowcms.local",
		"author", "author@flowcms.local",
	)

	return nil
}
