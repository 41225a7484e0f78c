// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"flowcms/internal/models"
)

// VersionStore provides read access to immutable body snapshots. Writes
// only happen inside ContentStore transactions.
type VersionStore struct {
	db *sql.DB
}

// NewVersionStore creates a new VersionStore backed by the given database.
func NewVersionStore(db *sql.DB) *VersionStore {
	return &VersionStore{db: db}
}

// ListByContent returns all snapshots for a content item, newest first.
func (s *VersionStore) ListByContent(ctx context.Context, contentID uuid.UUID) ([]models.ContentVersion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT content_id, version, content, created_by, created_at
		FROM content_versions
		WHERE content_id = $1
		ORDER BY version DESC
	`, contentID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var versions []models.ContentVersion
	for rows.Next() {
		var v models.ContentVersion
		if err := rows.Scan(&v.ContentID, &v.Version, &v.Body, &v.CreatedBy, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// Count returns the number of snapshots stored for a content item.
func (s *VersionStore) Count(ctx context.Context, contentID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM content_versions WHERE content_id = $1
	`, contentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count versions: %w", err)
	}
	return count, nil
}
