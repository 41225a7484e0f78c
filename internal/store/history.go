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

// HistoryStore provides read access to the append-only workflow audit
// trail. Entries are written exclusively inside ContentStore transactions
// and are never updated or deleted.
type HistoryStore struct {
	db *sql.DB
}

// NewHistoryStore creates a new HistoryStore backed by the given database.
func NewHistoryStore(db *sql.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// ListByContent returns the audit trail for a content item, newest first.
// Actor display names are joined from the users table at read time; an
// entry whose actor has been deleted keeps its id with an empty name.
func (s *HistoryStore) ListByContent(ctx context.Context, contentID uuid.UUID) ([]models.WorkflowHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT h.id, h.content_id, h.user_id, COALESCE(u.display_name, ''),
		       h.action, h.comments, h.created_at
		FROM content_workflow_history h
		LEFT JOIN users u ON u.id = h.user_id
		WHERE h.content_id = $1
		ORDER BY h.created_at DESC, h.id DESC
	`, contentID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []models.WorkflowHistoryEntry
	for rows.Next() {
		var e models.WorkflowHistoryEntry
		if err := rows.Scan(
			&e.ID, &e.ContentID, &e.ActorID, &e.ActorName,
			&e.Action, &e.Comments, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountByContent returns the number of audit entries for a content item.
func (s *HistoryStore) CountByContent(ctx context.Context, contentID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM content_workflow_history WHERE content_id = $1
	`, contentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return count, nil
}
