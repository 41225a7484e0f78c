// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store provides PostgreSQL persistence for content items, body
// snapshots, workflow history, and users. One store type per table; the
// ContentStore additionally owns the multi-table transaction that commits
// a workflow transition atomically.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"flowcms/internal/models"
	"flowcms/internal/workflow"
)

// contentColumns lists all columns for content_items SELECTs.
const contentColumns = `id, title, content, status, version, created_by,
	last_modified_by, scheduled_publish_at, expiration_date,
	published_at, archived_at, archive_reason, created_at, updated_at`

// ContentStore handles all content_items database operations and the
// atomic transition commit spanning content_items, content_versions, and
// content_workflow_history.
type ContentStore struct {
	db *sql.DB
}

// NewContentStore creates a new ContentStore with the given database connection.
func NewContentStore(db *sql.DB) *ContentStore {
	return &ContentStore{db: db}
}

// scanContent scans a single content_items row.
func scanContent(scanner interface{ Scan(...any) error }) (*models.ContentItem, error) {
	var c models.ContentItem
	err := scanner.Scan(
		&c.ID, &c.Title, &c.Body, &c.Status, &c.Version, &c.CreatedBy,
		&c.LastModifiedBy, &c.ScheduledPublishAt, &c.ExpirationDate,
		&c.PublishedAt, &c.ArchivedAt, &c.ArchiveReason, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindByID retrieves a content item by its UUID. Returns nil if not found.
func (s *ContentStore) FindByID(ctx context.Context, id uuid.UUID) (*models.ContentItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+contentColumns+`
		FROM content_items WHERE id = $1
	`, id)
	c, err := scanContent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find content by id: %w", err)
	}
	return c, nil
}

// ListFilter narrows and pages the content listing.
type ListFilter struct {
	Status    models.ContentStatus // zero value = all statuses
	Search    string               // case-insensitive title match
	CreatedBy uuid.UUID            // zero value = all owners
	Limit     int
	Offset    int
}

// List returns content items newest-first along with the total count
// matching the filter (ignoring pagination).
func (s *ContentStore) List(ctx context.Context, f ListFilter) ([]models.ContentItem, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Status != "" {
		where = append(where, "status = "+arg(f.Status))
	}
	if f.Search != "" {
		where = append(where, "title ILIKE "+arg("%"+f.Search+"%"))
	}
	if f.CreatedBy != uuid.Nil {
		where = append(where, "created_by = "+arg(f.CreatedBy))
	}
	cond := strings.Join(where, " AND ")

	var total int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM content_items WHERE "+cond, args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count content: %w", err)
	}

	if f.Limit <= 0 {
		f.Limit = 20
	}
	query := "SELECT " + contentColumns + " FROM content_items WHERE " + cond +
		" ORDER BY updated_at DESC LIMIT " + arg(f.Limit) + " OFFSET " + arg(f.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list content: %w", err)
	}
	defer rows.Close()

	var items []models.ContentItem
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan content: %w", err)
		}
		items = append(items, *c)
	}
	return items, total, rows.Err()
}

// CreateItem inserts a new draft with its first body snapshot and a
// "created" history entry in one transaction.
func (s *ContentStore) CreateItem(ctx context.Context, item *models.ContentItem) (*models.ContentItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		INSERT INTO content_items (
			title, content, status, version, created_by, last_modified_by,
			scheduled_publish_at, expiration_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+contentColumns,
		item.Title, item.Body, item.Status, item.Version,
		item.CreatedBy, item.LastModifiedBy,
		item.ScheduledPublishAt, item.ExpirationDate,
	)
	created, err := scanContent(row)
	if err != nil {
		return nil, fmt.Errorf("insert content: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO content_versions (content_id, version, content, created_by)
		VALUES ($1, $2, $3, $4)
	`, created.ID, created.Version, created.Body, created.CreatedBy); err != nil {
		return nil, fmt.Errorf("insert first version: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO content_workflow_history (content_id, user_id, action)
		VALUES ($1, $2, $3)
	`, created.ID, created.CreatedBy, models.ActionCreated); err != nil {
		return nil, fmt.Errorf("insert created history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create: %w", err)
	}
	return created, nil
}

// ApplyTransition commits a workflow transition in one transaction: a
// status/version update guarded by the expected pair, an optional new
// body snapshot, and exactly one history entry. A concurrent commit that
// moved the row first surfaces as workflow.ErrConflict; nothing is
// persisted on any failure.
func (s *ContentStore) ApplyTransition(ctx context.Context, c *workflow.Commit) (*models.ContentItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		UPDATE content_items SET
			status = $1,
			version = $2,
			title = COALESCE($3, title),
			content = COALESCE($4, content),
			scheduled_publish_at = CASE WHEN $14 THEN $5 ELSE scheduled_publish_at END,
			expiration_date = CASE WHEN $14 THEN $6 ELSE expiration_date END,
			last_modified_by = $7,
			published_at = CASE
				WHEN $8 THEN NOW()
				WHEN $9 THEN NULL
				ELSE published_at END,
			archived_at = CASE WHEN $9 THEN NOW() ELSE archived_at END,
			archive_reason = COALESCE($10, archive_reason),
			updated_at = NOW()
		WHERE id = $11 AND status = $12 AND version = $13
		RETURNING `+contentColumns,
		c.NewStatus, c.NewVersion, c.Title, c.Body,
		c.ScheduledPublishAt, c.ExpirationDate, c.ActorID,
		c.SetPublishedAt, c.SetArchivedAt, c.ArchiveReason,
		c.ContentID, c.ExpectedStatus, c.ExpectedVersion,
		c.SetSchedule,
	)
	updated, err := scanContent(row)
	if errors.Is(err, sql.ErrNoRows) {
		// Row missing or moved underneath us — tell them apart so the
		// caller can retry conflicts but not chase deleted content.
		var exists bool
		if probeErr := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM content_items WHERE id = $1)`, c.ContentID,
		).Scan(&exists); probeErr != nil {
			return nil, fmt.Errorf("probe content: %w", probeErr)
		}
		if !exists {
			return nil, workflow.ErrNotFound
		}
		return nil, workflow.ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("update content: %w", err)
	}

	if c.Body != nil {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO content_versions (content_id, version, content, created_by)
			VALUES ($1, $2, $3, $4)
		`, c.ContentID, c.NewVersion, *c.Body, c.ActorID); err != nil {
			return nil, fmt.Errorf("insert version %d: %w", c.NewVersion, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO content_workflow_history (content_id, user_id, action, comments)
		VALUES ($1, $2, $3, $4)
	`, c.ContentID, c.ActorID, c.HistoryAction, c.Comments); err != nil {
		return nil, fmt.Errorf("insert history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}
	return updated, nil
}

// FindVersion returns one immutable body snapshot, or nil if the version
// does not exist for this content id.
func (s *ContentStore) FindVersion(ctx context.Context, contentID uuid.UUID, version int) (*models.ContentVersion, error) {
	var v models.ContentVersion
	err := s.db.QueryRowContext(ctx, `
		SELECT content_id, version, content, created_by, created_at
		FROM content_versions
		WHERE content_id = $1 AND version = $2
	`, contentID, version).Scan(
		&v.ContentID, &v.Version, &v.Body, &v.CreatedBy, &v.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find version: %w", err)
	}
	return &v, nil
}

// DueForPublish returns approved items whose scheduled publish time has
// arrived, oldest due first.
func (s *ContentStore) DueForPublish(ctx context.Context, now time.Time) ([]models.ContentItem, error) {
	return s.listDue(ctx, `
		SELECT `+contentColumns+`
		FROM content_items
		WHERE status = $1 AND scheduled_publish_at IS NOT NULL AND scheduled_publish_at <= $2
		ORDER BY scheduled_publish_at ASC
	`, models.StatusApproved, now)
}

// DueForExpiry returns published items whose expiration date has passed,
// oldest due first.
func (s *ContentStore) DueForExpiry(ctx context.Context, now time.Time) ([]models.ContentItem, error) {
	return s.listDue(ctx, `
		SELECT `+contentColumns+`
		FROM content_items
		WHERE status = $1 AND expiration_date IS NOT NULL AND expiration_date <= $2
		ORDER BY expiration_date ASC
	`, models.StatusPublished, now)
}

// ListScheduled returns approved items waiting on a future publish time,
// soonest first.
func (s *ContentStore) ListScheduled(ctx context.Context, now time.Time) ([]models.ContentItem, error) {
	return s.listDue(ctx, `
		SELECT `+contentColumns+`
		FROM content_items
		WHERE status = $1 AND scheduled_publish_at IS NOT NULL AND scheduled_publish_at > $2
		ORDER BY scheduled_publish_at ASC
	`, models.StatusApproved, now)
}

// ListExpiring returns published items that will expire on or before the
// given time, soonest first.
func (s *ContentStore) ListExpiring(ctx context.Context, until time.Time) ([]models.ContentItem, error) {
	return s.listDue(ctx, `
		SELECT `+contentColumns+`
		FROM content_items
		WHERE status = $1 AND expiration_date IS NOT NULL AND expiration_date <= $2
		ORDER BY expiration_date ASC
	`, models.StatusPublished, until)
}

func (s *ContentStore) listDue(ctx context.Context, query string, status models.ContentStatus, t time.Time) ([]models.ContentItem, error) {
	rows, err := s.db.QueryContext(ctx, query, status, t)
	if err != nil {
		return nil, fmt.Errorf("list due content: %w", err)
	}
	defer rows.Close()

	var items []models.ContentItem
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// Delete removes a content item; snapshots and history rows go with it
// via ON DELETE CASCADE.
func (s *ContentStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM content_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete content: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return workflow.ErrNotFound
	}
	return nil
}
