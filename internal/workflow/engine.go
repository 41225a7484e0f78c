// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package workflow owns the content lifecycle state machine. Every
// status change, whether user-driven or scheduler-driven, funnels
// through the Engine, which validates the edge, consults the access
// guard, and hands the store a single atomic commit of status, version,
// and history.
package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"flowcms/internal/models"
)

// Commit is the atomic unit of change the engine asks the store to
// persist: a guarded status/version update, an optional body snapshot,
// and exactly one history entry. The store must apply all of it in one
// transaction and return ErrConflict when the expected status/version
// pair no longer matches the row.
type Commit struct {
	ContentID       uuid.UUID
	ExpectedStatus  models.ContentStatus
	ExpectedVersion int

	NewStatus  models.ContentStatus
	NewVersion int

	// Non-nil fields below are written; nil fields are left untouched.
	Title *string
	Body  *string // non-nil → store a new ContentVersion at NewVersion

	// When SetSchedule is true the two fields below replace the stored
	// values as given, so a nil clears the column. When false both
	// columns are left untouched.
	SetSchedule        bool
	ScheduledPublishAt *time.Time
	ExpirationDate     *time.Time

	SetPublishedAt bool
	SetArchivedAt  bool
	ArchiveReason  *string

	ActorID       uuid.UUID
	HistoryAction models.WorkflowAction
	Comments      *string
}

// Store is the persistence surface the engine drives. *store.ContentStore
// is the production implementation.
type Store interface {
	// FindByID returns nil, nil when the id is unknown.
	FindByID(ctx context.Context, id uuid.UUID) (*models.ContentItem, error)

	// CreateItem inserts the item at version 1 together with its first
	// body snapshot and a "created" history entry, atomically.
	CreateItem(ctx context.Context, item *models.ContentItem) (*models.ContentItem, error)

	// ApplyTransition persists a Commit atomically, returning the
	// updated item or ErrConflict on an optimistic check failure.
	ApplyTransition(ctx context.Context, c *Commit) (*models.ContentItem, error)

	// FindVersion returns nil, nil when the snapshot does not exist.
	FindVersion(ctx context.Context, contentID uuid.UUID, version int) (*models.ContentVersion, error)
}

// Engine validates and executes workflow operations.
type Engine struct {
	store Store
	guard AccessGuard
	now   func() time.Time
}

// New creates an Engine over the given store and guard.
func New(store Store, guard AccessGuard) *Engine {
	return &Engine{store: store, guard: guard, now: time.Now}
}

// WithClock overrides the engine's time source. Test hook.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// CreateInput carries the fields for a new draft.
type CreateInput struct {
	Title              string
	Body               string
	ScheduledPublishAt *time.Time
	ExpirationDate     *time.Time
}

// UpdateInput carries a body edit. Body is required; Title is optional.
// ScheduledPublishAt and ExpirationDate are full replacements: an edit
// with nil values clears any previously set schedule.
type UpdateInput struct {
	Title              *string
	Body               string
	ScheduledPublishAt *time.Time
	ExpirationDate     *time.Time
}

// Payload carries optional transition parameters.
type Payload struct {
	// Comments is required for request_changes and recorded on the
	// history entry for any transition that provides it.
	Comments string

	// Reason is persisted as the archive reason on archive transitions.
	Reason string
}

// Create makes a new draft owned by the actor: version 1, one snapshot,
// one "created" history entry.
func (e *Engine) Create(ctx context.Context, actor Actor, in CreateInput) (*models.ContentItem, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(in.Body) == "" {
		return nil, fmt.Errorf("%w: body is required", ErrValidation)
	}
	if actor.IsScheduler() {
		return nil, fmt.Errorf("%w: system account cannot author content", ErrPermissionDenied)
	}

	item := &models.ContentItem{
		Title:              strings.TrimSpace(in.Title),
		Body:               in.Body,
		Status:             models.StatusDraft,
		Version:            1,
		CreatedBy:          actor.ID,
		LastModifiedBy:     actor.ID,
		ScheduledPublishAt: in.ScheduledPublishAt,
		ExpirationDate:     in.ExpirationDate,
	}
	created, err := e.store.CreateItem(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("create content: %w", err)
	}
	return created, nil
}

// Update applies a body edit. Only draft and changes_requested content is
// editable; a successful edit resets the status to draft to force
// re-review and bumps the version by exactly one.
func (e *Engine) Update(ctx context.Context, id uuid.UUID, actor Actor, in UpdateInput) (*models.ContentItem, error) {
	if strings.TrimSpace(in.Body) == "" {
		return nil, fmt.Errorf("%w: body is required", ErrValidation)
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, fmt.Errorf("%w: title cannot be empty", ErrValidation)
	}

	item, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.guard.CanEdit(actor, item) {
		return nil, fmt.Errorf("%w: %s may not edit content %s", ErrPermissionDenied, actor.ID, id)
	}
	if !item.IsEditable() {
		return nil, fmt.Errorf("%w: cannot edit content in status %q", ErrInvalidTransition, item.Status)
	}

	body := in.Body
	commit := &Commit{
		ContentID:          id,
		ExpectedStatus:     item.Status,
		ExpectedVersion:    item.Version,
		NewStatus:          models.StatusDraft,
		NewVersion:         item.Version + 1,
		Title:              in.Title,
		Body:               &body,
		SetSchedule:        true,
		ScheduledPublishAt: in.ScheduledPublishAt,
		ExpirationDate:     in.ExpirationDate,
		ActorID:            actor.ID,
		HistoryAction:      models.ActionUpdated,
	}
	return e.apply(ctx, commit)
}

// Restore copies a historical snapshot's body into a brand-new version.
// History is never rewritten: the old snapshot stays, a new one is added,
// and the item drops back to draft through the normal update path.
func (e *Engine) Restore(ctx context.Context, id uuid.UUID, version int, actor Actor) (*models.ContentItem, error) {
	item, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.guard.CanEdit(actor, item) {
		return nil, fmt.Errorf("%w: %s may not edit content %s", ErrPermissionDenied, actor.ID, id)
	}
	if !item.IsEditable() {
		return nil, fmt.Errorf("%w: cannot restore content in status %q", ErrInvalidTransition, item.Status)
	}

	snap, err := e.store.FindVersion(ctx, id, version)
	if err != nil {
		return nil, fmt.Errorf("find version %d: %w", version, err)
	}
	if snap == nil {
		return nil, fmt.Errorf("%w: version %d of content %s", ErrNotFound, version, id)
	}

	comments := fmt.Sprintf("restored from version %d", version)
	commit := &Commit{
		ContentID:       id,
		ExpectedStatus:  item.Status,
		ExpectedVersion: item.Version,
		NewStatus:       models.StatusDraft,
		NewVersion:      item.Version + 1,
		Body:            &snap.Body,
		ActorID:         actor.ID,
		HistoryAction:   models.ActionRestored,
		Comments:        &comments,
	}
	return e.apply(ctx, commit)
}

// Transition executes one edge of the state machine for the given actor.
// On success exactly one history entry is appended in the same commit as
// the status change; on any failure nothing is persisted.
func (e *Engine) Transition(ctx context.Context, id uuid.UUID, action Action, actor Actor, p Payload) (*models.ContentItem, error) {
	item, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}

	r, ok := lookup(item.Status, action)
	if !ok {
		return nil, fmt.Errorf("%w: %s from status %q", ErrInvalidTransition, action, item.Status)
	}
	if !e.guard.CanTransition(actor, item, action) {
		return nil, fmt.Errorf("%w: %s may not %s content %s", ErrPermissionDenied, actor.ID, action, id)
	}
	if r.needsComment && strings.TrimSpace(p.Comments) == "" {
		return nil, fmt.Errorf("%w: %s requires a comment", ErrValidation, action)
	}

	commit := &Commit{
		ContentID:       id,
		ExpectedStatus:  item.Status,
		ExpectedVersion: item.Version,
		NewStatus:       r.to,
		NewVersion:      item.Version,
		ActorID:         actor.ID,
		HistoryAction:   r.history,
	}
	if c := strings.TrimSpace(p.Comments); c != "" {
		commit.Comments = &c
	}

	switch action {
	case ActionApprove:
		// Approval publishes immediately unless a future scheduled
		// publish time holds it for the scheduler.
		if item.ScheduledPublishAt == nil || !item.ScheduledPublishAt.After(e.now()) {
			commit.NewStatus = models.StatusPublished
			commit.HistoryAction = models.ActionPublished
			commit.SetPublishedAt = true
		}
	case ActionPublish:
		commit.SetPublishedAt = true
	case ActionArchive:
		commit.SetArchivedAt = true
		if reason := strings.TrimSpace(p.Reason); reason != "" {
			commit.ArchiveReason = &reason
		}
	case ActionExpire:
		commit.SetArchivedAt = true
		reason := "expired"
		commit.ArchiveReason = &reason
	}

	return e.apply(ctx, commit)
}

// load fetches the item or classifies its absence as ErrNotFound.
func (e *Engine) load(ctx context.Context, id uuid.UUID) (*models.ContentItem, error) {
	item, err := e.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load content %s: %w", id, err)
	}
	if item == nil {
		return nil, fmt.Errorf("%w: content %s", ErrNotFound, id)
	}
	return item, nil
}

func (e *Engine) apply(ctx context.Context, commit *Commit) (*models.ContentItem, error) {
	updated, err := e.store.ApplyTransition(ctx, commit)
	if err != nil {
		return nil, fmt.Errorf("apply %s on %s: %w", commit.HistoryAction, commit.ContentID, err)
	}
	return updated, nil
}
