// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// ContentStatus represents a content item's position in the editorial
// review lifecycle.
type ContentStatus string

const (
	StatusDraft            ContentStatus = "draft"
	StatusReview           ContentStatus = "review"
	StatusChangesRequested ContentStatus = "changes_requested"
	StatusApproved         ContentStatus = "approved"
	StatusPublished        ContentStatus = "published"
	StatusArchived         ContentStatus = "archived"
)

// ValidStatus reports whether s is one of the recognized lifecycle states.
func ValidStatus(s ContentStatus) bool {
	switch s {
	case StatusDraft, StatusReview, StatusChangesRequested,
		StatusApproved, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// WorkflowAction names a recorded workflow operation. Actions mirror the
// transition that produced them and appear verbatim in the audit trail.
type WorkflowAction string

const (
	ActionCreated          WorkflowAction = "created"
	ActionUpdated          WorkflowAction = "updated"
	ActionSubmitted        WorkflowAction = "submitted"
	ActionApproved         WorkflowAction = "approved"
	ActionPublished        WorkflowAction = "published"
	ActionRejected         WorkflowAction = "rejected"
	ActionRequestedChanges WorkflowAction = "requested_changes"
	ActionArchived         WorkflowAction = "archived"
	ActionRestored         WorkflowAction = "restored"
)

// ContentItem is a piece of editorial content moving through the review
// workflow. Version counts body revisions and increases by exactly one on
// every body mutation; Status only changes through a workflow transition.
type ContentItem struct {
	ID                 uuid.UUID     `json:"id"`
	Title              string        `json:"title"`
	Body               string        `json:"body"`
	Status             ContentStatus `json:"status"`
	Version            int           `json:"version"`
	CreatedBy          uuid.UUID     `json:"created_by"`
	LastModifiedBy     uuid.UUID     `json:"last_modified_by"`
	ScheduledPublishAt *time.Time    `json:"scheduled_publish_at,omitempty"`
	ExpirationDate     *time.Time    `json:"expiration_date,omitempty"`
	PublishedAt        *time.Time    `json:"published_at,omitempty"`
	ArchivedAt         *time.Time    `json:"archived_at,omitempty"`
	ArchiveReason      *string       `json:"archive_reason,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// IsEditable reports whether the body may be modified in the current state.
// Edits are only allowed before review sign-off.
func (c *ContentItem) IsEditable() bool {
	return c.Status == StatusDraft || c.Status == StatusChangesRequested
}

// IsOwnedBy reports whether the given user created this content item.
func (c *ContentItem) IsOwnedBy(userID uuid.UUID) bool {
	return c.CreatedBy == userID
}

// ContentVersion is an immutable snapshot of a content item's body at a
// given version number. Versions for one item form a gapless sequence
// starting at 1; a snapshot is never rewritten once stored.
type ContentVersion struct {
	ContentID uuid.UUID `json:"content_id"`
	Version   int       `json:"version"`
	Body      string    `json:"body"`
	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// WorkflowHistoryEntry is one append-only audit record of a workflow
// action. ActorName is resolved from the users table at read time and is
// not stored on the row.
type WorkflowHistoryEntry struct {
	ID        uuid.UUID      `json:"id"`
	ContentID uuid.UUID      `json:"content_id"`
	ActorID   uuid.UUID      `json:"actor_id"`
	ActorName string         `json:"actor_name,omitempty"`
	Action    WorkflowAction `json:"action"`
	Comments  *string        `json:"comments,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
