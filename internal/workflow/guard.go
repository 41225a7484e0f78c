// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package workflow

import (
	"github.com/google/uuid"

	"flowcms/internal/models"
)

// Actor is the identity attempting a workflow operation: an authenticated
// user, or the scheduler's system account.
type Actor struct {
	ID   uuid.UUID
	Role models.Role
}

// IsScheduler reports whether the actor is the scheduler's service account.
func (a Actor) IsScheduler() bool {
	return a.Role == models.RoleSystem
}

// IsPrivileged reports whether the actor may perform review decisions on
// content it does not own.
func (a Actor) IsPrivileged() bool {
	return a.Role == models.RoleAdmin || a.Role == models.RoleEditor
}

// AccessGuard decides whether an actor may perform a transition on a
// content item. A separate implementation can encode a different
// deployment policy without the engine changing.
type AccessGuard interface {
	CanTransition(actor Actor, item *models.ContentItem, action Action) bool
	CanEdit(actor Actor, item *models.ContentItem) bool
}

// RolePolicy is the default guard: owners manage their own drafts,
// editors and admins review everything, the system actor drives
// scheduler-only edges.
type RolePolicy struct{}

// CanTransition applies the role rules for a single edge. The edge's
// existence for the item's current status is the engine's concern, not
// the guard's.
func (RolePolicy) CanTransition(actor Actor, item *models.ContentItem, action Action) bool {
	r, ok := lookup(item.Status, action)
	if !ok {
		// No edge — let the engine report ErrInvalidTransition instead
		// of masking it as a permission failure.
		return true
	}

	if r.schedulerOnly {
		return actor.IsScheduler()
	}
	if actor.IsScheduler() {
		// The system account only drives its own edges.
		return false
	}
	if r.privileged && actor.IsPrivileged() {
		return true
	}
	return r.ownerAllowed && item.IsOwnedBy(actor.ID)
}

// CanEdit reports whether the actor may modify the item's body: the
// owner, or a privileged reviewer.
func (RolePolicy) CanEdit(actor Actor, item *models.ContentItem) bool {
	if actor.IsScheduler() {
		return false
	}
	return actor.IsPrivileged() || item.IsOwnedBy(actor.ID)
}
