// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package workflow

import "errors"

// Sentinel errors classifying every way a workflow operation can fail.
// Callers branch on these with errors.Is; anything not wrapping one of
// them is a persistence failure from the underlying store.
var (
	// ErrNotFound means the content id is unknown.
	ErrNotFound = errors.New("content not found")

	// ErrPermissionDenied means the access guard rejected the actor.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidTransition means the requested action has no edge from
	// the item's current status.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrValidation means required input was missing or malformed.
	ErrValidation = errors.New("validation failed")

	// ErrConflict means the optimistic status/version check failed
	// because a concurrent transition committed first. Safe to retry.
	ErrConflict = errors.New("version conflict")
)

// IsBenignSchedulerError reports whether err is the expected outcome of a
// duplicate scheduler attempt: a second replica (or a racing user) already
// moved the item, so the edge no longer exists or the optimistic check
// failed. Treated as "already handled", not as a failure.
func IsBenignSchedulerError(err error) bool {
	return errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrNotFound)
}
