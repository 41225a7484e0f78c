// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package workflow

import "flowcms/internal/models"

// Action is a workflow transition requested by a caller. Body edits go
// through Engine.Update and Engine.Restore rather than an Action.
type Action string

const (
	ActionSubmit         Action = "submit"
	ActionApprove        Action = "approve"
	ActionReject         Action = "reject"
	ActionRequestChanges Action = "request_changes"
	ActionArchive        Action = "archive"

	// Scheduler-only actions, driven by the background loop on due items.
	ActionPublish Action = "publish"
	ActionExpire  Action = "expire"
)

// rule describes one edge of the state machine: where it leads, what the
// audit trail records, and what the guard needs to know about it.
type rule struct {
	to            models.ContentStatus
	history       models.WorkflowAction
	ownerAllowed  bool // content owner may perform it
	privileged    bool // editor/admin may perform it
	schedulerOnly bool // reserved for the scheduler's system actor
	needsComment  bool
}

// transitions is the full edge list of the content lifecycle. Any
// (status, action) pair absent from this table is an invalid transition.
// Approve is special-cased in the engine: with a future scheduled publish
// time it lands in approved, otherwise it publishes immediately.
var transitions = map[models.ContentStatus]map[Action]rule{
	models.StatusDraft: {
		ActionSubmit:  {to: models.StatusReview, history: models.ActionSubmitted, ownerAllowed: true, privileged: true},
		ActionArchive: {to: models.StatusArchived, history: models.ActionArchived, ownerAllowed: true, privileged: true},
	},
	models.StatusChangesRequested: {
		ActionSubmit:  {to: models.StatusReview, history: models.ActionSubmitted, ownerAllowed: true, privileged: true},
		ActionArchive: {to: models.StatusArchived, history: models.ActionArchived, ownerAllowed: true, privileged: true},
	},
	models.StatusReview: {
		ActionApprove:        {to: models.StatusApproved, history: models.ActionApproved, privileged: true},
		ActionReject:         {to: models.StatusDraft, history: models.ActionRejected, privileged: true},
		ActionRequestChanges: {to: models.StatusChangesRequested, history: models.ActionRequestedChanges, privileged: true, needsComment: true},
		ActionArchive:        {to: models.StatusArchived, history: models.ActionArchived, ownerAllowed: true, privileged: true},
	},
	models.StatusApproved: {
		ActionPublish: {to: models.StatusPublished, history: models.ActionPublished, schedulerOnly: true},
		ActionArchive: {to: models.StatusArchived, history: models.ActionArchived, ownerAllowed: true, privileged: true},
	},
	models.StatusPublished: {
		ActionExpire:  {to: models.StatusArchived, history: models.ActionArchived, schedulerOnly: true},
		ActionArchive: {to: models.StatusArchived, history: models.ActionArchived, ownerAllowed: true, privileged: true},
	},
	// StatusArchived is terminal: no outbound edges.
}

// lookup returns the rule for (status, action), or false when the edge
// does not exist.
func lookup(status models.ContentStatus, action Action) (rule, bool) {
	edges, ok := transitions[status]
	if !ok {
		return rule{}, false
	}
	r, ok := edges[action]
	return r, ok
}
