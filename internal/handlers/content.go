// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"flowcms/internal/cache"
	"flowcms/internal/markdown"
	"flowcms/internal/middleware"
	"flowcms/internal/models"
	"flowcms/internal/store"
	"flowcms/internal/workflow"
)

// Content groups the content lifecycle HTTP handlers.
type Content struct {
	engine       *workflow.Engine
	contentStore *store.ContentStore
	versionStore *store.VersionStore
	historyStore *store.HistoryStore
	renderCache  *cache.RenderCache // may be nil; rendering then skips the cache
	dbTimeout    time.Duration
}

// NewContent creates a new Content handler group.
func NewContent(engine *workflow.Engine, contentStore *store.ContentStore, versionStore *store.VersionStore, historyStore *store.HistoryStore, renderCache *cache.RenderCache, dbTimeout time.Duration) *Content {
	if dbTimeout <= 0 {
		dbTimeout = 5 * time.Second
	}
	return &Content{
		engine:       engine,
		contentStore: contentStore,
		versionStore: versionStore,
		historyStore: historyStore,
		renderCache:  renderCache,
		dbTimeout:    dbTimeout,
	}
}

// actor builds the workflow actor from the authenticated session.
func actor(r *http.Request) workflow.Actor {
	sess := middleware.SessionFromCtx(r.Context())
	return workflow.Actor{ID: sess.UserID, Role: models.Role(sess.Role)}
}

// contentID parses the {id} route parameter.
func contentID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

// badRequest reports a malformed request before it reaches the engine.
func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]errorBody{
		"error": {Kind: "validation_error", Message: msg},
	})
}

type contentInput struct {
	Title              string     `json:"title"`
	Body               string     `json:"body"`
	ScheduledPublishAt *time.Time `json:"scheduled_publish_at,omitempty"`
	ExpirationDate     *time.Time `json:"expiration_date,omitempty"`
}

type transitionInput struct {
	Comments string `json:"comments,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// List returns a filtered, paginated content listing.
func (c *Content) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	filter := store.ListFilter{
		Search: q.Get("q"),
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	}
	if len(filter.Search) > maxSearchLen {
		badRequest(w, "search term is too long")
		return
	}
	if status := models.ContentStatus(q.Get("status")); status != "" {
		if !models.ValidStatus(status) {
			badRequest(w, fmt.Sprintf("unknown status %q", status))
			return
		}
		filter.Status = status
	}
	if q.Get("mine") == "true" {
		filter.CreatedBy = actor(r).ID
	}

	ctx, cancel := c.boundCtx(r)
	defer cancel()

	items, total, err := c.contentStore.List(ctx, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items":    items,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

// Create makes a new draft owned by the caller.
func (c *Content) Create(w http.ResponseWriter, r *http.Request) {
	var in contentInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if msg := validateContentInput(in.Title, in.Body); msg != "" {
		badRequest(w, msg)
		return
	}

	ctx, cancel := c.boundCtx(r)
	defer cancel()

	item, err := c.engine.Create(ctx, actor(r), workflow.CreateInput{
		Title:              in.Title,
		Body:               in.Body,
		ScheduledPublishAt: in.ScheduledPublishAt,
		ExpirationDate:     in.ExpirationDate,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// Get returns one content item with its snapshots, audit trail, and the
// rendered body HTML.
func (c *Content) Get(w http.ResponseWriter, r *http.Request) {
	id, err := contentID(r)
	if err != nil {
		badRequest(w, "invalid content id")
		return
	}

	ctx, cancel := c.boundCtx(r)
	defer cancel()

	item, err := c.contentStore.FindByID(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if item == nil {
		writeError(w, fmt.Errorf("%w: content %s", workflow.ErrNotFound, id))
		return
	}

	versions, err := c.versionStore.ListByContent(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	history, err := c.historyStore.ListByContent(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"content":  item,
		"rendered": c.renderBody(r, item),
		"versions": versions,
		"history":  history,
	})
}

// renderBody converts the item's Markdown body to HTML, going through
// the version-keyed Valkey cache when one is configured.
func (c *Content) renderBody(r *http.Request, item *models.ContentItem) string {
	if c.renderCache != nil {
		if html, ok := c.renderCache.Get(r.Context(), item.ID, item.Version); ok {
			return html
		}
	}

	html, err := markdown.Render(item.Body)
	if err != nil {
		slog.Warn("body render failed", "content_id", item.ID, "error", err)
		return ""
	}
	if c.renderCache != nil {
		c.renderCache.Set(r.Context(), item.ID, item.Version, html)
	}
	return html
}

// Update applies a body edit through the engine, which resets the item
// to draft and bumps its version.
func (c *Content) Update(w http.ResponseWriter, r *http.Request) {
	id, err := contentID(r)
	if err != nil {
		badRequest(w, "invalid content id")
		return
	}
	var in contentInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if msg := validateContentInput(in.Title, in.Body); msg != "" {
		badRequest(w, msg)
		return
	}

	ctx, cancel := c.boundCtx(r)
	defer cancel()

	title := in.Title
	item, err := c.engine.Update(ctx, id, actor(r), workflow.UpdateInput{
		Title:              &title,
		Body:               in.Body,
		ScheduledPublishAt: in.ScheduledPublishAt,
		ExpirationDate:     in.ExpirationDate,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Delete removes a content item outright, along with its snapshots and
// history. Restricted to admins at the router.
func (c *Content) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := contentID(r)
	if err != nil {
		badRequest(w, "invalid content id")
		return
	}

	ctx, cancel := c.boundCtx(r)
	defer cancel()

	if err := c.contentStore.Delete(ctx, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// transition is the shared body of all single-action endpoints.
func (c *Content) transition(w http.ResponseWriter, r *http.Request, action workflow.Action) {
	id, err := contentID(r)
	if err != nil {
		badRequest(w, "invalid content id")
		return
	}

	var in transitionInput
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &in); err != nil {
			badRequest(w, "invalid request body")
			return
		}
	}
	if msg := validateComment(in.Comments); msg != "" {
		badRequest(w, msg)
		return
	}

	ctx, cancel := c.boundCtx(r)
	defer cancel()

	item, err := c.engine.Transition(ctx, id, action, actor(r), workflow.Payload{
		Comments: in.Comments,
		Reason:   in.Reason,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Submit moves a draft into review.
func (c *Content) Submit(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, workflow.ActionSubmit)
}

// Approve signs off reviewed content; it publishes immediately unless a
// future scheduled publish time holds it for the scheduler.
func (c *Content) Approve(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, workflow.ActionApprove)
}

// Reject sends reviewed content back to draft.
func (c *Content) Reject(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, workflow.ActionReject)
}

// RequestChanges sends reviewed content back to the author with a
// mandatory comment.
func (c *Content) RequestChanges(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, workflow.ActionRequestChanges)
}

// Archive retires content from any active state.
func (c *Content) Archive(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, workflow.ActionArchive)
}

// Restore copies a historical snapshot into a new version.
func (c *Content) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := contentID(r)
	if err != nil {
		badRequest(w, "invalid content id")
		return
	}
	version, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil || version < 1 {
		badRequest(w, "invalid version number")
		return
	}

	ctx, cancel := c.boundCtx(r)
	defer cancel()

	item, err := c.engine.Restore(ctx, id, version, actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// History returns the audit trail, newest first, with actor names.
func (c *Content) History(w http.ResponseWriter, r *http.Request) {
	id, err := contentID(r)
	if err != nil {
		badRequest(w, "invalid content id")
		return
	}

	ctx, cancel := c.boundCtx(r)
	defer cancel()

	if err := c.mustExist(ctx, w, id); err != nil {
		return
	}
	entries, err := c.historyStore.ListByContent(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": entries})
}

// Versions returns all body snapshots, newest first.
func (c *Content) Versions(w http.ResponseWriter, r *http.Request) {
	id, err := contentID(r)
	if err != nil {
		badRequest(w, "invalid content id")
		return
	}

	ctx, cancel := c.boundCtx(r)
	defer cancel()

	if err := c.mustExist(ctx, w, id); err != nil {
		return
	}
	versions, err := c.versionStore.ListByContent(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"versions": versions})
}

// Scheduled lists approved content waiting on a future publish time.
func (c *Content) Scheduled(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := c.boundCtx(r)
	defer cancel()

	items, err := c.contentStore.ListScheduled(ctx, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// Expiring lists published content that expires within the window given
// by the "within" query parameter (default 168h).
func (c *Content) Expiring(w http.ResponseWriter, r *http.Request) {
	window := 7 * 24 * time.Hour
	if v := r.URL.Query().Get("within"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			badRequest(w, "invalid within duration")
			return
		}
		window = d
	}

	ctx, cancel := c.boundCtx(r)
	defer cancel()

	items, err := c.contentStore.ListExpiring(ctx, time.Now().Add(window))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// mustExist writes not_found and returns an error when the id is unknown.
func (c *Content) mustExist(ctx context.Context, w http.ResponseWriter, id uuid.UUID) error {
	item, err := c.contentStore.FindByID(ctx, id)
	if err != nil {
		writeError(w, err)
		return err
	}
	if item == nil {
		err := fmt.Errorf("%w: content %s", workflow.ErrNotFound, id)
		writeError(w, err)
		return err
	}
	return nil
}

// boundCtx derives a request context with the configured database timeout.
func (c *Content) boundCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), c.dbTimeout)
}
