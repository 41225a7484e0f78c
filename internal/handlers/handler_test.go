// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler
// integration tests. Tests are skipped when PostgreSQL is unavailable;
// the auth flow additionally needs Valkey.
package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"flowcms/internal/database"
	"flowcms/internal/middleware"
	"flowcms/internal/models"
	"flowcms/internal/scheduler"
	"flowcms/internal/session"
	"flowcms/internal/store"
	"flowcms/internal/workflow"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test PostgreSQL and runs migrations.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "flowcms")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "flowcms")
	dsn := "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// testEnv holds all dependencies for handler integration tests. The
// render cache is left nil so tests run against Postgres alone.
type testEnv struct {
	DB           *sql.DB
	ContentStore *store.ContentStore
	VersionStore *store.VersionStore
	HistoryStore *store.HistoryStore
	UserStore    *store.UserStore
	Engine       *workflow.Engine
	Content      *Content
	Scheduler    *Scheduler
}

// newTestEnv creates a complete test environment with all handler
// dependencies wired to the real stores and engine.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testDB(t)
	contentStore := store.NewContentStore(db)
	versionStore := store.NewVersionStore(db)
	historyStore := store.NewHistoryStore(db)
	userStore := store.NewUserStore(db)
	eng := workflow.New(contentStore, workflow.RolePolicy{})

	sysUser, err := userStore.EnsureSchedulerUser(context.Background())
	if err != nil {
		t.Fatalf("ensure scheduler user: %v", err)
	}
	sysActor := workflow.Actor{ID: sysUser.ID, Role: models.RoleSystem}
	sched := scheduler.New(eng, contentStore, sysActor, scheduler.Options{})

	return &testEnv{
		DB:           db,
		ContentStore: contentStore,
		VersionStore: versionStore,
		HistoryStore: historyStore,
		UserStore:    userStore,
		Engine:       eng,
		Content:      NewContent(eng, contentStore, versionStore, historyStore, nil, 5*time.Second),
		Scheduler:    NewScheduler(sched),
	}
}

// testUser creates a throwaway user for the test. Cleanup removes the
// user together with any content it authored or touched.
func testUser(t *testing.T, db *sql.DB, role models.Role) *models.User {
	t.Helper()

	email := "handler-" + uuid.NewString() + "@flowcms.test"
	u, err := store.NewUserStore(db).Create(context.Background(), &models.User{
		Email:        email,
		PasswordHash: "x",
		DisplayName:  "Test User",
		Role:         role,
	})
	if err != nil {
		t.Fatalf("create test user: %v", err)
	}
	t.Cleanup(func() {
		db.Exec("DELETE FROM content_items WHERE created_by = $1 OR last_modified_by = $1", u.ID)
		db.Exec("DELETE FROM content_versions WHERE created_by = $1", u.ID)
		db.Exec("DELETE FROM content_workflow_history WHERE user_id = $1", u.ID)
		db.Exec("DELETE FROM users WHERE id = $1", u.ID)
	})
	return u
}

// sessionFor builds the session payload an authenticated request carries.
func sessionFor(u *models.User) *session.Data {
	return &session.Data{
		UserID:      u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        string(u.Role),
	}
}

// withSession attaches session data to a request using the middleware key.
func withSession(r *http.Request, sess *session.Data) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), middleware.SessionKey, sess))
}

// withChiURLParam adds a chi URL parameter to a request.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// withChiURLParamAndSession adds both a chi URL param and a session.
func withChiURLParamAndSession(r *http.Request, key, value string, sess *session.Data) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	ctx = context.WithValue(ctx, middleware.SessionKey, sess)
	return r.WithContext(ctx)
}

// decodeItem parses a content item from a successful response body.
func decodeItem(t *testing.T, rec *httptest.ResponseRecorder) *models.ContentItem {
	t.Helper()
	var item models.ContentItem
	if err := json.Unmarshal(rec.Body.Bytes(), &item); err != nil {
		t.Fatalf("decode content item: %v (body %s)", err, rec.Body.String())
	}
	return &item
}

// errorKind parses the error envelope and returns its kind.
func errorKind(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Kind    string `json:"kind"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error envelope: %v (body %s)", err, rec.Body.String())
	}
	return body.Error.Kind
}
