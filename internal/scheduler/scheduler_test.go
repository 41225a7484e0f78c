package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"flowcms/internal/models"
	"flowcms/internal/workflow"
)

// fakeEngine records transitions and returns scripted errors per item.
type fakeEngine struct {
	errs  map[uuid.UUID]error
	flaky map[uuid.UUID]int // remaining conflicts before success

	calls []call
}

type call struct {
	id     uuid.UUID
	action workflow.Action
	actor  workflow.Actor
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		errs:  make(map[uuid.UUID]error),
		flaky: make(map[uuid.UUID]int),
	}
}

func (f *fakeEngine) Transition(_ context.Context, id uuid.UUID, action workflow.Action, actor workflow.Actor, _ workflow.Payload) (*models.ContentItem, error) {
	f.calls = append(f.calls, call{id: id, action: action, actor: actor})
	if n := f.flaky[id]; n > 0 {
		f.flaky[id] = n - 1
		return nil, fmt.Errorf("stale update: %w", workflow.ErrConflict)
	}
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	return &models.ContentItem{ID: id}, nil
}

type fakeDueStore struct {
	publish []models.ContentItem
	expire  []models.ContentItem

	publishErr error
	expireErr  error
}

func (f *fakeDueStore) DueForPublish(context.Context, time.Time) ([]models.ContentItem, error) {
	return f.publish, f.publishErr
}

func (f *fakeDueStore) DueForExpiry(context.Context, time.Time) ([]models.ContentItem, error) {
	return f.expire, f.expireErr
}

func due(n int) []models.ContentItem {
	items := make([]models.ContentItem, n)
	for i := range items {
		items[i] = models.ContentItem{ID: uuid.New()}
	}
	return items
}

var systemActor = workflow.Actor{ID: uuid.New(), Role: models.RoleSystem}

func TestRunOnceTransitionsDueItems(t *testing.T) {
	engine := newFakeEngine()
	store := &fakeDueStore{publish: due(2), expire: due(1)}
	s := New(engine, store, systemActor, Options{})

	stats, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if stats.Scanned != 3 || stats.Transitioned != 3 || stats.Errors != 0 {
		t.Errorf("stats: %+v", stats)
	}

	if len(engine.calls) != 3 {
		t.Fatalf("calls: got %d, want 3", len(engine.calls))
	}
	for i, c := range engine.calls {
		want := workflow.ActionPublish
		if i == 2 {
			want = workflow.ActionExpire
		}
		if c.action != want {
			t.Errorf("call %d: action %q, want %q", i, c.action, want)
		}
		if c.actor.Role != models.RoleSystem {
			t.Errorf("call %d: actor role %q, want system", i, c.actor.Role)
		}
	}
}

func TestRunOnceIsolatesItemFailures(t *testing.T) {
	engine := newFakeEngine()
	items := due(3)
	engine.errs[items[1].ID] = errors.New("connection reset")
	store := &fakeDueStore{publish: items}
	s := New(engine, store, systemActor, Options{})

	stats, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if stats.Scanned != 3 {
		t.Errorf("scanned: got %d, want 3", stats.Scanned)
	}
	if stats.Transitioned != 2 {
		t.Errorf("transitioned: got %d, want 2 (failure must not abort the pass)", stats.Transitioned)
	}
	if stats.Errors != 1 {
		t.Errorf("errors: got %d, want 1", stats.Errors)
	}
}

func TestRunOnceCountsBenignErrorsAsHandled(t *testing.T) {
	engine := newFakeEngine()
	items := due(2)
	// Invalid transition means someone else already moved the item on.
	engine.errs[items[0].ID] = fmt.Errorf("publish from published: %w", workflow.ErrInvalidTransition)
	engine.errs[items[1].ID] = fmt.Errorf("gone: %w", workflow.ErrNotFound)
	store := &fakeDueStore{publish: items}
	s := New(engine, store, systemActor, Options{})

	stats, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if stats.AlreadyHandled != 2 {
		t.Errorf("already handled: got %d, want 2", stats.AlreadyHandled)
	}
	if stats.Errors != 0 {
		t.Errorf("errors: got %d, want 0", stats.Errors)
	}
}

func TestRunOnceRetriesConflicts(t *testing.T) {
	engine := newFakeEngine()
	items := due(1)
	engine.flaky[items[0].ID] = 2 // two conflicts, then success
	store := &fakeDueStore{publish: items}
	s := New(engine, store, systemActor, Options{})

	stats, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if stats.Transitioned != 1 || stats.Errors != 0 {
		t.Errorf("stats: %+v", stats)
	}
	if len(engine.calls) != 3 {
		t.Errorf("calls: got %d, want 3 (two conflicts plus the success)", len(engine.calls))
	}
}

func TestRunOnceGivesUpAfterPersistentConflict(t *testing.T) {
	engine := newFakeEngine()
	items := due(1)
	engine.flaky[items[0].ID] = 100
	store := &fakeDueStore{publish: items}
	s := New(engine, store, systemActor, Options{})

	stats, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if stats.Errors != 1 {
		t.Errorf("errors: got %d, want 1", stats.Errors)
	}
	if len(engine.calls) != 4 {
		t.Errorf("calls: got %d, want 4 (initial attempt plus three retries)", len(engine.calls))
	}
}

func TestRunOnceScanFailure(t *testing.T) {
	engine := newFakeEngine()
	store := &fakeDueStore{
		publishErr: errors.New("db down"),
		expire:     due(1),
	}
	s := New(engine, store, systemActor, Options{})

	stats, err := s.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected scan error")
	}
	// A failing publish scan does not stop the expiry scan.
	if stats.Transitioned != 1 {
		t.Errorf("transitioned: got %d, want 1", stats.Transitioned)
	}
}

func TestMetricsAccumulateAndReset(t *testing.T) {
	engine := newFakeEngine()
	store := &fakeDueStore{publish: due(2)}
	s := New(engine, store, systemActor, Options{})

	ctx := context.Background()
	if _, err := s.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if _, err := s.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	m := s.Metrics()
	if m.Runs != 2 {
		t.Errorf("runs: got %d, want 2", m.Runs)
	}
	if m.ItemsScanned != 4 || m.Transitioned != 4 {
		t.Errorf("totals: %+v", m)
	}
	if m.LastRunAt.IsZero() {
		t.Error("last run time not recorded")
	}

	s.ResetMetrics()
	m = s.Metrics()
	if m.Runs != 0 || m.ItemsScanned != 0 {
		t.Errorf("after reset: %+v", m)
	}
}

func TestStartStop(t *testing.T) {
	engine := newFakeEngine()
	store := &fakeDueStore{publish: due(1)}
	s := New(engine, store, systemActor, Options{Interval: 10 * time.Millisecond})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(context.Background()); err == nil {
		t.Error("second Start should fail while running")
	}

	deadline := time.After(2 * time.Second)
	for s.Metrics().Runs == 0 {
		select {
		case <-deadline:
			t.Fatal("no tick observed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	s.Stop()
	s.Stop() // idempotent

	runs := s.Metrics().Runs
	time.Sleep(30 * time.Millisecond)
	if got := s.Metrics().Runs; got != runs {
		t.Errorf("ticks continued after Stop: %d -> %d", runs, got)
	}

	// The scheduler can be restarted after a clean stop.
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	s.Stop()
}
