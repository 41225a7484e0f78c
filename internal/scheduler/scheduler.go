// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package scheduler runs the time-driven side of the content lifecycle:
// a periodic loop that publishes approved content whose scheduled time
// has arrived and archives published content past its expiration date.
// Every transition goes through the workflow engine with the system
// actor, so it is guarded, atomic, and audited exactly like a
// user-driven one.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"flowcms/internal/models"
	"flowcms/internal/workflow"
)

// Engine is the transition surface the scheduler drives. Implemented by
// *workflow.Engine.
type Engine interface {
	Transition(ctx context.Context, id uuid.UUID, action workflow.Action, actor workflow.Actor, p workflow.Payload) (*models.ContentItem, error)
}

// DueStore scans for content whose scheduled time has arrived.
// Implemented by *store.ContentStore.
type DueStore interface {
	DueForPublish(ctx context.Context, now time.Time) ([]models.ContentItem, error)
	DueForExpiry(ctx context.Context, now time.Time) ([]models.ContentItem, error)
}

// Options configures the scheduler loop.
type Options struct {
	// Interval between ticks. Defaults to one minute.
	Interval time.Duration

	// ItemTimeout bounds the database work for a single item.
	// Defaults to five seconds.
	ItemTimeout time.Duration

	// AlertAfter is the number of consecutive failing ticks before an
	// operational alert is logged. Defaults to three.
	AlertAfter int

	// Lock coordinates replicas so a due item is transitioned once per
	// tick. Nil disables coordination (single-instance deployments).
	Lock *TickLock
}

// Scheduler periodically scans for due content and drives workflow
// transitions on its behalf.
type Scheduler struct {
	engine      Engine
	store       DueStore
	actor       workflow.Actor
	interval    time.Duration
	itemTimeout time.Duration
	alertAfter  int
	lock        *TickLock
	now         func() time.Time

	mu               sync.Mutex
	metrics          Metrics
	consecutiveFails int

	runMu   sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// New creates a Scheduler that transitions due items as the given system
// actor.
func New(engine Engine, store DueStore, actor workflow.Actor, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.ItemTimeout <= 0 {
		opts.ItemTimeout = 5 * time.Second
	}
	if opts.AlertAfter <= 0 {
		opts.AlertAfter = 3
	}
	return &Scheduler{
		engine:      engine,
		store:       store,
		actor:       actor,
		interval:    opts.Interval,
		itemTimeout: opts.ItemTimeout,
		alertAfter:  opts.AlertAfter,
		lock:        opts.Lock,
		now:         time.Now,
	}
}

// WithClock overrides the scheduler's time source. Test hook.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Start launches the periodic loop. The loop stops when ctx is canceled
// or Stop is called; a tick already in progress runs to completion.
func (s *Scheduler) Start(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.running {
		return errors.New("scheduler already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		slog.Info("scheduler started", "interval", s.interval.String())
		for {
			select {
			case <-loopCtx.Done():
				slog.Info("scheduler stopped")
				return
			case <-ticker.C:
				// Detached from loopCtx so shutdown never cancels a
				// tick mid-commit.
				s.tick(context.WithoutCancel(loopCtx))
			}
		}
	}()

	return nil
}

// Stop terminates the periodic loop and waits for an in-progress tick to
// finish.
func (s *Scheduler) Stop() {
	s.runMu.Lock()
	if !s.running {
		s.runMu.Unlock()
		return
	}
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.runMu.Unlock()

	cancel()
	s.wg.Wait()
}

// tick runs one scheduled pass and folds the outcome into the metrics
// and the sustained-failure alert.
func (s *Scheduler) tick(ctx context.Context) {
	stats, err := s.RunOnce(ctx)
	if err != nil {
		s.mu.Lock()
		s.consecutiveFails++
		fails := s.consecutiveFails
		s.mu.Unlock()

		slog.Error("scheduler tick failed", "error", err, "consecutive_failures", fails)
		if fails >= s.alertAfter {
			slog.Error("scheduler sustained failure, operator attention required",
				"consecutive_failures", fails,
			)
		}
		return
	}

	s.mu.Lock()
	s.consecutiveFails = 0
	s.mu.Unlock()

	if stats.Transitioned > 0 || stats.Errors > 0 {
		slog.Info("scheduler tick complete",
			"scanned", stats.Scanned,
			"transitioned", stats.Transitioned,
			"already_handled", stats.AlreadyHandled,
			"errors", stats.Errors,
			"duration", stats.Duration.String(),
		)
	}
}

// RunOnce performs a single scan-and-transition pass. The periodic loop
// and the administrative trigger both call it. A failure on one item is
// counted and logged but never aborts the pass; the returned error is
// reserved for failures of the scans themselves.
func (s *Scheduler) RunOnce(ctx context.Context) (RunStats, error) {
	start := s.now()
	var stats RunStats

	if s.lock != nil {
		acquired, release, err := s.lock.TryAcquire(ctx)
		if err != nil {
			return stats, fmt.Errorf("scheduler lock: %w", err)
		}
		if !acquired {
			// Another replica owns this tick.
			return stats, nil
		}
		defer release()
	}

	now := s.now()

	publishErr := s.scan(ctx, &stats, workflow.ActionPublish, func(ctx context.Context) ([]models.ContentItem, error) {
		return s.store.DueForPublish(ctx, now)
	})
	expireErr := s.scan(ctx, &stats, workflow.ActionExpire, func(ctx context.Context) ([]models.ContentItem, error) {
		return s.store.DueForExpiry(ctx, now)
	})

	stats.Duration = s.now().Sub(start)
	s.record(stats)

	if publishErr != nil {
		return stats, publishErr
	}
	return stats, expireErr
}

// scan fetches one due list and transitions every item on it.
func (s *Scheduler) scan(ctx context.Context, stats *RunStats, action workflow.Action, fetch func(context.Context) ([]models.ContentItem, error)) error {
	fetchCtx, cancel := context.WithTimeout(ctx, s.itemTimeout)
	items, err := fetch(fetchCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("scan due items for %s: %w", action, err)
	}

	for _, item := range items {
		stats.Scanned++
		switch err := s.transitionItem(ctx, item.ID, action); {
		case err == nil:
			stats.Transitioned++
		case workflow.IsBenignSchedulerError(err):
			// A user transition or another replica got there first.
			stats.AlreadyHandled++
			slog.Debug("scheduler item already handled", "content_id", item.ID, "action", action)
		default:
			stats.Errors++
			slog.Error("scheduler item failed",
				"content_id", item.ID,
				"action", action,
				"error", err,
			)
		}
	}
	return nil
}

// transitionItem drives one item through the engine, retrying optimistic
// conflicts with a bounded fibonacci backoff.
func (s *Scheduler) transitionItem(ctx context.Context, id uuid.UUID, action workflow.Action) error {
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(50*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		itemCtx, cancel := context.WithTimeout(ctx, s.itemTimeout)
		defer cancel()

		_, err := s.engine.Transition(itemCtx, id, action, s.actor, workflow.Payload{})
		if errors.Is(err, workflow.ErrConflict) {
			return retry.RetryableError(err)
		}
		return err
	})
}
