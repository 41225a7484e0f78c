// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package scheduler

import "time"

// RunStats summarizes a single scheduler pass.
type RunStats struct {
	Scanned        int           `json:"scanned"`
	Transitioned   int           `json:"transitioned"`
	AlreadyHandled int           `json:"already_handled"`
	Errors         int           `json:"errors"`
	Duration       time.Duration `json:"duration"`
}

// Metrics accumulates scheduler activity across runs. The value is owned
// by the Scheduler instance; Metrics() hands out copies and Reset
// installs a fresh value, so no global mutable state leaks between tests
// or callers.
type Metrics struct {
	Runs            int64         `json:"runs"`
	ItemsScanned    int64         `json:"items_scanned"`
	Transitioned    int64         `json:"items_transitioned"`
	AlreadyHandled  int64         `json:"items_already_handled"`
	Errors          int64         `json:"errors"`
	LastRunAt       time.Time     `json:"last_run_at"`
	LastRunDuration time.Duration `json:"last_run_duration"`
}

// record folds one run's stats into the accumulated metrics.
func (s *Scheduler) record(stats RunStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.Runs++
	s.metrics.ItemsScanned += int64(stats.Scanned)
	s.metrics.Transitioned += int64(stats.Transitioned)
	s.metrics.AlreadyHandled += int64(stats.AlreadyHandled)
	s.metrics.Errors += int64(stats.Errors)
	s.metrics.LastRunAt = s.now()
	s.metrics.LastRunDuration = stats.Duration
}

// Metrics returns a copy of the accumulated counters.
func (s *Scheduler) Metrics() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}

// ResetMetrics replaces the accumulated counters with a fresh value.
func (s *Scheduler) ResetMetrics() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = Metrics{}
	s.consecutiveFails = 0
}
