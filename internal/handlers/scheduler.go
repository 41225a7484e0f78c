// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"

	"flowcms/internal/scheduler"
)

// Scheduler groups the administrative scheduler endpoints: manual
// trigger, metrics readout, and metrics reset.
type Scheduler struct {
	sched *scheduler.Scheduler
}

// NewScheduler creates a new Scheduler handler group.
func NewScheduler(sched *scheduler.Scheduler) *Scheduler {
	return &Scheduler{sched: sched}
}

// Run triggers a single scheduler pass on demand. The pass is identical
// to a periodic tick, including the cross-replica lock.
func (s *Scheduler) Run(w http.ResponseWriter, r *http.Request) {
	stats, err := s.sched.RunOnce(r.Context())
	if err != nil {
		slog.Error("manual scheduler run failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]errorBody{
			"error": {Kind: "persistence_error", Message: "scheduler run failed"},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run": stats})
}

// Metrics returns the accumulated scheduler counters.
func (s *Scheduler) Metrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"metrics": s.sched.Metrics()})
}

// ResetMetrics clears the accumulated scheduler counters.
func (s *Scheduler) ResetMetrics(w http.ResponseWriter, r *http.Request) {
	s.sched.ResetMetrics()
	writeJSON(w, http.StatusOK, map[string]string{"status": "metrics reset"})
}
