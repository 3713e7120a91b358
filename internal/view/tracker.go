package view

import "sync/atomic"

// Tracker counts views. It backs the infra endpoint.
type Tracker struct {
	active atomic.Int64
	total  atomic.Int64
}

func NewTracker() *Tracker { return &Tracker{} }

func (t *Tracker) add() {
	t.active.Add(1)
	t.total.Add(1)
}

func (t *Tracker) remove() { t.active.Add(-1) }

// Active returns the number of live views.
func (t *Tracker) Active() int64 { return t.active.Load() }

// Total returns the number of views activated since start.
func (t *Tracker) Total() int64 { return t.total.Load() }
