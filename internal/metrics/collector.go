package metrics

import (
	"sort"
	"sync"
	"time"
)

// Collector aggregates per-target counters for staging and fire activity.
type Collector struct {
	mu      sync.RWMutex
	enabled bool
	started time.Time
	targets map[string]*TargetMetrics
}

// TargetMetrics captures the counters tracked for one target URL.
type TargetMetrics struct {
	Target          string    `json:"target"`
	Rounds          uint64    `json:"rounds"`
	Shots           uint64    `json:"shots"`
	Skips           uint64    `json:"skips"`
	InjectionErrors uint64    `json:"injectionErrors"`
	LastRound       time.Time `json:"lastRound,omitempty"`
	LastErrored     time.Time `json:"lastErrored,omitempty"`
}

// Totals aggregates counters across all targets in a snapshot.
type Totals struct {
	Rounds          uint64 `json:"rounds"`
	Shots           uint64 `json:"shots"`
	Skips           uint64 `json:"skips"`
	InjectionErrors uint64 `json:"injectionErrors"`
}

// Snapshot is the serializable view of the current metrics state.
type Snapshot struct {
	Enabled bool            `json:"enabled"`
	Started time.Time       `json:"started,omitempty"`
	Totals  Totals          `json:"totals"`
	Targets []TargetMetrics `json:"targets,omitempty"`
}

// NewCollector returns a collector with the provided opt-in state.
func NewCollector(enabled bool) *Collector {
	c := &Collector{}
	c.SetEnabled(enabled)
	return c
}

// Enabled reports whether collection is currently active.
func (c *Collector) Enabled() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// SetEnabled toggles collection, resetting counters when enabling.
func (c *Collector) SetEnabled(enabled bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enabled == enabled {
		return
	}
	c.enabled = enabled
	if !enabled {
		c.targets = nil
		c.started = time.Time{}
		return
	}
	c.started = time.Now()
	c.targets = make(map[string]*TargetMetrics)
}

// RecordRound counts one completed round and the shots it landed.
func (c *Collector) RecordRound(target string, shots uint64) {
	c.update(target, func(m *TargetMetrics, now time.Time) {
		m.Rounds++
		m.Shots += shots
		m.LastRound = now
	})
}

// RecordSkip counts a window passed over during a round.
func (c *Collector) RecordSkip(target string) {
	c.update(target, func(m *TargetMetrics, now time.Time) {
		m.Skips++
	})
}

// RecordInjectionError counts a failed injection primitive.
func (c *Collector) RecordInjectionError(target string) {
	c.update(target, func(m *TargetMetrics, now time.Time) {
		m.InjectionErrors++
		m.LastErrored = now
	})
}

func (c *Collector) update(target string, mutate func(*TargetMetrics, time.Time)) {
	if c == nil || mutate == nil {
		return
	}
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	if c.targets == nil {
		c.targets = make(map[string]*TargetMetrics)
	}
	m, exists := c.targets[target]
	if !exists {
		m = &TargetMetrics{Target: target}
		c.targets[target] = m
	}
	mutate(m, now)
}

// Snapshot returns the current counters for serialization or display.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := Snapshot{Enabled: c.enabled}
	if !c.enabled {
		return snap
	}
	snap.Started = c.started
	if len(c.targets) == 0 {
		return snap
	}
	snap.Targets = make([]TargetMetrics, 0, len(c.targets))
	for _, m := range c.targets {
		if m == nil {
			continue
		}
		clone := *m
		snap.Targets = append(snap.Targets, clone)
		snap.Totals.Rounds += clone.Rounds
		snap.Totals.Shots += clone.Shots
		snap.Totals.Skips += clone.Skips
		snap.Totals.InjectionErrors += clone.InjectionErrors
	}
	sort.Slice(snap.Targets, func(i, j int) bool {
		return snap.Targets[i].Target < snap.Targets[j].Target
	})
	return snap
}
