// Package sync implements the synchronization layer that compares the
// slow and fast oscillators and derives the combined coherence signal.
package sync

import (
	stdsync "sync"
	"time"

	"github.com/mrhavens/becomingone/internal/domain/oscillator"
	"github.com/mrhavens/becomingone/internal/shared"
)

// EventEmitter is the narrow emission interface the layer needs. It
// decouples the layer from the concrete event bus.
type EventEmitter interface {
	Emit(event shared.Event)
}

// Config holds the synchronization layer tunables.
type Config struct {
	// PhaseThreshold is the maximum resonance-magnitude difference for the
	// oscillators to count as aligned. Differences beyond twice this value
	// dissipate the tick.
	PhaseThreshold float64 `json:"phaseThreshold"`
	// CollapseThreshold is the combined coherence required for collapse.
	CollapseThreshold float64 `json:"collapseThreshold"`
	// Dampening is applied to the combined resonance while collapsed.
	Dampening float64 `json:"dampening"`
	// HistoryCapacity bounds the tick history log.
	HistoryCapacity int `json:"historyCapacity"`
	// DissipationCapacity bounds the dissipation log.
	DissipationCapacity int `json:"dissipationCapacity"`
}

// DefaultConfig returns the default layer configuration.
func DefaultConfig() Config {
	return Config{
		PhaseThreshold:      0.1,
		CollapseThreshold:   0.80,
		Dampening:           0.995,
		HistoryCapacity:     10000,
		DissipationCapacity: 1000,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.PhaseThreshold <= 0 {
		return shared.NewValidationError("phase threshold must be positive", map[string]interface{}{
			"phaseThreshold": c.PhaseThreshold,
		})
	}
	if c.CollapseThreshold < 0 || c.CollapseThreshold > 1 {
		return shared.NewValidationError("collapse threshold must be in [0, 1]", map[string]interface{}{
			"collapseThreshold": c.CollapseThreshold,
		})
	}
	if c.Dampening <= 0 || c.Dampening > 1 {
		return shared.NewValidationError("dampening must be in (0, 1]", map[string]interface{}{
			"dampening": c.Dampening,
		})
	}
	return nil
}

// Layer compares two oscillators on each tick and maintains the combined
// signal. It only reads oscillator state; it never mutates them.
type Layer struct {
	mu     stdsync.Mutex
	config Config

	slow *oscillator.Oscillator
	fast *oscillator.Oscillator

	combined          shared.Phase
	combinedCoherence float64
	phaseDifference   float64
	aligned           bool
	collapsed         bool
	collapsedAt       time.Time

	history      []shared.SyncRecord
	dissipations []shared.DissipationRecord

	emitter EventEmitter
}

// Options holds optional dependencies for the Layer.
type Options struct {
	// Emitter receives collapse and dissipation events.
	Emitter EventEmitter
}

// NewLayer creates a synchronization layer over the given oscillator pair.
func NewLayer(slow, fast *oscillator.Oscillator, config Config, opts Options) (*Layer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Layer{
		config:  config,
		slow:    slow,
		fast:    fast,
		emitter: opts.Emitter,
	}, nil
}

// Synchronize runs one tick: snapshot both resonances, compute alignment,
// combine, and evaluate collapse. A tick whose phase difference exceeds
// twice the phase threshold is dissipated: the combined state keeps its
// last known value.
func (l *Layer) Synchronize() shared.SyncRecord {
	slowRes := l.slow.Resonance()
	fastRes := l.fast.Resonance()

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now().UTC()

	diff := slowRes.Abs() - fastRes.Abs()
	if diff < 0 {
		diff = -diff
	}
	l.phaseDifference = diff
	l.aligned = diff <= l.config.PhaseThreshold

	dissipated := diff > 2*l.config.PhaseThreshold
	if dissipated {
		record := shared.DissipationRecord{
			Timestamp:       now,
			PhaseDifference: diff,
			SlowCoherence:   oscillator.CoherenceOf(slowRes),
			FastCoherence:   oscillator.CoherenceOf(fastRes),
			Reason:          "phase misalignment beyond threshold",
		}
		l.dissipations = append(l.dissipations, record)
		if over := len(l.dissipations) - l.config.DissipationCapacity; over > 0 {
			l.dissipations = l.dissipations[over:]
		}
		if l.emitter != nil {
			l.emitter.Emit(shared.Event{
				Type:      shared.EventSyncDissipated,
				Timestamp: shared.Now(),
				Payload: map[string]interface{}{
					"phaseDifference": record.PhaseDifference,
					"slowCoherence":   record.SlowCoherence,
					"fastCoherence":   record.FastCoherence,
					"reason":          record.Reason,
				},
			})
		}
	} else {
		wasCollapsed := l.collapsed

		l.combined = slowRes.Add(fastRes).Scale(0.5)
		l.combinedCoherence = oscillator.CoherenceOf(l.combined)

		if wasCollapsed {
			// Keep the collapsed signal from growing without bound.
			l.combined = l.combined.Scale(l.config.Dampening)
			l.combinedCoherence = oscillator.CoherenceOf(l.combined)
		}

		l.collapsed = l.combinedCoherence >= l.config.CollapseThreshold
		if l.collapsed && !wasCollapsed {
			l.collapsedAt = now
			if l.emitter != nil {
				l.emitter.Emit(shared.Event{
					Type:      shared.EventSyncCollapse,
					Timestamp: shared.Now(),
					Payload: map[string]interface{}{
						"combinedCoherence": l.combinedCoherence,
						"phaseDifference":   l.phaseDifference,
					},
				})
			}
		}
	}

	record := shared.SyncRecord{
		Timestamp:         now,
		SlowResonance:     slowRes,
		FastResonance:     fastRes,
		CombinedResonance: l.combined,
		CombinedCoherence: l.combinedCoherence,
		PhaseDifference:   l.phaseDifference,
		Aligned:           l.aligned,
		Collapsed:         l.collapsed,
		Dissipated:        dissipated,
		SlowIntegrations:  l.slow.IntegrationCount(),
		FastIntegrations:  l.fast.IntegrationCount(),
	}

	l.history = append(l.history, record)
	if over := len(l.history) - l.config.HistoryCapacity; over > 0 {
		l.history = l.history[over:]
	}

	return record
}

// Snapshot returns the last known combined state without running a tick.
func (l *Layer) Snapshot() shared.SyncRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	return shared.SyncRecord{
		Timestamp:         time.Now().UTC(),
		CombinedResonance: l.combined,
		CombinedCoherence: l.combinedCoherence,
		PhaseDifference:   l.phaseDifference,
		Aligned:           l.aligned,
		Collapsed:         l.collapsed,
		SlowIntegrations:  l.slow.IntegrationCount(),
		FastIntegrations:  l.fast.IntegrationCount(),
	}
}

// CollapsedAt returns when the combined signal first collapsed.
func (l *Layer) CollapsedAt() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.collapsedAt
}

// History returns a copy of the tick history.
func (l *Layer) History() []shared.SyncRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]shared.SyncRecord, len(l.history))
	copy(out, l.history)
	return out
}

// Dissipations returns a copy of the dissipation log.
func (l *Layer) Dissipations() []shared.DissipationRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]shared.DissipationRecord, len(l.dissipations))
	copy(out, l.dissipations)
	return out
}

// Config returns the layer configuration.
func (l *Layer) Config() Config {
	return l.config
}

// Reset clears the combined state and logs.
func (l *Layer) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.combined = shared.ZeroPhase()
	l.combinedCoherence = 0
	l.phaseDifference = 0
	l.aligned = false
	l.collapsed = false
	l.collapsedAt = time.Time{}
	l.history = nil
	l.dissipations = nil
}
