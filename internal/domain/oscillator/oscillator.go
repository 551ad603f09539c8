package oscillator

import (
	"math"
	"sync"
	"time"

	"github.com/mrhavens/becomingone/internal/shared"
)

// Config holds the tunable parameters of one oscillator. Immutable after
// construction.
type Config struct {
	// IntegrationScale is the base integration window in seconds.
	IntegrationScale float64 `json:"integrationScale"`
	// MaxWindow is the maximum integration window in seconds. Must be at
	// least IntegrationScale.
	MaxWindow float64 `json:"maxWindow"`
	// OscillationRate is the spectral frequency in rad/s.
	OscillationRate float64 `json:"oscillationRate"`
	// CollapseThreshold is the critical coherence for collapse, in [0, 1].
	CollapseThreshold float64 `json:"collapseThreshold"`
	// HistoryCapacity bounds the retained sample count. Derived from the
	// window ratio when zero.
	HistoryCapacity int `json:"historyCapacity"`
	// Dampening bounds runaway magnitude, applied per advance and to the
	// whole history after collapse. Must be in (0, 1].
	Dampening float64 `json:"dampening"`
}

// SlowConfig returns the long-window, high-threshold configuration: the
// contemplative pathway that accumulates coherence over minutes.
func SlowConfig() Config {
	return Config{
		IntegrationScale:  60.0,
		MaxWindow:         3600.0,
		OscillationRate:   shared.TwoPi,
		CollapseThreshold: 0.90,
		Dampening:         0.999,
	}
}

// FastConfig returns the short-window, low-threshold configuration: the
// responsive pathway that collapses within seconds.
func FastConfig() Config {
	return Config{
		IntegrationScale:  0.01,
		MaxWindow:         1.0,
		OscillationRate:   shared.TwoPi * 10,
		CollapseThreshold: 0.70,
		Dampening:         0.999,
	}
}

// Validate checks the configuration. Construction fails on any violation.
func (c Config) Validate() error {
	if c.IntegrationScale <= 0 {
		return shared.NewValidationError("integration scale must be positive", map[string]interface{}{
			"integrationScale": c.IntegrationScale,
		})
	}
	if c.MaxWindow < c.IntegrationScale {
		return shared.NewValidationError("max window must be at least the integration scale", map[string]interface{}{
			"maxWindow":        c.MaxWindow,
			"integrationScale": c.IntegrationScale,
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

// historyCapacity derives the retained sample budget from the window ratio
// when not set explicitly.
func (c Config) historyCapacity() int {
	if c.HistoryCapacity > 0 {
		return c.HistoryCapacity
	}
	derived := int(c.MaxWindow/c.IntegrationScale) * 2
	if derived < 16 {
		derived = 16
	}
	return derived
}

// Stats summarizes the recent coherence trajectory.
type Stats struct {
	Coherence      float64 `json:"coherence"`
	RollingAverage float64 `json:"rollingAverage"`
	Trend          float64 `json:"trend"`
	Samples        int     `json:"samples"`
}

// Oscillator couples a PhaseTracker, the resonance calculation, and a
// CollapseCondition behind one configuration. It is safe for one writer
// (Integrate/Advance) concurrent with any number of snapshot readers.
type Oscillator struct {
	mu     sync.RWMutex
	name   string
	config Config

	tracker  *PhaseTracker
	collapse *CollapseCondition

	integrations  int64
	coherenceHist []float64
	lastState     shared.TemporalState
}

// New creates an oscillator from a validated configuration.
func New(name string, config Config) (*Oscillator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Oscillator{
		name:     name,
		config:   config,
		tracker:  NewPhaseTracker(config.OscillationRate, config.Dampening, config.historyCapacity()),
		collapse: NewCollapseCondition(config.CollapseThreshold),
	}, nil
}

// Name returns the oscillator's name.
func (o *Oscillator) Name() string {
	return o.name
}

// Config returns the construction-time configuration.
func (o *Oscillator) Config() Config {
	return o.config
}

// Integrate appends an input phase, recomputes resonance over the retained
// window, evaluates the collapse condition, and returns the resulting
// state snapshot.
func (o *Oscillator) Integrate(phase shared.Phase, timestamp time.Time) shared.TemporalState {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.tracker.Record(phase, timestamp, "integrate")
	return o.finishStep(phase, timestamp)
}

// Advance rotates the phase forward by dt seconds without external input
// and evaluates the window exactly as Integrate does.
func (o *Oscillator) Advance(dt float64) shared.TemporalState {
	o.mu.Lock()
	defer o.mu.Unlock()

	sample := o.tracker.Advance(dt, "advance")
	return o.finishStep(sample.Phase, sample.Timestamp)
}

func (o *Oscillator) finishStep(phase shared.Phase, timestamp time.Time) shared.TemporalState {
	resonance := Resonance(o.tracker.Samples(), o.config.OscillationRate)
	coherence := CoherenceOf(resonance)

	outcome := o.collapse.Evaluate(coherence, timestamp)
	if o.collapse.Collapsed() {
		// Bound accumulated magnitude once collapsed.
		o.tracker.Dampen(o.config.Dampening)
	}

	o.integrations++
	o.coherenceHist = append(o.coherenceHist, coherence)
	if len(o.coherenceHist) > o.config.historyCapacity() {
		o.coherenceHist = o.coherenceHist[len(o.coherenceHist)-o.config.historyCapacity():]
	}

	state := shared.TemporalState{
		Phase:        phase,
		Resonance:    resonance,
		Coherence:    coherence,
		Timestamp:    timestamp,
		Collapsed:    o.collapse.Collapsed(),
		Integrations: o.integrations,
		PhaseAngles:  o.tracker.Angles(10),
		Metadata: map[string]interface{}{
			"oscillator": o.name,
			"outcome":    string(outcome),
			"velocity":   o.tracker.Velocity(),
		},
	}
	o.lastState = state
	return state
}

// Resonance returns a copy-on-read snapshot of the current resonance.
func (o *Oscillator) Resonance() shared.Phase {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return Resonance(o.tracker.Samples(), o.config.OscillationRate)
}

// Coherence returns the current coherence.
func (o *Oscillator) Coherence() float64 {
	return CoherenceOf(o.Resonance())
}

// Collapsed reports whether the collapse condition has fired.
func (o *Oscillator) Collapsed() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.collapse.Collapsed()
}

// IntegrationCount returns the total number of integrations.
func (o *Oscillator) IntegrationCount() int64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.integrations
}

// LastState returns the most recent state snapshot, with metadata copied.
func (o *Oscillator) LastState() shared.TemporalState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	state := o.lastState
	state.Metadata = shared.CloneMetadata(state.Metadata)
	state.PhaseAngles = shared.CloneFloats(state.PhaseAngles)
	return state
}

// Velocity returns the current phase velocity estimate in rad/s.
func (o *Oscillator) Velocity() float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.tracker.Velocity()
}

// Stats returns rolling coherence statistics over the retained history.
func (o *Oscillator) Stats() Stats {
	o.mu.RLock()
	defer o.mu.RUnlock()

	n := len(o.coherenceHist)
	stats := Stats{Samples: n}
	if n == 0 {
		return stats
	}

	stats.Coherence = o.coherenceHist[n-1]

	sum := 0.0
	for _, c := range o.coherenceHist {
		sum += c
	}
	stats.RollingAverage = sum / float64(n)
	stats.Trend = linearTrend(o.coherenceHist, 10)
	return stats
}

// ForceCollapse collapses the condition unconditionally (seed/test use).
func (o *Oscillator) ForceCollapse(coherence float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.collapse.Force(coherence)
}

// Reset returns the oscillator to its initial conditions.
func (o *Oscillator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.tracker.Reset()
	o.collapse.Reset()
	o.integrations = 0
	o.coherenceHist = nil
	o.lastState = shared.TemporalState{}
}

// linearTrend fits a least-squares slope to the last n values. Positive
// means coherence is rising.
func linearTrend(values []float64, n int) float64 {
	if len(values) < n {
		return 0
	}
	recent := values[len(values)-n:]

	count := float64(len(recent))
	var sumX, sumY, sumXY, sumX2 float64
	for i, y := range recent {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}

	denom := count*sumX2 - sumX*sumX
	if math.Abs(denom) < 1e-12 {
		return 0
	}
	return (count*sumXY - sumX*sumY) / denom
}
