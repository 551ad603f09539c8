// Package oscillator implements the temporal coherence engine: phase
// tracking, resonance calculation, and the collapse condition, wrapped
// behind a single configurable Oscillator.
package oscillator

import (
	"time"

	"github.com/mrhavens/becomingone/internal/shared"
)

// velocityWindow is the number of trailing samples used for the angular
// velocity estimate.
const velocityWindow = 10

// PhaseTracker maintains a bounded, time-ordered history of phase samples.
// The history is a fixed-capacity ring buffer; the oldest samples are
// evicted on overflow.
type PhaseTracker struct {
	rate      float64 // oscillation rate in rad/s
	dampening float64
	capacity  int

	samples []shared.PhaseSample
	start   int
	count   int
}

// NewPhaseTracker creates a tracker seeded with the unit phase.
func NewPhaseTracker(rate, dampening float64, capacity int) *PhaseTracker {
	if capacity < 2 {
		capacity = 2
	}
	pt := &PhaseTracker{
		rate:      rate,
		dampening: dampening,
		capacity:  capacity,
		samples:   make([]shared.PhaseSample, capacity),
	}
	pt.append(shared.UnitPhase(), time.Now().UTC(), "init")
	return pt
}

// Current returns the most recent sample. An empty history yields the unit
// phase.
func (pt *PhaseTracker) Current() shared.PhaseSample {
	if pt.count == 0 {
		return shared.PhaseSample{Phase: shared.UnitPhase(), Timestamp: time.Now().UTC(), Source: "empty"}
	}
	return pt.at(pt.count - 1)
}

// Len returns the number of retained samples.
func (pt *PhaseTracker) Len() int {
	return pt.count
}

// Advance rotates the current phase by rate × dt, applies the dampening
// factor, and appends the result stamped dt after the current sample.
func (pt *PhaseTracker) Advance(dt float64, source string) shared.PhaseSample {
	cur := pt.Current()
	next := cur.Phase.Rotate(pt.rate * dt).Scale(pt.dampening)
	return pt.append(next, cur.Timestamp.Add(time.Duration(dt*float64(time.Second))), source)
}

// Set appends an externally supplied phase stamped with the current time.
func (pt *PhaseTracker) Set(phase shared.Phase, source string) shared.PhaseSample {
	return pt.append(phase, time.Now().UTC(), source)
}

// Record appends an externally supplied phase with an explicit timestamp.
func (pt *PhaseTracker) Record(phase shared.Phase, timestamp time.Time, source string) shared.PhaseSample {
	return pt.append(phase, timestamp, source)
}

// Velocity estimates angular velocity in rad/s over the trailing samples
// using wrapped angle differences. Returns 0 with fewer than 2 samples or
// no elapsed time.
func (pt *PhaseTracker) Velocity() float64 {
	if pt.count < 2 {
		return 0
	}
	n := pt.count
	first := n - velocityWindow
	if first < 0 {
		first = 0
	}

	var dtTotal, dthetaTotal float64
	prev := pt.at(first)
	for i := first + 1; i < n; i++ {
		cur := pt.at(i)
		dt := cur.Timestamp.Sub(prev.Timestamp).Seconds()
		dtheta := shared.WrapAngleDelta(cur.Phase.Angle() - prev.Phase.Angle())
		dtTotal += dt
		dthetaTotal += dtheta
		prev = cur
	}

	if dtTotal <= 0 {
		return 0
	}
	return dthetaTotal / dtTotal
}

// Samples returns the retained history in chronological order.
func (pt *PhaseTracker) Samples() []shared.PhaseSample {
	out := make([]shared.PhaseSample, pt.count)
	for i := 0; i < pt.count; i++ {
		out[i] = pt.at(i)
	}
	return out
}

// Angles returns up to n most recent phase angles, oldest first.
func (pt *PhaseTracker) Angles(n int) []float64 {
	if n > pt.count {
		n = pt.count
	}
	out := make([]float64, 0, n)
	for i := pt.count - n; i < pt.count; i++ {
		out = append(out, pt.at(i).Phase.Angle())
	}
	return out
}

// Dampen scales every retained phase toward the origin. Called after
// collapse to keep accumulated magnitude bounded.
func (pt *PhaseTracker) Dampen(factor float64) {
	for i := 0; i < pt.count; i++ {
		idx := (pt.start + i) % pt.capacity
		pt.samples[idx].Phase = pt.samples[idx].Phase.Scale(factor)
	}
}

// Reset clears the history and re-seeds the unit phase.
func (pt *PhaseTracker) Reset() {
	pt.start = 0
	pt.count = 0
	pt.append(shared.UnitPhase(), time.Now().UTC(), "reset")
}

func (pt *PhaseTracker) append(phase shared.Phase, timestamp time.Time, source string) shared.PhaseSample {
	sample := shared.PhaseSample{Phase: phase, Timestamp: timestamp, Source: source}
	if pt.count < pt.capacity {
		pt.samples[(pt.start+pt.count)%pt.capacity] = sample
		pt.count++
	} else {
		pt.samples[pt.start] = sample
		pt.start = (pt.start + 1) % pt.capacity
	}
	return sample
}

func (pt *PhaseTracker) at(i int) shared.PhaseSample {
	return pt.samples[(pt.start+i)%pt.capacity]
}
