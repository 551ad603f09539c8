// Package shared provides the value types and errors used across the
// temporal coherence engine.
package shared

import (
	"fmt"
	"math"
	"time"
)

// ============================================================================
// Phase
// ============================================================================

// TwoPi is a full oscillation cycle in radians.
const TwoPi = 2 * math.Pi

// Phase is a point on (or inside) the unit disk, stored as an explicit
// real/imaginary pair. It stands in for a complex number so that phase
// arithmetic stays portable and under our control.
type Phase struct {
	Re float64 `json:"re"`
	Im float64 `json:"im"`
}

// UnitPhase returns the unit phase at angle zero.
func UnitPhase() Phase {
	return Phase{Re: 1, Im: 0}
}

// ZeroPhase returns the zero value.
func ZeroPhase() Phase {
	return Phase{}
}

// PhaseFromAngle returns the unit phase at the given angle in radians.
func PhaseFromAngle(angle float64) Phase {
	return Phase{Re: math.Cos(angle), Im: math.Sin(angle)}
}

// Abs returns the magnitude.
func (p Phase) Abs() float64 {
	return math.Hypot(p.Re, p.Im)
}

// Abs2 returns the squared magnitude.
func (p Phase) Abs2() float64 {
	return p.Re*p.Re + p.Im*p.Im
}

// Angle returns the phase angle normalized to [0, 2π).
func (p Phase) Angle() float64 {
	return NormalizeAngle(math.Atan2(p.Im, p.Re))
}

// Conj returns the complex conjugate.
func (p Phase) Conj() Phase {
	return Phase{Re: p.Re, Im: -p.Im}
}

// Mul returns the complex product p × q.
func (p Phase) Mul(q Phase) Phase {
	return Phase{
		Re: p.Re*q.Re - p.Im*q.Im,
		Im: p.Re*q.Im + p.Im*q.Re,
	}
}

// Add returns the sum p + q.
func (p Phase) Add(q Phase) Phase {
	return Phase{Re: p.Re + q.Re, Im: p.Im + q.Im}
}

// Scale returns p scaled by a real factor.
func (p Phase) Scale(f float64) Phase {
	return Phase{Re: p.Re * f, Im: p.Im * f}
}

// Rotate returns p rotated by delta radians.
func (p Phase) Rotate(delta float64) Phase {
	return p.Mul(PhaseFromAngle(delta))
}

// Normalize returns p projected onto the unit circle. The zero phase
// normalizes to the unit phase.
func (p Phase) Normalize() Phase {
	mag := p.Abs()
	if mag == 0 {
		return UnitPhase()
	}
	return Phase{Re: p.Re / mag, Im: p.Im / mag}
}

// IsZero reports whether p is the zero value.
func (p Phase) IsZero() bool {
	return p.Re == 0 && p.Im == 0
}

// NormalizeAngle maps an angle in radians to [0, 2π).
func NormalizeAngle(angle float64) float64 {
	a := math.Mod(angle, TwoPi)
	if a < 0 {
		a += TwoPi
	}
	return a
}

// WrapAngleDelta maps an angle difference to [-π, π], handling the
// wraparound at ±π.
func WrapAngleDelta(delta float64) float64 {
	for delta > math.Pi {
		delta -= TwoPi
	}
	for delta < -math.Pi {
		delta += TwoPi
	}
	return delta
}

// ============================================================================
// Samples and States
// ============================================================================

// PhaseSample is a phase observed at a point in time.
type PhaseSample struct {
	Phase     Phase     `json:"phase"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

// TemporalState is the read-only snapshot an oscillator produces for each
// integrated input.
type TemporalState struct {
	Phase        Phase                  `json:"phase"`
	Resonance    Phase                  `json:"resonance"`
	Coherence    float64                `json:"coherence"`
	Timestamp    time.Time              `json:"timestamp"`
	Collapsed    bool                   `json:"collapsed"`
	Integrations int64                  `json:"integrations"`
	PhaseAngles  []float64              `json:"phaseAngles,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// SyncRecord is the structured result of one synchronization tick.
type SyncRecord struct {
	Timestamp         time.Time `json:"timestamp"`
	SlowResonance     Phase     `json:"slowResonance"`
	FastResonance     Phase     `json:"fastResonance"`
	CombinedResonance Phase     `json:"combinedResonance"`
	CombinedCoherence float64   `json:"combinedCoherence"`
	PhaseDifference   float64   `json:"phaseDifference"`
	Aligned           bool      `json:"aligned"`
	Collapsed         bool      `json:"collapsed"`
	Dissipated        bool      `json:"dissipated"`
	SlowIntegrations  int64     `json:"slowIntegrations"`
	FastIntegrations  int64     `json:"fastIntegrations"`
}

// DissipationRecord captures a rejected synchronization tick.
type DissipationRecord struct {
	Timestamp       time.Time `json:"timestamp"`
	PhaseDifference float64   `json:"phaseDifference"`
	SlowCoherence   float64   `json:"slowCoherence"`
	FastCoherence   float64   `json:"fastCoherence"`
	Reason          string    `json:"reason"`
}

// ============================================================================
// Events
// ============================================================================

// EventType identifies a category of engine event.
type EventType string

// Engine event types.
const (
	EventOscillatorCollapse EventType = "oscillator:collapse"
	EventOscillatorDecay    EventType = "oscillator:decay"
	EventSyncCollapse       EventType = "sync:collapse"
	EventSyncDissipated     EventType = "sync:dissipated"
	EventMemoryEncoded      EventType = "memory:encoded"
	EventMemoryConsolidated EventType = "memory:consolidated"
	EventMemoryPruned       EventType = "memory:pruned"
	EventPipelineStarted    EventType = "pipeline:started"
	EventPipelineStopped    EventType = "pipeline:stopped"
	EventInputSkipped       EventType = "input:skipped"
)

// Event is a generic engine event.
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp int64                  `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
}

// ============================================================================
// Utility
// ============================================================================

// Now returns the current time in milliseconds.
func Now() int64 {
	return time.Now().UnixMilli()
}

// FormatCoherence renders a coherence value for human-readable output.
func FormatCoherence(c float64) string {
	return fmt.Sprintf("%.3f", c)
}
