// Package adapters holds the input and output boundaries: encoder
// strategies that turn raw values into phases, and sinks that receive
// synchronization results. All raw-input parsing lives here; the engine
// only ever sees phases.
package adapters

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/mrhavens/becomingone/internal/shared"
)

// Encoder turns a raw input value into a phase.
type Encoder interface {
	Name() string
	Encode(raw interface{}) (shared.Phase, error)
}

// ============================================================================
// Text
// ============================================================================

// TextEncoder maps text deterministically onto the unit circle by hashing.
// Identical strings always produce identical phases.
type TextEncoder struct{}

// NewTextEncoder creates a text encoder.
func NewTextEncoder() *TextEncoder {
	return &TextEncoder{}
}

// Name returns the encoder name.
func (e *TextEncoder) Name() string { return "text" }

// Encode hashes the string and maps the digest to an angle in [0, 2π).
func (e *TextEncoder) Encode(raw interface{}) (shared.Phase, error) {
	text, ok := raw.(string)
	if !ok {
		if stringer, isStringer := raw.(fmt.Stringer); isStringer {
			text = stringer.String()
		} else {
			return shared.ZeroPhase(), shared.NewEncodingError("text encoder requires a string", map[string]interface{}{
				"type": fmt.Sprintf("%T", raw),
			})
		}
	}
	if text == "" {
		return shared.ZeroPhase(), shared.NewEncodingError("text encoder requires non-empty input", nil)
	}

	sum := sha256.Sum256([]byte(text))
	fraction := float64(binary.BigEndian.Uint64(sum[:8])) / float64(math.MaxUint64)
	return shared.PhaseFromAngle(fraction * shared.TwoPi), nil
}

// ============================================================================
// Pulse
// ============================================================================

// PulseEncoder maps a boolean pulse onto opposite poles of the circle.
type PulseEncoder struct{}

// NewPulseEncoder creates a pulse encoder.
func NewPulseEncoder() *PulseEncoder {
	return &PulseEncoder{}
}

// Name returns the encoder name.
func (e *PulseEncoder) Name() string { return "pulse" }

// Encode maps true to angle 0 and false to angle π.
func (e *PulseEncoder) Encode(raw interface{}) (shared.Phase, error) {
	pulse, ok := raw.(bool)
	if !ok {
		return shared.ZeroPhase(), shared.NewEncodingError("pulse encoder requires a bool", map[string]interface{}{
			"type": fmt.Sprintf("%T", raw),
		})
	}
	if pulse {
		return shared.PhaseFromAngle(0), nil
	}
	return shared.PhaseFromAngle(math.Pi), nil
}

// Decode recovers the pulse from a phase by hemisphere.
func (e *PulseEncoder) Decode(phase shared.Phase) bool {
	angle := phase.Angle()
	return angle < math.Pi/2 || angle > 3*math.Pi/2
}

// ============================================================================
// Signal
// ============================================================================

// SignalEncoder maps a bounded scalar linearly onto the circle.
type SignalEncoder struct {
	min float64
	max float64
}

// NewSignalEncoder creates a signal encoder for values in [min, max].
func NewSignalEncoder(min, max float64) (*SignalEncoder, error) {
	if max <= min {
		return nil, shared.NewValidationError("signal range must have max > min", map[string]interface{}{
			"min": min,
			"max": max,
		})
	}
	return &SignalEncoder{min: min, max: max}, nil
}

// Name returns the encoder name.
func (e *SignalEncoder) Name() string { return "signal" }

// Encode maps the value's position in [min, max] to an angle in [0, 2π).
// Accepts float64, float32, and integer raw values.
func (e *SignalEncoder) Encode(raw interface{}) (shared.Phase, error) {
	value, ok := toFloat(raw)
	if !ok {
		return shared.ZeroPhase(), shared.NewEncodingError("signal encoder requires a numeric value", map[string]interface{}{
			"type": fmt.Sprintf("%T", raw),
		})
	}
	if value < e.min || value > e.max {
		return shared.ZeroPhase(), shared.NewEncodingError("signal value outside configured range", map[string]interface{}{
			"value": value,
			"min":   e.min,
			"max":   e.max,
		})
	}

	fraction := (value - e.min) / (e.max - e.min)
	if fraction >= 1 {
		fraction = math.Nextafter(1, 0)
	}
	return shared.PhaseFromAngle(fraction * shared.TwoPi), nil
}

// Decode recovers the approximate scalar from a phase.
func (e *SignalEncoder) Decode(phase shared.Phase) float64 {
	fraction := phase.Angle() / shared.TwoPi
	return e.min + fraction*(e.max-e.min)
}

func toFloat(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
