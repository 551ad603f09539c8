package oscillator

import (
	"github.com/mrhavens/becomingone/internal/shared"
)

// Resonance computes the temporal resonance of an ordered phase history:
// a time-weighted Riemann sum of the conjugate inner products of
// consecutive phases, spectrally weighted by the oscillation rate.
//
//	resonance = Σ inner(pᵢ, pᵢ₋₁) · e^(i·rate·tᵢ) · Δtᵢ / Σ Δtᵢ
//
// Each inner product is renormalized to unit magnitude so that the sum
// captures relative rotation rather than amplitude. Timestamps enter only
// as offsets from the first sample, so identical sequences produce
// identical results regardless of wall-clock origin.
//
// With fewer than 2 samples, or when no positive time deltas exist, the
// resonance is the unit value.
func Resonance(samples []shared.PhaseSample, rate float64) shared.Phase {
	if len(samples) < 2 {
		return shared.UnitPhase()
	}

	origin := samples[0].Timestamp
	sum := shared.ZeroPhase()
	dtSum := 0.0

	for i := 1; i < len(samples); i++ {
		dt := samples[i].Timestamp.Sub(samples[i-1].Timestamp).Seconds()
		if dt <= 0 {
			continue
		}

		inner := innerProduct(samples[i].Phase, samples[i-1].Phase)
		weight := shared.PhaseFromAngle(rate * samples[i].Timestamp.Sub(origin).Seconds())

		sum = sum.Add(inner.Mul(weight).Scale(dt))
		dtSum += dt
	}

	if dtSum <= 0 {
		return shared.UnitPhase()
	}
	return sum.Scale(1 / dtSum)
}

// CoherenceOf returns the scalar coherence of a resonance value, its
// squared magnitude.
func CoherenceOf(resonance shared.Phase) float64 {
	return resonance.Abs2()
}

// innerProduct is the conjugate product of two phases, renormalized to the
// unit circle. The angle is the rotation between them; similar phases land
// near 1+0i, anti-phase pairs near -1+0i.
func innerProduct(current, previous shared.Phase) shared.Phase {
	product := current.Mul(previous.Conj())
	if product.IsZero() {
		return shared.UnitPhase()
	}
	return product.Normalize()
}
