// Package signature provides the persisted memory entities: temporal
// signatures, their strength tiers and decay law, and the pattern echoes
// derived between them.
package signature

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/mrhavens/becomingone/internal/shared"
)

// Tier classifies a signature's strength. Tiers are totally ordered by
// their numeric strength value.
type Tier int

const (
	TierTransient Tier = iota
	TierWorking
	TierEpisodic
	TierProcedural
	TierSemantic
	TierIdentity
)

var tierStrengths = [...]float64{
	TierTransient:  0.2,
	TierWorking:    0.4,
	TierEpisodic:   0.6,
	TierProcedural: 0.7,
	TierSemantic:   0.8,
	TierIdentity:   0.95,
}

var tierNames = [...]string{
	TierTransient:  "transient",
	TierWorking:    "working",
	TierEpisodic:   "episodic",
	TierProcedural: "procedural",
	TierSemantic:   "semantic",
	TierIdentity:   "identity",
}

// Strength returns the tier's numeric strength value.
func (t Tier) Strength() float64 {
	if t < TierTransient || t > TierIdentity {
		return tierStrengths[TierTransient]
	}
	return tierStrengths[t]
}

// String returns the tier's name.
func (t Tier) String() string {
	if t < TierTransient || t > TierIdentity {
		return "unknown"
	}
	return tierNames[t]
}

// TierFromName maps a tier name back to a tier. Unknown names fall back
// to transient.
func TierFromName(name string) Tier {
	for t, n := range tierNames {
		if n == name {
			return Tier(t)
		}
	}
	return TierTransient
}

// MarshalJSON renders the tier as its name.
func (t Tier) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON reads a tier name.
func (t *Tier) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	*t = TierFromName(name)
	return nil
}

// TierFromStrength maps a persisted numeric strength value back to a tier.
// Unknown values fall back to transient.
func TierFromStrength(v float64) Tier {
	for t := TierIdentity; t >= TierTransient; t-- {
		if math.Abs(v-tierStrengths[t]) < 1e-9 {
			return t
		}
	}
	return TierTransient
}

// ClassifyTier maps a coherence value onto a strength tier.
func ClassifyTier(coherence float64) Tier {
	switch {
	case coherence >= 0.95:
		return TierIdentity
	case coherence >= 0.80:
		return TierSemantic
	case coherence >= 0.70:
		return TierProcedural
	case coherence >= 0.60:
		return TierEpisodic
	case coherence >= 0.40:
		return TierWorking
	default:
		return TierTransient
	}
}

// Signature is a compressed, decaying record of a high-coherence moment.
// Mutated only by access (LastAccessed/AccessCount) and consolidation
// (DecayRate); destroyed by pruning.
type Signature struct {
	ID          string                 `json:"id"`
	Coherence   float64                `json:"coherence"`
	PhaseVector []float64              `json:"phaseVector"`
	ContextHash string                 `json:"contextHash"`
	Tier        Tier                   `json:"tier"`
	CreatedAt   time.Time              `json:"createdAt"`
	LastAccess  time.Time              `json:"lastAccessed"`
	AccessCount int                    `json:"accessCount"`
	DecayRate   float64                `json:"decayRate"`
	Content     map[string]interface{} `json:"content,omitempty"`
}

// New creates a signature from a temporal state. The decay rate scales
// down with coherence: stronger moments fade slower.
func New(state shared.TemporalState, context map[string]interface{}, baseDecay float64) *Signature {
	now := time.Now().UTC()
	return &Signature{
		ID:          uuid.New().String(),
		Coherence:   state.Coherence,
		PhaseVector: shared.CloneFloats(state.PhaseAngles),
		ContextHash: HashContext(context),
		Tier:        ClassifyTier(state.Coherence),
		CreatedAt:   now,
		LastAccess:  now,
		AccessCount: 0,
		DecayRate:   baseDecay * (1.0 - state.Coherence*0.5),
		Content:     shared.CloneMetadata(context),
	}
}

// Retention computes the decay-adjusted retention at the given time:
// exponential fade by age in hours, boosted by access history, penalized
// by the decay rate. Clamped to be non-negative.
func (s *Signature) Retention(now time.Time) float64 {
	hours := now.Sub(s.CreatedAt).Hours()
	base := math.Exp(-s.DecayRate * hours)
	boost := math.Min(0.2*float64(s.AccessCount), 0.5)
	retention := base + boost - 0.5*s.DecayRate
	if retention < 0 {
		return 0
	}
	return retention
}

// ShouldRetain reports whether retention is still above the floor.
func (s *Signature) ShouldRetain(now time.Time, floor float64) bool {
	return s.Retention(now) > floor
}

// Touch records an access.
func (s *Signature) Touch() {
	s.LastAccess = time.Now().UTC()
	s.AccessCount++
}

// MeanPhase returns the average of the stored phase angles, or 0 when the
// vector is empty.
func (s *Signature) MeanPhase() float64 {
	if len(s.PhaseVector) == 0 {
		return 0
	}
	sum := 0.0
	for _, a := range s.PhaseVector {
		sum += a
	}
	return sum / float64(len(s.PhaseVector))
}

// HashContext produces a short stable hash of a context payload.
func HashContext(context map[string]interface{}) string {
	if context == nil {
		return ""
	}
	data, err := json.Marshal(context)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}

// Echo is a weak associative link derived from a signature to a similar
// prior one. Echoes are never the basis of truth and are discarded
// independently of their source.
type Echo struct {
	ID                string    `json:"id"`
	SourceSignatureID string    `json:"sourceSignatureId"`
	CoherenceTrace    float64   `json:"coherenceTrace"`
	PhaseSimilarity   float64   `json:"phaseSimilarity"`
	TemporalOffset    float64   `json:"temporalOffset"`
	CreatedAt         time.Time `json:"createdAt"`
}

// NewEcho derives a weakened echo linking sig to a similar prior one.
func NewEcho(source *Signature, phaseSimilarity, temporalOffset float64) *Echo {
	return &Echo{
		ID:                uuid.New().String(),
		SourceSignatureID: source.ID,
		CoherenceTrace:    source.Coherence * 0.8,
		PhaseSimilarity:   phaseSimilarity,
		TemporalOffset:    temporalOffset,
		CreatedAt:         time.Now().UTC(),
	}
}

// ResonanceWith scores how strongly the echo resonates with a signature,
// combining phase match, coherence alignment, and temporal proximity.
func (e *Echo) ResonanceWith(sig *Signature) float64 {
	phaseMatch := 1.0 - math.Min(math.Abs(e.PhaseSimilarity-sig.MeanPhase()), 1.0)
	coherenceAlignment := 1.0 - math.Abs(e.CoherenceTrace-sig.Coherence)
	temporalProximity := 1.0 / (1.0 + math.Abs(e.TemporalOffset)/3600)
	return (phaseMatch + coherenceAlignment + temporalProximity) / 3.0
}
