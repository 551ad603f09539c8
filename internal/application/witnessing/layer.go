// Package witnessing implements recursive self-observation over the
// engine's temporal states: witnesses observe states, reflect on their
// own observations, and integrate the result back into a running
// coherence contribution. High-coherence observations are encoded into
// the signature memory when one is bound.
package witnessing

import (
	"fmt"
	stdsync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/mrhavens/becomingone/internal/infrastructure/memory"
	"github.com/mrhavens/becomingone/internal/shared"
)

// Mode identifies how a witness operates.
type Mode string

// Witnessing modes.
const (
	ModeObserve      Mode = "observe"
	ModeReflect      Mode = "reflect"
	ModeIntegrate    Mode = "integrate"
	ModeWitnessOther Mode = "witness_other"
	ModeMutual       Mode = "mutual"
)

// Transformation types chosen during reflection.
const (
	TransformStrengthen = "strengthen"
	TransformClarify    = "clarify"
	TransformMaintain   = "maintain"
)

// Config holds the witnessing layer tunables.
type Config struct {
	// CoherenceThreshold is the minimum observed coherence for an
	// observation to strengthen identity and reach memory.
	CoherenceThreshold float64 `json:"coherenceThreshold"`
	// ReflectionDepth is the recursion depth of a reflection pass.
	ReflectionDepth int `json:"reflectionDepth"`
	// IntegrationRate scales how quickly observations are integrated.
	IntegrationRate float64 `json:"integrationRate"`
	// MetaObservationWeight weights meta-level observations in reports.
	MetaObservationWeight float64 `json:"metaObservationWeight"`
}

// DefaultConfig returns the default witnessing configuration.
func DefaultConfig() Config {
	return Config{
		CoherenceThreshold:    0.7,
		ReflectionDepth:       3,
		IntegrationRate:       0.1,
		MetaObservationWeight: 0.2,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.CoherenceThreshold < 0 || c.CoherenceThreshold > 1 {
		return shared.NewValidationError("coherence threshold must be in [0, 1]", map[string]interface{}{
			"coherenceThreshold": c.CoherenceThreshold,
		})
	}
	if c.ReflectionDepth < 1 {
		return shared.NewValidationError("reflection depth must be at least 1", map[string]interface{}{
			"reflectionDepth": c.ReflectionDepth,
		})
	}
	if c.IntegrationRate <= 0 || c.IntegrationRate > 1 {
		return shared.NewValidationError("integration rate must be in (0, 1]", map[string]interface{}{
			"integrationRate": c.IntegrationRate,
		})
	}
	return nil
}

// Transformation is the adjustment a reflection decided on.
type Transformation struct {
	Type           string  `json:"type"`
	CoherenceBoost float64 `json:"coherenceBoost"`
	Reason         string  `json:"reason"`
}

// Witness is one observing component and its accumulated activity.
type Witness struct {
	ID                    string                 `json:"id"`
	Mode                  Mode                   `json:"mode"`
	Observations          int                    `json:"observations"`
	Reflections           int                    `json:"reflections"`
	Integrations          int                    `json:"integrations"`
	CoherenceContribution float64                `json:"coherenceContribution"`
	LastObserved          time.Time              `json:"lastObserved"`
	MetaState             map[string]interface{} `json:"metaState,omitempty"`
}

// Witnessed is one recorded observation with its reflection output.
type Witnessed struct {
	ID               string          `json:"id"`
	WitnessID        string          `json:"witnessId"`
	Mode             Mode            `json:"mode"`
	Coherence        float64         `json:"coherence"`
	Content          interface{}     `json:"content,omitempty"`
	Transformation   *Transformation `json:"transformation,omitempty"`
	MetaObservations []string        `json:"metaObservations,omitempty"`
	Timestamp        time.Time       `json:"timestamp"`
}

// MutualReport summarizes a mutual witnessing pass between two witnesses.
type MutualReport struct {
	WitnessedA          string    `json:"witnessedA"`
	WitnessedB          string    `json:"witnessedB"`
	IndividualCoherence float64   `json:"individualCoherence"`
	MutualBoost         bool      `json:"mutualBoost"`
	CombinedCoherence   float64   `json:"combinedCoherence"`
	CombinedWitnessID   string    `json:"combinedWitnessId"`
	Timestamp           time.Time `json:"timestamp"`
}

// Report summarizes the layer's accumulated activity.
type Report struct {
	Observations        int     `json:"observations"`
	Reflections         int     `json:"reflections"`
	Integrations        int     `json:"integrations"`
	WitnessCount        int     `json:"witnessCount"`
	WitnessedCount      int     `json:"witnessedCount"`
	AverageContribution float64 `json:"averageContribution"`
	TotalContribution   float64 `json:"totalContribution"`
}

// Layer manages witnesses and their observations. It reads engine state
// and writes only to a bound signature memory.
type Layer struct {
	mu     stdsync.RWMutex
	config Config

	witnesses map[string]*Witness
	witnessed map[string]*Witnessed
	memory    *memory.Store

	observations  int
	reflections   int
	integrations  int
	contributions []float64
}

// NewLayer creates a witnessing layer from a validated configuration.
func NewLayer(config Config) (*Layer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Layer{
		config:    config,
		witnesses: make(map[string]*Witness),
		witnessed: make(map[string]*Witnessed),
	}, nil
}

// BindMemory attaches a signature memory. Integrations above the
// coherence threshold are encoded into it.
func (l *Layer) BindMemory(store *memory.Store) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.memory = store
}

// Config returns the layer configuration.
func (l *Layer) Config() Config {
	return l.config
}

// CreateWitness registers a witness under the given ID. Re-creating an
// existing ID returns the existing witness unchanged.
func (l *Layer) CreateWitness(id string, mode Mode) *Witness {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.createWitnessLocked(id, mode)
}

func (l *Layer) createWitnessLocked(id string, mode Mode) *Witness {
	if existing, ok := l.witnesses[id]; ok {
		return existing
	}
	w := &Witness{
		ID:        id,
		Mode:      mode,
		MetaState: make(map[string]interface{}),
	}
	l.witnesses[id] = w
	return w
}

// Observe records a passive observation of content by the given witness.
// When the content is a TemporalState its coherence is taken as the
// coherence at witnessing.
func (l *Layer) Observe(content interface{}, witnessID string) (*Witnessed, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.observeLocked(content, witnessID)
}

func (l *Layer) observeLocked(content interface{}, witnessID string) (*Witnessed, error) {
	witness, ok := l.witnesses[witnessID]
	if !ok {
		return nil, shared.NewValidationError("unknown witness", map[string]interface{}{
			"witnessId": witnessID,
		})
	}

	coherence := 0.0
	if state, ok := content.(shared.TemporalState); ok {
		coherence = state.Coherence
	}

	witnessed := &Witnessed{
		ID:        uuid.NewString(),
		WitnessID: witnessID,
		Mode:      ModeObserve,
		Coherence: coherence,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}

	witness.Observations++
	witness.LastObserved = witnessed.Timestamp
	l.observations++
	l.witnessed[witnessed.ID] = witnessed

	return witnessed, nil
}

// Reflect runs the meta-observation pass over a previous observation:
// the witness observes its own observation, recursing to the configured
// depth, and decides on a transformation.
func (l *Layer) Reflect(witnessed *Witnessed, witnessID string) (*Witnessed, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reflectLocked(witnessed, witnessID)
}

func (l *Layer) reflectLocked(witnessed *Witnessed, witnessID string) (*Witnessed, error) {
	witness, ok := l.witnesses[witnessID]
	if !ok {
		return nil, shared.NewValidationError("unknown witness", map[string]interface{}{
			"witnessId": witnessID,
		})
	}

	meta := []string{
		fmt.Sprintf("observed coherence %.3f", witnessed.Coherence),
		fmt.Sprintf("coherence level %s", coherenceLevel(witnessed.Coherence)),
	}
	if witnessed.Coherence > l.config.CoherenceThreshold {
		meta = append(meta, "observation strengthens identity coherence")
	}

	transformation := l.chooseTransformation(witnessed.Coherence)
	for depth := 1; depth <= l.config.ReflectionDepth; depth++ {
		meta = append(meta, fmt.Sprintf("reflection depth %d: %s", depth, transformation.Type))
	}
	if witnessed.Transformation == nil {
		witnessed.Transformation = transformation
	}

	witnessed.MetaObservations = meta
	witness.Reflections++
	l.reflections++

	return witnessed, nil
}

func (l *Layer) chooseTransformation(coherence float64) *Transformation {
	switch {
	case coherence > l.config.CoherenceThreshold:
		return &Transformation{
			Type:           TransformStrengthen,
			CoherenceBoost: l.config.IntegrationRate,
			Reason:         "high coherence observation",
		}
	case coherence < 0.3:
		return &Transformation{
			Type:           TransformClarify,
			CoherenceBoost: 0.05,
			Reason:         "low coherence, seeking clarity",
		}
	default:
		return &Transformation{
			Type:           TransformMaintain,
			CoherenceBoost: 0.02,
			Reason:         "stable coherence state",
		}
	}
}

// Integrate folds a witnessed observation into the witness's self-model
// and returns the coherence contribution. Observations above the
// coherence threshold are encoded into the bound memory.
func (l *Layer) Integrate(witnessed *Witnessed, witnessID string) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.integrateLocked(witnessed, witnessID)
}

func (l *Layer) integrateLocked(witnessed *Witnessed, witnessID string) (float64, error) {
	witness, ok := l.witnesses[witnessID]
	if !ok {
		return 0, shared.NewValidationError("unknown witness", map[string]interface{}{
			"witnessId": witnessID,
		})
	}

	boost := 0.02
	if witnessed.Transformation != nil {
		boost = witnessed.Transformation.CoherenceBoost
	}
	contribution := boost * l.config.IntegrationRate

	witness.Integrations++
	witness.CoherenceContribution += contribution
	witness.MetaState["lastIntegration"] = time.Now().UTC().Format(time.RFC3339)
	witness.MetaState["totalContribution"] = witness.CoherenceContribution

	if l.memory != nil && witnessed.Coherence > l.config.CoherenceThreshold {
		if state, ok := witnessed.Content.(shared.TemporalState); ok {
			context := map[string]interface{}{
				"witnessId": witnessID,
				"mode":      string(witnessed.Mode),
			}
			if witnessed.Transformation != nil {
				context["transformation"] = witnessed.Transformation.Type
			}
			// The store applies its own attention threshold.
			l.memory.Encode(state, context, false)
		}
	}

	l.integrations++
	l.contributions = append(l.contributions, contribution)

	return contribution, nil
}

// Witness runs the full cycle over one piece of content: observe,
// reflect, integrate. The witness is created on first use.
func (l *Layer) Witness(content interface{}, witnessID string) (*Witnessed, float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.createWitnessLocked(witnessID, ModeObserve)

	witnessed, err := l.observeLocked(content, witnessID)
	if err != nil {
		return nil, 0, err
	}
	if _, err := l.reflectLocked(witnessed, witnessID); err != nil {
		return nil, 0, err
	}
	contribution, err := l.integrateLocked(witnessed, witnessID)
	if err != nil {
		return nil, 0, err
	}
	return witnessed, contribution, nil
}

// MutualWitness runs observation and reflection of the same content from
// two witnesses and derives their combined coherence. Witnesses with
// similar coherence readings reinforce each other; the pass registers a
// combined witness for the pair.
func (l *Layer) MutualWitness(witnessAID, witnessBID string, content interface{}) (MutualReport, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.createWitnessLocked(witnessAID, ModeObserve)
	l.createWitnessLocked(witnessBID, ModeObserve)

	witnessedA, err := l.observeLocked(content, witnessAID)
	if err != nil {
		return MutualReport{}, err
	}
	if _, err := l.reflectLocked(witnessedA, witnessAID); err != nil {
		return MutualReport{}, err
	}

	witnessedB, err := l.observeLocked(content, witnessBID)
	if err != nil {
		return MutualReport{}, err
	}
	if _, err := l.reflectLocked(witnessedB, witnessBID); err != nil {
		return MutualReport{}, err
	}

	individual := (witnessedA.Coherence + witnessedB.Coherence) / 2

	diff := witnessedA.Coherence - witnessedB.Coherence
	if diff < 0 {
		diff = -diff
	}
	boost := diff < 0.2

	combined := individual
	if boost {
		combined = individual * 1.5
	}

	combinedID := "WE_" + witnessAID + "_" + witnessBID
	l.createWitnessLocked(combinedID, ModeMutual)

	return MutualReport{
		WitnessedA:          witnessedA.ID,
		WitnessedB:          witnessedB.ID,
		IndividualCoherence: individual,
		MutualBoost:         boost,
		CombinedCoherence:   combined,
		CombinedWitnessID:   combinedID,
		Timestamp:           time.Now().UTC(),
	}, nil
}

// WitnessState returns a copy of the witness with the given ID.
func (l *Layer) WitnessState(id string) (Witness, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	w, ok := l.witnesses[id]
	if !ok {
		return Witness{}, false
	}
	out := *w
	out.MetaState = shared.CloneMetadata(w.MetaState)
	return out, true
}

// WitnessedContent returns a recorded observation by ID.
func (l *Layer) WitnessedContent(id string) (*Witnessed, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	w, ok := l.witnessed[id]
	return w, ok
}

// Report summarizes accumulated activity across all witnesses.
func (l *Layer) Report() Report {
	l.mu.RLock()
	defer l.mu.RUnlock()

	report := Report{
		Observations:   l.observations,
		Reflections:    l.reflections,
		Integrations:   l.integrations,
		WitnessCount:   len(l.witnesses),
		WitnessedCount: len(l.witnessed),
	}
	for _, c := range l.contributions {
		report.TotalContribution += c
	}
	if len(l.contributions) > 0 {
		report.AverageContribution = report.TotalContribution / float64(len(l.contributions))
	}
	return report
}

func coherenceLevel(coherence float64) string {
	switch {
	case coherence > 0.8:
		return "high"
	case coherence > 0.5:
		return "medium"
	default:
		return "low"
	}
}
