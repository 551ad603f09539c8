// Package memory implements the signature memory store: encoding of
// high-coherence moments, decay-driven consolidation, similarity recall,
// and the persisted memory document.
package memory

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/mrhavens/becomingone/internal/domain/signature"
	"github.com/mrhavens/becomingone/internal/shared"
)

// StateSource is the capability a store must be bound to before use.
// Both oscillators and the synchronization layer can stand behind it.
type StateSource interface {
	LastState() shared.TemporalState
	Coherence() float64
}

// EventEmitter receives memory lifecycle events.
type EventEmitter interface {
	Emit(event shared.Event)
}

// ============================================================================
// Configuration
// ============================================================================

// Config holds the store tunables.
type Config struct {
	// AttentionThreshold is the minimum coherence for an unforced encode.
	AttentionThreshold float64 `json:"attentionThreshold"`
	// MaxSignatures bounds the store; exceeding it prunes weakest-oldest.
	MaxSignatures int `json:"maxSignatures"`
	// BaseDecayRate seeds each signature's decay rate, scaled by coherence.
	BaseDecayRate float64 `json:"baseDecayRate"`
	// RetentionFloor is the retention below which consolidation prunes.
	RetentionFloor float64 `json:"retentionFloor"`
	// RecencyWeight is the default recency weight for retrieval scoring.
	RecencyWeight float64 `json:"recencyWeight"`
	// EchoScanLimit bounds how many recent signatures an encode scans for
	// echo candidates.
	EchoScanLimit int `json:"echoScanLimit"`
	// EchoPhaseThreshold is the minimum phase match for an echo.
	EchoPhaseThreshold float64 `json:"echoPhaseThreshold"`
	// EchoCoherenceWindow is the maximum coherence delta for an echo.
	EchoCoherenceWindow float64 `json:"echoCoherenceWindow"`
	// ConsolidationInterval is the suggested cadence for Consolidate.
	ConsolidationInterval time.Duration `json:"consolidationInterval"`
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() Config {
	return Config{
		AttentionThreshold:    0.7,
		MaxSignatures:         10000,
		BaseDecayRate:         0.05,
		RetentionFloor:        0.1,
		RecencyWeight:         0.1,
		EchoScanLimit:         50,
		EchoPhaseThreshold:    0.7,
		EchoCoherenceWindow:   0.2,
		ConsolidationInterval: time.Hour,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.AttentionThreshold < 0 || c.AttentionThreshold > 1 {
		return shared.NewValidationError("attention threshold must be in [0, 1]", map[string]interface{}{
			"attentionThreshold": c.AttentionThreshold,
		})
	}
	if c.MaxSignatures <= 0 {
		return shared.NewValidationError("max signatures must be positive", map[string]interface{}{
			"maxSignatures": c.MaxSignatures,
		})
	}
	if c.BaseDecayRate <= 0 {
		return shared.NewValidationError("base decay rate must be positive", map[string]interface{}{
			"baseDecayRate": c.BaseDecayRate,
		})
	}
	if c.RetentionFloor < 0 || c.RetentionFloor >= 1 {
		return shared.NewValidationError("retention floor must be in [0, 1)", map[string]interface{}{
			"retentionFloor": c.RetentionFloor,
		})
	}
	return nil
}

// ============================================================================
// Store
// ============================================================================

// Store is the signature memory. Writes (Encode, Consolidate, Save, Load)
// are serialized; reads may run concurrently with each other.
type Store struct {
	mu     sync.RWMutex
	config Config

	source StateSource

	signatures map[string]*signature.Signature
	echoes     map[string][]*signature.Echo
	order      []string // signature IDs in encode order

	archive *Archive
	emitter EventEmitter
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithArchive attaches a durable signature archive written on encode.
func WithArchive(archive *Archive) StoreOption {
	return func(s *Store) { s.archive = archive }
}

// WithEmitter attaches an event emitter for memory lifecycle events.
func WithEmitter(emitter EventEmitter) StoreOption {
	return func(s *Store) { s.emitter = emitter }
}

// NewStore creates an unbound store.
func NewStore(config Config, opts ...StoreOption) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	s := &Store{
		config:     config,
		signatures: make(map[string]*signature.Signature),
		echoes:     make(map[string][]*signature.Echo),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Bind attaches the state source. Every operation fails until this is done.
func (s *Store) Bind(source StateSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = source
}

// Bound reports whether a state source is attached.
func (s *Store) Bound() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source != nil
}

// Config returns the store configuration.
func (s *Store) Config() Config {
	return s.config
}

func (s *Store) ensureBound() error {
	if s.source == nil {
		return shared.ErrMemoryNotBound
	}
	return nil
}

// ============================================================================
// Encoding
// ============================================================================

// Encode stores a temporal state as a signature. States below the
// attention threshold are ignored unless force is set; an ignored state
// returns (nil, nil). Echoes are generated against recent signatures with
// close phase and coherence.
func (s *Store) Encode(state shared.TemporalState, context map[string]interface{}, force bool) (*signature.Signature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureBound(); err != nil {
		return nil, err
	}

	if state.Coherence < s.config.AttentionThreshold && !force {
		return nil, nil
	}

	sig := signature.New(state, context, s.config.BaseDecayRate)

	echoes := s.generateEchoes(sig)

	s.signatures[sig.ID] = sig
	s.order = append(s.order, sig.ID)
	if len(echoes) > 0 {
		s.echoes[sig.ID] = echoes
	}

	s.enforceCapacity()

	if s.archive != nil {
		// Archival is best-effort; the in-memory store is the truth.
		_ = s.archive.Put(sig)
	}
	if s.emitter != nil {
		s.emitter.Emit(shared.Event{
			Type:      shared.EventMemoryEncoded,
			Timestamp: shared.Now(),
			Payload: map[string]interface{}{
				"signatureId": sig.ID,
				"coherence":   sig.Coherence,
				"tier":        sig.Tier.String(),
				"echoes":      len(echoes),
			},
		})
	}

	return sig, nil
}

// EncodeCurrent encodes the bound source's latest state.
func (s *Store) EncodeCurrent(context map[string]interface{}, force bool) (*signature.Signature, error) {
	s.mu.RLock()
	source := s.source
	s.mu.RUnlock()
	if source == nil {
		return nil, shared.ErrMemoryNotBound
	}
	return s.Encode(source.LastState(), context, force)
}

// generateEchoes scans the most recent signatures for candidates close in
// phase and coherence to sig. Caller holds the write lock.
func (s *Store) generateEchoes(sig *signature.Signature) []*signature.Echo {
	var echoes []*signature.Echo
	scanned := 0
	for i := len(s.order) - 1; i >= 0 && scanned < s.config.EchoScanLimit; i-- {
		prior, ok := s.signatures[s.order[i]]
		if !ok || prior.ID == sig.ID {
			continue
		}
		scanned++

		phaseMatch := 1.0 - math.Min(math.Abs(sig.MeanPhase()-prior.MeanPhase()), shared.TwoPi)/shared.TwoPi
		coherenceDelta := math.Abs(sig.Coherence - prior.Coherence)
		if phaseMatch <= s.config.EchoPhaseThreshold || coherenceDelta >= s.config.EchoCoherenceWindow {
			continue
		}

		offset := sig.CreatedAt.Sub(prior.CreatedAt).Seconds()
		echoes = append(echoes, signature.NewEcho(prior, phaseMatch, offset))
	}
	return echoes
}

// enforceCapacity prunes weakest-tier, oldest signatures while the store
// is over capacity. Caller holds the write lock.
func (s *Store) enforceCapacity() {
	over := len(s.signatures) - s.config.MaxSignatures
	if over <= 0 {
		return
	}

	candidates := make([]*signature.Signature, 0, len(s.signatures))
	for _, sig := range s.signatures {
		candidates = append(candidates, sig)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Tier != candidates[j].Tier {
			return candidates[i].Tier < candidates[j].Tier
		}
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})

	for i := 0; i < over; i++ {
		s.remove(candidates[i].ID)
	}

	if s.emitter != nil {
		s.emitter.Emit(shared.Event{
			Type:      shared.EventMemoryPruned,
			Timestamp: shared.Now(),
			Payload: map[string]interface{}{
				"pruned": over,
				"reason": "capacity",
			},
		})
	}
}

// remove deletes a signature, its echoes, and its order entry. Caller
// holds the write lock.
func (s *Store) remove(id string) {
	delete(s.signatures, id)
	delete(s.echoes, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// ============================================================================
// Retrieval
// ============================================================================

// ScoredSignature pairs a signature with its retrieval score.
type ScoredSignature struct {
	Signature *signature.Signature
	Score     float64
}

// RetrieveOptions filters and tunes a retrieval.
type RetrieveOptions struct {
	// CoherenceMin/Max bound candidate coherence when Max > 0.
	CoherenceMin float64
	CoherenceMax float64
	// TierFilter restricts candidates to one tier when set.
	TierFilter *signature.Tier
	// MaxResults truncates the ranked list; 0 means no limit.
	MaxResults int
	// RecencyWeight overrides the configured weight when > 0.
	RecencyWeight float64
}

// Retrieve ranks stored signatures against a query state. Scores combine
// coherence similarity, phase similarity, recency, and tier strength,
// normalized by the total weight so they stay in [0, 1] regardless of the
// recency weight.
func (s *Store) Retrieve(query shared.TemporalState, opts RetrieveOptions) ([]ScoredSignature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.ensureBound(); err != nil {
		return nil, err
	}

	recencyWeight := opts.RecencyWeight
	if recencyWeight <= 0 {
		recencyWeight = s.config.RecencyWeight
	}

	queryPhase := meanAngle(query.PhaseAngles)
	now := time.Now().UTC()

	results := make([]ScoredSignature, 0, len(s.signatures))
	for _, sig := range s.signatures {
		if opts.CoherenceMax > 0 && (sig.Coherence < opts.CoherenceMin || sig.Coherence > opts.CoherenceMax) {
			continue
		}
		if opts.TierFilter != nil && sig.Tier != *opts.TierFilter {
			continue
		}
		results = append(results, ScoredSignature{
			Signature: sig,
			Score:     s.score(sig, query.Coherence, queryPhase, now, recencyWeight),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if opts.MaxResults > 0 && len(results) > opts.MaxResults {
		results = results[:opts.MaxResults]
	}
	return results, nil
}

func (s *Store) score(sig *signature.Signature, queryCoherence, queryPhase float64, now time.Time, recencyWeight float64) float64 {
	coherenceSim := 1.0 - math.Abs(queryCoherence-sig.Coherence)
	if coherenceSim < 0 {
		coherenceSim = 0
	}
	phaseSim := 1.0 - math.Min(math.Abs(queryPhase-sig.MeanPhase()), shared.TwoPi)/shared.TwoPi
	recency := 1.0 / (1.0 + now.Sub(sig.LastAccess).Hours())
	tierValue := float64(sig.Tier) / 5.0

	raw := coherenceSim*0.4 + phaseSim*0.3 + recency*recencyWeight + tierValue*0.2
	return raw / (0.9 + recencyWeight)
}

// Recognize returns the best-matching signature when its score reaches
// the threshold, and records the access.
func (s *Store) Recognize(query shared.TemporalState, threshold float64) (*signature.Signature, error) {
	results, err := s.Retrieve(query, RetrieveOptions{MaxResults: 1})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 || results[0].Score < threshold {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sig, ok := s.signatures[results[0].Signature.ID]
	if !ok {
		return nil, nil
	}
	sig.Touch()
	return sig, nil
}

// ============================================================================
// Consolidation
// ============================================================================

// ConsolidationReport summarizes one consolidation pass.
type ConsolidationReport struct {
	Before       int `json:"before"`
	After        int `json:"after"`
	Strengthened int `json:"strengthened"`
	Pruned       int `json:"pruned"`
	Echoed       int `json:"echoed"`
}

// Consolidate walks every signature: accessed signatures with healthy
// retention are strengthened and re-echoed, signatures below the
// retention floor are pruned, and the rest decay slightly faster.
func (s *Store) Consolidate() (ConsolidationReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureBound(); err != nil {
		return ConsolidationReport{}, err
	}

	now := time.Now().UTC()
	report := ConsolidationReport{Before: len(s.signatures)}

	var doomed []string
	for _, sig := range s.signatures {
		retention := sig.Retention(now)
		switch {
		case sig.AccessCount > 0 && retention > 0.3:
			sig.DecayRate *= 0.9
			if retention >= 0.8 && sig.Tier < signature.TierIdentity {
				sig.Tier++
			}
			echoes := s.generateEchoes(sig)
			if len(echoes) > 0 {
				s.echoes[sig.ID] = append(s.echoes[sig.ID], echoes...)
				report.Echoed += len(echoes)
			}
			report.Strengthened++
		case retention < s.config.RetentionFloor:
			doomed = append(doomed, sig.ID)
		default:
			sig.DecayRate = math.Min(sig.DecayRate*1.1, 0.1)
		}
	}

	for _, id := range doomed {
		s.remove(id)
		report.Pruned++
	}
	report.After = len(s.signatures)

	if s.emitter != nil {
		s.emitter.Emit(shared.Event{
			Type:      shared.EventMemoryConsolidated,
			Timestamp: shared.Now(),
			Payload: map[string]interface{}{
				"before":       report.Before,
				"after":        report.After,
				"strengthened": report.Strengthened,
				"pruned":       report.Pruned,
				"echoed":       report.Echoed,
			},
		})
	}

	return report, nil
}

// ============================================================================
// Accessors
// ============================================================================

// Count returns the number of stored signatures.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.signatures)
}

// Signature returns a stored signature by ID.
func (s *Store) Signature(id string) (*signature.Signature, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sig, ok := s.signatures[id]
	return sig, ok
}

// Echoes returns the echoes attached to a signature.
func (s *Store) Echoes(id string) []*signature.Echo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*signature.Echo, len(s.echoes[id]))
	copy(out, s.echoes[id])
	return out
}

// EchoCount returns the total number of stored echoes.
func (s *Store) EchoCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, list := range s.echoes {
		total += len(list)
	}
	return total
}

// IdentitySignatures returns all signatures at the identity tier.
func (s *Store) IdentitySignatures() []*signature.Signature {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*signature.Signature
	for _, sig := range s.signatures {
		if sig.Tier == signature.TierIdentity {
			out = append(out, sig)
		}
	}
	return out
}

// Recent returns signatures created within the window, newest first.
func (s *Store) Recent(window time.Duration) []*signature.Signature {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := time.Now().UTC().Add(-window)
	var out []*signature.Signature
	for i := len(s.order) - 1; i >= 0; i-- {
		sig, ok := s.signatures[s.order[i]]
		if !ok {
			continue
		}
		if sig.CreatedAt.Before(cutoff) {
			break
		}
		out = append(out, sig)
	}
	return out
}

// Stats summarizes the store contents.
type Stats struct {
	Signatures       int            `json:"signatures"`
	Echoes           int            `json:"echoes"`
	Capacity         int            `json:"capacity"`
	TierCounts       map[string]int `json:"tierCounts"`
	AverageCoherence float64        `json:"averageCoherence"`
}

// Stats returns a snapshot of store statistics.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		Signatures: len(s.signatures),
		Capacity:   s.config.MaxSignatures,
		TierCounts: make(map[string]int),
	}
	total := 0.0
	for _, sig := range s.signatures {
		stats.TierCounts[sig.Tier.String()]++
		total += sig.Coherence
	}
	for _, list := range s.echoes {
		stats.Echoes += len(list)
	}
	if len(s.signatures) > 0 {
		stats.AverageCoherence = total / float64(len(s.signatures))
	}
	return stats
}

// Clear drops all signatures and echoes.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signatures = make(map[string]*signature.Signature)
	s.echoes = make(map[string][]*signature.Echo)
	s.order = nil
}

func meanAngle(angles []float64) float64 {
	if len(angles) == 0 {
		return 0
	}
	sum := 0.0
	for _, a := range angles {
		sum += a
	}
	return sum / float64(len(angles))
}
