// Package becomingone provides the public API for the temporal coherence
// engine.
//
// The engine runs two differently-tuned oscillators over one input
// stream, synchronizes their resonances into a combined signal, and
// remembers high-coherence moments as decaying signatures.
//
// Example:
//
//	engine, err := becomingone.New(becomingone.DefaultConfig(),
//	    becomingone.NewTextEncoder())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Close()
//
//	engine.Ingest("a steady stream of input")
//	record := engine.Synchronize()
//	fmt.Println(record.CombinedCoherence)
package becomingone

import (
	"context"
	"time"

	"github.com/mrhavens/becomingone/internal/application/pipeline"
	appsync "github.com/mrhavens/becomingone/internal/application/sync"
	"github.com/mrhavens/becomingone/internal/application/witnessing"
	"github.com/mrhavens/becomingone/internal/domain/oscillator"
	"github.com/mrhavens/becomingone/internal/domain/signature"
	"github.com/mrhavens/becomingone/internal/infrastructure/adapters"
	"github.com/mrhavens/becomingone/internal/infrastructure/events"
	"github.com/mrhavens/becomingone/internal/infrastructure/memory"
	"github.com/mrhavens/becomingone/internal/shared"
)

// Re-export types for the public API.
type (
	// Value types
	Phase         = shared.Phase
	PhaseSample   = shared.PhaseSample
	TemporalState = shared.TemporalState
	SyncRecord    = shared.SyncRecord
	Event         = shared.Event
	EventType     = shared.EventType

	// Configuration
	Config           = pipeline.Config
	OscillatorConfig = oscillator.Config
	SyncConfig       = appsync.Config
	MemoryConfig     = memory.Config

	// Memory types
	Signature           = signature.Signature
	Echo                = signature.Echo
	Tier                = signature.Tier
	ScoredSignature     = memory.ScoredSignature
	RetrieveOptions     = memory.RetrieveOptions
	ConsolidationReport = memory.ConsolidationReport
	MemoryStats         = memory.Stats

	// Witnessing types
	WitnessingConfig = witnessing.Config
	WitnessingMode   = witnessing.Mode
	WitnessState     = witnessing.Witness
	Witnessed        = witnessing.Witnessed
	MutualReport     = witnessing.MutualReport
	WitnessingReport = witnessing.Report

	// Boundaries
	Encoder = adapters.Encoder
	Sink    = adapters.Sink
)

// Witnessing modes.
const (
	ModeObserve   = witnessing.ModeObserve
	ModeReflect   = witnessing.ModeReflect
	ModeIntegrate = witnessing.ModeIntegrate
	ModeMutual    = witnessing.ModeMutual
)

// Strength tiers.
const (
	TierTransient  = signature.TierTransient
	TierWorking    = signature.TierWorking
	TierEpisodic   = signature.TierEpisodic
	TierProcedural = signature.TierProcedural
	TierSemantic   = signature.TierSemantic
	TierIdentity   = signature.TierIdentity
)

// Engine event types.
const (
	EventOscillatorCollapse = shared.EventOscillatorCollapse
	EventSyncCollapse       = shared.EventSyncCollapse
	EventSyncDissipated     = shared.EventSyncDissipated
	EventMemoryEncoded      = shared.EventMemoryEncoded
	EventMemoryConsolidated = shared.EventMemoryConsolidated
	EventInputSkipped       = shared.EventInputSkipped
)

// DefaultConfig returns the standard slow/fast engine configuration.
func DefaultConfig() Config {
	return pipeline.DefaultConfig()
}

// SlowConfig returns the long-window oscillator tuning.
func SlowConfig() OscillatorConfig {
	return oscillator.SlowConfig()
}

// FastConfig returns the short-window oscillator tuning.
func FastConfig() OscillatorConfig {
	return oscillator.FastConfig()
}

// NewTextEncoder returns the deterministic text-hash encoder.
func NewTextEncoder() Encoder {
	return adapters.NewTextEncoder()
}

// NewPulseEncoder returns the boolean pulse encoder.
func NewPulseEncoder() Encoder {
	return adapters.NewPulseEncoder()
}

// NewSignalEncoder returns an encoder for scalars in [min, max].
func NewSignalEncoder(min, max float64) (Encoder, error) {
	return adapters.NewSignalEncoder(min, max)
}

// Engine is the assembled temporal coherence system.
type Engine struct {
	service *pipeline.Service
}

// Option configures the Engine.
type Option func(*options)

type options struct {
	sinks []adapters.Sink
}

// WithSink attaches an output sink for synchronization records.
func WithSink(sink Sink) Option {
	return func(o *options) { o.sinks = append(o.sinks, sink) }
}

// New builds an engine from the configuration and encoder.
func New(config Config, encoder Encoder, opts ...Option) (*Engine, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	serviceOpts := make([]pipeline.Option, 0, len(o.sinks))
	for _, sink := range o.sinks {
		serviceOpts = append(serviceOpts, pipeline.WithSink(sink))
	}

	service, err := pipeline.New(config, encoder, serviceOpts...)
	if err != nil {
		return nil, err
	}
	return &Engine{service: service}, nil
}

// Ingest feeds one raw input through the encoder into both oscillators.
func (e *Engine) Ingest(raw interface{}) (TemporalState, error) {
	return e.service.Ingest(raw)
}

// IngestAt is Ingest with an explicit timestamp.
func (e *Engine) IngestAt(raw interface{}, timestamp time.Time) (TemporalState, error) {
	return e.service.IngestAt(raw, timestamp)
}

// Synchronize runs one synchronization tick and returns its record.
func (e *Engine) Synchronize() SyncRecord {
	return e.service.Synchronize()
}

// Start launches the periodic synchronization and consolidation tasks.
func (e *Engine) Start(ctx context.Context) {
	e.service.Start(ctx)
}

// Stop shuts background tasks down and persists memory when configured.
func (e *Engine) Stop() error {
	return e.service.Stop()
}

// Close stops the engine and releases its resources.
func (e *Engine) Close() error {
	return e.service.Close()
}

// Memory returns the signature store.
func (e *Engine) Memory() *memory.Store {
	return e.service.Memory()
}

// Witness runs one witnessing cycle over the slow oscillator's current
// state.
func (e *Engine) Witness(witnessID string) (*Witnessed, float64, error) {
	return e.service.Witness(witnessID)
}

// Witnessing returns the witnessing layer.
func (e *Engine) Witnessing() *witnessing.Layer {
	return e.service.Witnessing()
}

// Events returns the engine event bus.
func (e *Engine) Events() *events.Bus {
	return e.service.Events()
}

// Slow returns the slow oscillator.
func (e *Engine) Slow() *oscillator.Oscillator {
	return e.service.Slow()
}

// Fast returns the fast oscillator.
func (e *Engine) Fast() *oscillator.Oscillator {
	return e.service.Fast()
}

// Layer returns the synchronization layer.
func (e *Engine) Layer() *appsync.Layer {
	return e.service.Layer()
}
