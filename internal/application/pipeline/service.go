// Package pipeline assembles the full engine: an encoder feeding the
// slow/fast oscillator pair, the synchronization layer ticking over them,
// and the signature memory recording high-coherence moments. The Service
// is an explicit context object; nothing here is process-global.
package pipeline

import (
	"context"
	stdsync "sync"
	"time"

	"github.com/mrhavens/becomingone/internal/application/sync"
	"github.com/mrhavens/becomingone/internal/application/witnessing"
	"github.com/mrhavens/becomingone/internal/domain/oscillator"
	"github.com/mrhavens/becomingone/internal/infrastructure/adapters"
	"github.com/mrhavens/becomingone/internal/infrastructure/events"
	"github.com/mrhavens/becomingone/internal/infrastructure/memory"
	"github.com/mrhavens/becomingone/internal/shared"
)

// Config holds the tunables for every stage of the pipeline.
type Config struct {
	Slow       oscillator.Config `json:"slow"`
	Fast       oscillator.Config `json:"fast"`
	Sync       sync.Config       `json:"sync"`
	Memory     memory.Config     `json:"memory"`
	Witnessing witnessing.Config `json:"witnessing"`

	// SyncInterval is the cadence of the synchronization driver.
	SyncInterval time.Duration `json:"syncInterval"`
	// MemoryPath is where the memory document is saved on shutdown; empty
	// disables persistence.
	MemoryPath string `json:"memoryPath"`
	// ArchivePath is the SQLite signature archive; empty disables it.
	ArchivePath string `json:"archivePath"`
}

// DefaultConfig returns the standard slow/fast pairing.
func DefaultConfig() Config {
	return Config{
		Slow:         oscillator.SlowConfig(),
		Fast:         oscillator.FastConfig(),
		Sync:         sync.DefaultConfig(),
		Memory:       memory.DefaultConfig(),
		Witnessing:   witnessing.DefaultConfig(),
		SyncInterval: 100 * time.Millisecond,
	}
}

// Validate checks every stage's configuration.
func (c Config) Validate() error {
	if err := c.Slow.Validate(); err != nil {
		return err
	}
	if err := c.Fast.Validate(); err != nil {
		return err
	}
	if err := c.Sync.Validate(); err != nil {
		return err
	}
	if err := c.Memory.Validate(); err != nil {
		return err
	}
	if err := c.Witnessing.Validate(); err != nil {
		return err
	}
	if c.SyncInterval <= 0 {
		return shared.NewValidationError("sync interval must be positive", map[string]interface{}{
			"syncInterval": c.SyncInterval.String(),
		})
	}
	return nil
}

// Service wires the engine together and owns its background tasks.
type Service struct {
	config  Config
	encoder adapters.Encoder

	slow  *oscillator.Oscillator
	fast  *oscillator.Oscillator
	layer *sync.Layer

	store      *memory.Store
	archive    *memory.Archive
	witnessing *witnessing.Layer
	bus        *events.Bus

	driver *sync.Driver

	mu                stdsync.Mutex
	sinks             []adapters.Sink
	running           bool
	cancelConsolidate context.CancelFunc
	consolidateDone   chan struct{}

	slowCollapsed bool
	fastCollapsed bool
	ingested      int64
	skipped       int64
}

// Option configures a Service.
type Option func(*Service)

// WithSink attaches an output sink; may be given multiple times.
func WithSink(sink adapters.Sink) Option {
	return func(s *Service) { s.sinks = append(s.sinks, sink) }
}

// New builds a pipeline from the configuration. Construction fails on the
// first invalid stage config.
func New(config Config, encoder adapters.Encoder, opts ...Option) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	bus := events.New()

	slow, err := oscillator.New("slow", config.Slow)
	if err != nil {
		return nil, err
	}
	fast, err := oscillator.New("fast", config.Fast)
	if err != nil {
		return nil, err
	}

	layer, err := sync.NewLayer(slow, fast, config.Sync, sync.Options{Emitter: bus})
	if err != nil {
		return nil, err
	}

	storeOpts := []memory.StoreOption{memory.WithEmitter(bus)}
	var archive *memory.Archive
	if config.ArchivePath != "" {
		archive = memory.NewArchive(config.ArchivePath)
		if err := archive.Initialize(); err != nil {
			return nil, err
		}
		storeOpts = append(storeOpts, memory.WithArchive(archive))
	}
	store, err := memory.NewStore(config.Memory, storeOpts...)
	if err != nil {
		return nil, err
	}
	store.Bind(slow)

	witnessLayer, err := witnessing.NewLayer(config.Witnessing)
	if err != nil {
		return nil, err
	}
	witnessLayer.BindMemory(store)

	driver, err := sync.NewDriver(layer, config.SyncInterval)
	if err != nil {
		return nil, err
	}

	s := &Service{
		config:     config,
		encoder:    encoder,
		slow:       slow,
		fast:       fast,
		layer:      layer,
		store:      store,
		archive:    archive,
		witnessing: witnessLayer,
		bus:        bus,
		driver:     driver,
	}
	for _, opt := range opts {
		opt(s)
	}

	driver.OnRecord(s.handleSyncRecord)

	if config.MemoryPath != "" {
		// Cold start: an absent or corrupt document loads zero signatures.
		store.Load(config.MemoryPath)
	}

	return s, nil
}

// Ingest encodes one raw input and feeds the resulting phase to both
// oscillators. Encoding failures are recorded and skipped; they never
// abort the pipeline.
func (s *Service) Ingest(raw interface{}) (shared.TemporalState, error) {
	phase, err := s.encoder.Encode(raw)
	if err != nil {
		s.mu.Lock()
		s.skipped++
		s.mu.Unlock()
		s.bus.EmitInputSkipped(err.Error())
		return shared.TemporalState{}, err
	}

	now := time.Now().UTC()
	slowState := s.slow.Integrate(phase, now)
	fastState := s.fast.Integrate(phase, now)

	s.mu.Lock()
	s.ingested++
	newSlowCollapse := slowState.Collapsed && !s.slowCollapsed
	newFastCollapse := fastState.Collapsed && !s.fastCollapsed
	s.slowCollapsed = slowState.Collapsed
	s.fastCollapsed = fastState.Collapsed
	s.mu.Unlock()

	if newSlowCollapse {
		s.bus.EmitCollapse(s.slow.Name(), slowState.Coherence)
	}
	if newFastCollapse {
		s.bus.EmitCollapse(s.fast.Name(), fastState.Coherence)
	}

	return slowState, nil
}

// IngestAt is Ingest with an explicit timestamp, used by replays and the
// simulate command.
func (s *Service) IngestAt(raw interface{}, timestamp time.Time) (shared.TemporalState, error) {
	phase, err := s.encoder.Encode(raw)
	if err != nil {
		s.mu.Lock()
		s.skipped++
		s.mu.Unlock()
		s.bus.EmitInputSkipped(err.Error())
		return shared.TemporalState{}, err
	}

	slowState := s.slow.Integrate(phase, timestamp)
	fastState := s.fast.Integrate(phase, timestamp)

	s.mu.Lock()
	s.ingested++
	newSlowCollapse := slowState.Collapsed && !s.slowCollapsed
	newFastCollapse := fastState.Collapsed && !s.fastCollapsed
	s.slowCollapsed = slowState.Collapsed
	s.fastCollapsed = fastState.Collapsed
	s.mu.Unlock()

	if newSlowCollapse {
		s.bus.EmitCollapse(s.slow.Name(), slowState.Coherence)
	}
	if newFastCollapse {
		s.bus.EmitCollapse(s.fast.Name(), fastState.Coherence)
	}

	return slowState, nil
}

// Synchronize runs one synchronization tick immediately.
func (s *Service) Synchronize() shared.SyncRecord {
	record := s.layer.Synchronize()
	s.handleSyncRecord(record)
	return record
}

// Witness runs one witnessing cycle over the slow oscillator's current
// state. The witness is created on first use; high-coherence
// observations reach the signature memory.
func (s *Service) Witness(witnessID string) (*witnessing.Witnessed, float64, error) {
	return s.witnessing.Witness(s.slow.LastState(), witnessID)
}

// handleSyncRecord fans a tick's record out to the sinks and encodes
// high-coherence moments into memory.
func (s *Service) handleSyncRecord(record shared.SyncRecord) {
	s.mu.Lock()
	sinks := make([]adapters.Sink, len(s.sinks))
	copy(sinks, s.sinks)
	s.mu.Unlock()

	for _, sink := range sinks {
		// Sink failures are an output-boundary concern; the tick proceeds.
		if err := sink.Write(record); err != nil {
			s.bus.EmitInputSkipped("sink " + sink.Name() + ": " + err.Error())
		}
	}

	if record.Dissipated {
		return
	}

	state := shared.TemporalState{
		Phase:       record.CombinedResonance.Normalize(),
		Resonance:   record.CombinedResonance,
		Coherence:   record.CombinedCoherence,
		Timestamp:   record.Timestamp,
		Collapsed:   record.Collapsed,
		PhaseAngles: s.slow.LastState().PhaseAngles,
		Metadata: map[string]interface{}{
			"aligned":         record.Aligned,
			"phaseDifference": record.PhaseDifference,
		},
	}
	// The store applies its own attention threshold.
	s.store.Encode(state, state.Metadata, false)
}

// Start launches the synchronization driver and the consolidation
// scheduler. Starting twice is a no-op.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true

	consolidateCtx, cancel := context.WithCancel(ctx)
	s.cancelConsolidate = cancel
	s.consolidateDone = make(chan struct{})
	s.mu.Unlock()

	s.driver.Start(ctx)

	interval := s.config.Memory.ConsolidationInterval
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		defer close(s.consolidateDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-consolidateCtx.Done():
				return
			case <-ticker.C:
				s.store.Consolidate()
			}
		}
	}()

	s.bus.Emit(shared.Event{
		Type:      shared.EventPipelineStarted,
		Timestamp: shared.Now(),
		Payload: map[string]interface{}{
			"syncInterval": s.config.SyncInterval.String(),
		},
	})
}

// Stop shuts the background tasks down, runs a final consolidation, and
// persists the memory document when a path is configured. Already-saved
// state is never lost by stopping.
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel := s.cancelConsolidate
	done := s.consolidateDone
	s.mu.Unlock()

	s.driver.Stop()
	cancel()
	<-done

	if _, err := s.store.Consolidate(); err != nil {
		return err
	}
	if s.config.MemoryPath != "" {
		if err := s.store.Save(s.config.MemoryPath); err != nil {
			return err
		}
	}

	s.bus.Emit(shared.Event{
		Type:      shared.EventPipelineStopped,
		Timestamp: shared.Now(),
		Payload: map[string]interface{}{
			"ingested": s.Ingested(),
			"skipped":  s.Skipped(),
		},
	})
	return nil
}

// Close stops the pipeline and releases the archive and bus.
func (s *Service) Close() error {
	err := s.Stop()
	if s.archive != nil {
		s.archive.Close()
	}
	s.bus.Close()
	return err
}

// Running reports whether the background tasks are active.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Ingested returns the count of accepted inputs.
func (s *Service) Ingested() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ingested
}

// Skipped returns the count of inputs dropped at the encoder boundary.
func (s *Service) Skipped() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skipped
}

// Slow returns the slow oscillator.
func (s *Service) Slow() *oscillator.Oscillator { return s.slow }

// Fast returns the fast oscillator.
func (s *Service) Fast() *oscillator.Oscillator { return s.fast }

// Layer returns the synchronization layer.
func (s *Service) Layer() *sync.Layer { return s.layer }

// Memory returns the signature store.
func (s *Service) Memory() *memory.Store { return s.store }

// Witnessing returns the witnessing layer.
func (s *Service) Witnessing() *witnessing.Layer { return s.witnessing }

// Archive returns the signature archive, or nil when disabled.
func (s *Service) Archive() *memory.Archive { return s.archive }

// Events returns the engine event bus.
func (s *Service) Events() *events.Bus { return s.bus }

// Config returns the pipeline configuration.
func (s *Service) Config() Config { return s.config }
