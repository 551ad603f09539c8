package witnessing

import (
	"math"
	"testing"
	"time"

	"github.com/mrhavens/becomingone/internal/infrastructure/memory"
	"github.com/mrhavens/becomingone/internal/shared"
)

func testState(coherence float64) shared.TemporalState {
	return shared.TemporalState{
		Phase:       shared.PhaseFromAngle(1.0),
		Resonance:   shared.PhaseFromAngle(1.0).Scale(math.Sqrt(coherence)),
		Coherence:   coherence,
		Timestamp:   time.Now().UTC(),
		PhaseAngles: []float64{1.0, 1.1},
	}
}

func newTestLayer(t *testing.T) *Layer {
	t.Helper()
	layer, err := NewLayer(DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return layer
}

type stubSource struct{ state shared.TemporalState }

func (s stubSource) LastState() shared.TemporalState { return s.state }
func (s stubSource) Coherence() float64              { return s.state.Coherence }

func TestCreateWitnessIsIdempotent(t *testing.T) {
	layer := newTestLayer(t)

	first := layer.CreateWitness("self", ModeObserve)
	first.Observations = 3
	second := layer.CreateWitness("self", ModeReflect)

	if second != first {
		t.Error("expected re-creation to return the existing witness")
	}
	if second.Mode != ModeObserve {
		t.Errorf("expected original mode retained, got %s", second.Mode)
	}
}

func TestObserveUnknownWitnessFails(t *testing.T) {
	layer := newTestLayer(t)

	if _, err := layer.Observe(testState(0.9), "nobody"); err == nil {
		t.Error("expected error for unknown witness")
	}
	if _, err := layer.Reflect(&Witnessed{}, "nobody"); err == nil {
		t.Error("expected error for unknown witness")
	}
	if _, err := layer.Integrate(&Witnessed{}, "nobody"); err == nil {
		t.Error("expected error for unknown witness")
	}
}

func TestObserveCapturesStateCoherence(t *testing.T) {
	layer := newTestLayer(t)
	layer.CreateWitness("self", ModeObserve)

	witnessed, err := layer.Observe(testState(0.85), "self")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if witnessed.Coherence != 0.85 {
		t.Errorf("expected coherence 0.85, got %.4f", witnessed.Coherence)
	}
	if witnessed.WitnessID != "self" {
		t.Errorf("expected witness self, got %s", witnessed.WitnessID)
	}

	state, ok := layer.WitnessState("self")
	if !ok {
		t.Fatal("expected witness state")
	}
	if state.Observations != 1 {
		t.Errorf("expected 1 observation, got %d", state.Observations)
	}
	if state.LastObserved.IsZero() {
		t.Error("expected last-observed timestamp")
	}
}

func TestObserveNonStateContentHasZeroCoherence(t *testing.T) {
	layer := newTestLayer(t)
	layer.CreateWitness("self", ModeObserve)

	witnessed, err := layer.Observe("plain text", "self")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if witnessed.Coherence != 0 {
		t.Errorf("expected zero coherence for non-state content, got %.4f", witnessed.Coherence)
	}
}

func TestReflectChoosesTransformation(t *testing.T) {
	cases := []struct {
		name      string
		coherence float64
		wantType  string
		wantBoost float64
	}{
		{"high coherence strengthens", 0.9, TransformStrengthen, 0.1},
		{"low coherence clarifies", 0.1, TransformClarify, 0.05},
		{"medium coherence maintains", 0.5, TransformMaintain, 0.02},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			layer := newTestLayer(t)
			layer.CreateWitness("self", ModeObserve)

			witnessed, err := layer.Observe(testState(tc.coherence), "self")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, err := layer.Reflect(witnessed, "self"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if witnessed.Transformation == nil {
				t.Fatal("expected a transformation")
			}
			if witnessed.Transformation.Type != tc.wantType {
				t.Errorf("expected %s, got %s", tc.wantType, witnessed.Transformation.Type)
			}
			if witnessed.Transformation.CoherenceBoost != tc.wantBoost {
				t.Errorf("expected boost %.2f, got %.2f", tc.wantBoost, witnessed.Transformation.CoherenceBoost)
			}
		})
	}
}

func TestReflectRecordsMetaObservations(t *testing.T) {
	layer := newTestLayer(t)
	layer.CreateWitness("self", ModeObserve)

	witnessed, _ := layer.Observe(testState(0.9), "self")
	layer.Reflect(witnessed, "self")

	// Coherence line, level line, identity line, one per reflection depth.
	want := 3 + layer.Config().ReflectionDepth
	if got := len(witnessed.MetaObservations); got != want {
		t.Errorf("expected %d meta observations, got %d", want, got)
	}

	witnessed, _ = layer.Observe(testState(0.5), "self")
	layer.Reflect(witnessed, "self")
	want = 2 + layer.Config().ReflectionDepth
	if got := len(witnessed.MetaObservations); got != want {
		t.Errorf("expected %d meta observations below threshold, got %d", want, got)
	}
}

func TestIntegrateAccumulatesContribution(t *testing.T) {
	layer := newTestLayer(t)
	layer.CreateWitness("self", ModeObserve)

	witnessed, _ := layer.Observe(testState(0.9), "self")
	layer.Reflect(witnessed, "self")

	contribution, err := layer.Integrate(witnessed, "self")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// strengthen boost 0.1 scaled by integration rate 0.1
	if math.Abs(contribution-0.01) > 1e-12 {
		t.Errorf("expected contribution 0.01, got %.6f", contribution)
	}

	state, _ := layer.WitnessState("self")
	if state.Integrations != 1 {
		t.Errorf("expected 1 integration, got %d", state.Integrations)
	}
	if math.Abs(state.CoherenceContribution-contribution) > 1e-12 {
		t.Errorf("expected contribution %.6f, got %.6f", contribution, state.CoherenceContribution)
	}
}

func TestWitnessCycle(t *testing.T) {
	layer := newTestLayer(t)

	// The witness is created on first use.
	witnessed, contribution, err := layer.Witness(testState(0.9), "self")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if witnessed.Transformation == nil {
		t.Error("expected a transformation from the reflection pass")
	}
	if contribution <= 0 {
		t.Errorf("expected positive contribution, got %.6f", contribution)
	}

	state, ok := layer.WitnessState("self")
	if !ok {
		t.Fatal("expected witness created on first use")
	}
	if state.Observations != 1 || state.Reflections != 1 || state.Integrations != 1 {
		t.Errorf("expected one full cycle, got %d/%d/%d",
			state.Observations, state.Reflections, state.Integrations)
	}
}

func TestIntegrateEncodesHighCoherenceIntoMemory(t *testing.T) {
	layer := newTestLayer(t)

	store, err := memory.NewStore(memory.DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	store.Bind(stubSource{state: testState(0.9)})
	layer.BindMemory(store)

	if _, _, err := layer.Witness(testState(0.9), "self"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := store.Count(); got != 1 {
		t.Errorf("expected 1 encoded signature, got %d", got)
	}

	// Below the threshold nothing reaches memory.
	if _, _, err := layer.Witness(testState(0.4), "self"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := store.Count(); got != 1 {
		t.Errorf("expected low-coherence observation skipped, got %d signatures", got)
	}
}

func TestMutualWitnessBoost(t *testing.T) {
	layer := newTestLayer(t)

	report, err := layer.MutualWitness("a", "b", testState(0.8))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.MutualBoost {
		t.Error("expected mutual boost for identical coherence readings")
	}
	if math.Abs(report.IndividualCoherence-0.8) > 1e-12 {
		t.Errorf("expected individual coherence 0.8, got %.4f", report.IndividualCoherence)
	}
	if math.Abs(report.CombinedCoherence-1.2) > 1e-12 {
		t.Errorf("expected combined coherence 1.2, got %.4f", report.CombinedCoherence)
	}

	combined, ok := layer.WitnessState(report.CombinedWitnessID)
	if !ok {
		t.Fatal("expected combined witness registered")
	}
	if combined.Mode != ModeMutual {
		t.Errorf("expected mutual mode, got %s", combined.Mode)
	}
}

func TestMutualWitnessNonStateContent(t *testing.T) {
	layer := newTestLayer(t)

	report, err := layer.MutualWitness("a", "b", "plain text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.IndividualCoherence != 0 {
		t.Errorf("expected zero individual coherence for non-state content, got %.4f", report.IndividualCoherence)
	}
	if report.CombinedCoherence != 0 {
		t.Errorf("expected zero combined coherence, got %.4f", report.CombinedCoherence)
	}

	stateA, _ := layer.WitnessState("a")
	if stateA.Observations != 1 || stateA.Reflections != 1 {
		t.Errorf("expected one observe/reflect pass for a, got %d/%d",
			stateA.Observations, stateA.Reflections)
	}
}

func TestReportAggregates(t *testing.T) {
	layer := newTestLayer(t)

	layer.Witness(testState(0.9), "self")
	layer.Witness(testState(0.5), "self")

	report := layer.Report()
	if report.Observations != 2 || report.Reflections != 2 || report.Integrations != 2 {
		t.Errorf("expected 2/2/2 activity, got %d/%d/%d",
			report.Observations, report.Reflections, report.Integrations)
	}
	if report.WitnessCount != 1 {
		t.Errorf("expected 1 witness, got %d", report.WitnessCount)
	}
	if report.WitnessedCount != 2 {
		t.Errorf("expected 2 witnessed records, got %d", report.WitnessedCount)
	}
	// 0.01 strengthen plus 0.002 maintain
	if math.Abs(report.TotalContribution-0.012) > 1e-12 {
		t.Errorf("expected total contribution 0.012, got %.6f", report.TotalContribution)
	}
	if math.Abs(report.AverageContribution-0.006) > 1e-12 {
		t.Errorf("expected average contribution 0.006, got %.6f", report.AverageContribution)
	}
}

func TestWitnessingConfigValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative threshold", func(c *Config) { c.CoherenceThreshold = -0.1 }},
		{"threshold above one", func(c *Config) { c.CoherenceThreshold = 1.1 }},
		{"zero depth", func(c *Config) { c.ReflectionDepth = 0 }},
		{"zero rate", func(c *Config) { c.IntegrationRate = 0 }},
		{"rate above one", func(c *Config) { c.IntegrationRate = 1.5 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			config := DefaultConfig()
			tc.mutate(&config)
			if _, err := NewLayer(config); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
