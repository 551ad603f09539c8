package becomingone

import (
	"testing"
	"time"

	"github.com/mrhavens/becomingone/internal/domain/oscillator"
	"github.com/mrhavens/becomingone/internal/infrastructure/adapters"
	"github.com/mrhavens/becomingone/internal/shared"
)

func quickConfig() Config {
	pace := oscillator.Config{
		IntegrationScale:  1.0,
		MaxWindow:         100.0,
		OscillationRate:   shared.TwoPi,
		CollapseThreshold: 0.9,
		HistoryCapacity:   64,
		Dampening:         0.999,
	}
	config := DefaultConfig()
	config.Slow = pace
	config.Fast = pace
	return config
}

func TestEngineEndToEnd(t *testing.T) {
	sink := adapters.NewCaptureSink()
	engine, err := New(quickConfig(), NewTextEncoder(), WithSink(sink))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer engine.Close()

	base := time.Now().UTC()
	for i := 0; i < 10; i++ {
		if _, err := engine.IngestAt("the same moment", base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	record := engine.Synchronize()
	if !record.Collapsed {
		t.Errorf("expected combined collapse, coherence %.4f", record.CombinedCoherence)
	}
	if sink.Len() != 1 {
		t.Errorf("expected 1 sink record, got %d", sink.Len())
	}
	if got := engine.Memory().Count(); got != 1 {
		t.Errorf("expected 1 remembered signature, got %d", got)
	}

	state := engine.Slow().LastState()
	if state.Coherence < 0.9 {
		t.Errorf("expected slow coherence near 1, got %.4f", state.Coherence)
	}
}

func TestEngineWitnessing(t *testing.T) {
	engine, err := New(quickConfig(), NewTextEncoder())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer engine.Close()

	base := time.Now().UTC()
	for i := 0; i < 10; i++ {
		engine.IngestAt("the same moment", base.Add(time.Duration(i)*time.Second))
	}

	witnessed, contribution, err := engine.Witness("self")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if witnessed.Coherence < 0.9 {
		t.Errorf("expected high witnessed coherence, got %.4f", witnessed.Coherence)
	}
	if contribution <= 0 {
		t.Errorf("expected positive contribution, got %.6f", contribution)
	}

	report, err := engine.Witnessing().MutualWitness("a", "b", engine.Slow().LastState())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.MutualBoost {
		t.Error("expected mutual boost for a shared high-coherence state")
	}
}

func TestEngineConfigValidation(t *testing.T) {
	config := quickConfig()
	config.Fast.MaxWindow = config.Fast.IntegrationScale / 2
	if _, err := New(config, NewTextEncoder()); err == nil {
		t.Error("expected error for window smaller than integration scale")
	}
}

func TestEngineEncoders(t *testing.T) {
	if _, err := NewTextEncoder().Encode("text"); err != nil {
		t.Errorf("unexpected text encoder error: %v", err)
	}
	if _, err := NewPulseEncoder().Encode(true); err != nil {
		t.Errorf("unexpected pulse encoder error: %v", err)
	}
	enc, err := NewSignalEncoder(0, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := enc.Encode(0.5); err != nil {
		t.Errorf("unexpected signal encoder error: %v", err)
	}
}
