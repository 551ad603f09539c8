package memory

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")

	store := newBoundStore(t, DefaultConfig())
	first, _ := store.Encode(testState(0.92, 1.0), map[string]interface{}{"k": "a"}, false)
	second, _ := store.Encode(testState(0.75, 1.0), nil, false)
	if first == nil || second == nil {
		t.Fatal("expected both encodes to succeed")
	}

	if err := store.Save(path); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}

	fresh := newBoundStore(t, DefaultConfig())
	loaded, err := fresh.Load(path)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if loaded != 2 {
		t.Errorf("expected 2 signatures loaded, got %d", loaded)
	}

	for _, original := range []string{first.ID, second.ID} {
		want, _ := store.Signature(original)
		got, ok := fresh.Signature(original)
		if !ok {
			t.Fatalf("expected signature %s after reload", original)
		}
		if got.Coherence != want.Coherence {
			t.Errorf("expected coherence %.4f for %s, got %.4f", want.Coherence, original, got.Coherence)
		}
		if got.Tier != want.Tier {
			t.Errorf("expected tier %s for %s, got %s", want.Tier, original, got.Tier)
		}
		if got.DecayRate != want.DecayRate {
			t.Errorf("expected decay rate %.6f for %s, got %.6f", want.DecayRate, original, got.DecayRate)
		}
	}

	if fresh.EchoCount() != store.EchoCount() {
		t.Errorf("expected %d echoes after reload, got %d", store.EchoCount(), fresh.EchoCount())
	}
}

func TestLoadMissingFileColdStart(t *testing.T) {
	store := newBoundStore(t, DefaultConfig())
	loaded, err := store.Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Errorf("expected cold start without error, got %v", err)
	}
	if loaded != 0 {
		t.Errorf("expected 0 signatures from a missing file, got %d", loaded)
	}
}

func TestLoadCorruptFileColdStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := newBoundStore(t, DefaultConfig())
	loaded, err := store.Load(path)
	if err != nil {
		t.Errorf("expected cold start without error, got %v", err)
	}
	if loaded != 0 {
		t.Errorf("expected 0 signatures from a corrupt file, got %d", loaded)
	}
	if got := store.Count(); got != 0 {
		t.Errorf("expected empty store, got %d", got)
	}
}

func TestLoadFailureKeepsExistingContents(t *testing.T) {
	store := newBoundStore(t, DefaultConfig())
	sig, _ := store.Encode(testState(0.92, 1.0), nil, false)
	if sig == nil {
		t.Fatal("expected encode to succeed")
	}

	dir := t.TempDir()
	corrupt := filepath.Join(dir, "corrupt.json")
	if err := os.WriteFile(corrupt, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{filepath.Join(dir, "absent.json"), corrupt} {
		loaded, err := store.Load(path)
		if err != nil {
			t.Errorf("expected cold start without error, got %v", err)
		}
		if loaded != 0 {
			t.Errorf("expected 0 signatures loaded, got %d", loaded)
		}
		if _, ok := store.Signature(sig.ID); !ok {
			t.Errorf("expected existing signature retained after failed load of %s", path)
		}
	}
}

func TestDocumentShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")

	store := newBoundStore(t, DefaultConfig())
	sig, _ := store.Encode(testState(0.92, 1.0), nil, false)
	if err := store.Save(path); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("expected valid JSON document: %v", err)
	}
	for _, field := range []string{"version", "saved_at", "config", "signatures", "echoes"} {
		if _, ok := doc[field]; !ok {
			t.Errorf("expected top-level field %q", field)
		}
	}

	var signatures map[string]map[string]interface{}
	if err := json.Unmarshal(doc["signatures"], &signatures); err != nil {
		t.Fatal(err)
	}
	entry, ok := signatures[sig.ID]
	if !ok {
		t.Fatalf("expected signature %s in document", sig.ID)
	}
	tier, ok := entry["tier"].(float64)
	if !ok {
		t.Fatal("expected tier persisted as a numeric strength value")
	}
	if tier != sig.Tier.Strength() {
		t.Errorf("expected tier value %.2f, got %.2f", sig.Tier.Strength(), tier)
	}
}
