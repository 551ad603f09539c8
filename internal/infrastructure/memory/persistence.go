package memory

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mrhavens/becomingone/internal/domain/signature"
	"github.com/mrhavens/becomingone/internal/shared"
)

// DocumentVersion identifies the persisted memory document format.
const DocumentVersion = 1

// persistedSignature is the on-disk signature shape. The tier is stored
// as its numeric strength value.
type persistedSignature struct {
	ID          string                 `json:"id"`
	Coherence   float64                `json:"coherence"`
	PhaseVector []float64              `json:"phaseVector"`
	ContextHash string                 `json:"contextHash"`
	Tier        float64                `json:"tier"`
	CreatedAt   time.Time              `json:"createdAt"`
	LastAccess  time.Time              `json:"lastAccessed"`
	AccessCount int                    `json:"accessCount"`
	DecayRate   float64                `json:"decayRate"`
	Content     map[string]interface{} `json:"content,omitempty"`
}

// document is the top-level persisted memory file.
type document struct {
	Version    int                           `json:"version"`
	SavedAt    time.Time                     `json:"saved_at"`
	Config     Config                        `json:"config"`
	Signatures map[string]persistedSignature `json:"signatures"`
	Echoes     map[string][]*signature.Echo  `json:"echoes"`
}

// Save writes the full signature and echo set to path as JSON. The write
// goes through a temp file and rename so a crash never leaves a truncated
// document.
func (s *Store) Save(path string) error {
	s.mu.RLock()
	doc := document{
		Version:    DocumentVersion,
		SavedAt:    time.Now().UTC(),
		Config:     s.config,
		Signatures: make(map[string]persistedSignature, len(s.signatures)),
		Echoes:     make(map[string][]*signature.Echo, len(s.echoes)),
	}
	for id, sig := range s.signatures {
		doc.Signatures[id] = persistedSignature{
			ID:          sig.ID,
			Coherence:   sig.Coherence,
			PhaseVector: shared.CloneFloats(sig.PhaseVector),
			ContextHash: sig.ContextHash,
			Tier:        sig.Tier.Strength(),
			CreatedAt:   sig.CreatedAt,
			LastAccess:  sig.LastAccess,
			AccessCount: sig.AccessCount,
			DecayRate:   sig.DecayRate,
			Content:     shared.CloneMetadata(sig.Content),
		}
	}
	for id, list := range s.echoes {
		doc.Echoes[id] = append([]*signature.Echo(nil), list...)
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return shared.NewMemoryError("failed to serialize memory document", map[string]interface{}{
			"error": err.Error(),
		})
	}

	tmp := path + ".tmp"
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return shared.NewMemoryError("failed to create memory directory", map[string]interface{}{
				"path":  dir,
				"error": err.Error(),
			})
		}
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return shared.NewMemoryError("failed to write memory document", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
	}
	if err := os.Rename(tmp, path); err != nil {
		return shared.NewMemoryError("failed to finalize memory document", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
	}
	return nil
}

// Load replaces the store contents with the document at path and returns
// the number of signatures loaded. An absent or corrupt file is treated
// as a cold start: no error is returned and the store keeps whatever it
// already holds.
func (s *Store) Load(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.signatures = make(map[string]*signature.Signature, len(doc.Signatures))
	s.echoes = make(map[string][]*signature.Echo, len(doc.Echoes))
	s.order = s.order[:0]

	for id, p := range doc.Signatures {
		s.signatures[id] = &signature.Signature{
			ID:          p.ID,
			Coherence:   p.Coherence,
			PhaseVector: p.PhaseVector,
			ContextHash: p.ContextHash,
			Tier:        signature.TierFromStrength(p.Tier),
			CreatedAt:   p.CreatedAt,
			LastAccess:  p.LastAccess,
			AccessCount: p.AccessCount,
			DecayRate:   p.DecayRate,
			Content:     p.Content,
		}
		s.order = append(s.order, id)
	}
	sort.Slice(s.order, func(i, j int) bool {
		return s.signatures[s.order[i]].CreatedAt.Before(s.signatures[s.order[j]].CreatedAt)
	})

	for id, list := range doc.Echoes {
		if _, ok := s.signatures[id]; ok {
			s.echoes[id] = list
		}
	}

	return len(s.signatures), nil
}
