package adapters

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/mrhavens/becomingone/internal/shared"
)

// Sink receives post-synchronization results. Implementations own any
// device or network I/O; the engine never blocks on them directly.
type Sink interface {
	Name() string
	Write(record shared.SyncRecord) error
}

// CaptureSink retains every record in memory, used by tests and the
// simulate command.
type CaptureSink struct {
	mu      sync.Mutex
	records []shared.SyncRecord
}

// NewCaptureSink creates an empty capture sink.
func NewCaptureSink() *CaptureSink {
	return &CaptureSink{}
}

// Name returns the sink name.
func (s *CaptureSink) Name() string { return "capture" }

// Write appends the record.
func (s *CaptureSink) Write(record shared.SyncRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// Records returns a copy of the captured records.
func (s *CaptureSink) Records() []shared.SyncRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]shared.SyncRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of captured records.
func (s *CaptureSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// StreamSink writes each record as a JSON line to a writer.
type StreamSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewStreamSink creates a sink writing JSON lines to w.
func NewStreamSink(w io.Writer) *StreamSink {
	return &StreamSink{enc: json.NewEncoder(w)}
}

// Name returns the sink name.
func (s *StreamSink) Name() string { return "stream" }

// Write encodes the record as one JSON line.
func (s *StreamSink) Write(record shared.SyncRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(record)
}
