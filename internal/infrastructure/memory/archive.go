package memory

import (
	"database/sql"
	"encoding/json"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mrhavens/becomingone/internal/domain/signature"
	"github.com/mrhavens/becomingone/internal/shared"
)

// Archive is a durable, append-mostly signature log in SQLite. It exists
// alongside the JSON memory document for offline queries over the full
// encode history; the Store never reads from it on the hot path. When the
// database cannot be opened the archive degrades to in-memory storage.
type Archive struct {
	mu          sync.RWMutex
	dbPath      string
	db          *sql.DB
	rows        map[string]archiveRow // in-memory fallback
	initialized bool
	useInMemory bool
}

type archiveRow struct {
	ID          string
	Coherence   float64
	Tier        string
	ContextHash string
	CreatedAt   int64
	PhaseVector []float64
}

// ArchiveOption configures an Archive.
type ArchiveOption func(*Archive)

// WithInMemoryArchive forces in-memory storage, used in tests.
func WithInMemoryArchive() ArchiveOption {
	return func(a *Archive) { a.useInMemory = true }
}

// NewArchive creates an archive backed by the SQLite file at dbPath.
func NewArchive(dbPath string, opts ...ArchiveOption) *Archive {
	a := &Archive{
		dbPath: dbPath,
		rows:   make(map[string]archiveRow),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Initialize opens the database and creates the schema. Open failures
// fall back to in-memory storage rather than erroring.
func (a *Archive) Initialize() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.initialized {
		return nil
	}

	if a.useInMemory || a.dbPath == "" || a.dbPath == ":memory:" {
		a.useInMemory = true
		a.initialized = true
		return nil
	}

	db, err := sql.Open("sqlite", a.dbPath)
	if err != nil {
		a.useInMemory = true
		a.initialized = true
		return nil
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS signatures (
			id TEXT PRIMARY KEY,
			coherence REAL NOT NULL,
			tier TEXT NOT NULL,
			context_hash TEXT,
			created_at INTEGER NOT NULL,
			phase_vector TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_signatures_tier ON signatures(tier);
		CREATE INDEX IF NOT EXISTS idx_signatures_created_at ON signatures(created_at);
	`)
	if err != nil {
		db.Close()
		a.useInMemory = true
		a.initialized = true
		return nil
	}

	a.db = db
	a.initialized = true
	return nil
}

// Close closes the database connection.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.db != nil {
		err := a.db.Close()
		a.db = nil
		return err
	}
	a.rows = make(map[string]archiveRow)
	a.initialized = false
	return nil
}

// InMemory reports whether the archive degraded to in-memory storage.
func (a *Archive) InMemory() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.useInMemory
}

// Put appends a signature to the archive.
func (a *Archive) Put(sig *signature.Signature) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	row := archiveRow{
		ID:          sig.ID,
		Coherence:   sig.Coherence,
		Tier:        sig.Tier.String(),
		ContextHash: sig.ContextHash,
		CreatedAt:   sig.CreatedAt.UnixMilli(),
		PhaseVector: shared.CloneFloats(sig.PhaseVector),
	}

	if a.useInMemory {
		a.rows[row.ID] = row
		return nil
	}

	vectorJSON, err := json.Marshal(row.PhaseVector)
	if err != nil {
		vectorJSON = []byte("[]")
	}

	_, err = a.db.Exec(`
		INSERT OR REPLACE INTO signatures (id, coherence, tier, context_hash, created_at, phase_vector)
		VALUES (?, ?, ?, ?, ?, ?)
	`, row.ID, row.Coherence, row.Tier, row.ContextHash, row.CreatedAt, string(vectorJSON))
	if err != nil {
		return shared.NewMemoryError("failed to archive signature", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return nil
}

// ArchiveQuery filters archive lookups.
type ArchiveQuery struct {
	// Tier restricts results to one tier name when non-empty.
	Tier string
	// Since/Until bound CreatedAt when non-zero.
	Since time.Time
	Until time.Time
	// Limit bounds the result count when positive.
	Limit int
}

// ArchivedSignature is one archive query result.
type ArchivedSignature struct {
	ID          string    `json:"id"`
	Coherence   float64   `json:"coherence"`
	Tier        string    `json:"tier"`
	ContextHash string    `json:"contextHash"`
	CreatedAt   time.Time `json:"createdAt"`
	PhaseVector []float64 `json:"phaseVector"`
}

// Query returns archived signatures matching the filters, newest first.
func (a *Archive) Query(query ArchiveQuery) ([]ArchivedSignature, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.useInMemory {
		return a.queryInMemory(query), nil
	}
	return a.querySQL(query)
}

func (a *Archive) queryInMemory(query ArchiveQuery) []ArchivedSignature {
	results := make([]ArchivedSignature, 0)
	for _, row := range a.rows {
		if !matchesQuery(row, query) {
			continue
		}
		results = append(results, rowToArchived(row))
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	if query.Limit > 0 && len(results) > query.Limit {
		results = results[:query.Limit]
	}
	return results
}

func matchesQuery(row archiveRow, query ArchiveQuery) bool {
	if query.Tier != "" && row.Tier != query.Tier {
		return false
	}
	if !query.Since.IsZero() && row.CreatedAt < query.Since.UnixMilli() {
		return false
	}
	if !query.Until.IsZero() && row.CreatedAt > query.Until.UnixMilli() {
		return false
	}
	return true
}

func rowToArchived(row archiveRow) ArchivedSignature {
	return ArchivedSignature{
		ID:          row.ID,
		Coherence:   row.Coherence,
		Tier:        row.Tier,
		ContextHash: row.ContextHash,
		CreatedAt:   time.UnixMilli(row.CreatedAt).UTC(),
		PhaseVector: row.PhaseVector,
	}
}

func (a *Archive) querySQL(query ArchiveQuery) ([]ArchivedSignature, error) {
	sqlQuery := "SELECT id, coherence, tier, context_hash, created_at, phase_vector FROM signatures WHERE 1=1"
	args := make([]interface{}, 0)

	if query.Tier != "" {
		sqlQuery += " AND tier = ?"
		args = append(args, query.Tier)
	}
	if !query.Since.IsZero() {
		sqlQuery += " AND created_at >= ?"
		args = append(args, query.Since.UnixMilli())
	}
	if !query.Until.IsZero() {
		sqlQuery += " AND created_at <= ?"
		args = append(args, query.Until.UnixMilli())
	}

	sqlQuery += " ORDER BY created_at DESC"
	if query.Limit > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, query.Limit)
	}

	rows, err := a.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, shared.NewMemoryError("failed to query archive", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer rows.Close()

	results := make([]ArchivedSignature, 0)
	for rows.Next() {
		var row archiveRow
		var vectorJSON string
		if err := rows.Scan(&row.ID, &row.Coherence, &row.Tier, &row.ContextHash, &row.CreatedAt, &vectorJSON); err != nil {
			continue
		}
		if vectorJSON != "" {
			json.Unmarshal([]byte(vectorJSON), &row.PhaseVector)
		}
		results = append(results, rowToArchived(row))
	}
	return results, nil
}

// Count returns the number of archived signatures.
func (a *Archive) Count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.useInMemory {
		return len(a.rows)
	}
	var count int
	a.db.QueryRow("SELECT COUNT(*) FROM signatures").Scan(&count)
	return count
}
