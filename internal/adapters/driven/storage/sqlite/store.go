package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/medreport/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/medreport/internal/core/domain"
	"github.com/custodia-labs/medreport/internal/core/ports/driven"
)

// DBFile is the database file name inside the data directory.
const DBFile = "medreport.db"

// Store is the SQLite database shared by the vector index and report history.
type Store struct {
	db     *sql.DB
	path   string
	closed atomic.Bool
}

// DefaultDataDir returns ~/.medreport/data.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".medreport", "data"), nil
}

// NewStore opens (or creates) the database in dataDir and applies pending
// migrations. Failures wrap domain.ErrIndexUnavailable.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		dir, err := DefaultDataDir()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
		}
		dataDir = dir
	}

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: creating data directory: %w", domain.ErrIndexUnavailable, err)
	}

	dbPath := filepath.Join(dataDir, DBFile)

	// WAL lets searches proceed while a document is being re-indexed.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %w", domain.ErrIndexUnavailable, err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: running migrations: %w", domain.ErrIndexUnavailable, err)
	}
	return s, nil
}

// Close closes the database connection. Later calls fail with
// domain.ErrIndexUnavailable.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// VectorIndex returns a VectorIndex backed by this store.
func (s *Store) VectorIndex() driven.VectorIndex {
	return &vectorIndex{store: s}
}

// ReportStore returns a ReportStore backed by this store.
func (s *Store) ReportStore() driven.ReportStore {
	return &reportStore{store: s}
}

// migrate runs all pending migrations, recording each version as it is applied.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.applyMigration(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) applyMigration(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// ==================== Vector Index ====================

// vectorIndex implements driven.VectorIndex with brute-force cosine ranking.
type vectorIndex struct {
	store *Store
}

var _ driven.VectorIndex = (*vectorIndex)(nil)

// indexErr marks err as an index failure while keeping its chain intact.
func indexErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrIndexUnavailable, op, err)
}

func (v *vectorIndex) available() error {
	if v.store.closed.Load() {
		return fmt.Errorf("%w: store is closed", domain.ErrIndexUnavailable)
	}
	return nil
}

// Store replaces the document's records in a single transaction.
func (v *vectorIndex) Store(ctx context.Context, doc domain.Document, records []domain.EmbeddingRecord) error {
	if err := v.available(); err != nil {
		return err
	}
	if doc.ID == "" {
		return fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}
	dims, err := recordDimensions(doc.ID, records)
	if err != nil {
		return err
	}

	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return indexErr("beginning transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if dims > 0 {
		var existing int
		err := tx.QueryRowContext(ctx,
			"SELECT LENGTH(vector) / 4 FROM embeddings WHERE document_id <> ? LIMIT 1", doc.ID,
		).Scan(&existing)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return indexErr("checking dimensions", err)
		}
		if existing > 0 && existing != dims {
			return fmt.Errorf("%w: vector dimension %d does not match index dimension %d",
				domain.ErrInvalidInput, dims, existing)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, filename, format, content_hash, size_bytes, ingested_at, seq)
		VALUES (?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM documents))
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			format = excluded.format,
			content_hash = excluded.content_hash,
			size_bytes = excluded.size_bytes,
			ingested_at = excluded.ingested_at
	`, doc.ID, doc.Filename, string(doc.Format), doc.ContentHash, doc.SizeBytes, unixNano(doc.IngestedAt))
	if err != nil {
		return indexErr("saving document", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM embeddings WHERE document_id = ?", doc.ID); err != nil {
		return indexErr("clearing records", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO embeddings (chunk_id, document_id, position, content, vector, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return indexErr("preparing statement", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.ChunkID, doc.ID, r.Position, r.Content,
			float32SliceToBytes(r.Vector), unixNano(r.IndexedAt)); err != nil {
			return indexErr("saving record", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return indexErr("committing transaction", err)
	}
	return nil
}

// Search scores every record against query. Rows are read in document
// insertion order so RankHits can break ties by it.
func (v *vectorIndex) Search(ctx context.Context, query []float32, opts domain.SearchOptions) ([]domain.SearchHit, error) {
	if err := v.available(); err != nil {
		return nil, err
	}
	if opts.K <= 0 {
		return []domain.SearchHit{}, nil
	}
	if len(query) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", domain.ErrInvalidInput)
	}

	rows, err := v.store.db.QueryContext(ctx, `
		SELECT e.chunk_id, e.document_id, d.filename, e.position, e.content, e.vector, e.indexed_at
		FROM embeddings e
		JOIN documents d ON d.id = e.document_id
		WHERE e.document_id <> ?
		ORDER BY d.seq, e.position
	`, opts.ExcludeDocumentID)
	if err != nil {
		return nil, indexErr("querying records", err)
	}
	defer rows.Close()

	var hits []domain.SearchHit
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if len(rec.Vector) != len(query) {
			return nil, fmt.Errorf("%w: query dimension %d does not match index dimension %d",
				domain.ErrInvalidInput, len(query), len(rec.Vector))
		}
		hits = append(hits, domain.SearchHit{
			Record: rec,
			Score:  domain.CosineSimilarity(query, rec.Vector),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, indexErr("iterating records", err)
	}

	return domain.RankHits(hits, opts), nil
}

// Purge removes a document and, through the foreign key, its records.
func (v *vectorIndex) Purge(ctx context.Context, documentID string) error {
	if err := v.available(); err != nil {
		return err
	}
	if _, err := v.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", documentID); err != nil {
		return indexErr("purging document", err)
	}
	return nil
}

// Count returns the number of stored records.
func (v *vectorIndex) Count(ctx context.Context) (int, error) {
	if err := v.available(); err != nil {
		return 0, err
	}
	var n int
	if err := v.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embeddings").Scan(&n); err != nil {
		return 0, indexErr("counting records", err)
	}
	return n, nil
}

// Close closes the underlying store.
func (v *vectorIndex) Close() error {
	return v.store.Close()
}

// recordDimensions checks that records belong to documentID and share one
// vector size, which it returns.
func recordDimensions(documentID string, records []domain.EmbeddingRecord) (int, error) {
	dims := 0
	for i, r := range records {
		if r.DocumentID != "" && r.DocumentID != documentID {
			return 0, fmt.Errorf("%w: record %s belongs to document %s", domain.ErrInvalidInput, r.ChunkID, r.DocumentID)
		}
		if len(r.Vector) == 0 {
			return 0, fmt.Errorf("%w: record %s has no vector", domain.ErrInvalidInput, r.ChunkID)
		}
		if i == 0 {
			dims = len(r.Vector)
			continue
		}
		if len(r.Vector) != dims {
			return 0, fmt.Errorf("%w: record %s has %d dimensions, expected %d",
				domain.ErrInvalidInput, r.ChunkID, len(r.Vector), dims)
		}
	}
	return dims, nil
}

func scanRecord(rows *sql.Rows) (domain.EmbeddingRecord, error) {
	var (
		rec       domain.EmbeddingRecord
		blob      []byte
		indexedAt int64
	)
	if err := rows.Scan(&rec.ChunkID, &rec.DocumentID, &rec.Filename, &rec.Position,
		&rec.Content, &blob, &indexedAt); err != nil {
		return rec, indexErr("scanning record", err)
	}
	rec.Vector = bytesToFloat32Slice(blob)
	rec.IndexedAt = time.Unix(0, indexedAt).UTC()
	return rec, nil
}

// ==================== Report Store ====================

// reportStore implements driven.ReportStore.
type reportStore struct {
	store *Store
}

var _ driven.ReportStore = (*reportStore)(nil)

// Save stores a report, replacing any earlier report for the same document.
func (r *reportStore) Save(ctx context.Context, report *domain.Report) error {
	if report == nil || report.DocumentID == "" {
		return fmt.Errorf("%w: report requires a document id", domain.ErrInvalidInput)
	}
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshalling report: %w", err)
	}
	conditions, err := json.Marshal(report.ConditionLabels())
	if err != nil {
		return fmt.Errorf("marshalling conditions: %w", err)
	}

	_, err = r.store.db.ExecContext(ctx, `
		INSERT INTO reports (id, filename, created_at, conditions, body)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			created_at = excluded.created_at,
			conditions = excluded.conditions,
			body = excluded.body
	`, report.DocumentID, report.Filename, unixNano(report.Timestamp), string(conditions), string(body))
	if err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	return nil
}

// Get retrieves a report by document ID.
func (r *reportStore) Get(ctx context.Context, documentID string) (*domain.Report, error) {
	var body string
	err := r.store.db.QueryRowContext(ctx, "SELECT body FROM reports WHERE id = ?", documentID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying report: %w", err)
	}

	var report domain.Report
	if err := json.Unmarshal([]byte(body), &report); err != nil {
		return nil, fmt.Errorf("unmarshalling report: %w", err)
	}
	return &report, nil
}

// List returns report summaries, most recent first.
func (r *reportStore) List(ctx context.Context, limit int) ([]domain.ReportSummary, error) {
	query := "SELECT id, filename, created_at, conditions FROM reports ORDER BY created_at DESC, rowid DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying reports: %w", err)
	}
	defer rows.Close()

	summaries := []domain.ReportSummary{}
	for rows.Next() {
		var (
			s          domain.ReportSummary
			createdAt  int64
			conditions string
		)
		if err := rows.Scan(&s.DocumentID, &s.Filename, &createdAt, &conditions); err != nil {
			return nil, fmt.Errorf("scanning report: %w", err)
		}
		if err := json.Unmarshal([]byte(conditions), &s.Conditions); err != nil {
			return nil, fmt.Errorf("unmarshalling conditions: %w", err)
		}
		s.CreatedAt = time.Unix(0, createdAt).UTC()
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reports: %w", err)
	}
	return summaries, nil
}

// Delete removes a report. Missing reports are ignored.
func (r *reportStore) Delete(ctx context.Context, documentID string) error {
	if _, err := r.store.db.ExecContext(ctx, "DELETE FROM reports WHERE id = ?", documentID); err != nil {
		return fmt.Errorf("deleting report: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return time.Now().UnixNano()
	}
	return t.UnixNano()
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
