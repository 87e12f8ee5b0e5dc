package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/repochat/internal/adapters/driven/storage/rank"
	"github.com/custodia-labs/repochat/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/repochat/internal/core/domain"
	"github.com/custodia-labs/repochat/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// DBFileName is the database file created inside the data directory.
const DBFileName = "vectors.db"

// VectorIndex stores vectors and payloads in a single SQLite file.
type VectorIndex struct {
	db   *sql.DB
	path string

	mu   sync.RWMutex
	spec *domain.IndexSpec
}

// NewVectorIndex opens (or creates) vectors.db in dataDir.
// If dataDir is empty, defaults to ~/.repochat/data.
func NewVectorIndex(dataDir string) (*VectorIndex, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".repochat", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("%w: creating data directory: %w", domain.ErrStoreUnavailable, err)
	}

	dbPath := filepath.Join(dataDir, DBFileName)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %w", domain.ErrStoreUnavailable, err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: enabling foreign keys: %w", domain.ErrStoreUnavailable, err)
	}

	v := &VectorIndex{db: db, path: dbPath}
	if err := v.migrate(migrations.Up); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: running migrations: %w", domain.ErrStoreUnavailable, err)
	}
	return v, nil
}

// Path returns the database file path.
func (v *VectorIndex) Path() string {
	return v.path
}

// Close closes the database connection.
func (v *VectorIndex) Close() error {
	return v.db.Close()
}

// migrate runs all pending migrations.
func (v *VectorIndex) migrate(fsys embed.FS) error {
	_, err := v.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := v.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
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
		// "001_vectors.up.sql" -> 1
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
		if _, err := v.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := v.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}

// EnsureIndex creates the index row if absent and checks an existing one.
func (v *VectorIndex) EnsureIndex(ctx context.Context, spec domain.IndexSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	_, err := v.db.ExecContext(ctx,
		"INSERT INTO indexes (name, dimension, metric) VALUES (?, ?, ?) ON CONFLICT(name) DO NOTHING",
		spec.Name, spec.Dimension, string(spec.Metric))
	if err != nil {
		return storeErr(ctx, "create index", err)
	}

	existing := domain.IndexSpec{Name: spec.Name}
	var metric string
	row := v.db.QueryRowContext(ctx, "SELECT dimension, metric FROM indexes WHERE name = ?", spec.Name)
	if err := row.Scan(&existing.Dimension, &metric); err != nil {
		return storeErr(ctx, "read index", err)
	}
	existing.Metric = domain.Metric(metric)

	if err := spec.Matches(existing); err != nil {
		return err
	}

	v.mu.Lock()
	v.spec = &spec
	v.mu.Unlock()
	return nil
}

func (v *VectorIndex) currentSpec() *domain.IndexSpec {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.spec
}

// Upsert writes all entries in one transaction; a failure leaves the namespace untouched.
func (v *VectorIndex) Upsert(ctx context.Context, namespace string, entries []domain.VectorEntry) error {
	spec := v.currentSpec()
	if spec == nil {
		return fmt.Errorf("%w: index not created", domain.ErrStoreUnavailable)
	}
	for _, e := range entries {
		if len(e.Vector) != spec.Dimension {
			return fmt.Errorf("%w: entry %s has dimension %d, index expects %d",
				domain.ErrConfiguration, e.ID, len(e.Vector), spec.Dimension)
		}
	}
	if len(entries) == 0 {
		return nil
	}

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr(ctx, "begin upsert", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (index_name, namespace, id, embedding, text, origin, position, language)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(index_name, namespace, id) DO UPDATE SET
			embedding = excluded.embedding,
			text = excluded.text,
			origin = excluded.origin,
			position = excluded.position,
			language = excluded.language,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return storeErr(ctx, "prepare upsert", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		_, err := stmt.ExecContext(ctx,
			spec.Name, namespace, e.ID, encodeVector(e.Vector),
			e.Payload.Text, e.Payload.Origin, e.Payload.Position, e.Payload.Language)
		if err != nil {
			return storeErr(ctx, "upsert "+e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr(ctx, "commit upsert", err)
	}
	return nil
}

// Query scans the namespace and ranks every row against vector.
func (v *VectorIndex) Query(
	ctx context.Context,
	namespace string,
	vector []float32,
	topK int,
	includePayload bool,
) ([]domain.VectorMatch, error) {
	spec := v.currentSpec()
	if spec == nil {
		return []domain.VectorMatch{}, nil
	}
	if len(vector) != spec.Dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, index expects %d",
			domain.ErrConfiguration, len(vector), spec.Dimension)
	}

	rows, err := v.db.QueryContext(ctx, `
		SELECT id, embedding, text, origin, position, language
		FROM vectors WHERE index_name = ? AND namespace = ?
	`, spec.Name, namespace)
	if err != nil {
		return nil, storeErr(ctx, "query", err)
	}
	defer rows.Close()

	var candidates []rank.Candidate
	for rows.Next() {
		var (
			c    rank.Candidate
			blob []byte
		)
		if err := rows.Scan(&c.ID, &blob, &c.Payload.Text, &c.Payload.Origin,
			&c.Payload.Position, &c.Payload.Language); err != nil {
			return nil, storeErr(ctx, "scan", err)
		}
		stored, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %s: %w", domain.ErrStoreUnavailable, c.ID, err)
		}
		if len(stored) != len(vector) {
			continue
		}
		c.Score = rank.Score(spec.Metric, vector, stored)
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(ctx, "iterate", err)
	}

	return rank.TopK(candidates, topK, includePayload), nil
}

// Stats counts the rows of the namespace.
func (v *VectorIndex) Stats(ctx context.Context, namespace string) (domain.IndexStats, error) {
	stats := domain.IndexStats{Namespace: namespace}
	spec := v.currentSpec()
	if spec == nil {
		return stats, nil
	}
	stats.Index = spec.Name
	stats.Dimension = spec.Dimension

	row := v.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM vectors WHERE index_name = ? AND namespace = ?", spec.Name, namespace)
	if err := row.Scan(&stats.Count); err != nil {
		return stats, storeErr(ctx, "count", err)
	}
	return stats, nil
}

// storeErr classifies a database failure, preferring the context error.
func storeErr(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: sqlite %s: %w", domain.ErrNotFound, op, err)
	}
	return fmt.Errorf("%w: sqlite %s: %w", domain.ErrStoreUnavailable, op, err)
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec, nil
}
