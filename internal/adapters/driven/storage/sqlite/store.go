// Package sqlite provides a local DocumentStore for offline use and
// development. Embeddings are stored as float32 little-endian BLOBs and
// similarity queries run a full cosine scan, which is fine at the corpus
// sizes this store is meant for.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
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
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/migratio-labs/ragserve/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/migratio-labs/ragserve/internal/core/domain"
	"github.com/migratio-labs/ragserve/internal/core/ports/driven"
	"github.com/migratio-labs/ragserve/internal/distance"
)

// Ensure Store implements the interface.
var _ driven.DocumentStore = (*Store)(nil)

// Store is a SQLite-backed document store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.ragserve/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".ragserve", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "documents.db")

	// WAL mode for better concurrency under parallel ingestion
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Insert stores a document. The unique index on content_hash makes the
// insert atomic with respect to deduplication.
func (s *Store) Insert(ctx context.Context, doc *domain.Document) (string, error) {
	id := uuid.New().String()

	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return "", fmt.Errorf("%w: marshal metadata: %w", domain.ErrStoreWrite, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, content, metadata, content_hash, embedding, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, doc.Content, string(metadata), doc.ContentHash,
		encodeEmbedding(doc.Embedding), time.Now().UTC(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return "", fmt.Errorf("%w: content hash %s", domain.ErrAlreadyExists, doc.ContentHash)
		}
		return "", fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}
	return id, nil
}

// Query scans all documents and returns those with cosine similarity at
// least threshold, ordered descending, at most limit results.
func (s *Store) Query(
	ctx context.Context, embedding []float32, threshold float64, limit int,
) ([]domain.SimilarityResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, metadata, embedding, created_at FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreQuery, err)
	}
	defer rows.Close()

	var results []domain.SimilarityResult
	for rows.Next() {
		var (
			doc      domain.Document
			metadata sql.NullString
			blob     []byte
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &metadata, &blob, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan row: %w", domain.ErrStoreQuery, err)
		}

		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &doc.Metadata); err != nil {
				return nil, fmt.Errorf("%w: unmarshal metadata: %w", domain.ErrStoreQuery, err)
			}
		}

		doc.Embedding = decodeEmbedding(blob)
		score := distance.Cosine(embedding, doc.Embedding)
		if score < threshold {
			continue
		}
		results = append(results, domain.SimilarityResult{Document: doc, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreQuery, err)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// ExistsByContentHash checks for a document with the given hash.
func (s *Store) ExistsByContentHash(ctx context.Context, hash string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM documents WHERE content_hash = ? LIMIT 1`, hash).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrStoreQuery, err)
	}
	return true, nil
}

// DeleteByContentHash removes all documents with the given hash.
func (s *Store) DeleteByContentHash(ctx context.Context, hash string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE content_hash = ?`, hash)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}
	return int(affected), nil
}

// Ping validates the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
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
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}
		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}

// encodeEmbedding serialises a vector as float32 little-endian bytes.
func encodeEmbedding(embedding []float32) []byte {
	buf := make([]byte, 4*len(embedding))
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeEmbedding deserialises float32 little-endian bytes.
func decodeEmbedding(buf []byte) []float32 {
	embedding := make([]float32, len(buf)/4)
	for i := range embedding {
		embedding[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return embedding
}
