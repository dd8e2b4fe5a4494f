package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/migratio-labs/ragserve/internal/chunker"
	"github.com/migratio-labs/ragserve/internal/core/domain"
	"github.com/migratio-labs/ragserve/internal/core/ports/driven"
	"github.com/migratio-labs/ragserve/internal/core/ports/driving"
	"github.com/migratio-labs/ragserve/internal/logger"
	"github.com/migratio-labs/ragserve/internal/normalisers"
)

// Ensure IngestService implements the interface.
var _ driving.Ingestor = (*IngestService)(nil)

// DefaultIngestWorkers bounds concurrent chunk embedding per file.
const DefaultIngestWorkers = 4

// IngestService reads source documents, chunks them, embeds each chunk
// and writes deduplicated documents to the store.
//
// Per-chunk pipeline: normalise, chunk, embed, dedup-check, store. A
// failing chunk is recorded and skipped; sibling chunks continue.
// Re-running over an already-ingested corpus inserts nothing.
type IngestService struct {
	store    driven.DocumentStore
	embedder driven.EmbeddingService
	splitter *chunker.Splitter
	workers  int

	// hashLocks serialises the dedup check-then-insert per content hash
	// so concurrent ingestion of identical chunks cannot double-insert.
	hashLocks keyedMutex
}

// IngestOption configures the service.
type IngestOption func(*IngestService)

// WithWorkers sets the number of concurrent chunk embedders.
func WithWorkers(n int) IngestOption {
	return func(s *IngestService) {
		if n > 0 {
			s.workers = n
		}
	}
}

// NewIngestService creates an ingestion pipeline.
func NewIngestService(
	store driven.DocumentStore,
	embedder driven.EmbeddingService,
	splitter *chunker.Splitter,
	opts ...IngestOption,
) *IngestService {
	s := &IngestService{
		store:    store,
		embedder: embedder,
		splitter: splitter,
		workers:  DefaultIngestWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IngestPath ingests a file, or every ingestible file under a directory.
func (s *IngestService) IngestPath(ctx context.Context, path string) (*domain.IngestReport, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	if !info.IsDir() {
		return s.IngestFile(ctx, path)
	}

	logger.Section("Ingestion")
	logger.Info("Ingesting directory %s", path)

	report := &domain.IngestReport{}
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if normalisers.ForPath(p) == nil {
			logger.Debug("Skipping unsupported file %s", p)
			return nil
		}

		fileReport, fileErr := s.IngestFile(ctx, p)
		if fileErr != nil {
			// File-level failures (unreadable, embedder down) are
			// recorded; the walk continues unless cancelled.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("Failed to ingest %s: %v", p, fileErr)
			report.Failures = append(report.Failures, domain.ChunkFailure{File: p, ChunkIndex: -1, Err: fileErr})
			report.ChunksFailed++
			return nil
		}

		report.FilesProcessed += fileReport.FilesProcessed
		report.ChunksStored += fileReport.ChunksStored
		report.ChunksSkipped += fileReport.ChunksSkipped
		report.ChunksFailed += fileReport.ChunksFailed
		report.Failures = append(report.Failures, fileReport.Failures...)
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("walk %s: %w", path, err)
	}

	logger.Info("Ingestion complete: %d files, %d stored, %d skipped, %d failed",
		report.FilesProcessed, report.ChunksStored, report.ChunksSkipped, report.ChunksFailed)
	return report, nil
}

// IngestFile ingests a single file.
func (s *IngestService) IngestFile(ctx context.Context, path string) (*domain.IngestReport, error) {
	if s.store == nil {
		return nil, domain.ErrStoreUnavailable
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	normaliser := normalisers.ForPath(path)
	if normaliser == nil {
		return nil, fmt.Errorf("%w: unsupported file type %s", domain.ErrInvalidInput, path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	result, err := normaliser.Normalise(ctx, path, content)
	if err != nil {
		return nil, fmt.Errorf("normalise %s: %w", path, err)
	}

	chunks := s.splitter.Split(result.Content)
	logger.Debug("Split %s into %d chunks", path, len(chunks))

	report := &domain.IngestReport{FilesProcessed: 1}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, chunk := range chunks {
		g.Go(func() error {
			outcome, chunkErr := s.ingestChunk(gctx, path, result, chunk, len(chunks))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case chunkErr != nil:
				report.ChunksFailed++
				report.Failures = append(report.Failures, domain.ChunkFailure{
					File:       path,
					ChunkIndex: chunk.Index,
					Err:        chunkErr,
				})
			case outcome == chunkSkipped:
				report.ChunksSkipped++
			default:
				report.ChunksStored++
			}
			// Chunk failures never abort sibling chunks; only parent
			// cancellation stops the group.
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}
	return report, nil
}

type chunkOutcome int

const (
	chunkStored chunkOutcome = iota
	chunkSkipped
)

// ingestChunk embeds one chunk and stores it unless a document with the
// same content hash already exists.
func (s *IngestService) ingestChunk(
	ctx context.Context,
	path string,
	norm *driven.NormaliseResult,
	chunk domain.Chunk,
	totalChunks int,
) (chunkOutcome, error) {
	embedding, err := s.embedder.Embed(ctx, chunk.Content)
	if err != nil {
		return chunkStored, fmt.Errorf("embed chunk %d: %w", chunk.Index, err)
	}
	if len(embedding) != s.embedder.Dimensions() {
		return chunkStored, fmt.Errorf("embed chunk %d: got %d dimensions, want %d",
			chunk.Index, len(embedding), s.embedder.Dimensions())
	}

	hash := domain.ContentHash(chunk.Content)

	// Critical section per hash: check-then-insert must not interleave
	// for identical content.
	unlock := s.hashLocks.lock(hash)
	defer unlock()

	exists, err := s.store.ExistsByContentHash(ctx, hash)
	if err != nil {
		return chunkStored, fmt.Errorf("dedup check chunk %d: %w", chunk.Index, err)
	}
	if exists {
		logger.Debug("Skipping duplicate chunk %d of %s", chunk.Index, path)
		return chunkSkipped, nil
	}

	metadata := map[string]any{
		"title":        norm.Title,
		"filename":     filepath.Base(path),
		"chunk_index":  chunk.Index,
		"total_chunks": totalChunks,
		"processed_at": time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range norm.Metadata {
		metadata[k] = v
	}

	doc := &domain.Document{
		Content:     chunk.Content,
		Metadata:    metadata,
		Embedding:   embedding,
		ContentHash: hash,
	}

	// The insert is dedup-guarded, so retrying it is safe.
	err = withRetry(ctx, defaultMaxAttempts, defaultBaseDelay, func() error {
		_, insertErr := s.store.Insert(ctx, doc)
		return insertErr
	})
	if err != nil {
		// A store-level unique constraint can still fire when another
		// process ingested the same content; treat it as a skip.
		if errors.Is(err, domain.ErrAlreadyExists) {
			return chunkSkipped, nil
		}
		return chunkStored, fmt.Errorf("store chunk %d: %w", chunk.Index, err)
	}
	return chunkStored, nil
}

// keyedMutex provides one mutex per key. Entries are reference counted
// and removed once the last holder unlocks, so the map stays bounded by
// in-flight chunks rather than growing with every hash seen over the
// lifetime of a long-running watch.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
