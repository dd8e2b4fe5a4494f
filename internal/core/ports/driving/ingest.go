package driving

import (
	"context"

	"github.com/migratio-labs/ragserve/internal/core/domain"
)

// Ingestor reads source documents, chunks and embeds them, and writes them
// to the document store. Re-running over the same corpus is idempotent.
type Ingestor interface {
	// IngestPath ingests a file or directory (recursively). Individual
	// chunk failures do not abort the run; they are collected in the
	// report.
	IngestPath(ctx context.Context, path string) (*domain.IngestReport, error)

	// IngestFile ingests a single file.
	IngestFile(ctx context.Context, path string) (*domain.IngestReport, error)
}
