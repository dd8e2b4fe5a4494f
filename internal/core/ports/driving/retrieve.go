package driving

import (
	"context"

	"github.com/migratio-labs/ragserve/internal/core/domain"
)

// Retriever answers similarity queries over the document store.
type Retriever interface {
	// Retrieve embeds the query and returns the top matches above the
	// threshold, ordered by descending similarity. A store transport
	// failure is propagated (wrapped domain.ErrStoreQuery), never
	// silently converted into an empty result set.
	Retrieve(ctx context.Context, query string, opts domain.RetrievalOptions) ([]domain.SimilarityResult, error)
}
