package retriever

import (
	"context"
	"fmt"

	"repologic/internal/domain"
)

// RetrieveByQuery returns the k segments nearest to the question. It needs
// a published index and reports domain.ErrNotFound otherwise.
func (r *HybridRetriever) RetrieveByQuery(ctx context.Context, repoID, question string, k int) ([]domain.ScoredSegment, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1, got %d", domain.ErrConfiguration, k)
	}
	if !r.index.Exists(repoID) {
		return nil, fmt.Errorf("vector index for %s: %w", repoID, domain.ErrNotFound)
	}

	vector, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := r.index.Query(repoID, vector, k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	r.logger.Debug("query retrieval", "repo", repoID, "k", k, "results", len(results))
	return results, nil
}
