package retriever

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"repologic/internal/domain"
	"repologic/internal/port"
)

// HybridRetriever combines exact line-range lookups from the chunk store with
// nearest-neighbour search over the vector index.
type HybridRetriever struct {
	chunks   port.ChunkStore
	index    port.VectorIndex
	embedder port.Embedder
	logger   *slog.Logger
}

func NewHybridRetriever(
	chunks port.ChunkStore,
	index port.VectorIndex,
	embedder port.Embedder,
	logger *slog.Logger,
) *HybridRetriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &HybridRetriever{
		chunks:   chunks,
		index:    index,
		embedder: embedder,
		logger:   logger,
	}
}

// RetrieveBySelection returns the segments overlapping the selection and up
// to extraK similar segments that are not among them. The first overlapping
// segment in file order anchors the similarity search. A repository without
// an index yields only the exact matches.
func (r *HybridRetriever) RetrieveBySelection(ctx context.Context, repoID, filePath string, startLine, endLine, extraK int) (domain.HybridResult, error) {
	exact, err := r.chunks.Overlapping(repoID, filePath, startLine, endLine)
	if err != nil {
		return domain.HybridResult{}, fmt.Errorf("overlap lookup failed: %w", err)
	}
	result := domain.HybridResult{
		Exact:   exact,
		Related: []domain.ScoredSegment{},
	}
	if result.Exact == nil {
		result.Exact = []domain.Segment{}
	}

	if len(exact) == 0 || extraK <= 0 {
		return result, nil
	}
	if !r.index.Exists(repoID) {
		r.logger.Debug("no vector index, returning exact matches only", "repo", repoID)
		return result, nil
	}

	vector, err := r.embedder.Embed(ctx, exact[0].Content)
	if err != nil {
		return domain.HybridResult{}, fmt.Errorf("failed to embed selection anchor: %w", err)
	}

	candidates, err := r.index.Query(repoID, vector, extraK+len(exact))
	if errors.Is(err, domain.ErrNotFound) {
		return result, nil
	}
	if err != nil {
		return domain.HybridResult{}, fmt.Errorf("vector search failed: %w", err)
	}

	selected := make(map[string]struct{}, len(exact))
	for _, seg := range exact {
		selected[seg.ID] = struct{}{}
	}
	for _, c := range candidates {
		if _, dup := selected[c.Segment.ID]; dup {
			continue
		}
		result.Related = append(result.Related, c)
		if len(result.Related) == extraK {
			break
		}
	}

	r.logger.Debug("selection retrieval",
		"repo", repoID, "file", filePath, "start", startLine, "end", endLine,
		"exact", len(result.Exact), "related", len(result.Related))
	return result, nil
}
