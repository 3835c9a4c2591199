package port

import (
	"context"

	"repologic/internal/domain"
)

// Retriever answers selection-based and free-text retrieval queries.
type Retriever interface {
	RetrieveBySelection(ctx context.Context, repoID, filePath string, startLine, endLine, extraK int) (domain.HybridResult, error)

	RetrieveByQuery(ctx context.Context, repoID, question string, k int) ([]domain.ScoredSegment, error)
}
