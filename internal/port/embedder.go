package port

import (
	"context"

	"repologic/internal/domain"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates the embedding of a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per input text, in input order,
	// or fails as a whole.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// VectorIndex stores one nearest-neighbour index per repository.
type VectorIndex interface {
	// Build persists a new index whose vector i belongs to segment i,
	// replacing any previous index for the repository.
	Build(repoID string, segments []domain.Segment, vectors [][]float32, model string) error

	// Exists reports whether a complete, consistent index is published.
	Exists(repoID string) bool

	// Query returns up to k segments nearest to vector, ascending by distance.
	Query(repoID string, vector []float32, k int) ([]domain.ScoredSegment, error)

	// Stats returns the index header, or nil when no index exists.
	Stats(repoID string) (*domain.IndexStats, error)
}
