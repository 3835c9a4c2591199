package port

import "repologic/internal/domain"

// ChunkStore persists the segment set of each repository.
type ChunkStore interface {
	// Save replaces the whole segment set for repoID.
	Save(repoID string, segments []domain.Segment) error

	// Has reports whether a segment set exists for repoID.
	Has(repoID string) (bool, error)

	// Load returns the segment set in saved order.
	Load(repoID string) ([]domain.Segment, error)

	// Overlapping returns the segments of filePath intersecting [startLine, endLine],
	// ordered by start line. An unknown repo or file yields an empty result.
	Overlapping(repoID, filePath string, startLine, endLine int) ([]domain.Segment, error)
}
