package usecase

import (
	"fmt"

	"repologic/internal/domain"
	"repologic/internal/port"
)

type StatusUseCase struct {
	chunks port.ChunkStore
	index  port.VectorIndex
}

func NewStatusUseCase(chunks port.ChunkStore, index port.VectorIndex) *StatusUseCase {
	return &StatusUseCase{chunks: chunks, index: index}
}

// RepoStatus reports how far a repository has progressed.
type RepoStatus struct {
	RepoID    string
	Readiness domain.Readiness
	Segments  int
	Index     *domain.IndexStats

	// Stale is set when an index exists but does not match the stored
	// segment set, e.g. after chunk was re-run without embed.
	Stale bool
}

// Status reports Indexed only when a segment set is stored and the index
// holds one vector per segment.
func (u *StatusUseCase) Status(repoID string) (*RepoStatus, error) {
	status := &RepoStatus{RepoID: repoID, Readiness: domain.Unseen}

	has, err := u.chunks.Has(repoID)
	if err != nil {
		return nil, fmt.Errorf("failed to check segments: %w", err)
	}
	if has {
		segments, err := u.chunks.Load(repoID)
		if err != nil {
			return nil, fmt.Errorf("failed to load segments: %w", err)
		}
		status.Readiness = domain.Segmented
		status.Segments = len(segments)
	}

	if u.index.Exists(repoID) {
		stats, err := u.index.Stats(repoID)
		if err != nil {
			return nil, fmt.Errorf("failed to read index header: %w", err)
		}
		status.Index = stats
		switch {
		case stats == nil:
		case has && stats.Count == status.Segments:
			status.Readiness = domain.Indexed
		default:
			status.Stale = true
		}
	}
	return status, nil
}
