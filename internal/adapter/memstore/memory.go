package memstore

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"repologic/internal/domain"
)

// MemoryStore keeps segment sets and vector indexes in process memory.
// It satisfies both port.ChunkStore and port.VectorIndex and is used for
// throwaway runs and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	segments map[string][]domain.Segment
	files    map[string]map[string][]int
	indexes  map[string]*memIndex
}

type memIndex struct {
	stats    domain.IndexStats
	segments []domain.Segment
	vectors  [][]float32
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		segments: make(map[string][]domain.Segment),
		files:    make(map[string]map[string][]int),
		indexes:  make(map[string]*memIndex),
	}
}

func (s *MemoryStore) Save(repoID string, segments []domain.Segment) error {
	copied := make([]domain.Segment, len(segments))
	copy(copied, segments)

	files := make(map[string][]int)
	for pos, seg := range copied {
		files[seg.FilePath] = append(files[seg.FilePath], pos)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments[repoID] = copied
	s.files[repoID] = files
	return nil
}

func (s *MemoryStore) Has(repoID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.segments[repoID]
	return ok, nil
}

func (s *MemoryStore) Load(repoID string) ([]domain.Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	segments, ok := s.segments[repoID]
	if !ok {
		return nil, fmt.Errorf("segments for %s: %w", repoID, domain.ErrNotFound)
	}
	out := make([]domain.Segment, len(segments))
	copy(out, segments)
	return out, nil
}

func (s *MemoryStore) Overlapping(repoID, filePath string, startLine, endLine int) ([]domain.Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []domain.Segment
	for _, pos := range s.files[repoID][filePath] {
		seg := s.segments[repoID][pos]
		if seg.Overlaps(startLine, endLine) {
			matches = append(matches, seg)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].StartLine < matches[j].StartLine
	})
	return matches, nil
}

func (s *MemoryStore) Build(repoID string, segments []domain.Segment, vectors [][]float32, model string) error {
	if len(segments) != len(vectors) {
		return fmt.Errorf("%w: %d segments but %d vectors", domain.ErrDimensionMismatch, len(segments), len(vectors))
	}
	dimension := 0
	if len(vectors) > 0 {
		dimension = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != dimension || dimension == 0 {
			return fmt.Errorf("%w: vector %d has dimension %d, expected %d", domain.ErrDimensionMismatch, i, len(v), dimension)
		}
	}

	idx := &memIndex{
		stats: domain.IndexStats{
			RepoID:    repoID,
			Count:     len(segments),
			Dimension: dimension,
			Model:     model,
			BuiltAt:   time.Now().UTC(),
		},
		segments: make([]domain.Segment, len(segments)),
		vectors:  make([][]float32, len(vectors)),
	}
	copy(idx.segments, segments)
	for i, v := range vectors {
		idx.vectors[i] = append([]float32(nil), v...)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexes[repoID] = idx
	return nil
}

func (s *MemoryStore) Exists(repoID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.indexes[repoID]
	return ok
}

func (s *MemoryStore) Stats(repoID string) (*domain.IndexStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexes[repoID]
	if !ok {
		return nil, nil
	}
	stats := idx.stats
	return &stats, nil
}

func (s *MemoryStore) Query(repoID string, vector []float32, k int) ([]domain.ScoredSegment, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1, got %d", domain.ErrConfiguration, k)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexes[repoID]
	if !ok {
		return nil, fmt.Errorf("vector index for %s: %w", repoID, domain.ErrNotFound)
	}
	if idx.stats.Count == 0 {
		return []domain.ScoredSegment{}, nil
	}
	if len(vector) != idx.stats.Dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d", domain.ErrDimensionMismatch, len(vector), idx.stats.Dimension)
	}

	results := make([]domain.ScoredSegment, len(idx.segments))
	for i, v := range idx.vectors {
		var sum float64
		for j := range v {
			d := float64(vector[j]) - float64(v[j])
			sum += d * d
		}
		results[i] = domain.ScoredSegment{Segment: idx.segments[i], Distance: sum}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

func (s *MemoryStore) Close() error {
	return nil
}
