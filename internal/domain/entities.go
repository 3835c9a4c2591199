package domain

import "time"

// Document identifies one source file handed to the segmenter.
// Lang and Ext are classification metadata supplied by the caller.
type Document struct {
	RepoID string
	Path   string
	Lang   string
	Ext    string
}

// Segment is a contiguous, line-numbered slice of a source file.
type Segment struct {
	ID        string `json:"segment_id"`
	RepoID    string `json:"repo_id"`
	FilePath  string `json:"file_path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Content   string `json:"content"`
	Language  string `json:"language"`
	Extension string `json:"extension"`
}

// Overlaps reports whether the segment intersects the inclusive line range [start, end].
func (s Segment) Overlaps(start, end int) bool {
	return s.StartLine <= end && s.EndLine >= start
}

// ScoredSegment is a similarity match. Lower distance means more similar.
type ScoredSegment struct {
	Segment  Segment `json:"segment"`
	Distance float64 `json:"distance"`
}

// HybridResult holds exact line-range matches and the similarity matches
// that are not already among them.
type HybridResult struct {
	Exact   []Segment       `json:"exact"`
	Related []ScoredSegment `json:"related"`
}

// IndexStats is the header record of a persisted vector index.
type IndexStats struct {
	RepoID    string    `json:"repo_id"`
	Count     int       `json:"count"`
	Dimension int       `json:"dimension"`
	Model     string    `json:"model,omitempty"`
	BuiltAt   time.Time `json:"built_at"`
}

// Readiness is the retrieval readiness state of a repository.
type Readiness int

const (
	Unseen Readiness = iota
	Segmented
	Indexed
)

func (r Readiness) String() string {
	switch r {
	case Segmented:
		return "segmented"
	case Indexed:
		return "indexed"
	default:
		return "unseen"
	}
}
