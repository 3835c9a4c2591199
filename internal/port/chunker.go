package port

import "repologic/internal/domain"

// Segmenter splits file content into ordered, line-numbered segments.
type Segmenter interface {
	Segment(doc domain.Document, content string) ([]domain.Segment, error)
}
