package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"repologic/internal/domain"
)

// LineChunker cuts files into fixed-size line windows that repeat the last
// overlap lines of each window at the start of the next one.
type LineChunker struct {
	chunkSize int
	overlap   int
	maxChars  int
}

// NewLineChunker creates a LineChunker. maxChars caps the characters of a
// window (0 disables the cap); a single line longer than the cap still
// becomes its own segment.
func NewLineChunker(chunkSize, overlap, maxChars int) (*LineChunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrConfiguration, chunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap must not be negative, got %d", domain.ErrConfiguration, overlap)
	}
	if chunkSize-overlap <= 0 {
		return nil, fmt.Errorf("%w: overlap %d leaves no stride for chunk size %d", domain.ErrConfiguration, overlap, chunkSize)
	}
	if maxChars < 0 {
		return nil, fmt.Errorf("%w: max segment chars must not be negative, got %d", domain.ErrConfiguration, maxChars)
	}
	return &LineChunker{
		chunkSize: chunkSize,
		overlap:   overlap,
		maxChars:  maxChars,
	}, nil
}

func (c *LineChunker) Segment(doc domain.Document, content string) ([]domain.Segment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	lines := splitLines(content)
	path := normalizePath(doc.Path)

	var segments []domain.Segment
	startLine := 0

	for startLine < len(lines) {
		endLine := c.windowEnd(lines, startLine)

		segments = append(segments, domain.Segment{
			ID:        generateSegmentID(path, startLine+1, len(segments)),
			RepoID:    doc.RepoID,
			FilePath:  path,
			StartLine: startLine + 1,
			EndLine:   endLine,
			Content:   strings.Join(lines[startLine:endLine], "\n"),
			Language:  doc.Lang,
			Extension: doc.Ext,
		})

		if endLine == len(lines) {
			break
		}

		newStart := endLine - c.overlap
		if newStart <= startLine {
			newStart = startLine + 1
		}
		startLine = newStart
	}

	return segments, nil
}

// windowEnd returns the exclusive end of the window starting at start.
func (c *LineChunker) windowEnd(lines []string, start int) int {
	end := start + c.chunkSize
	if end > len(lines) {
		end = len(lines)
	}
	if c.maxChars == 0 {
		return end
	}

	chars := 0
	for i := start; i < end; i++ {
		lineChars := len(lines[i]) + 1
		if i > start && chars+lineChars > c.maxChars {
			return i
		}
		chars += lineChars
	}
	return end
}

// splitLines splits on "\n". A final newline terminates the last line
// rather than opening an empty one.
func splitLines(content string) []string {
	lines := strings.Split(content, "\n")
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func normalizePath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	return strings.TrimPrefix(path, "./")
}

func generateSegmentID(path string, startLine, seq int) string {
	data := fmt.Sprintf("%s:%d:%d", path, startLine, seq)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}
