package chunker

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"repologic/internal/domain"
)

func numberedLines(n int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i+1)
	}
	return strings.Join(lines, "\n")
}

func mustChunker(t *testing.T, size, overlap, maxChars int) *LineChunker {
	t.Helper()
	c, err := NewLineChunker(size, overlap, maxChars)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestLineChunkerScenario(t *testing.T) {
	chunker := mustChunker(t, 4, 1, 0)
	doc := domain.Document{RepoID: "repo", Path: "src/main.go", Lang: "Go", Ext: ".go"}

	segments, err := chunker.Segment(doc, numberedLines(10))
	if err != nil {
		t.Fatal(err)
	}

	want := [][2]int{{1, 4}, {4, 7}, {7, 10}}
	if len(segments) != len(want) {
		t.Fatalf("expected %d segments, got %d", len(want), len(segments))
	}
	for i, seg := range segments {
		if seg.StartLine != want[i][0] || seg.EndLine != want[i][1] {
			t.Errorf("segment %d: expected %d-%d, got %d-%d", i, want[i][0], want[i][1], seg.StartLine, seg.EndLine)
		}
		if seg.RepoID != "repo" || seg.FilePath != "src/main.go" {
			t.Errorf("segment %d: unexpected owner %s/%s", i, seg.RepoID, seg.FilePath)
		}
		if seg.Language != "Go" || seg.Extension != ".go" {
			t.Errorf("segment %d: classification not carried through", i)
		}
	}

	if segments[1].Content != "line 4\nline 5\nline 6\nline 7" {
		t.Errorf("unexpected content for second segment: %q", segments[1].Content)
	}
}

func TestLineChunkerCoverage(t *testing.T) {
	for size := 1; size <= 7; size++ {
		for overlap := 0; overlap < size; overlap++ {
			for _, n := range []int{1, 2, 5, 13, 40} {
				chunker := mustChunker(t, size, overlap, 0)
				segments, err := chunker.Segment(domain.Document{Path: "f.txt"}, numberedLines(n))
				if err != nil {
					t.Fatal(err)
				}

				covered := make([]bool, n+1)
				for _, seg := range segments {
					if seg.StartLine < 1 || seg.EndLine > n || seg.StartLine > seg.EndLine {
						t.Fatalf("size=%d overlap=%d n=%d: bad range %d-%d", size, overlap, n, seg.StartLine, seg.EndLine)
					}
					for l := seg.StartLine; l <= seg.EndLine; l++ {
						covered[l] = true
					}
				}
				for l := 1; l <= n; l++ {
					if !covered[l] {
						t.Errorf("size=%d overlap=%d n=%d: line %d not covered", size, overlap, n, l)
					}
				}
			}
		}
	}
}

func TestLineChunkerOverlap(t *testing.T) {
	chunker := mustChunker(t, 5, 2, 0)

	segments, err := chunker.Segment(domain.Document{Path: "f.txt"}, numberedLines(20))
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < len(segments)-1; i++ {
		current := segments[i]
		next := segments[i+1]
		if next.StartLine != current.EndLine-1 {
			t.Errorf("segment %d ends at %d but segment %d starts at %d", i, current.EndLine, i+1, next.StartLine)
		}
	}
}

func TestLineChunkerDeterministic(t *testing.T) {
	chunker := mustChunker(t, 6, 2, 0)
	doc := domain.Document{RepoID: "repo", Path: "pkg/a.go"}
	content := numberedLines(31)

	first, err := chunker.Segment(doc, content)
	if err != nil {
		t.Fatal(err)
	}
	second, err := chunker.Segment(doc, content)
	if err != nil {
		t.Fatal(err)
	}

	if len(first) != len(second) {
		t.Fatalf("segment counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("segment %d differs between runs", i)
		}
	}
}

func TestLineChunkerEmptyContent(t *testing.T) {
	chunker := mustChunker(t, 50, 10, 0)

	for _, content := range []string{"", "   ", "\n\n\t\n"} {
		segments, err := chunker.Segment(domain.Document{Path: "empty.go"}, content)
		if err != nil {
			t.Fatal(err)
		}
		if len(segments) != 0 {
			t.Errorf("expected 0 segments for %q, got %d", content, len(segments))
		}
	}
}

func TestLineChunkerSingleLine(t *testing.T) {
	chunker := mustChunker(t, 50, 10, 0)

	content := "Just a single line of code\n"
	segments, err := chunker.Segment(domain.Document{Path: "single.go"}, content)
	if err != nil {
		t.Fatal(err)
	}

	if len(segments) != 1 {
		t.Fatalf("expected 1 segment for single line, got %d", len(segments))
	}
	if segments[0].Content != "Just a single line of code" {
		t.Errorf("unexpected content %q", segments[0].Content)
	}
	if segments[0].StartLine != 1 || segments[0].EndLine != 1 {
		t.Errorf("expected lines 1-1, got %d-%d", segments[0].StartLine, segments[0].EndLine)
	}
}

func TestLineChunkerLongLine(t *testing.T) {
	chunker := mustChunker(t, 10, 2, 20)

	long := strings.Repeat("x", 100)
	content := "short\n" + long + "\nshort again"

	segments, err := chunker.Segment(domain.Document{Path: "long.go"}, content)
	if err != nil {
		t.Fatal(err)
	}

	found := false
	for _, seg := range segments {
		if seg.Content == long {
			found = true
			if seg.StartLine != 2 || seg.EndLine != 2 {
				t.Errorf("oversized line should be segment 2-2, got %d-%d", seg.StartLine, seg.EndLine)
			}
		}
	}
	if !found {
		t.Error("oversized line should form its own segment")
	}
	if last := segments[len(segments)-1]; last.EndLine != 3 {
		t.Errorf("last segment should reach line 3, got %d", last.EndLine)
	}
}

func TestLineChunkerNormalizesPath(t *testing.T) {
	chunker := mustChunker(t, 10, 0, 0)

	segments, err := chunker.Segment(domain.Document{Path: `src\util\strings.go`}, "a\nb")
	if err != nil {
		t.Fatal(err)
	}
	if segments[0].FilePath != "src/util/strings.go" {
		t.Errorf("expected forward-slash path, got %s", segments[0].FilePath)
	}
}

func TestNewLineChunkerRejectsBadParameters(t *testing.T) {
	cases := []struct {
		size, overlap, maxChars int
	}{
		{0, 0, 0},
		{4, 4, 0},
		{4, 5, 0},
		{4, -1, 0},
		{4, 1, -1},
	}

	for _, tc := range cases {
		_, err := NewLineChunker(tc.size, tc.overlap, tc.maxChars)
		if !errors.Is(err, domain.ErrConfiguration) {
			t.Errorf("size=%d overlap=%d maxChars=%d: expected ErrConfiguration, got %v", tc.size, tc.overlap, tc.maxChars, err)
		}
	}
}

func TestSegmentIDUniqueness(t *testing.T) {
	chunker := mustChunker(t, 3, 1, 0)

	segments, err := chunker.Segment(domain.Document{Path: "file.go"}, numberedLines(25))
	if err != nil {
		t.Fatal(err)
	}

	ids := make(map[string]bool)
	for _, seg := range segments {
		if ids[seg.ID] {
			t.Errorf("duplicate segment ID: %s", seg.ID)
		}
		ids[seg.ID] = true
	}
}
