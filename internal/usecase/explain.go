package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"repologic/internal/domain"
	"repologic/internal/port"
)

// ExplainUseCase explains a selected line range using its surrounding
// repository context.
type ExplainUseCase struct {
	retriever port.Retriever
	generator port.Generator
	extraK    int
	logger    *slog.Logger
}

func NewExplainUseCase(retriever port.Retriever, generator port.Generator, extraK int, logger *slog.Logger) *ExplainUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExplainUseCase{
		retriever: retriever,
		generator: generator,
		extraK:    extraK,
		logger:    logger,
	}
}

type ExplainRequest struct {
	RepoID       string
	FilePath     string
	StartLine    int
	EndLine      int
	SelectedCode string // cut from the stored segments when empty
}

type Explanation struct {
	FilePath    string
	StartLine   int
	EndLine     int
	Text        string
	ContextUsed int
	Retrieval   domain.HybridResult
}

func (u *ExplainUseCase) Explain(ctx context.Context, req ExplainRequest) (*Explanation, error) {
	if req.StartLine < 1 || req.EndLine < req.StartLine {
		return nil, fmt.Errorf("%w: invalid line range %d-%d", domain.ErrConfiguration, req.StartLine, req.EndLine)
	}

	retrieval, err := u.retriever.RetrieveBySelection(ctx, req.RepoID, req.FilePath, req.StartLine, req.EndLine, u.extraK)
	if err != nil {
		return nil, err
	}

	selected := req.SelectedCode
	if selected == "" {
		selected = SelectLines(retrieval.Exact, req.StartLine, req.EndLine)
	}
	if selected == "" {
		return nil, fmt.Errorf("no segments cover %s:%d-%d: %w", req.FilePath, req.StartLine, req.EndLine, domain.ErrNotFound)
	}

	data := explainPromptData{
		FilePath:     req.FilePath,
		StartLine:    req.StartLine,
		EndLine:      req.EndLine,
		SelectedCode: selected,
	}
	for _, seg := range retrieval.Exact {
		data.Context = append(data.Context, snippet(seg, false))
	}
	for _, rel := range retrieval.Related {
		data.Context = append(data.Context, snippet(rel.Segment, true))
	}

	prompt, err := renderPrompt("explain.txt", data)
	if err != nil {
		return nil, err
	}

	text, err := u.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("explanation failed: %w", err)
	}

	u.logger.Info("explained selection",
		"repo", req.RepoID, "file", req.FilePath,
		"start", req.StartLine, "end", req.EndLine,
		"context", len(data.Context))

	return &Explanation{
		FilePath:    req.FilePath,
		StartLine:   req.StartLine,
		EndLine:     req.EndLine,
		Text:        text,
		ContextUsed: len(data.Context),
		Retrieval:   retrieval,
	}, nil
}

// SelectLines reassembles lines start..end from overlapping segments of one
// file. Lines no segment covers are left out.
func SelectLines(segments []domain.Segment, start, end int) string {
	lines := make(map[int]string)
	for _, seg := range segments {
		for i, line := range strings.Split(seg.Content, "\n") {
			n := seg.StartLine + i
			if n >= start && n <= end {
				lines[n] = line
			}
		}
	}

	var out []string
	for n := start; n <= end; n++ {
		if line, ok := lines[n]; ok {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
