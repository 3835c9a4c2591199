package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"repologic/internal/domain"
	"repologic/internal/port"
)

// NoAnswer is returned when retrieval finds nothing to ground an answer on.
const NoAnswer = "I couldn't find relevant information in the repository to answer this question."

// AskUseCase answers free-text questions about an indexed repository.
type AskUseCase struct {
	retriever port.Retriever
	generator port.Generator
	topK      int
	logger    *slog.Logger
}

func NewAskUseCase(retriever port.Retriever, generator port.Generator, topK int, logger *slog.Logger) *AskUseCase {
	if topK <= 0 {
		topK = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AskUseCase{
		retriever: retriever,
		generator: generator,
		topK:      topK,
		logger:    logger,
	}
}

type Answer struct {
	Question string
	Text     string
	Sources  []domain.ScoredSegment
}

func (u *AskUseCase) Ask(ctx context.Context, repoID, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question must not be empty", domain.ErrConfiguration)
	}

	results, err := u.retriever.RetrieveByQuery(ctx, repoID, question, u.topK)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &Answer{Question: question, Text: NoAnswer, Sources: results}, nil
	}

	data := askPromptData{Question: question}
	for _, r := range results {
		data.Context = append(data.Context, snippet(r.Segment, false))
	}
	prompt, err := renderPrompt("ask.txt", data)
	if err != nil {
		return nil, err
	}

	text, err := u.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("answer generation failed: %w", err)
	}

	u.logger.Info("answered question", "repo", repoID, "sources", len(results))
	return &Answer{Question: question, Text: text, Sources: results}, nil
}
