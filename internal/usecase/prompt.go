package usecase

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"repologic/internal/domain"
)

//go:embed templates/*.txt
var promptTemplates embed.FS

var prompts = template.Must(template.ParseFS(promptTemplates, "templates/*.txt"))

// ContextSnippet is one segment rendered into a prompt.
type ContextSnippet struct {
	FilePath  string
	StartLine int
	EndLine   int
	Content   string
	Related   bool
}

type explainPromptData struct {
	FilePath     string
	StartLine    int
	EndLine      int
	SelectedCode string
	Context      []ContextSnippet
}

type askPromptData struct {
	Question string
	Context  []ContextSnippet
}

func snippet(seg domain.Segment, related bool) ContextSnippet {
	return ContextSnippet{
		FilePath:  seg.FilePath,
		StartLine: seg.StartLine,
		EndLine:   seg.EndLine,
		Content:   seg.Content,
		Related:   related,
	}
}

func renderPrompt(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}
