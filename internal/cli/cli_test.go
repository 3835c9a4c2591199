package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"repologic/config"
	"repologic/internal/domain"
	"repologic/internal/usecase"
)

// useMockApp points the package globals at a temp repository configured
// with the offline providers.
func useMockApp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	c := config.DefaultConfig()
	c.Embedding.Provider = "mock"
	c.Embedding.Dimension = 32
	c.Embedding.BatchSize = 2
	c.Generation.Provider = "mock"
	c.Chunk.Size = 4
	c.Chunk.Overlap = 1
	require.NoError(t, c.Validate())

	prevCfg, prevDir, prevRepo, prevLogger := cfg, rootDir, repoFlag, logger
	t.Cleanup(func() {
		cfg, rootDir, repoFlag, logger = prevCfg, prevDir, prevRepo, prevLogger
	})
	cfg, rootDir, repoFlag = c, dir, "demo"
	logger = slog.New(slog.DiscardHandler)
	return dir
}

func writeRepoFile(t *testing.T, dir, rel string, lines int, word string) {
	t.Helper()
	var b strings.Builder
	for i := 1; i <= lines; i++ {
		fmt.Fprintf(&b, "%s line %d\n", word, i)
	}
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
}

func TestPipelineWithMockProviders(t *testing.T) {
	dir := useMockApp(t)
	writeRepoFile(t, dir, "pkg/alpha.go", 10, "alpha")
	writeRepoFile(t, dir, "pkg/beta.go", 7, "beta")
	ctx := context.Background()

	a, err := openApp(false)
	require.NoError(t, err)
	defer a.Close()

	segUC, err := a.SegmentUseCase()
	require.NoError(t, err)
	segResult, err := segUC.SegmentRepository(ctx, currentRepo(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, segResult.FilesSegmented)
	assert.Equal(t, 5, segResult.Segments)

	status, err := a.StatusUseCase().Status("demo")
	require.NoError(t, err)
	assert.Equal(t, domain.Segmented, status.Readiness)

	idxUC, err := a.IndexUseCase()
	require.NoError(t, err)
	idxResult, err := idxUC.BuildIndex(ctx, "demo", nil)
	require.NoError(t, err)
	assert.Equal(t, 5, idxResult.Segments)
	assert.Equal(t, 3, idxResult.Batches)
	assert.Equal(t, 32, idxResult.Dimension)

	r, err := a.Retriever()
	require.NoError(t, err)
	hybrid, err := r.RetrieveBySelection(ctx, "demo", "pkg/alpha.go", 5, 6, 2)
	require.NoError(t, err)
	require.Len(t, hybrid.Exact, 1)
	assert.Equal(t, 4, hybrid.Exact[0].StartLine)
	assert.Len(t, hybrid.Related, 2)
	for _, rel := range hybrid.Related {
		assert.NotEqual(t, hybrid.Exact[0].ID, rel.Segment.ID)
	}

	explainUC, err := a.ExplainUseCase()
	require.NoError(t, err)
	explanation, err := explainUC.Explain(ctx, usecase.ExplainRequest{
		RepoID: "demo", FilePath: "pkg/alpha.go", StartLine: 5, EndLine: 6,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, explanation.Text)

	askUC, err := a.AskUseCase()
	require.NoError(t, err)
	answer, err := askUC.Ask(ctx, "demo", "where is beta")
	require.NoError(t, err)
	assert.Len(t, answer.Sources, 5)
}

func TestStoresSurviveReopen(t *testing.T) {
	dir := useMockApp(t)
	writeRepoFile(t, dir, "main.go", 6, "main")

	a, err := openApp(false)
	require.NoError(t, err)
	segUC, err := a.SegmentUseCase()
	require.NoError(t, err)
	_, err = segUC.SegmentRepository(context.Background(), "demo", dir)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	a, err = openApp(true)
	require.NoError(t, err)
	defer a.Close()

	status, err := a.StatusUseCase().Status("demo")
	require.NoError(t, err)
	assert.Equal(t, domain.Segmented, status.Readiness)
	assert.DirExists(t, filepath.Join(dir, ".repologic"))
}

func TestReadOnlyAppsShareStores(t *testing.T) {
	dir := useMockApp(t)
	writeRepoFile(t, dir, "main.go", 6, "main")

	require.NoError(t, withApp(func(a *app) error {
		uc, err := a.SegmentUseCase()
		if err != nil {
			return err
		}
		_, err = uc.SegmentRepository(context.Background(), "demo", dir)
		return err
	}))

	start := time.Now()
	first, err := openApp(true)
	require.NoError(t, err)
	defer first.Close()
	second, err := openApp(true)
	require.NoError(t, err)
	defer second.Close()
	assert.Less(t, time.Since(start), time.Second)

	for _, a := range []*app{first, second} {
		status, err := a.StatusUseCase().Status("demo")
		require.NoError(t, err)
		assert.Equal(t, domain.Segmented, status.Readiness)
		assert.Equal(t, 2, status.Segments)
	}
}

func TestReadOnlyAppOnFreshDataDir(t *testing.T) {
	useMockApp(t)

	err := withReadOnlyApp(func(a *app) error {
		status, err := a.StatusUseCase().Status("demo")
		if err != nil {
			return err
		}
		assert.Equal(t, domain.Unseen, status.Readiness)
		return nil
	})
	require.NoError(t, err)
}

func TestParseSelection(t *testing.T) {
	dir := useMockApp(t)

	path, start, end, err := parseSelection([]string{"pkg/a.go", "3", "9"})
	require.NoError(t, err)
	assert.Equal(t, "pkg/a.go", path)
	assert.Equal(t, 3, start)
	assert.Equal(t, 9, end)

	path, _, _, err = parseSelection([]string{filepath.Join(dir, "pkg", "a.go"), "1", "1"})
	require.NoError(t, err)
	assert.Equal(t, "pkg/a.go", path)

	for _, args := range [][]string{
		{"a.go", "x", "2"},
		{"a.go", "1", "y"},
		{"a.go", "0", "2"},
		{"a.go", "5", "2"},
	} {
		_, _, _, err := parseSelection(args)
		assert.ErrorIs(t, err, domain.ErrConfiguration, "args %v", args)
	}
}

func TestCurrentRepoDefaultsToDirName(t *testing.T) {
	dir := useMockApp(t)
	repoFlag = ""
	assert.Equal(t, filepath.Base(dir), currentRepo())
}

func TestHint(t *testing.T) {
	useMockApp(t)

	assert.Nil(t, hint(nil))

	err := hint(fmt.Errorf("vector index for demo: %w", domain.ErrNotFound))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "repologic chunk")

	err = hint(fmt.Errorf("embed: %w", domain.ErrTimeout))
	assert.ErrorIs(t, err, domain.ErrExternalService)
	assert.Contains(t, err.Error(), "timeout_seconds")

	err = hint(fmt.Errorf("embed: %w", domain.ErrBusy))
	assert.ErrorIs(t, err, domain.ErrBusy)
	assert.Contains(t, err.Error(), "running chunk or embed")

	plain := errors.New("boom")
	assert.Equal(t, plain, hint(plain))
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Millisecond, "<1s"},
		{42 * time.Second, "42s"},
		{3*time.Minute + 5*time.Second, "3m5s"},
		{2*time.Hour + 7*time.Minute, "2h7m"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestNewLoggerLevel(t *testing.T) {
	l := newLogger(config.LoggingConfig{Level: "warn", Format: "json"})
	assert.False(t, l.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, l.Enabled(context.Background(), slog.LevelWarn))

	l = newLogger(config.LoggingConfig{Level: "bogus"})
	assert.True(t, l.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, l.Enabled(context.Background(), slog.LevelDebug))
}
