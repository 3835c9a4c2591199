package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"repologic/internal/domain"
	"repologic/internal/port"
)

// ProgressFunc is called after each embedded batch with the number of
// segments embedded so far and the total.
type ProgressFunc func(done, total int)

// IndexUseCase embeds stored segments and publishes the vector index.
type IndexUseCase struct {
	chunks      port.ChunkStore
	index       port.VectorIndex
	embedder    port.Embedder
	locks       *RepoLocks
	batchSize   int
	concurrency int
	logger      *slog.Logger
}

func NewIndexUseCase(
	chunks port.ChunkStore,
	index port.VectorIndex,
	embedder port.Embedder,
	locks *RepoLocks,
	batchSize, concurrency int,
	logger *slog.Logger,
) *IndexUseCase {
	if batchSize <= 0 {
		batchSize = 100
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexUseCase{
		chunks:      chunks,
		index:       index,
		embedder:    embedder,
		locks:       locks,
		batchSize:   batchSize,
		concurrency: concurrency,
		logger:      logger,
	}
}

// IndexResult contains the results of an index build.
type IndexResult struct {
	RepoID    string
	Segments  int
	Batches   int
	Dimension int
	Model     string
	Duration  time.Duration
}

// EnrichedText is the text embedded for a segment: its location and
// language followed by the code itself.
func EnrichedText(seg domain.Segment) string {
	return fmt.Sprintf("File: %s\nLanguage: %s\n\n%s", seg.FilePath, seg.Language, seg.Content)
}

// BuildIndex embeds every stored segment of repoID and replaces its vector
// index. Batches may run concurrently but vectors are placed by segment
// position. Any failed or short batch aborts the build and leaves the
// previously published index untouched. A build started while the repo is
// locked fails at once with domain.ErrBusy instead of queueing.
func (u *IndexUseCase) BuildIndex(ctx context.Context, repoID string, progress ProgressFunc) (*IndexResult, error) {
	unlock, ok := u.locks.TryLock(repoID)
	if !ok {
		return nil, fmt.Errorf("%w: a save or build for %s is already running", domain.ErrBusy, repoID)
	}
	defer unlock()

	start := time.Now()
	segments, err := u.chunks.Load(repoID)
	if err != nil {
		return nil, fmt.Errorf("failed to load segments: %w", err)
	}

	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = EnrichedText(seg)
	}

	vectors := make([][]float32, len(texts))
	total := len(texts)
	var done atomic.Int64
	batches := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)

	for lo := 0; lo < total; lo += u.batchSize {
		hi := lo + u.batchSize
		if hi > total {
			hi = total
		}
		batches++

		g.Go(func() error {
			batch, err := u.embedder.EmbedBatch(gctx, texts[lo:hi])
			if err != nil {
				return fmt.Errorf("embedding segments %d-%d failed: %w", lo, hi-1, err)
			}
			if len(batch) != hi-lo {
				return fmt.Errorf("%w: embedding segments %d-%d returned %d vectors for %d texts",
					domain.ErrExternalService, lo, hi-1, len(batch), hi-lo)
			}
			copy(vectors[lo:hi], batch)

			n := done.Add(int64(hi - lo))
			if progress != nil {
				progress(int(n), total)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		u.logger.Error("index build aborted", "repo", repoID, "error", err)
		return nil, err
	}

	model := u.embedder.ModelName()
	if err := u.index.Build(repoID, segments, vectors, model); err != nil {
		return nil, fmt.Errorf("failed to build vector index: %w", err)
	}

	result := &IndexResult{
		RepoID:   repoID,
		Segments: total,
		Batches:  batches,
		Model:    model,
		Duration: time.Since(start),
	}
	if total > 0 {
		result.Dimension = len(vectors[0])
	}

	u.logger.Info("built vector index",
		"repo", repoID,
		"segments", result.Segments,
		"batches", result.Batches,
		"dimension", result.Dimension,
		"duration", result.Duration)
	return result, nil
}
