package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"repologic/internal/adapter/fs"
	"repologic/internal/domain"
	"repologic/internal/port"
)

// SegmentUseCase walks a repository checkout and stores its segments.
type SegmentUseCase struct {
	walker       port.FileWalker
	segmenter    port.Segmenter
	chunks       port.ChunkStore
	locks        *RepoLocks
	maxFileBytes int64
	logger       *slog.Logger
}

func NewSegmentUseCase(
	walker port.FileWalker,
	segmenter port.Segmenter,
	chunks port.ChunkStore,
	locks *RepoLocks,
	maxFileBytes int64,
	logger *slog.Logger,
) *SegmentUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &SegmentUseCase{
		walker:       walker,
		segmenter:    segmenter,
		chunks:       chunks,
		locks:        locks,
		maxFileBytes: maxFileBytes,
		logger:       logger,
	}
}

// SegmentResult summarizes a segmenting run.
type SegmentResult struct {
	RepoID         string
	FilesSegmented int
	FilesSkipped   int
	Segments       int
	Errors         []string
}

// SegmentRepository replaces the stored segment set of repoID with the
// segments of every selected file under root. Blank, binary and oversize
// files are skipped, unreadable files are skipped and reported, and a
// segmenter error aborts without touching the stored set.
func (u *SegmentUseCase) SegmentRepository(ctx context.Context, repoID, root string) (*SegmentResult, error) {
	files, err := u.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	result := &SegmentResult{RepoID: repoID}
	var segments []domain.Segment

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if u.maxFileBytes > 0 && file.Size > u.maxFileBytes {
			result.FilesSkipped++
			continue
		}

		content, err := fs.ReadFile(file.Path)
		if errors.Is(err, fs.ErrBinary) {
			result.FilesSkipped++
			continue
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to read %s: %v", file.RelPath, err))
			u.logger.Warn("skipping unreadable file", "path", file.RelPath, "error", err)
			continue
		}
		if strings.TrimSpace(content) == "" {
			result.FilesSkipped++
			continue
		}

		lang, ext := fs.Classify(file.RelPath)
		doc := domain.Document{RepoID: repoID, Path: file.RelPath, Lang: lang, Ext: ext}

		fileSegments, err := u.segmenter.Segment(doc, content)
		if err != nil {
			return nil, fmt.Errorf("failed to segment %s: %w", file.RelPath, err)
		}
		segments = append(segments, fileSegments...)
		result.FilesSegmented++
	}

	unlock := u.locks.Lock(repoID)
	defer unlock()

	if err := u.chunks.Save(repoID, segments); err != nil {
		return nil, fmt.Errorf("failed to save segments: %w", err)
	}
	result.Segments = len(segments)

	u.logger.Info("segmented repository",
		"repo", repoID,
		"files", result.FilesSegmented,
		"skipped", result.FilesSkipped,
		"segments", result.Segments,
		"errors", len(result.Errors))
	return result, nil
}
