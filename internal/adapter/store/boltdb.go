package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"go.etcd.io/bbolt"
	"repologic/internal/domain"
)

var (
	bucketRepos    = []byte("repos")
	bucketMeta     = []byte("meta")
	bucketSegments = []byte("segments")
	bucketFiles    = []byte("files")
	keySavedAt     = []byte("saved_at")
)

// BoltChunkStore implements port.ChunkStore on a single bbolt database.
// Each repository lives in its own nested bucket, so a save replaces the
// whole set in one transaction and readers never see a mix of old and new.
type BoltChunkStore struct {
	db *bbolt.DB
}

// openTimeout bounds the wait for another process's file lock.
const openTimeout = 5 * time.Second

// errNeedsUpgrade marks a database a read-only open cannot use until a
// writer has created or migrated it.
var errNeedsUpgrade = errors.New("chunk store needs a writer to create or migrate it")

// NewBoltChunkStore opens path for reading and writing, creating and
// migrating it as needed. bbolt holds an exclusive file lock until Close.
func NewBoltChunkStore(path string) (*BoltChunkStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	s := &BoltChunkStore{db: db}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewReadOnlyBoltChunkStore opens path under a shared file lock, so any
// number of readers can hold it at once. A missing or outdated database is
// first brought to CurrentSchemaVersion by a short read-write open. Save on
// the returned store fails with bbolt.ErrDatabaseReadOnly.
func NewReadOnlyBoltChunkStore(path string) (*BoltChunkStore, error) {
	s, err := openChunksReadOnly(path)
	if !errors.Is(err, errNeedsUpgrade) {
		return s, err
	}

	rw, err := NewBoltChunkStore(path)
	if err != nil {
		return nil, err
	}
	if err := rw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close bolt db: %w", err)
	}
	return openChunksReadOnly(path)
}

func openChunksReadOnly(path string) (*BoltChunkStore, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, errNeedsUpgrade
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{ReadOnly: true, Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	s := &BoltChunkStore{db: db}
	info, err := s.GetSchemaInfo()
	if err != nil {
		db.Close()
		return nil, err
	}
	switch {
	case info.Version > CurrentSchemaVersion:
		db.Close()
		return nil, fmt.Errorf("%w: database created by newer version (v%d > v%d)", domain.ErrCorruption, info.Version, CurrentSchemaVersion)
	case info.Version < CurrentSchemaVersion:
		db.Close()
		return nil, errNeedsUpgrade
	}
	return s, nil
}

type segmentRecord struct {
	ID        string `json:"segment_id"`
	FilePath  string `json:"file_path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Content   string `json:"content"`
	Language  string `json:"language"`
	Extension string `json:"extension"`
}

func toRecord(seg domain.Segment) segmentRecord {
	return segmentRecord{
		ID:        seg.ID,
		FilePath:  seg.FilePath,
		StartLine: seg.StartLine,
		EndLine:   seg.EndLine,
		Content:   seg.Content,
		Language:  seg.Language,
		Extension: seg.Extension,
	}
}

func (r segmentRecord) toSegment(repoID string) domain.Segment {
	return domain.Segment{
		ID:        r.ID,
		RepoID:    repoID,
		FilePath:  r.FilePath,
		StartLine: r.StartLine,
		EndLine:   r.EndLine,
		Content:   r.Content,
		Language:  r.Language,
		Extension: r.Extension,
	}
}

func (r segmentRecord) validate() error {
	if r.ID == "" || r.FilePath == "" {
		return fmt.Errorf("segment record missing id or path")
	}
	if r.StartLine < 1 || r.StartLine > r.EndLine {
		return fmt.Errorf("segment %s has invalid range %d-%d", r.ID, r.StartLine, r.EndLine)
	}
	return nil
}

func positionKey(pos int) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(pos))
	return key
}

func (s *BoltChunkStore) Save(repoID string, segments []domain.Segment) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		repos := tx.Bucket(bucketRepos)
		if err := repos.DeleteBucket([]byte(repoID)); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return fmt.Errorf("failed to drop previous segments: %w", err)
		}

		repo, err := repos.CreateBucket([]byte(repoID))
		if err != nil {
			return fmt.Errorf("failed to create repo bucket: %w", err)
		}
		segBucket, err := repo.CreateBucket(bucketSegments)
		if err != nil {
			return err
		}
		fileBucket, err := repo.CreateBucket(bucketFiles)
		if err != nil {
			return err
		}

		filePositions := make(map[string][]int)
		for pos, seg := range segments {
			data, err := json.Marshal(toRecord(seg))
			if err != nil {
				return err
			}
			if err := segBucket.Put(positionKey(pos), data); err != nil {
				return err
			}
			filePositions[seg.FilePath] = append(filePositions[seg.FilePath], pos)
		}

		for path, positions := range filePositions {
			data, err := json.Marshal(positions)
			if err != nil {
				return err
			}
			if err := fileBucket.Put([]byte(path), data); err != nil {
				return err
			}
		}

		savedAt, _ := time.Now().UTC().MarshalText()
		return repo.Put(keySavedAt, savedAt)
	})
}

func (s *BoltChunkStore) Has(repoID string) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(bucketRepos).Bucket([]byte(repoID)) != nil
		return nil
	})
	return found, err
}

func (s *BoltChunkStore) Load(repoID string) ([]domain.Segment, error) {
	var segments []domain.Segment
	err := s.db.View(func(tx *bbolt.Tx) error {
		repo := tx.Bucket(bucketRepos).Bucket([]byte(repoID))
		if repo == nil {
			return fmt.Errorf("segments for %s: %w", repoID, domain.ErrNotFound)
		}
		segBucket := repo.Bucket(bucketSegments)
		if segBucket == nil {
			return fmt.Errorf("segments for %s: %w: missing segments bucket", repoID, domain.ErrCorruption)
		}

		segments = make([]domain.Segment, 0, segBucket.Stats().KeyN)
		expected := 0
		return segBucket.ForEach(func(k, v []byte) error {
			if len(k) != 8 || binary.BigEndian.Uint64(k) != uint64(expected) {
				return fmt.Errorf("segments for %s: %w: position %d out of sequence", repoID, domain.ErrCorruption, expected)
			}
			seg, err := decodeSegment(repoID, v)
			if err != nil {
				return err
			}
			segments = append(segments, seg)
			expected++
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return segments, nil
}

func (s *BoltChunkStore) Overlapping(repoID, filePath string, startLine, endLine int) ([]domain.Segment, error) {
	var matches []domain.Segment
	err := s.db.View(func(tx *bbolt.Tx) error {
		repo := tx.Bucket(bucketRepos).Bucket([]byte(repoID))
		if repo == nil {
			return nil
		}
		fileBucket := repo.Bucket(bucketFiles)
		segBucket := repo.Bucket(bucketSegments)
		if fileBucket == nil || segBucket == nil {
			return fmt.Errorf("segments for %s: %w: missing buckets", repoID, domain.ErrCorruption)
		}

		data := fileBucket.Get([]byte(filePath))
		if data == nil {
			return nil
		}
		var positions []int
		if err := json.Unmarshal(data, &positions); err != nil {
			return fmt.Errorf("file index for %s: %w: %v", filePath, domain.ErrCorruption, err)
		}

		for _, pos := range positions {
			v := segBucket.Get(positionKey(pos))
			if v == nil {
				return fmt.Errorf("file index for %s: %w: dangling position %d", filePath, domain.ErrCorruption, pos)
			}
			seg, err := decodeSegment(repoID, v)
			if err != nil {
				return err
			}
			if seg.FilePath == filePath && seg.Overlaps(startLine, endLine) {
				matches = append(matches, seg)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].StartLine < matches[j].StartLine
	})
	return matches, nil
}

// Repos lists the repositories that have a saved segment set.
func (s *BoltChunkStore) Repos() ([]string, error) {
	var repos []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRepos).ForEach(func(k, v []byte) error {
			if v == nil {
				repos = append(repos, string(k))
			}
			return nil
		})
	})
	return repos, err
}

func (s *BoltChunkStore) Close() error {
	return s.db.Close()
}

func decodeSegment(repoID string, data []byte) (domain.Segment, error) {
	var rec segmentRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.Segment{}, fmt.Errorf("segments for %s: %w: %v", repoID, domain.ErrCorruption, err)
	}
	if err := rec.validate(); err != nil {
		return domain.Segment{}, fmt.Errorf("segments for %s: %w: %v", repoID, domain.ErrCorruption, err)
	}
	return rec.toSegment(repoID), nil
}
