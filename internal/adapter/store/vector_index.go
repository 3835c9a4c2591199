package store

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.etcd.io/bbolt"
	"repologic/internal/domain"
)

var (
	bucketHeader  = []byte("header")
	bucketVectors = []byte("vectors")
	keyHeader     = []byte("header")
)

const indexFileExt = ".idx"

// BoltVectorIndex implements port.VectorIndex with one bbolt file per
// repository. The file carries three buckets: the header, the aligned
// segment metadata and the vectors. A build writes a fresh file next to the
// published one and renames it into place, so readers see either the old
// index or the new one.
// Uses brute-force search; loaded indexes are kept in an LRU cache.
type BoltVectorIndex struct {
	dir   string
	cache *lru.Cache[string, *loadedIndex]
}

type indexHeader struct {
	RepoID        string    `json:"repo_id"`
	Dimension     int       `json:"dimension"`
	Count         int       `json:"count"`
	Model         string    `json:"model,omitempty"`
	BuiltAt       time.Time `json:"built_at"`
	SchemaVersion int       `json:"schema_version"`
}

type loadedIndex struct {
	info     os.FileInfo
	header   indexHeader
	segments []domain.Segment
	vectors  []float32 // count*dimension values, row-major
}

// NewBoltVectorIndex creates a vector index rooted at dir. cacheSize bounds
// how many loaded repositories stay in memory.
func NewBoltVectorIndex(dir string, cacheSize int) (*BoltVectorIndex, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create vector index dir: %w", err)
	}
	if cacheSize <= 0 {
		cacheSize = 8
	}
	cache, err := lru.New[string, *loadedIndex](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create index cache: %w", err)
	}
	return &BoltVectorIndex{dir: dir, cache: cache}, nil
}

// path maps a repository id to its index file. Ids are sanitized for the
// filesystem and suffixed with a hash so distinct ids never collide.
func (s *BoltVectorIndex) path(repoID string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, repoID)
	hash := sha256.Sum256([]byte(repoID))
	return filepath.Join(s.dir, safe+"-"+hex.EncodeToString(hash[:4])+indexFileExt)
}

func (s *BoltVectorIndex) Build(repoID string, segments []domain.Segment, vectors [][]float32, model string) error {
	if len(segments) != len(vectors) {
		return fmt.Errorf("%w: %d segments but %d vectors", domain.ErrDimensionMismatch, len(segments), len(vectors))
	}
	dimension := 0
	if len(vectors) > 0 {
		dimension = len(vectors[0])
		if dimension == 0 {
			return fmt.Errorf("%w: empty vector at position 0", domain.ErrDimensionMismatch)
		}
	}
	for i, v := range vectors {
		if len(v) != dimension {
			return fmt.Errorf("%w: vector %d has dimension %d, expected %d", domain.ErrDimensionMismatch, i, len(v), dimension)
		}
	}

	final := s.path(repoID)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(final)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp index file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	published := false
	defer func() {
		if !published {
			os.Remove(tmpPath)
		}
	}()

	header := indexHeader{
		RepoID:        repoID,
		Dimension:     dimension,
		Count:         len(segments),
		Model:         model,
		BuiltAt:       time.Now().UTC(),
		SchemaVersion: CurrentSchemaVersion,
	}
	if err := writeIndexFile(tmpPath, header, segments, vectors); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, final); err != nil {
		return fmt.Errorf("failed to publish index: %w", err)
	}
	published = true
	syncDir(s.dir)
	s.cache.Remove(repoID)
	return nil
}

func writeIndexFile(path string, header indexHeader, segments []domain.Segment, vectors [][]float32) error {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return fmt.Errorf("failed to open index file: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		hb, err := tx.CreateBucket(bucketHeader)
		if err != nil {
			return err
		}
		sb, err := tx.CreateBucket(bucketSegments)
		if err != nil {
			return err
		}
		vb, err := tx.CreateBucket(bucketVectors)
		if err != nil {
			return err
		}

		for pos, seg := range segments {
			data, err := json.Marshal(toRecord(seg))
			if err != nil {
				return err
			}
			key := positionKey(pos)
			if err := sb.Put(key, data); err != nil {
				return err
			}
			if err := vb.Put(key, serializeVector(vectors[pos])); err != nil {
				return err
			}
		}

		data, err := json.Marshal(header)
		if err != nil {
			return err
		}
		return hb.Put(keyHeader, data)
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to write index: %w", err)
	}
	return db.Close()
}

// Exists reports whether a complete index is published. Missing, truncated
// or inconsistent files all count as absent.
func (s *BoltVectorIndex) Exists(repoID string) bool {
	info, err := os.Stat(s.path(repoID))
	if err != nil {
		return false
	}
	if cached, ok := s.cache.Get(repoID); ok && sameFile(cached.info, info) {
		return true
	}
	_, err = s.readHeader(repoID)
	return err == nil
}

func (s *BoltVectorIndex) Stats(repoID string) (*domain.IndexStats, error) {
	header, err := s.readHeader(repoID)
	if err != nil {
		return nil, nil
	}
	return &domain.IndexStats{
		RepoID:    header.RepoID,
		Count:     header.Count,
		Dimension: header.Dimension,
		Model:     header.Model,
		BuiltAt:   header.BuiltAt,
	}, nil
}

func (s *BoltVectorIndex) Query(repoID string, vector []float32, k int) ([]domain.ScoredSegment, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1, got %d", domain.ErrConfiguration, k)
	}

	idx, err := s.load(repoID)
	if err != nil {
		return nil, err
	}

	count := idx.header.Count
	if count == 0 {
		return []domain.ScoredSegment{}, nil
	}
	dim := idx.header.Dimension
	if len(vector) != dim {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d", domain.ErrDimensionMismatch, len(vector), dim)
	}

	distances := make([]float64, count)
	for i := 0; i < count; i++ {
		distances[i] = squaredL2(vector, idx.vectors[i*dim:(i+1)*dim])
	}

	order := make([]int, count)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return distances[order[a]] < distances[order[b]]
	})

	if k > count {
		k = count
	}
	results := make([]domain.ScoredSegment, k)
	for i := 0; i < k; i++ {
		pos := order[i]
		results[i] = domain.ScoredSegment{
			Segment:  idx.segments[pos],
			Distance: distances[pos],
		}
	}
	return results, nil
}

// load returns the cached index for repoID, reading it from disk when the
// published file changed since it was cached.
func (s *BoltVectorIndex) load(repoID string) (*loadedIndex, error) {
	path := s.path(repoID)
	info, err := os.Stat(path)
	if err != nil {
		s.cache.Remove(repoID)
		return nil, fmt.Errorf("vector index for %s: %w", repoID, domain.ErrNotFound)
	}
	if cached, ok := s.cache.Get(repoID); ok && sameFile(cached.info, info) {
		return cached, nil
	}

	db, err := openReadOnly(path)
	if err != nil {
		return nil, fmt.Errorf("vector index for %s: %w", repoID, domain.ErrNotFound)
	}
	defer db.Close()

	idx := &loadedIndex{info: info}
	err = db.View(func(tx *bbolt.Tx) error {
		header, err := consistentHeader(tx)
		if err != nil {
			return fmt.Errorf("vector index for %s: %w: %v", repoID, domain.ErrNotFound, err)
		}
		idx.header = header
		idx.segments = make([]domain.Segment, 0, header.Count)
		idx.vectors = make([]float32, 0, header.Count*header.Dimension)

		sb := tx.Bucket(bucketSegments)
		vb := tx.Bucket(bucketVectors)
		for pos := 0; pos < header.Count; pos++ {
			key := positionKey(pos)
			segData := sb.Get(key)
			vecData := vb.Get(key)
			if segData == nil || vecData == nil {
				return fmt.Errorf("vector index for %s: %w: position %d missing", repoID, domain.ErrCorruption, pos)
			}
			if len(vecData) != header.Dimension*4 {
				return fmt.Errorf("vector index for %s: %w: vector %d has %d bytes", repoID, domain.ErrCorruption, pos, len(vecData))
			}
			seg, err := decodeSegment(repoID, segData)
			if err != nil {
				return err
			}
			idx.segments = append(idx.segments, seg)
			idx.vectors = append(idx.vectors, deserializeVector(vecData)...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Add(repoID, idx)
	return idx, nil
}

func (s *BoltVectorIndex) readHeader(repoID string) (indexHeader, error) {
	var header indexHeader
	db, err := openReadOnly(s.path(repoID))
	if err != nil {
		return header, err
	}
	defer db.Close()

	err = db.View(func(tx *bbolt.Tx) error {
		header, err = consistentHeader(tx)
		return err
	})
	return header, err
}

// consistentHeader decodes the header and checks it against the segment
// and vector bucket sizes.
func consistentHeader(tx *bbolt.Tx) (indexHeader, error) {
	var header indexHeader
	hb := tx.Bucket(bucketHeader)
	sb := tx.Bucket(bucketSegments)
	vb := tx.Bucket(bucketVectors)
	if hb == nil || sb == nil || vb == nil {
		return header, fmt.Errorf("index artifacts incomplete")
	}
	data := hb.Get(keyHeader)
	if data == nil {
		return header, fmt.Errorf("index header missing")
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return header, fmt.Errorf("index header unreadable: %v", err)
	}
	segCount := sb.Stats().KeyN
	vecCount := vb.Stats().KeyN
	if header.Count != segCount || header.Count != vecCount {
		return header, fmt.Errorf("header count %d, %d segments, %d vectors", header.Count, segCount, vecCount)
	}
	return header, nil
}

func openReadOnly(path string) (*bbolt.DB, error) {
	return bbolt.Open(path, 0400, &bbolt.Options{ReadOnly: true, Timeout: time.Second})
}

func sameFile(a, b os.FileInfo) bool {
	return os.SameFile(a, b) && a.ModTime().Equal(b.ModTime()) && a.Size() == b.Size()
}

// syncDir flushes the rename to disk where the platform allows it.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	d.Sync()
	d.Close()
}

func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector
}

// squaredL2 returns the squared Euclidean distance between a and b.
func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
