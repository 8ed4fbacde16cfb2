package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"go.etcd.io/bbolt"

	"hybridrag/internal/domain"
	"hybridrag/internal/port"
)

var (
	bucketVectors    = []byte("vectors")
	bucketCollection = []byte("collection")
	keyCollection    = []byte("config")
)

// BoltIndex is the embedded vector backend: BoltDB for persistence with a
// brute-force in-memory search. Suits local corpora; swap in the pgvector
// backend for anything large.
type BoltIndex struct {
	db     *bbolt.DB
	mu     sync.RWMutex
	dim    int
	metric string
	// loaded rows for search; key is docID::chunkID
	vectors map[string]boltEntry
}

type boltEntry struct {
	vector  []float32
	docID   string
	chunkID int
	meta    map[string]string
}

type storedRecord struct {
	Vector  []float32         `json:"v"`
	DocID   string            `json:"d"`
	ChunkID int               `json:"c"`
	Meta    map[string]string `json:"m,omitempty"`
}

type collectionConfig struct {
	Dim    int    `json:"dim"`
	Metric string `json:"metric"`
}

// OpenBolt opens (or creates) a BoltDB-backed vector index at path.
func OpenBolt(path string) (*BoltIndex, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open vector db: %w", err)
	}

	idx := &BoltIndex{
		db:      db,
		vectors: make(map[string]boltEntry),
	}
	if err := idx.loadCollection(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (s *BoltIndex) loadCollection() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		cb := tx.Bucket(bucketCollection)
		if cb == nil {
			return nil
		}
		data := cb.Get(keyCollection)
		if data == nil {
			return nil
		}
		var cfg collectionConfig
		if err := json.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("corrupt collection config: %w", err)
		}
		s.dim = cfg.Dim
		s.metric = cfg.Metric

		vb := tx.Bucket(bucketVectors)
		if vb == nil {
			return nil
		}
		return vb.ForEach(func(k, v []byte) error {
			var rec storedRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return nil // skip corrupted entries
			}
			s.vectors[string(k)] = boltEntry{
				vector:  rec.Vector,
				docID:   rec.DocID,
				chunkID: rec.ChunkID,
				meta:    rec.Meta,
			}
			return nil
		})
	})
}

// CreateCollection fixes the dimension and metric. Reopening with different
// values is a dimension/metric mismatch, not a silent reconfiguration.
func (s *BoltIndex) CreateCollection(ctx context.Context, dim int, metric string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dim != 0 {
		if s.dim != dim {
			return &domain.DimensionMismatchError{Want: s.dim, Got: dim}
		}
		if s.metric != metric {
			return fmt.Errorf("collection metric is %q, requested %q", s.metric, metric)
		}
		return nil
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketVectors); err != nil {
			return err
		}
		cb, err := tx.CreateBucketIfNotExists(bucketCollection)
		if err != nil {
			return err
		}
		data, err := json.Marshal(collectionConfig{Dim: dim, Metric: metric})
		if err != nil {
			return err
		}
		return cb.Put(keyCollection, data)
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	s.dim = dim
	s.metric = metric
	return nil
}

// Insert writes a batch inside one transaction, so the batch either fully
// commits or leaves no trace.
func (s *BoltIndex) Insert(ctx context.Context, records []port.VectorRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dim == 0 {
		return fmt.Errorf("collection not created")
	}
	for _, r := range records {
		if len(r.Vector) != s.dim {
			return &domain.DimensionMismatchError{Want: s.dim, Got: len(r.Vector)}
		}
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		if b == nil {
			return fmt.Errorf("vectors bucket not found")
		}
		for _, r := range records {
			rec := storedRecord{
				Vector:  r.Vector,
				DocID:   r.DocID,
				ChunkID: r.ChunkID,
				Meta:    r.Meta,
			}
			data, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(recordKey(r.DocID, r.ChunkID)), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, r := range records {
		s.vectors[recordKey(r.DocID, r.ChunkID)] = boltEntry{
			vector:  r.Vector,
			docID:   r.DocID,
			chunkID: r.ChunkID,
			meta:    r.Meta,
		}
	}
	return nil
}

// Flush forces the file to disk. Bolt commits synchronously, so this is a
// fast fsync and keeps the ingest timing contract uniform across backends.
func (s *BoltIndex) Flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Sync()
}

// Search scans all vectors and returns the top-k by the collection metric.
func (s *BoltIndex) Search(ctx context.Context, query []float32, topK int) ([]port.VectorHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dim == 0 {
		return nil, fmt.Errorf("collection not created: %w", domain.ErrBackendUnavailable)
	}
	if len(query) != s.dim {
		return nil, &domain.DimensionMismatchError{Want: s.dim, Got: len(query)}
	}
	if len(s.vectors) == 0 {
		return nil, nil
	}

	hits := make([]port.VectorHit, 0, len(s.vectors))
	for key, entry := range s.vectors {
		hits = append(hits, port.VectorHit{
			ID:      key,
			DocID:   entry.docID,
			ChunkID: entry.chunkID,
			Text:    entry.meta["text"],
			Meta:    entry.meta,
			Score:   Similarity(s.metric, query, entry.vector),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].DocID != hits[j].DocID {
			return hits[i].DocID < hits[j].DocID
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	if topK < len(hits) {
		hits = hits[:topK]
	}
	return hits, nil
}

// Health reports the open/collection state of the file-backed index.
func (s *BoltIndex) Health(ctx context.Context) port.VectorHealth {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return port.VectorHealth{
		Reachable:        true,
		CollectionExists: s.dim != 0,
		Version:          "bbolt",
	}
}

func (s *BoltIndex) Close() error {
	return s.db.Close()
}

func recordKey(docID string, chunkID int) string {
	return fmt.Sprintf("%s::%d", docID, chunkID)
}
