package vectorindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"hybridrag/internal/domain"
	"hybridrag/internal/port"
)

// PGVectorIndex is the external ANN backend: a Postgres table with a
// pgvector column and an ivfflat index. Row shape follows the persisted
// layout contract: id (store-assigned), doc_id, chunk_id, vector, meta.
type PGVectorIndex struct {
	db     *sql.DB
	table  string
	dim    int
	metric string
}

// OpenPGVector connects to Postgres. The collection (table) is created
// lazily by CreateCollection.
func OpenPGVector(dsn, table string) (*PGVectorIndex, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if table == "" {
		table = "rag_chunks"
	}
	return &PGVectorIndex{db: db, table: table}, nil
}

// vector operator and index opclass per metric.
func (s *PGVectorIndex) operator() string {
	switch s.metric {
	case "ip":
		return "<#>"
	case "l2":
		return "<->"
	default:
		return "<=>"
	}
}

func (s *PGVectorIndex) opclass() string {
	switch s.metric {
	case "ip":
		return "vector_ip_ops"
	case "l2":
		return "vector_l2_ops"
	default:
		return "vector_cosine_ops"
	}
}

// CreateCollection creates the extension, table and ANN index if needed and
// pins the dimension and metric for this handle.
func (s *PGVectorIndex) CreateCollection(ctx context.Context, dim int, metric string) error {
	if s.dim != 0 && s.dim != dim {
		return &domain.DimensionMismatchError{Want: s.dim, Got: dim}
	}
	s.dim = dim
	s.metric = metric

	table := pq.QuoteIdentifier(s.table)
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id bigserial PRIMARY KEY,
			doc_id text NOT NULL,
			chunk_id bigint NOT NULL,
			vector vector(%d) NOT NULL,
			meta jsonb
		)`, table, dim),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING ivfflat (vector %s) WITH (lists = 128)`,
			pq.QuoteIdentifier(s.table+"_vector_idx"), table, s.opclass()),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
	}
	return nil
}

// Insert writes a batch inside one transaction.
func (s *PGVectorIndex) Insert(ctx context.Context, records []port.VectorRecord) error {
	if s.dim == 0 {
		return fmt.Errorf("collection not created")
	}
	for _, r := range records {
		if len(r.Vector) != s.dim {
			return &domain.DimensionMismatchError{Want: s.dim, Got: len(r.Vector)}
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (doc_id, chunk_id, vector, meta) VALUES ($1, $2, $3, $4)`,
		pq.QuoteIdentifier(s.table)))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		meta, err := json.Marshal(r.Meta)
		if err != nil {
			return fmt.Errorf("marshal meta: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, r.DocID, r.ChunkID, pgvector.NewVector(r.Vector), meta); err != nil {
			return fmt.Errorf("insert row doc=%s chunk=%d: %w", r.DocID, r.ChunkID, err)
		}
	}

	return tx.Commit()
}

// Flush is a no-op: Postgres commits are durable at transaction commit.
func (s *PGVectorIndex) Flush(ctx context.Context) error {
	return ctx.Err()
}

// Search returns the top-k rows by the collection's metric.
func (s *PGVectorIndex) Search(ctx context.Context, query []float32, topK int) ([]port.VectorHit, error) {
	if s.dim == 0 {
		return nil, fmt.Errorf("collection not created: %w", domain.ErrBackendUnavailable)
	}
	if len(query) != s.dim {
		return nil, &domain.DimensionMismatchError{Want: s.dim, Got: len(query)}
	}

	q := fmt.Sprintf(
		`SELECT id, doc_id, chunk_id, meta, vector %s $1 AS distance
		 FROM %s ORDER BY distance ASC, doc_id ASC, chunk_id ASC LIMIT $2`,
		s.operator(), pq.QuoteIdentifier(s.table))

	rows, err := s.db.QueryContext(ctx, q, pgvector.NewVector(query), topK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w: %v", domain.ErrBackendUnavailable, err)
	}
	defer rows.Close()

	var hits []port.VectorHit
	for rows.Next() {
		var (
			id       int64
			docID    string
			chunkID  int
			metaJSON []byte
			distance float64
		)
		if err := rows.Scan(&id, &docID, &chunkID, &metaJSON, &distance); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		meta := map[string]string{}
		if len(metaJSON) > 0 {
			_ = json.Unmarshal(metaJSON, &meta)
		}
		hits = append(hits, port.VectorHit{
			ID:      fmt.Sprintf("%d", id),
			DocID:   docID,
			ChunkID: chunkID,
			Text:    meta["text"],
			Meta:    meta,
			Score:   s.distanceToScore(distance),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vector search rows: %w", err)
	}
	return hits, nil
}

// distanceToScore converts the operator's distance into a similarity so all
// backends rank the same way.
func (s *PGVectorIndex) distanceToScore(d float64) float64 {
	switch s.metric {
	case "ip":
		return -d // <#> yields negative inner product
	case "l2":
		return -d
	default:
		return 1 - d // cosine distance
	}
}

// Health pings the server and checks the table exists.
func (s *PGVectorIndex) Health(ctx context.Context) port.VectorHealth {
	var h port.VectorHealth
	if err := s.db.PingContext(ctx); err != nil {
		return h
	}
	h.Reachable = true

	var reg sql.NullString
	if err := s.db.QueryRowContext(ctx, `SELECT to_regclass($1)::text`, s.table).Scan(&reg); err == nil {
		h.CollectionExists = reg.Valid
	}
	var version string
	if err := s.db.QueryRowContext(ctx, `SHOW server_version`).Scan(&version); err == nil {
		h.Version = "postgres " + version
	}
	return h
}

func (s *PGVectorIndex) Close() error {
	return s.db.Close()
}
