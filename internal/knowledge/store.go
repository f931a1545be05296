// Package knowledge persists (id, content, embedding) records in PostgreSQL
// with pgvector and answers nearest-neighbor queries over them.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ErrDimensionMismatch indicates an embedding whose length differs from the
// vector column's fixed dimension.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Store manages the knowledgebase table.
//
// Records are insert-only: the store generates a fresh UUID per insert and
// never updates or deletes. All calls acquire a connection from the shared
// pool and release it on every exit path; acquisition blocks until a
// connection frees up or the caller's context expires.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool      *pgxpool.Pool
	dimension int
	logger    *slog.Logger
}

// NewStore creates a Store over an initialized connection pool.
// dimension must match the vector(n) column in the knowledgebase table.
func NewStore(pool *pgxpool.Pool, dimension int, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dimension)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, dimension: dimension, logger: logger}, nil
}

// Insert persists a new record and returns its generated id.
//
// The write runs in its own transaction: either the record is fully visible
// to subsequent queries or nothing is persisted. Failures roll back and
// propagate to the caller.
func (s *Store) Insert(ctx context.Context, content string, embedding []float32) (uuid.UUID, error) {
	if err := s.checkDimension(embedding); err != nil {
		return uuid.Nil, err
	}

	id := uuid.New()
	vec := pgvector.NewVector(embedding)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO knowledgebase (id, content, embedding) VALUES ($1, $2, $3)`,
		id, content, vec)
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting knowledge record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("committing knowledge record: %w", err)
	}

	s.logger.Debug("knowledge record inserted", "id", id, "content_length", len(content))
	return id, nil
}

// SearchNearest returns up to limit records ordered by ascending L2 distance
// to the query embedding. limit <= 0 uses DefaultSearchLimit.
//
// The <-> operator must match the metric of the index built at write time
// (vector_l2_ops, see the knowledgebase migration).
func (s *Store) SearchNearest(ctx context.Context, embedding []float32, limit int) ([]Record, error) {
	if err := s.checkDimension(embedding); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	vec := pgvector.NewVector(embedding)

	rows, err := s.pool.Query(ctx,
		`SELECT id, content
		 FROM knowledgebase
		 ORDER BY embedding <-> $1 ASC
		 LIMIT $2`,
		vec, limit)
	if err != nil {
		return nil, fmt.Errorf("querying nearest records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Content); err != nil {
			return nil, fmt.Errorf("scanning knowledge record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading knowledge records: %w", err)
	}

	return records, nil
}

func (s *Store) checkDimension(embedding []float32) error {
	if len(embedding) != s.dimension {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(embedding), s.dimension)
	}
	return nil
}
