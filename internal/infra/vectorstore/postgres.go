package vectorstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/yanqian/sales-assistant/internal/domain/index"
)

// PostgresCollection implements index.Collection on pgvector. Replace
// runs delete+insert inside one transaction; MVCC keeps concurrent
// readers on the previous generation until the commit, which gives the
// required all-or-nothing swap.
type PostgresCollection struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresCollection constructs the collection over an existing pool.
func NewPostgresCollection(pool *pgxpool.Pool, table string) *PostgresCollection {
	if table == "" {
		table = "qa_documents"
	}
	return &PostgresCollection{pool: pool, table: table}
}

// EnsureSchema creates the extension and table when missing. The
// embedding column is dimensionless so a corpus re-embedded with a
// different model still fits; every Replace rewrites all rows, which
// keeps the collection single-dimension in practice.
func (c *PostgresCollection) EnsureSchema(ctx context.Context) error {
	if _, err := c.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}
	_, err := c.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			doc_id    text PRIMARY KEY,
			question  text NOT NULL,
			answer    text NOT NULL,
			embedding vector NOT NULL
		)
	`, c.table))
	if err != nil {
		return fmt.Errorf("create collection table: %w", err)
	}
	return nil
}

// Replace implements index.Collection.
func (c *PostgresCollection) Replace(ctx context.Context, docs []index.Document) error {
	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin replace tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s`, c.table)); err != nil {
		return fmt.Errorf("clear previous generation: %w", err)
	}
	for _, doc := range docs {
		_, err := tx.Exec(ctx, fmt.Sprintf(`
			INSERT INTO %s (doc_id, question, answer, embedding)
			VALUES ($1, $2, $3, $4)
		`, c.table), doc.ID, doc.Question, doc.Answer, pgvector.NewVector(doc.Embedding))
		if err != nil {
			return fmt.Errorf("insert %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace tx: %w", err)
	}
	return nil
}

// Search implements index.Collection using cosine distance. doc_id is a
// secondary sort key so equal distances order deterministically.
func (c *PostgresCollection) Search(ctx context.Context, embedding []float32, topK int) ([]index.Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	rows, err := c.pool.Query(ctx, fmt.Sprintf(`
		SELECT doc_id, question, answer, embedding <=> $1 AS distance
		FROM %s
		ORDER BY distance, doc_id
		LIMIT $2
	`, c.table), pgvector.NewVector(embedding), topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []index.Match
	for rows.Next() {
		var match index.Match
		if err := rows.Scan(&match.Document.ID, &match.Document.Question, &match.Document.Answer, &match.Distance); err != nil {
			return nil, err
		}
		matches = append(matches, match)
	}
	return matches, rows.Err()
}

// Count implements index.Collection.
func (c *PostgresCollection) Count(ctx context.Context) (int, error) {
	var count int
	err := c.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, c.table)).Scan(&count)
	return count, err
}

var _ index.Collection = (*PostgresCollection)(nil)
