package vectorindex

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/yanqian/iso-insight/internal/domain/insight"
)

// Postgres stores the corpus in a pgvector table and searches with the L2 operator.
type Postgres struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgres constructs the store; table is quoted before use.
func NewPostgres(pool *pgxpool.Pool, table string) *Postgres {
	if table == "" {
		table = "iso_documents"
	}
	return &Postgres{pool: pool, table: pgx.Identifier{table}.Sanitize()}
}

// Replace drops and reloads the table inside one transaction.
func (p *Postgres) Replace(ctx context.Context, docs []insight.IndexedDocument) error {
	if len(docs) == 0 {
		return errors.New("no documents to index")
	}
	dim := len(docs[0].Embedding)

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin index load: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`DROP TABLE IF EXISTS %s`, p.table),
		fmt.Sprintf(`CREATE TABLE %s (
			row_index INTEGER PRIMARY KEY,
			source    TEXT NOT NULL,
			content   TEXT NOT NULL,
			embedding vector(%d) NOT NULL
		)`, p.table, dim),
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("prepare index table: %w", err)
		}
	}

	batch := &pgx.Batch{}
	insert := fmt.Sprintf(`INSERT INTO %s (row_index, source, content, embedding) VALUES ($1, $2, $3, $4)`, p.table)
	for _, doc := range docs {
		batch.Queue(insert, doc.Document.Row, doc.Document.Source, doc.Document.Content, pgvector.NewVector(doc.Embedding))
	}
	results := tx.SendBatch(ctx, batch)
	for range docs {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("insert indexed document: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("finish index batch: %w", err)
	}
	return tx.Commit(ctx)
}

// Search returns the k nearest rows, ties ordered by row index.
func (p *Postgres) Search(ctx context.Context, embedding []float32, k int) ([]insight.Document, error) {
	rows, err := p.pool.Query(ctx, fmt.Sprintf(`
		SELECT row_index, source, content
		FROM %s
		ORDER BY embedding <-> $1, row_index
		LIMIT $2
	`, p.table), pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]insight.Document, 0, k)
	for rows.Next() {
		var doc insight.Document
		if err := rows.Scan(&doc.Row, &doc.Source, &doc.Content); err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

var _ insight.VectorStore = (*Postgres)(nil)
