package retrieval

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// PGVectorStore retrieves documents from a Postgres table with a
// pgvector embedding column, ranked by L2 distance. Expected schema:
//
//	CREATE TABLE documents (
//	    id        SERIAL PRIMARY KEY,
//	    filename  TEXT,
//	    source    TEXT,
//	    content   TEXT,
//	    embedding VECTOR(<dim>)
//	);
type PGVectorStore struct {
	db       *sql.DB
	embedder Embedder
	table    string
}

// PGVectorConfig configures the Postgres-backed store.
type PGVectorConfig struct {
	DSN   string `mapstructure:"dsn" yaml:"dsn"`
	Table string `mapstructure:"table" yaml:"table"`
}

// NewPGVectorStore opens the Postgres connection and verifies it.
func NewPGVectorStore(cfg PGVectorConfig, embedder Embedder) (*PGVectorStore, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, queryError(err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, queryError(err)
	}

	table := cfg.Table
	if table == "" {
		table = "documents"
	}

	return &PGVectorStore{db: db, embedder: embedder, table: table}, nil
}

// Retrieve embeds the query and returns the topK nearest documents.
func (s *PGVectorStore) Retrieve(ctx context.Context, query string, topK int) (*Result, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, embeddingError(err)
	}

	// The <-> operator is pgvector's L2 distance; smaller is closer.
	stmt := fmt.Sprintf(
		"SELECT id, source, content, embedding <-> $1 AS distance FROM %s ORDER BY embedding <-> $1 LIMIT $2",
		s.table,
	)
	rows, err := s.db.QueryContext(ctx, stmt, pgvector.NewVector(embedding), topK)
	if err != nil {
		return nil, queryError(err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			id       int
			source   sql.NullString
			content  string
			distance float64
		)
		if err := rows.Scan(&id, &source, &content, &distance); err != nil {
			return nil, queryError(err)
		}
		docs = append(docs, Document{
			ID:      fmt.Sprintf("%d", id),
			Content: content,
			Source:  source.String,
			// Convert distance to a similarity-style score where
			// higher means more relevant.
			Score: 1.0 / (1.0 + distance),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(err)
	}

	return &Result{Documents: docs, Method: "pgvector"}, nil
}

// Close releases the database connection.
func (s *PGVectorStore) Close() error {
	return s.db.Close()
}
