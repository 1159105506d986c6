// Package retrieval provides document retrieval for rag nodes. It
// defines the Retriever contract plus two implementations: a pgvector
// backed Postgres store and an in-memory cosine similarity store.
package retrieval
