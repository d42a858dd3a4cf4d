// Package textsim holds the text and vector similarity primitives the search
// path relies on: accent and case folding, trigram similarity with the same
// semantics as PostgreSQL's pg_trgm, and cosine similarity over embeddings.
//
// The PostgreSQL repository delegates these computations to the database
// (unaccent, pg_trgm, pgvector). The in-memory repository and the embeddings
// service use this package directly.
package textsim
