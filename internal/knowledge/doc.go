// Package knowledge implements the document store backing retrieval.
//
// Documents live in a single PostgreSQL table with a pgvector embedding
// column, logically partitioned by collection (one collection per answer
// category). Search is cosine-similarity nearest neighbour, optionally
// narrowed by JSONB metadata containment and an age-eligibility predicate;
// the resolution engine uses those options to widen its filter step by step
// when results are thin.
package knowledge
