package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/koopa0/chinchilla/internal/log"
)

// DB is the subset of pgxpool.Pool the store needs. Defined on the consumer
// side so tests can substitute a lightweight fake.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store manages documents with vector search over PostgreSQL + pgvector.
// It embeds content through the configured Genkit embedder on both the write
// and the query path, so callers only ever deal in text.
//
// Store is safe for concurrent use.
type Store struct {
	db       DB
	embedder ai.Embedder
	logger   log.Logger
}

// New creates a Store. A nil logger falls back to a no-op logger.
func New(db DB, embedder ai.Embedder, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{db: db, embedder: embedder, logger: logger}
}

// Add embeds and upserts one document. An empty ID gets a fresh UUID.
func (s *Store) Add(ctx context.Context, doc Document) error {
	if doc.Collection == "" {
		return errors.New("document collection must not be empty")
	}
	if doc.Content == "" {
		return errors.New("document content must not be empty")
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	embedding, err := s.embed(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("embedding document %q: %w", doc.ID, err)
	}

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO documents (id, collection, content, embedding, metadata, min_age)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			collection = EXCLUDED.collection,
			content    = EXCLUDED.content,
			embedding  = EXCLUDED.embedding,
			metadata   = EXCLUDED.metadata,
			min_age    = EXCLUDED.min_age`,
		doc.ID, doc.Collection, doc.Content, embedding, metadataJSON, doc.MinAge)
	if err != nil {
		return fmt.Errorf("upserting document %q: %w", doc.ID, err)
	}

	s.logger.Debug("added document",
		"id", doc.ID, "collection", doc.Collection, "content_length", len(doc.Content))
	return nil
}

// Search returns the documents in collection most similar to query, ordered
// by descending cosine similarity.
//
// Example:
//
//	results, err := store.Search(ctx, "jobs", "경비 일자리",
//	    knowledge.WithTopK(10),
//	    knowledge.WithFilter("province", "경기도"),
//	    knowledge.WithEligibleAge(68))
func (s *Store) Search(ctx context.Context, collection, query string, opts ...SearchOption) ([]Result, error) {
	if collection == "" {
		return nil, errors.New("collection must not be empty")
	}
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	embedding, err := s.embed(queryCtx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	// filter and eligibleAge are nullable parameters; NULL disables the
	// corresponding predicate, which is what filter widening relies on.
	var filterJSON []byte
	if len(cfg.filter) > 0 {
		filterJSON, err = json.Marshal(cfg.filter)
		if err != nil {
			return nil, fmt.Errorf("marshaling filter: %w", err)
		}
	}

	rows, err := s.db.Query(queryCtx, `
		SELECT id, content, metadata, min_age, created_at,
		       1 - (embedding <=> $1) AS similarity
		FROM documents
		WHERE collection = $2
		  AND ($3::jsonb IS NULL OR metadata @> $3)
		  AND ($4::int IS NULL OR min_age IS NULL OR min_age <= $4)
		ORDER BY embedding <=> $1
		LIMIT $5`,
		embedding, collection, filterJSON, cfg.eligibleAge, cfg.topK)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search query timeout: %w", err)
		}
		return nil, fmt.Errorf("searching collection %q: %w", collection, err)
	}
	defer rows.Close()

	results := make([]Result, 0, cfg.topK)
	for rows.Next() {
		var (
			r            Result
			metadataJSON []byte
		)
		if err := rows.Scan(&r.Document.ID, &r.Document.Content, &metadataJSON,
			&r.Document.MinAge, &r.Document.CreatedAt, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		r.Document.Collection = collection
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &r.Document.Metadata); err != nil {
				s.logger.Warn("unparseable document metadata", "id", r.Document.ID, "error", err)
				r.Document.Metadata = map[string]string{}
			}
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading search rows: %w", err)
	}
	return results, nil
}

// Count returns the number of documents in collection. An empty collection
// counts everything.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	var count int64
	var err error
	if collection == "" {
		err = s.db.QueryRow(ctx, `SELECT count(*) FROM documents`).Scan(&count)
	} else {
		err = s.db.QueryRow(ctx,
			`SELECT count(*) FROM documents WHERE collection = $1`, collection).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	if count > math.MaxInt {
		return 0, fmt.Errorf("document count %d exceeds platform int capacity", count)
	}
	return int(count), nil
}

// embed runs one text through the Genkit embedder and returns a pgvector
// value ready for binding.
func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{ai.DocumentFromText(text, nil)},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return pgvector.Vector{}, fmt.Errorf("embedding timeout: %w", err)
		}
		return pgvector.Vector{}, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, errors.New("embedder returned no embedding")
	}
	return pgvector.NewVector(resp.Embeddings[0].Embedding), nil
}

// Healthy reports whether the underlying database answers a trivial query
// within the deadline. Used by the readiness endpoint.
func (s *Store) Healthy(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var one int
	if err := s.db.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	return nil
}
