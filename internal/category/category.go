// Package category defines the per-category hooks that parameterize the
// resolution engine: prompts, thresholds, top-k, and the document-store
// retriever for each answer domain. Adding a category means adding one
// constructor here; the engine is untouched.
package category

import (
	"context"

	"github.com/koopa0/chinchilla/internal/agent"
	"github.com/koopa0/chinchilla/internal/knowledge"
)

// Searcher is the slice of knowledge.Store the retriever consumes.
type Searcher interface {
	Search(ctx context.Context, collection, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// hook is the shared agent.Hook implementation. All categories are instances
// of this struct; behavior differences live entirely in configuration.
type hook struct {
	name          string
	rewritePrompt string
	answerPrompt  string
	threshold     float64
	topK          int
	retriever     agent.Retriever
}

func (h *hook) Name() string                   { return h.name }
func (h *hook) RewriteSystemPrompt() string    { return h.rewritePrompt }
func (h *hook) AnswerSystemPrompt() string     { return h.answerPrompt }
func (h *hook) MinRelevanceThreshold() float64 { return h.threshold }
func (h *hook) TopK() int                      { return h.topK }
func (h *hook) Retriever() agent.Retriever     { return h.retriever }

// StoreRetriever adapts one collection of the knowledge store to the
// engine's Retriever interface, translating the engine's filter into
// metadata and age predicates.
type StoreRetriever struct {
	store      Searcher
	collection string
}

// NewStoreRetriever binds a retriever to one collection.
func NewStoreRetriever(store Searcher, collection string) *StoreRetriever {
	return &StoreRetriever{store: store, collection: collection}
}

// Retrieve implements agent.Retriever.
func (r *StoreRetriever) Retrieve(ctx context.Context, query string, filter agent.Filter, topK int) ([]agent.Document, error) {
	opts := []knowledge.SearchOption{knowledge.WithTopK(topK)}
	if filter.Province != "" {
		opts = append(opts, knowledge.WithFilter("province", filter.Province))
	}
	if filter.City != "" {
		opts = append(opts, knowledge.WithFilter("city", filter.City))
	}
	if filter.Age != nil {
		opts = append(opts, knowledge.WithEligibleAge(*filter.Age))
	}

	results, err := r.store.Search(ctx, r.collection, query, opts...)
	if err != nil {
		return nil, err
	}

	docs := make([]agent.Document, 0, len(results))
	for _, res := range results {
		docs = append(docs, agent.Document{
			Content:    res.Document.Content,
			Metadata:   res.Document.Metadata,
			Score:      float64(res.Similarity),
			Provenance: agent.ProvenanceIndex,
		})
	}
	return docs, nil
}
