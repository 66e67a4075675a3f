package agent

import "context"

// LLM is the completion capability the engine consumes. Implementations must
// support both the short yes/no grading call and full answer generation.
type LLM interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Filter is the metadata predicate a retrieval call carries. Zero-value
// fields mean "no constraint on this axis"; the engine clears fields as the
// filter level widens.
type Filter struct {
	Province string
	City     string
	// Age, when non-nil, restricts to documents whose minimum eligible age
	// is unset or at most this value.
	Age *int
}

// Retriever is a stateless façade over one category's document store.
type Retriever interface {
	Retrieve(ctx context.Context, query string, filter Filter, topK int) ([]Document, error)
}

// WebSearcher is the optional web fallback. Implementations must return an
// empty result, not an error, when no provider is configured.
type WebSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]Document, error)
}

// Hook is the per-category configuration contract. Implementations are built
// once at startup and shared read-only across concurrent invocations.
type Hook interface {
	// Name is the category identifier used for dispatch.
	Name() string
	// RewriteSystemPrompt steers query reformulation for retrieval.
	RewriteSystemPrompt() string
	// AnswerSystemPrompt steers final answer generation.
	AnswerSystemPrompt() string
	// MinRelevanceThreshold is the similarity floor in (0,1) below which a
	// document does not count as evidence.
	MinRelevanceThreshold() float64
	// TopK is how many documents each retrieval requests.
	TopK() int
	// Retriever returns the category's document store façade.
	Retriever() Retriever
}

// PatternAnalyzer is an optional Hook extension. When implemented, the engine
// runs it on the raw query before rewrite and threads its output into the
// rewrite prompt, the web-search query, and the answer prompt. The node graph
// itself is unchanged.
type PatternAnalyzer interface {
	AnalyzeQuery(query, sender string) (PatternAnalysis, bool)
}
