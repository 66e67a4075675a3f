package agent

// Resolution bounds. maxFilterLevel and maxRetries are the single source of
// truth consulted by the routing logic; the widen/retry nodes themselves
// never re-check them.
const (
	maxFilterLevel = 3
	maxRetries     = 2

	// maxSteps is a defensive ceiling on node executions. The monotonic
	// counters already guarantee termination; hitting this means a hook or
	// provider misbehaved, and the engine forces generation with whatever
	// documents it has. The longest legitimate path (full exhaustion down
	// to the web fallback) executes 41 nodes.
	maxSteps = 45
)

// Provenance tags where a document came from.
type Provenance string

const (
	ProvenanceIndex Provenance = "index"
	ProvenanceWeb   Provenance = "web"
)

// Document is one piece of retrieved evidence. Immutable once retrieved;
// only merge deduplicates and reorders.
type Document struct {
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Score      float64           `json:"score"`
	Provenance Provenance        `json:"provenance"`
}

// Profile carries the optional user attributes retrieval filters on.
type Profile struct {
	Age      int    `json:"age,omitempty"`
	Gender   string `json:"gender,omitempty"`
	Location string `json:"location,omitempty"`
}

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is one validated query. Immutable once accepted.
type Request struct {
	Category string    `json:"category"`
	Query    string    `json:"query"`
	Profile  *Profile  `json:"profile,omitempty"`
	History  []Message `json:"history,omitempty"`
	// Sender is the suspicious message's sender, used only by categories
	// with a pattern analyzer.
	Sender string `json:"sender,omitempty"`
}

// Source is one citation in the response.
type Source struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Metadata describes how the engine arrived at the answer.
type Metadata struct {
	Category           string   `json:"category"`
	RewrittenQuery     string   `json:"rewritten_query"`
	FilterLevelReached int      `json:"filter_level_reached"`
	RetryCount         int      `json:"retry_count"`
	RiskTier           string   `json:"risk_tier,omitempty"`
	Trace              []string `json:"trace,omitempty"`
}

// Response is the terminal output of one invocation.
type Response struct {
	Answer   string   `json:"answer"`
	Sources  []Source `json:"sources"`
	Metadata Metadata `json:"metadata"`
}

// PatternAnalysis is the pre-retrieval signal a PatternAnalyzer hook feeds
// into the rewrite, websearch, and generate stages.
type PatternAnalysis struct {
	RiskTier    string
	Summary     string
	SearchTerms []string
}

// state is the mutable working record threaded through one invocation.
// Request-scoped, never shared.
type state struct {
	req Request

	rewrittenQuery string
	documents      []Document
	webDocuments   []Document
	merged         []Document

	filterLevel int
	retryCount  int
	steps       int

	pattern *PatternAnalysis

	answer  string
	sources []Document

	trace []string
}

func newState(req Request) *state {
	return &state{req: req, rewrittenQuery: req.Query}
}

// bestDocuments returns the evidence set generation should use.
func (s *state) bestDocuments() []Document {
	if len(s.merged) > 0 {
		return s.merged
	}
	return s.documents
}
