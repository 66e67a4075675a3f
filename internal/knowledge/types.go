package knowledge

import "time"

// Document is one retrievable knowledge chunk.
type Document struct {
	ID         string            // UUID, assigned on Add if empty
	Collection string            // category collection, e.g. "jobs"
	Content    string            // chunk text
	Metadata   map[string]string // province, city, source, ...
	MinAge     *int              // minimum eligible age, nil = no restriction
	CreatedAt  time.Time
}

// Result is a single search hit with its similarity score.
type Result struct {
	Document   Document
	Similarity float32 // cosine similarity in (0, 1]
}

// SearchOption configures a Search call using the functional options pattern.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK        int
	filter      map[string]string
	eligibleAge *int
	timeout     time.Duration
}

// WithTopK sets the maximum number of results. Default is 5.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithFilter adds a metadata containment filter. Multiple calls combine
// with AND logic. Example: WithFilter("province", "경기도").
func WithFilter(key, value string) SearchOption {
	return func(c *searchConfig) {
		if c.filter == nil {
			c.filter = make(map[string]string)
		}
		c.filter[key] = value
	}
}

// WithEligibleAge restricts results to documents whose min_age is unset or
// at most age. Documents with no age restriction always qualify.
func WithEligibleAge(age int) SearchOption {
	return func(c *searchConfig) {
		a := age
		c.eligibleAge = &a
	}
}

// WithTimeout overrides the per-query timeout. Default is 10 seconds.
func WithTimeout(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		topK:    5,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
