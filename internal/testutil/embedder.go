package testutil

import (
	"context"
	"hash/fnv"
	"math"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
)

// MockEmbedder is a deterministic ai.Embedder for tests. The same text always
// maps to the same unit vector, so similarity ordering is stable across runs
// without any API key or network access.
//
// Tests that need precise similarity ordering can pin exact vectors with Set.
type MockEmbedder struct {
	mu     sync.Mutex
	Dims   int
	pinned map[string][]float32
	// Err, when set, is returned by every Embed call.
	Err error
}

// NewMockEmbedder returns a MockEmbedder producing 768-dimension vectors,
// matching the documents table schema.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{Dims: 768}
}

// Set pins the vector returned for an exact text. The vector is normalized
// on the way out, not here.
func (m *MockEmbedder) Set(text string, vec []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pinned == nil {
		m.pinned = make(map[string][]float32)
	}
	m.pinned[text] = vec
}

// Name implements ai.Embedder.
func (*MockEmbedder) Name() string { return "testutil/mock-embedder" }

// Register implements ai.Embedder.
func (*MockEmbedder) Register(api.Registry) {}

// Embed implements ai.Embedder.
func (m *MockEmbedder) Embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	resp := &ai.EmbedResponse{}
	for _, doc := range req.Input {
		var text string
		for _, part := range doc.Content {
			text += part.Text
		}
		vec, ok := m.pinned[text]
		if !ok {
			vec = hashVector(text, m.Dims)
		}
		resp.Embeddings = append(resp.Embeddings, &ai.Embedding{Embedding: normalize(vec, m.Dims)})
	}
	return resp, nil
}

// hashVector derives a pseudo-random vector from the text via an FNV-seeded
// linear congruential sequence.
func hashVector(text string, dims int) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	state := h.Sum64()

	vec := make([]float32, dims)
	for i := range vec {
		state = state*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(state>>33))/float32(math.MaxInt32) - 0.5
	}
	return vec
}

// normalize pads or truncates to dims and scales to unit length so cosine
// distance behaves like it does with real embeddings.
func normalize(vec []float32, dims int) []float32 {
	out := make([]float32, dims)
	copy(out, vec)

	var sum float64
	for _, v := range out {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		out[0] = 1
		return out
	}
	norm := float32(math.Sqrt(sum))
	for i := range out {
		out[i] /= norm
	}
	return out
}
