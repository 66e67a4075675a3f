package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/chinchilla/internal/agent"
	"github.com/koopa0/chinchilla/internal/knowledge"
	"github.com/koopa0/chinchilla/internal/llm"
	"github.com/koopa0/chinchilla/internal/log"
	"github.com/koopa0/chinchilla/internal/websearch"
)

func TestProvideRegistryRegistersAllCategories(t *testing.T) {
	store := knowledge.New(nil, nil, log.NewNop())
	client := llm.New(nil, llm.Options{ModelName: "googleai/test"})
	web := websearch.New("", time.Second, log.NewNop())

	registry, err := provideRegistry(store, client, web, log.NewNop())
	require.NoError(t, err)

	assert.Equal(t, []string{"jobs", "legal", "news", "scamdefense", "welfare"}, registry.Categories())
}

func TestWebSearcherMapsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results": [
			{"title": "노인 일자리 안내", "url": "https://example.com/a", "content": "시니어 일자리 정보"}
		]}`))
	}))
	defer srv.Close()

	ws := &webSearcher{client: websearch.New(srv.URL, time.Second, log.NewNop())}

	docs, err := ws.Search(context.Background(), "일자리", 5)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "시니어 일자리 정보", docs[0].Content)
	assert.Equal(t, "노인 일자리 안내", docs[0].Metadata["title"])
	assert.Equal(t, "https://example.com/a", docs[0].Metadata["url"])
	assert.Equal(t, agent.ProvenanceWeb, docs[0].Provenance)
	assert.Zero(t, docs[0].Score)
}

func TestWebSearcherDisabledReturnsNoDocuments(t *testing.T) {
	ws := &webSearcher{client: websearch.New("", time.Second, log.NewNop())}

	docs, err := ws.Search(context.Background(), "일자리", 5)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestCloseOnPartiallyInitializedApp(t *testing.T) {
	a := &App{logger: log.NewNop()}
	assert.NoError(t, a.Close())
}
