package cmd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocuments(t *testing.T) {
	input := `{"content": "기초연금 신청 안내", "metadata": {"province": "서울"}, "min_age": 65}

{"id": "doc-2", "content": "노인 일자리 사업"}
`

	docs, err := parseDocuments("welfare", strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "welfare", docs[0].Collection)
	assert.Equal(t, "기초연금 신청 안내", docs[0].Content)
	assert.Equal(t, "서울", docs[0].Metadata["province"])
	require.NotNil(t, docs[0].MinAge)
	assert.Equal(t, 65, *docs[0].MinAge)
	assert.Empty(t, docs[0].ID)

	assert.Equal(t, "doc-2", docs[1].ID)
	assert.Nil(t, docs[1].MinAge)
}

func TestParseDocumentsNormalizesProvince(t *testing.T) {
	input := `{"content": "기초연금 신청 안내", "metadata": {"province": "서울특별시", "city": "용산구"}}
{"content": "노인 문화 프로그램", "metadata": {"province": "경기도"}}
`

	docs, err := parseDocuments("welfare", strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, docs, 2)

	// Stored province must match the short form retrieval filters carry.
	assert.Equal(t, "서울", docs[0].Metadata["province"])
	assert.Equal(t, "용산구", docs[0].Metadata["city"])
	assert.Equal(t, "경기", docs[1].Metadata["province"])
}

func TestParseDocumentsMalformedLine(t *testing.T) {
	input := `{"content": "ok"}
{not json}
`

	_, err := parseDocuments("welfare", strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestParseDocumentsMissingContent(t *testing.T) {
	input := `{"metadata": {"province": "서울"}}`

	_, err := parseDocuments("welfare", strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content is required")
}

func TestParseDocumentsEmptyInput(t *testing.T) {
	docs, err := parseDocuments("welfare", strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, docs)
}
