package scam

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMatcher(t *testing.T) *Matcher {
	t.Helper()
	m, err := NewMatcher()
	require.NoError(t, err)
	return m
}

func TestAnalyzeVoicePhishing(t *testing.T) {
	m := newTestMatcher(t)

	a := m.Analyze("검찰청 수사관입니다. 계좌가 범죄에 연루되어 안전계좌로 이체하셔야 합니다", "02-112-0000")

	assert.Equal(t, "보이스피싱", a.TopType)
	assert.Equal(t, RiskVeryHigh, a.Risk)
	assert.True(t, a.HighRisk)
	require.NotEmpty(t, a.Types)
	assert.Contains(t, a.Types[0].MatchedPatterns, "안전계좌")
	// "안전계좌" is also a high-risk keyword; both contributions count.
	assert.Contains(t, a.KeywordHits["high_risk"], "안전계좌")
	// Official 검찰청 contact surfaces for verification.
	var orgs []string
	for _, c := range a.LegitimateContacts {
		orgs = append(orgs, c.Organization)
	}
	assert.Contains(t, orgs, "검찰청")
}

func TestAnalyzeKeywordOnly(t *testing.T) {
	m := newTestMatcher(t)

	a := m.Analyze("OTP 번호 좀 알려주세요", "")
	assert.Empty(t, a.TopType)
	assert.Equal(t, 10, a.Score, "one high-risk keyword")
	assert.Equal(t, RiskHigh, a.Risk)

	a = m.Analyze("본인확인 부탁드립니다", "")
	assert.Equal(t, 5, a.Score, "one medium-risk keyword")
	assert.Equal(t, RiskMedium, a.Risk)
	assert.False(t, a.HighRisk)
}

func TestAnalyzeBenignQuery(t *testing.T) {
	m := newTestMatcher(t)

	a := m.Analyze("내일 날씨가 어떤가요", "")
	assert.Equal(t, RiskNone, a.Risk)
	assert.Zero(t, a.Score)
	assert.Empty(t, a.Types)
	assert.Nil(t, a.SearchTerms())
	assert.Equal(t, "매칭된 사기 패턴 없음", a.Summary())
}

func TestAnalyzeEmptyQuery(t *testing.T) {
	m := newTestMatcher(t)
	a := m.Analyze("   ", "010-1234-5678")
	assert.Equal(t, RiskNone, a.Risk)
}

func TestAnalyzeSenderPattern(t *testing.T) {
	m := newTestMatcher(t)

	a := m.Analyze("택배 주소 불일치로 배송이 보류되었습니다 링크를 클릭", "+84-90-000-0000")
	assert.Equal(t, "스미싱", a.TopType)
	// Two content patterns plus the +84 sender pattern.
	require.Len(t, a.Types, 1)
	assert.Len(t, a.Types[0].MatchedPatterns, 3)
}

func TestAnalyzeTieBreakByRegistrationOrder(t *testing.T) {
	raw := []byte(`{
		"financial_scams": [
			{"type": "first", "danger_level": "높음", "patterns": ["alpha"]},
			{"type": "second", "danger_level": "높음", "patterns": ["beta"]}
		],
		"keywords": {},
		"legitimate_contacts": {}
	}`)
	m, err := newMatcherFromJSON(raw)
	require.NoError(t, err)

	a := m.Analyze("alpha and beta both appear", "")
	require.Len(t, a.Types, 2)
	assert.Equal(t, a.Types[0].Score, a.Types[1].Score)
	assert.Equal(t, "first", a.TopType, "equal scores resolve to registration order")
}

func TestAnalyzeExtractsSignals(t *testing.T) {
	m := newTestMatcher(t)

	a := m.Analyze("여기로 접속하세요 http://evil-parcel.xyz/track 그리고 010-1234-5678로 전화주세요", "")
	assert.Contains(t, a.URLs, "http://evil-parcel.xyz/track")
	assert.Contains(t, a.Phones, "010-1234-5678")
}

func TestSearchTerms(t *testing.T) {
	m := newTestMatcher(t)

	a := m.Analyze("검찰청 수사관인데 안전계좌로 계좌이체 하세요", "")
	terms := a.SearchTerms()
	require.NotEmpty(t, terms)
	assert.Contains(t, terms[0], "보이스피싱")
	assert.Contains(t, terms[0], "최신 수법 신고")

	// Keyword-only analysis still produces a term.
	a = m.Analyze("OTP 알려달라는데요", "")
	terms = a.SearchTerms()
	require.NotEmpty(t, terms)
	assert.Contains(t, terms[0], "OTP")
}

func TestSummaryIncludesMatches(t *testing.T) {
	m := newTestMatcher(t)

	s := m.Analyze("저금리 대환대출 해드립니다 선입금 수수료 필요", "").Summary()
	assert.Contains(t, s, "대출사기")
	assert.Contains(t, s, "위험도:")
}

func TestSummaryDeterministic(t *testing.T) {
	m := newTestMatcher(t)

	// Hits both keyword levels so the rendering order of the level lines
	// is exercised.
	a := m.Analyze("OTP 번호로 본인확인 부탁드립니다", "")
	require.NotEmpty(t, a.KeywordHits["high_risk"])
	require.NotEmpty(t, a.KeywordHits["medium_risk"])

	first := a.Summary()
	for range 20 {
		assert.Equal(t, first, a.Summary())
	}
	assert.Less(t, strings.Index(first, "위험 키워드(high_risk)"),
		strings.Index(first, "위험 키워드(medium_risk)"),
		"high-risk keywords render before medium-risk")
}
