package category

import (
	"github.com/koopa0/chinchilla/internal/agent"
	"github.com/koopa0/chinchilla/internal/scam"
)

// scamHook composes the generic hook with the local pattern matcher. The
// engine's node graph is unchanged; the matcher only enriches what flows
// into the rewrite, web-search, and answer stages.
type scamHook struct {
	hook
	matcher *scam.Matcher
}

// AnalyzeQuery implements agent.PatternAnalyzer. A query with no matched
// signal reports false so the engine skips the extra prompt context.
func (h *scamHook) AnalyzeQuery(query, sender string) (agent.PatternAnalysis, bool) {
	analysis := h.matcher.Analyze(query, sender)
	if analysis.Risk == scam.RiskNone && len(analysis.Types) == 0 {
		return agent.PatternAnalysis{}, false
	}
	return agent.PatternAnalysis{
		RiskTier:    string(analysis.Risk),
		Summary:     analysis.Summary(),
		SearchTerms: analysis.SearchTerms(),
	}, true
}

// NewScamDefense is the financial-fraud detection category. It layers the
// embedded pattern matcher on top of the shared primitives and demands a
// structured multi-section answer.
func NewScamDefense(store Searcher, matcher *scam.Matcher) agent.Hook {
	return &scamHook{
		hook: hook{
			name: CollectionScam,
			rewritePrompt: "의심 메시지를 사기 패턴 검색 쿼리로 재작성하라.\n" +
				"핵심 키워드만 추출 (OTP, 계좌이체, 본인확인, 카드정지, 보이스피싱 등)\n" +
				"예: 'KB은행 OTP 알려주세요' → '금융기관 사칭 OTP 개인정보 요구'\n" +
				"쿼리만 반환.",
			answerPrompt: "너는 금융사기 방지 전문 상담사다. " +
				"제공된 문서와 사전 패턴 분석을 바탕으로 구조화된 답변을 제공하라.\n\n" +
				"답변 구성:\n" +
				"1. 사기 여부 판단 및 위험도 평가 (매우높음/높음/중간/낮음)\n" +
				"2. 사기 유형 및 수법 설명\n" +
				"3. 즉시 해야 할 대응 방법 (우선순위별 번호 목록)\n" +
				"4. 절대 하지 말아야 할 행동 (번호 목록)\n" +
				"5. 신고 방법 및 연락처 (경찰청 182, 금융감독원 1332)\n" +
				"6. 예방 팁 및 주의사항\n\n" +
				"명확하고 실행 가능한 조언을 이해하기 쉬운 언어로 작성하되, " +
				"의심스러운 경우 신중한 태도를 유지하라.",
			threshold: 0.5,
			topK:      5,
			retriever: NewStoreRetriever(store, CollectionScam),
		},
		matcher: matcher,
	}
}
