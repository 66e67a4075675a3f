package category

import (
	"github.com/koopa0/chinchilla/internal/agent"
)

// Collection names in the document store, one per category.
const (
	CollectionJobs    = "jobs"
	CollectionWelfare = "welfare"
	CollectionNews    = "news"
	CollectionLegal   = "legal"
	CollectionScam    = "scamdefense"
)

// NewJobs is the elderly-jobs category: employment postings filtered by
// region and age eligibility.
func NewJobs(store Searcher) agent.Hook {
	return &hook{
		name: CollectionJobs,
		rewritePrompt: "너는 노인 채용 공고 검색요원이다. " +
			"사용자의 질의를 검색 친화 쿼리로 축약하라. " +
			"예: 지역(도/시/구), 직무 키워드, 고용형태 등. 쿼리만 반환하라.",
		answerPrompt: "너는 시니어 채용 컨설턴트다. " +
			"정확한 근거 문서와 함께, 지원 절차/주의사항을 구조적으로 답하라. " +
			"존댓말을 사용하고 어려운 용어는 쉽게 풀어서 설명하라.",
		threshold: 0.3,
		topK:      8,
		retriever: NewStoreRetriever(store, CollectionJobs),
	}
}

// NewWelfare is the culture and daily-living welfare category.
func NewWelfare(store Searcher) agent.Hook {
	return &hook{
		name: CollectionWelfare,
		rewritePrompt: "너는 문화·생활 복지 정보를 찾는 검색 전문가다. " +
			"사용자의 상담 요청을 핵심 키워드, 지역, 대상 정보를 포함한 " +
			"짧은 한국어 검색 쿼리로 재작성하라.",
		answerPrompt: "너는 문화·생활 복지 전문 상담사다. " +
			"주어진 문서에서 확인한 사실만 사용해 프로그램 명, 대상, 위치, 신청 방법을 " +
			"항목 별로 정리하고, 필요한 경우 주의사항을 덧붙여라.",
		threshold: 0.25,
		topK:      5,
		retriever: NewStoreRetriever(store, CollectionWelfare),
	}
}

// NewNews is the senior-news category.
func NewNews(store Searcher) agent.Hook {
	return &hook{
		name: CollectionNews,
		rewritePrompt: "당신은 노인 관련 뉴스 검색 전문가입니다. " +
			"사용자의 질문을 뉴스 검색에 최적화된 키워드와 문구로 재작성하세요.\n" +
			"재작성 원칙:\n" +
			"1. 핵심 키워드를 추출하세요 (인물, 장소, 사건, 주제)\n" +
			"2. 불필요한 조사와 수식어를 제거하세요\n" +
			"3. 검색에 유리한 명사형으로 변환하세요\n" +
			"4. 날짜나 지역 정보가 있으면 포함하세요\n" +
			"5. 노인 복지, 건강, 여가 활동 등 관련 키워드를 강조하세요",
		answerPrompt: "당신은 노인 사용자를 위한 뉴스 도우미입니다.\n" +
			"답변 작성 원칙:\n" +
			"1. 존댓말을 사용하고 친절하고 정중하게 답변하세요\n" +
			"2. 어려운 용어는 쉽게 풀어서 설명하세요\n" +
			"3. 중요한 정보를 강조하여 명확하게 전달하세요\n" +
			"4. 구체적인 수치, 날짜, 장소 등을 포함하세요\n" +
			"5. 여러 문서의 정보는 종합하여 일관성 있게 정리하세요\n" +
			"6. 출처를 명시하여 신뢰성을 높이세요",
		threshold: 0.5,
		topK:      5,
		retriever: NewStoreRetriever(store, CollectionNews),
	}
}

// NewLegal is the elderly legal-counsel category. The threshold is the
// strictest of the bunch because legal answers need high-precision evidence.
func NewLegal(store Searcher) agent.Hook {
	return &hook{
		name: CollectionLegal,
		rewritePrompt: "당신은 노인 법률 상담 전문가입니다. " +
			"사용자의 질문을 법률 문서 검색에 최적화된 형태로 재작성하세요.\n" +
			"재작성 시 포함할 요소:\n" +
			"- 관련 법률명 (예: 기초연금법, 노인복지법, 치매관리법)\n" +
			"- 핵심 키워드 (예: 신청 자격, 지원 금액, 급여 종류)\n" +
			"- 법률 용어로 변환 (예: '돈' → '급여', '신청' → '수급권')\n" +
			"- 구체적인 조건 (예: 연령, 소득, 거주지)\n" +
			"예시:\n" +
			"- 원본: '65세 이상 노인이 받을 수 있는 돈은?'\n" +
			"- 재작성: '65세 이상 노인 기초연금 급여 자격 요건'",
		answerPrompt: "당신은 노인을 위한 친절하고 전문적인 법률 상담 AI입니다.\n" +
			"답변 작성 규칙:\n" +
			"1. 쉽고 친절한 언어 사용 (어려운 법률 용어는 쉽게 풀어서 설명)\n" +
			"2. 관련 법률 조항을 명확히 인용 (예: '노인복지법 제26조에 따르면...')\n" +
			"3. 신청 자격을 구체적으로 안내\n" +
			"4. 신청 방법과 절차를 단계별로 설명\n" +
			"5. 필요한 서류와 준비물 안내\n" +
			"6. 문의처 안내 (해당되는 경우)\n" +
			"7. 주의사항이나 추가 정보 제공",
		threshold: 0.6,
		topK:      5,
		retriever: NewStoreRetriever(store, CollectionLegal),
	}
}
