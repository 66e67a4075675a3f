package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/koopa0/chinchilla/internal/log"
	"github.com/koopa0/chinchilla/internal/region"
)

// node identifies one state-machine stage.
type node string

const (
	nodeRewrite        node = "rewrite"
	nodeRetrieve       node = "retrieve"
	nodeGrade          node = "grade"
	nodeWidenFilter    node = "widen_filter"
	nodeIncrementRetry node = "increment_retry"
	nodeWebsearch      node = "websearch"
	nodeMerge          node = "merge"
	nodeGenerate       node = "generate"
	nodeDone           node = "done"
)

// gradeSystemPrompt drives the yes/no semantic check. The verdict is the
// first token of the reply; anything that is not an affirmative reads as no.
const gradeSystemPrompt = "너는 검색 품질 평가자다. " +
	"주어진 문서들이 질문에 답하는 데 도움이 되는지 판단하라. " +
	"반드시 첫 단어로 yes 또는 no만 답하라. 다른 설명은 붙이지 마라."

// maxHistoryTurns bounds how much conversation context reaches the prompts.
const maxHistoryTurns = 8

// fallbackAnswer is returned when generation itself fails; the invocation
// still completes with a well-formed response.
const fallbackAnswer = "죄송합니다. 지금은 답변을 생성할 수 없습니다. 잠시 후 다시 질문해 주세요."

// insufficientEvidenceNote is prepended to the generation prompt when the
// engine exhausted every recovery lever and still has thin evidence.
const insufficientEvidenceNote = "검색된 정보가 부족하다. 아는 범위에서 답하되, " +
	"정보가 충분하지 않음을 명시하고 추측하지 마라."

// Engine runs the resolution state machine for one category. Immutable after
// construction and safe for concurrent use.
type Engine struct {
	hook   Hook
	llm    LLM
	web    WebSearcher
	logger log.Logger
	tracer trace.Tracer
}

// NewEngine binds a hook to its providers. web may be a disabled searcher
// but must not be nil.
func NewEngine(hook Hook, llm LLM, web WebSearcher, logger log.Logger) *Engine {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Engine{
		hook:   hook,
		llm:    llm,
		web:    web,
		logger: logger.With("category", hook.Name()),
		tracer: otel.Tracer("chinchilla/agent"),
	}
}

// Run resolves one request. The returned response is always well formed;
// provider failures degrade the answer rather than erroring. The only error
// returned is context cancellation, checked at node boundaries.
func (e *Engine) Run(ctx context.Context, req Request) (*Response, error) {
	ctx, span := e.tracer.Start(ctx, "agent.run",
		trace.WithAttributes(attribute.String("category", e.hook.Name())))
	defer span.End()

	st := newState(req)

	// Pattern analysis runs before rewrite for hooks that support it; the
	// node graph is unchanged.
	if pa, ok := e.hook.(PatternAnalyzer); ok {
		if analysis, matched := pa.AnalyzeQuery(req.Query, req.Sender); matched {
			st.pattern = &analysis
			e.logger.Debug("pattern analysis matched", "risk", analysis.RiskTier)
		}
	}

	current := nodeRewrite
	for current != nodeDone {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("invocation canceled at %s: %w", current, err)
		}

		st.steps++
		if st.steps > maxSteps && current != nodeGenerate {
			e.logger.Warn("step ceiling hit, forcing generation",
				"steps", st.steps, "node", current)
			current = nodeGenerate
		}
		st.trace = append(st.trace, string(current))

		switch current {
		case nodeRewrite:
			e.rewrite(ctx, st)
			current = nodeRetrieve

		case nodeRetrieve:
			e.retrieve(ctx, st)
			current = nodeGrade

		case nodeGrade:
			current = e.route(e.grade(ctx, st), st)

		case nodeWidenFilter:
			st.filterLevel++
			current = nodeRetrieve

		case nodeIncrementRetry:
			st.retryCount++
			st.filterLevel = 0
			current = nodeRewrite

		case nodeWebsearch:
			e.websearch(ctx, st)
			current = nodeMerge

		case nodeMerge:
			st.merged = mergeDocuments(st.documents, st.webDocuments, e.hook.TopK())
			current = nodeGenerate

		case nodeGenerate:
			e.generate(ctx, st)
			current = nodeDone
		}
	}

	span.SetAttributes(
		attribute.Int("filter_level", st.filterLevel),
		attribute.Int("retry_count", st.retryCount),
		attribute.Int("steps", st.steps),
	)
	return e.respond(st), nil
}

// route applies the grading transitions. The verdict is not persisted; it is
// recomputed on every grade pass.
func (e *Engine) route(relevant bool, st *state) node {
	switch {
	case relevant:
		return nodeGenerate
	case st.filterLevel < maxFilterLevel:
		return nodeWidenFilter
	case st.retryCount < maxRetries:
		return nodeIncrementRetry
	default:
		return nodeWebsearch
	}
}

// rewrite reformulates the original query for retrieval. Always re-derived
// from the original, never from a previous rewrite, to avoid drift. Provider
// failure falls back to the original query.
func (e *Engine) rewrite(ctx context.Context, st *state) {
	ctx, span := e.tracer.Start(ctx, "agent.rewrite")
	defer span.End()

	prompt := "질문: " + st.req.Query
	if st.pattern != nil {
		prompt += "\n\n사전 패턴 분석:\n" + st.pattern.Summary
	}

	reply, err := e.llm.Complete(ctx, e.hook.RewriteSystemPrompt(), prompt)
	if err != nil {
		e.logger.Warn("rewrite failed, using original query", "error", err)
		st.rewrittenQuery = st.req.Query
		return
	}
	rewritten := strings.Trim(strings.TrimSpace(reply), `"'`)
	if rewritten == "" {
		rewritten = st.req.Query
	}
	st.rewrittenQuery = rewritten
}

// retrieve replaces st.documents with up to top_k hits under the current
// filter level. Store failure degrades to an empty set, which grading will
// route into the recovery path.
func (e *Engine) retrieve(ctx context.Context, st *state) {
	ctx, span := e.tracer.Start(ctx, "agent.retrieve",
		trace.WithAttributes(attribute.Int("filter_level", st.filterLevel)))
	defer span.End()

	docs, err := e.hook.Retriever().Retrieve(ctx, st.rewrittenQuery,
		e.buildFilter(st), e.hook.TopK())
	if err != nil {
		e.logger.Warn("retrieval failed", "filter_level", st.filterLevel, "error", err)
		st.documents = nil
		return
	}
	st.documents = docs
	e.logger.Debug("retrieved documents",
		"count", len(docs), "filter_level", st.filterLevel)
}

// buildFilter derives the metadata predicate for the current filter level.
//
//	level 0: province + city + age
//	level 1: province + age
//	level 2: age only
//	level 3: none
func (e *Engine) buildFilter(st *state) Filter {
	if st.req.Profile == nil || st.filterLevel >= maxFilterLevel {
		return Filter{}
	}

	var f Filter
	if st.req.Profile.Age > 0 {
		age := st.req.Profile.Age
		f.Age = &age
	}
	if st.filterLevel <= 1 && st.req.Profile.Location != "" {
		province, city := region.Normalize(st.req.Profile.Location)
		f.Province = province
		if st.filterLevel == 0 {
			f.City = city
		}
	}
	return f
}

// grade decides relevant vs not relevant with the two-stage policy: a local
// quality triage over count and mean score, then one strict yes/no LLM check
// on the top documents. Any grading failure reads as not relevant so the
// engine keeps working its recovery levers instead of accepting bad evidence.
func (e *Engine) grade(ctx context.Context, st *state) bool {
	ctx, span := e.tracer.Start(ctx, "agent.grade")
	defer span.End()

	quality := triage(st.documents, e.hook.MinRelevanceThreshold())
	if quality == qualityLow {
		e.logger.Debug("triage rejected documents",
			"count", len(st.documents), "filter_level", st.filterLevel)
		return false
	}

	var b strings.Builder
	b.WriteString("질문: " + st.rewrittenQuery + "\n\n문서:\n")
	for i, doc := range st.documents {
		if i == 3 {
			break
		}
		fmt.Fprintf(&b, "[%d] %s\n", i+1, doc.Content)
	}

	reply, err := e.llm.Complete(ctx, gradeSystemPrompt, b.String())
	if err != nil {
		e.logger.Warn("semantic grading failed, treating as not relevant", "error", err)
		return false
	}
	return affirmative(reply)
}

type quality int

const (
	qualityLow quality = iota
	qualityMedium
	qualityHigh
)

// triage classifies a retrieved set by count and mean score without an LLM
// call. An empty set, or one where every score sits below the threshold,
// is low regardless of count.
func triage(docs []Document, threshold float64) quality {
	if len(docs) == 0 {
		return qualityLow
	}
	var sum float64
	anyAbove := false
	for _, d := range docs {
		sum += d.Score
		if d.Score >= threshold {
			anyAbove = true
		}
	}
	if !anyAbove {
		return qualityLow
	}
	mean := sum / float64(len(docs))
	switch {
	case len(docs) >= 5 && mean >= 0.7:
		return qualityHigh
	case len(docs) >= 3 && mean >= threshold:
		return qualityMedium
	default:
		return qualityLow
	}
}

// affirmative parses a grading reply: first token, lowercased, must start
// with "yes".
func affirmative(reply string) bool {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(reply)))
	if len(fields) == 0 {
		return false
	}
	token := strings.Trim(fields[0], ".,!:;")
	return strings.HasPrefix(token, "yes")
}

// websearch appends web results to the state. Pattern-derived terms take
// precedence over the rewritten query. Failure degrades to no results.
func (e *Engine) websearch(ctx context.Context, st *state) {
	ctx, span := e.tracer.Start(ctx, "agent.websearch")
	defer span.End()

	query := st.rewrittenQuery
	if st.pattern != nil && len(st.pattern.SearchTerms) > 0 {
		query = st.pattern.SearchTerms[0]
	}

	docs, err := e.web.Search(ctx, query, e.hook.TopK())
	if err != nil {
		e.logger.Warn("web search failed", "error", err)
		return
	}
	st.webDocuments = append(st.webDocuments, docs...)
	e.logger.Debug("web search completed", "query", query, "count", len(docs))
}

// mergeDocuments deduplicates by exact content, keeping the higher-scored
// instance, orders by descending score, and caps the result.
func mergeDocuments(documents, webDocuments []Document, limit int) []Document {
	byContent := make(map[string]int)
	merged := make([]Document, 0, len(documents)+len(webDocuments))

	for _, doc := range append(append([]Document{}, documents...), webDocuments...) {
		if idx, seen := byContent[doc.Content]; seen {
			if doc.Score > merged[idx].Score {
				merged[idx] = doc
			}
			continue
		}
		byContent[doc.Content] = len(merged)
		merged = append(merged, doc)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// maxSources is how many documents the response cites.
const maxSources = 5

// generate produces the terminal answer. It is the sole producer of the
// response and never fails the invocation: provider errors yield an explicit
// degraded answer.
func (e *Engine) generate(ctx context.Context, st *state) {
	ctx, span := e.tracer.Start(ctx, "agent.generate")
	defer span.End()

	docs := st.bestDocuments()

	var b strings.Builder
	if history := formatHistory(st.req.History); history != "" {
		b.WriteString("이전 대화:\n" + history + "\n\n")
	}
	if st.pattern != nil {
		b.WriteString("사전 패턴 분석:\n" + st.pattern.Summary + "\n\n")
	}
	if len(docs) == 0 {
		b.WriteString(insufficientEvidenceNote + "\n\n")
	} else {
		b.WriteString("참고 문서 (답변에 [번호]로 출처를 표시하라):\n")
		for i, doc := range docs {
			origin := "자료"
			if doc.Provenance == ProvenanceWeb {
				origin = "웹 검색"
			}
			fmt.Fprintf(&b, "[%d] (%s) %s\n", i+1, origin, doc.Content)
		}
		b.WriteString("\n")
	}
	b.WriteString("질문: " + st.req.Query)

	answer, err := e.llm.Complete(ctx, e.hook.AnswerSystemPrompt(), b.String())
	if err != nil {
		e.logger.Error("answer generation failed", "error", err)
		answer = fallbackAnswer
	}
	st.answer = strings.TrimSpace(answer)
	if st.answer == "" {
		st.answer = fallbackAnswer
	}

	n := min(maxSources, len(docs))
	st.sources = docs[:n]
}

func formatHistory(history []Message) string {
	if len(history) == 0 {
		return ""
	}
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	var b strings.Builder
	for _, m := range history {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

// respond assembles the terminal response from the final state.
func (e *Engine) respond(st *state) *Response {
	sources := make([]Source, 0, len(st.sources))
	for _, doc := range st.sources {
		sources = append(sources, Source{Content: doc.Content, Metadata: doc.Metadata})
	}

	meta := Metadata{
		Category:           e.hook.Name(),
		RewrittenQuery:     st.rewrittenQuery,
		FilterLevelReached: st.filterLevel,
		RetryCount:         st.retryCount,
		Trace:              st.trace,
	}
	if st.pattern != nil {
		meta.RiskTier = st.pattern.RiskTier
	}
	return &Response{Answer: st.answer, Sources: sources, Metadata: meta}
}
