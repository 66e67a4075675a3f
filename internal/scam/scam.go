// Package scam implements the local pattern matcher that runs before
// retrieval for the scam-defense category. Scoring is pure table lookup over
// an embedded dataset, so analysis costs microseconds and never touches the
// network; the result seeds the rewrite and answer prompts and the targeted
// web-search terms.
package scam

import (
	"embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

//go:embed data/scam_patterns.json
var patternsFS embed.FS

// RiskTier classifies the aggregate pattern score.
type RiskTier string

const (
	RiskNone     RiskTier = "none"
	RiskLow      RiskTier = "low"
	RiskMedium   RiskTier = "medium"
	RiskHigh     RiskTier = "high"
	RiskVeryHigh RiskTier = "very_high"
)

// Keyword weights and per-match pattern weights. A scam-type pattern match
// counts according to the dataset's danger level for that scam type.
const (
	highRiskKeywordWeight   = 10
	mediumRiskKeywordWeight = 5
)

var dangerWeights = map[string]int{
	"매우높음": 12,
	"높음":   8,
	"중간":   4,
	"낮음":   2,
	"정보":   1,
}

// Tier thresholds over the total score.
const (
	lowThreshold      = 1
	mediumThreshold   = 5
	highThreshold     = 10
	veryHighThreshold = 20
)

// dataset mirrors the embedded JSON.
type dataset struct {
	FinancialScams []struct {
		Type           string   `json:"type"`
		DangerLevel    string   `json:"danger_level"`
		Patterns       []string `json:"patterns"`
		SenderPatterns []string `json:"sender_patterns"`
	} `json:"financial_scams"`
	Keywords           map[string][]string `json:"keywords"`
	LegitimateContacts map[string]string   `json:"legitimate_contacts"`
}

// TypeMatch is one scam type that matched the query or sender.
type TypeMatch struct {
	Type            string   `json:"type"`
	DangerLevel     string   `json:"danger_level"`
	MatchedPatterns []string `json:"matched_patterns"`
	Score           int      `json:"score"`
}

// Contact is a verified official contact found in the message.
type Contact struct {
	Organization string `json:"organization"`
	Phone        string `json:"phone"`
}

// Analysis is the full output of one pattern pass.
type Analysis struct {
	Risk     RiskTier `json:"risk"`
	Score    int      `json:"score"`
	HighRisk bool     `json:"high_risk"`

	// TopType is the best-scoring matched scam type, empty when nothing
	// matched. Ties go to the type registered first in the dataset.
	TopType string      `json:"top_type,omitempty"`
	Types   []TypeMatch `json:"types,omitempty"`

	// KeywordHits maps risk level ("high_risk", "medium_risk") to the
	// keywords found in the query.
	KeywordHits map[string][]string `json:"keyword_hits,omitempty"`

	// LegitimateContacts lists official organizations whose name or number
	// appears in the message, useful for "is this number real" questions.
	LegitimateContacts []Contact `json:"legitimate_contacts,omitempty"`

	// Extracted signals.
	Phones []string `json:"phones,omitempty"`
	URLs   []string `json:"urls,omitempty"`
}

var (
	phonePattern = regexp.MustCompile(`(\+?\d{1,3}[- ]?)?\d{2,4}[- ]?\d{3,4}[- ]?\d{4}|\d{3,4}(-\d{4})?`)
	urlPattern   = regexp.MustCompile(`https?://[^\s<>"']+|[\w-]+\.(?:com|net|org|kr|link|xyz|top|shop)(?:/[^\s<>"']*)?`)
	digitsOnly   = regexp.MustCompile(`\D+`)
)

// Matcher scores queries against the embedded scam dataset.
// Safe for concurrent use after construction.
type Matcher struct {
	data dataset
}

// NewMatcher loads the embedded dataset.
func NewMatcher() (*Matcher, error) {
	raw, err := patternsFS.ReadFile("data/scam_patterns.json")
	if err != nil {
		return nil, fmt.Errorf("reading embedded scam patterns: %w", err)
	}
	return newMatcherFromJSON(raw)
}

func newMatcherFromJSON(raw []byte) (*Matcher, error) {
	var data dataset
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parsing scam patterns: %w", err)
	}
	return &Matcher{data: data}, nil
}

// Analyze scores one suspicious message. sender may be empty.
func (m *Matcher) Analyze(query, sender string) Analysis {
	queryLower := strings.ToLower(strings.TrimSpace(query))
	senderLower := strings.ToLower(strings.TrimSpace(sender))
	if queryLower == "" {
		return Analysis{Risk: RiskNone}
	}
	queryDigits := digitsOnly.ReplaceAllString(query, "")
	senderDigits := digitsOnly.ReplaceAllString(sender, "")

	a := Analysis{}

	// Scam-type patterns. Iteration follows dataset order so equal scores
	// resolve to the first-registered type.
	topScore := -1
	for _, scam := range m.data.FinancialScams {
		var hits []string
		for _, p := range scam.Patterns {
			if p != "" && strings.Contains(queryLower, strings.ToLower(p)) {
				hits = append(hits, p)
			}
		}
		for _, p := range scam.SenderPatterns {
			pl := strings.ToLower(p)
			if p == "" {
				continue
			}
			if strings.Contains(queryLower, pl) || (senderLower != "" && strings.Contains(senderLower, pl)) {
				hits = append(hits, p)
			}
		}
		if len(hits) == 0 {
			continue
		}

		score := len(hits) * dangerWeights[scam.DangerLevel]
		a.Types = append(a.Types, TypeMatch{
			Type:            scam.Type,
			DangerLevel:     scam.DangerLevel,
			MatchedPatterns: hits,
			Score:           score,
		})
		a.Score += score
		if score > topScore {
			topScore = score
			a.TopType = scam.Type
		}
	}

	// Weighted keyword hits.
	for level, keywords := range m.data.Keywords {
		weight := mediumRiskKeywordWeight
		if level == "high_risk" {
			weight = highRiskKeywordWeight
		}
		for _, kw := range keywords {
			if kw != "" && strings.Contains(queryLower, strings.ToLower(kw)) {
				if a.KeywordHits == nil {
					a.KeywordHits = make(map[string][]string)
				}
				a.KeywordHits[level] = append(a.KeywordHits[level], kw)
				a.Score += weight
			}
		}
	}

	// Official contacts mentioned by name or number.
	for org, phone := range m.data.LegitimateContacts {
		normPhone := digitsOnly.ReplaceAllString(phone, "")
		if strings.Contains(queryLower, strings.ToLower(org)) ||
			(normPhone != "" && (strings.Contains(queryDigits, normPhone) || strings.Contains(senderDigits, normPhone))) {
			a.LegitimateContacts = append(a.LegitimateContacts, Contact{Organization: org, Phone: phone})
		}
	}

	a.Phones = uniqueMatches(phonePattern, query+" "+sender, 5)
	a.URLs = uniqueMatches(urlPattern, query, 5)

	a.Risk = tierFor(a.Score)
	a.HighRisk = a.Risk == RiskHigh || a.Risk == RiskVeryHigh
	return a
}

// SearchTerms builds targeted web-search queries from the analysis, e.g.
// "보이스피싱 안전계좌 최신 수법 신고". Empty when nothing matched.
func (a Analysis) SearchTerms() []string {
	if a.TopType == "" && len(a.KeywordHits) == 0 {
		return nil
	}
	var terms []string
	keyword := ""
	if hits := a.KeywordHits["high_risk"]; len(hits) > 0 {
		keyword = hits[0]
	} else if hits := a.KeywordHits["medium_risk"]; len(hits) > 0 {
		keyword = hits[0]
	}
	if a.TopType != "" {
		terms = append(terms, strings.TrimSpace(a.TopType+" "+keyword+" 최신 수법 신고"))
	} else if keyword != "" {
		terms = append(terms, keyword+" 사기 최신 수법 신고")
	}
	return terms
}

// Summary renders the analysis as prompt-ready Korean text.
func (a Analysis) Summary() string {
	if a.Risk == RiskNone && len(a.Types) == 0 {
		return "매칭된 사기 패턴 없음"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "위험도: %s (점수 %d)\n", koreanTier(a.Risk), a.Score)
	if len(a.Types) > 0 {
		b.WriteString("매칭 유형:\n")
		for _, t := range a.Types {
			fmt.Fprintf(&b, "- %s (%s): %s\n", t.Type, t.DangerLevel, strings.Join(t.MatchedPatterns, ", "))
		}
	}
	// Fixed level order keeps the prompt text deterministic per input.
	for _, level := range []string{"high_risk", "medium_risk"} {
		if hits := a.KeywordHits[level]; len(hits) > 0 {
			fmt.Fprintf(&b, "위험 키워드(%s): %s\n", level, strings.Join(hits, ", "))
		}
	}
	for _, c := range a.LegitimateContacts {
		fmt.Fprintf(&b, "공식 연락처 확인: %s %s\n", c.Organization, c.Phone)
	}
	return strings.TrimRight(b.String(), "\n")
}

func tierFor(score int) RiskTier {
	switch {
	case score >= veryHighThreshold:
		return RiskVeryHigh
	case score >= highThreshold:
		return RiskHigh
	case score >= mediumThreshold:
		return RiskMedium
	case score >= lowThreshold:
		return RiskLow
	default:
		return RiskNone
	}
}

func koreanTier(t RiskTier) string {
	switch t {
	case RiskVeryHigh:
		return "매우높음"
	case RiskHigh:
		return "높음"
	case RiskMedium:
		return "중간"
	case RiskLow:
		return "낮음"
	default:
		return "없음"
	}
}

func uniqueMatches(re *regexp.Regexp, s string, limit int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range re.FindAllString(s, -1) {
		m = strings.TrimSpace(m)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
		if len(out) == limit {
			break
		}
	}
	return out
}
