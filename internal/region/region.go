// Package region normalizes free-form Korean location strings into a
// canonical province plus an optional city. User profiles carry locations
// like "서울특별시 종로구" or "경기 수원시"; documents are indexed under short
// province names, so both sides must agree before metadata filtering works.
package region

import (
	"regexp"
	"strings"
)

// provinceAliases maps every common spelling of a first-level division to
// its canonical short name.
var provinceAliases = map[string]string{
	"서울": "서울", "서울시": "서울", "서울특별시": "서울",
	"부산": "부산", "부산광역시": "부산",
	"대구": "대구", "대구광역시": "대구",
	"인천": "인천", "인천광역시": "인천",
	"광주": "광주", "광주광역시": "광주",
	"대전": "대전", "대전광역시": "대전",
	"울산": "울산", "울산광역시": "울산",
	"세종": "세종", "세종특별자치시": "세종",
	"경기": "경기", "경기도": "경기",
	"강원": "강원", "강원도": "강원",
	"충북": "충북", "충청북": "충북", "충청북도": "충북",
	"충남": "충남", "충청남": "충남", "충청남도": "충남",
	"전북": "전북", "전라북": "전북", "전라북도": "전북",
	"전남": "전남", "전라남": "전남", "전라남도": "전남",
	"경북": "경북", "경상북": "경북", "경상북도": "경북",
	"경남": "경남", "경상남": "경남", "경상남도": "경남",
	"제주": "제주", "제주도": "제주", "제주특별자치도": "제주",
}

var (
	separators    = regexp.MustCompile(`[,/]+`)
	whitespace    = regexp.MustCompile(`\s+`)
	divisionKinds = regexp.MustCompile(`(특별자치도|특별자치시|광역시|특별시|자치도)$`)
	shortSuffix   = regexp.MustCompile(`(도|시)$`)
)

// NormalizeProvince canonicalizes a single province token. Unknown tokens
// are returned with administrative suffixes stripped, falling back to the
// input itself.
func NormalizeProvince(token string) string {
	compact := strings.ReplaceAll(token, " ", "")
	if p, ok := provinceAliases[token]; ok {
		return p
	}
	if p, ok := provinceAliases[compact]; ok {
		return p
	}
	trimmed := divisionKinds.ReplaceAllString(compact, "")
	trimmed = shortSuffix.ReplaceAllString(trimmed, "")
	if p, ok := provinceAliases[trimmed]; ok {
		return p
	}
	if trimmed != "" {
		return trimmed
	}
	return token
}

// Normalize splits a location string into (province, city). The first token
// is treated as the province; everything after it is the city. Either result
// may be empty.
func Normalize(location string) (province, city string) {
	cleaned := separators.ReplaceAllString(location, " ")
	cleaned = strings.TrimSpace(whitespace.ReplaceAllString(cleaned, " "))
	if cleaned == "" {
		return "", ""
	}
	parts := strings.Split(cleaned, " ")
	province = NormalizeProvince(parts[0])
	if len(parts) > 1 {
		city = strings.Join(parts[1:], " ")
	}
	return province, city
}
