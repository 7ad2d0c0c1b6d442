package extract

import "strings"

// additiveTerms are compound terms that must survive filtering even when they
// overlap with generic label vocabulary
var additiveTerms = map[string]bool{
	"산도조절제": true,
	"구아검":   true,
	"유화제":   true,
	"증점제":   true,
	"안정제":   true,
	"착색료":   true,
	"보존료":   true,
	"감미료":   true,
	"향미증진제": true,
	"산화방지제": true,
	"팽창제":   true,
	"표백제":   true,
	"발색제":   true,
	"응고제":   true,
	"합성향료":  true,
	"천연향료":  true,
	"잔탄검":   true,
	"카라기난":  true,
}

// commonWords are label words that never name an additive
var commonWords = map[string]bool{
	// Label headings
	"원재료명": true, "원재료": true, "재료": true, "성분": true, "제품명": true,
	"식품유형": true, "내용량": true, "유통기한": true, "소비기한": true, "제조일자": true,
	"보관방법": true, "영양정보": true, "영양성분": true, "알레르기": true, "유발물질": true,
	"제조원": true, "판매원": true, "수입원": true, "제조사": true, "원산지": true,
	"반품": true, "교환": true, "고객센터": true, "소비자상담실": true,

	// Quantities and qualifiers
	"함유": true, "포함": true, "함량": true, "이상": true, "이하": true, "미만": true,
	"첨가": true, "사용": true, "제품": true, "식품": true, "기타": true, "및": true,
	"또는": true, "등": true, "국산": true, "외국산": true, "수입산": true,

	// Base ingredients
	"정제수": true, "물": true, "소금": true, "정제소금": true, "설탕": true,
	"백설탕": true, "밀가루": true, "대두": true, "우유": true, "계란": true,

	// English label words
	"ingredients": true, "ingredient": true, "contains": true, "contain": true,
	"and": true, "or": true, "the": true, "of": true, "with": true, "from": true,
	"may": true, "water": true, "salt": true, "sugar": true, "kcal": true,
	"mg": true, "ml": true, "kg": true,
}

// IsCommonWord reports whether word is generic label vocabulary.
// Known additive terms are never common, whatever the blocklist says.
func IsCommonWord(word string) bool {
	w := strings.ToLower(strings.TrimSpace(word))
	if additiveTerms[w] {
		return false
	}
	if commonWords[w] {
		return true
	}
	return isNumeric(w)
}

func isNumeric(w string) bool {
	if w == "" {
		return false
	}
	for _, r := range w {
		if (r < '0' || r > '9') && r != '.' && r != '%' {
			return false
		}
	}
	return true
}
