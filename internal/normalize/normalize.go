// Package normalize corrects common OCR confusions and folds text into the
// canonical form used for every comparison. All functions are pure.
package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// ocrReplacer maps characters OCR engines commonly confuse on ingredient labels
var ocrReplacer = strings.NewReplacer(
	// Lone compatibility jamo read in place of Latin letters
	"ㅇ", "o",
	"ㅣ", "l",
	"ㅡ", "-",

	// Decorative separators
	"·", "-", // middle dot
	"ㆍ", "-", // Hangul araea, often printed as a middle dot
	"•", "-",
	"‧", "-",
	"∙", "-",
	"・", "-",
	"—", "-",
	"–", "-",
	"‐", "-",
	"‑", "-",
	"−", "-",

	// Irregular whitespace
	"\u00a0", " ", // no-break space
	"\u2002", " ",
	"\u2003", " ",
	"\u2009", " ", // thin space
	"\u202f", " ",
	"\u3000", " ", // ideographic space

	// Invisible characters
	"\u200b", "", // zero-width space
	"\u200c", "",
	"\u200d", "",
	"\ufeff", "",
)

// Digits read where a Latin letter belongs, and the reverse.
var (
	digitToLetter = map[rune]rune{'0': 'o', '1': 'l', '5': 's'}
	letterToDigit = map[rune]rune{'o': '0', 'O': '0', 'l': '1', 'I': '1', 'i': '1', 's': '5', 'S': '5'}
)

// CorrectOCRErrors applies the fixed OCR substitution table and repairs
// digit/letter lookalikes inside Latin words and numbers.
func CorrectOCRErrors(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ToValidUTF8(text, "")
	text = ocrReplacer.Replace(text)
	return fixLookalikes(text)
}

// Normalize lowercases text, drops brackets, quotes, whitespace, hyphens,
// underscores and middle dots, and keeps only digits, Latin letters (accented
// ones included) and Hangul.
// Normalize(Normalize(x)) == Normalize(x) for every x.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ToValidUTF8(text, "")
	text = ocrReplacer.Replace(text)
	text = norm.NFKC.String(text)
	text = strings.ToLower(text)

	text = strings.Map(func(r rune) rune {
		if isASCIIAlnum(r) || isLatinLetter(r) || unicode.Is(unicode.Hangul, r) {
			return r
		}
		return -1
	}, text)

	// Lookalike repair runs on the stripped form so that removed separators
	// cannot create new letter/digit neighbourhoods on a second pass.
	text = fixLookalikes(text)
	return norm.NFC.String(text)
}

// isLatinLetter reports letters of the Latin script such as é or ü.
// Combining marks are not Latin and are dropped.
func isLatinLetter(r rune) bool {
	return unicode.IsLetter(r) && unicode.Is(unicode.Latin, r)
}

// RuneLen returns the number of characters in s
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// IsHangul reports whether every rune of s is a Hangul syllable
func IsHangul(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '가' || r > '힣' {
			return false
		}
	}
	return true
}

// fixLookalikes rewrites a digit surrounded by Latin letters into its letter
// lookalike, and a letter surrounded by digits into its digit lookalike.
// Each rewrite removes two letter/digit boundaries, so the loop terminates.
func fixLookalikes(text string) string {
	runes := []rune(text)
	if len(runes) < 3 {
		return text
	}

	changed := false
	for {
		pass := false
		for i := 1; i < len(runes)-1; i++ {
			prev, next := runes[i-1], runes[i+1]
			if l, ok := digitToLetter[runes[i]]; ok && isASCIILetter(prev) && isASCIILetter(next) {
				runes[i] = l
				pass = true
			} else if d, ok := letterToDigit[runes[i]]; ok && isASCIIDigit(prev) && isASCIIDigit(next) {
				runes[i] = d
				pass = true
			}
		}
		if !pass {
			break
		}
		changed = true
	}

	if !changed {
		return text
	}
	return string(runes)
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isASCIIAlnum(r rune) bool {
	return isASCIILetter(r) || isASCIIDigit(r)
}
