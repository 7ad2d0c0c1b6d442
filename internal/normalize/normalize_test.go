package normalize

import (
	"strings"
	"testing"
)

func TestNormalize_Basic(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"spacing variant", "황색 5호", "황색5호"},
		{"no space", "황색5호", "황색5호"},
		{"brackets and quotes", "\"구연산\" (산도조절제)", "구연산산도조절제"},
		{"hyphen underscore middle dot", "L-글루탐산_나트륨·염", "l글루탐산나트륨염"},
		{"uppercase latin", "Sodium Benzoate", "sodiumbenzoate"},
		{"fullwidth digits", "적색４０호", "적색40호"},
		{"zero width space", "구연\u200b산", "구연산"},
		{"no-break space", "구아\u00a0검", "구아검"},
		{"e-number", "E-211", "e211"},
		{"accented latin", "Crème Brûlée", "crèmebrûlée"},
		{"combining accent", "Cre\u0300me", "crème"},
		{"umlaut alias", "Lebensmittelfarbstoff Gelb (Tartrazin) Ü", "lebensmittelfarbstoffgelbtartrazinü"},
		{"greek dropped", "βeta", "eta"},
		{"emoji only", "😀🎉", ""},
		{"control characters", "\x00\x01\x02", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"황색 5호",
		"횡색5효",
		"s0dium benz0ate",
		"a 0 b",
		"1o1o1",
		"E 1O2",
		"안식향산나트륨 (벤조산나트륨)",
		"ㄱㅏ ㅇ ㅣ",
		"İstanbul ǅ ﬁ ①",
		"Crème brûlée, Müller 5ü0 é1é",
		"\xff\xfe invalid utf8",
		"산도조절제, 구아 검; 카라기난 | 잔탄검",
		strings.Repeat("가1b", 50),
	}

	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}

func TestNormalize_LookalikesInLatinWords(t *testing.T) {
	if got := Normalize("s0dium"); got != "sodium" {
		t.Errorf("expected digit between letters to become a letter, got %q", got)
	}
	if got := Normalize("1O1"); got != "101" {
		t.Errorf("expected letter between digits to become a digit, got %q", got)
	}
	// Hangul neighbours never trigger a lookalike rewrite
	if got := Normalize("황색5호"); got != "황색5호" {
		t.Errorf("expected Hangul context to keep the digit, got %q", got)
	}
}

func TestCorrectOCRErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"middle dot", "구연산·젖산", "구연산-젖산"},
		{"bullet", "구연산•젖산", "구연산-젖산"},
		{"em dash", "구연산—젖산", "구연산-젖산"},
		{"en dash", "구연산–젖산", "구연산-젖산"},
		{"thin space", "구아\u2009검", "구아 검"},
		{"zero width removed", "구연\u200b산", "구연산"},
		{"jamo lookalike", "ㅇil", "oil"},
		{"digit in word", "s0dium", "sodium"},
		{"untouched", "황색 5호", "황색 5호"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CorrectOCRErrors(tt.in); got != tt.want {
				t.Errorf("CorrectOCRErrors(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsHangul(t *testing.T) {
	if !IsHangul("구연산") {
		t.Error("expected 구연산 to be Hangul")
	}
	if IsHangul("황색5호") {
		t.Error("expected mixed string not to be Hangul")
	}
	if IsHangul("") {
		t.Error("expected empty string not to be Hangul")
	}
}

func TestRuneLen(t *testing.T) {
	if n := RuneLen("구연산"); n != 3 {
		t.Errorf("expected 3 runes, got %d", n)
	}
}
