package textsim

import (
	"strings"
	"unicode"
)

// Trigrams returns the set of trigrams pg_trgm extracts from s. Each word is
// padded with two spaces in front and one behind; characters that are not
// letters or digits separate words.
func Trigrams(s string) map[string]struct{} {
	set := make(map[string]struct{})
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		padded := []rune("  " + w + " ")
		for i := 0; i+3 <= len(padded); i++ {
			set[string(padded[i:i+3])] = struct{}{}
		}
	}
	return set
}

// TrigramSimilarity returns shared trigrams divided by the union of both sets,
// in [0, 1].
func TrigramSimilarity(a, b string) float64 {
	ta, tb := Trigrams(a), Trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	shared := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(ta)+len(tb)-shared)
}

// FoldedSimilarity compares two strings after folding both sides.
func FoldedSimilarity(a, b string) float64 {
	return TrigramSimilarity(Fold(a), Fold(b))
}
