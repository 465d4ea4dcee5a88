package matcher

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/alanyoungcy/crossodds/internal/normalize"
)

// Similarity scores two strings on a 0..100 scale. Identical inputs score
// 100; implementations must be symmetric.
type Similarity interface {
	Score(a, b string) float64
}

// SimilarityFunc adapts a plain function to Similarity.
type SimilarityFunc func(a, b string) float64

// Score calls f(a, b).
func (f SimilarityFunc) Score(a, b string) float64 { return f(a, b) }

// Ratio is the edit-distance similarity of two strings:
// 100 * (1 - levenshtein(a, b) / max(len(a), len(b))), measured in runes.
// Empty input scores 0.
func Ratio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := la
	if lb > longest {
		longest = lb
	}
	d := levenshtein.ComputeDistance(a, b)
	return 100 * (1 - float64(d)/float64(longest))
}

// TokenSortRatio folds both strings, sorts their tokens and compares the
// results with Ratio, so word order does not matter.
type TokenSortRatio struct{}

// Score implements Similarity.
func (TokenSortRatio) Score(a, b string) float64 {
	return Ratio(sortedTokens(a), sortedTokens(b))
}

func sortedTokens(s string) string {
	toks := normalize.Tokens(s)
	sort.Strings(toks)
	return strings.Join(toks, " ")
}

var _ Similarity = TokenSortRatio{}
