package matcher

import (
	"math"
	"testing"
)

func TestRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"lakers", "lakers", 100},
		{"", "lakers", 0},
		{"kitten", "sitting", 100 * (1 - 3.0/7.0)},
	}
	for _, tt := range tests {
		if got := Ratio(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Ratio(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestTokenSortRatioIgnoresOrder(t *testing.T) {
	s := TokenSortRatio{}
	if got := s.Score("Warriors vs Lakers", "lakers VS warriors"); got != 100 {
		t.Errorf("reordered tokens scored %v, want 100", got)
	}
	if s.Score("a b", "x y") != s.Score("x y", "a b") {
		t.Error("score is not symmetric")
	}
}

func TestSplitQuestion(t *testing.T) {
	c := DefaultConfig().Canon
	subject, residual := splitQuestion([]string{"will", "the", "chiefs", "beat", "the", "bills"}, c)
	if len(subject) != 1 || subject[0] != "chiefs" {
		t.Errorf("subject = %v, want [chiefs]", subject)
	}
	if len(residual) != 1 || residual[0] != "bills" {
		t.Errorf("residual = %v, want [bills]", residual)
	}
}
