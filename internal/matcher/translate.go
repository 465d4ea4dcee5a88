package matcher

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/alanyoungcy/crossodds/internal/domain"
	"github.com/alanyoungcy/crossodds/internal/normalize"
)

var questionWords = map[string]bool{
	"will": true, "does": true, "do": true, "is": true, "are": true,
	"can": true, "could": true, "would": true, "should": true,
}

var predicates = map[string]bool{
	"win": true, "wins": true, "beat": true, "beats": true, "defeat": true,
	"defeats": true, "be": true, "become": true, "make": true, "makes": true,
	"reach": true, "reaches": true, "finish": true, "finishes": true,
	"score": true, "scores": true, "advance": true, "advances": true,
	"qualify": true, "lose": true, "loses": true, "receive": true,
	"get": true, "take": true, "claim": true, "lead": true, "top": true,
	"cover": true,
}

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "of": true, "in": true, "to": true,
	"for": true, "on": true, "by": true, "at": true, "vs": true, "and": true,
}

// translation is the result of resolving a yes/no question onto one named
// selection of a multi-outcome event.
type translation struct {
	subject  string  // outcome label on event B
	coverage float64 // share of the subject's name tokens found in the question
	context  float64 // 0..100, share of the question's remaining terms found in B's title
	score    float64
}

// links maps YES onto the subject and NO onto "not subject".
func (t translation) links(a domain.Event) []domain.OutcomeLink {
	yes, no := "Yes", "No"
	for _, o := range a.Outcomes {
		switch strings.ToLower(strings.TrimSpace(o.Label)) {
		case "yes":
			yes = o.Label
		case "no":
			no = o.Label
		}
	}
	return []domain.OutcomeLink{
		{A: yes, B: t.subject},
		{A: no, B: t.subject, NegatedB: true},
	}
}

var errNoSubject = errors.New("matcher: question subject not found")

// translate resolves the subject of a's question among b's outcomes. It
// returns domain.ErrAmbiguousTranslation when more than one outcome fits
// equally well, and errNoSubject when none does.
func (m *Matcher) translate(a, b prepared, cfg Config) (translation, error) {
	subject, residual := splitQuestion(normalize.Tokens(a.ev.Title), cfg.Canon)
	if len(subject) == 0 {
		return translation{}, errNoSubject
	}

	best, bestCov, ties := -1, 0.0, 0
	for k, o := range b.ev.Outcomes {
		sel := strings.Fields(cfg.Canon.Name(o.Label))
		if len(sel) == 0 {
			continue
		}
		if _, generic := outcomeVariants[strings.Join(sel, " ")]; generic {
			continue
		}
		matched := 0
		for _, st := range sel {
			if m.tokenIn(st, subject, cfg) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		cov := float64(matched) / float64(len(sel))
		switch {
		case best < 0 || cov > bestCov+1e-9:
			best, bestCov, ties = k, cov, 1
		case cov > bestCov-1e-9:
			ties++
		}
	}
	if best < 0 {
		return translation{}, errNoSubject
	}
	if ties > 1 {
		return translation{}, fmt.Errorf("%w: %q matches %d selections of %s",
			domain.ErrAmbiguousTranslation, a.ev.Title, ties, b.ev.Key)
	}

	contextScore := 50.0
	if len(residual) > 0 {
		titleToks := strings.Fields(b.title)
		found := 0
		for _, r := range residual {
			if m.tokenIn(r, titleToks, cfg) {
				found++
			}
		}
		contextScore = 100 * float64(found) / float64(len(residual))
	}

	w := cfg.ContextWeight
	if w < 0 || w > 1 {
		w = 0.6
	}
	return translation{
		subject:  b.ev.Outcomes[best].Label,
		coverage: bestCov,
		context:  contextScore,
		score:    w*contextScore + (1-w)*bestCov*100,
	}, nil
}

// splitQuestion separates the subject of a yes/no question from its other
// meaningful terms. The subject is everything between the leading question
// word and the first predicate verb.
func splitQuestion(toks []string, canon normalize.Canonicalizer) (subject, residual []string) {
	start := 0
	if len(toks) > 0 && questionWords[toks[0]] {
		start = 1
	}
	end := len(toks)
	for k := start + 1; k < len(toks); k++ {
		if predicates[toks[k]] {
			end = k
			break
		}
	}
	for _, t := range toks[start:end] {
		if !stopwords[t] {
			subject = append(subject, t)
		}
	}
	if end < len(toks) {
		for _, t := range toks[end+1:] {
			if !stopwords[t] && !questionWords[t] && !canon.IsNoise(t) {
				residual = append(residual, t)
			}
		}
	}
	return subject, residual
}

// tokenIn reports whether tok equals some token of set. Short tokens must
// match exactly; longer ones may differ within the outcome threshold.
func (m *Matcher) tokenIn(tok string, set []string, cfg Config) bool {
	for _, s := range set {
		if s == tok {
			return true
		}
		if utf8.RuneCountInString(tok) < 4 || utf8.RuneCountInString(s) < 4 {
			continue
		}
		if m.sim.Score(tok, s) >= cfg.OutcomeThreshold {
			return true
		}
	}
	return false
}
