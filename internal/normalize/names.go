package normalize

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultQualifiers are leading city/region qualifiers stripped from
// participant names so "Los Angeles Lakers" and "Lakers" compare equal.
var DefaultQualifiers = []string{
	"los angeles", "la", "golden state", "new york", "ny", "brooklyn", "boston",
	"philadelphia", "toronto", "chicago", "cleveland", "detroit", "indiana",
	"milwaukee", "atlanta", "charlotte", "miami", "orlando", "washington",
	"denver", "minnesota", "oklahoma city", "portland", "utah", "phoenix",
	"sacramento", "dallas", "houston", "memphis", "new orleans", "san antonio",
	"arizona", "baltimore", "buffalo", "carolina", "cincinnati", "green bay",
	"jacksonville", "kansas city", "las vegas", "new england", "pittsburgh",
	"san francisco", "seattle", "tampa bay", "tennessee", "st louis", "colorado",
	"vegas", "florida", "montreal", "ottawa", "vancouver", "calgary", "edmonton",
	"winnipeg", "san diego", "oakland", "texas",
}

// DefaultPrefixes are platform-specific key prefixes removed before folding.
var DefaultPrefixes = []string{"s-"}

// DefaultTitleNoise are tokens dropped from event titles before comparison.
var DefaultTitleNoise = []string{
	"nba", "nfl", "nhl", "mlb", "epl", "ufc", "ncaa", "ncaab", "ncaaf",
	"game", "match", "moneyline",
}

// connectors split a title into its participant segments.
var connectors = map[string]bool{"vs": true, "v": true, "versus": true, "at": true}

// Fold lower-cases s, strips diacritics, replaces punctuation with spaces and
// collapses whitespace.
func Fold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokens returns the folded whitespace tokens of s.
func Tokens(s string) []string {
	return strings.Fields(Fold(s))
}

// Canonicalizer reduces participant names and titles to a comparable form.
// It is an immutable value; build one per configuration.
type Canonicalizer struct {
	prefixes   []string
	qualifiers [][]string
	noise      map[string]bool
}

// NewCanonicalizer builds a Canonicalizer. Qualifiers are matched longest
// first so "los angeles" wins over "la".
func NewCanonicalizer(prefixes, qualifiers, titleNoise []string) Canonicalizer {
	c := Canonicalizer{noise: make(map[string]bool, len(titleNoise))}
	for _, p := range prefixes {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			c.prefixes = append(c.prefixes, p)
		}
	}
	for _, q := range qualifiers {
		if toks := Tokens(q); len(toks) > 0 {
			c.qualifiers = append(c.qualifiers, toks)
		}
	}
	sort.SliceStable(c.qualifiers, func(i, j int) bool {
		return len(c.qualifiers[i]) > len(c.qualifiers[j])
	})
	for _, n := range titleNoise {
		c.noise[Fold(n)] = true
	}
	return c
}

// DefaultCanonicalizer uses the package defaults.
func DefaultCanonicalizer() Canonicalizer {
	return NewCanonicalizer(DefaultPrefixes, DefaultQualifiers, DefaultTitleNoise)
}

// Name canonicalizes a participant or outcome name: prefix removal, folding,
// then removal of one leading qualifier when something remains after it.
func (c Canonicalizer) Name(raw string) string {
	return strings.Join(c.nameTokens(raw), " ")
}

func (c Canonicalizer) nameTokens(raw string) []string {
	s := strings.TrimSpace(raw)
	lower := strings.ToLower(s)
	for _, p := range c.prefixes {
		if strings.HasPrefix(lower, p) {
			s = s[len(p):]
			break
		}
	}
	toks := Tokens(s)
	for _, q := range c.qualifiers {
		if len(toks) > len(q) && hasPrefixTokens(toks, q) {
			return toks[len(q):]
		}
	}
	return toks
}

// Names canonicalizes a participant list, dropping empties and duplicates
// while keeping order.
func (c Canonicalizer) Names(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, r := range raw {
		n := c.Name(r)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// Title canonicalizes an event title: it is split on connector words
// ("vs", "at"), each segment is canonicalized as a name, and noise tokens
// are dropped.
func (c Canonicalizer) Title(raw string) string {
	var out []string
	var segment []string
	flush := func() {
		if len(segment) == 0 {
			return
		}
		kept := segment[:0:0]
		for _, t := range segment {
			if !c.noise[t] {
				kept = append(kept, t)
			}
		}
		out = append(out, c.nameTokens(strings.Join(kept, " "))...)
		segment = segment[:0]
	}
	for _, t := range Tokens(raw) {
		if connectors[t] {
			flush()
			continue
		}
		segment = append(segment, t)
	}
	flush()
	return strings.Join(out, " ")
}

// IsNoise reports whether a folded token is dropped from titles.
func (c Canonicalizer) IsNoise(tok string) bool { return c.noise[tok] }

func hasPrefixTokens(toks, prefix []string) bool {
	for i, p := range prefix {
		if toks[i] != p {
			return false
		}
	}
	return true
}

// categoryAliases maps platform tags and sport keys onto a shared category
// vocabulary.
var categoryAliases = map[string]string{
	"basketball":        "basketball",
	"nba":               "basketball",
	"ncaab":             "basketball",
	"wnba":              "basketball",
	"american football": "american_football",
	"american_football": "american_football",
	"nfl":               "american_football",
	"ncaaf":             "american_football",
	"soccer":            "soccer",
	"epl":               "soccer",
	"champions league":  "soccer",
	"mls":               "soccer",
	"la liga":           "soccer",
	"ice hockey":        "ice_hockey",
	"ice_hockey":        "ice_hockey",
	"hockey":            "ice_hockey",
	"nhl":               "ice_hockey",
	"baseball":          "baseball",
	"mlb":               "baseball",
	"tennis":            "tennis",
	"mma":               "mma",
	"ufc":               "mma",
	"boxing":            "boxing",
	"golf":              "golf",
	"esports":           "esports",
	"politics":          "politics",
	"elections":         "politics",
}

// genericCategories are umbrella tags that say nothing about the sport.
var genericCategories = map[string]bool{
	"sports": true,
	"sport":  true,
	"games":  true,
	"all":    true,
	"other":  true,
}

// Category maps a raw tag to the shared vocabulary. Tags without an alias
// keep their folded form, so distinct unknown sports still disqualify each
// other. Empty and generic tags map to "", which matches any category.
func Category(raw string) string {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "-", " ")
	if c, ok := categoryAliases[key]; ok {
		return c
	}
	key = strings.Join(strings.Fields(strings.ReplaceAll(key, "_", " ")), " ")
	if c, ok := categoryAliases[key]; ok {
		return c
	}
	if key == "" || genericCategories[key] {
		return ""
	}
	if strings.HasPrefix(key, "esport") {
		return "esports"
	}
	return strings.ReplaceAll(key, " ", "_")
}

// KnownCategory reports whether raw maps onto the shared vocabulary.
func KnownCategory(raw string) bool {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "-", " ")
	key = strings.Join(strings.Fields(strings.ReplaceAll(key, "_", " ")), " ")
	_, ok := categoryAliases[key]
	return ok || strings.HasPrefix(key, "esport")
}
