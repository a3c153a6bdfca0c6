package skills

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fold lowercases s and strips diacritics, so "Résumé" and "RESUME" compare equal.
func fold(s string) string {
	// Transformers and casers carry state; build fresh ones per call.
	strip := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(strip, s)
	if err != nil {
		out = s
	}
	return cases.Fold().String(out)
}

// isWordRune reports whether r belongs to a token. '+' and '#' are kept so
// that C++ and C# survive; '.' and '/' split, so Node.js becomes "node js".
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#'
}

// Tokenize folds text and splits it on word boundaries.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(fold(text), func(r rune) bool { return !isWordRune(r) })
	tokens := fields[:0]
	for _, f := range fields {
		f = strings.TrimLeft(f, "+#")
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// token is one folded word plus the text it came from.
type token struct {
	folded string
	raw    string
}

// scan splits text on word boundaries before folding, so each token keeps
// its original casing. A word that folds into several tokens keeps no raw
// text and can never satisfy a case-sensitive phrase.
func scan(text string) []token {
	var out []token
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !isWordRune(r) && !unicode.Is(unicode.Mn, r)
	})
	for _, f := range fields {
		folded := Tokenize(f)
		raw := ""
		if len(folded) == 1 {
			raw = strings.TrimLeft(f, "+#")
		}
		for _, tok := range folded {
			out = append(out, token{folded: tok, raw: raw})
		}
	}
	return out
}
