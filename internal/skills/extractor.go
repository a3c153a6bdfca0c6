package skills

import (
	"errors"
	"fmt"
	"strings"

	"github.com/amishk599/cvvin/internal/model"
	"github.com/amishk599/cvvin/internal/taxonomy"
)

// MaxPhraseWords is the longest alias, in tokens, the extractor will match.
const MaxPhraseWords = 3

var errNotNormalized = errors.New("document text has not been extracted")

// Extractor finds taxonomy skills in free text. It is safe for concurrent use.
type Extractor struct {
	index map[string]entry // joined folded tokens
}

type entry struct {
	name  string
	exact string // when set, the words as written must equal this
}

// NewExtractor indexes every name and alias of tax. It fails if a phrase is
// longer than MaxPhraseWords, tokenizes to nothing, or names two skills.
func NewExtractor(tax *taxonomy.Taxonomy) (*Extractor, error) {
	e := &Extractor{index: make(map[string]entry)}
	for _, s := range tax.Skills() {
		for i, phrase := range s.Phrases() {
			toks := Tokenize(phrase)
			if len(toks) == 0 {
				return nil, fmt.Errorf("skill %q: phrase %q has no words", s.Name, phrase)
			}
			if len(toks) > MaxPhraseWords {
				return nil, fmt.Errorf("skill %q: phrase %q is longer than %d words", s.Name, phrase, MaxPhraseWords)
			}
			key := strings.Join(toks, " ")
			ent := entry{name: s.Name}
			if i == 0 && s.CaseSensitive {
				ent.exact = rawPhrase(phrase)
			}
			if other, ok := e.index[key]; ok {
				if other.name != s.Name {
					return nil, fmt.Errorf("phrase %q maps to both %q and %q", phrase, other.name, s.Name)
				}
				// an alias spelling the same words lifts the case restriction
				ent.exact = ""
			}
			e.index[key] = ent
		}
	}
	return e, nil
}

// Extract returns the skills found in doc. doc must be normalized.
func (e *Extractor) Extract(doc model.Document) (model.SkillSet, error) {
	if !doc.Normalized() {
		return model.SkillSet{}, &model.DocumentError{Kind: model.ErrExtractionFailure, Name: doc.Name, Err: errNotNormalized}
	}
	return e.ExtractText(doc.Text()), nil
}

// ExtractText scans text left to right, preferring the longest phrase at
// each position. Skills are returned in order of first appearance.
func (e *Extractor) ExtractText(text string) model.SkillSet {
	var set model.SkillSet
	toks := scan(text)
	for i := 0; i < len(toks); {
		n := min(MaxPhraseWords, len(toks)-i)
		matched := false
		for ; n > 0; n-- {
			ent, ok := e.index[joinTokens(toks[i:i+n], false)]
			if !ok || (ent.exact != "" && joinTokens(toks[i:i+n], true) != ent.exact) {
				continue
			}
			set.Add(ent.name)
			matched = true
			break
		}
		if matched {
			i += n
		} else {
			i++
		}
	}
	return set
}

func joinTokens(toks []token, raw bool) string {
	parts := make([]string, len(toks))
	for i, t := range toks {
		if raw {
			parts[i] = t.raw
		} else {
			parts[i] = t.folded
		}
	}
	return strings.Join(parts, " ")
}

// rawPhrase is the case-preserving form a case-sensitive name is compared in.
func rawPhrase(phrase string) string {
	return joinTokens(scan(phrase), true)
}

// Extract is a convenience for one-off extraction against tax.
func Extract(doc model.Document, tax *taxonomy.Taxonomy) (model.SkillSet, error) {
	e, err := NewExtractor(tax)
	if err != nil {
		return model.SkillSet{}, err
	}
	return e.Extract(doc)
}
