package match

import (
	"math"

	"github.com/amishk599/cvvin/internal/model"
	"github.com/amishk599/cvvin/internal/taxonomy"
)

// Scorer compares a candidate's skills with a job's required skills.
// Score is a pure function of its inputs.
type Scorer struct {
	tax *taxonomy.Taxonomy
}

func NewScorer(tax *taxonomy.Taxonomy) *Scorer {
	return &Scorer{tax: tax}
}

// Score builds a MatchResult. Matched and missing skills keep the order of
// required. RunID and ComputedAt are left zero for the caller to stamp.
func (s *Scorer) Score(candidate, required model.SkillSet) model.MatchResult {
	res := model.MatchResult{
		MatchedSkills: []string{},
		MissingSkills: []string{},
		Strengths:     []string{},
		Improvements:  []string{},
	}
	if required.Len() == 0 {
		return res
	}

	for _, skill := range required.Names() {
		if candidate.Has(skill) {
			res.MatchedSkills = append(res.MatchedSkills, skill)
		} else {
			res.MissingSkills = append(res.MissingSkills, skill)
		}
	}

	res.MatchScore = percent(len(res.MatchedSkills), required.Len())
	res.Strengths = s.narrate(res.MatchedSkills, s.tax.Strength)
	res.Improvements = s.narrate(res.MissingSkills, s.tax.Improvement)
	return res
}

// percent rounds half away from zero. A partial match never reports 100.
func percent(matched, total int) int {
	p := int(math.Round(100 * float64(matched) / float64(total)))
	if matched < total && p == 100 {
		return 99
	}
	return p
}

// narrate groups skills by category, in order of each category's first
// skill, and renders one line per group.
func (s *Scorer) narrate(skills []string, render func(category string, skills []string) string) []string {
	var order []string
	groups := make(map[string][]string)
	for _, skill := range skills {
		cat := s.tax.CategoryOf(skill)
		if _, ok := groups[cat]; !ok {
			order = append(order, cat)
		}
		groups[cat] = append(groups[cat], skill)
	}

	lines := make([]string, 0, len(order))
	for _, cat := range order {
		lines = append(lines, render(cat, groups[cat]))
	}
	return lines
}
