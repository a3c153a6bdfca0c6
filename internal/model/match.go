package model

import "time"

// SkillSet is an ordered set of canonical skill names. Order is the order in
// which skills were first added; membership is unique.
type SkillSet struct {
	names []string
	index map[string]struct{}
}

// NewSkillSet builds a set from names, dropping duplicates.
func NewSkillSet(names ...string) SkillSet {
	var s SkillSet
	for _, n := range names {
		s.Add(n)
	}
	return s
}

// Add inserts name if absent and reports whether it was added.
func (s *SkillSet) Add(name string) bool {
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	if _, ok := s.index[name]; ok {
		return false
	}
	s.index[name] = struct{}{}
	s.names = append(s.names, name)
	return true
}

// Has reports membership.
func (s SkillSet) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Len returns the number of members.
func (s SkillSet) Len() int { return len(s.names) }

// Names returns the members in insertion order. The slice is a copy.
func (s SkillSet) Names() []string {
	return append([]string(nil), s.names...)
}

// AnalysisRequest is a fully resolved set of inputs for one analysis.
// JobDescriptionText is always the authoritative job text.
type AnalysisRequest struct {
	Resume             Document
	JobDescriptionText string
	JobDescription     *Document
}

// MatchResult is the immutable outcome of one analysis run.
type MatchResult struct {
	RunID         string    `json:"run_id"`
	MatchScore    int       `json:"match_score"`
	MatchedSkills []string  `json:"matched_skills"`
	MissingSkills []string  `json:"missing_skills"`
	Strengths     []string  `json:"strengths"`
	Improvements  []string  `json:"improvements"`
	ComputedAt    time.Time `json:"computed_at"`
}
