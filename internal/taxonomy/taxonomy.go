// Package taxonomy holds the skill taxonomy and the narrative templates used
// to describe matched and missing skills. Both are data: the embedded
// default.yaml can be replaced by a file named in the config.
package taxonomy

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Skill is one canonical skill and the phrases that refer to it.
type Skill struct {
	Name        string   `yaml:"name"`
	Aliases     []string `yaml:"aliases"`
	Category    string   `yaml:"category"`
	// CaseSensitive restricts the canonical name to its exact casing.
	// Aliases always match case-insensitively.
	CaseSensitive bool `yaml:"case_sensitive"`
}

// Phrases returns the texts that identify the skill, canonical name first.
func (s Skill) Phrases() []string {
	return append([]string{s.Name}, s.Aliases...)
}

type narrative struct {
	Label       string `yaml:"label"`
	Strength    string `yaml:"strength"`
	Improvement string `yaml:"improvement"`
}

type document struct {
	Generic    narrative            `yaml:"generic"`
	Categories map[string]narrative `yaml:"categories"`
	Skills     []Skill              `yaml:"skills"`
}

// templateData is what narrative templates are executed against.
type templateData struct {
	Category string
	Skills   []string
}

type compiled struct {
	label       string
	strength    *template.Template
	improvement *template.Template
}

// Taxonomy is an immutable, validated skill taxonomy.
type Taxonomy struct {
	skills     []Skill
	byName     map[string]Skill
	categories map[string]compiled
	generic    compiled
}

// Default returns the embedded taxonomy.
func Default() *Taxonomy {
	t, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded taxonomy is invalid: %v", err))
	}
	return t
}

// Load reads a taxonomy file. An empty path yields the embedded default.
func Load(path string) (*Taxonomy, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML taxonomy.
func Parse(data []byte) (*Taxonomy, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse taxonomy: %w", err)
	}
	if len(doc.Skills) == 0 {
		return nil, fmt.Errorf("taxonomy has no skills")
	}

	generic, err := compile("generic", doc.Generic)
	if err != nil {
		return nil, err
	}
	if generic.strength == nil || generic.improvement == nil {
		return nil, fmt.Errorf("taxonomy: generic strength and improvement templates are required")
	}

	t := &Taxonomy{
		byName:     make(map[string]Skill, len(doc.Skills)),
		categories: make(map[string]compiled, len(doc.Categories)),
		generic:    generic,
	}
	for key, n := range doc.Categories {
		c, err := compile("categories."+key, n)
		if err != nil {
			return nil, err
		}
		if c.label == "" {
			c.label = key
		}
		t.categories[key] = c
	}

	for i, s := range doc.Skills {
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			return nil, fmt.Errorf("taxonomy: skills[%d] has no name", i)
		}
		if _, dup := t.byName[s.Name]; dup {
			return nil, fmt.Errorf("taxonomy: duplicate skill %q", s.Name)
		}
		t.byName[s.Name] = s
		t.skills = append(t.skills, s)
	}
	return t, nil
}

func compile(where string, n narrative) (compiled, error) {
	c := compiled{label: n.Label}
	var err error
	if n.Strength != "" {
		if c.strength, err = parseTemplate(where+".strength", n.Strength); err != nil {
			return compiled{}, err
		}
	}
	if n.Improvement != "" {
		if c.improvement, err = parseTemplate(where+".improvement", n.Improvement); err != nil {
			return compiled{}, err
		}
	}
	return c, nil
}

var funcs = template.FuncMap{
	"join": func(s []string) string { return strings.Join(s, ", ") },
}

// parseTemplate parses text and runs it once against sample data so that
// templates referring to unknown fields are rejected at load time.
func parseTemplate(name, text string) (*template.Template, error) {
	tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("taxonomy template %s: %w", name, err)
	}
	sample := templateData{Category: "sample", Skills: []string{"A", "B"}}
	if err := tmpl.Execute(&bytes.Buffer{}, sample); err != nil {
		return nil, fmt.Errorf("taxonomy template %s: %w", name, err)
	}
	return tmpl, nil
}

// Skills returns every skill in file order.
func (t *Taxonomy) Skills() []Skill {
	return append([]Skill(nil), t.skills...)
}

// SkillNames returns every canonical name in file order.
func (t *Taxonomy) SkillNames() []string {
	names := make([]string, len(t.skills))
	for i, s := range t.skills {
		names[i] = s.Name
	}
	return names
}

// CategoryOf returns the category key for a canonical skill name, or "" if
// the skill is unknown, uncategorized, or its category has no templates.
func (t *Taxonomy) CategoryOf(skill string) string {
	s, ok := t.byName[skill]
	if !ok {
		return ""
	}
	if _, ok := t.categories[s.Category]; !ok {
		return ""
	}
	return s.Category
}

// Strength renders the strength line for skills in category. An empty or
// unknown category uses the generic template.
func (t *Taxonomy) Strength(category string, skills []string) string {
	c, label := t.pick(category, func(c compiled) bool { return c.strength != nil })
	return render(c.strength, label, skills, "Experience with %s")
}

// Improvement renders the improvement line for skills in category.
func (t *Taxonomy) Improvement(category string, skills []string) string {
	c, label := t.pick(category, func(c compiled) bool { return c.improvement != nil })
	return render(c.improvement, label, skills, "Consider adding %s")
}

func (t *Taxonomy) pick(category string, has func(compiled) bool) (compiled, string) {
	if c, ok := t.categories[category]; ok && has(c) {
		return c, c.label
	}
	return t.generic, "general"
}

func render(tmpl *template.Template, label string, skills []string, fallback string) string {
	var b bytes.Buffer
	if tmpl != nil {
		if err := tmpl.Execute(&b, templateData{Category: label, Skills: skills}); err == nil {
			return b.String()
		}
	}
	return fmt.Sprintf(fallback, strings.Join(skills, ", "))
}
