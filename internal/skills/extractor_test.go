package skills

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/cvvin/internal/model"
	"github.com/amishk599/cvvin/internal/taxonomy"
)

func newExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := NewExtractor(taxonomy.Default())
	require.NoError(t, err)
	return e
}

func textDoc(text string) model.Document {
	return model.Document{Name: "doc", ExtractedText: &text}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"React, TypeScript", []string{"react", "typescript"}},
		{"Node.js & C++ / C#", []string{"node", "js", "c++", "c#"}},
		{"  CI/CD\tpipelines\n", []string{"ci", "cd", "pipelines"}},
		{"Café RÉSUMÉ", []string{"cafe", "resume"}},
		{"#golang +1", []string{"golang", "1"}},
		{"", nil},
		{"  ...  ", nil},
	}
	for _, tt := range tests {
		got := Tokenize(tt.in)
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		assert.Equal(t, tt.want, got, "Tokenize(%q)", tt.in)
	}
}

func TestExtract_CanonicalCasingAndOrder(t *testing.T) {
	e := newExtractor(t)

	set, err := e.Extract(textDoc("Skills: react, TYPESCRIPT, node.js, git and RESTful APIs. Also React again."))
	require.NoError(t, err)
	assert.Equal(t, []string{"React", "TypeScript", "Node.js", "Git", "REST APIs"}, set.Names())
}

func TestExtract_LongestPhraseWins(t *testing.T) {
	e := newExtractor(t)

	set := e.ExtractText("Built apps in React Native and plain React; styled with Tailwind CSS")
	assert.Equal(t, []string{"React Native", "React", "Tailwind CSS"}, set.Names())

	set = e.ExtractText("Deployed on Google Cloud Platform and Amazon Web Services")
	assert.Equal(t, []string{"GCP", "AWS"}, set.Names())
}

func TestExtract_Aliases(t *testing.T) {
	e := newExtractor(t)

	tests := []struct {
		text string
		want string
	}{
		{"k8s clusters", "Kubernetes"},
		{"postgres tuning", "PostgreSQL"},
		{"golang services", "Go"},
		{"ci cd pipelines", "CI/CD"},
		{"C# and .NET", "C#"},
		{"excellent communication skills", "Communication"},
		{"UI/UX work", "UI/UX"},
	}
	for _, tt := range tests {
		set := e.ExtractText(tt.text)
		assert.True(t, set.Has(tt.want), "%q should yield %s, got %v", tt.text, tt.want, set.Names())
	}
}

func TestExtract_CaseSensitiveCanonicalName(t *testing.T) {
	e := newExtractor(t)

	set := e.ExtractText("Requirements: Go, Kubernetes, PostgreSQL")
	assert.Equal(t, []string{"Go", "Kubernetes", "PostgreSQL"}, set.Names())

	set = e.ExtractText("Ready to go the extra mile")
	assert.False(t, set.Has("Go"))

	set = e.ExtractText("GOLANG and Swift")
	assert.Equal(t, []string{"Go", "Swift"}, set.Names())
}

func TestExtract_CommonWordsAreNotSkills(t *testing.T) {
	e := newExtractor(t)

	for _, text := range []string{
		"You will mentor the rest of the team",
		"Internship starts in Spring 2025",
		"Please express interest early; we value swift responses",
		"rust on the old pipes, but we go on",
	} {
		set := e.ExtractText(text)
		assert.Equal(t, 0, set.Len(), "%q gave %v", text, set.Names())
	}

	set := e.ExtractText("REST API design with Spring Boot and Express.js")
	assert.Equal(t, []string{"REST APIs", "Spring Boot", "Express.js"}, set.Names())
}

func TestNewExtractor_AliasLiftsCaseRestriction(t *testing.T) {
	const doc = "generic:\n  strength: s\n  improvement: i\n" +
		"skills:\n  - name: Go\n    aliases: [go]\n    case_sensitive: true\n"
	tax, err := taxonomy.Parse([]byte(doc))
	require.NoError(t, err)
	e, err := NewExtractor(tax)
	require.NoError(t, err)
	assert.True(t, e.ExtractText("let's go").Has("Go"))
}

func TestExtract_EmptyText(t *testing.T) {
	e := newExtractor(t)
	for _, text := range []string{"", "   \n\t"} {
		set, err := e.Extract(textDoc(text))
		require.NoError(t, err)
		assert.Equal(t, 0, set.Len())
	}
}

func TestExtract_NotNormalized(t *testing.T) {
	e := newExtractor(t)
	_, err := e.Extract(model.Document{Name: "cv.pdf", RawBytes: []byte("%PDF")})
	assert.ErrorIs(t, err, model.ErrExtractionFailure)
}

func TestExtract_Deterministic(t *testing.T) {
	texts := []string{
		"React, TypeScript, Docker, Kubernetes, AWS, GraphQL",
		"Python pandas tensorflow machine learning, SQL and postgres; agile team player",
		"nothing relevant here",
	}
	tax := taxonomy.Default()
	for _, text := range texts {
		a, err := Extract(textDoc(text), tax)
		require.NoError(t, err)
		b, err := Extract(textDoc(text), tax)
		require.NoError(t, err)
		assert.Equal(t, a.Names(), b.Names())
	}
}

func TestNewExtractor_RejectsBadTaxonomies(t *testing.T) {
	const generic = "generic:\n  strength: s\n  improvement: i\n"
	tests := []struct {
		name string
		yaml string
	}{
		{"phrase too long", generic + "skills:\n  - name: Go\n    aliases: [the go programming language]\n"},
		{"conflict", generic + "skills:\n  - name: Go\n    aliases: [golang]\n  - name: Golang\n"},
		{"no words", generic + "skills:\n  - name: \"++\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tax, err := taxonomy.Parse([]byte(tt.yaml))
			require.NoError(t, err)
			_, err = NewExtractor(tax)
			assert.Error(t, err)
		})
	}
}
