package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"prism/internal/analysis"
)

func TestMarkdown_FullResult(t *testing.T) {
	md := Markdown(analysis.Result{
		Title:          "Quantum Widgets",
		Takeaways:      []string{"widgets are quantum"},
		OverallSummary: "A study of widgets.",
		Aspects: &analysis.Aspects{
			ProblemStatement: "Widgets are poorly understood.",
			Methodology:      "We measured widgets.",
			KeyFindings:      []analysis.VerifiablePoint{{Point: "widgets wobble", Evidence: "fig. 3 shows wobble"}},
		},
		Critique: &analysis.Critique{
			Strengths: []analysis.VerifiablePoint{{Point: "rigorous"}},
		},
		FutureWork:    []string{"measure more widgets"},
		Glossary:      []analysis.GlossaryTerm{{Term: "widget", Definition: "a thing"}},
		RelatedPapers: []analysis.RelatedPaper{{Title: "Prior Widgets", URI: "https://example.org/w"}},
		References:    &analysis.References{APA: []string{"Doe, J. (2020)."}},
	})

	assert.True(t, strings.HasPrefix(md, "# Quantum Widgets\n"))
	for _, want := range []string{
		"## Key Takeaways", "## Summary", "### Problem Statement", "### Methodology",
		"### Key Findings", "> fig. 3 shows wobble", "## Critique", "## Future Work",
		"- **widget**: a thing", "[Prior Widgets](https://example.org/w)", "- Doe, J. (2020).",
	} {
		assert.Contains(t, md, want)
	}
}

func TestMarkdown_PartialResultSkipsAbsentSections(t *testing.T) {
	md := Markdown(analysis.Result{Title: "T", OverallSummary: "S"})
	assert.Contains(t, md, "## Summary")
	assert.NotContains(t, md, "## Critique")
	assert.NotContains(t, md, "## References")
	assert.NotContains(t, md, "## Related Papers")
}

func TestMarkdown_UntitledFallback(t *testing.T) {
	md := Markdown(analysis.Result{OverallSummary: "S"})
	assert.True(t, strings.HasPrefix(md, "# Paper Analysis\n"))
}
