package export

import (
	"fmt"
	"strings"

	"prism/internal/analysis"
)

// Markdown renders a completed analysis as a standalone markdown report.
// Absent sections are skipped, so a partial result exports cleanly.
func Markdown(r analysis.Result) string {
	var b strings.Builder

	title := r.Title
	if title == "" {
		title = "Paper Analysis"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	if len(r.Takeaways) > 0 {
		b.WriteString("## Key Takeaways\n\n")
		for _, t := range r.Takeaways {
			fmt.Fprintf(&b, "- %s\n", t)
		}
		b.WriteString("\n")
	}
	if r.OverallSummary != "" {
		fmt.Fprintf(&b, "## Summary\n\n%s\n\n", r.OverallSummary)
	}
	if r.Aspects != nil {
		b.WriteString("## Analysis\n\n")
		if r.Aspects.ProblemStatement != "" {
			fmt.Fprintf(&b, "### Problem Statement\n\n%s\n\n", r.Aspects.ProblemStatement)
		}
		if r.Aspects.Methodology != "" {
			fmt.Fprintf(&b, "### Methodology\n\n%s\n\n", r.Aspects.Methodology)
		}
		writePoints(&b, "Key Findings", r.Aspects.KeyFindings)
	}
	if r.Critique != nil {
		b.WriteString("## Critique\n\n")
		writePoints(&b, "Strengths", r.Critique.Strengths)
		writePoints(&b, "Weaknesses", r.Critique.Weaknesses)
	}
	if r.Novelty != nil {
		b.WriteString("## Novelty\n\n")
		if r.Novelty.Assessment != "" {
			fmt.Fprintf(&b, "%s\n\n", r.Novelty.Assessment)
		}
		if r.Novelty.Comparison != "" {
			fmt.Fprintf(&b, "### Comparison to Prior Work\n\n%s\n\n", r.Novelty.Comparison)
		}
	}
	if len(r.FutureWork) > 0 {
		b.WriteString("## Future Work\n\n")
		for _, f := range r.FutureWork {
			fmt.Fprintf(&b, "- %s\n", f)
		}
		b.WriteString("\n")
	}
	if len(r.Glossary) > 0 {
		b.WriteString("## Glossary\n\n")
		for _, g := range r.Glossary {
			fmt.Fprintf(&b, "- **%s**: %s\n", g.Term, g.Definition)
		}
		b.WriteString("\n")
	}
	if len(r.Ideation) > 0 {
		b.WriteString("## Research Ideas\n\n")
		for _, h := range r.Ideation {
			fmt.Fprintf(&b, "- **%s** — %s\n", h.Hypothesis, h.Rationale)
		}
		b.WriteString("\n")
	}
	if len(r.RelatedPapers) > 0 {
		b.WriteString("## Related Papers\n\n")
		for _, p := range r.RelatedPapers {
			fmt.Fprintf(&b, "- [%s](%s)\n", p.Title, p.URI)
		}
		b.WriteString("\n")
	}
	if r.References != nil && len(r.References.APA) > 0 {
		b.WriteString("## References\n\n")
		for _, ref := range r.References.APA {
			fmt.Fprintf(&b, "- %s\n", ref)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func writePoints(b *strings.Builder, heading string, points []analysis.VerifiablePoint) {
	if len(points) == 0 {
		return
	}
	fmt.Fprintf(b, "### %s\n\n", heading)
	for _, p := range points {
		fmt.Fprintf(b, "- %s\n", p.Point)
		if p.Evidence != "" {
			fmt.Fprintf(b, "  > %s\n", p.Evidence)
		}
	}
	b.WriteString("\n")
}
