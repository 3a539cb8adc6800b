package generate

import (
	"strings"
	"testing"
	"unicode/utf8"

	"prism/internal/tester"
)

func TestBuildPrompt_SectionsInOrder(t *testing.T) {
	p := BuildPrompt(PromptSpec{
		Purpose:  "Do the thing.",
		Document: "the paper text",
		OutputFields: []PromptField{
			{Name: "title", Type: "string", Required: true},
			{Name: "notes", Type: "string", Description: "free-form notes"},
		},
		Rules: []string{"Be concise."},
	})

	iPurpose := strings.Index(p, "[PURPOSE]")
	iDoc := strings.Index(p, "[DOCUMENT]")
	iOut := strings.Index(p, "[OUTPUT]")
	iRules := strings.Index(p, "[RULES]")
	tester.True(t, iPurpose >= 0 && iDoc > iPurpose && iOut > iDoc && iRules > iOut, "sections out of order")

	tester.True(t, strings.Contains(p, "- title (string, required)"))
	tester.True(t, strings.Contains(p, "- notes (string, optional): free-form notes"))
	tester.False(t, strings.Contains(p, "[BACKGROUND]"), "empty sections must be omitted")
	tester.False(t, strings.Contains(p, "[CONSTRAINTS]"))
}

func TestExcerpt_ShortTextUntouched(t *testing.T) {
	tester.Eq(t, excerpt("short", 100), "short")
}

func TestExcerpt_CutsOnRuneBoundary(t *testing.T) {
	text := strings.Repeat("縮", 10) // 3 bytes each
	got := excerpt(text, 10)
	tester.True(t, len(got) <= 10)
	tester.True(t, utf8.ValidString(got), "cut must not split a rune")
	tester.Eq(t, got, strings.Repeat("縮", 3))
}

func TestExcerpt_ZeroBudgetMeansUnlimited(t *testing.T) {
	tester.Eq(t, excerpt("anything", 0), "anything")
}
