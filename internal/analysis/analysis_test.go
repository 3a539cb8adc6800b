package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuizQuestion_Valid(t *testing.T) {
	q := QuizQuestion{
		Question: "What is measured?",
		Options:  []string{"a", "b", "c", "d"},
		Answer:   "c",
	}
	assert.True(t, q.Valid())

	q.Answer = "not an option"
	assert.False(t, q.Valid())

	q.Options = nil
	assert.False(t, q.Valid())
}

func TestMerge_EachPatchLandsOnlyItsOwnFields(t *testing.T) {
	var r Result
	r.Merge(Result{Title: "T", Takeaways: []string{"one"}, OverallSummary: "S"})
	r.Merge(Result{Critique: &Critique{Strengths: []VerifiablePoint{{Point: "solid"}}}})
	r.Merge(Result{References: &References{APA: []string{"ref"}}})

	require.Equal(t, "T", r.Title)
	require.Equal(t, "S", r.OverallSummary)
	require.NotNil(t, r.Critique)
	require.NotNil(t, r.References)
	assert.Nil(t, r.Aspects)
	assert.Nil(t, r.Novelty)
}

func TestMerge_EmptyPatchFieldsDoNotClobber(t *testing.T) {
	r := Result{
		Title:          "Original",
		OverallSummary: "Summary",
		Takeaways:      []string{"a"},
		Critique:       &Critique{},
	}
	r.Merge(Result{})

	assert.Equal(t, "Original", r.Title)
	assert.Equal(t, "Summary", r.OverallSummary)
	assert.Equal(t, []string{"a"}, r.Takeaways)
	assert.NotNil(t, r.Critique)
}

func TestMerge_LaterPatchReplacesFieldWholesale(t *testing.T) {
	r := Result{OverallSummary: "first"}
	r.Merge(Result{OverallSummary: "rewritten"})
	assert.Equal(t, "rewritten", r.OverallSummary)
}

func TestCritiquePresent(t *testing.T) {
	assert.False(t, CritiquePresent(nil))
	assert.False(t, CritiquePresent(&Result{Title: "T"}))
	assert.True(t, CritiquePresent(&Result{Critique: &Critique{}}))
}

func TestConceptMap_SanitizeDropsDanglingLinks(t *testing.T) {
	m := &ConceptMapData{
		Nodes: []ConceptNode{{ID: "a", Label: "A"}, {ID: "b", Label: "B"}},
		Links: []ConceptLink{
			{Source: "a", Target: "b", Relationship: "supports"},
			{Source: "a", Target: "ghost", Relationship: "cites"},
			{Source: "ghost", Target: "b", Relationship: "cites"},
		},
	}
	m.Sanitize()
	require.Len(t, m.Links, 1)
	assert.Equal(t, "b", m.Links[0].Target)
}

func TestConceptMap_SanitizeDropsEmptyAndDuplicateNodes(t *testing.T) {
	m := &ConceptMapData{
		Nodes: []ConceptNode{{ID: "", Label: "empty"}, {ID: "a", Label: "A"}, {ID: "a", Label: "dup"}},
		Links: []ConceptLink{{Source: "a", Target: "a", Relationship: "self"}},
	}
	m.Sanitize()
	require.Len(t, m.Nodes, 1)
	assert.Equal(t, "A", m.Nodes[0].Label)
	assert.Len(t, m.Links, 1)
}
