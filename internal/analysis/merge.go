package analysis

// Merge applies a partial result onto r. Fields set in patch replace the
// corresponding field wholesale; everything else is left untouched, so
// concurrent enrichment callbacks each land only their own slice.
func (r *Result) Merge(patch Result) {
	if patch.Title != "" {
		r.Title = patch.Title
	}
	if patch.Takeaways != nil {
		r.Takeaways = patch.Takeaways
	}
	if patch.OverallSummary != "" {
		r.OverallSummary = patch.OverallSummary
	}
	if patch.Aspects != nil {
		r.Aspects = patch.Aspects
	}
	if patch.Critique != nil {
		r.Critique = patch.Critique
	}
	if patch.Novelty != nil {
		r.Novelty = patch.Novelty
	}
	if patch.FutureWork != nil {
		r.FutureWork = patch.FutureWork
	}
	if patch.RelatedPapers != nil {
		r.RelatedPapers = patch.RelatedPapers
	}
	if patch.Glossary != nil {
		r.Glossary = patch.Glossary
	}
	if patch.Ideation != nil {
		r.Ideation = patch.Ideation
	}
	if patch.References != nil {
		r.References = patch.References
	}
	if patch.ConceptMap != nil {
		r.ConceptMap = patch.ConceptMap
	}
	if patch.Images != nil {
		r.Images = patch.Images
	}
}

// CompletenessCheck decides when a partial result is settled enough to
// persist to history. The critique arrives in one of the last enrichment
// calls, so its presence is the default proxy; swap the predicate rather
// than waiting on every optional field.
type CompletenessCheck func(r *Result) bool

// CritiquePresent is the default completeness predicate.
func CritiquePresent(r *Result) bool {
	return r != nil && r.Critique != nil
}
