package generate

import (
	"context"
	"fmt"
	"log"

	"prism/internal/analysis"
	"prism/internal/jsonutil"
	"prism/internal/llmclient"
)

// ExtractReferences pulls the paper's bibliography in APA and BibTeX form.
func (s *Service) ExtractReferences(ctx context.Context, text string) (*analysis.References, error) {
	ctx = llmclient.WithPhase(ctx, "references")
	prompt := BuildPrompt(PromptSpec{
		Purpose:  "Extract the reference list from the paper below.",
		Document: excerpt(text, refsBudget),
		OutputFields: []PromptField{
			{Name: "apa", Type: "array<string>", Required: true, Description: "Each reference as an APA citation."},
			{Name: "bibtex", Type: "array<string>", Required: true, Description: "Each reference as a BibTeX entry."},
		},
		Rules: []string{
			"Only include references that actually appear in the document.",
		},
	})
	resp, err := s.cli.Generate(ctx, llmclient.Request{Prompt: prompt, Schema: referencesSchema})
	if err != nil {
		return nil, fmt.Errorf("extract references: %w", err)
	}
	var out analysis.References
	if err := jsonutil.UnmarshalRaw(resp.JSON, &out); err != nil {
		return nil, fmt.Errorf("extract references: %w", llmclient.ErrInvalidJSON)
	}
	return &out, nil
}

// FindRelatedPapers runs a search-grounded query for similar recent work.
// This is a non-critical enhancement: any failure degrades to an empty list.
func (s *Service) FindRelatedPapers(ctx context.Context, title, summary string) []analysis.RelatedPaper {
	ctx = llmclient.WithPhase(ctx, "related")
	query := fmt.Sprintf("Based on the title %q and summary %q, find 5 highly relevant and recent scientific papers.", title, summary)
	resp, err := s.cli.Generate(ctx, llmclient.Request{Prompt: query, Search: true})
	if err != nil {
		log.Printf("related papers lookup failed: %v", err)
		return nil
	}
	papers := make([]analysis.RelatedPaper, 0, len(resp.Sources))
	for _, src := range resp.Sources {
		papers = append(papers, analysis.RelatedPaper{Title: src.Title, URI: src.URI})
	}
	return papers
}

// ConceptMap extracts the concept graph. Dangling links are dropped at
// ingestion, never surfaced.
func (s *Service) ConceptMap(ctx context.Context, text string) (*analysis.ConceptMapData, error) {
	ctx = llmclient.WithPhase(ctx, "conceptmap")
	prompt := BuildPrompt(PromptSpec{
		Purpose:  "Extract the 8-14 central concepts of the paper below and the labeled relationships between them.",
		Document: excerpt(text, mapBudget),
		OutputFields: []PromptField{
			{Name: "nodes", Type: "array", Required: true, Description: "Concepts with unique ids and short labels."},
			{Name: "links", Type: "array", Required: true, Description: "Directed relationships between node ids with a short verb phrase."},
		},
		Rules: []string{
			"Every link's source and target must be a node id from the nodes array.",
		},
	})
	resp, err := s.cli.Generate(ctx, llmclient.Request{Prompt: prompt, Schema: conceptMapSchema})
	if err != nil {
		return nil, fmt.Errorf("concept map: %w", err)
	}
	var out analysis.ConceptMapData
	if err := jsonutil.UnmarshalRaw(resp.JSON, &out); err != nil {
		return nil, fmt.Errorf("concept map: %w", llmclient.ErrInvalidJSON)
	}
	out.Sanitize()
	return &out, nil
}

// ExplainFigure describes a selected figure against the document context.
func (s *Service) ExplainFigure(ctx context.Context, text string, image llmclient.Attachment) (string, error) {
	ctx = llmclient.WithPhase(ctx, "figure")
	prompt := BuildPrompt(PromptSpec{
		Purpose:  "Explain what the attached figure represents: its components, what the data shows, and its significance to the paper's main arguments.",
		Document: excerpt(text, figureBudget),
		Rules: []string{
			"Ground the explanation in the document context.",
			"Reply with only the explanation text.",
		},
	})
	resp, err := s.cli.Generate(ctx, llmclient.Request{Prompt: prompt, Images: []llmclient.Attachment{image}})
	if err != nil {
		return "", fmt.Errorf("explain figure: %w", err)
	}
	return resp.Text, nil
}
