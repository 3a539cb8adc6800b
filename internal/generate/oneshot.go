package generate

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"prism/internal/analysis"
	"prism/internal/jsonutil"
	"prism/internal/llmclient"
)

// Presentation drafts a slide deck from the paper. One-shot: either a
// complete typed result or an error, no partial merge semantics.
func (s *Service) Presentation(ctx context.Context, text string, persona analysis.Persona) (*analysis.Presentation, error) {
	ctx = llmclient.WithPhase(ctx, "presentation")
	prompt := BuildPrompt(PromptSpec{
		Purpose:    "Draft a slide-by-slide presentation of the paper below.",
		Background: "Write for this audience: " + string(persona) + ".",
		Document:   excerpt(text, slidesBudget),
		OutputFields: []PromptField{
			{Name: "title", Type: "string", Required: true},
			{Name: "slides", Type: "array", Required: true, Description: "8-12 slides; each has a title, 3-5 bullets, and optional speaker notes."},
		},
	})
	resp, err := s.cli.Generate(ctx, llmclient.Request{Prompt: prompt, Schema: presentationSchema})
	if err != nil {
		return nil, fmt.Errorf("presentation: %w", err)
	}
	var out analysis.Presentation
	if err := jsonutil.UnmarshalRaw(resp.JSON, &out); err != nil {
		return nil, fmt.Errorf("presentation: %w", llmclient.ErrInvalidJSON)
	}
	return &out, nil
}

// Synthesize runs the multi-document comparative analysis. Long documents
// are condensed concurrently first so the synthesis call sees every paper
// within one context window.
func (s *Service) Synthesize(ctx context.Context, docs []analysis.Document) (*analysis.SynthesisResult, error) {
	if len(docs) < 2 {
		return nil, fmt.Errorf("synthesis needs at least 2 documents, got %d", len(docs))
	}

	condensed := make([]string, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	for i, doc := range docs {
		if len(doc.Text) <= synthesisBudget {
			condensed[i] = doc.Text
			continue
		}
		g.Go(func() error {
			sum, err := s.GroundingSummary(gctx, doc.Text)
			if err != nil {
				return fmt.Errorf("condense %q: %w", doc.Name, err)
			}
			condensed[i] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("synthesis: %w", err)
	}

	var corpus strings.Builder
	for i, doc := range docs {
		fmt.Fprintf(&corpus, "--- PAPER: %s ---\n%s\n\n", doc.Name, condensed[i])
	}

	ctx = llmclient.WithPhase(ctx, "synthesis")
	prompt := BuildPrompt(PromptSpec{
		Purpose:  "Compare and synthesize the research papers below.",
		Document: corpus.String(),
		OutputFields: []PromptField{
			{Name: "overallSynthesis", Type: "string", Required: true},
			{Name: "commonThemes", Type: "array", Required: true, Description: "Themes shared across papers, each listing the paper names involved."},
			{Name: "conflictingFindings", Type: "array", Required: true, Description: "Findings where the papers disagree, each listing the paper names involved."},
			{Name: "conceptEvolution", Type: "string", Required: true, Description: "How the central ideas evolved across the papers."},
		},
		Rules: []string{
			"Refer to papers by the names in the PAPER headers.",
		},
	})
	resp, err := s.cli.Generate(ctx, llmclient.Request{Prompt: prompt, Schema: synthesisSchema})
	if err != nil {
		return nil, fmt.Errorf("synthesis: %w", err)
	}
	var out analysis.SynthesisResult
	if err := jsonutil.UnmarshalRaw(resp.JSON, &out); err != nil {
		return nil, fmt.Errorf("synthesis: %w", llmclient.ErrInvalidJSON)
	}
	return &out, nil
}
