package generate

import (
	"context"
	"fmt"

	"prism/internal/analysis"
	"prism/internal/jsonutil"
	"prism/internal/llmclient"
)

// CoreContent extracts the essentials that unblock the dashboard: title,
// takeaways, overall summary, and the aspect breakdown. The pipeline blocks
// on this call; everything else streams in behind it.
func (s *Service) CoreContent(ctx context.Context, text string, persona analysis.Persona) (analysis.Result, error) {
	ctx = llmclient.WithPhase(ctx, "core")
	prompt := BuildPrompt(PromptSpec{
		Purpose:    "Analyze the scientific paper below and extract its essential content.",
		Background: "Write for this audience: " + string(persona) + ".",
		Document:   excerpt(text, coreBudget),
		OutputFields: []PromptField{
			{Name: "title", Type: "string", Required: true, Description: "The paper's full title."},
			{Name: "takeaways", Type: "array<string>", Required: true, Description: "The 3-5 most critical key takeaways, each a single concise sentence."},
			{Name: "overallSummary", Type: "string", Required: true, Description: "A concise, one-paragraph overall summary."},
			{Name: "aspects", Type: "object", Required: true, Description: "problemStatement, methodology, and keyFindings with verbatim evidence."},
		},
	})
	resp, err := s.cli.Generate(ctx, llmclient.Request{Prompt: prompt, Schema: coreContentSchema})
	if err != nil {
		return analysis.Result{}, fmt.Errorf("core analysis: %w", err)
	}
	var out analysis.Result
	if err := jsonutil.UnmarshalRaw(resp.JSON, &out); err != nil {
		return analysis.Result{}, fmt.Errorf("core analysis: %w", llmclient.ErrInvalidJSON)
	}
	return out, nil
}

// AdvancedContent is the deep second pass: critique, novelty, future work,
// glossary, and ideation. Runs as a background enrichment.
func (s *Service) AdvancedContent(ctx context.Context, text string, persona analysis.Persona) (analysis.Result, error) {
	ctx = llmclient.WithPhase(ctx, "advanced")
	prompt := BuildPrompt(PromptSpec{
		Purpose:    "Continue the analysis of the scientific paper below with a detailed critical breakdown.",
		Background: "Write for this audience: " + string(persona) + ".",
		Document:   excerpt(text, advancedBudget),
		OutputFields: []PromptField{
			{Name: "critique", Type: "object", Required: true, Description: "Strengths and weaknesses, each with verbatim evidence."},
			{Name: "novelty", Type: "object", Required: true, Description: "Contribution assessment and comparison to prior art."},
			{Name: "futureWork", Type: "array<string>", Required: true, Description: "Actionable next steps based on the limitations."},
			{Name: "glossary", Type: "array", Required: false, Description: "Key domain terms with short definitions."},
			{Name: "ideation", Type: "array", Required: false, Description: "Follow-up hypotheses with rationale."},
		},
		Rules: []string{
			"Evidence quotes must be verbatim substrings of the document text.",
		},
	})
	resp, err := s.cli.Generate(ctx, llmclient.Request{Prompt: prompt, Schema: advancedContentSchema})
	if err != nil {
		return analysis.Result{}, fmt.Errorf("advanced analysis: %w", err)
	}
	var out analysis.Result
	if err := jsonutil.UnmarshalRaw(resp.JSON, &out); err != nil {
		return analysis.Result{}, fmt.Errorf("advanced analysis: %w", llmclient.ErrInvalidJSON)
	}
	return out, nil
}

// RegenerateSummary rewrites the overall summary with explicit audience,
// length, and depth controls.
func (s *Service) RegenerateSummary(ctx context.Context, text string, persona analysis.Persona, length analysis.SummaryLength, depth analysis.TechnicalDepth) (string, error) {
	ctx = llmclient.WithPhase(ctx, "summary")
	prompt := BuildPrompt(PromptSpec{
		Purpose:  "Generate a new summary of the paper below.",
		Document: excerpt(text, summaryBudget),
		Rules: []string{
			"Target audience: " + string(persona) + ".",
			"Length: " + string(length) + ".",
			"Technical depth: " + string(depth) + ".",
			"Reply with only the summary text, no preamble.",
		},
	})
	resp, err := s.cli.Generate(ctx, llmclient.Request{Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("regenerate summary: %w", err)
	}
	return resp.Text, nil
}

// GroundingSummary condenses the document into a fact-dense digest used as
// chat context.
func (s *Service) GroundingSummary(ctx context.Context, text string) (string, error) {
	ctx = llmclient.WithPhase(ctx, "grounding")
	prompt := BuildPrompt(PromptSpec{
		Purpose:  "Create a concise, dense, fact-based summary of the document below.",
		Document: excerpt(text, summaryBudget),
		Rules: []string{
			"The summary is context for a Q&A chat: include key terms, methodologies, and findings.",
			"Reply with only the summary text.",
		},
	})
	resp, err := s.cli.Generate(ctx, llmclient.Request{Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("grounding summary: %w", err)
	}
	return resp.Text, nil
}
