package generate

import (
	"context"
	"fmt"

	"prism/internal/analysis"
	"prism/internal/jsonutil"
	"prism/internal/llmclient"
)

// Document-excerpt byte budgets per task. Cheap classification tasks see
// less of the document than full analysis passes.
const (
	validateBudget  = 15_000
	quizBudget      = 32_000
	coreBudget      = 100_000
	advancedBudget  = 500_000
	refsBudget      = 200_000
	mapBudget       = 100_000
	slidesBudget    = 100_000
	synthesisBudget = 60_000
	figureBudget    = 20_000
	summaryBudget   = 32_000
)

// Service bundles the content generators. Each method is an independent
// request-building function: document text (+ parameters) in, typed partial
// result out.
type Service struct {
	cli llmclient.Client
}

func New(cli llmclient.Client) *Service {
	return &Service{cli: cli}
}

// Validation is the document classifier verdict.
type Validation struct {
	IsPaper bool   `json:"isPaper"`
	Reason  string `json:"reason"`
}

// ValidateDocument classifies whether the text is a scientific or academic
// research paper.
func (s *Service) ValidateDocument(ctx context.Context, text string) (Validation, error) {
	ctx = llmclient.WithPhase(ctx, "validate")
	prompt := BuildPrompt(PromptSpec{
		Purpose:  "Decide whether the provided text is a scientific or academic research paper.",
		Document: excerpt(text, validateBudget),
		OutputFields: []PromptField{
			{Name: "isPaper", Type: "boolean", Required: true},
			{Name: "reason", Type: "string", Required: true, Description: "A brief explanation for the decision."},
		},
		Rules: []string{
			"Consider structure (abstract, introduction, methods, results, conclusion), language, and presence of citations.",
		},
	})
	resp, err := s.cli.Generate(ctx, llmclient.Request{Prompt: prompt, Schema: validationSchema})
	if err != nil {
		return Validation{}, fmt.Errorf("validate document: %w", err)
	}
	var out Validation
	if err := jsonutil.UnmarshalRaw(resp.JSON, &out); err != nil {
		return Validation{}, fmt.Errorf("validate document: %w", llmclient.ErrInvalidJSON)
	}
	return out, nil
}

// Quiz generates a multiple-choice comprehension quiz. Questions whose
// answer is not one of their options are dropped rather than surfaced.
func (s *Service) Quiz(ctx context.Context, text string) ([]analysis.QuizQuestion, error) {
	ctx = llmclient.WithPhase(ctx, "quiz")
	prompt := BuildPrompt(PromptSpec{
		Purpose:  "Generate a 5-question multiple-choice quiz testing comprehension of the paper below.",
		Document: excerpt(text, quizBudget),
		OutputFields: []PromptField{
			{Name: "questions", Type: "array", Required: true, Description: "Five questions, four options each."},
		},
		Rules: []string{
			"Each question has exactly 4 options.",
			"The answer field repeats the correct option text verbatim.",
			"Cover key concepts, methodology, and findings.",
		},
	})
	resp, err := s.cli.Generate(ctx, llmclient.Request{Prompt: prompt, Schema: quizSchema})
	if err != nil {
		return nil, fmt.Errorf("generate quiz: %w", err)
	}
	var out struct {
		Questions []analysis.QuizQuestion `json:"questions"`
	}
	if err := jsonutil.UnmarshalRaw(resp.JSON, &out); err != nil {
		return nil, fmt.Errorf("generate quiz: %w", llmclient.ErrInvalidJSON)
	}
	valid := out.Questions[:0]
	for _, q := range out.Questions {
		if q.Valid() {
			valid = append(valid, q)
		}
	}
	return valid, nil
}
