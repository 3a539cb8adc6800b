package analysis

import "prism/internal/llmclient"

// Persona is the audience profile used to bias prompt tone and depth.
type Persona string

const (
	PersonaExpert   Persona = "a domain expert in the field"
	PersonaEngineer Persona = "a software engineer with no expertise in this specific domain"
	PersonaStudent  Persona = "a curious high school student"
	PersonaManager  Persona = "a product manager looking for business implications"
)

// SummaryLength controls the size of a regenerated summary.
type SummaryLength string

const (
	LengthBrief         SummaryLength = "a brief, one-sentence gist"
	LengthDetailed      SummaryLength = "a detailed, single paragraph summary"
	LengthComprehensive SummaryLength = "a comprehensive, multi-paragraph summary"
)

// TechnicalDepth controls terminology density in a regenerated summary.
type TechnicalDepth string

const (
	DepthLow    TechnicalDepth = "in simple, easy-to-understand language, avoiding jargon"
	DepthMedium TechnicalDepth = "with moderate technical detail"
	DepthHigh   TechnicalDepth = "with full technical depth and terminology"
)

// VerifiablePoint pairs an analytical point with a verbatim quote from the
// source text. The evidence contract is honored by the generator prompt, not
// checked programmatically.
type VerifiablePoint struct {
	Point    string `json:"point"`
	Evidence string `json:"evidence"`
}

// QuizQuestion is a single multiple-choice comprehension question.
// Answer must equal one of Options by exact string match.
type QuizQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

// Valid reports whether the answer is one of the options.
func (q QuizQuestion) Valid() bool {
	for _, opt := range q.Options {
		if opt == q.Answer {
			return true
		}
	}
	return false
}

type Aspects struct {
	ProblemStatement string            `json:"problemStatement"`
	Methodology      string            `json:"methodology"`
	KeyFindings      []VerifiablePoint `json:"keyFindings"`
}

type Critique struct {
	Strengths  []VerifiablePoint `json:"strengths"`
	Weaknesses []VerifiablePoint `json:"weaknesses"`
}

type Novelty struct {
	Assessment string `json:"assessment"`
	Comparison string `json:"comparison"`
}

type RelatedPaper struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

type GlossaryTerm struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// Hypothesis is an ideation entry derived from the paper's limitations.
type Hypothesis struct {
	Hypothesis string `json:"hypothesis"`
	Rationale  string `json:"rationale"`
}

type References struct {
	APA    []string `json:"apa"`
	BibTeX []string `json:"bibtex"`
}

// Result is the progressively-filled analysis record. Every field may be
// absent before the pipeline completes; consumers treat absence as "still
// loading", never as an error.
type Result struct {
	Title          string          `json:"title,omitempty"`
	Takeaways      []string        `json:"takeaways,omitempty"`
	OverallSummary string          `json:"overallSummary,omitempty"`
	Aspects        *Aspects        `json:"aspects,omitempty"`
	Critique       *Critique       `json:"critique,omitempty"`
	Novelty        *Novelty        `json:"novelty,omitempty"`
	FutureWork     []string        `json:"futureWork,omitempty"`
	RelatedPapers  []RelatedPaper  `json:"relatedPapers,omitempty"`
	Glossary       []GlossaryTerm  `json:"glossary,omitempty"`
	Ideation       []Hypothesis    `json:"ideation,omitempty"`
	References     *References     `json:"references,omitempty"`
	ConceptMap     *ConceptMapData `json:"conceptMap,omitempty"`
	Images         []string        `json:"images,omitempty"`
}

// SynthesisResult is the multi-document comparative analysis. Papers entries
// are opaque document labels.
type SynthesisResult struct {
	OverallSynthesis    string               `json:"overallSynthesis"`
	CommonThemes        []ThemeGroup         `json:"commonThemes"`
	ConflictingFindings []ConflictingFinding `json:"conflictingFindings"`
	ConceptEvolution    string               `json:"conceptEvolution"`
}

type ThemeGroup struct {
	Theme  string   `json:"theme"`
	Papers []string `json:"papers"`
}

type ConflictingFinding struct {
	Finding string   `json:"finding"`
	Papers  []string `json:"papers"`
}

// Slide is one page of a generated presentation draft.
type Slide struct {
	Title   string   `json:"title"`
	Bullets []string `json:"bullets"`
	Notes   string   `json:"notes,omitempty"`
}

type Presentation struct {
	Title  string  `json:"title"`
	Slides []Slide `json:"slides"`
}

// HistoryEntry is a completed analysis persisted for later reload.
type HistoryEntry struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	FileName     string `json:"fileName"`
	Timestamp    int64  `json:"timestamp"`
	Result       Result `json:"result"`
	DocumentText string `json:"documentText"`
}

// Document is the immutable per-session context: raw text, attached figure
// images, and a display name.
type Document struct {
	Name   string
	Text   string
	Images []llmclient.Attachment
}
