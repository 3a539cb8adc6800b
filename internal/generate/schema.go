package generate

import genai "google.golang.org/genai"

// Response schemas mirror the typed slices in the analysis package. The
// provider is asked for schema-conformant JSON; responses are parsed and
// trusted beyond basic shape checks.

func stringSchema(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: desc}
}

func stringArraySchema(desc string) *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeArray,
		Items:       &genai.Schema{Type: genai.TypeString},
		Description: desc,
	}
}

var verifiablePointSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"point":    stringSchema("The analytical point, finding, strength, or weakness."),
		"evidence": stringSchema("A direct, verbatim quote from the source text that supports the point."),
	},
	Required: []string{"point", "evidence"},
}

func verifiablePointArraySchema(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: verifiablePointSchema, Description: desc}
}

var validationSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"isPaper": {Type: genai.TypeBoolean},
		"reason":  stringSchema("A brief explanation for the decision."),
	},
	Required: []string{"isPaper", "reason"},
}

var quizSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"questions": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"question": {Type: genai.TypeString},
					"options":  {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
					"answer":   stringSchema("The correct option text from the 'options' array."),
				},
				Required: []string{"question", "options", "answer"},
			},
		},
	},
}

var coreContentSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"title":          stringSchema("The title of the research paper."),
		"takeaways":      stringArraySchema("The 3-5 most critical, high-level key takeaways, each a single concise sentence."),
		"overallSummary": stringSchema("A concise, one-paragraph overall summary of the paper."),
		"aspects": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"problemStatement": stringSchema("Summary of the research gap, motivation, and core problem."),
				"methodology":      stringSchema("Description of the experimental setup, theoretical framework, or model architecture."),
				"keyFindings":      verifiablePointArraySchema("Main results and conclusions, each supported by direct evidence."),
			},
		},
	},
}

var advancedContentSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"critique": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"strengths":  verifiablePointArraySchema("Potential strengths, each supported by direct evidence."),
				"weaknesses": verifiablePointArraySchema("Potential weaknesses, each supported by direct evidence."),
			},
		},
		"novelty": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"assessment": stringSchema("A synthesized statement about the paper's apparent contribution."),
				"comparison": stringSchema("How the paper differs from established prior art."),
			},
		},
		"futureWork": stringArraySchema("Actionable research questions or next steps based on the paper's limitations."),
		"glossary": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"term":       {Type: genai.TypeString},
					"definition": {Type: genai.TypeString},
				},
				Required: []string{"term", "definition"},
			},
			Description: "Domain terms a non-expert reader would need defined.",
		},
		"ideation": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"hypothesis": {Type: genai.TypeString},
					"rationale":  {Type: genai.TypeString},
				},
				Required: []string{"hypothesis"},
			},
			Description: "Follow-up hypotheses grounded in the paper's gaps.",
		},
	},
}

var referencesSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"apa":    stringArraySchema("The paper's reference list formatted as APA citations."),
		"bibtex": stringArraySchema("The same references as BibTeX entries."),
	},
}

var conceptMapSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"nodes": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"id":    stringSchema("Short unique identifier."),
					"label": stringSchema("Human-readable concept name."),
				},
				Required: []string{"id", "label"},
			},
		},
		"links": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"source":       stringSchema("Id of the source node."),
					"target":       stringSchema("Id of the target node."),
					"relationship": stringSchema("Short label for the relationship."),
				},
				Required: []string{"source", "target", "relationship"},
			},
		},
	},
	Required: []string{"nodes", "links"},
}

var presentationSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"title": {Type: genai.TypeString},
		"slides": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"title":   {Type: genai.TypeString},
					"bullets": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
					"notes":   stringSchema("Optional speaker notes."),
				},
				Required: []string{"title", "bullets"},
			},
		},
	},
	Required: []string{"title", "slides"},
}

var synthesisSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"overallSynthesis": stringSchema("A comparative synthesis across all provided papers."),
		"commonThemes": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"theme":  {Type: genai.TypeString},
					"papers": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
				},
				Required: []string{"theme", "papers"},
			},
		},
		"conflictingFindings": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"finding": {Type: genai.TypeString},
					"papers":  {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
				},
				Required: []string{"finding", "papers"},
			},
		},
		"conceptEvolution": stringSchema("How the central concepts evolved across the papers."),
	},
	Required: []string{"overallSynthesis", "commonThemes", "conflictingFindings", "conceptEvolution"},
}
