package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"prism/internal/analysis"
	"prism/internal/generate"
	"prism/internal/history"
	"prism/internal/llmclient"
	"prism/internal/tester"
)

const waitFor = 2 * time.Second

const validPaperJSON = `{"isPaper":true,"reason":"looks like a paper"}`

const quizJSON = `{"questions":[
	{"question":"q1","options":["a","b","c","d"],"answer":"a"},
	{"question":"q2","options":["a","b","c","d"],"answer":"b"},
	{"question":"q3","options":["a","b","c","d"],"answer":"c"},
	{"question":"q4","options":["a","b","c","d"],"answer":"d"},
	{"question":"q5","options":["a","b","c","d"],"answer":"a"}
]}`

const coreJSON = `{
	"title":"Widget Dynamics",
	"takeaways":["t1","t2","t3"],
	"overallSummary":"widgets in motion",
	"aspects":{"problemStatement":"p","methodology":"m","keyFindings":[{"point":"kf","evidence":"ev"}]}
}`

const advancedJSON = `{
	"critique":{"strengths":[{"point":"s","evidence":"e"}],"weaknesses":[]},
	"novelty":{"assessment":"novel","comparison":"vs prior"},
	"futureWork":["next"]
}`

const refsJSON = `{"apa":["Doe (2020)"],"bibtex":["@article{doe2020}"]}`

const mapJSON = `{"nodes":[{"id":"w","label":"Widget"}],"links":[]}`

func fullFake() *llmclient.FakeClient {
	fake := llmclient.NewFakeClient()
	fake.JSONByPhase["validate"] = validPaperJSON
	fake.JSONByPhase["quiz"] = quizJSON
	fake.JSONByPhase["core"] = coreJSON
	fake.JSONByPhase["advanced"] = advancedJSON
	fake.JSONByPhase["references"] = refsJSON
	fake.JSONByPhase["conceptmap"] = mapJSON
	fake.Sources = []llmclient.WebSource{{Title: "Related", URI: "https://example.org/r"}}
	return fake
}

func newTestSession(fake *llmclient.FakeClient, store history.Store) *Session {
	opts := []Option{}
	if store != nil {
		opts = append(opts, WithHistory(store))
	}
	return NewSession(fake, generate.New(fake), opts...)
}

func singleDoc() []analysis.Document {
	return []analysis.Document{{Name: "paper.txt", Text: "the full paper text"}}
}

func waitForState(t *testing.T, s *Session, want State) {
	t.Helper()
	tester.Eventually(t, waitFor, func() bool { return s.State() == want }, "state "+string(want))
}

func TestPersonaForScore_Boundaries(t *testing.T) {
	tester.Eq(t, PersonaForScore(0), analysis.PersonaStudent)
	tester.Eq(t, PersonaForScore(1), analysis.PersonaStudent)
	tester.Eq(t, PersonaForScore(2), analysis.PersonaEngineer)
	tester.Eq(t, PersonaForScore(3), analysis.PersonaEngineer)
	tester.Eq(t, PersonaForScore(4), analysis.PersonaExpert)
	tester.Eq(t, PersonaForScore(5), analysis.PersonaExpert)
}

func TestPipeline_SingleDocumentFullRun(t *testing.T) {
	store := history.NewMemory()
	s := newTestSession(fullFake(), store)

	tester.NoErr(t, s.Submit(context.Background(), singleDoc()))
	waitForState(t, s, StateAwaitingQuiz)
	tester.Eq(t, len(s.Quiz()), 5)

	// All five answers correct: expert persona.
	persona, err := s.SubmitQuizAnswers([]string{"a", "b", "c", "d", "a"})
	tester.NoErr(t, err)
	tester.Eq(t, persona, analysis.PersonaExpert)

	waitForState(t, s, StateDashboard)
	tester.Eventually(t, waitFor, func() bool {
		r := s.Result()
		return r.Critique != nil && r.References != nil && r.ConceptMap != nil && len(r.RelatedPapers) > 0
	}, "all enrichments merged")

	r := s.Result()
	tester.Eq(t, r.Title, "Widget Dynamics")
	tester.Eq(t, r.OverallSummary, "widgets in motion")
	tester.Eq(t, r.RelatedPapers[0].URI, "https://example.org/r")
	tester.True(t, s.Chat() != nil, "chat session should exist after core analysis")

	// Critique present triggers exactly one history save.
	tester.Eventually(t, waitFor, func() bool {
		entries, _ := store.List(context.Background())
		return len(entries) == 1
	}, "history persisted")
	entries, _ := store.List(context.Background())
	tester.Eq(t, entries[0].Title, "Widget Dynamics")
	tester.Eq(t, entries[0].FileName, "paper.txt")
}

func TestPipeline_FigureImagesLandOnDashboard(t *testing.T) {
	s := newTestSession(fullFake(), nil)

	docs := []analysis.Document{{
		Name:   "paper.txt",
		Text:   "the full paper text",
		Images: []llmclient.Attachment{{MIMEType: "image/png", Data: []byte{0x89, 0x50, 0x4e, 0x47}}},
	}}
	tester.NoErr(t, s.Submit(context.Background(), docs))
	waitForState(t, s, StateAwaitingQuiz)
	tester.NoErr(t, s.SkipQuiz())
	waitForState(t, s, StateDashboard)

	tester.Eventually(t, waitFor, func() bool { return len(s.Result().Images) == 1 }, "figure images merged with the core pass")
	tester.True(t, strings.HasPrefix(s.Result().Images[0], "data:image/png;base64,"))
}

func TestPipeline_WrongAnswersGetStudentPersona(t *testing.T) {
	s := newTestSession(fullFake(), nil)

	tester.NoErr(t, s.Submit(context.Background(), singleDoc()))
	waitForState(t, s, StateAwaitingQuiz)

	persona, err := s.SubmitQuizAnswers([]string{"b", "a", "a", "a", "b"})
	tester.NoErr(t, err)
	tester.Eq(t, persona, analysis.PersonaStudent)
}

func TestPipeline_QuizFailureFallsThroughSilently(t *testing.T) {
	fake := fullFake()
	fake.ErrByPhase["quiz"] = errors.New("quiz backend down")
	s := newTestSession(fake, nil)

	tester.NoErr(t, s.Submit(context.Background(), singleDoc()))
	waitForState(t, s, StateDashboard)
	tester.Eq(t, s.Persona(), DefaultPersona)
	// The fall-through is silent: no warning surfaced for the quiz.
	for _, w := range s.Warnings() {
		tester.False(t, strings.Contains(w, "quiz"), "quiz failure must not surface as a warning")
	}
}

func TestPipeline_ValidationAdvisory(t *testing.T) {
	fake := fullFake()
	fake.JSONByPhase["validate"] = `{"isPaper":false,"reason":"reads like a blog post"}`
	s := newTestSession(fake, nil)

	tester.NoErr(t, s.Submit(context.Background(), singleDoc()))
	waitForState(t, s, StateAwaitingValidation)

	// User insists: pipeline continues to the quiz.
	tester.NoErr(t, s.Confirm())
	waitForState(t, s, StateAwaitingQuiz)
}

func TestPipeline_ValidationErrorDegradesToWarning(t *testing.T) {
	fake := fullFake()
	fake.ErrByPhase["validate"] = errors.New("classifier offline")
	s := newTestSession(fake, nil)

	tester.NoErr(t, s.Submit(context.Background(), singleDoc()))
	waitForState(t, s, StateAwaitingQuiz)
	tester.True(t, len(s.Warnings()) > 0, "validation outage should surface as a warning")
}

func TestPipeline_EnrichmentFailuresAreIsolated(t *testing.T) {
	fake := fullFake()
	fake.ErrByPhase["references"] = errors.New("references exploded")
	fake.ErrByPhase["conceptmap"] = errors.New("map exploded")
	s := newTestSession(fake, nil)

	tester.NoErr(t, s.Submit(context.Background(), singleDoc()))
	waitForState(t, s, StateAwaitingQuiz)
	tester.NoErr(t, s.SkipQuiz())
	waitForState(t, s, StateDashboard)

	tester.Eventually(t, waitFor, func() bool { return s.Result().Critique != nil }, "advanced content merged")
	r := s.Result()
	tester.True(t, r.References == nil)
	tester.True(t, r.ConceptMap == nil)
	tester.Eventually(t, waitFor, func() bool { return len(s.Warnings()) >= 2 }, "both failures warned")
}

func TestPipeline_CoreFailureIsTerminal(t *testing.T) {
	fake := fullFake()
	fake.ErrByPhase["core"] = errors.New("model unavailable")
	s := newTestSession(fake, nil)

	tester.NoErr(t, s.Submit(context.Background(), singleDoc()))
	waitForState(t, s, StateAwaitingQuiz)
	tester.NoErr(t, s.SkipQuiz())
	waitForState(t, s, StateFailed)
	tester.True(t, s.Err() != nil)
}

func TestPipeline_MultiDocumentGoesStraightToSynthesis(t *testing.T) {
	fake := fullFake()
	fake.JSONByPhase["synthesis"] = `{
		"overallSynthesis":"combined view",
		"commonThemes":[],
		"conflictingFindings":[],
		"conceptEvolution":"evolved"
	}`
	s := newTestSession(fake, nil)

	docs := []analysis.Document{
		{Name: "a.txt", Text: "first"},
		{Name: "b.txt", Text: "second"},
	}
	tester.NoErr(t, s.Submit(context.Background(), docs))
	waitForState(t, s, StateSynthesisDashboard)

	syn := s.Synthesis()
	tester.True(t, syn != nil)
	tester.Eq(t, syn.OverallSynthesis, "combined view")

	// Validation and quiz were bypassed entirely.
	for _, phase := range fake.PhaseCalls() {
		tester.False(t, phase == "validate" || phase == "quiz", "multi-doc run must skip "+phase)
	}
}

func TestSubmit_RejectedWhileBusy(t *testing.T) {
	s := newTestSession(fullFake(), nil)
	tester.NoErr(t, s.Submit(context.Background(), singleDoc()))
	err := s.Submit(context.Background(), singleDoc())
	tester.ErrIs(t, err, ErrBusy)
}

func TestSubmit_RejectsEmptyText(t *testing.T) {
	s := newTestSession(fullFake(), nil)
	err := s.Submit(context.Background(), []analysis.Document{{Name: "blank.txt"}})
	tester.True(t, err != nil)
}

func TestReset_IsIdempotentAndDiscardsStaleMerges(t *testing.T) {
	s := newTestSession(fullFake(), nil)
	tester.NoErr(t, s.Submit(context.Background(), singleDoc()))
	waitForState(t, s, StateAwaitingQuiz)

	staleGen := s.genID
	s.Reset()
	s.Reset()
	tester.Eq(t, s.State(), StateIdle)
	tester.Eq(t, len(s.Quiz()), 0)

	// A merge carrying the pre-reset generation must be dropped.
	s.mergePatch(staleGen, analysis.Result{Title: "stale"})
	tester.Eq(t, s.Result().Title, "")

	// The session is reusable after reset.
	tester.NoErr(t, s.Submit(context.Background(), singleDoc()))
	waitForState(t, s, StateAwaitingQuiz)
}

func TestRestore_LoadsHistoryEntryWithoutPipeline(t *testing.T) {
	fake := fullFake()
	s := newTestSession(fake, nil)

	entry := analysis.HistoryEntry{
		ID:           "42",
		Title:        "Old Analysis",
		FileName:     "old.txt",
		Result:       analysis.Result{Title: "Old Analysis", Critique: &analysis.Critique{}},
		DocumentText: "old document",
	}
	tester.NoErr(t, s.Restore(entry))
	tester.Eq(t, s.State(), StateDashboard)
	tester.Eq(t, s.Result().Title, "Old Analysis")
	tester.True(t, s.Chat() != nil)
	tester.Eq(t, len(fake.PhaseCalls()), 0, "restore must not call the model")
}

func TestWatch_DeliversStateAndResultEvents(t *testing.T) {
	s := newTestSession(fullFake(), nil)
	events, cancel := s.Watch()
	defer cancel()

	tester.NoErr(t, s.Submit(context.Background(), singleDoc()))
	waitForState(t, s, StateAwaitingQuiz)

	var sawState, sawQuiz bool
	deadline := time.After(waitFor)
	for !(sawState && sawQuiz) {
		select {
		case ev := <-events:
			switch ev.Type {
			case EventState:
				sawState = true
			case EventQuiz:
				sawQuiz = true
				tester.Eq(t, len(ev.Quiz), 5)
			}
		case <-deadline:
			t.Fatal("expected state and quiz events")
		}
	}
}

func TestRegenerateSummary_MergesIntoResult(t *testing.T) {
	fake := fullFake()
	fake.TextByPhase["summary"] = "rewritten summary"
	s := newTestSession(fake, nil)

	tester.NoErr(t, s.Submit(context.Background(), singleDoc()))
	waitForState(t, s, StateAwaitingQuiz)
	tester.NoErr(t, s.SkipQuiz())
	waitForState(t, s, StateDashboard)

	got, err := s.RegenerateSummary(context.Background(), analysis.LengthBrief, analysis.DepthLow)
	tester.NoErr(t, err)
	tester.Eq(t, got, "rewritten summary")
	tester.Eventually(t, waitFor, func() bool {
		return s.Result().OverallSummary == "rewritten summary"
	}, "summary merged")
}
