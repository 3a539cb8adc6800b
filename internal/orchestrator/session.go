package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"prism/internal/analysis"
	"prism/internal/chat"
	"prism/internal/generate"
	"prism/internal/history"
	"prism/internal/llmclient"
)

// State is the pipeline position of a session.
type State string

const (
	StateIdle               State = "IDLE"
	StateValidating         State = "VALIDATING"
	StateAwaitingValidation State = "AWAITING_VALIDATION"
	StateAwaitingQuiz       State = "AWAITING_QUIZ"
	StateAnalyzing          State = "ANALYZING"
	StateDashboard          State = "DASHBOARD"
	StateSynthesizing       State = "SYNTHESIZING"
	StateSynthesisDashboard State = "SYNTHESIS_DASHBOARD"
	StateFailed             State = "FAILED"
)

// EventType tags what changed in an Event.
type EventType string

const (
	EventState      EventType = "state"
	EventValidation EventType = "validation"
	EventQuiz       EventType = "quiz"
	EventResult     EventType = "result"
	EventSynthesis  EventType = "synthesis"
	EventWarning    EventType = "warning"
	EventError      EventType = "error"
)

// Event is one update pushed to session watchers.
type Event struct {
	Type       EventType                 `json:"type"`
	State      State                     `json:"state"`
	Validation *generate.Validation      `json:"validation,omitempty"`
	Quiz       []analysis.QuizQuestion   `json:"quiz,omitempty"`
	Result     *analysis.Result          `json:"result,omitempty"`
	Synthesis  *analysis.SynthesisResult `json:"synthesis,omitempty"`
	Message    string                    `json:"message,omitempty"`
}

// ErrBusy is returned when an operation is attempted from the wrong state.
var ErrBusy = errors.New("session busy")

// DefaultPersona is used when the quiz is skipped or unavailable.
const DefaultPersona = analysis.PersonaEngineer

// PersonaForScore maps a 5-question quiz score to the explanation audience.
func PersonaForScore(score int) analysis.Persona {
	switch {
	case score >= 4:
		return analysis.PersonaExpert
	case score >= 2:
		return analysis.PersonaEngineer
	default:
		return analysis.PersonaStudent
	}
}

// Session drives one analysis from document submission to a fully enriched
// dashboard. All mutation happens under one mutex; background work is tied
// to a generation id so results from a superseded run are dropped instead
// of merged.
type Session struct {
	cli      llmclient.Client
	svc      *generate.Service
	store    history.Store
	complete analysis.CompletenessCheck

	mu        sync.Mutex
	state     State
	genID     uint64
	docs      []analysis.Document
	persona   analysis.Persona
	quiz      []analysis.QuizQuestion
	result    analysis.Result
	synthesis *analysis.SynthesisResult
	warnings  []string
	err       error
	saved     bool
	chatSess  *chat.Session
	bgCtx     context.Context
	cancel    context.CancelFunc
	watchers  map[chan Event]struct{}
}

type Option func(*Session)

// WithHistory enables persistence of completed analyses.
func WithHistory(store history.Store) Option {
	return func(s *Session) { s.store = store }
}

// WithCompleteness overrides the predicate that decides when a result is
// complete enough to persist.
func WithCompleteness(check analysis.CompletenessCheck) Option {
	return func(s *Session) { s.complete = check }
}

func NewSession(cli llmclient.Client, svc *generate.Service, opts ...Option) *Session {
	s := &Session{
		cli:      cli,
		svc:      svc,
		complete: analysis.CritiquePresent,
		state:    StateIdle,
		persona:  DefaultPersona,
		watchers: make(map[chan Event]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Watch subscribes to session events. The returned cancel func must be
// called to release the channel. Slow consumers drop events rather than
// stall the pipeline.
func (s *Session) Watch() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()
	return ch, func() {
		s.mu.Lock()
		if _, ok := s.watchers[ch]; ok {
			delete(s.watchers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
}

// emitLocked pushes an event to every watcher. Caller holds s.mu.
func (s *Session) emitLocked(ev Event) {
	ev.State = s.state
	for ch := range s.watchers {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result returns a snapshot of the merged analysis so far.
func (s *Session) Result() analysis.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

func (s *Session) Synthesis() *analysis.SynthesisResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.synthesis
}

func (s *Session) Quiz() []analysis.QuizQuestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]analysis.QuizQuestion, len(s.quiz))
	copy(out, s.quiz)
	return out
}

func (s *Session) Persona() analysis.Persona {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persona
}

// Warnings lists the non-fatal failures of the current run.
func (s *Session) Warnings() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.warnings))
	copy(out, s.warnings)
	return out
}

func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Chat returns the Q&A session for the analyzed document, or nil before the
// core analysis has landed.
func (s *Session) Chat() *chat.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatSess
}

// Reset abandons the current run and returns to idle. Safe to call from any
// state, any number of times; in-flight background results are discarded by
// the generation bump.
func (s *Session) Reset() {
	s.mu.Lock()
	s.genID++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	old := s.chatSess
	s.chatSess = nil
	s.bgCtx = nil
	s.docs = nil
	s.persona = DefaultPersona
	s.quiz = nil
	s.result = analysis.Result{}
	s.synthesis = nil
	s.warnings = nil
	s.err = nil
	s.saved = false
	s.state = StateIdle
	s.emitLocked(Event{Type: EventState})
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}
}

// Submit starts a run. One document enters the validation/quiz/analysis
// pipeline; two or more go straight to comparative synthesis. Background
// work outlives the submitting request's context.
func (s *Session) Submit(ctx context.Context, docs []analysis.Document) error {
	if len(docs) == 0 {
		return errors.New("no documents submitted")
	}
	for _, d := range docs {
		if d.Text == "" {
			return fmt.Errorf("document %q has no extractable text", d.Name)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return fmt.Errorf("%w: state %s", ErrBusy, s.state)
	}

	bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.bgCtx = bg
	s.cancel = cancel
	s.docs = docs
	gen := s.genID

	if len(docs) > 1 {
		s.state = StateSynthesizing
		s.emitLocked(Event{Type: EventState})
		go s.runSynthesis(bg, gen)
		return nil
	}
	s.state = StateValidating
	s.emitLocked(Event{Type: EventState})
	go s.runValidation(bg, gen)
	return nil
}

// Confirm proceeds past a failed validation verdict. The verdict is
// advisory: the user may insist the document is worth analyzing.
func (s *Session) Confirm() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAwaitingValidation {
		return fmt.Errorf("%w: state %s", ErrBusy, s.state)
	}
	gen := s.genID
	bg := s.bgCtx
	s.state = StateValidating
	s.emitLocked(Event{Type: EventState})
	go s.runQuiz(bg, gen)
	return nil
}

// SubmitQuizAnswers scores the quiz and starts the analysis with the
// matching persona. Answers are matched by question order.
func (s *Session) SubmitQuizAnswers(answers []string) (analysis.Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAwaitingQuiz {
		return "", fmt.Errorf("%w: state %s", ErrBusy, s.state)
	}
	score := 0
	for i, q := range s.quiz {
		if i < len(answers) && answers[i] == q.Answer {
			score++
		}
	}
	persona := PersonaForScore(score)
	gen := s.genID
	bg := s.bgCtx
	s.state = StateAnalyzing
	s.emitLocked(Event{Type: EventState})
	go s.runAnalysis(bg, gen, persona)
	return persona, nil
}

// SkipQuiz starts the analysis with the default persona.
func (s *Session) SkipQuiz() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAwaitingQuiz {
		return fmt.Errorf("%w: state %s", ErrBusy, s.state)
	}
	gen := s.genID
	bg := s.bgCtx
	s.state = StateAnalyzing
	s.emitLocked(Event{Type: EventState})
	go s.runAnalysis(bg, gen, DefaultPersona)
	return nil
}
