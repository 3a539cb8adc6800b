package orchestrator

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"sync"
	"time"

	"prism/internal/analysis"
	"prism/internal/chat"
	"prism/internal/llmclient"
)

// setState transitions the session if the run is still current.
func (s *Session) setState(gen uint64, state State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.genID {
		return false
	}
	s.state = state
	s.emitLocked(Event{Type: EventState})
	return true
}

// warn records a non-fatal failure of the current run.
func (s *Session) warn(gen uint64, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.genID {
		return
	}
	log.Printf("session warning: %s", msg)
	s.warnings = append(s.warnings, msg)
	s.emitLocked(Event{Type: EventWarning, Message: msg})
}

// fail ends the current run in the failed state.
func (s *Session) fail(gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.genID {
		return
	}
	log.Printf("session failed: %v", err)
	s.err = err
	s.state = StateFailed
	s.emitLocked(Event{Type: EventError, Message: err.Error()})
}

// mergePatch folds a partial result into the session if the run is still
// current, then persists once the result crosses the completeness bar.
func (s *Session) mergePatch(gen uint64, patch analysis.Result) {
	s.mu.Lock()
	if gen != s.genID {
		s.mu.Unlock()
		return
	}
	s.result.Merge(patch)
	snap := s.result
	var entry analysis.HistoryEntry
	persist := false
	if !s.saved && s.store != nil && s.complete(&s.result) {
		s.saved = true
		persist = true
		entry = analysis.HistoryEntry{
			ID:           fmt.Sprintf("%d", time.Now().UnixNano()),
			Title:        snap.Title,
			FileName:     s.docs[0].Name,
			Timestamp:    time.Now().UnixMilli(),
			Result:       snap,
			DocumentText: s.docs[0].Text,
		}
	}
	bg := s.bgCtx
	s.emitLocked(Event{Type: EventResult, Result: &snap})
	s.mu.Unlock()

	if persist {
		go func() {
			if err := s.store.Save(bg, entry); err != nil {
				s.warn(gen, fmt.Sprintf("history save failed: %v", err))
			}
		}()
	}
}

// runValidation classifies the document. The verdict is advisory: a
// negative result pauses for user confirmation, an unavailable classifier
// degrades to a warning and the pipeline continues.
func (s *Session) runValidation(ctx context.Context, gen uint64) {
	text := s.docText(gen)
	if text == "" {
		return
	}
	v, err := s.svc.ValidateDocument(ctx, text)
	if err != nil {
		s.warn(gen, fmt.Sprintf("validation unavailable: %v", err))
		s.runQuiz(ctx, gen)
		return
	}
	if !v.IsPaper {
		s.mu.Lock()
		if gen == s.genID {
			s.state = StateAwaitingValidation
			s.emitLocked(Event{Type: EventValidation, Validation: &v})
		}
		s.mu.Unlock()
		return
	}
	s.runQuiz(ctx, gen)
}

// runQuiz generates the calibration quiz. Any failure falls through
// silently to the default persona; the quiz is an optimization, never a
// gate.
func (s *Session) runQuiz(ctx context.Context, gen uint64) {
	text := s.docText(gen)
	if text == "" {
		return
	}
	qs, err := s.svc.Quiz(ctx, text)
	if err != nil || len(qs) == 0 {
		if err != nil {
			log.Printf("quiz generation failed, using default persona: %v", err)
		}
		s.runAnalysis(ctx, gen, DefaultPersona)
		return
	}
	s.mu.Lock()
	if gen == s.genID {
		s.quiz = qs
		s.state = StateAwaitingQuiz
		s.emitLocked(Event{Type: EventQuiz, Quiz: qs})
	}
	s.mu.Unlock()
}

// runAnalysis is the main pipeline: one blocking core pass that unblocks
// the dashboard, then concurrent enrichments that each fail independently.
func (s *Session) runAnalysis(ctx context.Context, gen uint64, persona analysis.Persona) {
	text := s.docText(gen)
	if text == "" {
		return
	}
	s.mu.Lock()
	if gen != s.genID {
		s.mu.Unlock()
		return
	}
	s.persona = persona
	s.state = StateAnalyzing
	s.emitLocked(Event{Type: EventState})
	s.mu.Unlock()

	core, err := s.svc.CoreContent(ctx, text, persona)
	if err != nil {
		s.fail(gen, err)
		return
	}

	s.mu.Lock()
	if gen != s.genID {
		s.mu.Unlock()
		return
	}
	s.state = StateDashboard
	s.chatSess = chat.NewSession(s.cli, s.svc, text, core.OverallSummary)
	core.Images = figureDataURLs(s.docs[0].Images)
	s.mu.Unlock()
	s.mergePatch(gen, core)

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		patch, err := s.svc.AdvancedContent(ctx, text, persona)
		if err != nil {
			s.warn(gen, fmt.Sprintf("detailed analysis failed: %v", err))
			return
		}
		s.mergePatch(gen, patch)
	}()
	go func() {
		defer wg.Done()
		refs, err := s.svc.ExtractReferences(ctx, text)
		if err != nil {
			s.warn(gen, fmt.Sprintf("reference extraction failed: %v", err))
			return
		}
		s.mergePatch(gen, analysis.Result{References: refs})
	}()
	go func() {
		defer wg.Done()
		cm, err := s.svc.ConceptMap(ctx, text)
		if err != nil {
			s.warn(gen, fmt.Sprintf("concept map failed: %v", err))
			return
		}
		s.mergePatch(gen, analysis.Result{ConceptMap: cm})
	}()
	go func() {
		defer wg.Done()
		// The search query needs both a title and a summary to anchor on.
		if core.Title == "" || core.OverallSummary == "" {
			return
		}
		papers := s.svc.FindRelatedPapers(ctx, core.Title, core.OverallSummary)
		if len(papers) > 0 {
			s.mergePatch(gen, analysis.Result{RelatedPapers: papers})
		}
	}()
	wg.Wait()
}

// runSynthesis is the multi-document path.
func (s *Session) runSynthesis(ctx context.Context, gen uint64) {
	s.mu.Lock()
	if gen != s.genID {
		s.mu.Unlock()
		return
	}
	docs := s.docs
	s.mu.Unlock()

	syn, err := s.svc.Synthesize(ctx, docs)
	if err != nil {
		s.fail(gen, err)
		return
	}
	s.mu.Lock()
	if gen == s.genID {
		s.synthesis = syn
		s.state = StateSynthesisDashboard
		s.emitLocked(Event{Type: EventSynthesis, Synthesis: syn})
	}
	s.mu.Unlock()
}

// figureDataURLs encodes the document's extracted figure images as data
// URLs so dashboard consumers can enumerate and render them.
func figureDataURLs(images []llmclient.Attachment) []string {
	if len(images) == 0 {
		return nil
	}
	urls := make([]string, len(images))
	for i, img := range images {
		urls[i] = "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
	}
	return urls
}

// docText returns the single document's text if the run is current.
func (s *Session) docText(gen uint64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.genID || len(s.docs) == 0 {
		return ""
	}
	return s.docs[0].Text
}
