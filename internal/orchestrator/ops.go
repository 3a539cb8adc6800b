package orchestrator

import (
	"context"
	"fmt"

	"prism/internal/analysis"
	"prism/internal/chat"
)

// RegenerateSummary rewrites the overall summary with new length and depth
// controls, keeping the run's persona, and merges it into the result.
func (s *Session) RegenerateSummary(ctx context.Context, length analysis.SummaryLength, depth analysis.TechnicalDepth) (string, error) {
	s.mu.Lock()
	if s.state != StateDashboard {
		s.mu.Unlock()
		return "", fmt.Errorf("%w: state %s", ErrBusy, s.state)
	}
	gen := s.genID
	text := s.docs[0].Text
	persona := s.persona
	s.mu.Unlock()

	summary, err := s.svc.RegenerateSummary(ctx, text, persona, length, depth)
	if err != nil {
		return "", err
	}
	s.mergePatch(gen, analysis.Result{OverallSummary: summary})
	return summary, nil
}

// ExplainFigure describes one of the document's extracted figures.
func (s *Session) ExplainFigure(ctx context.Context, index int) (string, error) {
	s.mu.Lock()
	if len(s.docs) == 0 {
		s.mu.Unlock()
		return "", fmt.Errorf("%w: no document", ErrBusy)
	}
	doc := s.docs[0]
	s.mu.Unlock()

	if index < 0 || index >= len(doc.Images) {
		return "", fmt.Errorf("figure index %d out of range", index)
	}
	return s.svc.ExplainFigure(ctx, doc.Text, doc.Images[index])
}

// Presentation drafts a slide deck for the analyzed document using the
// run's persona.
func (s *Session) Presentation(ctx context.Context) (*analysis.Presentation, error) {
	s.mu.Lock()
	if len(s.docs) == 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: no document", ErrBusy)
	}
	text := s.docs[0].Text
	persona := s.persona
	s.mu.Unlock()

	return s.svc.Presentation(ctx, text, persona)
}

// Restore loads a past analysis back into the session, skipping the whole
// pipeline. The result arrives already complete so no re-persistence fires.
func (s *Session) Restore(entry analysis.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return fmt.Errorf("%w: state %s", ErrBusy, s.state)
	}
	s.genID++
	s.docs = []analysis.Document{{Name: entry.FileName, Text: entry.DocumentText}}
	s.result = entry.Result
	s.saved = true
	s.state = StateDashboard
	s.chatSess = chat.NewSession(s.cli, s.svc, entry.DocumentText, entry.Result.OverallSummary)
	snap := s.result
	s.emitLocked(Event{Type: EventResult, Result: &snap})
	return nil
}
