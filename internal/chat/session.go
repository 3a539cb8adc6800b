package chat

import (
	"context"
	"fmt"
	"log"
	"sync"

	"prism/internal/generate"
	"prism/internal/llmclient"
)

const systemInstruction = "You are a research assistant helping a user understand a scientific paper. " +
	"A summary of the paper is provided below. Answer questions based on this summary and general scientific knowledge. " +
	"Be concise and accurate. If a question cannot be answered from the paper, say so."

// Session is a stateful Q&A conversation grounded in one document. The
// underlying LLM chat is created lazily on the first message so sessions
// that never send anything cost nothing.
type Session struct {
	cli llmclient.Client
	gen *generate.Service

	mu      sync.Mutex
	docText string
	summary string
	inner   llmclient.ChatSession
	closed  bool
}

// NewSession binds a chat session to one document. If summary is non-empty
// it seeds the grounding context directly, skipping the condensation call.
func NewSession(cli llmclient.Client, gen *generate.Service, docText, summary string) *Session {
	return &Session{cli: cli, gen: gen, docText: docText, summary: summary}
}

func (s *Session) grounding(ctx context.Context) (string, error) {
	if s.summary != "" {
		return s.summary, nil
	}
	sum, err := s.gen.GroundingSummary(ctx, s.docText)
	if err != nil {
		return "", fmt.Errorf("chat grounding: %w", err)
	}
	s.summary = sum
	return sum, nil
}

func (s *Session) ensure(ctx context.Context) (llmclient.ChatSession, error) {
	if s.closed {
		return nil, fmt.Errorf("chat session closed")
	}
	if s.inner != nil {
		return s.inner, nil
	}
	sum, err := s.grounding(ctx)
	if err != nil {
		return nil, err
	}
	inner, err := s.cli.NewChat(ctx, systemInstruction+"\n\nPAPER SUMMARY:\n"+sum)
	if err != nil {
		return nil, fmt.Errorf("chat create: %w", err)
	}
	s.inner = inner
	return inner, nil
}

// SendStream sends one user message, optionally with image attachments, and
// streams the reply through onChunk. It returns the full accumulated reply.
func (s *Session) SendStream(ctx context.Context, message string, images []llmclient.Attachment, onChunk func(string)) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inner, err := s.ensure(ctx)
	if err != nil {
		return "", err
	}
	reply, err := inner.SendStream(ctx, message, images, onChunk)
	if err != nil {
		return "", fmt.Errorf("chat send: %w", err)
	}
	return reply, nil
}

// Summary returns the grounding summary if it has been computed or seeded.
func (s *Session) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// Close releases the underlying LLM chat. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.inner != nil {
		if err := s.inner.Close(); err != nil {
			log.Printf("chat close: %v", err)
		}
		s.inner = nil
	}
}
