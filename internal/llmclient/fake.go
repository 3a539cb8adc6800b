package llmclient

import (
	"context"
	"encoding/json"
	"sync"
)

// FakeClient returns deterministic payloads per phase for offline/testing.
// Phases are matched against the phase tag in the context; unmatched phases
// fall back to an empty JSON object.
type FakeClient struct {
	mu sync.Mutex
	// JSONByPhase maps a phase tag to the raw JSON the model "returns".
	JSONByPhase map[string]string
	// ErrByPhase forces an error for a phase; checked before JSONByPhase.
	ErrByPhase map[string]error
	// TextByPhase serves free-text (no schema) requests.
	TextByPhase map[string]string
	// Sources serves search requests.
	Sources []WebSource
	// Calls records the phases seen, in order.
	Calls []string
	// ChatReply is streamed back by fake chat sessions, one rune chunk at
	// a time.
	ChatReply string
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		JSONByPhase: make(map[string]string),
		ErrByPhase:  make(map[string]error),
		TextByPhase: make(map[string]string),
	}
}

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) Generate(ctx context.Context, req Request) (*Response, error) {
	phase := PhaseFrom(ctx)
	f.mu.Lock()
	f.Calls = append(f.Calls, phase)
	err := f.ErrByPhase[phase]
	rawJSON, hasJSON := f.JSONByPhase[phase]
	text, hasText := f.TextByPhase[phase]
	sources := f.Sources
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp := &Response{}
	if req.Search {
		resp.Sources = sources
	}
	switch {
	case req.Schema != nil && hasJSON:
		resp.JSON = json.RawMessage(rawJSON)
		resp.Text = rawJSON
	case req.Schema != nil:
		resp.JSON = json.RawMessage(`{}`)
		resp.Text = `{}`
	case hasText:
		resp.Text = text
	case hasJSON:
		resp.Text = rawJSON
	}
	return resp, nil
}

func (f *FakeClient) NewChat(ctx context.Context, system string) (ChatSession, error) {
	return &fakeChat{reply: f.ChatReply}, nil
}

// PhaseCalls returns a copy of the recorded phase tags.
func (f *FakeClient) PhaseCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Calls...)
}

type fakeChat struct {
	mu     sync.Mutex
	reply  string
	turns  int
	closed bool
}

func (c *fakeChat) SendStream(ctx context.Context, message string, images []Attachment, onChunk func(string)) (string, error) {
	c.mu.Lock()
	c.turns++
	reply := c.reply
	c.mu.Unlock()
	if reply == "" {
		reply = "ok"
	}
	for _, r := range reply {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if onChunk != nil {
			onChunk(string(r))
		}
	}
	return reply, nil
}

func (c *fakeChat) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}
