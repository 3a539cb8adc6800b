package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	genai "google.golang.org/genai"
)

// GeminiClient is a thin wrapper around the official genai client. It rotates
// through the credential pool on every call and keeps one underlying client
// per key. Cross-cutting concerns are applied via Middleware.
type GeminiClient struct {
	keys  KeyProvider
	model string

	mu      sync.Mutex
	clients map[string]*genai.Client
}

func NewGeminiClient(keys KeyProvider, model string) (*GeminiClient, error) {
	if keys == nil {
		return nil, errors.New("llmclient: nil key provider")
	}
	if strings.TrimSpace(model) == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiClient{
		keys:    keys,
		model:   model,
		clients: make(map[string]*genai.Client),
	}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }
func (g *GeminiClient) Close() error { return nil }

// clientFor returns (building if needed) the genai client for the next key
// in rotation.
func (g *GeminiClient) clientFor(ctx context.Context) (*genai.Client, error) {
	key := g.keys.Next()
	g.mu.Lock()
	defer g.mu.Unlock()
	if cli, ok := g.clients[key]; ok {
		return cli, nil
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, NewPermanentError(err)
	}
	g.clients[key] = cli
	return cli, nil
}

func (g *GeminiClient) Generate(ctx context.Context, req Request) (*Response, error) {
	cli, err := g.clientFor(ctx)
	if err != nil {
		return nil, err
	}

	parts := []*genai.Part{{Text: req.Prompt}}
	for _, img := range req.Images {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: img.MIMEType, Data: img.Data},
		})
	}
	contents := []*genai.Content{{Role: genai.RoleUser, Parts: parts}}

	cfg := &genai.GenerateContentConfig{}
	if req.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = req.Schema
	}
	if req.Search {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	resp, err := cli.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ErrInvalidJSON
	}

	out := &Response{Text: candidateText(resp.Candidates[0])}
	if req.Schema != nil {
		if strings.TrimSpace(out.Text) == "" {
			return nil, ErrInvalidJSON
		}
		out.JSON = json.RawMessage(out.Text)
	}
	if req.Search {
		out.Sources = groundingSources(resp.Candidates[0])
	}
	return out, nil
}

func candidateText(c *genai.Candidate) string {
	if c == nil || c.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range c.Content.Parts {
		if p != nil {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// groundingSources pulls {title, uri} pairs out of the search-grounding
// metadata; chunks without a web entry are skipped.
func groundingSources(c *genai.Candidate) []WebSource {
	if c == nil || c.GroundingMetadata == nil {
		return nil
	}
	var out []WebSource
	for _, chunk := range c.GroundingMetadata.GroundingChunks {
		if chunk == nil || chunk.Web == nil {
			continue
		}
		if chunk.Web.URI == "" || chunk.Web.Title == "" {
			continue
		}
		out = append(out, WebSource{Title: chunk.Web.Title, URI: chunk.Web.URI})
	}
	return out
}

// -------- Chat --------

type geminiChat struct {
	chat *genai.Chat
}

func (g *GeminiClient) NewChat(ctx context.Context, systemInstruction string) (ChatSession, error) {
	cli, err := g.clientFor(ctx)
	if err != nil {
		return nil, err
	}
	cfg := &genai.GenerateContentConfig{}
	if strings.TrimSpace(systemInstruction) != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: systemInstruction}}}
	}
	chat, err := cli.Chats.Create(ctx, g.model, cfg, nil)
	if err != nil {
		return nil, err
	}
	return &geminiChat{chat: chat}, nil
}

func (s *geminiChat) SendStream(ctx context.Context, message string, images []Attachment, onChunk func(string)) (string, error) {
	parts := []genai.Part{{Text: message}}
	for _, img := range images {
		parts = append(parts, genai.Part{
			InlineData: &genai.Blob{MIMEType: img.MIMEType, Data: img.Data},
		})
	}

	var full strings.Builder
	for resp, err := range s.chat.SendMessageStream(ctx, parts...) {
		if err != nil {
			return full.String(), err
		}
		if len(resp.Candidates) == 0 {
			continue
		}
		chunk := candidateText(resp.Candidates[0])
		if chunk == "" {
			continue
		}
		full.WriteString(chunk)
		if onChunk != nil {
			onChunk(chunk)
		}
	}
	return full.String(), nil
}

func (s *geminiChat) Close() error {
	s.chat = nil
	return nil
}
