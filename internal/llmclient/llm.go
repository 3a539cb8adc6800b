package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	genai "google.golang.org/genai"
)

var ErrInvalidJSON = errors.New("llmclient: invalid JSON from model")

// Attachment is an inline binary part, typically a figure image.
type Attachment struct {
	MIMEType string
	Data     []byte
}

// WebSource is one search-grounding citation.
type WebSource struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// Request describes a single structured-completion call.
type Request struct {
	Prompt string
	// Schema, when set, requests application/json conforming to it.
	Schema *genai.Schema
	Images []Attachment
	// Search enables the provider's web-search grounding tool. Responses
	// then carry Sources instead of (or in addition to) text.
	Search bool
}

// Response is the provider's reply. JSON is set for schema requests,
// Text otherwise; Sources only for Search requests.
type Response struct {
	Text    string
	JSON    json.RawMessage
	Sources []WebSource
}

// Client issues structured-output requests to the LLM service.
// Cross-cutting concerns (rate limiting, retries, timeouts, logging) are
// applied via Middleware.
type Client interface {
	Name() string
	Generate(ctx context.Context, req Request) (*Response, error)
	NewChat(ctx context.Context, systemInstruction string) (ChatSession, error)
	Close() error
}

// ChatSession is one multi-turn conversation handle.
type ChatSession interface {
	// SendStream sends a user turn and streams partial tokens to onChunk
	// as they arrive. It returns the full accumulated reply.
	SendStream(ctx context.Context, message string, images []Attachment, onChunk func(chunk string)) (string, error)
	Close() error
}

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error { return &PermanentError{Err: err} }

// Kind classifies a provider error for the rotate-and-retry policy.
type Kind int

const (
	KindUnknown Kind = iota
	KindRateLimited
	KindAuth
	KindParse
	KindPermanent
	KindTimeout
)

// Classify maps a provider error to its retry class. Rate-limit and
// credential failures are distinct so the caller can rotate keys and retry
// once before escalating.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var pErr *PermanentError
	if errors.As(err, &pErr) {
		return KindPermanent
	}
	if errors.Is(err, ErrInvalidJSON) {
		return KindParse
	}
	// An expired per-call deadline is retryable; a caller cancel is not.
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var ae genai.APIError
	if errors.As(err, &ae) {
		switch ae.Code {
		case 429:
			return KindRateLimited
		case 401, 403:
			return KindAuth
		}
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"), strings.Contains(msg, "resource_exhausted"), strings.Contains(msg, "rate limit"), strings.Contains(msg, "quota"):
		return KindRateLimited
	case strings.Contains(msg, "api key not valid"), strings.Contains(msg, "api_key_invalid"), strings.Contains(msg, "unauthenticated"), strings.Contains(msg, "permission denied"):
		return KindAuth
	}
	return KindUnknown
}

// Retryable reports whether the rotate-and-retry policy applies.
func Retryable(err error) bool {
	switch Classify(err) {
	case KindRateLimited, KindAuth, KindTimeout:
		return true
	}
	return false
}
