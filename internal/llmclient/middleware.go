package llmclient

import (
	"context"
	"errors"
	"log"
	"time"
)

// Middleware decorates a Client to inject cross-cutting concerns.
type Middleware func(Client) Client

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner Client, mws ...Middleware) Client {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// -------- Rate limiting --------

// RateLimit limits request rate using a token-bucket limiter.
// If rps <= 0, the limiter is effectively disabled.
func RateLimit(rps float64, burst int) Middleware {
	return func(next Client) Client {
		return &rateLimited{next: next, rl: newRPSLimiter(rps, burst)}
	}
}

type rateLimited struct {
	next Client
	rl   *rpsLimiter
}

func (c *rateLimited) Name() string { return c.next.Name() }
func (c *rateLimited) Close() error {
	c.rl.Stop()
	return c.next.Close()
}
func (c *rateLimited) NewChat(ctx context.Context, system string) (ChatSession, error) {
	return c.next.NewChat(ctx, system)
}
func (c *rateLimited) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return nil, err
	}
	return c.next.Generate(ctx, req)
}

// -------- Retry with exponential backoff --------

// Retry retries Generate up to maxAttempts with exponential backoff starting
// at baseDelay. Permanent errors are not retried. If the context is
// canceled, it stops immediately.
func Retry(maxAttempts int, baseDelay time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 300 * time.Millisecond
	}
	return func(next Client) Client {
		return &retrying{next: next, max: maxAttempts, base: baseDelay}
	}
}

type retrying struct {
	next Client
	max  int
	base time.Duration
}

func (r *retrying) Name() string { return r.next.Name() }
func (r *retrying) Close() error { return r.next.Close() }
func (r *retrying) NewChat(ctx context.Context, system string) (ChatSession, error) {
	return r.next.NewChat(ctx, system)
}
func (r *retrying) Generate(ctx context.Context, req Request) (*Response, error) {
	var last error
	for i := 0; i < r.max; i++ {
		resp, err := r.next.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		var pErr *PermanentError
		if errors.As(err, &pErr) {
			return nil, err
		}
		last = err
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		time.Sleep(r.base * time.Duration(1<<i))
	}
	return nil, last
}

// -------- Rotate-and-retry on credential/rate-limit failures --------

// RotateRetry retries exactly once when the error classifies as a rate-limit
// or credential failure. The underlying client rotates keys on every call,
// so the retry lands on the next credential in rotation. Never retries
// indefinitely; any second failure surfaces to the caller.
func RotateRetry() Middleware {
	return func(next Client) Client {
		return &rotateRetrying{next: next}
	}
}

type rotateRetrying struct{ next Client }

func (r *rotateRetrying) Name() string { return r.next.Name() }
func (r *rotateRetrying) Close() error { return r.next.Close() }
func (r *rotateRetrying) NewChat(ctx context.Context, system string) (ChatSession, error) {
	return r.next.NewChat(ctx, system)
}
func (r *rotateRetrying) Generate(ctx context.Context, req Request) (*Response, error) {
	resp, err := r.next.Generate(ctx, req)
	if err == nil || !Retryable(err) {
		return resp, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	log.Printf("LLM %s error (%s), retrying once on next credential: %v", kindName(Classify(err)), PhaseFrom(ctx), err)
	return r.next.Generate(ctx, req)
}

func kindName(k Kind) string {
	switch k {
	case KindRateLimited:
		return "rate-limit"
	case KindAuth:
		return "auth"
	case KindParse:
		return "parse"
	case KindPermanent:
		return "permanent"
	case KindTimeout:
		return "timeout"
	}
	return "unknown"
}

// -------- Per-call timeout --------

// Timeout bounds each Generate call. LLM calls have unbounded tail latency;
// an expired deadline surfaces as context.DeadlineExceeded, which the retry
// layers treat as retryable. Wrap retry layers outside Timeout so every
// attempt gets its own deadline.
func Timeout(d time.Duration) Middleware {
	return func(next Client) Client {
		return &timedOut{next: next, d: d}
	}
}

type timedOut struct {
	next Client
	d    time.Duration
}

func (t *timedOut) Name() string { return t.next.Name() }
func (t *timedOut) Close() error { return t.next.Close() }
func (t *timedOut) NewChat(ctx context.Context, system string) (ChatSession, error) {
	return t.next.NewChat(ctx, system)
}
func (t *timedOut) Generate(ctx context.Context, req Request) (*Response, error) {
	if t.d <= 0 {
		return t.next.Generate(ctx, req)
	}
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.next.Generate(ctx, req)
}

// -------- Logging --------

// WithLogging logs request size and errors. Provide a custom logger or nil
// to use log.Default().
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next Client) Client {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next Client
	log  *log.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }
func (l *logging) NewChat(ctx context.Context, system string) (ChatSession, error) {
	return l.next.NewChat(ctx, system)
}
func (l *logging) Generate(ctx context.Context, req Request) (*Response, error) {
	l.log.Printf("LLM request (%s): %d bytes, %d images, search=%v", PhaseFrom(ctx), len(req.Prompt), len(req.Images), req.Search)
	resp, err := l.next.Generate(ctx, req)
	if err != nil {
		l.log.Printf("LLM error (%s): %v", PhaseFrom(ctx), err)
	}
	return resp, err
}
