package llmclient

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"prism/internal/tester"
)

func TestRoundRobinKeys_RotatesEveryCall(t *testing.T) {
	keys := NewRoundRobinKeys("k1", "k2", "k3")
	got := []string{keys.Next(), keys.Next(), keys.Next(), keys.Next()}
	tester.Eq(t, got, []string{"k1", "k2", "k3", "k1"})
}

func TestRoundRobinKeys_TrimsAndSkipsEmpty(t *testing.T) {
	keys := NewRoundRobinKeys(" k1 ", "", "  ", "k2")
	tester.Eq(t, keys.Len(), 2)
	tester.Eq(t, keys.Next(), "k1")
	tester.Eq(t, keys.Next(), "k2")
}

func TestRoundRobinKeys_EmptyPool(t *testing.T) {
	keys := NewRoundRobinKeys()
	tester.Eq(t, keys.Next(), "")
}

func TestClassify_Kinds(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{nil, KindUnknown},
		{errors.New("googleapi: Error 429: RESOURCE_EXHAUSTED"), KindRateLimited},
		{errors.New("you have exceeded your quota"), KindRateLimited},
		{errors.New("API key not valid. Please pass a valid API key."), KindAuth},
		{errors.New("PERMISSION DENIED"), KindAuth},
		{fmt.Errorf("generate: %w", ErrInvalidJSON), KindParse},
		{NewPermanentError(errors.New("bad request shape")), KindPermanent},
		{fmt.Errorf("generate: %w", context.DeadlineExceeded), KindTimeout},
		{context.Canceled, KindUnknown},
		{errors.New("connection reset by peer"), KindUnknown},
	}
	for _, tc := range cases {
		tester.Eq(t, Classify(tc.err), tc.want, fmt.Sprintf("classify %v", tc.err))
	}
}

func TestRetryable_RateLimitAuthAndTimeout(t *testing.T) {
	tester.True(t, Retryable(errors.New("rate limit exceeded")))
	tester.True(t, Retryable(errors.New("unauthenticated")))
	tester.True(t, Retryable(context.DeadlineExceeded))
	tester.False(t, Retryable(context.Canceled))
	tester.False(t, Retryable(ErrInvalidJSON))
	tester.False(t, Retryable(NewPermanentError(errors.New("nope"))))
	tester.False(t, Retryable(nil))
}

// countingClient fails the first n Generate calls with err, then succeeds.
type countingClient struct {
	failures int
	err      error
	calls    int
}

func (c *countingClient) Name() string { return "counting" }
func (c *countingClient) Close() error { return nil }
func (c *countingClient) NewChat(context.Context, string) (ChatSession, error) {
	return nil, errors.New("not supported")
}
func (c *countingClient) Generate(ctx context.Context, req Request) (*Response, error) {
	c.calls++
	if c.calls <= c.failures {
		return nil, c.err
	}
	return &Response{Text: "ok"}, nil
}

func TestRotateRetry_RetriesOnceOnRateLimit(t *testing.T) {
	inner := &countingClient{failures: 1, err: errors.New("429 too many requests")}
	cli := Wrap(inner, RotateRetry())

	resp, err := cli.Generate(context.Background(), Request{Prompt: "p"})
	tester.NoErr(t, err)
	tester.Eq(t, resp.Text, "ok")
	tester.Eq(t, inner.calls, 2)
}

func TestRotateRetry_SecondFailureSurfaces(t *testing.T) {
	inner := &countingClient{failures: 2, err: errors.New("quota exceeded")}
	cli := Wrap(inner, RotateRetry())

	_, err := cli.Generate(context.Background(), Request{Prompt: "p"})
	tester.True(t, err != nil, "second failure must surface")
	tester.Eq(t, inner.calls, 2)
}

func TestRotateRetry_RetriesExpiredPerCallDeadline(t *testing.T) {
	inner := &countingClient{failures: 1, err: fmt.Errorf("generate: %w", context.DeadlineExceeded)}
	// RotateRetry outside Timeout: the retried call sees a fresh deadline.
	cli := Wrap(inner, RotateRetry(), Timeout(time.Second))

	resp, err := cli.Generate(context.Background(), Request{Prompt: "p"})
	tester.NoErr(t, err)
	tester.Eq(t, resp.Text, "ok")
	tester.Eq(t, inner.calls, 2)
}

func TestRotateRetry_NoRetryOnNonRetryable(t *testing.T) {
	inner := &countingClient{failures: 1, err: fmt.Errorf("core: %w", ErrInvalidJSON)}
	cli := Wrap(inner, RotateRetry())

	_, err := cli.Generate(context.Background(), Request{Prompt: "p"})
	tester.ErrIs(t, err, ErrInvalidJSON)
	tester.Eq(t, inner.calls, 1)
}

func TestRetry_SkipsPermanentErrors(t *testing.T) {
	inner := &countingClient{failures: 3, err: NewPermanentError(errors.New("invalid schema"))}
	cli := Wrap(inner, Retry(3, 1))

	_, err := cli.Generate(context.Background(), Request{Prompt: "p"})
	var pErr *PermanentError
	tester.True(t, errors.As(err, &pErr))
	tester.Eq(t, inner.calls, 1)
}

func TestRetry_EventuallySucceeds(t *testing.T) {
	inner := &countingClient{failures: 2, err: errors.New("transient")}
	cli := Wrap(inner, Retry(3, 1))

	resp, err := cli.Generate(context.Background(), Request{Prompt: "p"})
	tester.NoErr(t, err)
	tester.Eq(t, resp.Text, "ok")
	tester.Eq(t, inner.calls, 3)
}

func TestWrap_OrderIsLeftToRight(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next Client) Client {
			return &tagged{next: next, name: name, order: &order}
		}
	}
	inner := &countingClient{}
	cli := Wrap(inner, tag("outer"), tag("inner"))
	_, err := cli.Generate(context.Background(), Request{})
	tester.NoErr(t, err)
	tester.Eq(t, order, []string{"outer", "inner"})
}

type tagged struct {
	next  Client
	name  string
	order *[]string
}

func (c *tagged) Name() string { return c.next.Name() }
func (c *tagged) Close() error { return c.next.Close() }
func (c *tagged) NewChat(ctx context.Context, system string) (ChatSession, error) {
	return c.next.NewChat(ctx, system)
}
func (c *tagged) Generate(ctx context.Context, req Request) (*Response, error) {
	*c.order = append(*c.order, c.name)
	return c.next.Generate(ctx, req)
}

func TestPhase_RoundTrip(t *testing.T) {
	ctx := WithPhase(context.Background(), "core")
	tester.Eq(t, PhaseFrom(ctx), "core")
	tester.Eq(t, PhaseFrom(context.Background()), "")
}
