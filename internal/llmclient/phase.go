package llmclient

import "context"

type phaseKey struct{}

// WithPhase tags the context with the name of the pipeline stage issuing the
// call ("validate", "quiz", "core", ...). Used by logging only.
func WithPhase(ctx context.Context, phase string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, phaseKey{}, phase)
}

// PhaseFrom returns the phase tag, or "" when untagged.
func PhaseFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(phaseKey{}).(string); ok {
		return v
	}
	return ""
}
