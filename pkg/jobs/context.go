package jobs

import "context"

type ctxKey struct{}

// WithID returns a context carrying the ID of the job being run.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IDFromContext returns the job ID stored by WithID, or "" for synchronous runs.
func IDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
