package common

import "context"

// CallerContext identifies who issued a request. It is populated from the
// bearer token when authentication is enabled and absent otherwise.
type CallerContext struct {
	Subject string
	Issuer  string
}

type contextKey int

const callerContextKey contextKey = iota

// WithCallerContext stores a CallerContext in the request context.
func WithCallerContext(ctx context.Context, cc *CallerContext) context.Context {
	return context.WithValue(ctx, callerContextKey, cc)
}

// CallerContextFromContext retrieves the CallerContext from context, or nil if absent.
func CallerContextFromContext(ctx context.Context) *CallerContext {
	cc, _ := ctx.Value(callerContextKey).(*CallerContext)
	return cc
}

// ResolveCaller returns the caller subject from context, or "anonymous"
// when no caller context is present.
func ResolveCaller(ctx context.Context) string {
	if cc := CallerContextFromContext(ctx); cc != nil && cc.Subject != "" {
		return cc.Subject
	}
	return "anonymous"
}
