package audit

import "context"

// clientIPKey is an unexported context key for passing the client IP from
// the HTTP edge down to audit records.
type clientIPKey struct{}

func WithClientIP(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func ClientIPFromContext(ctx context.Context) string {
	if v := ctx.Value(clientIPKey{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
