package auth

import "context"

// Principal is the per-request identity plus the original Authorization
// header value. The header is carried explicitly so downstream calls can
// forward the credential unchanged; it is never stashed in a global.
type Principal struct {
	Claims
	// Token is the full Authorization header value, forwarded byte-for-byte.
	Token string
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
