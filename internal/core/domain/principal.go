package domain

import (
	"context"
	"time"
)

// Claims are the facts carried inside a session token.
type Claims struct {
	Subject   string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Principal is the caller resolved from a valid token for one request.
type Principal struct {
	Username  string
	Role      Role
	AccountID string // set only when identity refresh is enabled
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal attached by the auth
// middleware, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	if !ok || p.Username == "" {
		return Principal{}, false
	}
	return p, true
}

type remoteIPKey struct{}

// WithRemoteIP records the caller address for audit entries.
func WithRemoteIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, remoteIPKey{}, ip)
}

func RemoteIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(remoteIPKey{}).(string)
	return ip
}
