package weblog

import "context"

type remoteIPKey struct{}

// WithRemoteIP returns a context carrying the caller's network address.
func WithRemoteIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, remoteIPKey{}, ip)
}

// RemoteIP returns the caller address stored by WithRemoteIP.
func RemoteIP(ctx context.Context) string {
	ip, _ := ctx.Value(remoteIPKey{}).(string)
	return ip
}
