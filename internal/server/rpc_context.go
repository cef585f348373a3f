package server

import (
	"context"
)

type rpcTraceKey struct{}

// rpcTrace carries what the RPC handler learned back to the request logger.
type rpcTrace struct {
	method    string
	faultCode int
}

func contextWithRPCTrace(ctx context.Context, trace *rpcTrace) context.Context {
	return context.WithValue(ctx, rpcTraceKey{}, trace)
}

func rpcTraceFromContext(ctx context.Context) (*rpcTrace, bool) {
	if ctx == nil {
		return nil, false
	}
	trace, ok := ctx.Value(rpcTraceKey{}).(*rpcTrace)
	return trace, ok && trace != nil
}
