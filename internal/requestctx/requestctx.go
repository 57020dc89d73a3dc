// Package requestctx carries per-request metadata through the middleware
// chain: the id minted by RequestIDMiddleware and the arrival time used for
// latency logging. Both are stamped once, together, at the edge.
package requestctx

import (
	"context"
	"time"
)

type stampKey struct{}

type stamp struct {
	id      string
	arrived time.Time
}

// Stamp records the request id and arrival time on the context.
func Stamp(ctx context.Context, id string, arrived time.Time) context.Context {
	return context.WithValue(ctx, stampKey{}, stamp{id: id, arrived: arrived})
}

// RequestID returns the stamped request id, or "" for unstamped contexts.
func RequestID(ctx context.Context) string {
	s, _ := ctx.Value(stampKey{}).(stamp)
	return s.id
}

// RequestTime returns the stamped arrival time, or the zero time for
// unstamped contexts.
func RequestTime(ctx context.Context) time.Time {
	s, _ := ctx.Value(stampKey{}).(stamp)
	return s.arrived
}
