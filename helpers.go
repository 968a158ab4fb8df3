package dtl

import (
	"context"
)

type detailerContextKey struct{}

var detailerContextVal detailerContextKey

// Put the given detailer into the context, and return a new context
// containing it. If the context already contained a detailer, it becomes
// shadowed by the new one.
func Put(ctx context.Context, d *Detailer) (context.Context, *Detailer) {
	return context.WithValue(ctx, detailerContextVal, d), d
}

// Get the detailer from the context, if it exists. If not, an "orphan"
// detailer is created and returned (but not injected into the context).
// Orphan detailers usually indicate a bug, so this function is meant as a
// convenience for situations where a context is reliably known to contain a
// detailer.
func Get(ctx context.Context) *Detailer {
	if d, ok := MaybeGet(ctx); ok {
		return d
	}

	return New(LevelInfo, WithTiming)
}

// MaybeGet returns the detailer in the context, if it exists, with true as
// the second return value. If not, a nil detailer is returned, with false as
// the second return value.
func MaybeGet(ctx context.Context) (*Detailer, bool) {
	d, ok := ctx.Value(detailerContextVal).(*Detailer)
	return d, ok
}
