package dtl_test

import (
	"context"
	"testing"

	"github.com/detailkit/dtl"
)

func TestContextHelpers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	if _, ok := dtl.MaybeGet(ctx); ok {
		t.Fatal("MaybeGet on an empty context: want false, have true")
	}

	if d := dtl.Get(ctx); d == nil {
		t.Fatal("Get on an empty context must return an orphan, not nil")
	}

	d1 := dtl.New(dtl.LevelInfo, dtl.WithoutTiming)
	ctx, d2 := dtl.Put(ctx, d1)
	if d1 != d2 {
		t.Fatal("Put must return the provided detailer")
	}

	if have := dtl.Get(ctx); d1 != have {
		t.Fatal("Get must return the detailer in the context")
	}

	d3, ok := dtl.MaybeGet(ctx)
	if !ok || d3 != d1 {
		t.Fatal("MaybeGet must return the detailer in the context")
	}

	// A later Put shadows the earlier one.
	d4 := dtl.New(dtl.LevelDebug, dtl.WithoutTiming)
	ctx, _ = dtl.Put(ctx, d4)
	if have := dtl.Get(ctx); d4 != have {
		t.Fatal("Get must return the most recently Put detailer")
	}
}
