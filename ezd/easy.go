// Package ezd provides an easy-to-use API over a process-global
// [dtl.Collector], for applications that want detail logging and the
// recent-record HTTP surface without any wiring.
package ezd

import (
	"context"
	"net/http"

	"github.com/detailkit/dtl"
	"github.com/detailkit/dtl/dtlweb"
)

var collector = dtl.NewCollector()

// Collector returns the process-global collector.
func Collector() *dtl.Collector {
	return collector
}

// New returns a detailer in the given category, retained by the global
// collector on flush.
func New(category string, level dtl.Level, timing dtl.Timing) *dtl.Detailer {
	return collector.NewDetailer(category, level, timing)
}

// Handler returns an HTTP handler serving select requests against the
// global collector.
func Handler() http.Handler {
	return dtlweb.NewServer(collector)
}

// StreamHandler returns an HTTP handler streaming records flushed to the
// global collector as server-sent events.
func StreamHandler() http.Handler {
	return dtlweb.NewStreamServer(collector)
}

// Middleware decorates an HTTP handler with a per-request detailer in the
// global collector, categorized by the categorize function.
func Middleware(level dtl.Level, timing dtl.Timing, categorize func(*http.Request) string) func(http.Handler) http.Handler {
	return dtlweb.Middleware(func(category string) *dtl.Detailer {
		return collector.NewDetailer(category, level, timing)
	}, categorize)
}

// Get returns the detailer in the context, or an orphan if there isn't one.
func Get(ctx context.Context) *dtl.Detailer {
	return dtl.Get(ctx)
}

// Infof adds a detail line at info level to the detailer in the context.
func Infof(ctx context.Context, format string, args ...any) {
	dtl.Get(ctx).Infof(format, args...)
}

// Errorf adds a detail line at error level to the detailer in the context.
func Errorf(ctx context.Context, format string, args ...any) {
	dtl.Get(ctx).Errorf(format, args...)
}

// Debugf adds a detail line at debug level to the detailer in the context.
func Debugf(ctx context.Context, format string, args ...any) {
	dtl.Get(ctx).Debugf(format, args...)
}

// Scopef opens a scope on the detailer in the context.
func Scopef(ctx context.Context, format string, args ...any) *dtl.Scope {
	return dtl.Get(ctx).Scopef(format, args...)
}
