package dtl

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/detailkit/dtl/internal/dtlutil"
)

// Sink is the leveled destination that receives flushed records. The text is
// a complete, possibly multi-line record with no trailing newline.
//
// Implementations must be safe for concurrent use, and must not fail
// observably: detail logging never breaks the workflow being detailed.
type Sink interface {
	Log(level Level, text string)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(level Level, text string)

// Log implements Sink.
func (f SinkFunc) Log(level Level, text string) { f(level, text) }

// NewWriterSink returns a sink that writes records to dst, one per Log call,
// prefixed with the uppercased level name. Writes are not synchronized
// beyond whatever dst provides.
func NewWriterSink(dst io.Writer) Sink {
	return SinkFunc(func(level Level, text string) {
		fmt.Fprintf(dst, "%s %s\n", strings.ToUpper(level.String()), text)
	})
}

// NewLogSink returns a sink that emits records through a standard library
// logger, which provides the usual timestamp prefix and output locking.
func NewLogSink(logger *log.Logger) Sink {
	return SinkFunc(func(level Level, text string) {
		logger.Printf("%s %s", strings.ToUpper(level.String()), text)
	})
}

var defaultSink = dtlutil.NewAtomic[Sink](NewLogSink(log.Default()))

// SetDefaultSink changes the sink used by detailers that don't have their
// own, including detailers that already exist. It's typically called once
// at program start.
func SetDefaultSink(s Sink) {
	if s == nil {
		return
	}
	defaultSink.Set(s)
}
