package dtl

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

//
//
//

const (
	maxDetailBytesMin     = 1 << 10
	maxDetailBytesDefault = 1 << 20
	maxDetailBytesMax     = 1 << 24
)

var maxDetailBytes = func() *atomic.Int64 {
	var v atomic.Int64
	v.Store(maxDetailBytesDefault)
	return &v
}()

// SetMaxDetailBytes sets the max size of the buffer maintained by a detailer.
// Once a detailer's buffer is full, additional lines increment a "dropped"
// counter, which is reported as a single final line of the flushed record.
// The default is 1MiB, the minimum is 1KiB, and the maximum is 16MiB.
//
// Changing this value does not affect detailers that have already been
// created.
func SetMaxDetailBytes(n int) {
	if n < maxDetailBytesMin {
		n = maxDetailBytesMin
	}
	if n > maxDetailBytesMax {
		n = maxDetailBytesMax
	}
	maxDetailBytes.Store(int64(n))
}

//
//
//

// Timing configures whether detail lines are prefixed with elapsed time.
type Timing uint8

const (
	// WithTiming stamps lines with elapsed microseconds.
	WithTiming Timing = iota

	// WithoutTiming omits the elapsed time prefix.
	WithoutTiming
)

// Detailer accumulates filtered, formatted detail lines describing one unit
// of work, and emits them as a single record when flushed. The zero cost of
// a disabled detailer (threshold [LevelOff]) means call sites can be left in
// place permanently.
//
// A detailer is a single-writer object owned by the work it describes. It is
// not safe for concurrent use.
type Detailer struct {
	level    Level
	timed    bool
	start    time.Time
	buf      []byte
	depth    *depthCounter
	sink     Sink // nil means the package default, resolved at flush
	buflimit int
	dropped  int

	// Set when the detailer was created by a collector.
	category string
	publish  func(*Record)
}

// New creates a detailer with the given severity threshold. Lines logged at
// a level more verbose than the threshold are discarded without any
// formatting work; a threshold of [LevelOff] discards everything. If timing
// is [WithTiming], each line is prefixed with microseconds elapsed since the
// detailer was created (or since the most recent Reset).
//
// Flushed records are emitted to the package default sink, unless a
// different sink is installed with [Detailer.SetSink].
func New(level Level, timing Timing) *Detailer {
	return &Detailer{
		level:    level,
		timed:    timing == WithTiming,
		start:    time.Now(),
		depth:    &depthCounter{},
		buflimit: int(maxDetailBytes.Load()),
	}
}

// SetSink changes the sink that receives flushed records.
func (d *Detailer) SetSink(s Sink) *Detailer {
	d.sink = s
	return d
}

// SetMaxBytes changes the buffer size limit for this detailer, clamped to
// the same range as [SetMaxDetailBytes].
func (d *Detailer) SetMaxBytes(n int) *Detailer {
	switch {
	case n < maxDetailBytesMin:
		d.buflimit = maxDetailBytesMin
	case n > maxDetailBytesMax:
		d.buflimit = maxDetailBytesMax
	default:
		d.buflimit = n
	}
	return d
}

func (d *Detailer) enabled(level Level) bool {
	return level != LevelOff && level <= d.level
}

// Logf formats and appends a detail line at the given level. If the level
// doesn't pass the detailer's threshold, the call is a no-op and the format
// string is never evaluated.
//
// The message is appended at the current scope depth, with two spaces of
// indentation per level. An indented message containing newlines is split
// and each line indented individually, with the elapsed-time stamp on the
// first line only. An unindented (depth zero) message is written as-is,
// stamped once, with a single trailing newline, even if it contains
// newlines itself.
func (d *Detailer) Logf(level Level, format string, args ...any) {
	if !d.enabled(level) {
		return
	}

	if len(d.buf) >= d.buflimit {
		d.dropped++
		return
	}

	depth := d.depth.current()
	if depth == 0 {
		d.stamp()
		d.buf = fmt.Appendf(d.buf, format, args...)
		d.buf = append(d.buf, '\n')
		return
	}

	lines := strings.Split(fmt.Sprintf(format, args...), "\n")
	d.stamp()
	d.indent(depth)
	d.buf = append(d.buf, lines[0]...)
	d.buf = append(d.buf, '\n')
	for _, line := range lines[1:] {
		d.indent(depth)
		d.buf = append(d.buf, line...)
		d.buf = append(d.buf, '\n')
	}
}

func (d *Detailer) stamp() {
	if !d.timed {
		return
	}
	d.buf = fmt.Appendf(d.buf, "%-6d ", time.Since(d.start).Microseconds())
}

func (d *Detailer) indent(depth int) {
	for i := 0; i < depth; i++ {
		d.buf = append(d.buf, ' ', ' ')
	}
}

// Errorf appends a detail line at [LevelError].
func (d *Detailer) Errorf(format string, args ...any) { d.Logf(LevelError, format, args...) }

// Warnf appends a detail line at [LevelWarn].
func (d *Detailer) Warnf(format string, args ...any) { d.Logf(LevelWarn, format, args...) }

// Infof appends a detail line at [LevelInfo].
func (d *Detailer) Infof(format string, args ...any) { d.Logf(LevelInfo, format, args...) }

// Debugf appends a detail line at [LevelDebug].
func (d *Detailer) Debugf(format string, args ...any) { d.Logf(LevelDebug, format, args...) }

// Tracef appends a detail line at [LevelTrace].
func (d *Detailer) Tracef(format string, args ...any) { d.Logf(LevelTrace, format, args...) }

// Scopef opens a lexical scope: the scope name is logged at the current
// depth, and lines logged until the returned scope is exited are indented
// one level deeper. Callers must exit the scope on every path, typically
//
//	s := d.Scopef("processing %s", id)
//	defer s.Exit()
//
// Scope names bypass level filtering: they are logged at the detailer's own
// threshold, so they always appear, except on a fully disabled detailer,
// which logs nothing. The scope is returned and must be exited either way.
//
// Scopes nest, but deeply nested output gets hard to read; use them for
// clarity, not for every call frame.
func (d *Detailer) Scopef(format string, args ...any) *Scope {
	if d.level != LevelOff {
		d.Logf(d.level, format, args...)
	}
	return enterScope(d.depth)
}

// Peek returns the currently accumulated buffer contents.
func (d *Detailer) Peek() string {
	return string(d.buf)
}

// Reset clears the accumulated buffer and re-arms the elapsed-time origin.
// The scope depth is deliberately untouched: resetting while scopes are
// open is caller misuse, and leaves subsequent lines indented.
func (d *Detailer) Reset() {
	d.buf = d.buf[:0]
	d.dropped = 0
	d.start = time.Now()
}

// Flush emits the accumulated buffer, trimmed of trailing whitespace, as a
// single record at the detailer's threshold level, then resets. An empty
// buffer emits nothing, so flushing twice in a row emits at most once.
func (d *Detailer) Flush() {
	text := strings.TrimRight(string(d.buf), " \t\r\n")
	if text != "" {
		if d.dropped > 0 {
			text += fmt.Sprintf("\n(dropped line count %d)", d.dropped)
		}
		level := d.level
		if level == LevelOff {
			level = LevelInfo // unreachable in practice: LevelOff buffers nothing
		}
		d.resolveSink().Log(level, text)
		if d.publish != nil {
			d.publish(newRecord(d.category, d.start, time.Since(d.start), level, text))
		}
	}
	d.Reset()
}

// Close flushes the detailer. It exists so that emission can be guaranteed
// on every exit path with a single deferred call.
//
//	d := dtl.New(dtl.LevelInfo, dtl.WithTiming)
//	defer d.Close()
func (d *Detailer) Close() error {
	d.Flush()
	return nil
}

func (d *Detailer) resolveSink() Sink {
	if d.sink != nil {
		return d.sink
	}
	return defaultSink.Get()
}

//
//
//

// depthCounter is the indentation depth shared between a detailer and its
// outstanding scopes. Updates are atomic so that a scope can safely be
// exited on a different goroutine than it was entered on, but the counter
// is logically single-writer: concurrent scopes on one detailer are caller
// misuse.
type depthCounter struct {
	n atomic.Int32
}

func (c *depthCounter) current() int { return int(c.n.Load()) }
func (c *depthCounter) enter()       { c.n.Add(1) }
func (c *depthCounter) exit()        { c.n.Add(-1) }

// Scope is a handle to an open lexical scope. It keeps the shared depth
// counter one level deeper until exited.
type Scope struct {
	depth *depthCounter
	done  atomic.Bool
}

func enterScope(depth *depthCounter) *Scope {
	depth.enter()
	return &Scope{depth: depth}
}

// Exit closes the scope, returning the depth to its value before the scope
// was opened. Exit is idempotent: second and subsequent calls are no-ops,
// so a scope can never double-decrement the depth.
func (s *Scope) Exit() {
	if s.done.CompareAndSwap(false, true) {
		s.depth.exit()
	}
}
