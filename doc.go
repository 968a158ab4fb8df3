// Package dtl provides buffered workflow-detail logging: a low-overhead way
// to capture the timeline and structure of a single unit of work, typically
// a request or task, and emit it as one contiguous multi-line log record.
//
// The basic idea is to accumulate human-readable "detail" lines into a
// [Detailer] rather than logging each line individually. Lines can be nested
// into lexical scopes, which indent subsequent lines one level deeper for as
// long as the scope is open. When the detailer is flushed, everything it
// accumulated is emitted as a single record to a leveled [Sink], with lines
// stamped with elapsed microseconds since the detailer was created.
//
//	d := dtl.New(dtl.LevelInfo, dtl.WithTiming)
//	defer d.Close()
//
//	d.Infof("start")
//	func() {
//	    s := d.Scopef("expensive work")
//	    defer s.Exit()
//	    d.Infof("step one")
//	}()
//	d.Infof("done")
//
// A detailer is deliberately cheap when disabled: with a threshold of
// [LevelOff], log and scope calls perform no formatting and no allocation,
// so detail call sites can be left in place permanently.
//
// A detailer is a single-writer object, owned by the unit of work it
// describes, and is not safe for concurrent use. The [Collector], which
// retains the most recent flushed [Record] values in per-category ring
// buffers and exposes them for selection and streaming, is safe for
// concurrent use. The [github.com/detailkit/dtl/dtlweb] package serves
// collected records over HTTP, and cmd/dtl is a CLI client for those
// servers.
//
// Applications that only need detail logging can use [New] directly.
// Applications that also want the recent-record query surface should create
// detailers through a [Collector], or use the
// [github.com/detailkit/dtl/ezd] package, which provides an easy-to-use API
// over a process-global collector.
package dtl
