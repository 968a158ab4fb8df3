package dtl_test

import (
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/detailkit/dtl"
)

type testSink struct {
	levels []dtl.Level
	texts  []string
}

func (s *testSink) Log(level dtl.Level, text string) {
	s.levels = append(s.levels, level)
	s.texts = append(s.texts, text)
}

func TestFiltering(t *testing.T) {
	t.Parallel()

	d := dtl.New(dtl.LevelWarn, dtl.WithoutTiming)
	d.Errorf("e")
	d.Warnf("w")
	d.Infof("i")
	d.Debugf("d")
	d.Tracef("t")

	if want, have := "e\nw\n", d.Peek(); want != have {
		t.Errorf("buffer: want %q, have %q", want, have)
	}
}

func TestLogfOffLevelRejected(t *testing.T) {
	t.Parallel()

	d := dtl.New(dtl.LevelTrace, dtl.WithoutTiming)
	d.Logf(dtl.LevelOff, "never")

	if want, have := "", d.Peek(); want != have {
		t.Errorf("buffer: want %q, have %q", want, have)
	}
}

func TestScopeIndentation(t *testing.T) {
	t.Parallel()

	d := dtl.New(dtl.LevelTrace, dtl.WithoutTiming)

	d.Infof("a")
	s1 := d.Scopef("s1")
	d.Infof("b")
	s2 := d.Scopef("s2")
	d.Infof("c")
	s2.Exit()
	d.Infof("d")
	s1.Exit()
	d.Infof("e")

	want := strings.Join([]string{
		"a",
		"s1",
		"  b",
		"  s2",
		"    c",
		"  d",
		"e",
	}, "\n") + "\n"

	if have := d.Peek(); want != have {
		t.Errorf("buffer: want %q, have %q", want, have)
	}
}

func TestScopeExitIdempotent(t *testing.T) {
	t.Parallel()

	d := dtl.New(dtl.LevelInfo, dtl.WithoutTiming)

	s := d.Scopef("s")
	s.Exit()
	s.Exit() // no-op

	d.Infof("ground")

	s2 := d.Scopef("s2")
	d.Infof("inner")
	s2.Exit()

	want := strings.Join([]string{
		"s",
		"ground",
		"s2",
		"  inner",
	}, "\n") + "\n"

	if have := d.Peek(); want != have {
		t.Errorf("buffer: want %q, have %q", want, have)
	}
}

func TestScopeNameBypassesThreshold(t *testing.T) {
	t.Parallel()

	d := dtl.New(dtl.LevelError, dtl.WithoutTiming)

	s := d.Scopef("phase")
	d.Infof("hidden")
	d.Errorf("visible")
	s.Exit()

	want := strings.Join([]string{
		"phase",
		"  visible",
	}, "\n") + "\n"

	if have := d.Peek(); want != have {
		t.Errorf("buffer: want %q, have %q", want, have)
	}
}

func TestDisabled(t *testing.T) {
	t.Parallel()

	sink := &testSink{}
	d := dtl.New(dtl.LevelOff, dtl.WithTiming).SetSink(sink)

	d.Errorf("nothing at all")
	s := d.Scopef("not even this")
	if s == nil {
		t.Fatal("Scopef on a disabled detailer must still return a scope")
	}
	d.Errorf("still nothing")
	s.Exit()

	if want, have := "", d.Peek(); want != have {
		t.Errorf("buffer: want %q, have %q", want, have)
	}

	d.Flush()

	if want, have := 0, len(sink.texts); want != have {
		t.Errorf("emitted records: want %d, have %d", want, have)
	}
}

func TestDisabledAllocs(t *testing.T) {
	d := dtl.New(dtl.LevelOff, dtl.WithTiming)

	allocs := testing.AllocsPerRun(1000, func() {
		d.Infof("it does something")
	})

	if allocs > 0 {
		t.Errorf("disabled detail line: want 0 allocs, have %v", allocs)
	}
}

func TestMultilineMessages(t *testing.T) {
	t.Parallel()

	stampRe := regexp.MustCompile(`^\d+ *$`)

	t.Run("depth zero is not split", func(t *testing.T) {
		d := dtl.New(dtl.LevelInfo, dtl.WithTiming)
		d.Infof("a\nb")

		// One stamp at the head, the embedded newline passed through, one
		// trailing newline.
		lines := strings.Split(strings.TrimSuffix(d.Peek(), "\n"), "\n")
		if want, have := 2, len(lines); want != have {
			t.Fatalf("lines: want %d, have %d", want, have)
		}
		if !stampRe.MatchString(lines[0][:7]) || lines[0][7:] != "a" {
			t.Errorf("first line: want stamped %q, have %q", "a", lines[0])
		}
		if want, have := "b", lines[1]; want != have {
			t.Errorf("second line: want %q, have %q", want, have)
		}
	})

	t.Run("indented lines are split", func(t *testing.T) {
		d := dtl.New(dtl.LevelInfo, dtl.WithTiming)
		s := d.Scopef("s")
		d.Infof("a\nb")
		s.Exit()

		// The stamp goes on the first split line only, every split line gets
		// the indentation.
		lines := strings.Split(strings.TrimSuffix(d.Peek(), "\n"), "\n")
		if want, have := 3, len(lines); want != have {
			t.Fatalf("lines: want %d, have %d", want, have)
		}
		if !stampRe.MatchString(lines[1][:7]) || lines[1][7:] != "  a" {
			t.Errorf("first split line: want stamped %q, have %q", "  a", lines[1])
		}
		if want, have := "  b", lines[2]; want != have {
			t.Errorf("second split line: want %q, have %q", want, have)
		}
	})
}

func TestTimingStamps(t *testing.T) {
	t.Parallel()

	d := dtl.New(dtl.LevelInfo, dtl.WithTiming)
	d.Infof("first")
	time.Sleep(2 * time.Millisecond)
	d.Infof("second")

	re := regexp.MustCompile(`^(\d+) +\S+$`)

	var stamps []int64
	for _, line := range strings.Split(strings.TrimSuffix(d.Peek(), "\n"), "\n") {
		m := re.FindStringSubmatch(line)
		if m == nil {
			t.Fatalf("line %q doesn't match %s", line, re)
		}
		us, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			t.Fatal(err)
		}
		stamps = append(stamps, us)
	}

	if want, have := 2, len(stamps); want != have {
		t.Fatalf("lines: want %d, have %d", want, have)
	}

	if stamps[1] < stamps[0] {
		t.Errorf("stamps went backwards: %d then %d", stamps[0], stamps[1])
	}

	if stamps[1] < 1000 {
		t.Errorf("second stamp %dµs, want at least 1000µs", stamps[1])
	}
}

func TestUntimedLinesHaveNoStamp(t *testing.T) {
	t.Parallel()

	d := dtl.New(dtl.LevelInfo, dtl.WithoutTiming)
	d.Infof("plain")

	if want, have := "plain\n", d.Peek(); want != have {
		t.Errorf("buffer: want %q, have %q", want, have)
	}
}

func TestFlush(t *testing.T) {
	t.Parallel()

	sink := &testSink{}
	d := dtl.New(dtl.LevelDebug, dtl.WithoutTiming).SetSink(sink)

	d.Infof("one")
	d.Infof("two")
	d.Infof("   ") // trailing whitespace is trimmed away
	d.Flush()

	if want, have := 1, len(sink.texts); want != have {
		t.Fatalf("emitted records: want %d, have %d", want, have)
	}
	if want, have := "one\ntwo", sink.texts[0]; want != have {
		t.Errorf("record text: want %q, have %q", want, have)
	}
	if want, have := dtl.LevelDebug, sink.levels[0]; want != have {
		t.Errorf("record level: want %s, have %s", want, have)
	}

	// The flush reset the buffer, so another flush emits nothing.
	d.Flush()
	if want, have := 1, len(sink.texts); want != have {
		t.Errorf("emitted records after re-flush: want %d, have %d", want, have)
	}

	// But the detailer is still usable for the next cycle.
	d.Infof("three")
	d.Flush()
	if want, have := 2, len(sink.texts); want != have {
		t.Fatalf("emitted records after new cycle: want %d, have %d", want, have)
	}
	if want, have := "three", sink.texts[1]; want != have {
		t.Errorf("record text: want %q, have %q", want, have)
	}
}

func TestCloseFlushes(t *testing.T) {
	t.Parallel()

	sink := &testSink{}

	func() {
		d := dtl.New(dtl.LevelInfo, dtl.WithoutTiming).SetSink(sink)
		defer d.Close()
		d.Infof("emitted on the way out")
	}()

	if want, have := 1, len(sink.texts); want != have {
		t.Fatalf("emitted records: want %d, have %d", want, have)
	}
	if want, have := "emitted on the way out", sink.texts[0]; want != have {
		t.Errorf("record text: want %q, have %q", want, have)
	}
}

func TestReset(t *testing.T) {
	t.Parallel()

	sink := &testSink{}
	d := dtl.New(dtl.LevelInfo, dtl.WithoutTiming).SetSink(sink)

	d.Infof("discarded")
	d.Reset()

	if want, have := "", d.Peek(); want != have {
		t.Errorf("buffer: want %q, have %q", want, have)
	}

	d.Flush()
	if want, have := 0, len(sink.texts); want != have {
		t.Errorf("emitted records: want %d, have %d", want, have)
	}
}

func TestDroppedLines(t *testing.T) {
	t.Parallel()

	sink := &testSink{}
	d := dtl.New(dtl.LevelInfo, dtl.WithoutTiming).SetSink(sink).SetMaxBytes(1024)

	big := strings.Repeat("x", 600)
	d.Infof("%s", big) // kept, 601B
	d.Infof("%s", big) // kept, buffer was still under the limit
	d.Infof("%s", big) // dropped
	d.Infof("%s", big) // dropped

	d.Flush()

	if want, have := 1, len(sink.texts); want != have {
		t.Fatalf("emitted records: want %d, have %d", want, have)
	}
	if want, have := "\n(dropped line count 2)", sink.texts[0]; !strings.HasSuffix(have, want) {
		t.Errorf("record text %q doesn't end with %q", have, want)
	}

	// The counter is reset along with the buffer.
	d.Infof("small")
	d.Flush()
	if want, have := "small", sink.texts[1]; want != have {
		t.Errorf("record text: want %q, have %q", want, have)
	}
}

func TestSetMaxDetailBytes(t *testing.T) {
	dtl.SetMaxDetailBytes(1024)
	defer dtl.SetMaxDetailBytes(1 << 20)

	sink := &testSink{}
	d := dtl.New(dtl.LevelInfo, dtl.WithoutTiming).SetSink(sink)

	big := strings.Repeat("x", 1100)
	d.Infof("%s", big)
	d.Infof("too late")
	d.Flush()

	if want, have := 1, len(sink.texts); want != have {
		t.Fatalf("emitted records: want %d, have %d", want, have)
	}
	if want, have := "(dropped line count 1)", sink.texts[0]; !strings.HasSuffix(have, want) {
		t.Errorf("record text %q doesn't end with %q", have, want)
	}
}

func TestWorkflowDetailTimed(t *testing.T) {
	t.Parallel()

	sink := &testSink{}
	d := dtl.New(dtl.LevelInfo, dtl.WithTiming).SetSink(sink)

	d.Infof("start")
	s := d.Scopef("work")
	d.Infof("step one")
	s.Exit()
	d.Infof("done")
	d.Flush()

	if want, have := 1, len(sink.texts); want != have {
		t.Fatalf("emitted records: want %d, have %d", want, have)
	}

	lines := strings.Split(sink.texts[0], "\n")
	if want, have := 4, len(lines); want != have {
		t.Fatalf("lines: want %d, have %d", want, have)
	}

	// The stamp field is 6-wide plus a trailing space, so with a sub-second
	// elapsed time the message always starts at column 7.
	stampRe := regexp.MustCompile(`^\d+ *$`)
	for i, want := range []string{
		"start",
		"work", // scope names are written before the depth increment
		"  step one",
		"done",
	} {
		line := lines[i]
		if len(line) < 7 {
			t.Fatalf("line %d: %q too short for a stamp", i+1, line)
		}
		if stamp := line[:7]; !stampRe.MatchString(stamp) {
			t.Errorf("line %d: stamp %q doesn't match %s", i+1, stamp, stampRe)
		}
		if have := line[7:]; want != have {
			t.Errorf("line %d: message: want %q, have %q", i+1, want, have)
		}
	}
}

func TestWorkflowDetail(t *testing.T) {
	t.Parallel()

	sink := &testSink{}
	d := dtl.New(dtl.LevelDebug, dtl.WithoutTiming).SetSink(sink)

	d.Infof("starting")
	func() {
		s := d.Scopef("phase one")
		defer s.Exit()
		d.Debugf("working")
	}()
	d.Infof("done")
	d.Flush()

	want := strings.Join([]string{
		"starting",
		"phase one",
		"  working",
		"done",
	}, "\n")

	if wantc, havec := 1, len(sink.texts); wantc != havec {
		t.Fatalf("emitted records: want %d, have %d", wantc, havec)
	}
	if have := sink.texts[0]; want != have {
		t.Errorf("record text: want %q, have %q", want, have)
	}
	if want, have := dtl.LevelDebug, sink.levels[0]; want != have {
		t.Errorf("record level: want %s, have %s", want, have)
	}
}
