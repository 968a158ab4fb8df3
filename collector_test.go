package dtl_test

import (
	"context"
	"testing"
	"time"

	"github.com/detailkit/dtl"
)

var silentSink = dtl.SinkFunc(func(dtl.Level, string) {})

func emitRecord(c *dtl.Collector, category string, level dtl.Level, text string) {
	d := c.NewDetailer(category, level, dtl.WithoutTiming).SetSink(silentSink)
	d.Logf(level, "%s", text)
	d.Flush()
}

func TestCollectorSelect(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := dtl.NewCollector()

	emitRecord(c, "api", dtl.LevelInfo, "GET /users alpha")
	emitRecord(c, "api", dtl.LevelError, "GET /users beta")
	emitRecord(c, "worker", dtl.LevelInfo, "job 1 gamma")
	time.Sleep(time.Millisecond)
	emitRecord(c, "worker", dtl.LevelDebug, "job 2 delta")

	t.Run("all", func(t *testing.T) {
		res, err := c.Select(ctx, &dtl.SelectRequest{})
		if err != nil {
			t.Fatal(err)
		}
		if want, have := 4, res.TotalCount; want != have {
			t.Errorf("total: want %d, have %d", want, have)
		}
		if want, have := 4, res.MatchCount; want != have {
			t.Errorf("matched: want %d, have %d", want, have)
		}
		if want, have := 4, len(res.Records); want != have {
			t.Fatalf("returned: want %d, have %d", want, have)
		}
		if want, have := "job 2 delta", res.Records[0].Text; want != have {
			t.Errorf("newest first: want %q, have %q", want, have)
		}
		if want, have := 2, len(res.Stats); want != have {
			t.Fatalf("category stats: want %d, have %d", want, have)
		}
		if want, have := "api", res.Stats[0].Name; want != have {
			t.Errorf("stats order: want %q, have %q", want, have)
		}
	})

	t.Run("category", func(t *testing.T) {
		res, err := c.Select(ctx, &dtl.SelectRequest{Filter: dtl.Filter{Category: "api"}})
		if err != nil {
			t.Fatal(err)
		}
		if want, have := 2, res.MatchCount; want != have {
			t.Errorf("matched: want %d, have %d", want, have)
		}
		for _, r := range res.Records {
			if want, have := "api", r.Category; want != have {
				t.Errorf("category: want %q, have %q", want, have)
			}
		}
	})

	t.Run("min level", func(t *testing.T) {
		level := dtl.LevelError
		res, err := c.Select(ctx, &dtl.SelectRequest{Filter: dtl.Filter{MinLevel: &level}})
		if err != nil {
			t.Fatal(err)
		}
		if want, have := 1, res.MatchCount; want != have {
			t.Fatalf("matched: want %d, have %d", want, have)
		}
		if want, have := "GET /users beta", res.Records[0].Text; want != have {
			t.Errorf("record: want %q, have %q", want, have)
		}
	})

	t.Run("query", func(t *testing.T) {
		res, err := c.Select(ctx, &dtl.SelectRequest{Filter: dtl.Filter{Query: "job \\d"}})
		if err != nil {
			t.Fatal(err)
		}
		if want, have := 2, res.MatchCount; want != have {
			t.Errorf("matched: want %d, have %d", want, have)
		}
	})

	t.Run("limit", func(t *testing.T) {
		res, err := c.Select(ctx, &dtl.SelectRequest{Limit: 1})
		if err != nil {
			t.Fatal(err)
		}
		if want, have := 4, res.MatchCount; want != have {
			t.Errorf("matched: want %d, have %d", want, have)
		}
		if want, have := 1, len(res.Records); want != have {
			t.Errorf("returned: want %d, have %d", want, have)
		}
	})

	t.Run("bad query is a problem, not an error", func(t *testing.T) {
		res, err := c.Select(ctx, &dtl.SelectRequest{Filter: dtl.Filter{Query: "(unterminated"}})
		if err != nil {
			t.Fatal(err)
		}
		if want, have := 1, len(res.Problems); want != have {
			t.Errorf("problems: want %d, have %d", want, have)
		}
		if want, have := 4, res.MatchCount; want != have {
			t.Errorf("matched: want %d, have %d", want, have)
		}
	})
}

func TestCollectorRetention(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := dtl.NewCollector().SetRecordsPerCategory(0) // clamped up to the minimum of 10

	for i := 0; i < 25; i++ {
		emitRecord(c, "hot", dtl.LevelInfo, "line")
	}

	res, err := c.Select(ctx, &dtl.SelectRequest{Limit: 250})
	if err != nil {
		t.Fatal(err)
	}
	if want, have := 10, res.TotalCount; want != have {
		t.Errorf("retained: want %d, have %d", want, have)
	}
}

func TestCollectorStream(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := dtl.NewCollector()

	var (
		recordc = make(chan *dtl.Record, 10)
		statsc  = make(chan dtl.StreamStats, 1)
	)
	go func() {
		stats, _ := c.Stream(ctx, dtl.Filter{Category: "wanted"}, recordc)
		statsc <- stats
	}()

	// Wait for the subscription to become established.
	deadline := time.Now().Add(time.Second)
	for {
		if _, err := c.StreamStats(ctx, recordc); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("stream never subscribed")
		}
		time.Sleep(time.Millisecond)
	}

	emitRecord(c, "ignored", dtl.LevelInfo, "skip me")
	emitRecord(c, "wanted", dtl.LevelInfo, "send me")

	select {
	case r := <-recordc:
		if want, have := "send me", r.Text; want != have {
			t.Errorf("record text: want %q, have %q", want, have)
		}
	case <-time.After(time.Second):
		t.Fatal("no record received")
	}

	cancel()

	select {
	case stats := <-statsc:
		if want, have := uint64(1), stats.Sends; want != have {
			t.Errorf("sends: want %d, have %d", want, have)
		}
		if want, have := uint64(1), stats.Skips; want != have {
			t.Errorf("skips: want %d, have %d", want, have)
		}
	case <-time.After(time.Second):
		t.Fatal("stream didn't return after cancel")
	}
}

func TestSelectRequestNormalize(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		limit int
		want  int
	}{
		{-1, dtl.SelectRequestLimitDefault},
		{0, dtl.SelectRequestLimitDefault},
		{5, 5},
		{1 << 20, dtl.SelectRequestLimitMax},
	} {
		req := &dtl.SelectRequest{Limit: tc.limit}
		req.Normalize()
		if want, have := tc.want, req.Limit; want != have {
			t.Errorf("limit %d: want %d, have %d", tc.limit, want, have)
		}
	}
}

func TestMultiSelecter(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	c1 := dtl.NewCollector()
	c2 := dtl.NewCollector()
	emitRecord(c1, "a", dtl.LevelInfo, "from one")
	time.Sleep(time.Millisecond)
	emitRecord(c2, "b", dtl.LevelInfo, "from two")

	ms := dtl.MultiSelecter{c1, c2}
	res, err := ms.Select(ctx, &dtl.SelectRequest{})
	if err != nil {
		t.Fatal(err)
	}

	if want, have := 2, res.TotalCount; want != have {
		t.Errorf("total: want %d, have %d", want, have)
	}
	if want, have := 2, len(res.Records); want != have {
		t.Fatalf("returned: want %d, have %d", want, have)
	}
	if want, have := "from two", res.Records[0].Text; want != have {
		t.Errorf("newest first: want %q, have %q", want, have)
	}
}
