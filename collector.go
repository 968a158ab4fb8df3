package dtl

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/detailkit/dtl/internal/dtlpub"
	"github.com/detailkit/dtl/internal/dtlring"
	"github.com/detailkit/dtl/internal/dtlutil"
)

const (
	recordsPerCategoryMin     = 10
	recordsPerCategoryDefault = 1000
	recordsPerCategoryMax     = 10000
)

// Collector retains the most recent flushed records, grouped into
// per-category ring buffers, and publishes each flushed record to any
// subscribed streams. It is safe for concurrent use.
type Collector struct {
	categories *dtlring.Rings[*Record]
	broker     *dtlpub.Broker[*Record]
}

var _ Selecter = (*Collector)(nil)

// NewCollector returns an empty collector with default capacities.
func NewCollector() *Collector {
	return &Collector{
		categories: dtlring.NewRings[*Record](recordsPerCategoryDefault),
		broker:     dtlpub.NewBroker[*Record](),
	}
}

// SetRecordsPerCategory changes how many records are retained per category,
// clamped to [10, 10000]. Shrinking discards the oldest records.
func (c *Collector) SetRecordsPerCategory(n int) *Collector {
	switch {
	case n < recordsPerCategoryMin:
		n = recordsPerCategoryMin
	case n > recordsPerCategoryMax:
		n = recordsPerCategoryMax
	}
	c.categories.Resize(n)
	return c
}

// NewDetailer returns a detailer whose flushed records are retained by the
// collector under the given category, in addition to normal sink emission.
func (c *Collector) NewDetailer(category string, level Level, timing Timing) *Detailer {
	d := New(level, timing)
	d.category = category
	d.publish = c.add
	return d
}

func (c *Collector) add(r *Record) {
	c.categories.GetOrCreate(r.Category).Add(r)
	c.broker.Publish(context.Background(), r)
}

// Select returns the retained records matching the request, newest first.
func (c *Collector) Select(ctx context.Context, req *SelectRequest) (*SelectResponse, error) {
	begin := time.Now()

	problems := req.Normalize()

	var (
		stats   []CategoryStats
		total   int
		allowed records
	)
	for name, ring := range c.categories.GetAll() {
		newest, oldest, count := ring.Stats()

		cs := CategoryStats{Name: name, Count: count}
		if count > 0 {
			cs.Newest = newest.Started
			cs.Oldest = oldest.Started
		}
		stats = append(stats, cs)

		if err := ring.Walk(func(r *Record) error {
			total++
			if req.Filter.Allow(r) {
				allowed = append(allowed, r)
			}
			return nil
		}); err != nil {
			return nil, fmt.Errorf("gathering records (%s): %w", name, err)
		}
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })

	matched := len(allowed)

	sort.Sort(allowed)
	if len(allowed) > req.Limit {
		allowed = allowed[:req.Limit]
	}

	return &SelectResponse{
		Stats:      stats,
		TotalCount: total,
		MatchCount: matched,
		Records:    allowed,
		Duration:   durationString(time.Since(begin)),
		Problems:   dtlutil.FlattenErrors(problems...),
	}, nil
}

// Stream sends every future record matching the filter to the channel,
// blocking until the context is canceled, then returns the stream stats.
// Sends never block: if the channel is full, the record is dropped and
// counted.
func (c *Collector) Stream(ctx context.Context, f Filter, ch chan<- *Record) (StreamStats, error) {
	if errs := f.Normalize(); len(errs) > 0 {
		return StreamStats{}, fmt.Errorf("bad filter: %v", errs[0])
	}
	stats, err := c.broker.Subscribe(ctx, f.Allow, ch)
	return StreamStats(stats), err
}

// StreamStats returns the current stats for a channel passed to Stream.
func (c *Collector) StreamStats(ctx context.Context, ch chan<- *Record) (StreamStats, error) {
	stats, err := c.broker.Stats(ctx, ch)
	return StreamStats(stats), err
}

// StreamStats describe the flow of records to a single stream.
type StreamStats struct {
	Skips uint64 `json:"skips"`
	Sends uint64 `json:"sends"`
	Drops uint64 `json:"drops"`
}

func (s StreamStats) String() string {
	return fmt.Sprintf("skips=%d sends=%d drops=%d", s.Skips, s.Sends, s.Drops)
}

// Streamer is the push-based record surface implemented by the collector.
type Streamer interface {
	Stream(ctx context.Context, f Filter, ch chan<- *Record) (StreamStats, error)
	StreamStats(ctx context.Context, ch chan<- *Record) (StreamStats, error)
}

var _ Streamer = (*Collector)(nil)

//
//
//

const (
	// SelectRequestLimitMin is the minimum records per select request.
	SelectRequestLimitMin = 1

	// SelectRequestLimitDefault is the default records per select request.
	SelectRequestLimitDefault = 10

	// SelectRequestLimitMax is the maximum records per select request.
	SelectRequestLimitMax = 250
)

// SelectRequest describes a query for retained records.
type SelectRequest struct {
	Filter Filter `json:"filter"`
	Limit  int    `json:"limit"`
}

// Normalize must be called before the request can be used. It clamps the
// limit and normalizes the filter, returning any filter problems.
func (req *SelectRequest) Normalize() []error {
	errs := req.Filter.Normalize()

	switch {
	case req.Limit <= 0:
		req.Limit = SelectRequestLimitDefault
	case req.Limit < SelectRequestLimitMin:
		req.Limit = SelectRequestLimitMin
	case req.Limit > SelectRequestLimitMax:
		req.Limit = SelectRequestLimitMax
	}

	return errs
}

// SelectResponse is the result of a select request.
type SelectResponse struct {
	Stats      []CategoryStats `json:"stats,omitempty"`
	TotalCount int             `json:"total_count"`
	MatchCount int             `json:"match_count"`
	Records    []*Record       `json:"records"`
	Duration   durationString  `json:"duration"`
	Problems   []string        `json:"problems,omitempty"`
}

// CategoryStats summarize the retained records for one category.
type CategoryStats struct {
	Name   string    `json:"name"`
	Count  int       `json:"count"`
	Newest time.Time `json:"newest,omitempty"`
	Oldest time.Time `json:"oldest,omitempty"`
}

// Selecter is the query surface over retained records, implemented by the
// collector directly, and by dtlweb.Client over HTTP.
type Selecter interface {
	Select(ctx context.Context, req *SelectRequest) (*SelectResponse, error)
}

// MultiSelecter fans a select request out to multiple selecters and merges
// the responses, newest records first.
type MultiSelecter []Selecter

// Select implements Selecter.
func (ms MultiSelecter) Select(ctx context.Context, req *SelectRequest) (*SelectResponse, error) {
	begin := time.Now()

	type result struct {
		res *SelectResponse
		err error
	}

	// Scatter.
	resultc := make(chan result, len(ms))
	for _, s := range ms {
		go func(s Selecter) {
			res, err := s.Select(ctx, req)
			resultc <- result{res, err}
		}(s)
	}

	// Gather.
	merged := &SelectResponse{}
	for i := 0; i < cap(resultc); i++ {
		r := <-resultc
		if r.err != nil {
			merged.Problems = append(merged.Problems, r.err.Error())
			continue
		}
		merged.Stats = append(merged.Stats, r.res.Stats...)
		merged.TotalCount += r.res.TotalCount
		merged.MatchCount += r.res.MatchCount
		merged.Records = append(merged.Records, r.res.Records...)
		merged.Problems = append(merged.Problems, r.res.Problems...)
	}

	sort.Sort(records(merged.Records))
	if req.Limit > 0 && len(merged.Records) > req.Limit {
		merged.Records = merged.Records[:req.Limit]
	}

	merged.Duration = durationString(time.Since(begin))

	return merged, nil
}
