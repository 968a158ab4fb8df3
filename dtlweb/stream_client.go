package dtlweb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bernerdschaefer/eventsource"
	"github.com/detailkit/dtl"
)

// StreamClient consumes a [StreamServer] event stream, decoding record
// events to a channel.
type StreamClient struct {
	// HTTPClient used to make the stream request. Optional, defaults to
	// http.DefaultClient.
	HTTPClient HTTPClient

	// URI of the remote stream server. Required.
	URI string

	// SendBuffer used by the remote server for this stream. Optional.
	SendBuffer int

	// OnRead is called for every received event. Optional.
	OnRead func(ctx context.Context, eventType string, eventData []byte)

	// RetryInterval between reconnect attempts. Optional.
	RetryInterval time.Duration

	// StatsInterval for stats reports from the remote server. Optional.
	StatsInterval time.Duration
}

// NewStreamClient constructs a stream client connecting to the provided URI.
func NewStreamClient(uri string) *StreamClient {
	c := &StreamClient{
		URI: uri,
	}
	c.initialize()
	return c
}

func (c *StreamClient) initialize() {
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}

	if c.OnRead == nil {
		c.OnRead = func(ctx context.Context, eventType string, eventData []byte) {}
	}

	if c.RetryInterval == 0 {
		c.RetryInterval = 1 * time.Second
	}

	if c.StatsInterval == 0 {
		c.StatsInterval = 10 * time.Second
	}
}

// Stream records from the remote server, filtered by the provided filter, to
// the provided channel. The stream stops when the context is canceled, or a
// non-recoverable error occurs.
func (c *StreamClient) Stream(ctx context.Context, f dtl.Filter, ch chan<- *dtl.Record) (err error) {
	c.initialize()

	// Explicitly don't provide the context to the request, because
	// EventSource (incorrectly) treats context cancelation as a recoverable
	// error, in which case Read can block for a single retry duration before
	// returning.
	//
	// Also, EventSource directly re-uses this request over reconnect
	// attempts, which prevents the use of a body, and means the filter has
	// to be encoded in the URL.
	var req *http.Request
	{
		uri, err := url.Parse(c.URI)
		if err != nil {
			return err
		}

		query := uri.Query()
		if c.SendBuffer > 0 {
			query.Set("sendbuf", strconv.Itoa(c.SendBuffer))
		}
		if c.StatsInterval > 0 {
			query.Set("stats", c.StatsInterval.String())
		}
		uri.RawQuery = query.Encode()

		r, err := http.NewRequest("GET", uri.String(), nil)
		if err != nil {
			return err
		}

		encodeFilter(f, r)

		req = r
	}

	es := eventsource.New(req, c.RetryInterval)
	go func() {
		<-ctx.Done()
		es.Close()
	}()

	for {
		ev, err := es.Read()
		if errors.Is(err, eventsource.ErrClosed) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read server-sent event: %w", err)
		}

		c.OnRead(ctx, ev.Type, ev.Data)

		switch ev.Type {
		case "init":
			// connection established

		case "record":
			var rec dtl.Record
			if err := json.Unmarshal(ev.Data, &rec); err != nil {
				return fmt.Errorf("decode record event: %w", err)
			}
			select {
			case <-ctx.Done():
			case ch <- &rec:
			}

		case "stats":
			var stats dtl.StreamStats
			if err := json.Unmarshal(ev.Data, &stats); err != nil {
				return fmt.Errorf("invalid stats event: %w", err)
			}

		default:
			// unknown event type, skip
		}
	}
}
