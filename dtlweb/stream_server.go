package dtlweb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bernerdschaefer/eventsource"
	"github.com/detailkit/dtl"
	"github.com/detailkit/dtl/internal/dtlutil"
)

// StreamServer provides an HTTP interface to a [dtl.Streamer]: records are
// streamed to the client as server-sent events as they are flushed.
type StreamServer struct {
	dtl.Streamer
}

// NewStreamServer returns a stream server wrapping the provided streamer.
func NewStreamServer(s dtl.Streamer) *StreamServer {
	return &StreamServer{
		Streamer: s,
	}
}

// ServeHTTP implements [http.Handler]. Requests must Accept:
// text/event-stream.
func (s *StreamServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !requestExplicitlyAccepts(r, "text/event-stream") {
		err := fmt.Errorf("invalid request Accept header (%s)", r.Header.Get("accept"))
		respondError(w, err, http.StatusBadRequest)
		return
	}

	var f dtl.Filter
	switch {
	case requestHasContentType(r, "application/json"):
		body := http.MaxBytesReader(w, r.Body, maxRequestBodySizeBytes)
		if err := json.NewDecoder(body).Decode(&f); err != nil {
			f = parseFilter(r) // fall back to the URL
		}
	default:
		f = parseFilter(r)
	}

	if normalizeErrs := f.Normalize(); len(normalizeErrs) > 0 {
		err := fmt.Errorf("bad request: %s", strings.Join(dtlutil.FlattenErrors(normalizeErrs...), "; "))
		respondError(w, err, http.StatusBadRequest)
		return
	}

	var (
		statsInterval = parseDefault(r.URL.Query().Get("stats"), time.ParseDuration, 10*time.Second)
		sendbuf       = parseRange(r.URL.Query().Get("sendbuf"), strconv.Atoi, 0, 100, 100000)
		recordc       = make(chan *dtl.Record, sendbuf)
		donec         = make(chan struct{})
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		defer close(donec)
		s.Streamer.Stream(ctx, f, recordc)
	}()
	defer func() {
		<-donec
	}()

	eventsource.Handler(func(lastId string, encoder *eventsource.Encoder, stop <-chan bool) {
		var seq uint64

		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()

		initc := make(chan struct{}, 1)
		initc <- struct{}{}

		for {
			select {
			case <-initc:
				data, err := json.Marshal(map[string]any{
					"filter":  f,
					"sendbuf": cap(recordc),
				})
				if err != nil {
					continue
				}
				if err := encoder.Encode(eventsource.Event{
					Type: "init",
					Data: data,
				}); err != nil {
					continue
				}

			case <-ticker.C:
				stats, err := s.Streamer.StreamStats(ctx, recordc)
				if err != nil {
					continue
				}
				data, err := json.Marshal(stats)
				if err != nil {
					continue
				}
				if err := encoder.Encode(eventsource.Event{
					Type: "stats",
					Data: data,
				}); err != nil {
					continue
				}

			case rec := <-recordc:
				data, err := json.Marshal(rec)
				if err != nil {
					continue
				}
				seq++
				if err := encoder.Encode(eventsource.Event{
					Type: "record",
					ID:   strconv.FormatUint(seq, 10),
					Data: data,
				}); err != nil {
					continue
				}

			case <-ctx.Done():
				return

			case <-stop:
				return
			}
		}
	}).ServeHTTP(w, r)
}
