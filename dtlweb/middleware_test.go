package dtlweb_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/detailkit/dtl"
	"github.com/detailkit/dtl/dtlweb"
)

func TestMiddleware(t *testing.T) {
	t.Parallel()

	collector := dtl.NewCollector()

	constructor := func(category string) *dtl.Detailer {
		return collector.NewDetailer(category, dtl.LevelDebug, dtl.WithoutTiming).SetSink(silentSink)
	}
	categorize := func(r *http.Request) string {
		return r.Method
	}

	handler := dtlweb.Middleware(constructor, categorize)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dtl.Get(r.Context()).Debugf("inside the handler")
		fmt.Fprintln(w, "OK")
	}))

	httpServer := httptest.NewServer(handler)
	defer httpServer.Close()

	httpRes, err := http.Get(httpServer.URL + "/some/path")
	if err != nil {
		t.Fatal(err)
	}
	httpRes.Body.Close()

	res, err := collector.Select(context.Background(), &dtl.SelectRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if want, have := 1, len(res.Records); want != have {
		t.Fatalf("records: want %d, have %d", want, have)
	}

	rec := res.Records[0]
	if want, have := "GET", rec.Category; want != have {
		t.Errorf("category: want %q, have %q", want, have)
	}

	text := rec.Text
	for _, want := range []string{
		"GET /some/path",
		"inside the handler",
		"HTTP 200",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("record text %q doesn't contain %q", text, want)
		}
	}
}
