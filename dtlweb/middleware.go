package dtlweb

import (
	"net/http"
	"time"

	"github.com/detailkit/dtl"
)

// Middleware decorates an HTTP handler by creating a detailer for each
// request via the constructor function, typically [dtl.Collector.NewDetailer]
// partially applied with a level and timing mode. The detail category is
// determined by the categorize function. Basic metadata, such as method,
// path, duration, and response code, is recorded in the detail. The detailer
// is flushed when the request completes, on every exit path.
//
// This is meant as a convenience for simple use cases. Users who want
// different or more sophisticated behavior should implement their own
// middlewares.
func Middleware(
	constructor func(category string) *dtl.Detailer,
	categorize func(*http.Request) string,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := constructor(categorize(r))
			defer d.Close()

			ctx, _ := dtl.Put(r.Context(), d)

			d.Infof("%s %s %s", r.RemoteAddr, r.Method, r.URL.String())

			iw := newInterceptor(w)

			defer func(b time.Time) {
				d.Infof("HTTP %d, %dB, %s", iw.Code(), iw.Written(), time.Since(b).Truncate(time.Microsecond))
			}(time.Now())

			w = iw
			r = r.WithContext(ctx)
			next.ServeHTTP(w, r)
		})
	}
}

//
//
//

type interceptor struct {
	http.ResponseWriter

	flush func()
	code  int
	n     int
}

func newInterceptor(w http.ResponseWriter) *interceptor {
	flush := func() {}
	if f, ok := w.(http.Flusher); ok {
		flush = f.Flush
	}
	return &interceptor{ResponseWriter: w, flush: flush}
}

func (i *interceptor) WriteHeader(code int) {
	if i.code == 0 {
		i.code = code
	}
	i.ResponseWriter.WriteHeader(code)
}

func (i *interceptor) Write(p []byte) (int, error) {
	n, err := i.ResponseWriter.Write(p)
	i.n += n
	return n, err
}

func (i *interceptor) Code() int {
	if i.code == 0 {
		return http.StatusOK
	}
	return i.code
}

func (i *interceptor) Written() int {
	return i.n
}

func (i *interceptor) Flush() {
	i.flush()
}
