// Package dtlweb serves the records retained by a [dtl.Collector] over HTTP,
// as JSON select responses and as server-sent event streams, and provides
// client implementations of both surfaces.
package dtlweb

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/detailkit/dtl"
	"github.com/detailkit/dtl/internal/dtlutil"
)

// Server provides an HTTP interface to a [dtl.Selecter]. Requests carry a
// select request either as a JSON body or as URL query parameters, and
// responses are JSON.
type Server struct {
	sel dtl.Selecter
}

// NewServer returns a server wrapping the provided selecter.
func NewServer(sel dtl.Selecter) *Server {
	return &Server{
		sel: sel,
	}
}

// SelectData is the JSON schema of a select response.
type SelectData struct {
	Request  dtl.SelectRequest  `json:"request"`
	Response dtl.SelectResponse `json:"response"`
	Problems []string           `json:"problems,omitempty"`
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var (
		ctx  = r.Context()
		data = SelectData{}
	)

	switch {
	case requestHasContentType(r, "application/json"):
		body := http.MaxBytesReader(w, r.Body, maxRequestBodySizeBytes)
		if err := json.NewDecoder(body).Decode(&data.Request); err != nil {
			data.Problems = append(data.Problems, "decode JSON request: "+err.Error())
		}

	default:
		data.Request = dtl.SelectRequest{
			Filter: parseFilter(r),
			Limit:  parseRange(r.URL.Query().Get("n"), strconv.Atoi, dtl.SelectRequestLimitMin, dtl.SelectRequestLimitDefault, dtl.SelectRequestLimitMax),
		}
	}

	data.Problems = append(data.Problems, dtlutil.FlattenErrors(data.Request.Normalize()...)...)

	res, err := s.sel.Select(ctx, &data.Request)
	if err != nil {
		data.Problems = append(data.Problems, "execute select request: "+err.Error())
	} else {
		data.Response = *res
	}

	respondJSON(w, http.StatusOK, data)
}
