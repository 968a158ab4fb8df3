package dtlweb

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/detailkit/dtl"
)

const maxRequestBodySizeBytes = 1 * 1024 * 1024 // 1MB

func parseFilter(r *http.Request) dtl.Filter {
	urlquery := r.URL.Query()
	return dtl.Filter{
		IDs:         urlquery["id"],
		Category:    urlquery.Get("category"),
		MinLevel:    parseDefault(urlquery.Get("level"), parseLevelPointer, nil),
		MinDuration: parseDefault(urlquery.Get("min"), parseDurationPointer, nil),
		Query:       urlquery.Get("q"),
	}
}

func encodeFilter(f dtl.Filter, r *http.Request) {
	urlquery := r.URL.Query()
	for _, id := range f.IDs {
		urlquery.Add("id", id)
	}
	if f.Category != "" {
		urlquery.Set("category", f.Category)
	}
	if f.MinLevel != nil {
		urlquery.Set("level", f.MinLevel.String())
	}
	if f.MinDuration != nil {
		urlquery.Set("min", f.MinDuration.String())
	}
	if f.Query != "" {
		urlquery.Set("q", f.Query)
	}
	r.URL.RawQuery = urlquery.Encode()
}

func parseDefault[T any](s string, parse func(string) (T, error), def T) T {
	if v, err := parse(s); err == nil {
		return v
	}
	return def
}

func parseRange[T int](s string, parse func(string) (T, error), min, def, max T) T {
	v, err := parse(s)
	switch {
	case err != nil:
		return def
	case err == nil && v < min:
		return min
	case err == nil && v > max:
		return max
	default:
		return v
	}
}

func parseDurationPointer(s string) (*time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseLevelPointer(s string) (*dtl.Level, error) {
	l, err := dtl.ParseLevel(s)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func requestHasContentType(r *http.Request, candidates ...string) bool {
	have := r.Header.Get("content-type")
	for _, want := range candidates {
		if strings.Contains(have, want) {
			return true
		}
	}
	return false
}

func requestExplicitlyAccepts(r *http.Request, candidates ...string) bool {
	have := r.Header.Get("accept")
	for _, want := range candidates {
		if strings.Contains(have, want) {
			return true
		}
	}
	return false
}

func respondJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, err error, code int) {
	respondJSON(w, code, map[string]string{"error": err.Error()})
}

// HTTPClient models the Do method of an [http.Client].
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

var _ HTTPClient = (*http.Client)(nil)
