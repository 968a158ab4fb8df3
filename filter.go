package dtl

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Filter is a set of rules that can be applied to an individual record,
// which will either be allowed (pass) or rejected (fail).
type Filter struct {
	IDs         []string       `json:"ids,omitempty"`
	Category    string         `json:"category,omitempty"`
	MinLevel    *Level         `json:"min_level,omitempty"`
	MinDuration *time.Duration `json:"min_duration,omitempty"`
	Query       string         `json:"query,omitempty"`

	regexp *regexp.Regexp
}

// Normalize must be called before the filter can be used.
func (f *Filter) Normalize() []error {
	var errs []error

	if err := f.initializeQueryRegexp(); err != nil {
		errs = append(errs, fmt.Errorf("query: %w", err))
	}

	return errs
}

// String returns an operator-readable representation of the filter.
func (f Filter) String() string {
	var elems []string

	if len(f.IDs) > 0 {
		elems = append(elems, fmt.Sprintf("IDs=%v", f.IDs))
	}

	if f.Category != "" {
		elems = append(elems, fmt.Sprintf("Category='%s'", f.Category))
	}

	if f.MinLevel != nil {
		elems = append(elems, fmt.Sprintf("MinLevel=%s", f.MinLevel.String()))
	}

	if f.MinDuration != nil {
		elems = append(elems, fmt.Sprintf("MinDuration=%s", f.MinDuration.String()))
	}

	if f.Query != "" {
		elems = append(elems, fmt.Sprintf("Query='%s'", f.Query))
	}

	if len(elems) <= 0 {
		return "(allow all)"
	}

	return strings.Join(elems, " ")
}

// Allow returns true if the provided record satisfies all of the conditions
// in the filter.
func (f *Filter) Allow(r *Record) bool {
	if len(f.IDs) > 0 {
		var found bool
		for _, id := range f.IDs {
			if id == r.ID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if f.Category != "" {
		if r.Category != f.Category {
			return false
		}
	}

	if f.MinLevel != nil {
		// Lower level values are more severe; a record passes a min level
		// when it's at least that severe.
		if r.Level == LevelOff || r.Level > *f.MinLevel {
			return false
		}
	}

	if f.MinDuration != nil {
		if time.Duration(r.Duration) < *f.MinDuration {
			return false
		}
	}

	f.initializeQueryRegexp()
	if f.regexp != nil {
		if !r.MatchRegexp(f.regexp) {
			return false
		}
	}

	return true
}

func (f *Filter) initializeQueryRegexp() error {
	if f.regexp != nil {
		return nil
	}

	if f.Query == "" {
		return nil
	}

	re, err := regexp.Compile(f.Query)
	if err != nil {
		f.Query = ""
		return fmt.Errorf("invalid, ignoring (%w)", err)
	}

	f.regexp = re
	return nil
}
