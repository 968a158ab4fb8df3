package dtl

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

var recordIDEntropy = ulid.DefaultEntropy()

// Record is the immutable result of one detailer accumulation cycle: the
// trimmed multi-line text that was emitted at flush, together with metadata
// about the cycle. Records are what collectors retain and what the HTTP
// surface serves. Record IDs are ULIDs, using a default monotonic source of
// entropy, so they sort by creation time.
type Record struct {
	ID       string         `json:"id"`
	Category string         `json:"category"`
	Started  time.Time      `json:"started"`
	Duration durationString `json:"duration"`
	Level    Level          `json:"level"`
	Text     string         `json:"text"`
}

func newRecord(category string, started time.Time, duration time.Duration, level Level, text string) *Record {
	now := time.Now().UTC()
	return &Record{
		ID:       ulid.MustNew(ulid.Timestamp(now), recordIDEntropy).String(),
		Category: category,
		Started:  started.UTC(),
		Duration: durationString(duration),
		Level:    level,
		Text:     text,
	}
}

// Lines splits the record text on newline boundaries.
func (r *Record) Lines() []string {
	return strings.Split(r.Text, "\n")
}

// MatchRegexp returns true if the regexp matches the record category or any
// line of its text.
func (r *Record) MatchRegexp(re *regexp.Regexp) bool {
	return re.MatchString(r.Category) || re.MatchString(r.Text)
}

type records []*Record

func (rs records) Less(i, j int) bool { return rs[i].Started.After(rs[j].Started) }
func (rs records) Swap(i, j int)      { rs[i], rs[j] = rs[j], rs[i] }
func (rs records) Len() int           { return len(rs) }

// durationString is a time.Duration which JSON marshals as a string.
type durationString time.Duration

// MarshalJSON implements json.Marshaler.
func (d durationString) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *durationString) UnmarshalJSON(data []byte) error {
	if dur, err := time.ParseDuration(strings.Trim(string(data), `"`)); err == nil {
		*d = durationString(dur)
		return nil
	}
	return json.Unmarshal(data, (*time.Duration)(d))
}
