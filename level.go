package dtl

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Level is a discrete severity rank. It's used both to configure the
// threshold of a [Detailer], and to tag individual detail lines and the
// final emitted record. More verbose levels have higher values, so a line
// passes a threshold when its level is less than or equal to that threshold.
// [LevelOff] is a threshold-only sentinel which accepts nothing.
type Level uint8

const (
	LevelOff Level = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

var levelNames = [...]string{
	LevelOff:   "off",
	LevelError: "error",
	LevelWarn:  "warn",
	LevelInfo:  "info",
	LevelDebug: "debug",
	LevelTrace: "trace",
}

// String returns the lowercase name of the level, or a numeric form for
// out-of-range values.
func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return fmt.Sprintf("level(%d)", uint8(l))
}

// ParseLevel parses a level from its name, accepting the single-letter
// abbreviations used by the CLI. Parsing is case-insensitive.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "off", "none", "o":
		return LevelOff, nil
	case "error", "e":
		return LevelError, nil
	case "warn", "warning", "w":
		return LevelWarn, nil
	case "info", "i":
		return LevelInfo, nil
	case "debug", "d":
		return LevelDebug, nil
	case "trace", "t":
		return LevelTrace, nil
	}
	return LevelOff, fmt.Errorf("invalid level %q", s)
}

// MarshalJSON implements json.Marshaler, encoding the level by name.
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
