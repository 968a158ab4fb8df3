package main

import (
	"io"
	"log"
	"net/http"
	"time"

	"github.com/detailkit/dtl"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffval"
)

type rootConfig struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	uris     []string
	uriPath  string
	logLevel string
	output   string

	info, debug *log.Logger

	client *http.Client

	ids         []string
	category    string
	query       string
	levelName   string
	minDuration time.Duration

	filter dtl.Filter
}

func (cfg *rootConfig) registerBaseFlags(fs *ff.FlagSet) {
	fs.AddFlag(ff.FlagConfig{ShortName: 'u', LongName: "uri" /*      */, Value: ffval.NewUniqueList(&cfg.uris) /*                           */, Usage: "dtlweb server URI (repeatable, required)" /* */, Placeholder: "URI"})
	fs.AddFlag(ff.FlagConfig{ShortName: 0x0, LongName: "uri-path" /* */, Value: ffval.NewValue(&cfg.uriPath) /*                             */, Usage: "path that will be applied to every URI" /*   */, Placeholder: "PATH"})
	fs.AddFlag(ff.FlagConfig{ShortName: 'l', LongName: "log" /*      */, Value: ffval.NewEnum(&cfg.logLevel, "info", "i", "debug", "d", "none", "n") /* */, Usage: "log level: i/info, d/debug, n/none" /* */, Placeholder: "LEVEL"})
	fs.AddFlag(ff.FlagConfig{ShortName: 'o', LongName: "output" /*   */, Value: ffval.NewEnum(&cfg.output, "ndjson", "prettyjson") /*       */, Usage: "output format: ndjson, prettyjson" /*        */, Placeholder: "FORMAT"})
}

func (cfg *rootConfig) registerFilterFlags(fs *ff.FlagSet) {
	fs.AddFlag(ff.FlagConfig{ShortName: 'i', LongName: "id" /*       */, Value: ffval.NewUniqueList(&cfg.ids) /*    */, NoDefault: true, Usage: "record ID (repeatable)"})
	fs.AddFlag(ff.FlagConfig{ShortName: 'c', LongName: "category" /* */, Value: ffval.NewValue(&cfg.category) /*    */, NoDefault: true, Usage: "record category"})
	fs.AddFlag(ff.FlagConfig{ShortName: 'q', LongName: "query" /*    */, Value: ffval.NewValue(&cfg.query) /*       */, NoDefault: true, Usage: "query expression", Placeholder: "REGEX"})
	fs.AddFlag(ff.FlagConfig{ShortName: 0x0, LongName: "level" /*    */, Value: ffval.NewValue(&cfg.levelName) /*   */, NoDefault: true, Usage: "only records at or above this level", Placeholder: "LEVEL"})
	fs.AddFlag(ff.FlagConfig{ShortName: 'd', LongName: "duration" /* */, Value: ffval.NewValue(&cfg.minDuration) /* */, NoDefault: true, Usage: "only records of at least this duration"})
}

func (cfg *rootConfig) newDetailer(category string) *dtl.Detailer {
	d := dtl.New(dtl.LevelTrace, dtl.WithTiming)
	d.SetSink(dtl.NewWriterSink(&logWriter{Logger: cfg.debug}))
	d.Debugf("dtl %s", category)
	return d
}
