package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/detailkit/dtl"
	"github.com/detailkit/dtl/dtlweb"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffval"
)

type recentConfig struct {
	*rootConfig

	limit        int
	includeStats bool
}

func (cfg *recentConfig) register(fs *ff.FlagSet) {
	fs.AddFlag(ff.FlagConfig{ShortName: 'n', LongName: "limit" /*         */, Value: ffval.NewValueDefault(&cfg.limit, 10) /* */, Usage: "maximum number of records to return"})
	fs.AddFlag(ff.FlagConfig{ShortName: 0x0, LongName: "include-stats" /* */, Value: ffval.NewValue(&cfg.includeStats) /*    */, Usage: "include category statistics in output", NoDefault: true})
}

func (cfg *recentConfig) writeResult(ctx context.Context, res *dtl.SelectResponse) error {
	enc := json.NewEncoder(cfg.stdout)
	switch cfg.output {
	case "prettyjson":
		enc.SetIndent("", "    ")
	case "ndjson":
		//
	default:
		//
	}
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	return nil
}

func (cfg *recentConfig) Exec(ctx context.Context, args []string) error {
	d := cfg.newDetailer("recent")
	defer d.Close()

	var selecter dtl.MultiSelecter
	for _, uri := range cfg.uris {
		selecter = append(selecter, dtlweb.NewClient(cfg.client, uri))
	}

	req := &dtl.SelectRequest{
		Filter: cfg.filter,
		Limit:  cfg.limit,
	}

	cfg.debug.Printf("request: filter: %s", cfg.filter)
	cfg.debug.Printf("request: limit: %d", cfg.limit)

	d.Debugf("select against %d instance(s)", len(selecter))

	res, err := selecter.Select(ctx, req)
	if err != nil {
		return fmt.Errorf("execute select: %w", err)
	}

	d.Debugf("select complete")

	cfg.debug.Printf("response: total: %d", res.TotalCount)
	cfg.debug.Printf("response: matched: %d", res.MatchCount)
	cfg.debug.Printf("response: returned: %d", len(res.Records))
	cfg.debug.Printf("response: duration: %s", time.Duration(res.Duration))

	if !cfg.includeStats {
		res.Stats = nil
	}

	if err := cfg.writeResult(ctx, res); err != nil {
		return err
	}

	return nil
}
