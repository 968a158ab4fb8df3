// dtl is a CLI tool for interacting with dtlweb servers.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/detailkit/dtl"
	"github.com/oklog/run"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/peterbourgon/unixtransport"
)

func main() {
	var (
		ctx    = context.Background()
		stdin  = os.Stdin
		stdout = os.Stdout
		stderr = os.Stderr
		args   = os.Args[1:]
	)
	err := exec(ctx, stdin, stdout, stderr, args)
	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.As(err, &(run.SignalError{})):
		os.Exit(0)
	case err != nil:
		fmt.Fprintf(stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func exec(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args []string) (err error) {
	rootConfig := &rootConfig{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}

	rootFlags := ff.NewFlagSet("base")
	rootConfig.registerBaseFlags(rootFlags)

	filterFlags := ff.NewFlagSet("filter").SetParent(rootFlags)
	rootConfig.registerFilterFlags(filterFlags)

	rootCommand := &ff.Command{
		Name:      "dtl",
		ShortHelp: "access detail records from one or more dtlweb server instances",
		Flags:     rootFlags,
	}

	// Config for `dtl recent`.
	recentConfig := &recentConfig{rootConfig: rootConfig}
	recentFlags := ff.NewFlagSet("recent").SetParent(filterFlags)
	recentConfig.register(recentFlags)
	recentCommand := &ff.Command{
		Name:      "recent",
		ShortHelp: "run a single select request",
		LongHelp:  "Fetch retained records that match the provided query flags.",
		Flags:     recentFlags,
		Exec:      recentConfig.Exec,
	}
	rootCommand.Subcommands = append(rootCommand.Subcommands, recentCommand)

	// Config for `dtl tail`.
	tailConfig := &tailConfig{rootConfig: rootConfig}
	tailFlags := ff.NewFlagSet("tail").SetParent(filterFlags)
	tailConfig.register(tailFlags)
	tailCommand := &ff.Command{
		Name:      "tail",
		ShortHelp: "continuously stream records to the terminal",
		LongHelp:  "Stream records that match the provided query flags, as they are flushed.",
		Flags:     tailFlags,
		Exec:      tailConfig.Exec,
	}
	rootCommand.Subcommands = append(rootCommand.Subcommands, tailCommand)

	// Print help when appropriate.
	showHelp := true
	defer func() {
		errHelp := errors.Is(err, ff.ErrHelp) || errors.Is(err, ff.ErrNoExec)
		if showHelp || errHelp {
			fmt.Fprintf(stderr, "\n%s\n", ffhelp.Command(rootCommand))
		}
		if errHelp {
			err = nil
		}
	}()

	// Initial parsing.
	if err := rootCommand.Parse(args, ff.WithEnvVarPrefix("DTL")); err != nil {
		return err
	}

	// Validation and set-up.
	{
		var infodst, debugdst io.Writer
		switch rootConfig.logLevel {
		case "n", "none":
			infodst, debugdst = io.Discard, io.Discard
		case "i", "info":
			infodst, debugdst = stderr, io.Discard
		case "d", "debug":
			infodst, debugdst = stderr, stderr
		default:
			return fmt.Errorf("invalid log level %q", rootConfig.logLevel)
		}
		rootConfig.info = log.New(infodst, "", 0)
		rootConfig.debug = log.New(debugdst, "[DEBUG] ", log.Lmsgprefix)
	}

	if len(rootConfig.uris) <= 0 {
		return fmt.Errorf("at least one URI is required")
	}

	for i, uri := range rootConfig.uris {
		uri = strings.TrimSpace(uri)
		if uri == "" {
			continue
		}

		if !strings.HasPrefix(uri, "http") {
			uri = "http://" + uri
		}

		u, err := url.ParseRequestURI(uri)
		if err != nil {
			return fmt.Errorf("%s: invalid: %w", uri, err)
		}

		if rootConfig.uriPath != "" {
			u.Path = rootConfig.uriPath
		}

		uri = u.String()
		rootConfig.uris[i] = uri

		rootConfig.debug.Printf("URI: %s", uri)
	}

	{
		transport := &http.Transport{
			//
		}
		unixtransport.Register(transport)
		rootConfig.client = &http.Client{Transport: transport}
	}

	{
		var minDuration *time.Duration
		if f, ok := filterFlags.GetFlag("duration"); ok && f.IsSet() {
			rootConfig.debug.Printf("using --duration %s", rootConfig.minDuration)
			minDuration = &rootConfig.minDuration
		}

		var minLevel *dtl.Level
		if f, ok := filterFlags.GetFlag("level"); ok && f.IsSet() {
			level, err := dtl.ParseLevel(rootConfig.levelName)
			if err != nil {
				return fmt.Errorf("--level: %w", err)
			}
			rootConfig.debug.Printf("using --level %s", level)
			minLevel = &level
		}

		rootConfig.filter = dtl.Filter{
			IDs:         rootConfig.ids,
			Category:    rootConfig.category,
			MinLevel:    minLevel,
			MinDuration: minDuration,
			Query:       rootConfig.query,
		}
	}

	// Run errors shouldn't show help by default.
	showHelp = false

	// Run the selected command.
	return rootCommand.Run(ctx)
}
