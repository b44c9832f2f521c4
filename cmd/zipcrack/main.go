package main

import (
	"cmp"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"zipcrack/internal/archive"
	"zipcrack/internal/config"
	"zipcrack/internal/logger"
	"zipcrack/internal/progress"
	"zipcrack/internal/report"
	"zipcrack/internal/search"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

const (
	exitOK       = 0
	exitFound    = exitOK
	exitNotFound = 1
	exitFailed   = 2
)

const separator = "------------------------------------------------"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Getenv, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, getenv func(string) string, stdout, stderr io.Writer) int {
	opts, err := config.Parse(args, getenv, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailed
	}

	if opts.Version {
		fmt.Fprintf(stdout, "Build version: %s\n", cmp.Or(version, "N/A"))
		fmt.Fprintf(stdout, "Build date: %s\n", cmp.Or(buildDate, "N/A"))
		return exitOK
	}

	if err := opts.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailed
	}

	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(opts.LogLevel); err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailed
	}

	cfg := search.Config{
		ArchivePath:   opts.File,
		Mode:          search.Mode(opts.Mode),
		Wordlist:      opts.Dict,
		MinLength:     opts.MinLen,
		MaxLength:     opts.Len,
		Workers:       opts.Workers,
		StatsInterval: opts.Stats,
	}

	var out *search.Outcome
	if cfg.Mode == search.ModeBrute {
		cfg.Alphabet, err = opts.ResolveAlphabet()
	}
	if err != nil {
		out = &search.Outcome{Status: search.Failed, Err: err}
	} else {
		out = crack(ctx, opts, cfg, log.Log, stdout, stderr)
	}

	fmt.Fprintln(stdout, separator)
	fmt.Fprintln(stdout, out.String())
	fmt.Fprintf(stdout, "Elapsed: %s\n", out.Elapsed.Round(time.Millisecond))
	fmt.Fprintln(stdout, separator)

	code := exitCode(out.Status)
	if out.Status == search.Found && opts.Extract != "" {
		if err := extract(opts.File, out.Password, opts.Extract, log.Log); err != nil {
			fmt.Fprintf(stdout, "[!] extraction failed: %v\n", err)
			code = exitFailed
		}
	}

	record(ctx, opts, report.FromOutcome(cfg, out, time.Now()), log.Log)
	return code
}

func crack(ctx context.Context, opts *config.Options, cfg search.Config, log *zap.Logger, stdout, stderr io.Writer) *search.Outcome {
	switch cfg.Mode {
	case search.ModeDict:
		fmt.Fprintf(stdout, "Attacking %s | word list: %s | workers: %d\n", cfg.ArchivePath, cfg.Wordlist, cfg.Workers)
	default:
		fmt.Fprintf(stdout, "Attacking %s | length: %d-%d | alphabet: %q | workers: %d\n",
			cfg.ArchivePath, max(cfg.MinLength, 1), cfg.MaxLength, cfg.Alphabet, cfg.Workers)
	}

	searchOpts := []search.Option{search.WithLogger(log)}
	if opts.Progress {
		searchOpts = append(searchOpts, search.WithProgress(progress.New(stderr)))
	}

	// Errors are carried by the outcome.
	out, _ := search.Run(ctx, cfg, searchOpts...)
	return out
}

func extract(path, password, dir string, log *zap.Logger) error {
	a, err := archive.Open(path)
	if err != nil {
		return err
	}
	defer a.Close()

	written, err := a.Extract(password, dir)
	if err != nil {
		return err
	}
	log.Info("archive extracted", zap.String("dir", dir), zap.Int("files", len(written)))
	return nil
}

// record stores the run in the configured sinks. Failures are logged and
// do not change the exit code.
func record(ctx context.Context, opts *config.Options, r report.Result, log *zap.Logger) {
	// The run may have been interrupted; the report still gets written.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	for _, sink := range openSinks(ctx, opts, log) {
		if err := sink.Record(ctx, r); err != nil {
			log.Warn("cannot record run", zap.Error(err))
		}
		if err := sink.Close(); err != nil {
			log.Warn("cannot close report", zap.Error(err))
		}
	}
}

func openSinks(ctx context.Context, opts *config.Options, log *zap.Logger) []report.Sink {
	var sinks []report.Sink
	if opts.ReportCSV != "" {
		sinks = append(sinks, report.NewCSVFile(opts.ReportCSV))
	}
	if opts.ReportDSN != "" {
		pg, err := report.OpenPostgres(ctx, opts.ReportDSN, 5, 2*time.Second, log)
		if err != nil {
			log.Warn("cannot record run in database", zap.Error(err))
		} else {
			sinks = append(sinks, pg)
		}
	}
	return sinks
}

func exitCode(s search.Status) int {
	switch s {
	case search.Found:
		return exitFound
	case search.NotFound:
		return exitNotFound
	default:
		return exitFailed
	}
}
