// Package report records the result of a search run to a CSV file or a
// PostgreSQL table.
package report

import (
	"context"
	"time"

	"zipcrack/internal/search"
)

// Result is one finished run.
type Result struct {
	Archive  string
	Mode     string
	Workers  int
	Status   string
	Password string
	Attempts int64
	Elapsed  time.Duration
	Error    string
	At       time.Time
}

// Sink stores results. Close releases the sink once the run is recorded.
type Sink interface {
	Record(ctx context.Context, r Result) error
	Close() error
}

var (
	_ Sink = (*CSVFile)(nil)
	_ Sink = (*Postgres)(nil)
)

// FromOutcome converts a search outcome into a Result stamped with at.
func FromOutcome(cfg search.Config, out *search.Outcome, at time.Time) Result {
	mode := cfg.Mode
	if mode == "" {
		mode = search.ModeBrute
	}
	r := Result{
		Archive:  cfg.ArchivePath,
		Mode:     string(mode),
		Workers:  max(cfg.Workers, 1),
		Status:   out.Status.String(),
		Password: out.Password,
		Attempts: out.Attempts,
		Elapsed:  out.Elapsed,
		At:       at.UTC(),
	}
	if out.Err != nil {
		r.Error = out.Err.Error()
	}
	return r
}

// Speed is the number of passwords tried per second.
func (r Result) Speed() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Attempts) / r.Elapsed.Seconds()
}
