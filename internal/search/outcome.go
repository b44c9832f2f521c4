package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zipcrack/internal/archive"
	"zipcrack/internal/candidate"
)

// State is a step of the controller's lifecycle:
// Idle → Searching → {Succeeded | Exhausted | Fatal}.
type State int32

const (
	Idle State = iota
	Searching
	Succeeded
	Exhausted
	Fatal
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Searching:
		return "searching"
	case Succeeded:
		return "succeeded"
	case Exhausted:
		return "exhausted"
	case Fatal:
		return "fatal"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Status is the kind of a search outcome.
type Status int

const (
	Found Status = iota + 1
	NotFound
	Failed
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case NotFound:
		return "not found"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Outcome is the single result of a search run.
type Outcome struct {
	Status   Status
	Password string
	Err      error
	Attempts int64
	Elapsed  time.Duration
}

// String renders the final status line shown to the user.
func (o *Outcome) String() string {
	switch o.Status {
	case Found:
		return fmt.Sprintf("[+] Password found: %s", o.Password)
	case NotFound:
		return "[-] Password not found in the given search space."
	default:
		return "[!] " + describe(o.Err)
	}
}

// describe names the remediation class of a fatal error: a broken archive
// needs a new copy, a broken word list or parameters need new input.
func describe(err error) string {
	switch {
	case err == nil:
		return "search failed"
	case errors.Is(err, archive.ErrArchiveUnavailable):
		return fmt.Sprintf("cannot open archive: %v", err)
	case errors.Is(err, archive.ErrIntegrity):
		return fmt.Sprintf("archive data looks damaged: %v", err)
	case errors.Is(err, archive.ErrFatalArchive):
		return fmt.Sprintf("archive is damaged or unreadable: %v", err)
	case errors.Is(err, candidate.ErrSourceUnavailable):
		return fmt.Sprintf("cannot read word list: %v", err)
	case errors.Is(err, candidate.ErrInvalidConfiguration):
		return fmt.Sprintf("invalid search parameters: %v", err)
	case errors.Is(err, context.Canceled):
		return "search interrupted"
	default:
		return fmt.Sprintf("search failed: %v", err)
	}
}
