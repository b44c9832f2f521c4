// Package candidate produces the ordered password candidates tried against
// an encrypted archive: lines of a word list or an exhaustive enumeration
// over an alphabet.
package candidate

import (
	"errors"
	"iter"
)

var (
	// ErrSourceUnavailable is returned when a word list cannot be opened or read.
	ErrSourceUnavailable = errors.New("candidate source unavailable")
	// ErrInvalidConfiguration is returned for malformed brute-force parameters.
	ErrInvalidConfiguration = errors.New("invalid candidate configuration")
)

// Generator is a finite, lazy, ordered sequence of password candidates.
//
// Next returns false once the sequence is exhausted or a read error occurred;
// Err tells the two apart.
type Generator interface {
	Next() (string, bool)
	Err() error
	Close() error
}

// Sized is implemented by generators that know how many candidates they
// will produce. Total returns -1 when the count is unknown or too large.
type Sized interface {
	Total() int64
}

// Seq adapts g to a range-over-func iterator.
func Seq(g Generator) iter.Seq[string] {
	return func(yield func(string) bool) {
		for {
			pwd, ok := g.Next()
			if !ok || !yield(pwd) {
				return
			}
		}
	}
}
